package auth0

import (
	"errors"

	goerrors "github.com/goliatone/go-errors"
)

const (
	// TextCodeTokenExpired marks an Auth0 ID token past its expiry.
	TextCodeTokenExpired = "AUTH0_TOKEN_EXPIRED"
	// TextCodeTokenInvalid marks an ID token that failed JWKS validation.
	TextCodeTokenInvalid = "AUTH0_TOKEN_INVALID"
	// TextCodeNotSupported marks operations Auth0 only offers through
	// hosted pages or the Management API.
	TextCodeNotSupported = "AUTH0_NOT_SUPPORTED"
)

var (
	// ErrTokenExpired is returned when a token received from Auth0 is expired.
	ErrTokenExpired = goerrors.New("auth0: ID token expired", goerrors.CategoryAuth).
			WithTextCode(TextCodeTokenExpired).
			WithCode(goerrors.CodeUnauthorized)

	// ErrTokenInvalid is returned when a token fails signature, issuer, or
	// audience validation.
	ErrTokenInvalid = goerrors.New("auth0: ID token validation failed", goerrors.CategoryAuth).
			WithTextCode(TextCodeTokenInvalid).
			WithCode(goerrors.CodeUnauthorized)
)

func newNotSupportedError(operation string) error {
	return goerrors.New("auth0: "+operation+" is not supported; use the Auth0 hosted flow", goerrors.CategoryOperation).
		WithTextCode(TextCodeNotSupported).
		WithCode(goerrors.CodeBadRequest).
		WithMetadata(map[string]any{
			"provider":  "auth0",
			"operation": operation,
		})
}

// IsNotSupportedError reports whether err is an operation Auth0 cannot serve.
func IsNotSupportedError(err error) bool {
	var rich *goerrors.Error
	if !errors.As(err, &rich) {
		return false
	}
	return rich.TextCode == TextCodeNotSupported
}
