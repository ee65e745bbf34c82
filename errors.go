package authbridge

import (
	"errors"

	goerrors "github.com/goliatone/go-errors"
)

const (
	textCodeUnsupportedOperation = "UNSUPPORTED_OPERATION"
	textCodeInvalidPhoneNumber   = "INVALID_PHONE_NUMBER"
	textCodeVerificationStart    = "VERIFICATION_START_FAILED"
)

// ErrNoCurrentUser is returned by operations that need a signed-in session.
var ErrNoCurrentUser = errors.New("no current user")

// ErrVerificationCanceled is delivered when a verification is canceled by the caller.
var ErrVerificationCanceled = errors.New("verification canceled")

// ErrUnsupportedOperation is returned for web-platform-only operations
// (redirect/popup sign-in, persistence control, device-language detection).
// These fail immediately and deterministically, they never silently no-op.
var ErrUnsupportedOperation = goerrors.New("operation not supported on this platform", goerrors.CategoryOperation).
	WithTextCode(textCodeUnsupportedOperation).
	WithCode(goerrors.CodeBadRequest)

// ErrInvalidPhoneNumber is delivered through a verification's error listener
// when the supplied number cannot be normalized to E.164.
var ErrInvalidPhoneNumber = goerrors.New("invalid phone number", goerrors.CategoryBadInput).
	WithTextCode(textCodeInvalidPhoneNumber).
	WithCode(goerrors.CodeBadRequest)

func newUnsupportedOperationError(operation string) error {
	return ErrUnsupportedOperation.WithMetadata(map[string]any{
		"operation": operation,
	})
}

func newVerificationStartError(err error, number string) error {
	return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to start phone verification").
		WithTextCode(textCodeVerificationStart).
		WithMetadata(map[string]any{
			"phone_number": number,
		})
}
