package local

import goerrors "github.com/goliatone/go-errors"

// Emulated provider errors. They surface verbatim through the bridge, the
// same way a real provider's error codes would.
var (
	ErrUserNotFound = goerrors.New("auth/user-not-found", goerrors.CategoryNotFound).
			WithTextCode("AUTH_USER_NOT_FOUND").
			WithCode(goerrors.CodeNotFound)

	ErrWrongPassword = goerrors.New("auth/wrong-password", goerrors.CategoryAuth).
				WithTextCode("AUTH_WRONG_PASSWORD").
				WithCode(goerrors.CodeUnauthorized)

	ErrEmailInUse = goerrors.New("auth/email-already-in-use", goerrors.CategoryConflict).
			WithTextCode("AUTH_EMAIL_IN_USE").
			WithCode(goerrors.CodeConflict)

	ErrInvalidActionCode = goerrors.New("auth/invalid-action-code", goerrors.CategoryBadInput).
				WithTextCode("AUTH_INVALID_ACTION_CODE").
				WithCode(goerrors.CodeBadRequest)

	ErrInvalidToken = goerrors.New("auth/invalid-custom-token", goerrors.CategoryAuth).
			WithTextCode("AUTH_INVALID_TOKEN").
			WithCode(goerrors.CodeUnauthorized)

	ErrInvalidCode = goerrors.New("auth/invalid-verification-code", goerrors.CategoryBadInput).
			WithTextCode("AUTH_INVALID_VERIFICATION_CODE").
			WithCode(goerrors.CodeBadRequest)

	ErrUnknownRequestKey = goerrors.New("auth/invalid-verification-id", goerrors.CategoryBadInput).
				WithTextCode("AUTH_INVALID_VERIFICATION_ID").
				WithCode(goerrors.CodeBadRequest)

	ErrNoSession = goerrors.New("auth/no-current-session", goerrors.CategoryAuth).
			WithTextCode("AUTH_NO_SESSION").
			WithCode(goerrors.CodeUnauthorized)

	ErrProviderDisabled = goerrors.New("auth/operation-not-allowed", goerrors.CategoryAuth).
				WithTextCode("AUTH_OPERATION_NOT_ALLOWED").
				WithCode(goerrors.CodeForbidden)
)
