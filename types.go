package authbridge

import (
	"context"
	"fmt"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Credential is a provider identifier plus an opaque token/secret pair. The
// bridge never interprets its contents, it is consumed verbatim by
// sign-in-with-credential operations.
type Credential struct {
	ProviderID string
	Token      string
	Secret     string
}

// ActionCodeOperation identifies what an out-of-band action code does.
type ActionCodeOperation string

const (
	ActionCodePasswordReset ActionCodeOperation = "PASSWORD_RESET"
	ActionCodeVerifyEmail   ActionCodeOperation = "VERIFY_EMAIL"
	ActionCodeRecoverEmail  ActionCodeOperation = "RECOVER_EMAIL"
)

// ActionCodeInfo describes a pending action code without consuming it.
type ActionCodeInfo struct {
	Operation ActionCodeOperation
	Email     string
}

// ProviderClient is the identity-provider collaborator. Implementations own
// the network transport, credential persistence, and token refresh; every
// method is a suspension point and failures surface as returned errors with
// the provider's own code and message, unreinterpreted by the bridge.
type ProviderClient interface {
	SignInWithEmailAndPassword(ctx context.Context, email, password string) (*RawUserCredential, error)
	CreateUserWithEmailAndPassword(ctx context.Context, email, password string) (*RawUserCredential, error)
	SignInWithCredential(ctx context.Context, cred Credential) (*RawUserCredential, error)
	SignInWithCustomToken(ctx context.Context, token string) (*RawUserCredential, error)
	SignInAnonymously(ctx context.Context) (*RawUserCredential, error)
	SignOut(ctx context.Context) error

	SendPasswordResetEmail(ctx context.Context, email string) error
	ConfirmPasswordReset(ctx context.Context, code, newPassword string) error
	ApplyActionCode(ctx context.Context, code string) error
	CheckActionCode(ctx context.Context, code string) (*ActionCodeInfo, error)
	VerifyPasswordResetCode(ctx context.Context, code string) (string, error)
	FetchSignInMethodsForEmail(ctx context.Context, email string) ([]string, error)

	// VerifyPhoneNumber asks the provider to start a verification for an
	// E.164 number and returns the provider-issued request key. Subsequent
	// phases for that key arrive through the app's external receiver.
	VerifyPhoneNumber(ctx context.Context, number string, timeout time.Duration) (string, error)

	// RefreshIDToken exchanges a refresh token for a fresh ID token.
	RefreshIDToken(ctx context.Context, refreshToken string) (string, error)
}

// DefaultLogger returns the stdout logger used when none is configured.
func DefaultLogger() Logger {
	return defLogger{}
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTHBRIDGE "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTHBRIDGE "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTHBRIDGE "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTHBRIDGE "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
