package authbridge

import (
	"context"
	"errors"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// ErrMissingProviderResult is returned when a provider call resolves without
// error but carries no user payload.
var ErrMissingProviderResult = errors.New("provider returned no user payload")

// SignInResult is the rich result of a sign-in or sign-up operation.
type SignInResult struct {
	user *Snapshot
	info *AdditionalUserInfo
}

// User returns the session snapshot the operation produced. This is the
// narrow legacy shape; prefer the full result.
func (r *SignInResult) User() *Snapshot {
	if r == nil {
		return nil
	}
	return r.user
}

// AdditionalInfo returns provider-specific sign-in metadata.
func (r *SignInResult) AdditionalInfo() *AdditionalUserInfo {
	if r == nil {
		return nil
	}
	return r.info
}

// Client is the authentication façade for one App. Direct operations
// delegate to the provider, adapt the result, replace the session snapshot,
// and publish user-changed; a failed provider call never touches state and
// never publishes, so partial snapshots are never observable.
type Client struct {
	app      *App
	provider ProviderClient
	logger   Logger
}

// NewClient builds a façade over provider, bound to app's session state.
func NewClient(app *App, provider ProviderClient) *Client {
	return &Client{
		app:      app,
		provider: provider,
		logger:   app.logger,
	}
}

func (c *Client) WithLogger(logger Logger) *Client {
	if logger != nil {
		c.logger = logger
	}
	return c
}

// CurrentUser returns the current session snapshot, or nil when signed out.
func (c *Client) CurrentUser() *Snapshot {
	return c.app.holder.Current()
}

// OnAuthStateChanged registers a listener for full auth-state replacements.
func (c *Client) OnAuthStateChanged(fn SnapshotListener) Unsubscribe {
	return c.app.state.OnAuthStateChanged(fn)
}

// OnIDTokenChanged registers a listener for ID-token replacements.
func (c *Client) OnIDTokenChanged(fn SnapshotListener) Unsubscribe {
	return c.app.state.OnIDTokenChanged(fn)
}

// OnUserChanged registers a listener firing whenever the session object
// changed for any reason, external or operation-driven.
func (c *Client) OnUserChanged(fn SnapshotListener) Unsubscribe {
	return c.app.state.OnUserChanged(fn)
}

func (c *Client) SignInWithEmailAndPassword(ctx context.Context, email, password string) (*SignInResult, error) {
	if err := validateEmail(email); err != nil {
		return nil, err
	}

	raw, err := c.provider.SignInWithEmailAndPassword(ctx, email, password)
	if err != nil {
		c.logger.Error("sign-in failed for %s: %v", email, err)
		return nil, err
	}
	return c.completeSignIn(raw)
}

// CreateUserWithEmailAndPassword creates the account and signs it in,
// returning the rich result shape.
func (c *Client) CreateUserWithEmailAndPassword(ctx context.Context, email, password string) (*SignInResult, error) {
	if err := validateEmail(email); err != nil {
		return nil, err
	}

	raw, err := c.provider.CreateUserWithEmailAndPassword(ctx, email, password)
	if err != nil {
		c.logger.Error("create user failed for %s: %v", email, err)
		return nil, err
	}
	return c.completeSignIn(raw)
}

func (c *Client) SignInWithCredential(ctx context.Context, cred Credential) (*SignInResult, error) {
	raw, err := c.provider.SignInWithCredential(ctx, cred)
	if err != nil {
		c.logger.Error("credential sign-in failed for provider %s: %v", cred.ProviderID, err)
		return nil, err
	}
	return c.completeSignIn(raw)
}

func (c *Client) SignInWithCustomToken(ctx context.Context, token string) (*SignInResult, error) {
	raw, err := c.provider.SignInWithCustomToken(ctx, token)
	if err != nil {
		c.logger.Error("custom token sign-in failed: %v", err)
		return nil, err
	}
	return c.completeSignIn(raw)
}

func (c *Client) SignInAnonymously(ctx context.Context) (*SignInResult, error) {
	raw, err := c.provider.SignInAnonymously(ctx)
	if err != nil {
		c.logger.Error("anonymous sign-in failed: %v", err)
		return nil, err
	}
	return c.completeSignIn(raw)
}

// SignOut ends the provider session, clears the snapshot, and publishes a
// single user-changed notification with no user.
func (c *Client) SignOut(ctx context.Context) error {
	if err := c.provider.SignOut(ctx); err != nil {
		c.logger.Error("sign-out failed: %v", err)
		return err
	}

	snap := c.app.holder.Set(nil)
	c.app.publishUserChanged(snap)
	return nil
}

// IDToken returns the current user's ID token, refreshing through the
// provider when forceRefresh is set or no token is cached. The provider
// follows a refresh with its own id-token-changed notification.
func (c *Client) IDToken(ctx context.Context, forceRefresh bool) (string, error) {
	snap := c.app.holder.Current()
	if snap == nil {
		return "", ErrNoCurrentUser
	}
	if !forceRefresh && snap.IDToken() != "" {
		return snap.IDToken(), nil
	}
	return c.provider.RefreshIDToken(ctx, snap.RefreshToken())
}

func (c *Client) SendPasswordResetEmail(ctx context.Context, email string) error {
	if err := validateEmail(email); err != nil {
		return err
	}
	return c.provider.SendPasswordResetEmail(ctx, email)
}

func (c *Client) ConfirmPasswordReset(ctx context.Context, code, newPassword string) error {
	return c.provider.ConfirmPasswordReset(ctx, code, newPassword)
}

func (c *Client) ApplyActionCode(ctx context.Context, code string) error {
	return c.provider.ApplyActionCode(ctx, code)
}

func (c *Client) CheckActionCode(ctx context.Context, code string) (*ActionCodeInfo, error) {
	return c.provider.CheckActionCode(ctx, code)
}

// VerifyPasswordResetCode checks the code and returns the email it was
// issued for.
func (c *Client) VerifyPasswordResetCode(ctx context.Context, code string) (string, error) {
	return c.provider.VerifyPasswordResetCode(ctx, code)
}

func (c *Client) FetchSignInMethodsForEmail(ctx context.Context, email string) ([]string, error) {
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	return c.provider.FetchSignInMethodsForEmail(ctx, email)
}

// VerifyPhoneNumber starts a phone verification and returns its handle
// immediately; the provider call runs asynchronously and all outcomes,
// including a failed start, surface through the handle's phase listeners.
func (c *Client) VerifyPhoneNumber(ctx context.Context, number string, opts ...VerificationOption) *Verification {
	v := newVerification(c.app, number, c.logger)
	for _, opt := range opts {
		if opt != nil {
			opt(v)
		}
	}

	go v.start(ctx, c.provider)

	return v
}

// Web-platform-only surface. These operations depend on a browser
// environment and fail deterministically here.

func (c *Client) SignInWithRedirect(_ context.Context, _ string) error {
	return newUnsupportedOperationError("signInWithRedirect")
}

func (c *Client) GetRedirectResult(_ context.Context) (*SignInResult, error) {
	return nil, newUnsupportedOperationError("getRedirectResult")
}

func (c *Client) SignInWithPopup(_ context.Context, _ string) (*SignInResult, error) {
	return nil, newUnsupportedOperationError("signInWithPopup")
}

func (c *Client) SetPersistence(_ string) error {
	return newUnsupportedOperationError("setPersistence")
}

func (c *Client) UseDeviceLanguage() error {
	return newUnsupportedOperationError("useDeviceLanguage")
}

func (c *Client) completeSignIn(raw *RawUserCredential) (*SignInResult, error) {
	if raw == nil || raw.User == nil {
		return nil, ErrMissingProviderResult
	}

	adapted := AdaptUserCredential(raw)

	// Republish from the value Set returns so a snapshot superseded by a
	// concurrent writer is never re-published.
	snap := c.app.holder.Set(raw.User)
	c.app.publishUserChanged(snap)

	return &SignInResult{user: snap, info: adapted.AdditionalInfo}, nil
}

func validateEmail(email string) error {
	return validation.Validate(email, validation.Required, is.Email)
}
