package local

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	authbridge "github.com/goliatone/go-authbridge"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var _ authbridge.ProviderClient = (*Provider)(nil)

type actionCode struct {
	operation authbridge.ActionCodeOperation
	email     string
	userID    uuid.UUID
}

type phoneVerification struct {
	number string
	code   string
}

// Provider emulates an identity provider in process. All state lives in an
// in-memory sqlite table plus a few maps; notifications the native layer
// would push are queued until Flush.
type Provider struct {
	store  *store
	tokens *tokenMint
	logger authbridge.Logger
	events *authbridge.ExternalReceiver

	mu            sync.Mutex
	sessionID     uuid.UUID
	refreshTokens map[string]uuid.UUID
	actionCodes   map[string]actionCode
	verifications map[string]phoneVerification
	pending       []func()
}

// Option customizes the emulator.
type Option func(*Provider)

// WithLogger overrides the emulator's logger.
func WithLogger(logger authbridge.Logger) Option {
	return func(p *Provider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithSigningKey overrides the HS256 key used for minted tokens.
func WithSigningKey(key []byte) Option {
	return func(p *Provider) {
		if len(key) > 0 {
			p.tokens.signingKey = key
		}
	}
}

// WithTokenTTL overrides how long minted ID tokens stay valid.
func WithTokenTTL(ttl time.Duration) Option {
	return func(p *Provider) {
		if ttl > 0 {
			p.tokens.ttl = ttl
		}
	}
}

// New builds an emulator bound to app's external notification channel.
func New(ctx context.Context, app *authbridge.App, opts ...Option) (*Provider, error) {
	// one private in-memory database per emulator instance
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	store, err := newStore(ctx, dsn)
	if err != nil {
		return nil, err
	}

	p := &Provider{
		store: store,
		tokens: &tokenMint{
			signingKey: []byte(uuid.NewString()),
			issuer:     "authbridge-local/" + app.Config().ProjectID,
			ttl:        time.Hour,
		},
		logger:        authbridge.DefaultLogger(),
		events:        app.ExternalEvents(),
		refreshTokens: map[string]uuid.UUID{},
		actionCodes:   map[string]actionCode{},
		verifications: map[string]phoneVerification{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}

	return p, nil
}

// Close releases the emulator's database.
func (p *Provider) Close() error {
	return p.store.close()
}

// Flush delivers every queued native notification, in order.
func (p *Provider) Flush() {
	p.mu.Lock()
	pending := p.pending
	p.pending = nil
	p.mu.Unlock()

	for _, deliver := range pending {
		deliver()
	}
}

func (p *Provider) SignInWithEmailAndPassword(ctx context.Context, email, password string) (*authbridge.RawUserCredential, error) {
	rec, err := p.store.getByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(rec.PasswordHash), []byte(password)); err != nil {
		return nil, ErrWrongPassword
	}

	return p.establishSession(rec, authbridge.ProviderIDPassword, false)
}

func (p *Provider) CreateUserWithEmailAndPassword(ctx context.Context, email, password string) (*authbridge.RawUserCredential, error) {
	if _, err := p.store.getByEmail(ctx, email); err == nil {
		return nil, ErrEmailInUse
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	rec := &userRecord{
		Email:        email,
		PasswordHash: string(hash),
	}
	// deterministic IDs make emulator runs reproducible
	if id, err := hashid.NewUUID(email); err == nil {
		rec.ID = id
	} else {
		rec.ID = uuid.New()
	}

	if err := p.store.create(ctx, rec); err != nil {
		return nil, err
	}

	return p.establishSession(rec, authbridge.ProviderIDPassword, true)
}

func (p *Provider) SignInWithCredential(ctx context.Context, cred authbridge.Credential) (*authbridge.RawUserCredential, error) {
	switch cred.ProviderID {
	case authbridge.ProviderIDPassword:
		return p.SignInWithEmailAndPassword(ctx, cred.Token, cred.Secret)
	case authbridge.ProviderIDPhone:
		return p.signInWithPhone(ctx, cred.Token, cred.Secret)
	case authbridge.ProviderIDCustom:
		return p.SignInWithCustomToken(ctx, cred.Token)
	default:
		return nil, ErrProviderDisabled
	}
}

func (p *Provider) SignInWithCustomToken(ctx context.Context, token string) (*authbridge.RawUserCredential, error) {
	id, err := p.tokens.subject(token)
	if err != nil {
		return nil, err
	}

	rec, err := p.store.getByID(ctx, id)
	if err != nil {
		return nil, err
	}

	return p.establishSession(rec, authbridge.ProviderIDCustom, false)
}

func (p *Provider) SignInAnonymously(ctx context.Context) (*authbridge.RawUserCredential, error) {
	rec := &userRecord{
		ID:        uuid.New(),
		Anonymous: true,
	}
	if err := p.store.create(ctx, rec); err != nil {
		return nil, err
	}

	return p.establishSession(rec, authbridge.ProviderIDAnonymous, true)
}

func (p *Provider) SignOut(context.Context) error {
	p.mu.Lock()
	p.sessionID = uuid.Nil
	p.mu.Unlock()

	p.queue(func() {
		p.events.StateChanged(nil)
		p.events.IDTokenChanged(nil)
	})
	return nil
}

func (p *Provider) SendPasswordResetEmail(ctx context.Context, email string) error {
	rec, err := p.store.getByEmail(ctx, email)
	if err != nil {
		return err
	}
	code := p.issueActionCode(authbridge.ActionCodePasswordReset, rec)
	p.logger.Info("password reset issued for %s code=%s", email, code)
	return nil
}

// RequestEmailVerification issues a VERIFY_EMAIL action code for the current
// session's user.
func (p *Provider) RequestEmailVerification(ctx context.Context) error {
	rec, err := p.currentUser(ctx)
	if err != nil {
		return err
	}
	code := p.issueActionCode(authbridge.ActionCodeVerifyEmail, rec)
	p.logger.Info("email verification issued for %s code=%s", rec.Email, code)
	return nil
}

func (p *Provider) ConfirmPasswordReset(ctx context.Context, code, newPassword string) error {
	ac, err := p.takeActionCode(code, authbridge.ActionCodePasswordReset)
	if err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}
	return p.store.updatePassword(ctx, ac.userID, string(hash))
}

func (p *Provider) ApplyActionCode(ctx context.Context, code string) error {
	ac, err := p.takeActionCode(code, authbridge.ActionCodeVerifyEmail)
	if err != nil {
		return err
	}
	return p.store.markEmailVerified(ctx, ac.userID)
}

func (p *Provider) CheckActionCode(_ context.Context, code string) (*authbridge.ActionCodeInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ac, ok := p.actionCodes[code]
	if !ok {
		return nil, ErrInvalidActionCode
	}
	return &authbridge.ActionCodeInfo{
		Operation: ac.operation,
		Email:     ac.email,
	}, nil
}

func (p *Provider) VerifyPasswordResetCode(_ context.Context, code string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ac, ok := p.actionCodes[code]
	if !ok || ac.operation != authbridge.ActionCodePasswordReset {
		return "", ErrInvalidActionCode
	}
	return ac.email, nil
}

func (p *Provider) FetchSignInMethodsForEmail(ctx context.Context, email string) ([]string, error) {
	rec, err := p.store.getByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return signInMethods(rec), nil
}

func (p *Provider) VerifyPhoneNumber(_ context.Context, number string, _ time.Duration) (string, error) {
	code, err := otpCode()
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate verification code")
	}

	key := uuid.NewString()
	p.mu.Lock()
	p.verifications[key] = phoneVerification{number: number, code: code}
	p.mu.Unlock()

	p.logger.Info("sms issued to %s code=%s", number, code)
	p.queue(func() {
		p.events.PhoneEvent(authbridge.PhoneEvent{
			RequestKey: key,
			Phase:      authbridge.PhaseCodeSent,
			State: map[string]any{
				"verificationId": key,
				"phoneNumber":    number,
			},
		})
	})
	return key, nil
}

func (p *Provider) RefreshIDToken(ctx context.Context, refreshToken string) (string, error) {
	p.mu.Lock()
	id, ok := p.refreshTokens[refreshToken]
	p.mu.Unlock()
	if !ok {
		return "", ErrInvalidToken
	}

	rec, err := p.store.getByID(ctx, id)
	if err != nil {
		return "", err
	}
	idToken, err := p.tokens.mint(rec)
	if err != nil {
		return "", err
	}

	raw := rawUser(rec, idToken, refreshToken)
	p.queue(func() { p.events.IDTokenChanged(raw) })

	return idToken, nil
}

// MintCustomToken issues a backend-style custom token for an existing user,
// consumable by SignInWithCustomToken.
func (p *Provider) MintCustomToken(ctx context.Context, email string) (string, error) {
	rec, err := p.store.getByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	return p.tokens.mint(rec)
}

// IssuedActionCode returns the most recently issued action code for email
// and operation, for tests standing in for the email inbox.
func (p *Provider) IssuedActionCode(email string, op authbridge.ActionCodeOperation) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for code, ac := range p.actionCodes {
		if ac.email == email && ac.operation == op {
			return code, true
		}
	}
	return "", false
}

// VerificationCode returns the SMS code for an in-flight verification, for
// tests standing in for the device's inbox.
func (p *Provider) VerificationCode(requestKey string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	v, ok := p.verifications[requestKey]
	if !ok {
		return "", false
	}
	return v.code, true
}

// ExpireAutoRetrieval queues an autoVerifyTimeout phase for requestKey. The
// request stays open for a manual PhoneCredential afterwards.
func (p *Provider) ExpireAutoRetrieval(requestKey string) error {
	p.mu.Lock()
	v, ok := p.verifications[requestKey]
	p.mu.Unlock()
	if !ok {
		return ErrUnknownRequestKey
	}

	p.queue(func() {
		p.events.PhoneEvent(authbridge.PhoneEvent{
			RequestKey: requestKey,
			Phase:      authbridge.PhaseAutoRetrievalTimeout,
			State: map[string]any{
				"verificationId": requestKey,
				"phoneNumber":    v.number,
			},
		})
	})
	return nil
}

// AutoVerify queues the autoVerified terminal phase, carrying the code the
// way instant verification on a device would.
func (p *Provider) AutoVerify(requestKey string) error {
	p.mu.Lock()
	v, ok := p.verifications[requestKey]
	p.mu.Unlock()
	if !ok {
		return ErrUnknownRequestKey
	}

	p.queue(func() {
		p.events.PhoneEvent(authbridge.PhoneEvent{
			RequestKey: requestKey,
			Phase:      authbridge.PhaseAutoVerified,
			State: map[string]any{
				"verificationId": requestKey,
				"phoneNumber":    v.number,
				"code":           v.code,
			},
		})
	})
	return nil
}

// FailVerification queues the error terminal phase for requestKey.
func (p *Provider) FailVerification(requestKey string, cause error) error {
	p.mu.Lock()
	_, ok := p.verifications[requestKey]
	delete(p.verifications, requestKey)
	p.mu.Unlock()
	if !ok {
		return ErrUnknownRequestKey
	}

	p.queue(func() {
		p.events.PhoneEvent(authbridge.PhoneEvent{
			RequestKey: requestKey,
			Phase:      authbridge.PhaseError,
			Err:        cause,
		})
	})
	return nil
}

// PushState queues a full-state-changed notification reflecting the current
// provider-side session, simulating a native session restore.
func (p *Provider) PushState(ctx context.Context) error {
	rec, err := p.currentUser(ctx)
	if err != nil {
		if errors.Is(err, ErrNoSession) {
			p.queue(func() { p.events.StateChanged(nil) })
			return nil
		}
		return err
	}

	idToken, err := p.tokens.mint(rec)
	if err != nil {
		return err
	}
	refresh := p.issueRefreshToken(rec.ID)
	raw := rawUser(rec, idToken, refresh)

	p.queue(func() { p.events.StateChanged(raw) })
	return nil
}

func (p *Provider) signInWithPhone(ctx context.Context, requestKey, code string) (*authbridge.RawUserCredential, error) {
	p.mu.Lock()
	v, ok := p.verifications[requestKey]
	p.mu.Unlock()
	if !ok {
		return nil, ErrUnknownRequestKey
	}
	if subtle.ConstantTimeCompare([]byte(v.code), []byte(code)) != 1 {
		return nil, ErrInvalidCode
	}

	p.mu.Lock()
	delete(p.verifications, requestKey)
	p.mu.Unlock()

	rec, err := p.store.getByPhone(ctx, v.number)
	isNew := false
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			return nil, err
		}
		rec = &userRecord{
			ID:          uuid.New(),
			PhoneNumber: v.number,
		}
		if err := p.store.create(ctx, rec); err != nil {
			return nil, err
		}
		isNew = true
	}

	return p.establishSession(rec, authbridge.ProviderIDPhone, isNew)
}

func (p *Provider) establishSession(rec *userRecord, providerID string, isNew bool) (*authbridge.RawUserCredential, error) {
	idToken, err := p.tokens.mint(rec)
	if err != nil {
		return nil, err
	}
	refresh := p.issueRefreshToken(rec.ID)

	p.mu.Lock()
	p.sessionID = rec.ID
	p.mu.Unlock()

	raw := rawUser(rec, idToken, refresh)
	p.queue(func() {
		p.events.StateChanged(raw)
		p.events.IDTokenChanged(raw)
	})

	return &authbridge.RawUserCredential{
		User:       raw,
		ProviderID: providerID,
		IsNewUser:  isNew,
	}, nil
}

func (p *Provider) currentUser(ctx context.Context) (*userRecord, error) {
	p.mu.Lock()
	id := p.sessionID
	p.mu.Unlock()

	if id == uuid.Nil {
		return nil, ErrNoSession
	}
	return p.store.getByID(ctx, id)
}

func (p *Provider) issueRefreshToken(id uuid.UUID) string {
	token := uuid.NewString()
	p.mu.Lock()
	p.refreshTokens[token] = id
	p.mu.Unlock()
	return token
}

func (p *Provider) issueActionCode(op authbridge.ActionCodeOperation, rec *userRecord) string {
	code := uuid.NewString()
	p.mu.Lock()
	p.actionCodes[code] = actionCode{
		operation: op,
		email:     rec.Email,
		userID:    rec.ID,
	}
	p.mu.Unlock()
	return code
}

func (p *Provider) takeActionCode(code string, op authbridge.ActionCodeOperation) (actionCode, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ac, ok := p.actionCodes[code]
	if !ok || ac.operation != op {
		return actionCode{}, ErrInvalidActionCode
	}
	delete(p.actionCodes, code)
	return ac, nil
}

func (p *Provider) queue(deliver func()) {
	p.mu.Lock()
	p.pending = append(p.pending, deliver)
	p.mu.Unlock()
}

func rawUser(rec *userRecord, idToken, refreshToken string) *authbridge.RawUser {
	raw := &authbridge.RawUser{
		UID:           rec.ID.String(),
		DisplayName:   rec.DisplayName,
		Email:         rec.Email,
		EmailVerified: rec.EmailVerified,
		PhoneNumber:   rec.PhoneNumber,
		Anonymous:     rec.Anonymous,
		IDToken:       idToken,
		RefreshToken:  refreshToken,
	}

	if rec.Email != "" && rec.PasswordHash != "" {
		raw.ProviderData = append(raw.ProviderData, authbridge.RawProviderInfo{
			ProviderID: authbridge.ProviderIDPassword,
			UID:        rec.Email,
			Email:      rec.Email,
		})
	}
	if rec.PhoneNumber != "" {
		raw.ProviderData = append(raw.ProviderData, authbridge.RawProviderInfo{
			ProviderID:  authbridge.ProviderIDPhone,
			UID:         rec.PhoneNumber,
			PhoneNumber: rec.PhoneNumber,
		})
	}
	return raw
}

func signInMethods(rec *userRecord) []string {
	var methods []string
	if rec.PasswordHash != "" {
		methods = append(methods, authbridge.ProviderIDPassword)
	}
	if rec.PhoneNumber != "" {
		methods = append(methods, authbridge.ProviderIDPhone)
	}
	return methods
}

var otpMax = big.NewInt(1_000_000)

// otpCode generates a zero-padded 6-digit code with crypto/rand.
func otpCode() (string, error) {
	n, err := rand.Int(rand.Reader, otpMax)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
