package authbridge_test

import (
	"context"
	"testing"
	"time"

	authbridge "github.com/goliatone/go-authbridge"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockProvider implements authbridge.ProviderClient
type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) SignInWithEmailAndPassword(ctx context.Context, email, password string) (*authbridge.RawUserCredential, error) {
	args := m.Called(ctx, email, password)
	return credentialResult(args)
}

func (m *MockProvider) CreateUserWithEmailAndPassword(ctx context.Context, email, password string) (*authbridge.RawUserCredential, error) {
	args := m.Called(ctx, email, password)
	return credentialResult(args)
}

func (m *MockProvider) SignInWithCredential(ctx context.Context, cred authbridge.Credential) (*authbridge.RawUserCredential, error) {
	args := m.Called(ctx, cred)
	return credentialResult(args)
}

func (m *MockProvider) SignInWithCustomToken(ctx context.Context, token string) (*authbridge.RawUserCredential, error) {
	args := m.Called(ctx, token)
	return credentialResult(args)
}

func (m *MockProvider) SignInAnonymously(ctx context.Context) (*authbridge.RawUserCredential, error) {
	args := m.Called(ctx)
	return credentialResult(args)
}

func (m *MockProvider) SignOut(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockProvider) SendPasswordResetEmail(ctx context.Context, email string) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}

func (m *MockProvider) ConfirmPasswordReset(ctx context.Context, code, newPassword string) error {
	args := m.Called(ctx, code, newPassword)
	return args.Error(0)
}

func (m *MockProvider) ApplyActionCode(ctx context.Context, code string) error {
	args := m.Called(ctx, code)
	return args.Error(0)
}

func (m *MockProvider) CheckActionCode(ctx context.Context, code string) (*authbridge.ActionCodeInfo, error) {
	args := m.Called(ctx, code)
	if info, ok := args.Get(0).(*authbridge.ActionCodeInfo); ok {
		return info, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockProvider) VerifyPasswordResetCode(ctx context.Context, code string) (string, error) {
	args := m.Called(ctx, code)
	return args.String(0), args.Error(1)
}

func (m *MockProvider) FetchSignInMethodsForEmail(ctx context.Context, email string) ([]string, error) {
	args := m.Called(ctx, email)
	if methods, ok := args.Get(0).([]string); ok {
		return methods, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockProvider) VerifyPhoneNumber(ctx context.Context, number string, timeout time.Duration) (string, error) {
	args := m.Called(ctx, number, timeout)
	return args.String(0), args.Error(1)
}

func (m *MockProvider) RefreshIDToken(ctx context.Context, refreshToken string) (string, error) {
	args := m.Called(ctx, refreshToken)
	return args.String(0), args.Error(1)
}

func credentialResult(args mock.Arguments) (*authbridge.RawUserCredential, error) {
	if raw, ok := args.Get(0).(*authbridge.RawUserCredential); ok {
		return raw, args.Error(1)
	}
	return nil, args.Error(1)
}

func newTestApp(t *testing.T) *authbridge.App {
	t.Helper()
	app, err := authbridge.NewApp(authbridge.Config{
		APIKey:    "test-api-key",
		AppID:     "app-1",
		ProjectID: "project-1",
	})
	require.NoError(t, err)
	return app
}
