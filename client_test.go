package authbridge_test

import (
	"context"
	"errors"
	"testing"

	authbridge "github.com/goliatone/go-authbridge"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestCreateUserUpdatesSessionAndNotifiesOnce(t *testing.T) {
	app := newTestApp(t)
	provider := &MockProvider{}
	provider.On("CreateUserWithEmailAndPassword", mock.Anything, "a@b.com", "pw").
		Return(&authbridge.RawUserCredential{
			User:       &authbridge.RawUser{UID: "u1", Email: "a@b.com"},
			ProviderID: authbridge.ProviderIDPassword,
			IsNewUser:  true,
		}, nil).Once()

	client := authbridge.NewClient(app, provider)

	var changed []*authbridge.Snapshot
	client.OnUserChanged(func(s *authbridge.Snapshot) { changed = append(changed, s) })

	result, err := client.CreateUserWithEmailAndPassword(context.Background(), "a@b.com", "pw")
	require.NoError(t, err)
	require.NotNil(t, result.User())
	assert.Equal(t, "u1", result.User().UID)
	assert.True(t, result.AdditionalInfo().IsNewUser)

	require.NotNil(t, client.CurrentUser())
	assert.Equal(t, "u1", client.CurrentUser().UID)

	require.Len(t, changed, 1, "exactly one user-changed notification")
	assert.Same(t, result.User(), changed[0])
	provider.AssertExpectations(t)
}

func TestSignInFailureLeavesStateUntouched(t *testing.T) {
	app := newTestApp(t)
	provider := &MockProvider{}
	provider.On("SignInWithEmailAndPassword", mock.Anything, "a@b.com", "bad").
		Return(nil, errors.New("auth/wrong-password")).Once()

	client := authbridge.NewClient(app, provider)

	notified := 0
	client.OnUserChanged(func(*authbridge.Snapshot) { notified++ })

	_, err := client.SignInWithEmailAndPassword(context.Background(), "a@b.com", "bad")
	require.EqualError(t, err, "auth/wrong-password", "provider errors surface verbatim")

	assert.Nil(t, client.CurrentUser())
	assert.Equal(t, 0, notified, "failed calls publish nothing")
	assert.False(t, app.Holder().Resolved())
}

func TestSignInRejectsMalformedEmailLocally(t *testing.T) {
	app := newTestApp(t)
	provider := &MockProvider{}
	client := authbridge.NewClient(app, provider)

	_, err := client.SignInWithEmailAndPassword(context.Background(), "not-an-email", "pw")
	require.Error(t, err)
	provider.AssertNotCalled(t, "SignInWithEmailAndPassword", mock.Anything, mock.Anything, mock.Anything)
}

func TestSignOutClearsSessionAndNotifiesAbsent(t *testing.T) {
	app := newTestApp(t)
	provider := &MockProvider{}
	provider.On("SignInAnonymously", mock.Anything).
		Return(&authbridge.RawUserCredential{User: &authbridge.RawUser{UID: "anon-1", Anonymous: true}}, nil).Once()
	provider.On("SignOut", mock.Anything).Return(nil).Once()

	client := authbridge.NewClient(app, provider)
	_, err := client.SignInAnonymously(context.Background())
	require.NoError(t, err)
	require.NotNil(t, client.CurrentUser())

	var changed []*authbridge.Snapshot
	unsubscribe := client.OnUserChanged(func(s *authbridge.Snapshot) { changed = append(changed, s) })
	changed = changed[:0] // drop the late-subscriber replay, watch the sign-out only

	require.NoError(t, client.SignOut(context.Background()))

	assert.Nil(t, client.CurrentUser())
	require.Len(t, changed, 1, "exactly one user-changed for sign-out")
	assert.Nil(t, changed[0])

	unsubscribe()
	provider.AssertExpectations(t)
}

func TestSignOutFailureKeepsSession(t *testing.T) {
	app := newTestApp(t)
	provider := &MockProvider{}
	provider.On("SignInAnonymously", mock.Anything).
		Return(&authbridge.RawUserCredential{User: &authbridge.RawUser{UID: "anon-1"}}, nil).Once()
	provider.On("SignOut", mock.Anything).Return(errors.New("auth/network-request-failed")).Once()

	client := authbridge.NewClient(app, provider)
	_, err := client.SignInAnonymously(context.Background())
	require.NoError(t, err)

	require.Error(t, client.SignOut(context.Background()))
	require.NotNil(t, client.CurrentUser())
	assert.Equal(t, "anon-1", client.CurrentUser().UID)
}

func TestSignInWithCredentialPassesCredentialOpaquely(t *testing.T) {
	app := newTestApp(t)
	provider := &MockProvider{}
	cred := authbridge.OAuthCredential("github.com", "access-token", "")
	provider.On("SignInWithCredential", mock.Anything, cred).
		Return(&authbridge.RawUserCredential{
			User:       &authbridge.RawUser{UID: "u9"},
			ProviderID: "github.com",
		}, nil).Once()

	client := authbridge.NewClient(app, provider)
	result, err := client.SignInWithCredential(context.Background(), cred)
	require.NoError(t, err)
	assert.Equal(t, "u9", result.User().UID)
	assert.Equal(t, "github.com", result.AdditionalInfo().ProviderID)
	provider.AssertExpectations(t)
}

func TestSignInWithMissingProviderPayload(t *testing.T) {
	app := newTestApp(t)
	provider := &MockProvider{}
	provider.On("SignInAnonymously", mock.Anything).
		Return(&authbridge.RawUserCredential{}, nil).Once()

	client := authbridge.NewClient(app, provider)
	_, err := client.SignInAnonymously(context.Background())
	assert.ErrorIs(t, err, authbridge.ErrMissingProviderResult)
	assert.False(t, app.Holder().Resolved())
}

func TestIDTokenReturnsCachedOrRefreshes(t *testing.T) {
	app := newTestApp(t)
	provider := &MockProvider{}
	provider.On("SignInAnonymously", mock.Anything).
		Return(&authbridge.RawUserCredential{
			User: &authbridge.RawUser{UID: "u1", IDToken: "cached", RefreshToken: "refresh-1"},
		}, nil).Once()
	provider.On("RefreshIDToken", mock.Anything, "refresh-1").
		Return("fresh", nil).Once()

	client := authbridge.NewClient(app, provider)
	_, err := client.SignInAnonymously(context.Background())
	require.NoError(t, err)

	token, err := client.IDToken(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, "cached", token)

	token, err = client.IDToken(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, "fresh", token)
	provider.AssertExpectations(t)
}

func TestIDTokenWithoutSession(t *testing.T) {
	client := authbridge.NewClient(newTestApp(t), &MockProvider{})

	_, err := client.IDToken(context.Background(), false)
	assert.ErrorIs(t, err, authbridge.ErrNoCurrentUser)
}

func TestActionCodeOperationsDelegate(t *testing.T) {
	app := newTestApp(t)
	provider := &MockProvider{}
	provider.On("SendPasswordResetEmail", mock.Anything, "a@b.com").Return(nil).Once()
	provider.On("ConfirmPasswordReset", mock.Anything, "code-1", "newpw").Return(nil).Once()
	provider.On("ApplyActionCode", mock.Anything, "code-2").Return(nil).Once()
	provider.On("CheckActionCode", mock.Anything, "code-3").
		Return(&authbridge.ActionCodeInfo{Operation: authbridge.ActionCodePasswordReset, Email: "a@b.com"}, nil).Once()
	provider.On("VerifyPasswordResetCode", mock.Anything, "code-1").Return("a@b.com", nil).Once()
	provider.On("FetchSignInMethodsForEmail", mock.Anything, "a@b.com").
		Return([]string{authbridge.ProviderIDPassword}, nil).Once()

	client := authbridge.NewClient(app, provider)
	ctx := context.Background()

	require.NoError(t, client.SendPasswordResetEmail(ctx, "a@b.com"))
	require.NoError(t, client.ConfirmPasswordReset(ctx, "code-1", "newpw"))
	require.NoError(t, client.ApplyActionCode(ctx, "code-2"))

	info, err := client.CheckActionCode(ctx, "code-3")
	require.NoError(t, err)
	assert.Equal(t, authbridge.ActionCodePasswordReset, info.Operation)

	email, err := client.VerifyPasswordResetCode(ctx, "code-1")
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", email)

	methods, err := client.FetchSignInMethodsForEmail(ctx, "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, []string{authbridge.ProviderIDPassword}, methods)

	assert.Nil(t, client.CurrentUser(), "pass-through operations never touch the session")
	provider.AssertExpectations(t)
}

func TestUnsupportedOperationsFailDeterministically(t *testing.T) {
	app := newTestApp(t)
	provider := &MockProvider{}
	client := authbridge.NewClient(app, provider)

	notified := 0
	client.OnUserChanged(func(*authbridge.Snapshot) { notified++ })

	ctx := context.Background()
	assert.ErrorIs(t, client.SignInWithRedirect(ctx, "github.com"), authbridge.ErrUnsupportedOperation)
	assert.ErrorIs(t, client.SetPersistence("local"), authbridge.ErrUnsupportedOperation)
	assert.ErrorIs(t, client.UseDeviceLanguage(), authbridge.ErrUnsupportedOperation)

	_, err := client.GetRedirectResult(ctx)
	assert.ErrorIs(t, err, authbridge.ErrUnsupportedOperation)
	_, err = client.SignInWithPopup(ctx, "github.com")
	assert.ErrorIs(t, err, authbridge.ErrUnsupportedOperation)

	assert.Nil(t, client.CurrentUser())
	assert.Equal(t, 0, notified, "unsupported operations publish nothing")
	assert.False(t, app.Holder().Resolved())
}
