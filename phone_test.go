package authbridge_test

import (
	"context"
	"errors"
	"testing"
	"time"

	authbridge "github.com/goliatone/go-authbridge"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func startVerification(t *testing.T, app *authbridge.App, provider *MockProvider, number, key string) *authbridge.Verification {
	t.Helper()

	provider.On("VerifyPhoneNumber", mock.Anything, mock.Anything, mock.Anything).
		Return(key, nil).Once()

	client := authbridge.NewClient(app, provider)
	v := client.VerifyPhoneNumber(context.Background(), number)

	got, err := v.Await(context.Background())
	require.NoError(t, err)
	require.Equal(t, key, got)
	return v
}

func TestVerificationDeliversCodeSentToMatchingRequestOnly(t *testing.T) {
	app := newTestApp(t)
	provider := &MockProvider{}

	v1 := startVerification(t, app, provider, "+15551234567", "rk1")
	v2 := startVerification(t, app, provider, "+15559876543", "rk2")

	var got []authbridge.PhoneEvent
	v1.OnCodeSent(func(ev authbridge.PhoneEvent) { got = append(got, ev) })
	v2.OnCodeSent(func(authbridge.PhoneEvent) { t.Fatal("rk2 listener must not see rk1 events") })
	v1.OnVerified(func(authbridge.PhoneEvent) { t.Fatal("codeSent must not reach the verified listener") })

	state := map[string]any{"verificationId": "rk1"}
	app.ExternalEvents().PhoneEvent(authbridge.PhoneEvent{
		RequestKey: "rk1",
		Phase:      authbridge.PhaseCodeSent,
		State:      state,
	})

	require.Len(t, got, 1)
	assert.Equal(t, "rk1", got[0].RequestKey)
	assert.Equal(t, state, got[0].State)
	assert.Equal(t, authbridge.PhaseCodeSent, v1.Phase())
}

func TestVerificationHoldsPhasesPushedDuringProviderCall(t *testing.T) {
	app := newTestApp(t)
	provider := &MockProvider{}

	// the provider pushes codeSent from inside VerifyPhoneNumber, before the
	// coordinator learns the request key; the gate keeps the push from racing
	// the listener registration below
	listenerReady := make(chan struct{})
	provider.On("VerifyPhoneNumber", mock.Anything, mock.Anything, mock.Anything).
		Run(func(mock.Arguments) {
			<-listenerReady
			app.ExternalEvents().PhoneEvent(authbridge.PhoneEvent{
				RequestKey: "rk1",
				Phase:      authbridge.PhaseCodeSent,
				State:      map[string]any{"verificationId": "rk1"},
			})
		}).
		Return("rk1", nil).Once()

	client := authbridge.NewClient(app, provider)
	v := client.VerifyPhoneNumber(context.Background(), "+15551234567")

	var got []authbridge.PhoneEvent
	v.OnCodeSent(func(ev authbridge.PhoneEvent) { got = append(got, ev) })
	close(listenerReady)

	key, err := v.Await(context.Background())
	require.NoError(t, err)
	require.Equal(t, "rk1", key)

	require.Len(t, got, 1, "codeSent pushed before the key binds is held and delivered")
	assert.Equal(t, "rk1", got[0].RequestKey)
	assert.Equal(t, authbridge.PhaseCodeSent, v.Phase())

	// the held delivery still counts toward at-most-once
	app.ExternalEvents().PhoneEvent(authbridge.PhoneEvent{RequestKey: "rk1", Phase: authbridge.PhaseCodeSent})
	assert.Len(t, got, 1)
}

func TestVerificationCodeSentFiresAtMostOnce(t *testing.T) {
	app := newTestApp(t)
	provider := &MockProvider{}
	v := startVerification(t, app, provider, "+15551234567", "rk1")

	calls := 0
	v.OnCodeSent(func(authbridge.PhoneEvent) { calls++ })

	event := authbridge.PhoneEvent{RequestKey: "rk1", Phase: authbridge.PhaseCodeSent}
	app.ExternalEvents().PhoneEvent(event)
	app.ExternalEvents().PhoneEvent(event)

	assert.Equal(t, 1, calls)
}

func TestVerificationTerminalPhaseIsExactlyOnceAndLast(t *testing.T) {
	app := newTestApp(t)
	provider := &MockProvider{}
	v := startVerification(t, app, provider, "+15551234567", "rk1")

	var phases []authbridge.VerificationPhase
	v.OnCodeSent(func(ev authbridge.PhoneEvent) { phases = append(phases, ev.Phase) })
	v.OnVerified(func(ev authbridge.PhoneEvent) { phases = append(phases, ev.Phase) })
	v.OnError(func(ev authbridge.PhoneEvent) { phases = append(phases, ev.Phase) })

	external := app.ExternalEvents()
	external.PhoneEvent(authbridge.PhoneEvent{RequestKey: "rk1", Phase: authbridge.PhaseCodeSent})
	external.PhoneEvent(authbridge.PhoneEvent{RequestKey: "rk1", Phase: authbridge.PhaseAutoVerified})

	// after the terminal phase everything for rk1 is dropped
	external.PhoneEvent(authbridge.PhoneEvent{RequestKey: "rk1", Phase: authbridge.PhaseError, Err: errors.New("late")})
	external.PhoneEvent(authbridge.PhoneEvent{RequestKey: "rk1", Phase: authbridge.PhaseCodeSent})

	assert.Equal(t, []authbridge.VerificationPhase{
		authbridge.PhaseCodeSent,
		authbridge.PhaseAutoVerified,
	}, phases)
	assert.Equal(t, authbridge.PhaseAutoVerified, v.Phase())
}

func TestVerificationInstantAutoVerificationSkipsCodeSent(t *testing.T) {
	app := newTestApp(t)
	provider := &MockProvider{}
	v := startVerification(t, app, provider, "+15551234567", "rk1")

	verified := 0
	v.OnVerified(func(authbridge.PhoneEvent) { verified++ })

	app.ExternalEvents().PhoneEvent(authbridge.PhoneEvent{RequestKey: "rk1", Phase: authbridge.PhaseAutoVerified})

	assert.Equal(t, 1, verified, "codeSent is skippable, a terminal phase may arrive first")
}

func TestVerificationTimeoutKeepsRequestOpen(t *testing.T) {
	app := newTestApp(t)
	provider := &MockProvider{}
	v := startVerification(t, app, provider, "+15551234567", "rk1")

	var phases []authbridge.VerificationPhase
	v.OnAutoRetrievalTimeout(func(ev authbridge.PhoneEvent) { phases = append(phases, ev.Phase) })
	v.OnVerified(func(ev authbridge.PhoneEvent) { phases = append(phases, ev.Phase) })

	external := app.ExternalEvents()
	external.PhoneEvent(authbridge.PhoneEvent{RequestKey: "rk1", Phase: authbridge.PhaseAutoRetrievalTimeout})
	external.PhoneEvent(authbridge.PhoneEvent{RequestKey: "rk1", Phase: authbridge.PhaseAutoVerified})

	assert.Equal(t, []authbridge.VerificationPhase{
		authbridge.PhaseAutoRetrievalTimeout,
		authbridge.PhaseAutoVerified,
	}, phases)
}

func TestVerificationErrorPhaseIsTerminal(t *testing.T) {
	app := newTestApp(t)
	provider := &MockProvider{}
	v := startVerification(t, app, provider, "+15551234567", "rk1")

	var errs []error
	v.OnError(func(ev authbridge.PhoneEvent) { errs = append(errs, ev.Err) })
	v.OnVerified(func(authbridge.PhoneEvent) { t.Fatal("verified must not fire after error") })

	cause := errors.New("quota exceeded")
	external := app.ExternalEvents()
	external.PhoneEvent(authbridge.PhoneEvent{RequestKey: "rk1", Phase: authbridge.PhaseError, Err: cause})
	external.PhoneEvent(authbridge.PhoneEvent{RequestKey: "rk1", Phase: authbridge.PhaseAutoVerified})

	require.Len(t, errs, 1)
	assert.Equal(t, cause, errs[0])
}

func TestVerificationProviderStartFailureSurfacesThroughErrorListener(t *testing.T) {
	app := newTestApp(t)
	provider := &MockProvider{}
	provider.On("VerifyPhoneNumber", mock.Anything, mock.Anything, mock.Anything).
		Return("", errors.New("network down")).Once()

	client := authbridge.NewClient(app, provider)
	v := client.VerifyPhoneNumber(context.Background(), "+15551234567")

	_, err := v.Await(context.Background())
	require.Error(t, err)

	var got []authbridge.PhoneEvent
	v.OnError(func(ev authbridge.PhoneEvent) { got = append(got, ev) })

	require.Len(t, got, 1, "latched start failure delivered to the first error listener")
	assert.Equal(t, authbridge.PhaseError, got[0].Phase)
	assert.ErrorContains(t, got[0].Err, "failed to start phone verification")
	assert.Equal(t, authbridge.PhaseError, v.Phase())

	// the latch delivers exactly once
	v.OnError(func(authbridge.PhoneEvent) { t.Fatal("terminal error must not be delivered twice") })
}

func TestVerificationRejectsUnparsablePhoneNumber(t *testing.T) {
	app := newTestApp(t)
	provider := &MockProvider{}

	client := authbridge.NewClient(app, provider)
	v := client.VerifyPhoneNumber(context.Background(), "not-a-number")

	_, err := v.Await(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, authbridge.ErrInvalidPhoneNumber)

	delivered := false
	v.OnError(func(ev authbridge.PhoneEvent) {
		delivered = true
		assert.ErrorIs(t, ev.Err, authbridge.ErrInvalidPhoneNumber)
	})
	assert.True(t, delivered)
	provider.AssertNotCalled(t, "VerifyPhoneNumber", mock.Anything, mock.Anything, mock.Anything)
}

func TestVerificationNormalizesNumberBeforeProviderCall(t *testing.T) {
	app := newTestApp(t)
	provider := &MockProvider{}
	provider.On("VerifyPhoneNumber", mock.Anything, "+15551234567", 45*time.Second).
		Return("rk1", nil).Once()

	client := authbridge.NewClient(app, provider)
	v := client.VerifyPhoneNumber(
		context.Background(),
		"+1 555 123 4567",
		authbridge.WithAutoRetrievalTimeout(45*time.Second),
	)

	key, err := v.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "rk1", key)
	assert.Equal(t, "+1 555 123 4567", v.PhoneNumber())
	provider.AssertExpectations(t)
}

func TestVerificationCancelStopsDelivery(t *testing.T) {
	app := newTestApp(t)
	provider := &MockProvider{}
	v := startVerification(t, app, provider, "+15551234567", "rk1")

	v.OnCodeSent(func(authbridge.PhoneEvent) { t.Fatal("canceled verification must not deliver") })
	v.Cancel()
	v.Cancel()

	app.ExternalEvents().PhoneEvent(authbridge.PhoneEvent{RequestKey: "rk1", Phase: authbridge.PhaseCodeSent})
}
