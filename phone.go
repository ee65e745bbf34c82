package authbridge

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nyaruka/phonenumbers"
)

// VerificationPhase is one step of a phone verification flow.
type VerificationPhase string

const (
	PhaseStarted              VerificationPhase = "started"
	PhaseCodeSent             VerificationPhase = "codeSent"
	PhaseAutoRetrievalTimeout VerificationPhase = "autoVerifyTimeout"
	PhaseAutoVerified         VerificationPhase = "autoVerified"
	PhaseError                VerificationPhase = "error"
)

// Terminal reports whether the phase ends a verification flow.
func (p VerificationPhase) Terminal() bool {
	return p == PhaseAutoVerified || p == PhaseError
}

// PhoneEvent is one phase notification for one verification request as
// delivered by the external channel. State carries the provider's opaque
// per-phase payload; Err is set only for PhaseError.
type PhoneEvent struct {
	RequestKey string
	Phase      VerificationPhase
	State      map[string]any
	Err        error
}

// PhoneListener observes demultiplexed phase events for one verification.
type PhoneListener func(PhoneEvent)

const defaultAutoRetrievalTimeout = 30 * time.Second

// VerificationOption customizes a verification request.
type VerificationOption func(*Verification)

// WithAutoRetrievalTimeout overrides how long the provider waits for
// auto-retrieval before delivering an autoVerifyTimeout phase.
func WithAutoRetrievalTimeout(d time.Duration) VerificationOption {
	return func(v *Verification) {
		if d > 0 {
			v.timeout = d
		}
	}
}

// Verification coordinates one in-flight phone-number verification. It
// demultiplexes the provider's shared phone-phase channel into per-request
// listeners and enforces the phase machine:
//
//	Started → CodeSent? → { AutoVerified | AutoRetrievalTimeout | Errored }
//
// CodeSent and AutoRetrievalTimeout are optional and fire at most once each;
// exactly one terminal phase (AutoVerified or Errored) is delivered, and it
// is the last event for the request. A timeout keeps the request open: a
// terminal phase can still arrive afterwards, or the caller can build a
// PhoneCredential manually from a user-entered code.
//
// Phase listeners never replay: verification phases are not idempotent state,
// so a listener registered after codeSent fired does not see it.
type Verification struct {
	app     *App
	number  string
	timeout time.Duration
	logger  Logger

	// scope is the private per-request topic namespace. It is derived
	// locally instead of from the provider request key so listeners can
	// register during the window before the provider acknowledges.
	scope string

	acked chan struct{}

	mu         sync.Mutex
	requestKey string
	phase      VerificationPhase
	done       bool
	delivered  map[VerificationPhase]bool
	startErr   error
	pendingErr *PhoneEvent
	early      []PhoneEvent
	unsubs     []Unsubscribe
}

func newVerification(app *App, number string, logger Logger) *Verification {
	if logger == nil {
		logger = defLogger{}
	}
	return &Verification{
		app:       app,
		number:    number,
		timeout:   defaultAutoRetrievalTimeout,
		logger:    logger,
		scope:     uuid.NewString(),
		acked:     make(chan struct{}),
		phase:     PhaseStarted,
		delivered: map[VerificationPhase]bool{},
	}
}

// PhoneNumber returns the number this verification was started for.
func (v *Verification) PhoneNumber() string {
	return v.number
}

// RequestKey returns the provider-issued request key, or "" while the
// provider has not acknowledged the start yet.
func (v *Verification) RequestKey() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.requestKey
}

// Phase returns the most recently entered phase.
func (v *Verification) Phase() VerificationPhase {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.phase
}

// Await blocks until the provider acknowledged the verification start and
// returns the request key, or the start failure. The failure is also
// delivered through OnError; Await only exists so callers can sequence work
// after the key is assigned.
func (v *Verification) Await(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-v.acked:
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.startErr != nil {
		return "", v.startErr
	}
	if v.requestKey == "" {
		return "", ErrVerificationCanceled
	}
	return v.requestKey, nil
}

// OnCodeSent registers a listener for the codeSent phase.
func (v *Verification) OnCodeSent(fn PhoneListener) Unsubscribe {
	return v.listen(PhaseCodeSent, fn)
}

// OnAutoRetrievalTimeout registers a listener for the autoVerifyTimeout phase.
func (v *Verification) OnAutoRetrievalTimeout(fn PhoneListener) Unsubscribe {
	return v.listen(PhaseAutoRetrievalTimeout, fn)
}

// OnVerified registers a listener for the autoVerified terminal phase.
func (v *Verification) OnVerified(fn PhoneListener) Unsubscribe {
	return v.listen(PhaseAutoVerified, fn)
}

// OnError registers a listener for the error terminal phase. If the
// initiating provider call already failed with nobody listening, the latched
// failure is delivered to this listener immediately; the flow is a stream of
// phases, so even start failures surface here rather than as a rejected call.
func (v *Verification) OnError(fn PhoneListener) Unsubscribe {
	if fn == nil {
		return func() {}
	}

	v.mu.Lock()
	if ev := v.pendingErr; ev != nil {
		v.pendingErr = nil
		v.mu.Unlock()
		fn(*ev)
		return func() {}
	}
	unsubscribe := v.subscribeLocked(PhaseError, fn)
	v.mu.Unlock()
	return unsubscribe
}

// Cancel tears down this verification's subscriptions. It does not cancel
// the underlying provider request; events that still arrive for its request
// key are dropped. Idempotent.
func (v *Verification) Cancel() {
	v.mu.Lock()
	if v.done {
		v.mu.Unlock()
		return
	}
	v.done = true
	v.mu.Unlock()

	v.teardown()
}

func (v *Verification) listen(phase VerificationPhase, fn PhoneListener) Unsubscribe {
	if fn == nil {
		return func() {}
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.subscribeLocked(phase, fn)
}

func (v *Verification) subscribeLocked(phase VerificationPhase, fn PhoneListener) Unsubscribe {
	unsubscribe := v.app.phones.Subscribe(phoneTopic(v.scope, phase), fn)
	v.unsubs = append(v.unsubs, unsubscribe)
	return unsubscribe
}

// start runs on its own goroutine: normalize the number, install the
// demultiplexer, then ask the provider to begin verification. The demux goes
// in before the provider call so a provider that pushes phases synchronously
// from inside VerifyPhoneNumber is still heard; those events are held in
// early until the request key binds.
func (v *Verification) start(ctx context.Context, provider ProviderClient) {
	number, err := normalizePhoneNumber(v.number)
	if err != nil {
		v.failStart(err)
		return
	}

	v.mu.Lock()
	if v.done {
		v.mu.Unlock()
		close(v.acked)
		return
	}
	demux := v.app.phones.Subscribe(Topic{Kind: TopicProviderPhonePhase}, v.route)
	v.unsubs = append(v.unsubs, demux)
	v.mu.Unlock()

	key, err := provider.VerifyPhoneNumber(ctx, number, v.timeout)
	if err != nil {
		v.failStart(newVerificationStartError(err, number))
		return
	}

	v.bind(key)
}

func (v *Verification) bind(key string) {
	v.mu.Lock()
	if v.done {
		// canceled while the provider call was in flight
		v.mu.Unlock()
		close(v.acked)
		return
	}
	v.requestKey = key
	early := v.early
	v.early = nil
	v.mu.Unlock()

	// replay events the demux saw before the key was known; route drops
	// the ones tagged for other requests
	for _, event := range early {
		v.route(event)
	}

	close(v.acked)
}

func (v *Verification) failStart(err error) {
	event := PhoneEvent{Phase: PhaseError, Err: err}
	topic := phoneTopic(v.scope, PhaseError)

	v.mu.Lock()
	if v.done {
		v.mu.Unlock()
		close(v.acked)
		return
	}
	v.done = true
	v.phase = PhaseError
	v.startErr = err
	deliverNow := v.app.phones.ListenerCount(topic) > 0
	if !deliverNow {
		// nobody listening yet; latch for the first OnError registration
		v.pendingErr = &event
	}
	v.mu.Unlock()

	v.logger.Error("phone verification start failed for %s: %v", v.number, err)
	if deliverNow {
		v.app.phones.Publish(topic, event)
	}
	v.teardown()
	close(v.acked)
}

// route is the demultiplexer: it receives every phase for every in-flight
// request on the shared channel and republishes the ones tagged with this
// verification's request key onto its private per-phase topics.
func (v *Verification) route(event PhoneEvent) {
	v.mu.Lock()
	if v.done {
		v.mu.Unlock()
		return
	}
	if v.requestKey == "" {
		// provider has not acknowledged yet; hold until bind assigns the key
		v.early = append(v.early, event)
		v.mu.Unlock()
		return
	}
	if event.RequestKey != v.requestKey {
		v.mu.Unlock()
		return
	}

	switch event.Phase {
	case PhaseCodeSent, PhaseAutoRetrievalTimeout:
		if v.delivered[event.Phase] {
			v.mu.Unlock()
			return
		}
		v.delivered[event.Phase] = true
	case PhaseAutoVerified, PhaseError:
		v.done = true
	default:
		v.mu.Unlock()
		v.logger.Warn("dropping unknown phone verification phase %q for %s", event.Phase, event.RequestKey)
		return
	}
	v.phase = event.Phase
	terminal := v.done
	v.mu.Unlock()

	v.app.phones.Publish(phoneTopic(v.scope, event.Phase), event)

	if terminal {
		v.teardown()
	}
}

func (v *Verification) teardown() {
	v.mu.Lock()
	unsubs := v.unsubs
	v.unsubs = nil
	v.mu.Unlock()

	for _, unsubscribe := range unsubs {
		unsubscribe()
	}
}

func normalizePhoneNumber(number string) (string, error) {
	parsed, err := phonenumbers.Parse(number, "")
	if err != nil {
		return "", ErrInvalidPhoneNumber.WithMetadata(map[string]any{
			"phone_number": number,
		})
	}
	if !phonenumbers.IsPossibleNumber(parsed) {
		return "", ErrInvalidPhoneNumber.WithMetadata(map[string]any{
			"phone_number": number,
		})
	}
	return phonenumbers.Format(parsed, phonenumbers.E164), nil
}
