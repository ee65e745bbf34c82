package authbridge

import "sync"

// Unsubscribe removes the listener it was returned for. It is idempotent:
// calling it more than once, or after the listener is already gone, does
// nothing.
type Unsubscribe func()

// TopicKind discriminates the event channels that flow through an App.
type TopicKind int

const (
	TopicUnknown TopicKind = iota

	// Raw notifications pushed by the external/native layer.
	TopicProviderAuthState
	TopicProviderIDToken
	TopicProviderPhonePhase

	// Derived topics republished by the state synchronizer.
	TopicAuthStateChanged
	TopicIDTokenChanged
	TopicUserChanged

	// Per-request phone phases after demultiplexing.
	TopicPhonePhase
)

// Topic is a structured dispatcher key. Scope and Phase are only set for
// demultiplexed phone topics; using a struct key instead of a concatenated
// string rules out collisions between request keys.
type Topic struct {
	Kind  TopicKind
	Scope string
	Phase VerificationPhase
}

func phoneTopic(scope string, phase VerificationPhase) Topic {
	return Topic{Kind: TopicPhonePhase, Scope: scope, Phase: phase}
}

// Dispatcher is an in-process publish/subscribe registry. Listeners on a
// topic fire synchronously in subscription order; Publish returns only after
// every listener has run. Publishing to a topic with no listeners is a no-op
// and topics need no prior registration.
//
// No reentrant ordering guarantees are made when a listener publishes.
type Dispatcher[K comparable, T any] struct {
	mu   sync.Mutex
	next uint64
	subs map[K][]*subscriber[T]
}

type subscriber[T any] struct {
	id uint64
	fn func(T)
}

func NewDispatcher[K comparable, T any]() *Dispatcher[K, T] {
	return &Dispatcher[K, T]{
		subs: map[K][]*subscriber[T]{},
	}
}

// Subscribe registers fn on topic and returns its Unsubscribe handle.
func (d *Dispatcher[K, T]) Subscribe(topic K, fn func(T)) Unsubscribe {
	if fn == nil {
		return func() {}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.next++
	sub := &subscriber[T]{id: d.next, fn: fn}
	d.subs[topic] = append(d.subs[topic], sub)

	removed := false
	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if removed {
			return
		}
		removed = true
		d.remove(topic, sub.id)
	}
}

// Publish delivers payload to every listener on topic, in subscription order.
func (d *Dispatcher[K, T]) Publish(topic K, payload T) {
	d.mu.Lock()
	listeners := make([]*subscriber[T], len(d.subs[topic]))
	copy(listeners, d.subs[topic])
	d.mu.Unlock()

	for _, sub := range listeners {
		sub.fn(payload)
	}
}

// ListenerCount reports the number of listeners currently on topic.
func (d *Dispatcher[K, T]) ListenerCount(topic K) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.subs[topic])
}

func (d *Dispatcher[K, T]) remove(topic K, id uint64) {
	listeners := d.subs[topic]
	for i, sub := range listeners {
		if sub.id != id {
			continue
		}
		d.subs[topic] = append(listeners[:i], listeners[i+1:]...)
		if len(d.subs[topic]) == 0 {
			delete(d.subs, topic)
		}
		return
	}
}
