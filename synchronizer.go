package authbridge

// SnapshotListener observes session snapshot replacements. A nil snapshot
// means no user is signed in.
type SnapshotListener func(*Snapshot)

// StateSynchronizer multiplexes the two external state-notification channels
// into the session holder and republishes three derived topics:
//
//   - full-state-changed  → auth-state-changed (+ user-changed)
//   - id-token-changed    → id-token-changed   (+ user-changed)
//
// user-changed is the single convergence point for "the session changed for
// any reason"; direct sign-in operations publish it too. No ordering is
// guaranteed between auth-state-changed and id-token-changed, they are
// independent channels.
type StateSynchronizer struct {
	holder *SessionHolder
	users  *Dispatcher[Topic, *Snapshot]
	logger Logger
}

func newStateSynchronizer(
	holder *SessionHolder,
	raws *Dispatcher[Topic, *RawUser],
	users *Dispatcher[Topic, *Snapshot],
	logger Logger,
) *StateSynchronizer {
	if logger == nil {
		logger = defLogger{}
	}

	s := &StateSynchronizer{
		holder: holder,
		users:  users,
		logger: logger,
	}

	raws.Subscribe(Topic{Kind: TopicProviderAuthState}, func(raw *RawUser) {
		s.apply(TopicAuthStateChanged, raw)
	})
	raws.Subscribe(Topic{Kind: TopicProviderIDToken}, func(raw *RawUser) {
		s.apply(TopicIDTokenChanged, raw)
	})

	return s
}

func (s *StateSynchronizer) apply(kind TopicKind, raw *RawUser) {
	snap := s.holder.Set(raw)
	s.logger.Debug("session snapshot replaced via %v signed_in=%v", kind, snap != nil)
	s.users.Publish(Topic{Kind: kind}, snap)
	s.users.Publish(Topic{Kind: TopicUserChanged}, snap)
}

// OnAuthStateChanged registers a listener for full auth-state replacements.
// If an authoritative result already arrived, the listener fires once,
// synchronously, with the present snapshot before any further event.
func (s *StateSynchronizer) OnAuthStateChanged(fn SnapshotListener) Unsubscribe {
	return s.listen(TopicAuthStateChanged, fn)
}

// OnIDTokenChanged registers a listener for ID-token replacements. Same
// late-subscriber behavior as OnAuthStateChanged.
func (s *StateSynchronizer) OnIDTokenChanged(fn SnapshotListener) Unsubscribe {
	return s.listen(TopicIDTokenChanged, fn)
}

// OnUserChanged registers a listener on the convergence topic, firing for
// both external notifications and direct operations. Same late-subscriber
// behavior as OnAuthStateChanged.
func (s *StateSynchronizer) OnUserChanged(fn SnapshotListener) Unsubscribe {
	return s.listen(TopicUserChanged, fn)
}

func (s *StateSynchronizer) listen(kind TopicKind, fn SnapshotListener) Unsubscribe {
	if fn == nil {
		return func() {}
	}

	unsubscribe := s.users.Subscribe(Topic{Kind: kind}, func(snap *Snapshot) {
		fn(snap)
	})

	// Late-subscriber guarantee: a listener registered after the first
	// authoritative result observes the present snapshot immediately instead
	// of waiting for the next external event, which may never come.
	if s.holder.Resolved() {
		fn(s.holder.Current())
	}

	return unsubscribe
}
