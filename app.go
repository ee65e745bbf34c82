package authbridge

// App is the application-identity context. It owns the dispatchers and the
// session holder for one tenant; every component publishes and subscribes
// through an injected App rather than ambient process state, so events and
// snapshots never leak across tenants.
type App struct {
	config Config
	logger Logger

	raws   *Dispatcher[Topic, *RawUser]
	users  *Dispatcher[Topic, *Snapshot]
	phones *Dispatcher[Topic, PhoneEvent]

	holder *SessionHolder
	state  *StateSynchronizer
}

// AppOption customizes App construction.
type AppOption func(*App)

// WithAppLogger overrides the App's logger.
func WithAppLogger(logger Logger) AppOption {
	return func(a *App) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// NewApp validates the config and builds an isolated bridge context.
func NewApp(config Config, opts ...AppOption) (*App, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	app := &App{
		config: config,
		logger: defLogger{},
		raws:   NewDispatcher[Topic, *RawUser](),
		users:  NewDispatcher[Topic, *Snapshot](),
		phones: NewDispatcher[Topic, PhoneEvent](),
		holder: NewSessionHolder(),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(app)
		}
	}

	app.state = newStateSynchronizer(app.holder, app.raws, app.users, app.logger)

	app.logger.Debug("bridge app initialized for %s", config.identity())
	return app, nil
}

// Config returns the identity this App was built for.
func (a *App) Config() Config {
	return a.config
}

// Holder exposes the session state holder owned by this App.
func (a *App) Holder() *SessionHolder {
	return a.holder
}

// Synchronizer exposes the auth state synchronizer owned by this App.
func (a *App) Synchronizer() *StateSynchronizer {
	return a.state
}

// ExternalEvents returns the receiver the native/external layer pushes
// notifications into. The bridge never polls; everything it learns about the
// session arrives here or through a direct operation's result.
func (a *App) ExternalEvents() *ExternalReceiver {
	return &ExternalReceiver{app: a}
}

func (a *App) publishUserChanged(snap *Snapshot) {
	a.users.Publish(Topic{Kind: TopicUserChanged}, snap)
}

// ExternalReceiver is the inbound edge of the native notification channel.
type ExternalReceiver struct {
	app *App
}

// StateChanged delivers a full-state-changed notification. A nil user means
// the provider reports no session.
func (r *ExternalReceiver) StateChanged(user *RawUser) {
	r.app.raws.Publish(Topic{Kind: TopicProviderAuthState}, user)
}

// IDTokenChanged delivers an id-token-changed notification.
func (r *ExternalReceiver) IDTokenChanged(user *RawUser) {
	r.app.raws.Publish(Topic{Kind: TopicProviderIDToken}, user)
}

// PhoneEvent delivers one phase of an in-flight phone verification on the
// shared channel. Verifications demultiplex it by request key.
func (r *ExternalReceiver) PhoneEvent(event PhoneEvent) {
	r.app.phones.Publish(Topic{Kind: TopicProviderPhonePhase}, event)
}
