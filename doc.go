// Package authbridge exposes a listener-based authentication façade over an
// external identity provider, keeping a single observable session snapshot in
// sync with asynchronous, externally delivered notifications.
//
// Applications and tenants:
//   - Every bridge instance hangs off an App, created from a validated Config.
//     The App owns the event dispatchers and the session holder, so multiple
//     tenants never share listeners or snapshots. Nothing in this package is
//     process-global.
//
// Session state:
//   - The current user is a Snapshot: an immutable value replaced wholesale on
//     every authoritative update. OnAuthStateChanged, OnIDTokenChanged, and
//     OnUserChanged register listeners that observe replacements; once the
//     first authoritative result has arrived, a newly registered listener is
//     invoked immediately with the present snapshot so late subscribers never
//     wait for an event that may not come.
//
// Phone verification:
//   - Client.VerifyPhoneNumber returns a Verification handle that demultiplexes
//     the provider's shared phone-phase channel into per-request listeners
//     (OnCodeSent, OnAutoRetrievalTimeout, OnVerified, OnError). Each request
//     ends in exactly one terminal phase, after which its subscriptions are
//     torn down.
//
// Provider boundary:
//   - Network transport, credential persistence, and token refresh live behind
//     the ProviderClient interface. provider/local ships an in-process emulator
//     backed by sqlite for development and tests; provider/auth0 adapts the
//     Auth0 Authentication API.
package authbridge
