// Package local is an in-process identity provider emulator for development
// and tests. It implements authbridge.ProviderClient against an in-memory
// sqlite user table, mints HS256 ID tokens, and drives the app's external
// notification channel the way a native provider layer would.
//
// Notifications are queued and only delivered when Flush is called, so tests
// control exactly when the "native" layer speaks.
package local
