package models

// EventKind tags an authentication lifecycle event.
type EventKind string

const (
	// EventInitialSession is sent to each new subscriber with the session
	// known at subscription time. The engine treats it as a no-op because
	// it resolves the startup session explicitly.
	EventInitialSession EventKind = "INITIAL_SESSION"
	EventSignedIn       EventKind = "SIGNED_IN"
	EventSignedOut      EventKind = "SIGNED_OUT"
	EventTokenRefreshed EventKind = "TOKEN_REFRESHED"
)

// AuthEvent is one lifecycle notification. Session is nil for SIGNED_OUT.
type AuthEvent struct {
	Kind    EventKind
	Session *Session
}
