package models

// State is the engine's position in the authentication state machine.
type State string

const (
	StateLoading                State = "LOADING"
	StateUnauthenticated        State = "UNAUTHENTICATED"
	StatePendingOnboardingCheck State = "AUTHENTICATED_PENDING_ONBOARDING_CHECK"
	StateOnboarded              State = "AUTHENTICATED_ONBOARDED"
	StateNotOnboarded           State = "AUTHENTICATED_NOT_ONBOARDED"
)

// Route is the top-level navigation decision derived from a snapshot.
type Route string

const (
	RouteLoading    Route = "loading"
	RouteSignIn     Route = "sign-in"
	RouteOnboarding Route = "onboarding"
	RouteHome       Route = "home"
)

// Snapshot is the consistent view exposed to consumers. While Loading is
// true the other fields are indeterminate and must not drive routing.
// Snapshots are immutable once published; a change produces a new value.
type Snapshot struct {
	User        *User
	Session     *Session
	Loading     bool
	IsOnboarded bool
	Preferences *UserPreferences
	State       State
}

// InitialSnapshot is what consumers see before startup resolves.
func InitialSnapshot() Snapshot {
	return Snapshot{Loading: true, State: StateLoading}
}

// Route maps the snapshot to a screen the way the app's index route does.
func (s Snapshot) Route() Route {
	switch {
	case s.Loading:
		return RouteLoading
	case s.User == nil:
		return RouteSignIn
	case !s.IsOnboarded:
		return RouteOnboarding
	default:
		return RouteHome
	}
}
