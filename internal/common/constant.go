// Package common contains shared constants and sentinel errors used across
// the dailybread client and the development authority server.
package common

// Header names understood by the authority.
const (
	APIKeyHeaderName        = "apikey"
	AuthorizationHeaderName = "Authorization"
	BearerPrefix            = "Bearer "
	RequestIDHeaderName     = "X-Request-Id"
)

// Local cache keys. The values stored under them are hints, never authoritative.
const (
	CacheKeyOnboarded   = "user_onboarded"
	CacheKeyPreferences = "user_preferences"
)

// OnboardingCacheKeys lists every key erased on sign-out.
var OnboardingCacheKeys = []string{CacheKeyOnboarded, CacheKeyPreferences}

// SessionStoreKey is where the authority client persists its session.
const SessionStoreKey = "auth_session"
