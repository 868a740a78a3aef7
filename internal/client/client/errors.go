package client

import "errors"

var (
	// ErrUnavailable means the authority could not be reached or failed
	// server-side. Callers keep their prior state.
	ErrUnavailable = errors.New("authority unavailable")
	// ErrUnauthorized means the authority rejected the credentials or token.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound means the requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrBadRequest means the authority rejected the request payload.
	ErrBadRequest = errors.New("bad request")
	// ErrOnboardingWrite wraps any failure of CompleteOnboarding.
	ErrOnboardingWrite = errors.New("onboarding write failed")
	// ErrNoSession is returned by calls that need a signed-in user.
	ErrNoSession = errors.New("no active session")
)
