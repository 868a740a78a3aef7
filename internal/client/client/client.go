package client

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/dailybread/internal/client/models"
)

// Authority is the remote system of record for identity and onboarding.
//
// Lifecycle events are delivered to subscribers in emission order and never
// twice. Each new subscriber first receives INITIAL_SESSION with the session
// known at that moment. Handlers run on the emitting goroutine and must not
// call back into the Authority synchronously.
type Authority interface {
	// GetSession returns the current session or nil when signed out. It only
	// fails for transport problems.
	GetSession(ctx context.Context) (*models.Session, error)

	// FetchOnboarding returns the user's onboarding record. A missing record is
	// the zero OnboardingStatus, not an error.
	FetchOnboarding(ctx context.Context, userID string) (models.OnboardingStatus, error)

	// CompleteOnboarding stores prefs and marks the user onboarded atomically.
	// Failures wrap ErrOnboardingWrite.
	CompleteOnboarding(ctx context.Context, userID string, prefs models.UserPreferences) error

	SignInWithPassword(ctx context.Context, email, password string) (*models.Session, error)
	SignUp(ctx context.Context, email, password string) (*models.Session, error)
	SignOut(ctx context.Context) error

	Subscribe(handler func(models.AuthEvent)) *Subscription
}

// Subscription is the handle returned by Subscribe.
type Subscription struct {
	once   sync.Once
	cancel func()
}

func NewSubscription(cancel func()) *Subscription {
	return &Subscription{cancel: cancel}
}

// Unsubscribe stops delivery. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	if s == nil {
		return
	}
	s.once.Do(s.cancel)
}
