// Package services contains the application services of the dailybread
// client. AuthService is the surface views read authentication and
// onboarding state from.
package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/dailybread/internal/client/authstate"
	"github.com/dmitrijs2005/dailybread/internal/client/cache"
	"github.com/dmitrijs2005/dailybread/internal/client/client"
	"github.com/dmitrijs2005/dailybread/internal/client/models"
)

// Authority is the remote authority as used by the service layer.
type Authority interface {
	client.Authority
	GetUser(ctx context.Context) (*models.User, error)
}

// AuthService exposes the session snapshot and its mutation entry points.
//
// Contract:
//   - Start: begin resolving the startup session; Snapshot is LOADING until then.
//   - Ready: wait until the startup session has been resolved.
//   - Snapshot / Subscribe: read the current state or observe every change.
//   - Refresh: re-check the onboarding record of the signed-in user.
//   - SignIn / SignUp: authenticate and wait for the onboarding check to settle.
//   - SignOut: end the session at the authority. State is cleared by the
//     resulting SIGNED_OUT event; the call returns once that has happened
//     and the cache has been erased.
//   - CompleteOnboarding: persist the questionnaire answers; errors wrap
//     client.ErrOnboardingWrite.
//   - WhoAmI: ask the authority which user the current token belongs to.
//   - Close: stop the engine and flush pending cache writes.
type AuthService interface {
	Start(ctx context.Context) error
	Ready(ctx context.Context) (models.Snapshot, error)
	Snapshot() models.Snapshot
	Subscribe(fn func(models.Snapshot)) (unsubscribe func())
	Refresh(ctx context.Context) error
	SignIn(ctx context.Context, email, password string) (models.Snapshot, error)
	SignUp(ctx context.Context, email, password string) (models.Snapshot, error)
	SignOut(ctx context.Context) error
	CompleteOnboarding(ctx context.Context, prefs models.UserPreferences) error
	WhoAmI(ctx context.Context) (*models.User, error)
	Close()
}

type authService struct {
	auth   Authority
	engine *authstate.Engine
	writer *cache.Writer
}

// NewAuthService binds the engine to the authority it reconciles against.
// The service takes ownership of engine and writer.
func NewAuthService(auth Authority, engine *authstate.Engine, writer *cache.Writer) AuthService {
	return &authService{auth: auth, engine: engine, writer: writer}
}

func (a *authService) Start(ctx context.Context) error {
	return a.engine.Start(ctx)
}

func (a *authService) Ready(ctx context.Context) (models.Snapshot, error) {
	return a.engine.Wait(ctx, func(s models.Snapshot) bool { return !s.Loading })
}

func (a *authService) Snapshot() models.Snapshot {
	return a.engine.Snapshot()
}

func (a *authService) Subscribe(fn func(models.Snapshot)) func() {
	return a.engine.Subscribe(fn)
}

func (a *authService) Refresh(ctx context.Context) error {
	return a.engine.Refresh(ctx)
}

// settledFor waits until the snapshot shows userID past the onboarding check.
func (a *authService) settledFor(ctx context.Context, userID string) (models.Snapshot, error) {
	return a.engine.Wait(ctx, func(s models.Snapshot) bool {
		return s.User != nil && s.User.ID == userID &&
			!s.Loading && s.State != models.StatePendingOnboardingCheck
	})
}

func (a *authService) SignIn(ctx context.Context, email, password string) (models.Snapshot, error) {
	s, err := a.auth.SignInWithPassword(ctx, email, password)
	if err != nil {
		return a.Snapshot(), fmt.Errorf("sign in: %w", err)
	}
	return a.settledFor(ctx, s.UserID())
}

func (a *authService) SignUp(ctx context.Context, email, password string) (models.Snapshot, error) {
	s, err := a.auth.SignUp(ctx, email, password)
	if err != nil {
		return a.Snapshot(), fmt.Errorf("sign up: %w", err)
	}
	return a.settledFor(ctx, s.UserID())
}

func (a *authService) SignOut(ctx context.Context) error {
	if err := a.auth.SignOut(ctx); err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	return a.engine.Settle(ctx)
}

func (a *authService) CompleteOnboarding(ctx context.Context, prefs models.UserPreferences) error {
	return a.engine.CompleteOnboarding(ctx, prefs)
}

func (a *authService) WhoAmI(ctx context.Context) (*models.User, error) {
	return a.auth.GetUser(ctx)
}

func (a *authService) Close() {
	a.engine.Close()
	a.writer.Close()
}
