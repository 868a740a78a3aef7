package cli

import (
	"context"
	"strings"
)

// Status prints the current snapshot.
func (a *App) Status(context.Context) error {
	snap := a.authService.Snapshot()

	printlnFn("state:    ", snap.State)
	printlnFn("route:    ", snap.Route())
	if snap.User == nil {
		return nil
	}
	printlnFn("user:     ", snap.User.Email)
	printlnFn("onboarded:", snap.IsOnboarded)
	if p := snap.Preferences; p != nil {
		printlnFn("version:  ", p.PreferredVersion)
		printlnFn("category: ", p.Category)
		printlnFn("age group:", p.AgeGroup)
		printlnFn("interests:", strings.Join(p.Interests, ", "))
		printlnFn("stage:    ", p.LifeStage)
	}
	return nil
}

// Refresh re-checks the onboarding record with the authority.
func (a *App) Refresh(ctx context.Context) error {
	if err := a.authService.Refresh(ctx); err != nil {
		printlnFn("Refresh failed:", describe(err))
		return err
	}
	return a.Status(ctx)
}

// WhoAmI asks the authority which user the current token belongs to.
func (a *App) WhoAmI(ctx context.Context) error {
	u, err := a.authService.WhoAmI(ctx)
	if err != nil {
		printlnFn("whoami failed:", describe(err))
		return err
	}
	printlnFn(u.ID, u.Email)
	return nil
}
