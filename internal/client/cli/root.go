package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/dailybread/internal/client/models"
)

func (a *App) getStatus() string {
	snap := a.authService.Snapshot()
	if snap.User == nil {
		return fmt.Sprintf("(%s)", snap.Route())
	}
	return fmt.Sprintf("(%s %s)", snap.User.Email, snap.Route())
}

// announce tells the user which screen the app would show now.
func announce(r models.Route) {
	switch r {
	case models.RouteSignIn:
		printlnFn("You are signed out. Use 'login' or 'register'.")
	case models.RouteOnboarding:
		printlnFn("Welcome! Run 'onboard' to tell us about yourself.")
	case models.RouteHome:
		printlnFn("You're all set. Today's reading is waiting for you.")
	}
}

// routeWatcher reports route changes that happen outside a command, e.g.
// when the background refresher finds the session revoked.
func routeWatcher(initial models.Route) func(models.Snapshot) {
	last := initial
	return func(s models.Snapshot) {
		r := s.Route()
		if r == last || r == models.RouteLoading {
			return
		}
		last = r
		printlnFn()
		announce(r)
	}
}

func (a *App) Root(ctx context.Context) {
	printlnFn("Welcome to Daily Bread CLI (type 'help' for commands)")

	snap, err := a.authService.Ready(ctx)
	if err != nil {
		return
	}
	announce(snap.Route())

	unsubscribe := a.authService.Subscribe(routeWatcher(snap.Route()))
	defer unsubscribe()

	runREPL(ctx, a, a.getStatus, a.reader)
}
