package cli

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/dailybread/internal/client/authstate"
	"github.com/dmitrijs2005/dailybread/internal/client/client"
	"github.com/dmitrijs2005/dailybread/internal/client/models"
	"github.com/dmitrijs2005/dailybread/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// describe turns an authority error into something a user can act on.
func describe(err error) string {
	switch {
	case errors.Is(err, client.ErrUnauthorized), errors.Is(err, client.ErrBadRequest):
		return "invalid email or password"
	case errors.Is(err, client.ErrUnavailable):
		return "the server is unavailable, try again later"
	case errors.Is(err, authstate.ErrNotSignedIn), errors.Is(err, client.ErrNoSession):
		return "you are not signed in"
	default:
		return err.Error()
	}
}

type signInFunc func(ctx context.Context, email, password string) (models.Snapshot, error)

func (a *App) credentials(ctx context.Context, do signInFunc) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	snap, err := do(ctx, email, string(password))
	if err != nil {
		printlnFn("Unsuccessful:", describe(err))
		return err
	}

	printlnFn("Signed in as", snap.User.Email)
	announce(snap.Route())
	return nil
}

// Register prompts for an email and password and creates an account. The new
// user is signed in right away.
func (a *App) Register(ctx context.Context) error {
	return a.credentials(ctx, a.authService.SignUp)
}

// Login prompts for credentials and signs in. It returns once the onboarding
// record of the user has been checked.
func (a *App) Login(ctx context.Context) error {
	if a.isLoggedIn() {
		printlnFn("Already signed in; use 'logout' first.")
		return nil
	}
	return a.credentials(ctx, a.authService.SignIn)
}

// Logout ends the session. Local onboarding data is erased by the time it
// returns.
func (a *App) Logout(ctx context.Context) error {
	if err := a.authService.SignOut(ctx); err != nil {
		printlnFn("Logout failed:", describe(err))
		return err
	}
	printlnFn("Signed out.")
	return nil
}
