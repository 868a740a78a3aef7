package cli

import (
	"context"

	"github.com/dmitrijs2005/dailybread/internal/client/models"
)

var getList = GetList

// askPreferences walks the user through the onboarding questionnaire.
func (a *App) askPreferences() (models.UserPreferences, error) {
	var p models.UserPreferences
	var err error

	if p.PreferredVersion, err = getSimpleText(a.reader, "Preferred Bible version (e.g. niv, esv, kjv)", a.out); err != nil {
		return p, err
	}
	if p.Category, err = getSimpleText(a.reader, "Denomination", a.out); err != nil {
		return p, err
	}
	if p.AgeGroup, err = getSimpleText(a.reader, "Age group (e.g. 18-24)", a.out); err != nil {
		return p, err
	}
	if p.Interests, err = getList(a.reader, "Interests", a.out); err != nil {
		return p, err
	}
	if p.LifeStage, err = getSimpleText(a.reader, "Life stage", a.out); err != nil {
		return p, err
	}
	return p, nil
}

// Onboard collects the questionnaire answers and stores them. A failed write
// leaves the user on the onboarding screen so they can try again.
func (a *App) Onboard(ctx context.Context) error {
	if !a.isLoggedIn() {
		printlnFn("Sign in first.")
		return nil
	}

	prefs, err := a.askPreferences()
	if err != nil {
		return err
	}

	if err := a.authService.CompleteOnboarding(ctx, prefs); err != nil {
		printlnFn("Could not save your answers, please try again:", describe(err))
		return err
	}

	announce(a.authService.Snapshot().Route())
	return nil
}
