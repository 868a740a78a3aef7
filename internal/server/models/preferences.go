package models

import "time"

// Preferences is one row of user_preferences.
type Preferences struct {
	UserID           string
	PreferredVersion string
	Category         string
	AgeGroup         string
	Interests        []string
	LifeStage        string
	UpdatedAt        time.Time
}

// OnboardingStatus joins users.is_onboarded with the user's preferences row.
// Preferences is nil when the row does not exist.
type OnboardingStatus struct {
	IsOnboarded bool
	Preferences *Preferences
}
