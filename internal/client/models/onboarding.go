package models

import (
	"encoding/json"
	"slices"
)

// UserPreferences is what the onboarding questionnaire collects.
type UserPreferences struct {
	PreferredVersion string   `json:"preferred_version"`
	Category         string   `json:"category"`
	AgeGroup         string   `json:"age_group"`
	Interests        []string `json:"interests"`
	LifeStage        string   `json:"life_stage"`
}

// Equal compares two preference records; nil equals only nil.
func (p *UserPreferences) Equal(o *UserPreferences) bool {
	if p == nil || o == nil {
		return p == o
	}
	return p.PreferredVersion == o.PreferredVersion &&
		p.Category == o.Category &&
		p.AgeGroup == o.AgeGroup &&
		p.LifeStage == o.LifeStage &&
		slices.Equal(p.Interests, o.Interests)
}

// Clone returns a deep copy so a snapshot never aliases caller memory.
func (p *UserPreferences) Clone() *UserPreferences {
	if p == nil {
		return nil
	}
	c := *p
	c.Interests = slices.Clone(p.Interests)
	return &c
}

// Encode serializes p in the form kept by the local cache.
func (p *UserPreferences) Encode() (string, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodePreferences parses a cached preference record.
func DecodePreferences(s string) (*UserPreferences, error) {
	var p UserPreferences
	if err := json.Unmarshal([]byte(s), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// OnboardingStatus is the authority's onboarding record for one user.
// A missing record is reported as the zero value.
type OnboardingStatus struct {
	IsOnboarded bool
	Preferences *UserPreferences
}
