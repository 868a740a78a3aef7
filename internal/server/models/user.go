// Package models defines the authority's persisted records.
package models

import "time"

type User struct {
	ID           string
	Email        string
	PasswordHash string
	IsOnboarded  bool
	CreatedAt    time.Time
}
