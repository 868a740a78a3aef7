// Package users declares and implements persistence for authority accounts.
package users

import (
	"context"

	"github.com/dmitrijs2005/dailybread/internal/server/models"
)

type Repository interface {
	// Create inserts user and fills in CreatedAt. A duplicate email yields
	// common.ErrorAlreadyExists.
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	// SetOnboarded flips users.is_onboarded. An unknown id yields common.ErrorNotFound.
	SetOnboarded(ctx context.Context, id string, onboarded bool) error
}
