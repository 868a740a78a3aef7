// Package preferences persists the onboarding questionnaire answers, one row
// per user.
package preferences

import (
	"context"

	"github.com/dmitrijs2005/dailybread/internal/server/models"
)

type Repository interface {
	// Upsert writes p, replacing any earlier answers for p.UserID.
	Upsert(ctx context.Context, p *models.Preferences) error
	// Get returns the user's row or common.ErrorNotFound.
	Get(ctx context.Context, userID string) (*models.Preferences, error)
}
