// Package refreshtokens declares the authority's contract for storing
// opaque refresh tokens.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/dailybread/internal/server/models"
)

// Repository defines operations for issuing, retrieving, and revoking refresh tokens.
type Repository interface {
	// Create stores a new refresh token for userID with an expiry of now+validity.
	Create(ctx context.Context, userID string, token string, validity time.Duration) error

	// Find looks up a refresh token by its opaque token string. Absent tokens
	// yield common.ErrorNotFound.
	Find(ctx context.Context, token string) (*models.RefreshToken, error)

	// Delete removes a refresh token. It reports whether a row was removed,
	// so rotation can detect a token that was already spent.
	Delete(ctx context.Context, token string) (bool, error)

	// DeleteByUser revokes every refresh token belonging to userID.
	DeleteByUser(ctx context.Context, userID string) error
}
