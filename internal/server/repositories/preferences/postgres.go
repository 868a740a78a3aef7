package preferences

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/dailybread/internal/common"
	"github.com/dmitrijs2005/dailybread/internal/dbx"
	"github.com/dmitrijs2005/dailybread/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Upsert(ctx context.Context, p *models.Preferences) error {
	query := `
		INSERT INTO user_preferences (user_id, preferred_version, category, age_group, interests, life_stage, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (user_id) DO UPDATE SET
			preferred_version = EXCLUDED.preferred_version,
			category = EXCLUDED.category,
			age_group = EXCLUDED.age_group,
			interests = EXCLUDED.interests,
			life_stage = EXCLUDED.life_stage,
			updated_at = now()
	`

	interests := p.Interests
	if interests == nil {
		interests = []string{}
	}
	encoded, err := json.Marshal(interests)
	if err != nil {
		return fmt.Errorf("encode interests: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query,
		p.UserID, p.PreferredVersion, p.Category, p.AgeGroup, encoded, p.LifeStage); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, userID string) (*models.Preferences, error) {
	query := `
		SELECT user_id, preferred_version, category, age_group, interests, life_stage, updated_at
		FROM user_preferences
		WHERE user_id = $1
	`

	p := &models.Preferences{}
	var interests []byte
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&p.UserID, &p.PreferredVersion, &p.Category, &p.AgeGroup, &interests, &p.LifeStage, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if err := json.Unmarshal(interests, &p.Interests); err != nil {
		return nil, fmt.Errorf("decode interests: %w", err)
	}
	return p, nil
}
