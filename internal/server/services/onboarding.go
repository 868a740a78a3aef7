package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/dailybread/internal/common"
	"github.com/dmitrijs2005/dailybread/internal/dbx"
	"github.com/dmitrijs2005/dailybread/internal/server/models"
	"github.com/dmitrijs2005/dailybread/internal/server/repositories/repomanager"
)

// OnboardingService reads and completes a user's onboarding record.
type OnboardingService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewOnboardingService(db *sql.DB, m repomanager.RepositoryManager) *OnboardingService {
	return &OnboardingService{db: db, repomanager: m}
}

// GetStatus joins the users row with its preferences. An unknown user
// yields common.ErrorNotFound; a user without preferences gets nil ones.
func (s *OnboardingService) GetStatus(ctx context.Context, userID string) (*models.OnboardingStatus, error) {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	status := &models.OnboardingStatus{IsOnboarded: user.IsOnboarded}

	prefs, err := s.repomanager.Preferences(s.db).Get(ctx, userID)
	switch {
	case err == nil:
		status.Preferences = prefs
	case errors.Is(err, common.ErrorNotFound):
	default:
		return nil, err
	}
	return status, nil
}

// Complete marks the user onboarded and stores prefs in one transaction.
// An unknown user yields common.ErrorNotFound and nothing is written.
func (s *OnboardingService) Complete(ctx context.Context, prefs models.Preferences) error {
	if strings.TrimSpace(prefs.PreferredVersion) == "" {
		return fmt.Errorf("%w: preferred_version is required", common.ErrorValidation)
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Users(tx).SetOnboarded(ctx, prefs.UserID, true); err != nil {
			return err
		}
		return s.repomanager.Preferences(tx).Upsert(ctx, &prefs)
	})
}
