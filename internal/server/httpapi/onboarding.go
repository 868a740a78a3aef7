package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/dailybread/internal/common"
	"github.com/dmitrijs2005/dailybread/internal/server/models"
	"github.com/gorilla/mux"
)

type preferencesResponse struct {
	PreferredVersion string   `json:"preferred_version"`
	Category         string   `json:"category"`
	AgeGroup         string   `json:"age_group"`
	Interests        []string `json:"interests"`
	LifeStage        string   `json:"life_stage"`
}

// onboardingResponse is the users row embedding its user_preferences rows.
type onboardingResponse struct {
	IsOnboarded     bool                  `json:"is_onboarded"`
	UserPreferences []preferencesResponse `json:"user_preferences"`
}

type completeOnboardingRequest struct {
	UserID           string   `json:"user_id"`
	PreferredVersion string   `json:"preferred_version"`
	Category         string   `json:"category"`
	AgeGroup         string   `json:"age_group"`
	Interests        []string `json:"interests"`
	LifeStage        string   `json:"life_stage"`
}

func (s *HTTPServer) handleGetOnboarding(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["id"]
	if userID != claimsFrom(r.Context()).Subject {
		s.fail(w, r, common.ErrorForbidden)
		return
	}

	status, err := s.onboarding.GetStatus(r.Context(), userID)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	resp := onboardingResponse{IsOnboarded: status.IsOnboarded, UserPreferences: []preferencesResponse{}}
	if p := status.Preferences; p != nil {
		resp.UserPreferences = append(resp.UserPreferences, preferencesResponse{
			PreferredVersion: p.PreferredVersion,
			Category:         p.Category,
			AgeGroup:         p.AgeGroup,
			Interests:        p.Interests,
			LifeStage:        p.LifeStage,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *HTTPServer) handleCompleteOnboarding(w http.ResponseWriter, r *http.Request) {
	var req completeOnboardingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if req.UserID != claimsFrom(r.Context()).Subject {
		s.fail(w, r, common.ErrorForbidden)
		return
	}

	err := s.onboarding.Complete(r.Context(), models.Preferences{
		UserID:           req.UserID,
		PreferredVersion: req.PreferredVersion,
		Category:         req.Category,
		AgeGroup:         req.AgeGroup,
		Interests:        req.Interests,
		LifeStage:        req.LifeStage,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.logger.Info(r.Context(), "onboarding completed", "user_id", req.UserID)
	w.WriteHeader(http.StatusNoContent)
}
