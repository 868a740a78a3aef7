package httpapi

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/dailybread/internal/server/models"
	"github.com/dmitrijs2005/dailybread/internal/server/services"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type userResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

type tokenResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	TokenType    string       `json:"token_type"`
	ExpiresIn    int64        `json:"expires_in"`
	ExpiresAt    int64        `json:"expires_at"`
	User         userResponse `json:"user"`
}

func toUserResponse(u *models.User) userResponse {
	return userResponse{ID: u.ID, Email: u.Email, CreatedAt: u.CreatedAt}
}

func (s *HTTPServer) toTokenResponse(sess *services.Session) tokenResponse {
	return tokenResponse{
		AccessToken:  sess.AccessToken,
		RefreshToken: sess.RefreshToken,
		TokenType:    "bearer",
		ExpiresIn:    int64(sess.ExpiresAt.Sub(s.now()).Seconds()),
		ExpiresAt:    sess.ExpiresAt.Unix(),
		User:         toUserResponse(sess.User),
	}
}

func (s *HTTPServer) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	sess, err := s.users.SignUp(r.Context(), req.Email, req.Password)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.logger.Info(r.Context(), "user signed up", "user_id", sess.User.ID)
	writeJSON(w, http.StatusOK, s.toTokenResponse(sess))
}

// handleToken serves both grant types of the token endpoint.
func (s *HTTPServer) handleToken(w http.ResponseWriter, r *http.Request) {
	var (
		sess *services.Session
		err  error
	)

	switch grant := r.URL.Query().Get("grant_type"); grant {
	case "password":
		var req credentialsRequest
		if err = decodeJSON(w, r, &req); err == nil {
			sess, err = s.users.SignInWithPassword(r.Context(), req.Email, req.Password)
		}
	case "refresh_token":
		var req refreshRequest
		if err = decodeJSON(w, r, &req); err == nil {
			sess, err = s.users.RefreshToken(r.Context(), req.RefreshToken)
		}
	default:
		writeError(w, http.StatusBadRequest, "unsupported_grant_type", "unsupported grant_type: "+grant)
		return
	}

	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.toTokenResponse(sess))
}

func (s *HTTPServer) handleGetUser(w http.ResponseWriter, r *http.Request) {
	u, err := s.users.GetUser(r.Context(), claimsFrom(r.Context()).Subject)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(u))
}

func (s *HTTPServer) handleLogout(w http.ResponseWriter, r *http.Request) {
	userID := claimsFrom(r.Context()).Subject
	if err := s.users.SignOut(r.Context(), userID); err != nil {
		s.fail(w, r, err)
		return
	}
	s.logger.Info(r.Context(), "user signed out", "user_id", userID)
	w.WriteHeader(http.StatusNoContent)
}
