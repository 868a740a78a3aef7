// Package httpapi exposes the authority's auth and REST endpoints over HTTP.
//
// Routes (all require the apikey header):
//
//	POST /auth/v1/signup
//	POST /auth/v1/token?grant_type=password|refresh_token
//	GET  /auth/v1/user                           (bearer)
//	POST /auth/v1/logout                         (bearer)
//	GET  /rest/v1/users/{id}/onboarding          (bearer, own id only)
//	POST /rest/v1/rpc/complete_onboarding        (bearer, own id only)
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/dailybread/internal/logging"
	"github.com/dmitrijs2005/dailybread/internal/server/models"
	"github.com/dmitrijs2005/dailybread/internal/server/services"
	"github.com/gorilla/mux"
)

// UserService is what the auth handlers need.
type UserService interface {
	SignUp(ctx context.Context, email, password string) (*services.Session, error)
	SignInWithPassword(ctx context.Context, email, password string) (*services.Session, error)
	RefreshToken(ctx context.Context, refreshToken string) (*services.Session, error)
	SignOut(ctx context.Context, userID string) error
	GetUser(ctx context.Context, userID string) (*models.User, error)
}

// OnboardingService is what the onboarding handlers need.
type OnboardingService interface {
	GetStatus(ctx context.Context, userID string) (*models.OnboardingStatus, error)
	Complete(ctx context.Context, prefs models.Preferences) error
}

const shutdownTimeout = 5 * time.Second

type HTTPServer struct {
	address    string
	users      UserService
	onboarding OnboardingService
	logger     logging.Logger
	apiKey     string
	jwtSecret  []byte
	now        func() time.Time
}

func NewHTTPServer(a string, l logging.Logger, us UserService, ob OnboardingService, apiKey, secretKey string) *HTTPServer {
	return &HTTPServer{
		address:    a,
		logger:     l.With("module", "http_server"),
		users:      us,
		onboarding: ob,
		apiKey:     apiKey,
		jwtSecret:  []byte(secretKey),
		now:        time.Now,
	}
}

// Router builds the route table with its middleware chain.
func (s *HTTPServer) Router() http.Handler {
	r := mux.NewRouter()
	r.Use(s.requestID, s.accessLog, s.requireAPIKey)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "no such route")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})

	a := r.PathPrefix("/auth/v1").Subrouter()
	a.HandleFunc("/signup", s.handleSignUp).Methods(http.MethodPost)
	a.HandleFunc("/token", s.handleToken).Methods(http.MethodPost)

	a.Handle("/user", s.requireUser(http.HandlerFunc(s.handleGetUser))).Methods(http.MethodGet)
	a.Handle("/logout", s.requireUser(http.HandlerFunc(s.handleLogout))).Methods(http.MethodPost)

	rest := r.PathPrefix("/rest/v1").Subrouter()
	rest.Use(s.requireUser)
	rest.HandleFunc("/users/{id}/onboarding", s.handleGetOnboarding).Methods(http.MethodGet)
	rest.HandleFunc("/rpc/complete_onboarding", s.handleCompleteOnboarding).Methods(http.MethodPost)

	return r
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *HTTPServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.serve(ctx, listen)
}

func (s *HTTPServer) serve(ctx context.Context, listen net.Listener) error {
	srv := &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "graceful shutdown failed", "err", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-done
	return nil
}
