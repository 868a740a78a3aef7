package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/dailybread/internal/client/models"
	"github.com/dmitrijs2005/dailybread/internal/common"
	"github.com/dmitrijs2005/dailybread/internal/logging"
	"github.com/dmitrijs2005/dailybread/internal/netx"
	"github.com/golang-jwt/jwt/v5"
)

// HTTPClient talks to the authority's auth and REST endpoints and owns the
// persisted session. It implements Authority.
type HTTPClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
	store   SessionStore
	log     logging.Logger
	now     func() time.Time

	mu      sync.Mutex
	session *models.Session
	loaded  bool

	// refreshMu makes concurrent refreshes of the same token collapse into one.
	refreshMu sync.Mutex

	hub eventHub
}

var _ Authority = (*HTTPClient)(nil)

// Option tweaks an HTTPClient.
type Option func(*HTTPClient)

func WithHTTPClient(c *http.Client) Option  { return func(h *HTTPClient) { h.http = c } }
func WithClock(now func() time.Time) Option { return func(h *HTTPClient) { h.now = now } }

// NewHTTPClient builds a client for the authority at baseURL. store may be
// nil, in which case sessions live only in memory.
func NewHTTPClient(baseURL, apiKey string, store SessionStore, log logging.Logger, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 10 * time.Second},
		store:   store,
		log:     log,
		now:     time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// tokenResponse is the body of every token-issuing auth endpoint.
type tokenResponse struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	TokenType    string      `json:"token_type"`
	ExpiresIn    int64       `json:"expires_in"`
	ExpiresAt    int64       `json:"expires_at"`
	User         models.User `json:"user"`
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// onboardingResponse mirrors the users row joined with user_preferences.
type onboardingResponse struct {
	IsOnboarded     bool                     `json:"is_onboarded"`
	UserPreferences []models.UserPreferences `json:"user_preferences"`
}

type completeOnboardingRequest struct {
	UserID           string   `json:"user_id"`
	PreferredVersion string   `json:"preferred_version"`
	Category         string   `json:"category"`
	AgeGroup         string   `json:"age_group"`
	Interests        []string `json:"interests"`
	LifeStage        string   `json:"life_stage"`
}

func (c *HTTPClient) headers(accessToken string) http.Header {
	h := http.Header{}
	h.Set(common.APIKeyHeaderName, c.apiKey)
	if accessToken != "" {
		h.Set(common.AuthorizationHeaderName, common.BearerPrefix+accessToken)
	}
	return h
}

func (c *HTTPClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	var se *netx.StatusError
	if errors.As(err, &se) {
		switch {
		case se.Code == http.StatusUnauthorized || se.Code == http.StatusForbidden:
			return fmt.Errorf("%w: %s", ErrUnauthorized, se.Body)
		case se.Code == http.StatusNotFound:
			return fmt.Errorf("%w: %s", ErrNotFound, se.Body)
		case se.Code >= 400 && se.Code < 500:
			return fmt.Errorf("%w: %s", ErrBadRequest, se.Body)
		}
	}
	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}

func (c *HTTPClient) toSession(t tokenResponse) *models.Session {
	s := &models.Session{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		TokenType:    t.TokenType,
		User:         t.User,
	}
	switch {
	case t.ExpiresAt > 0:
		s.ExpiresAt = time.Unix(t.ExpiresAt, 0)
	case t.ExpiresIn > 0:
		s.ExpiresAt = c.now().Add(time.Duration(t.ExpiresIn) * time.Second)
	default:
		s.ExpiresAt = tokenExpiry(t.AccessToken)
	}
	if s.User.ID == "" {
		s.User.ID = tokenSubject(t.AccessToken)
	}
	return s
}

// tokenExpiry reads exp from the access token without verifying it; the
// authority verifies, the client only schedules refreshes.
func tokenExpiry(token string) time.Time {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil || claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}

func tokenSubject(token string) string {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return ""
	}
	return claims.Subject
}

// current returns the in-memory session, loading the persisted one once.
func (c *HTTPClient) current(ctx context.Context) *models.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loaded && c.store != nil {
		c.loaded = true
		s, err := c.store.Load(ctx)
		if err != nil {
			c.log.Warn(ctx, "stored session unreadable, starting signed out", "err", err)
		}
		c.session = s
	}
	return c.session
}

func (c *HTTPClient) setSession(ctx context.Context, s *models.Session) {
	c.mu.Lock()
	c.session = s
	c.loaded = true
	c.mu.Unlock()

	if c.store == nil {
		return
	}
	var err error
	if s == nil {
		err = c.store.Clear(ctx)
	} else {
		err = c.store.Save(ctx, s)
	}
	if err != nil {
		c.log.Warn(ctx, "session persistence failed", "err", err)
	}
}

func (c *HTTPClient) GetSession(ctx context.Context) (*models.Session, error) {
	s := c.current(ctx)
	if s == nil {
		return nil, nil
	}
	if !s.Expired(c.now(), 0) {
		return s, nil
	}

	refreshed, err := c.refresh(ctx, s)
	switch {
	case err == nil:
		return refreshed, nil
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrBadRequest):
		c.log.Info(ctx, "stored session could not be refreshed, dropping it", "err", err)
		c.setSession(ctx, nil)
		return nil, nil
	default:
		return nil, err
	}
}

// Refresh exchanges the current refresh token for a new session.
func (c *HTTPClient) Refresh(ctx context.Context) (*models.Session, error) {
	s := c.current(ctx)
	if s == nil {
		return nil, ErrNoSession
	}
	return c.refresh(ctx, s)
}

func (c *HTTPClient) refresh(ctx context.Context, stale *models.Session) (*models.Session, error) {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	if cur := c.current(ctx); cur != stale {
		if cur == nil {
			return nil, ErrNoSession
		}
		return cur, nil
	}

	var resp tokenResponse
	err := netx.DoJSON(ctx, c.http, http.MethodPost, c.baseURL+"/auth/v1/token?grant_type=refresh_token",
		c.headers(""), refreshRequest{RefreshToken: stale.RefreshToken}, &resp)
	if err != nil {
		return nil, c.mapError(err)
	}

	s := c.toSession(resp)
	c.setSession(ctx, s)
	c.hub.emit(models.AuthEvent{Kind: models.EventTokenRefreshed, Session: s})
	return s, nil
}

func (c *HTTPClient) signIn(ctx context.Context, path string, email, password string) (*models.Session, error) {
	var resp tokenResponse
	err := netx.DoJSON(ctx, c.http, http.MethodPost, c.baseURL+path, c.headers(""),
		credentials{Email: email, Password: password}, &resp)
	if err != nil {
		return nil, c.mapError(err)
	}

	s := c.toSession(resp)
	c.setSession(ctx, s)
	c.hub.emit(models.AuthEvent{Kind: models.EventSignedIn, Session: s})
	return s, nil
}

func (c *HTTPClient) SignInWithPassword(ctx context.Context, email, password string) (*models.Session, error) {
	return c.signIn(ctx, "/auth/v1/token?grant_type=password", email, password)
}

func (c *HTTPClient) SignUp(ctx context.Context, email, password string) (*models.Session, error) {
	return c.signIn(ctx, "/auth/v1/signup", email, password)
}

// SignOut revokes the session at the authority, forgets it locally and emits
// SIGNED_OUT. A session the authority already rejects counts as signed out;
// a transport failure is returned and nothing changes.
func (c *HTTPClient) SignOut(ctx context.Context) error {
	if s := c.current(ctx); s != nil {
		err := netx.DoJSON(ctx, c.http, http.MethodPost, c.baseURL+"/auth/v1/logout", c.headers(s.AccessToken), nil, nil)
		if err = c.mapError(err); err != nil && !errors.Is(err, ErrUnauthorized) && !errors.Is(err, ErrNotFound) {
			return err
		}
	}

	c.setSession(ctx, nil)
	c.hub.emit(models.AuthEvent{Kind: models.EventSignedOut})
	return nil
}

// GetUser asks the authority who the current token belongs to.
func (c *HTTPClient) GetUser(ctx context.Context) (*models.User, error) {
	s := c.current(ctx)
	if s == nil {
		return nil, ErrNoSession
	}
	var u models.User
	if err := netx.DoJSON(ctx, c.http, http.MethodGet, c.baseURL+"/auth/v1/user", c.headers(s.AccessToken), nil, &u); err != nil {
		return nil, c.mapError(err)
	}
	return &u, nil
}

func (c *HTTPClient) accessToken(ctx context.Context) (string, error) {
	s := c.current(ctx)
	if s == nil {
		return "", ErrNoSession
	}
	return s.AccessToken, nil
}

func (c *HTTPClient) FetchOnboarding(ctx context.Context, userID string) (models.OnboardingStatus, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return models.OnboardingStatus{}, err
	}

	var resp onboardingResponse
	err = netx.DoJSON(ctx, c.http, http.MethodGet, c.baseURL+"/rest/v1/users/"+url.PathEscape(userID)+"/onboarding",
		c.headers(token), nil, &resp)
	if err = c.mapError(err); err != nil {
		if errors.Is(err, ErrNotFound) {
			return models.OnboardingStatus{}, nil
		}
		return models.OnboardingStatus{}, err
	}

	status := models.OnboardingStatus{IsOnboarded: resp.IsOnboarded}
	if len(resp.UserPreferences) > 0 {
		p := resp.UserPreferences[0]
		status.Preferences = &p
	}
	return status, nil
}

func (c *HTTPClient) CompleteOnboarding(ctx context.Context, userID string, prefs models.UserPreferences) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrOnboardingWrite, err)
	}

	req := completeOnboardingRequest{
		UserID:           userID,
		PreferredVersion: prefs.PreferredVersion,
		Category:         prefs.Category,
		AgeGroup:         prefs.AgeGroup,
		Interests:        prefs.Interests,
		LifeStage:        prefs.LifeStage,
	}
	err = netx.DoJSON(ctx, c.http, http.MethodPost, c.baseURL+"/rest/v1/rpc/complete_onboarding", c.headers(token), req, nil)
	if err = c.mapError(err); err != nil {
		return fmt.Errorf("%w: %w", ErrOnboardingWrite, err)
	}
	return nil
}

func (c *HTTPClient) Subscribe(handler func(models.AuthEvent)) *Subscription {
	c.mu.Lock()
	s := c.session
	c.mu.Unlock()
	return c.hub.subscribe(handler, models.AuthEvent{Kind: models.EventInitialSession, Session: s})
}

// StartAutoRefresh refreshes the session whenever it is within margin of
// expiry, checking every interval, until ctx is done. A refresh the authority
// rejects signs the user out.
func (c *HTTPClient) StartAutoRefresh(ctx context.Context, interval, margin time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.refreshIfDue(ctx, margin)
		case <-ctx.Done():
			return
		}
	}
}

func (c *HTTPClient) refreshIfDue(ctx context.Context, margin time.Duration) {
	s := c.current(ctx)
	if s == nil || !s.Expired(c.now(), margin) {
		return
	}

	_, err := c.refresh(ctx, s)
	switch {
	case err == nil:
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrBadRequest):
		c.log.Warn(ctx, "refresh token rejected, signing out", "err", err)
		c.setSession(ctx, nil)
		c.hub.emit(models.AuthEvent{Kind: models.EventSignedOut})
	default:
		c.log.Warn(ctx, "token refresh failed, will retry", "err", err)
	}
}
