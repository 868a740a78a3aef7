package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/dailybread/internal/client/cache"
	"github.com/dmitrijs2005/dailybread/internal/client/models"
	"github.com/dmitrijs2005/dailybread/internal/logging"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// fakeAuthority is an in-process stand-in for the authority's HTTP API.
type fakeAuthority struct {
	mu sync.Mutex

	refreshStatus  int
	logoutStatus   int
	onboardStatus  int
	completeStatus int
	onboarding     onboardingResponse
	lastComplete   completeOnboardingRequest
	refreshCalls   int
	expiresIn      int64
}

func (f *fakeAuthority) set(fn func(f *fakeAuthority)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeAuthority) refreshCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refreshCalls
}

func (f *fakeAuthority) token(w http.ResponseWriter, userID string) {
	_ = json.NewEncoder(w).Encode(tokenResponse{
		AccessToken:  "at-" + userID,
		RefreshToken: "rt-" + userID,
		TokenType:    "bearer",
		ExpiresIn:    f.expiresIn,
		User:         models.User{ID: userID, Email: userID + "@example.com"},
	})
}

func (f *fakeAuthority) handler(t *testing.T) http.Handler {
	r := mux.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("apikey") != "anon" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	})
	r.HandleFunc("/auth/v1/token", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		switch r.URL.Query().Get("grant_type") {
		case "password":
			var c credentials
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&c))
			if c.Password != "secret" {
				http.Error(w, "invalid login", http.StatusBadRequest)
				return
			}
			f.token(w, "u1")
		case "refresh_token":
			f.refreshCalls++
			if f.refreshStatus != 0 {
				w.WriteHeader(f.refreshStatus)
				return
			}
			f.token(w, "u1")
		}
	}).Methods(http.MethodPost)
	r.HandleFunc("/auth/v1/signup", func(w http.ResponseWriter, r *http.Request) {
		f.token(w, "u2")
	}).Methods(http.MethodPost)
	r.HandleFunc("/auth/v1/logout", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.logoutStatus != 0 {
			w.WriteHeader(f.logoutStatus)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}).Methods(http.MethodPost)
	r.HandleFunc("/auth/v1/user", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer at-u1", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(models.User{ID: "u1", Email: "u1@example.com"})
	}).Methods(http.MethodGet)
	r.HandleFunc("/rest/v1/users/{id}/onboarding", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		assert.Equal(t, "u1", mux.Vars(r)["id"])
		if f.onboardStatus != 0 {
			w.WriteHeader(f.onboardStatus)
			return
		}
		_ = json.NewEncoder(w).Encode(f.onboarding)
	}).Methods(http.MethodGet)
	r.HandleFunc("/rest/v1/rpc/complete_onboarding", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&f.lastComplete))
		if f.completeStatus != 0 {
			w.WriteHeader(f.completeStatus)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}).Methods(http.MethodPost)
	return r
}

type recorder struct {
	mu     sync.Mutex
	events []models.AuthEvent
}

func (r *recorder) handle(ev models.AuthEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) kinds() []models.EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.EventKind, len(r.events))
	for i, e := range r.events {
		out[i] = e.Kind
	}
	return out
}

func newTestClient(t *testing.T, f *fakeAuthority, store SessionStore) *HTTPClient {
	t.Helper()
	ts := httptest.NewServer(f.handler(t))
	t.Cleanup(ts.Close)
	return NewHTTPClient(ts.URL+"/", "anon", store, logging.Discard(),
		WithHTTPClient(ts.Client()), WithClock(func() time.Time { return testNow }))
}

func TestHTTPClient_SignInEmitsAndPersists(t *testing.T) {
	f := &fakeAuthority{expiresIn: 3600}
	store := NewCacheSessionStore(cache.NewMemoryStore())
	c := newTestClient(t, f, store)

	rec := &recorder{}
	sub := c.Subscribe(rec.handle)
	defer sub.Unsubscribe()

	s, err := c.SignInWithPassword(context.Background(), "u1@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "u1", s.User.ID)
	assert.Equal(t, testNow.Add(time.Hour), s.ExpiresAt)

	assert.Equal(t, []models.EventKind{models.EventInitialSession, models.EventSignedIn}, rec.kinds())
	assert.Nil(t, rec.events[0].Session)

	stored, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "at-u1", stored.AccessToken)

	got, err := c.GetSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, s, got)
}

func TestHTTPClient_BadCredentials(t *testing.T) {
	c := newTestClient(t, &fakeAuthority{}, nil)
	_, err := c.SignInWithPassword(context.Background(), "u1@example.com", "wrong")
	require.ErrorIs(t, err, ErrBadRequest)
}

func TestHTTPClient_SignUp(t *testing.T) {
	c := newTestClient(t, &fakeAuthority{expiresIn: 60}, nil)
	s, err := c.SignUp(context.Background(), "u2@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "u2", s.User.ID)
}

func TestHTTPClient_GetSession_NoneStored(t *testing.T) {
	c := newTestClient(t, &fakeAuthority{}, NewCacheSessionStore(cache.NewMemoryStore()))
	s, err := c.GetSession(context.Background())
	require.NoError(t, err)
	assert.Nil(t, s)
}

func storeWith(t *testing.T, s *models.Session) SessionStore {
	t.Helper()
	store := NewCacheSessionStore(cache.NewMemoryStore())
	require.NoError(t, store.Save(context.Background(), s))
	return store
}

func TestHTTPClient_GetSession_RefreshesExpired(t *testing.T) {
	f := &fakeAuthority{expiresIn: 3600}
	store := storeWith(t, &models.Session{AccessToken: "old", RefreshToken: "rt-u1", ExpiresAt: testNow.Add(-time.Minute), User: models.User{ID: "u1"}})
	c := newTestClient(t, f, store)

	rec := &recorder{}
	c.Subscribe(rec.handle)

	s, err := c.GetSession(context.Background())
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, "at-u1", s.AccessToken)
	assert.Equal(t, 1, f.refreshCount())
	assert.Equal(t, []models.EventKind{models.EventInitialSession, models.EventTokenRefreshed}, rec.kinds())
}

func TestHTTPClient_GetSession_ExpiredAndRejectedMeansNoSession(t *testing.T) {
	f := &fakeAuthority{refreshStatus: http.StatusUnauthorized}
	store := storeWith(t, &models.Session{AccessToken: "old", RefreshToken: "revoked", ExpiresAt: testNow.Add(-time.Hour), User: models.User{ID: "u1"}})
	c := newTestClient(t, f, store)

	s, err := c.GetSession(context.Background())
	require.NoError(t, err)
	assert.Nil(t, s)

	stored, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, stored, "dead session must be forgotten")
}

func TestHTTPClient_GetSession_TransportFailureIsError(t *testing.T) {
	f := &fakeAuthority{refreshStatus: http.StatusBadGateway}
	store := storeWith(t, &models.Session{RefreshToken: "rt", ExpiresAt: testNow.Add(-time.Hour), User: models.User{ID: "u1"}})
	c := newTestClient(t, f, store)

	_, err := c.GetSession(context.Background())
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestHTTPClient_SignOut(t *testing.T) {
	f := &fakeAuthority{expiresIn: 3600}
	store := NewCacheSessionStore(cache.NewMemoryStore())
	c := newTestClient(t, f, store)
	_, err := c.SignInWithPassword(context.Background(), "u1@example.com", "secret")
	require.NoError(t, err)

	rec := &recorder{}
	c.Subscribe(rec.handle)

	require.NoError(t, c.SignOut(context.Background()))
	assert.Equal(t, []models.EventKind{models.EventInitialSession, models.EventSignedOut}, rec.kinds())

	s, err := c.GetSession(context.Background())
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestHTTPClient_SignOut_AlreadyRevokedStillSignsOut(t *testing.T) {
	f := &fakeAuthority{expiresIn: 3600, logoutStatus: http.StatusUnauthorized}
	c := newTestClient(t, f, nil)
	_, err := c.SignInWithPassword(context.Background(), "u1@example.com", "secret")
	require.NoError(t, err)

	require.NoError(t, c.SignOut(context.Background()))
}

func TestHTTPClient_SignOut_TransportFailureKeepsSession(t *testing.T) {
	f := &fakeAuthority{expiresIn: 3600, logoutStatus: http.StatusServiceUnavailable}
	c := newTestClient(t, f, nil)
	_, err := c.SignInWithPassword(context.Background(), "u1@example.com", "secret")
	require.NoError(t, err)

	rec := &recorder{}
	c.Subscribe(rec.handle)

	require.ErrorIs(t, c.SignOut(context.Background()), ErrUnavailable)
	assert.Equal(t, []models.EventKind{models.EventInitialSession}, rec.kinds())
	s, _ := c.GetSession(context.Background())
	assert.NotNil(t, s)
}

func TestHTTPClient_FetchOnboarding(t *testing.T) {
	f := &fakeAuthority{expiresIn: 3600}
	c := newTestClient(t, f, nil)
	ctx := context.Background()

	_, err := c.FetchOnboarding(ctx, "u1")
	require.ErrorIs(t, err, ErrNoSession)

	_, err = c.SignInWithPassword(ctx, "u1@example.com", "secret")
	require.NoError(t, err)

	f.set(func(f *fakeAuthority) {
		f.onboarding = onboardingResponse{IsOnboarded: true, UserPreferences: []models.UserPreferences{{PreferredVersion: "niv", Interests: []string{"prayer"}}}}
	})
	st, err := c.FetchOnboarding(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, st.IsOnboarded)
	require.NotNil(t, st.Preferences)
	assert.Equal(t, "niv", st.Preferences.PreferredVersion)

	f.set(func(f *fakeAuthority) { f.onboarding = onboardingResponse{} })
	st, err = c.FetchOnboarding(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.OnboardingStatus{}, st)

	f.set(func(f *fakeAuthority) { f.onboardStatus = http.StatusNotFound })
	st, err = c.FetchOnboarding(ctx, "u1")
	require.NoError(t, err, "missing record is not an error")
	assert.Equal(t, models.OnboardingStatus{}, st)

	f.set(func(f *fakeAuthority) { f.onboardStatus = http.StatusInternalServerError })
	_, err = c.FetchOnboarding(ctx, "u1")
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestHTTPClient_CompleteOnboarding(t *testing.T) {
	f := &fakeAuthority{expiresIn: 3600}
	c := newTestClient(t, f, nil)
	ctx := context.Background()
	prefs := models.UserPreferences{PreferredVersion: "esv", Category: "catholic", AgeGroup: "18-24", Interests: []string{"gospels"}, LifeStage: "student"}

	require.ErrorIs(t, c.CompleteOnboarding(ctx, "u1", prefs), ErrOnboardingWrite)

	_, err := c.SignInWithPassword(ctx, "u1@example.com", "secret")
	require.NoError(t, err)

	require.NoError(t, c.CompleteOnboarding(ctx, "u1", prefs))
	f.set(func(f *fakeAuthority) {
		assert.Equal(t, completeOnboardingRequest{UserID: "u1", PreferredVersion: "esv", Category: "catholic", AgeGroup: "18-24", Interests: []string{"gospels"}, LifeStage: "student"}, f.lastComplete)
	})

	f.set(func(f *fakeAuthority) { f.completeStatus = http.StatusInternalServerError })
	err = c.CompleteOnboarding(ctx, "u1", prefs)
	require.ErrorIs(t, err, ErrOnboardingWrite)
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestHTTPClient_GetUser(t *testing.T) {
	c := newTestClient(t, &fakeAuthority{expiresIn: 60}, nil)
	ctx := context.Background()

	_, err := c.GetUser(ctx)
	require.ErrorIs(t, err, ErrNoSession)

	_, err = c.SignInWithPassword(ctx, "u1@example.com", "secret")
	require.NoError(t, err)
	u, err := c.GetUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)
}

func TestHTTPClient_RefreshIfDue(t *testing.T) {
	f := &fakeAuthority{expiresIn: 30}
	c := newTestClient(t, f, nil)
	ctx := context.Background()
	_, err := c.SignInWithPassword(ctx, "u1@example.com", "secret")
	require.NoError(t, err)

	c.refreshIfDue(ctx, time.Second)
	assert.Equal(t, 0, f.refreshCount(), "not due yet")

	c.refreshIfDue(ctx, time.Minute)
	assert.Equal(t, 1, f.refreshCount())

	rec := &recorder{}
	c.Subscribe(rec.handle)
	f.set(func(f *fakeAuthority) { f.refreshStatus = http.StatusUnauthorized })
	c.refreshIfDue(ctx, time.Minute)
	assert.Equal(t, []models.EventKind{models.EventInitialSession, models.EventSignedOut}, rec.kinds())

	s, err := c.GetSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestHTTPClient_UnsubscribeStopsDelivery(t *testing.T) {
	c := newTestClient(t, &fakeAuthority{expiresIn: 60}, nil)
	rec := &recorder{}
	sub := c.Subscribe(rec.handle)
	sub.Unsubscribe()
	sub.Unsubscribe()

	_, err := c.SignInWithPassword(context.Background(), "u1@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, []models.EventKind{models.EventInitialSession}, rec.kinds())
}

func TestTokenExpiryAndSubjectFromJWT(t *testing.T) {
	exp := testNow.Add(5 * time.Minute).Truncate(time.Second)
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "u9",
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("k"))
	require.NoError(t, err)

	assert.True(t, exp.Equal(tokenExpiry(tok)))
	assert.Equal(t, "u9", tokenSubject(tok))
	assert.True(t, tokenExpiry("garbage").IsZero())
	assert.Empty(t, tokenSubject("garbage"))

	c := NewHTTPClient("http://x", "anon", nil, logging.Discard())
	s := c.toSession(tokenResponse{AccessToken: tok})
	assert.Equal(t, "u9", s.User.ID)
	assert.True(t, exp.Equal(s.ExpiresAt))
}
