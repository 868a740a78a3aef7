package services

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/dailybread/internal/client/authstate"
	"github.com/dmitrijs2005/dailybread/internal/client/cache"
	"github.com/dmitrijs2005/dailybread/internal/client/client"
	"github.com/dmitrijs2005/dailybread/internal/client/models"
	"github.com/dmitrijs2005/dailybread/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/dailybread/internal/common"
	"github.com/dmitrijs2005/dailybread/internal/logging"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

// ---- fake client ----

// fakeClient implements Authority for AuthService unit tests. Like the real
// client, it emits lifecycle events before returning from sign-in/sign-out.
type fakeClient struct {
	mu sync.Mutex

	SignInErr   error
	SignOutErr  error
	CompleteErr error

	Records map[string]models.OnboardingStatus
	Users   map[string]string // email -> user id

	session  *models.Session
	handlers []func(models.AuthEvent)
}

var _ Authority = (*fakeClient)(nil)

func newFakeClient() *fakeClient {
	return &fakeClient{
		Records: map[string]models.OnboardingStatus{},
		Users:   map[string]string{"ann@example.com": "u-ann"},
	}
}

func (f *fakeClient) emit(ev models.AuthEvent) {
	f.mu.Lock()
	hs := append([]func(models.AuthEvent){}, f.handlers...)
	f.mu.Unlock()
	for _, h := range hs {
		h(ev)
	}
}

func (f *fakeClient) GetSession(context.Context) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.session, nil
}

func (f *fakeClient) FetchOnboarding(_ context.Context, userID string) (models.OnboardingStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Records[userID], nil
}

func (f *fakeClient) CompleteOnboarding(_ context.Context, userID string, prefs models.UserPreferences) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CompleteErr != nil {
		return errors.Join(client.ErrOnboardingWrite, f.CompleteErr)
	}
	f.Records[userID] = models.OnboardingStatus{IsOnboarded: true, Preferences: prefs.Clone()}
	return nil
}

func (f *fakeClient) signIn(email string) (*models.Session, error) {
	f.mu.Lock()
	if f.SignInErr != nil {
		f.mu.Unlock()
		return nil, f.SignInErr
	}
	id, ok := f.Users[email]
	if !ok {
		id = "u-" + strings.Split(email, "@")[0]
		f.Users[email] = id
	}
	s := &models.Session{AccessToken: "at-" + id, User: models.User{ID: id, Email: email}}
	f.session = s
	f.mu.Unlock()

	f.emit(models.AuthEvent{Kind: models.EventSignedIn, Session: s})
	return s, nil
}

func (f *fakeClient) SignInWithPassword(_ context.Context, email, _ string) (*models.Session, error) {
	return f.signIn(email)
}

func (f *fakeClient) SignUp(_ context.Context, email, _ string) (*models.Session, error) {
	return f.signIn(email)
}

func (f *fakeClient) SignOut(context.Context) error {
	f.mu.Lock()
	if f.SignOutErr != nil {
		f.mu.Unlock()
		return f.SignOutErr
	}
	f.session = nil
	f.mu.Unlock()

	f.emit(models.AuthEvent{Kind: models.EventSignedOut})
	return nil
}

func (f *fakeClient) GetUser(context.Context) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.session == nil {
		return nil, client.ErrNoSession
	}
	u := f.session.User
	return &u, nil
}

func (f *fakeClient) Subscribe(h func(models.AuthEvent)) *client.Subscription {
	f.mu.Lock()
	f.handlers = append(f.handlers, h)
	s := f.session
	f.mu.Unlock()
	h(models.AuthEvent{Kind: models.EventInitialSession, Session: s})
	return client.NewSubscription(func() {})
}

// ---- helpers ----

// setupStore returns the encrypted SQLite-backed store the CLI uses.
func setupStore(t *testing.T) cache.Store {
	t.Helper()
	ctx := context.Background()
	db, err := client.InitDatabase(ctx, filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store, err := cache.NewSecureStore(ctx, metadata.NewSQLiteRepository(db), []byte("device-secret"))
	require.NoError(t, err)
	return store
}

func newService(t *testing.T, fc *fakeClient, store cache.Store) AuthService {
	t.Helper()
	log := logging.Discard()
	c := cache.NewLogged(store, log)
	w := cache.NewWriter(c, 8)
	svc := NewAuthService(fc, authstate.New(fc, c, w, nil, log), w)
	t.Cleanup(svc.Close)
	require.NoError(t, svc.Start(context.Background()))
	return svc
}

func cached(t *testing.T, s cache.Store, key string) (string, bool) {
	t.Helper()
	v, ok, err := s.Get(context.Background(), key)
	require.NoError(t, err)
	return v, ok
}

var prefs = models.UserPreferences{
	PreferredVersion: "kjv",
	Category:         "orthodox",
	AgeGroup:         "35-44",
	Interests:        []string{"wisdom"},
	LifeStage:        "working",
}

// ---- tests ----

func TestAuthService_ReadySignedOut(t *testing.T) {
	svc := newService(t, newFakeClient(), setupStore(t))

	snap, err := svc.Ready(context.Background())
	require.NoError(t, err)
	require.False(t, snap.Loading)
	require.Equal(t, models.RouteSignIn, snap.Route())
}

func TestAuthService_SignInNewUserNeedsOnboarding(t *testing.T) {
	svc := newService(t, newFakeClient(), setupStore(t))
	ctx := context.Background()

	snap, err := svc.SignIn(ctx, "ann@example.com", "pw")
	require.NoError(t, err)
	require.NotNil(t, snap.User)
	require.Equal(t, "u-ann", snap.User.ID)
	require.Equal(t, models.RouteOnboarding, snap.Route())
}

func TestAuthService_SignInOnboardedUserGoesHome(t *testing.T) {
	fc := newFakeClient()
	fc.Records["u-ann"] = models.OnboardingStatus{IsOnboarded: true, Preferences: prefs.Clone()}
	store := setupStore(t)
	svc := newService(t, fc, store)

	snap, err := svc.SignIn(context.Background(), "ann@example.com", "pw")
	require.NoError(t, err)
	require.Equal(t, models.RouteHome, snap.Route())
	require.True(t, snap.Preferences.Equal(&prefs))

	require.NoError(t, svc.SignOut(context.Background()))
	_, ok := cached(t, store, common.CacheKeyOnboarded)
	require.False(t, ok)
}

func TestAuthService_SignInError(t *testing.T) {
	fc := newFakeClient()
	fc.SignInErr = client.ErrBadRequest
	svc := newService(t, fc, setupStore(t))

	snap, err := svc.SignIn(context.Background(), "ann@example.com", "bad")
	require.ErrorIs(t, err, client.ErrBadRequest)
	require.Nil(t, snap.User)
}

func TestAuthService_SignUp(t *testing.T) {
	svc := newService(t, newFakeClient(), setupStore(t))

	snap, err := svc.SignUp(context.Background(), "bob@example.com", "pw")
	require.NoError(t, err)
	require.Equal(t, "u-bob", snap.User.ID)
}

func TestAuthService_OnboardingThenSignOutErasesCache(t *testing.T) {
	store := setupStore(t)
	svc := newService(t, newFakeClient(), store)
	ctx := context.Background()

	_, err := svc.SignIn(ctx, "ann@example.com", "pw")
	require.NoError(t, err)
	require.NoError(t, svc.CompleteOnboarding(ctx, prefs))
	require.Equal(t, models.RouteHome, svc.Snapshot().Route())

	require.NoError(t, svc.SignOut(ctx))

	for _, k := range common.OnboardingCacheKeys {
		_, ok := cached(t, store, k)
		require.False(t, ok, k)
	}
	snap := svc.Snapshot()
	require.Nil(t, snap.User)
	require.False(t, snap.IsOnboarded)
	require.Nil(t, snap.Preferences)
	require.Equal(t, models.RouteSignIn, snap.Route())
}

func TestAuthService_CompleteOnboardingCachesEncrypted(t *testing.T) {
	store := setupStore(t)
	fc := newFakeClient()
	svc := newService(t, fc, store)
	ctx := context.Background()

	_, err := svc.SignIn(ctx, "ann@example.com", "pw")
	require.NoError(t, err)
	require.NoError(t, svc.CompleteOnboarding(ctx, prefs))
	svc.Close()

	v, ok := cached(t, store, common.CacheKeyOnboarded)
	require.True(t, ok)
	require.Equal(t, "true", v)

	raw, ok := cached(t, store, common.CacheKeyPreferences)
	require.True(t, ok)
	got, err := models.DecodePreferences(raw)
	require.NoError(t, err)
	require.True(t, got.Equal(&prefs))
}

func TestAuthService_CompleteOnboardingFailure(t *testing.T) {
	fc := newFakeClient()
	fc.CompleteErr = errors.New("rpc failed")
	svc := newService(t, fc, setupStore(t))
	ctx := context.Background()

	_, err := svc.SignIn(ctx, "ann@example.com", "pw")
	require.NoError(t, err)

	err = svc.CompleteOnboarding(ctx, prefs)
	require.ErrorIs(t, err, client.ErrOnboardingWrite)
	require.Equal(t, models.RouteOnboarding, svc.Snapshot().Route())
}

func TestAuthService_SignOutFailureKeepsSession(t *testing.T) {
	fc := newFakeClient()
	svc := newService(t, fc, setupStore(t))
	ctx := context.Background()

	_, err := svc.SignIn(ctx, "ann@example.com", "pw")
	require.NoError(t, err)

	fc.mu.Lock()
	fc.SignOutErr = client.ErrUnavailable
	fc.mu.Unlock()

	require.ErrorIs(t, svc.SignOut(ctx), client.ErrUnavailable)
	require.NotNil(t, svc.Snapshot().User)
}

func TestAuthService_WhoAmI(t *testing.T) {
	svc := newService(t, newFakeClient(), setupStore(t))
	ctx := context.Background()

	_, err := svc.WhoAmI(ctx)
	require.ErrorIs(t, err, client.ErrNoSession)

	_, err = svc.SignIn(ctx, "ann@example.com", "pw")
	require.NoError(t, err)
	u, err := svc.WhoAmI(ctx)
	require.NoError(t, err)
	require.Equal(t, "ann@example.com", u.Email)
}

func TestAuthService_Subscribe(t *testing.T) {
	svc := newService(t, newFakeClient(), setupStore(t))

	var mu sync.Mutex
	var routes []models.Route
	unsubscribe := svc.Subscribe(func(s models.Snapshot) {
		mu.Lock()
		routes = append(routes, s.Route())
		mu.Unlock()
	})
	defer unsubscribe()

	_, err := svc.SignIn(context.Background(), "ann@example.com", "pw")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(routes) > 0 && routes[len(routes)-1] == models.RouteOnboarding
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, models.RouteLoading, routes[0])
}
