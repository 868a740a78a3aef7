package services

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/dailybread/internal/common"
	"github.com/dmitrijs2005/dailybread/internal/dbx"
	"github.com/dmitrijs2005/dailybread/internal/server/models"
	"github.com/dmitrijs2005/dailybread/internal/server/repositories/preferences"
	"github.com/dmitrijs2005/dailybread/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/dailybread/internal/server/repositories/users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// store is an in-memory stand-in for the three tables. Writes made through a
// transaction are applied immediately; tests that need rollback semantics
// assert on the sqlmock expectations instead.
type store struct {
	mu     sync.Mutex
	users  map[string]*models.User
	tokens map[string]*models.RefreshToken
	prefs  map[string]*models.Preferences

	failUsers  error
	failTokens error
	failPrefs  error
}

func newStore() *store {
	return &store{
		users:  map[string]*models.User{},
		tokens: map[string]*models.RefreshToken{},
		prefs:  map[string]*models.Preferences{},
	}
}

type fakeUsers struct{ s *store }

func (f fakeUsers) Create(_ context.Context, u *models.User) (*models.User, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.failUsers != nil {
		return nil, f.s.failUsers
	}
	for _, existing := range f.s.users {
		if existing.Email == u.Email {
			return nil, common.ErrorAlreadyExists
		}
	}
	cp := *u
	cp.CreatedAt = time.Now()
	f.s.users[u.ID] = &cp
	out := cp
	return &out, nil
}

func (f fakeUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.failUsers != nil {
		return nil, f.s.failUsers
	}
	for _, u := range f.s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f fakeUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.failUsers != nil {
		return nil, f.s.failUsers
	}
	u, ok := f.s.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

func (f fakeUsers) SetOnboarded(_ context.Context, id string, v bool) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.failUsers != nil {
		return f.s.failUsers
	}
	u, ok := f.s.users[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.IsOnboarded = v
	return nil
}

type fakeTokens struct{ s *store }

func (f fakeTokens) Create(_ context.Context, userID, token string, validity time.Duration) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.failTokens != nil {
		return f.s.failTokens
	}
	f.s.tokens[token] = &models.RefreshToken{UserID: userID, Token: token, Expires: time.Now().Add(validity)}
	return nil
}

func (f fakeTokens) Find(_ context.Context, token string) (*models.RefreshToken, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.failTokens != nil {
		return nil, f.s.failTokens
	}
	t, ok := f.s.tokens[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *t
	return &cp, nil
}

func (f fakeTokens) Delete(_ context.Context, token string) (bool, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.failTokens != nil {
		return false, f.s.failTokens
	}
	_, ok := f.s.tokens[token]
	delete(f.s.tokens, token)
	return ok, nil
}

func (f fakeTokens) DeleteByUser(_ context.Context, userID string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.failTokens != nil {
		return f.s.failTokens
	}
	for k, t := range f.s.tokens {
		if t.UserID == userID {
			delete(f.s.tokens, k)
		}
	}
	return nil
}

type fakePrefs struct{ s *store }

func (f fakePrefs) Upsert(_ context.Context, p *models.Preferences) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.failPrefs != nil {
		return f.s.failPrefs
	}
	cp := *p
	cp.UpdatedAt = time.Now()
	f.s.prefs[p.UserID] = &cp
	return nil
}

func (f fakePrefs) Get(_ context.Context, userID string) (*models.Preferences, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.failPrefs != nil {
		return nil, f.s.failPrefs
	}
	p, ok := f.s.prefs[userID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *p
	return &cp, nil
}

type fakeRepoManager struct{ s *store }

func (m fakeRepoManager) RunMigrations(context.Context, *sql.DB) error    { return nil }
func (m fakeRepoManager) Users(dbx.DBTX) users.Repository                 { return fakeUsers{m.s} }
func (m fakeRepoManager) RefreshTokens(dbx.DBTX) refreshtokens.Repository { return fakeTokens{m.s} }
func (m fakeRepoManager) Preferences(dbx.DBTX) preferences.Repository     { return fakePrefs{m.s} }

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return db, mock
}

func expectTx(mock sqlmock.Sqlmock, commit bool) {
	mock.ExpectBegin()
	if commit {
		mock.ExpectCommit()
	} else {
		mock.ExpectRollback()
	}
}
