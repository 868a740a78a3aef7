package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/dailybread/internal/client/cache"
	"github.com/dmitrijs2005/dailybread/internal/client/models"
	"github.com/dmitrijs2005/dailybread/internal/common"
)

// SessionStore persists the authority session across restarts.
type SessionStore interface {
	Load(ctx context.Context) (*models.Session, error)
	Save(ctx context.Context, s *models.Session) error
	Clear(ctx context.Context) error
}

// CacheSessionStore keeps the session as JSON in a cache.Store.
type CacheSessionStore struct {
	store cache.Store
}

var _ SessionStore = (*CacheSessionStore)(nil)

func NewCacheSessionStore(store cache.Store) *CacheSessionStore {
	return &CacheSessionStore{store: store}
}

func (s *CacheSessionStore) Load(ctx context.Context) (*models.Session, error) {
	raw, ok, err := s.store.Get(ctx, common.SessionStoreKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	var sess models.Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		return nil, fmt.Errorf("decode stored session: %w", err)
	}
	return &sess, nil
}

func (s *CacheSessionStore) Save(ctx context.Context, sess *models.Session) error {
	b, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return s.store.Set(ctx, common.SessionStoreKey, string(b))
}

func (s *CacheSessionStore) Clear(ctx context.Context) error {
	return s.store.RemoveAll(ctx, []string{common.SessionStoreKey})
}
