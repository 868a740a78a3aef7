package cache

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"github.com/dmitrijs2005/dailybread/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/dailybread/internal/common"
	"github.com/dmitrijs2005/dailybread/internal/cryptox"
)

// Store is a key/value store that reports its failures.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	RemoveAll(ctx context.Context, keys []string) error
}

// saltKey holds the per-device argon2 salt in plaintext.
const saltKey = "__store_salt"

// SecureStore seals every value before it reaches the metadata table.
type SecureStore struct {
	repo metadata.Repository
	key  []byte
}

var _ Store = (*SecureStore)(nil)

// NewSecureStore loads (or creates) the device salt and derives the sealing key
// from secret.
func NewSecureStore(ctx context.Context, repo metadata.Repository, secret []byte) (*SecureStore, error) {
	salt, err := repo.Get(ctx, saltKey)
	if err != nil {
		return nil, fmt.Errorf("%w: load salt: %w", ErrCacheIO, err)
	}
	if salt == nil {
		salt = common.GenerateRandByteArray(16)
		if err := repo.Set(ctx, saltKey, salt); err != nil {
			return nil, fmt.Errorf("%w: store salt: %w", ErrCacheIO, err)
		}
	}
	return &SecureStore{repo: repo, key: cryptox.DeriveKey(secret, salt)}, nil
}

func (s *SecureStore) Get(ctx context.Context, key string) (string, bool, error) {
	sealed, err := s.repo.Get(ctx, key)
	if err != nil {
		return "", false, fmt.Errorf("%w: %w", ErrCacheIO, err)
	}
	if sealed == nil {
		return "", false, nil
	}
	plain, err := cryptox.Open(s.key, sealed, []byte(key))
	if err != nil {
		return "", false, fmt.Errorf("%w: open %s: %w", ErrCacheIO, key, err)
	}
	return string(plain), true, nil
}

func (s *SecureStore) Set(ctx context.Context, key, value string) error {
	sealed, err := cryptox.Seal(s.key, []byte(value), []byte(key))
	if err != nil {
		return fmt.Errorf("%w: seal %s: %w", ErrCacheIO, key, err)
	}
	if err := s.repo.Set(ctx, key, sealed); err != nil {
		return fmt.Errorf("%w: %w", ErrCacheIO, err)
	}
	return nil
}

func (s *SecureStore) RemoveAll(ctx context.Context, keys []string) error {
	if err := s.repo.DeleteMany(ctx, keys); err != nil {
		return fmt.Errorf("%w: %w", ErrCacheIO, err)
	}
	return nil
}

// MemoryStore is a process-local Store. The zero value is ready to use.
type MemoryStore struct {
	mu     sync.Mutex
	values map[string]string
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.values == nil {
		m.values = make(map[string]string)
	}
	m.values[key] = value
	return nil
}

func (m *MemoryStore) RemoveAll(_ context.Context, keys []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}

// Dump returns a copy of the stored values.
func (m *MemoryStore) Dump() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return maps.Clone(m.values)
}
