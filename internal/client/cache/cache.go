package cache

import (
	"context"

	"github.com/dmitrijs2005/dailybread/internal/logging"
)

// Cache never fails: a read failure is a miss and a write failure is skipped.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string)
	RemoveAll(ctx context.Context, keys []string)
}

// Logged adapts a Store to Cache, logging every swallowed failure.
type Logged struct {
	store Store
	log   logging.Logger
}

var _ Cache = (*Logged)(nil)

func NewLogged(store Store, log logging.Logger) *Logged {
	return &Logged{store: store, log: log}
}

func (l *Logged) Get(ctx context.Context, key string) (string, bool) {
	v, ok, err := l.store.Get(ctx, key)
	if err != nil {
		l.log.Warn(ctx, "cache read failed, treating as miss", "key", key, "err", err)
		return "", false
	}
	l.log.Debug(ctx, "cache get", "key", key, "hit", ok)
	return v, ok
}

func (l *Logged) Set(ctx context.Context, key, value string) {
	if err := l.store.Set(ctx, key, value); err != nil {
		l.log.Warn(ctx, "cache write skipped", "key", key, "err", err)
		return
	}
	l.log.Debug(ctx, "cache set", "key", key)
}

func (l *Logged) RemoveAll(ctx context.Context, keys []string) {
	if err := l.store.RemoveAll(ctx, keys); err != nil {
		l.log.Warn(ctx, "cache erase skipped", "keys", keys, "err", err)
		return
	}
	l.log.Debug(ctx, "cache removed", "keys", keys)
}
