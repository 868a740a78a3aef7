// Package metadata is the client's durable key/value table.
package metadata

import (
	"context"
)

// Repository stores opaque values by key. Get returns (nil, nil) when the key
// does not exist.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	DeleteMany(ctx context.Context, keys []string) error
}
