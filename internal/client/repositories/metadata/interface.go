// Package metadata is the local key/value table holding session state: the
// access token and the cached profile of the signed-in user.
package metadata

import (
	"context"
	"time"
)

// Entry is one stored value with the time it was last written.
type Entry struct {
	Key       string
	Value     []byte
	UpdatedAt time.Time
}

type Repository interface {
	// Lookup returns (nil, nil) for a missing key.
	Lookup(ctx context.Context, key string) (*Entry, error)
	// Get returns (nil, nil) for a missing key.
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	// Delete removes every listed key; missing keys are ignored.
	Delete(ctx context.Context, keys ...string) error
}
