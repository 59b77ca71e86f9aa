// Package store defines the shared state primitive the whole system
// coordinates through: ordered lists with blocking pop, field-mapped
// records, unordered sets, and expiring keys. The blocking pop is the
// only operation required to be a true compare-and-remove primitive;
// everything else is per-key atomic.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNil is returned when a key or list item does not exist, including
// when a blocking pop times out.
var ErrNil = errors.New("store: nil")

// Store is the key-value/queue primitive. Implementations must make each
// call atomic with respect to the single key it touches.
type Store interface {
	// Ordered list operations. BLPop blocks until an item is available,
	// the timeout elapses (ErrNil), or ctx is done. A zero timeout blocks
	// indefinitely.
	RPush(ctx context.Context, key string, values ...string) error
	BLPop(ctx context.Context, timeout time.Duration, key string) (string, error)
	LLen(ctx context.Context, key string) (int64, error)

	// Field-mapped record operations.
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGet(ctx context.Context, key, field string) (string, error)
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HIncrBy(ctx context.Context, key, field string, delta int64) (int64, error)

	// Unordered set operations.
	SAdd(ctx context.Context, key string, members ...string) error
	SRem(ctx context.Context, key string, members ...string) error
	SMembers(ctx context.Context, key string) ([]string, error)
	SCard(ctx context.Context, key string) (int64, error)

	// Expiring keys.
	SetEx(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Exists(ctx context.Context, key string) (bool, error)

	Del(ctx context.Context, keys ...string) error

	Ping(ctx context.Context) error
	Close() error
}
