// Package store defines the key/value persistence substrate and its local implementations.
//
// A Store keeps one opaque text blob per key. It never inspects the blob; callers own
// serialization and shape checks. All failures are reported wrapped in errs.ErrStorage.
package store

import (
	"context"
	"fmt"

	"github.com/and161185/rollbook/internal/errs"
)

// Store is a durable text blob store scoped by key.
type Store interface {
	// Get returns the blob stored under key. found is false when the key is absent.
	Get(ctx context.Context, key string) (value string, found bool, err error)
	// Set replaces the blob stored under key.
	Set(ctx context.Context, key, value string) error
	// Remove deletes key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error
}

// Pinger is implemented by stores backed by a remote substrate.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Ping checks s if it supports it; local stores are always healthy.
func Ping(ctx context.Context, s Store) error {
	if p, ok := s.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Wrap marks err as a storage fault for op.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, errs.ErrStorage, err)
}

func quotaErr(key string, need, quota int64) error {
	return fmt.Errorf("set %q: %w: %w (need %d bytes, quota %d)", key, errs.ErrStorage, errs.ErrQuotaExceeded, need, quota)
}
