// Package redis implements store.Store on top of a Redis server.
package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/and161185/rollbook/internal/store"
)

// Store keeps each key as a plain Redis string under a shared prefix.
type Store struct {
	client *redis.Client
	prefix string
}

var _ store.Store = (*Store)(nil)
var _ store.Pinger = (*Store)(nil)

// New wraps an existing client.
func New(client *redis.Client, prefix string) *Store {
	return &Store{client: client, prefix: prefix}
}

// Dial connects with short timeouts. The connection is lazy; use Ping to verify it.
func Dial(addr, prefix string) *Store {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  1 * time.Second,
		WriteTimeout: 1 * time.Second,
	})
	return New(client, prefix)
}

func (s *Store) key(k string) string { return s.prefix + k }

// Get returns the value for key; redis.Nil means absent.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, store.Wrap("redis get", err)
	}
	return v, true, nil
}

// Set stores value without expiry.
func (s *Store) Set(ctx context.Context, key, value string) error {
	return store.Wrap("redis set", s.client.Set(ctx, s.key(key), value, 0).Err())
}

// Remove deletes key; DEL on a missing key is a no-op.
func (s *Store) Remove(ctx context.Context, key string) error {
	return store.Wrap("redis del", s.client.Del(ctx, s.key(key)).Err())
}

// Ping verifies connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return store.Wrap("redis ping", s.client.Ping(ctx).Err())
}

// Close releases the client.
func (s *Store) Close() error { return s.client.Close() }

// Client exposes the underlying client so other components can share the connection.
func (s *Store) Client() *redis.Client { return s.client }
