package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/and161185/rollbook/internal/store"
)

// KV implements store.Store over the kv_store table.
type KV struct{ db *DB }

var _ store.Store = (*KV)(nil)
var _ store.Pinger = (*KV)(nil)

// NewKV constructs a key/value store.
func NewKV(db *DB) *KV { return &KV{db: db} }

// Get selects the value for key.
func (s *KV) Get(ctx context.Context, key string) (string, bool, error) {
	const q = `SELECT value FROM kv_store WHERE key=$1`
	var v string
	if err := s.db.Pool.QueryRow(ctx, q, key).Scan(&v); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, store.Wrap("pg get", err)
	}
	return v, true, nil
}

// Set upserts the value for key.
func (s *KV) Set(ctx context.Context, key, value string) error {
	const q = `
INSERT INTO kv_store (key, value, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (key) DO UPDATE SET value=EXCLUDED.value, updated_at=now()`
	_, err := s.db.Pool.Exec(ctx, q, key, value)
	return store.Wrap("pg set", err)
}

// Remove deletes the row for key; zero affected rows is fine.
func (s *KV) Remove(ctx context.Context, key string) error {
	const q = `DELETE FROM kv_store WHERE key=$1`
	_, err := s.db.Pool.Exec(ctx, q, key)
	return store.Wrap("pg delete", err)
}

// Ping checks the pool.
func (s *KV) Ping(ctx context.Context) error {
	return store.Wrap("pg ping", s.db.Pool.Ping(ctx))
}
