// Package kv implements repository interfaces on top of a store.Store, one JSON blob per key.
package kv

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/and161185/rollbook/internal/store"
)

// Fixed store keys. Each key is owned by exactly one repository.
const (
	KeyUsers       = "users"
	KeyAttendance  = "attendance"
	KeyCurrentUser = "current_user"
)

type readState int

const (
	stateOK readState = iota
	stateAbsent
	stateCorrupt
)

func (s readState) String() string {
	switch s {
	case stateAbsent:
		return "absent"
	case stateCorrupt:
		return "corrupt"
	}
	return "ok"
}

var schema = validator.New()

// readList loads a JSON array from key. Absence and shape mismatches both yield an empty
// slice; only store faults are returned as errors.
func readList[T any](ctx context.Context, s store.Store, key string, log *zap.Logger) ([]T, readState, error) {
	raw, found, err := s.Get(ctx, key)
	if err != nil {
		return nil, stateOK, err
	}
	if !found {
		log.Debug("collection read", zap.String("key", key), zap.Stringer("state", stateAbsent))
		return []T{}, stateAbsent, nil
	}
	var items []T
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		log.Warn("collection read as empty", zap.String("key", key), zap.Stringer("state", stateCorrupt), zap.Error(err))
		return []T{}, stateCorrupt, nil
	}
	for i := range items {
		if err := schema.Struct(items[i]); err != nil {
			log.Warn("collection read as empty",
				zap.String("key", key), zap.Stringer("state", stateCorrupt), zap.Int("index", i), zap.Error(err))
			return []T{}, stateCorrupt, nil
		}
	}
	if items == nil {
		items = []T{}
	}
	return items, stateOK, nil
}

// readOne loads a single JSON object from key with the same lenient policy as readList.
func readOne[T any](ctx context.Context, s store.Store, key string, log *zap.Logger) (*T, readState, error) {
	raw, found, err := s.Get(ctx, key)
	if err != nil {
		return nil, stateOK, err
	}
	if !found {
		return nil, stateAbsent, nil
	}
	var v T
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		log.Warn("value read as absent", zap.String("key", key), zap.Stringer("state", stateCorrupt), zap.Error(err))
		return nil, stateCorrupt, nil
	}
	if err := schema.Struct(v); err != nil {
		log.Warn("value read as absent", zap.String("key", key), zap.Stringer("state", stateCorrupt), zap.Error(err))
		return nil, stateCorrupt, nil
	}
	return &v, stateOK, nil
}

// write serializes v as one blob under key.
func write(ctx context.Context, s store.Store, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Set(ctx, key, string(b))
}
