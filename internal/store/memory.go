package store

import (
	"context"
	"sync"
)

// Memory is an in-process Store, used as a test substitute and for ephemeral runs.
type Memory struct {
	mu    sync.RWMutex
	data  map[string]string
	quota int64 // total bytes across keys; 0 = unlimited
}

// NewMemory constructs an empty in-memory store with an optional byte quota.
func NewMemory(quota int64) *Memory {
	return &Memory{data: map[string]string{}, quota: quota}
}

// Get returns the value for key.
func (m *Memory) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, Wrap("get", err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

// Set stores value under key, enforcing the quota.
func (m *Memory) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return Wrap("set", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.quota > 0 {
		need := int64(len(value))
		for k, v := range m.data {
			if k != key {
				need += int64(len(v))
			}
		}
		if need > m.quota {
			return quotaErr(key, need, m.quota)
		}
	}
	m.data[key] = value
	return nil
}

// Remove deletes key.
func (m *Memory) Remove(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return Wrap("remove", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}
