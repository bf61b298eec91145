package limiter

import (
	"context"
	"encoding/hex"
	"sync"
	"time"
)

type attempt struct {
	fails        int
	updatedAt    time.Time
	blockedUntil time.Time
}

// Memory is an in-process limiter for single-instance deployments.
type Memory struct {
	mu    sync.Mutex
	p     Policy
	byKey map[string]*attempt
	now   func() time.Time
}

var _ Limiter = (*Memory)(nil)

// NewMemory constructs an in-process limiter.
func NewMemory(p Policy) *Memory {
	return &Memory{p: p.normalized(), byKey: make(map[string]*attempt), now: time.Now}
}

func memKey(username string, ipHash []byte) string {
	return username + "|" + hex.EncodeToString(ipHash)
}

func (m *Memory) Allow(_ context.Context, username string, ipHash []byte) (bool, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byKey[memKey(username, ipHash)]
	if !ok {
		return true, 0, nil
	}
	if now := m.now(); a.blockedUntil.After(now) {
		return false, a.blockedUntil.Sub(now), nil
	}
	return true, 0, nil
}

func (m *Memory) Success(_ context.Context, username string, ipHash []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byKey, memKey(username, ipHash))
	return nil
}

func (m *Memory) Failure(_ context.Context, username string, ipHash []byte) (bool, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	k := memKey(username, ipHash)
	a, ok := m.byKey[k]
	if !ok || now.Sub(a.updatedAt) > m.p.Window {
		a = &attempt{}
		m.byKey[k] = a
	}
	a.fails++
	a.updatedAt = now
	if a.fails >= m.p.MaxFails {
		a.blockedUntil = now.Add(m.p.BlockFor)
		a.fails = 0
		return true, m.p.BlockFor, nil
	}
	return false, 0, nil
}
