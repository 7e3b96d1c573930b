package authcache

import (
	"context"
	"sync"
)

// Memory is the process-local backend. Its content is lost on restart.
type Memory struct {
	mu    sync.RWMutex
	flags map[int64]bool
}

// NewMemory returns an empty cache.
func NewMemory() *Memory {
	return &Memory{flags: make(map[int64]bool)}
}

// Get implements Cache.
func (m *Memory) Get(_ context.Context, userID int64) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.flags[userID], nil
}

// Set implements Cache.
func (m *Memory) Set(_ context.Context, userID int64, authenticated bool) error {
	m.mu.Lock()
	m.flags[userID] = authenticated
	m.mu.Unlock()
	return nil
}

// Delete implements Cache.
func (m *Memory) Delete(_ context.Context, userID int64) error {
	m.mu.Lock()
	delete(m.flags, userID)
	m.mu.Unlock()
	return nil
}
