// Package memory provides the default in-process SharedMemory implementation.
package memory

import (
	"strings"
	"sync"

	"github.com/supermean/supermean/core"
)

// InMemoryStore is a process-local core.SharedMemory. Every write is atomic
// at entry granularity; reads never observe a partially written value.
//
// Suitable for single-process deployments, tests and demos; swap for a
// durable store when cross-process visibility is required.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries map[string]any
}

// NewInMemoryStore creates an empty in-memory shared memory.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{entries: make(map[string]any)}
}

// Get returns the value stored under key and whether it exists.
func (m *InMemoryStore) Get(key string) (any, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.entries[key]
	return v, ok
}

// Put stores value under key, replacing any previous value.
func (m *InMemoryStore) Put(key string, value any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = value
	return nil
}

// Delete removes key. Deleting an absent key is a no-op.
func (m *InMemoryStore) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

// Keys lists stored keys beginning with prefix. An empty prefix lists all keys.
func (m *InMemoryStore) Keys(prefix string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.entries))
	for k := range m.entries {
		if prefix == "" || strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys
}

// Snapshot returns a shallow copy of all entries for inspection. The copy is
// detached; mutating it does not affect the store.
func (m *InMemoryStore) Snapshot() map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]any, len(m.entries))
	for k, v := range m.entries {
		out[k] = v
	}
	return out
}

var _ core.SharedMemory = (*InMemoryStore)(nil)
