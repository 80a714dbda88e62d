package tokenstore

import (
	"context"
	"maps"
	"sync"
)

// KV is a durable key/value medium for credentials.
//
// Get returns (nil, nil) for a missing key. Set writes all values as one
// unit, so an access/refresh pair is never half-persisted. Delete is
// idempotent.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, values map[string][]byte) error
	Delete(ctx context.Context, keys ...string) error
}

// MemoryKV is a process-local KV. Sessions kept in it do not survive a restart.
type MemoryKV struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string][]byte)}
}

func (m *MemoryKV) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.data[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), v...), nil
}

func (m *MemoryKV) Set(_ context.Context, values map[string][]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for k, v := range values {
		m.data[k] = append([]byte(nil), v...)
	}
	return nil
}

func (m *MemoryKV) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

// Snapshot returns a copy of every stored pair.
func (m *MemoryKV) Snapshot() map[string][]byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return maps.Clone(m.data)
}
