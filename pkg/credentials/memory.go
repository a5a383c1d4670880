package credentials

import (
	"sync"
)

// MemoryBackend keeps credentials in process memory
type MemoryBackend struct {
	values map[string]string
	mu     sync.RWMutex
}

// NewMemoryBackend creates an empty memory backend
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		values: make(map[string]string),
	}
}

// Load retrieves the values stored under keys
func (m *MemoryBackend) Load(keys ...string) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	found := make(map[string]string, len(keys))
	for _, key := range keys {
		if value, ok := m.values[key]; ok {
			found[key] = value
		}
	}
	return found, nil
}

// Apply stores set and deletes remove under one lock
func (m *MemoryBackend) Apply(set map[string]string, remove []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, key := range remove {
		delete(m.values, key)
	}
	for key, value := range set {
		m.values[key] = value
	}
	return nil
}

// Close is a no-op for memory storage
func (m *MemoryBackend) Close() error {
	return nil
}
