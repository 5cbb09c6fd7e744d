package storage

import (
	"context"
	"strings"
	"sync"
)

// MemoryStorage keeps objects in process memory.
type MemoryStorage struct {
	mu        sync.RWMutex
	objects   map[string][]byte
	publicURL string
}

// NewMemoryStorage creates an empty MemoryStorage whose URLs start with publicURL.
func NewMemoryStorage(publicURL string) *MemoryStorage {
	if publicURL == "" {
		publicURL = "memory://reports"
	}
	return &MemoryStorage{
		objects:   make(map[string][]byte),
		publicURL: strings.TrimSuffix(publicURL, "/"),
	}
}

func (m *MemoryStorage) Put(ctx context.Context, key string, body []byte, contentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = append([]byte(nil), body...)
	return nil
}

func (m *MemoryStorage) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.objects[key]
	if !ok {
		return nil, ErrObjectNotFound
	}
	return append([]byte(nil), b...), nil
}

func (m *MemoryStorage) URL(key string) string {
	return m.publicURL + "/" + key
}

func (m *MemoryStorage) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	delete(m.objects, key)
	m.mu.Unlock()
	return nil
}
