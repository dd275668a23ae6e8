// Package storage is the persisted key/value collaborator used by the stores
// for the session and filter preferences.
package storage

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/kapu/youtube-dashboard-go/pkg/errors"
)

// Storage is a get/set/remove contract over JSON values. Get reports whether
// the key existed; a missing key is not an error.
type Storage interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any) error
	Remove(ctx context.Context, keys ...string) error
}

// MemoryStorage keeps values in process. Used by default and in tests.
type MemoryStorage struct {
	mu     sync.RWMutex
	values map[string][]byte
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: make(map[string][]byte)}
}

func (m *MemoryStorage) Get(_ context.Context, key string, dest any) (bool, error) {
	m.mu.RLock()
	data, ok := m.values[key]
	m.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if dest != nil {
		if err := json.Unmarshal(data, dest); err != nil {
			return true, errors.NewStorageError("unmarshal failed", "get", key, err)
		}
	}
	return true, nil
}

func (m *MemoryStorage) Set(_ context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return errors.NewStorageError("marshal failed", "set", key, err)
	}
	m.mu.Lock()
	m.values[key] = data
	m.mu.Unlock()
	return nil
}

func (m *MemoryStorage) Remove(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.values, key)
	}
	return nil
}

// Has reports whether key is present.
func (m *MemoryStorage) Has(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.values[key]
	return ok
}

// Raw returns the stored JSON for key.
func (m *MemoryStorage) Raw(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.values[key]
	return data, ok
}
