package storage

import (
	"context"
	"sync"
)

// MemoryStorage keeps keys in process memory. A positive quota bounds the
// summed size of keys and values.
type MemoryStorage struct {
	mu    sync.RWMutex
	data  map[string]string
	quota int64
}

func NewMemoryStorage(quota int64) *MemoryStorage {
	return &MemoryStorage{
		data:  make(map[string]string),
		quota: quota,
	}
}

func (s *MemoryStorage) GetItem(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *MemoryStorage) SetItem(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.quota > 0 && usage(s.data, key, value) > s.quota {
		return ErrQuotaExceeded
	}
	s.data[key] = value
	return nil
}

func (s *MemoryStorage) RemoveItem(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

func (s *MemoryStorage) Close() error {
	return nil
}

// usage is the size the map would have after setting key to value.
func usage(data map[string]string, key, value string) int64 {
	var n int64
	for k, v := range data {
		if k == key {
			continue
		}
		n += int64(len(k) + len(v))
	}
	return n + int64(len(key)+len(value))
}
