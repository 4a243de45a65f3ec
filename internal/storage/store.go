package storage

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ErrCapacityExceeded is returned by Put when the record limit is reached
// and the key is not already stored.
var ErrCapacityExceeded = errors.New("table size exceeded limit")

type Record struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

// Store is a single key->value table. Implementations must be safe for
// concurrent use; writes are serialized, reads may run in parallel.
type Store interface {
	Get(key string) (value string, found bool, err error)
	Put(key, value string) error
	Count() (int, error)
	// ListPrefix returns the keys starting with prefix, with prefix
	// stripped, sorted by key.
	ListPrefix(prefix string) ([]string, error)
	All() ([]Record, error)
	Close() error
}

func capacityError(count, limit int) error {
	return fmt.Errorf("%w: %d >= %d", ErrCapacityExceeded, count, limit)
}

type MemoryStore struct {
	mu         sync.RWMutex
	maxRecords int
	data       map[string]string
}

func NewMemoryStore(maxRecords int) *MemoryStore {
	return &MemoryStore{
		maxRecords: maxRecords,
		data:       map[string]string{},
	}
}

func (m *MemoryStore) Get(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *MemoryStore) Put(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.data[key]; !exists && m.maxRecords > 0 && len(m.data) >= m.maxRecords {
		return capacityError(len(m.data), m.maxRecords)
	}
	m.data[key] = value
	return nil
}

func (m *MemoryStore) Count() (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data), nil
}

func (m *MemoryStore) ListPrefix(prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := []string{}
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k[len(prefix):])
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *MemoryStore) All() ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Record, 0, len(m.data))
	for k, v := range m.data {
		out = append(out, Record{Key: k, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (m *MemoryStore) Close() error { return nil }
