package objstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
)

// Memory is an in-process Store keyed by object name. It backs tests and any
// caller that wants the sync engine without a real bucket.
type Memory struct {
	mu      sync.RWMutex
	objects map[string][]byte

	// Corrupt maps keys to replacement bytes served by Get instead of the
	// stored object. Lets tests simulate a tampered or damaged remote.
	corrupt map[string][]byte

	// FailGet holds keys whose Get should fail with a transport error.
	failGet map[string]struct{}
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		objects: make(map[string][]byte),
		corrupt: make(map[string][]byte),
		failGet: make(map[string]struct{}),
	}
}

func (m *Memory) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[key]
	return ok, nil
}

func (m *Memory) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.failGet[key]; ok {
		return nil, fmt.Errorf("get %s: connection reset", key)
	}
	if data, ok := m.corrupt[key]; ok {
		return io.NopCloser(bytes.NewReader(data)), nil
	}
	data, ok := m.objects[key]
	if !ok {
		return nil, fmt.Errorf("get %s: %w", key, ErrNotFound)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *Memory) Put(ctx context.Context, key string, body io.Reader, size int64) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return nil
}

// Object returns a copy of the stored bytes for key.
func (m *Memory) Object(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), data...), true
}

// Keys returns every stored key.
func (m *Memory) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	return keys
}

// Len returns the number of stored objects.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}

// SetObject stores raw bytes directly, bypassing Put.
func (m *Memory) SetObject(key string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = append([]byte(nil), data...)
}

// CorruptObject makes Get serve data for key while Exists still sees the
// original object.
func (m *Memory) CorruptObject(key string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.corrupt[key] = append([]byte(nil), data...)
}

// FailGet makes Get return a transport error for key.
func (m *Memory) FailGet(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failGet[key] = struct{}{}
}
