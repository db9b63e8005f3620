package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

type object struct {
	data        []byte
	contentType string
}

// MemoryStore keeps objects in process. It backs BACKEND=memory and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]object
	baseURL string
}

func NewMemoryStore(baseURL string) *MemoryStore {
	return &MemoryStore{
		objects: make(map[string]object),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

func (m *MemoryStore) Upload(ctx context.Context, key string, body io.Reader, _ int64, contentType string, upsert bool) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[key]; ok && !upsert {
		return fmt.Errorf("upload %s: %w", key, ErrExists)
	}
	m.objects[key] = object{data: data, contentType: contentType}
	return nil
}

func (m *MemoryStore) Remove(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.objects, k)
	}
	return nil
}

func (m *MemoryStore) PublicURL(key string) string {
	return m.baseURL + "/" + escapeKey(key)
}

// Get returns a stored object. ok is false if key is absent.
func (m *MemoryStore) Get(key string) (data []byte, contentType string, ok bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.objects[key]
	if !ok {
		return nil, "", false
	}
	return bytes.Clone(o.data), o.contentType, true
}

func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
