package store

import (
	"context"
	"sync"
)

// MemoryBlob is an in-process BlobStore used in tests and when R2 is not
// configured.
type MemoryBlob struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewMemoryBlob() *MemoryBlob {
	return &MemoryBlob{blobs: make(map[string][]byte)}
}

func (m *MemoryBlob) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	m.blobs[key] = cp
	return nil
}

func (m *MemoryBlob) Download(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.blobs[key]
	if !ok {
		return nil, ErrBlobNotFound
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

func (m *MemoryBlob) Copy(ctx context.Context, src, dst string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.blobs[src]
	if !ok {
		return ErrBlobNotFound
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	m.blobs[dst] = cp
	return nil
}

func (m *MemoryBlob) Rename(ctx context.Context, src, dst string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.blobs[src]
	if !ok {
		return ErrBlobNotFound
	}
	m.blobs[dst] = data
	delete(m.blobs, src)
	return nil
}

func (m *MemoryBlob) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, key)
	return nil
}

func (m *MemoryBlob) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.blobs[key]
	return ok, nil
}

// Len reports the number of stored blobs.
func (m *MemoryBlob) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.blobs)
}
