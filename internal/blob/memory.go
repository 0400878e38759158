package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
)

// memBlob holds the raw data and content type for one in-memory blob.
type memBlob struct {
	Data        []byte
	ContentType string
}

// MemoryStore implements the Store interface using an in-memory map. It is
// used in tests and for ephemeral deployments where durability does not
// matter.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string]memBlob
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string]memBlob)}
}

// Put stores the blob bytes in memory, overwriting any existing entry.
func (s *MemoryStore) Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (string, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("reading blob data: %w", err)
	}

	s.mu.Lock()
	s.blobs[key] = memBlob{Data: data, ContentType: contentType}
	s.mu.Unlock()

	return "mem://" + key, nil
}

// Get returns a reader over a copy of the stored bytes.
func (s *MemoryStore) Get(ctx context.Context, key string) (*Object, error) {
	s.mu.RLock()
	b, ok := s.blobs[key]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%q: %w", key, ErrNotExist)
	}

	return &Object{
		Body:        io.NopCloser(bytes.NewReader(b.Data)),
		Size:        int64(len(b.Data)),
		ContentType: b.ContentType,
	}, nil
}

// Delete removes the blob from memory. Idempotent.
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	delete(s.blobs, key)
	s.mu.Unlock()
	return nil
}

// Exists reports whether a blob is stored at the key.
func (s *MemoryStore) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.RLock()
	_, ok := s.blobs[key]
	s.mu.RUnlock()
	return ok, nil
}

// Len returns the number of stored blobs. Used by tests.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}
