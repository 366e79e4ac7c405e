package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"regdesk/pkg/platform/sentinel"
)

// MemoryStore keeps blobs in process memory for tests and local runs.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
	baseURL string
}

type memoryObject struct {
	contentType string
	data        []byte
}

// NewMemory constructs an empty in-memory blob store. URLs are rooted at
// baseURL so URL-shape assertions in tests stay meaningful.
func NewMemory(baseURL string) *MemoryStore {
	if baseURL == "" {
		baseURL = "memory://blobs"
	}
	return &MemoryStore{objects: make(map[string]memoryObject), baseURL: baseURL}
}

func (s *MemoryStore) Put(_ context.Context, path, contentType string, body io.Reader, _ int64) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("read blob body: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[path] = memoryObject{contentType: contentType, data: data}
	return s.baseURL + "/" + path, nil
}

func (s *MemoryStore) Get(_ context.Context, path string) (io.ReadCloser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, found := s.objects[path]
	if !found {
		return nil, sentinel.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(obj.data)), nil
}

func (s *MemoryStore) Delete(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, path)
	return nil
}

// Len reports how many blobs are stored. Test helper.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
