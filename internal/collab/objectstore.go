package collab

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/voralek/sessguard/internal/core/domain"
)

// ObjectStore holds user-uploaded blobs such as avatars, keyed by an
// opaque string the user record carries.
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, body io.Reader) error
	Get(ctx context.Context, key string) (body io.ReadCloser, contentType string, err error)
	Delete(ctx context.Context, key string) error
}

type memObject struct {
	contentType string
	data        []byte
}

// MemObjectStore keeps objects in process memory. It backs tests and
// single-node deployments without a blob backend.
type MemObjectStore struct {
	mu      sync.RWMutex
	objects map[string]memObject
}

// NewMemObjectStore creates an empty in-memory object store.
func NewMemObjectStore() *MemObjectStore {
	return &MemObjectStore{objects: make(map[string]memObject)}
}

func (s *MemObjectStore) Put(_ context.Context, key, contentType string, body io.Reader) error {
	if key == "" {
		return domain.ErrMissingArgument.WithDetails("object key")
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return domain.ErrStorageError.WithCause(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = memObject{contentType: contentType, data: data}
	return nil
}

func (s *MemObjectStore) Get(_ context.Context, key string) (io.ReadCloser, string, error) {
	s.mu.RLock()
	obj, ok := s.objects[key]
	s.mu.RUnlock()
	if !ok {
		return nil, "", domain.ErrObjectNotFound.WithDetails(key)
	}
	return io.NopCloser(bytes.NewReader(obj.data)), obj.contentType, nil
}

func (s *MemObjectStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}
