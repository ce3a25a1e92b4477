package blobsvc

import (
	"context"
	"strings"
	"sync"

	"github.com/reelbingo/promo/core"
)

// MemoryStore keeps files in memory. Used in tests and TEST mode.
// StoreErr and DeleteErr, when set, are returned instead of doing the work.
type MemoryStore struct {
	mu            sync.Mutex
	objects       map[string][]byte
	publicBaseURL string

	StoreErr  error
	DeleteErr error
}

var _ core.BlobStore = (*MemoryStore)(nil)

func NewMemoryStore(publicBaseURL string) *MemoryStore {
	return &MemoryStore{
		objects:       make(map[string][]byte),
		publicBaseURL: strings.TrimSuffix(publicBaseURL, "/"),
	}
}

func (s *MemoryStore) Store(ctx context.Context, data []byte, _, pathHint string) (core.BlobObject, error) {
	if err := ctx.Err(); err != nil {
		return core.BlobObject{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.StoreErr != nil {
		return core.BlobObject{}, s.StoreErr
	}
	key := strings.TrimPrefix(pathHint, "/")
	s.objects[key] = append([]byte(nil), data...)
	return core.BlobObject{Path: key, PublicURL: s.publicBaseURL + "/" + key}, nil
}

func (s *MemoryStore) Delete(_ context.Context, path string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.DeleteErr != nil {
		return false, s.DeleteErr
	}
	if _, ok := s.objects[path]; !ok {
		return false, nil
	}
	delete(s.objects, path)
	return true, nil
}

func (s *MemoryStore) Has(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[path]
	return ok
}

func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}
