package credstore

import (
	"context"
	"sync"

	"github.com/pitchside/pitchside-go/internal/types"
)

// memoryStore keeps the record in process memory. Used by tests and as
// a fallback when no durable medium is configured.
type memoryStore struct {
	mu  sync.RWMutex
	set *types.StoredCredentialSet
}

func newMemoryStore() *memoryStore { return &memoryStore{} }

func (s *memoryStore) Write(ctx context.Context, set *types.StoredCredentialSet) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cp := *set
	s.mu.Lock()
	s.set = &cp
	s.mu.Unlock()
	return nil
}

func (s *memoryStore) Read(ctx context.Context) (*types.StoredCredentialSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.set == nil {
		return nil, nil
	}
	cp := *s.set
	return &cp, nil
}

func (s *memoryStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.set = nil
	s.mu.Unlock()
	return nil
}

func (s *memoryStore) Close() error {
	s.mu.Lock()
	s.set = nil
	s.mu.Unlock()
	return nil
}
