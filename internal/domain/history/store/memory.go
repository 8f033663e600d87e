package store

import (
	"context"
	"sync"
)

type memoryStore struct {
	mu      sync.RWMutex
	prompts []string
}

// NewMemory constructs a process-local store. Contents are lost on restart.
func NewMemory() Store {
	return &memoryStore{}
}

func (s *memoryStore) Contains(_ context.Context, prompt string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.prompts {
		if p == prompt {
			return true, nil
		}
	}
	return false, nil
}

func (s *memoryStore) Prepend(_ context.Context, prompt string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append([]string{prompt}, s.prompts...)
	return nil
}

func (s *memoryStore) List(context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.prompts...), nil
}

func (s *memoryStore) Trim(_ context.Context, limit int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit >= 0 && len(s.prompts) > limit {
		s.prompts = s.prompts[:limit]
	}
	return nil
}

func (s *memoryStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = nil
	return nil
}

func (s *memoryStore) Close(context.Context) error {
	return nil
}
