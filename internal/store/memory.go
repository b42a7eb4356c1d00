package store

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by a memory store after Close.
var ErrClosed = errors.New("store is closed")

// MemoryStore keeps records in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string][]byte
	closed  bool

	// FailSave, when set, is returned by Save for the named records. Tests
	// use it to simulate a failing backend.
	FailSave map[string]error
	// FailDelete does the same for Delete.
	FailDelete map[string]error
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string][]byte),
	}
}

func (s *MemoryStore) Load(ctx context.Context, name string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}

	data, ok := s.records[name]
	if !ok {
		return nil, ErrRecordNotFound
	}

	return append([]byte(nil), data...), nil
}

func (s *MemoryStore) Save(ctx context.Context, name string, data []byte) error {
	if err := validName(name); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if err, ok := s.FailSave[name]; ok && err != nil {
		return err
	}

	s.records[name] = append([]byte(nil), data...)
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if err, ok := s.FailDelete[name]; ok && err != nil {
		return err
	}

	delete(s.records, name)
	return nil
}

func (s *MemoryStore) HealthCheck(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrClosed
	}
	return nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}

// Names lists the stored record names.
func (s *MemoryStore) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.records))
	for name := range s.records {
		names = append(names, name)
	}
	return names
}
