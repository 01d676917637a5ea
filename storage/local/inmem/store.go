package inmemstore

import (
	"context"
	"sync"

	"github.com/trezcool/jamii/core"
)

// Store keeps records in process memory; they do not survive a restart.
type Store struct {
	mutex sync.RWMutex
	table map[string][]byte
}

var _ core.Storage = (*Store)(nil)

func New() *Store {
	return &Store{table: make(map[string][]byte)}
}

func (s *Store) Load(_ context.Context, key string) ([]byte, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	data, ok := s.table[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), data...), nil
}

func (s *Store) Save(_ context.Context, key string, data []byte) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.table[key] = append([]byte(nil), data...)
	return nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	delete(s.table, key)
	return nil
}

func (s *Store) Close() error { return nil }
