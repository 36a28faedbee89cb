package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// Store is an in-memory key-value cache for tests and local runs.
type Store struct {
	mu   sync.RWMutex
	data map[string]string
	sets int
}

// NewStore constructs an empty store.
func NewStore() *Store {
	return &Store{data: make(map[string]string)}
}

// ScanPrefix returns matching keys in ascending order.
func (s *Store) ScanPrefix(ctx context.Context, prefix string) ([]string, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0)
	for key := range s.data {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// HasPrefix reports whether any key starts with prefix.
func (s *Store) HasPrefix(ctx context.Context, prefix string) (bool, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	for key := range s.data {
		if strings.HasPrefix(key, prefix) {
			return true, nil
		}
	}
	return false, nil
}

// Get loads a value.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.data[key]
	return value, ok, nil
}

// Set writes a value.
func (s *Store) Set(ctx context.Context, key, value string) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	s.sets++
	return nil
}

// SetIfAbsent writes a value when the key is missing.
func (s *Store) SetIfAbsent(ctx context.Context, key, value string) (bool, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[key]; ok {
		return false, nil
	}
	s.data[key] = value
	s.sets++
	return true, nil
}

// Delete removes a key.
func (s *Store) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
}

// Writes returns the number of successful writes so far.
func (s *Store) Writes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sets
}
