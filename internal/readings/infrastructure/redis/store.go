package redis

import (
	"context"
	"errors"
	"sort"
	"strings"

	goredis "github.com/redis/go-redis/v9"
)

const defaultScanCount = 1000

// Store is a Redis implementation of the readings key-value cache.
type Store struct {
	client    goredis.UniversalClient
	scanCount int64
}

// NewStore wraps an existing Redis client.
func NewStore(client goredis.UniversalClient, opts ...StoreOption) (*Store, error) {
	if client == nil {
		return nil, errors.New("readings redis: nil client")
	}
	store := &Store{client: client, scanCount: defaultScanCount}
	for _, opt := range opts {
		opt(store)
	}
	return store, nil
}

// StoreOption configures the store.
type StoreOption func(*Store)

// WithScanCount overrides the SCAN COUNT hint.
func WithScanCount(count int64) StoreOption {
	return func(store *Store) {
		if count > 0 {
			store.scanCount = count
		}
	}
}

// ScanPrefix iterates SCAN MATCH prefix* and returns sorted keys.
func (s *Store) ScanPrefix(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, escapePattern(prefix)+"*", s.scanCount).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}

// HasPrefix walks SCAN MATCH prefix* only until the first key is returned.
func (s *Store) HasPrefix(ctx context.Context, prefix string) (bool, error) {
	iter := s.client.Scan(ctx, 0, escapePattern(prefix)+"*", s.scanCount).Iterator()
	if iter.Next(ctx) {
		return true, nil
	}
	return false, iter.Err()
}

// Get loads a key; a missing key is reported as ok=false.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// Set writes a key without expiry.
func (s *Store) Set(ctx context.Context, key, value string) error {
	return s.client.Set(ctx, key, value, 0).Err()
}

// SetIfAbsent writes a key only if it does not exist (SETNX).
func (s *Store) SetIfAbsent(ctx context.Context, key, value string) (bool, error) {
	return s.client.SetNX(ctx, key, value, 0).Result()
}

var patternEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

func escapePattern(prefix string) string {
	return patternEscaper.Replace(prefix)
}
