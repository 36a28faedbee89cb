package readings

import "context"

// KeyValueStore is the time-series cache holding raw readings and day memos.
type KeyValueStore interface {
	// ScanPrefix returns all keys starting with prefix, sorted ascending.
	ScanPrefix(ctx context.Context, prefix string) ([]string, error)
	// HasPrefix reports whether any key starts with prefix, stopping at the first match.
	HasPrefix(ctx context.Context, prefix string) (bool, error)
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	// SetIfAbsent writes value only when key does not exist yet.
	SetIfAbsent(ctx context.Context, key, value string) (bool, error)
}
