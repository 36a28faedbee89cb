package audit

import (
	"context"
	"sync"
	"time"
)

// MemoryLogger keeps entries in memory for tests and local runs.
type MemoryLogger struct {
	mu      sync.Mutex
	entries []Entry
}

// Log records an entry.
func (m *MemoryLogger) Log(ctx context.Context, entry Entry) error {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, prepare(entry, time.Now()))
	return nil
}

// Entries returns a copy of the recorded entries.
func (m *MemoryLogger) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Entry(nil), m.entries...)
}
