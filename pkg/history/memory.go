package history

import (
	"context"
	"sync"
	"time"
)

// MemoryBackend implements Backend in memory. It is intended for tests and
// for deployments that do not need durable history.
type MemoryBackend struct {
	mu      sync.RWMutex
	records []*Record
}

// NewMemoryBackend creates an empty in-memory history backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{}
}

// Save appends the records.
func (m *MemoryBackend) Save(ctx context.Context, records []*Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, records...)
	return nil
}

// List returns records for a rule, most recent first.
func (m *MemoryBackend) List(ctx context.Context, ruleID string, limit int) ([]*Record, error) {
	if limit <= 0 {
		limit = 100
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Record
	for i := len(m.records) - 1; i >= 0 && len(out) < limit; i-- {
		if m.records[i].RuleID == ruleID {
			out = append(out, m.records[i])
		}
	}
	return out, nil
}

// Prune removes records recorded before the cutoff.
func (m *MemoryBackend) Prune(ctx context.Context, olderThan time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.records[:0]
	deleted := 0
	for _, rec := range m.records {
		if rec.RecordedAt.Before(olderThan) {
			deleted++
			continue
		}
		kept = append(kept, rec)
	}
	m.records = kept
	return deleted, nil
}

// Close is a no-op for the memory backend.
func (m *MemoryBackend) Close() error {
	return nil
}

// Len returns the number of stored records.
func (m *MemoryBackend) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}
