package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/persistorai/auditrail/internal/models"
)

// MemoryStore is an in-process, append-only audit store.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []models.AuditEntry
	ids     map[string]struct{}
	seq     int64
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{ids: make(map[string]struct{})}
}

// InsertBatch appends entries atomically: either all are stored or none.
// The assigned Seq of each entry is written back into entries.
func (m *MemoryStore) InsertBatch(ctx context.Context, entries []models.AuditEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if len(entries) == 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	seen := make(map[string]struct{}, len(entries))
	for i := range entries {
		id := entries[i].ID
		if _, ok := m.ids[id]; ok {
			return fmt.Errorf("inserting audit entries: %w", models.ErrDuplicateEntry)
		}

		if _, ok := seen[id]; ok {
			return fmt.Errorf("inserting audit entries: %w", models.ErrDuplicateEntry)
		}

		seen[id] = struct{}{}
	}

	for i := range entries {
		m.seq++
		entries[i].Seq = m.seq

		e := entries[i]
		e.ChangedAt = e.ChangedAt.UTC()

		m.entries = append(m.entries, e)
		m.ids[e.ID] = struct{}{}
	}

	return nil
}

// QueryAudit returns entries matching q, newest first.
func (m *MemoryStore) QueryAudit(ctx context.Context, q models.AuditQuery) ([]models.AuditEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()

	out := make([]models.AuditEntry, 0)
	for i := range m.entries {
		if matches(&m.entries[i], q) {
			out = append(out, m.entries[i])
		}
	}

	m.mu.RUnlock()

	sortNewestFirst(out)

	if limit := clampLimit(q.Limit); limit > 0 && len(out) > limit {
		out = out[:limit]
	}

	return out, nil
}

// Len returns the number of stored entries.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.entries)
}
