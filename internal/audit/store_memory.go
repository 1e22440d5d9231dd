package audit

import (
	"context"
	"sync"

	id "memberd/pkg/domain"
)

// MemoryStore keeps entries in memory for unit tests and standalone runs.
type MemoryStore struct {
	mu        sync.RWMutex
	entries   []Entry
	published map[id.AuditEntryID]bool
	failing   bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{published: make(map[id.AuditEntryID]bool)}
}

// FailAppends makes every Append return an error. Tests use it to verify
// best-effort versus fail-the-transaction recording policies.
func (s *MemoryStore) FailAppends(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failing = fail
}

func (s *MemoryStore) Append(_ context.Context, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return errAppendFailed
	}
	s.entries = append(s.entries, entry)
	return nil
}

func (s *MemoryStore) ListRecent(_ context.Context, limit int) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter(limit, func(Entry) bool { return true }), nil
}

func (s *MemoryStore) ListByEntity(_ context.Context, entityType, entityID string, limit int) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter(limit, func(e Entry) bool {
		return e.EntityType == entityType && e.EntityID == entityID
	}), nil
}

// filter walks newest-first. Callers hold the lock.
func (s *MemoryStore) filter(limit int, keep func(Entry) bool) []Entry {
	var out []Entry
	for i := len(s.entries) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		if keep(s.entries[i]) {
			out = append(out, s.entries[i])
		}
	}
	return out
}

func (s *MemoryStore) ListUnpublished(_ context.Context, limit int) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Entry
	for _, e := range s.entries {
		if !s.published[e.ID] {
			out = append(out, e)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (s *MemoryStore) MarkPublished(_ context.Context, ids []id.AuditEntryID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, entryID := range ids {
		s.published[entryID] = true
	}
	return nil
}

// All returns every stored entry in append order. Test helper.
func (s *MemoryStore) All() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Entry{}, s.entries...)
}
