package event

import (
	"context"
	"sort"
	"sync"

	id "memberd/pkg/domain"
	"memberd/pkg/platform/sentinel"
)

// MemoryStore is the in-memory event store for unit tests and standalone runs.
type MemoryStore struct {
	mu         sync.Mutex
	events     map[id.EventID]*Event
	attendance map[id.EventID][]*Attendance
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		events:     make(map[id.EventID]*Event),
		attendance: make(map[id.EventID][]*Attendance),
	}
}

func (s *MemoryStore) CreateEvent(_ context.Context, e *Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *e
	s.events[e.ID] = &cp
	return nil
}

func (s *MemoryStore) FindEvent(_ context.Context, eventID id.EventID) (*Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[eventID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (s *MemoryStore) ListEvents(_ context.Context) ([]*Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Event, 0, len(s.events))
	for _, e := range s.events {
		cp := *e
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (s *MemoryStore) CreateAttendance(_ context.Context, a *Attendance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[a.EventID]; !ok {
		return sentinel.ErrNotFound
	}
	for _, existing := range s.attendance[a.EventID] {
		if existing.MemberID == a.MemberID {
			return sentinel.ErrConflict
		}
	}
	cp := *a
	s.attendance[a.EventID] = append(s.attendance[a.EventID], &cp)
	return nil
}

func (s *MemoryStore) ListAttendance(_ context.Context, eventID id.EventID) ([]*Attendance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	src := s.attendance[eventID]
	out := make([]*Attendance, 0, len(src))
	for _, a := range src {
		cp := *a
		out = append(out, &cp)
	}
	return out, nil
}
