package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"memberd/internal/membershiptype/models"
	id "memberd/pkg/domain"
	"memberd/pkg/platform/sentinel"
)

// Memory is the in-memory membership type store for unit tests and
// standalone runs.
type Memory struct {
	mu    sync.Mutex
	types map[id.MembershipTypeID]*models.MembershipType
}

func NewMemory() *Memory {
	return &Memory{types: make(map[id.MembershipTypeID]*models.MembershipType)}
}

func (s *Memory) CreateIfAvailable(_ context.Context, t *models.MembershipType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.types {
		if strings.EqualFold(existing.Name, t.Name) || existing.IDPrefix == t.IDPrefix {
			return sentinel.ErrConflict
		}
	}
	cp := *t
	s.types[t.ID] = &cp
	return nil
}

func (s *Memory) FindByID(_ context.Context, typeID id.MembershipTypeID) (*models.MembershipType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.find(typeID)
}

// Lock matches the postgres store's signature; serialization in memory is
// provided by the member store's create mutex, so this is a plain fetch.
func (s *Memory) Lock(ctx context.Context, typeID id.MembershipTypeID) (*models.MembershipType, error) {
	return s.FindByID(ctx, typeID)
}

func (s *Memory) List(_ context.Context) ([]*models.MembershipType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.MembershipType, 0, len(s.types))
	for _, t := range s.types {
		cp := *t
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Memory) Execute(_ context.Context, typeID id.MembershipTypeID,
	validate func(*models.MembershipType) error,
	mutate func(*models.MembershipType)) (*models.MembershipType, error) {

	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.find(typeID)
	if err != nil {
		return nil, err
	}
	if err := validate(t); err != nil {
		return nil, err
	}
	mutate(t)
	s.types[typeID] = t
	cp := *t
	return &cp, nil
}

// find copies; callers hold the lock.
func (s *Memory) find(typeID id.MembershipTypeID) (*models.MembershipType, error) {
	t, ok := s.types[typeID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *t
	return &cp, nil
}
