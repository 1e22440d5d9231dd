package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"memberd/internal/member/models"
	id "memberd/pkg/domain"
	"memberd/pkg/platform/sentinel"
)

// Memory is the in-memory member store for unit tests and standalone runs.
// The single mutex covers both number allocation reads and inserts, which is
// what makes allocation safe without a database lock.
type Memory struct {
	mu      sync.Mutex
	members map[id.MemberID]*models.Member
	numbers map[id.MemberNumber]struct{}
}

func NewMemory() *Memory {
	return &Memory{
		members: make(map[id.MemberID]*models.Member),
		numbers: make(map[id.MemberNumber]struct{}),
	}
}

func (s *Memory) Create(_ context.Context, m *models.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.numbers[m.MemberNumber]; taken {
		return sentinel.ErrConflict
	}
	cp := *m
	s.members[m.ID] = &cp
	s.numbers[m.MemberNumber] = struct{}{}
	return nil
}

func (s *Memory) FindByID(_ context.Context, memberID id.MemberID) (*models.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.find(memberID)
}

func (s *Memory) HighestNumberForType(_ context.Context, typeID id.MembershipTypeID) (id.MemberNumber, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var (
		highest id.MemberNumber
		found   bool
	)
	for _, m := range s.members {
		if m.TypeID != typeID {
			continue
		}
		if !found || m.MemberNumber.Cmp(highest) > 0 {
			highest = m.MemberNumber
			found = true
		}
	}
	if !found {
		return "", sentinel.ErrNotFound
	}
	return highest, nil
}

func (s *Memory) List(_ context.Context, filter models.ListFilter) ([]*models.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Member
	for _, m := range s.members {
		if m.IsDeleted() && !filter.IncludeDeleted {
			continue
		}
		if filter.Status != nil && m.Status != *filter.Status {
			continue
		}
		if filter.TypeID != nil && m.TypeID != *filter.TypeID {
			continue
		}
		if filter.Search != "" && !matches(m, filter.Search) {
			continue
		}
		cp := *m
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Memory) Execute(_ context.Context, memberID id.MemberID,
	validate func(*models.Member) error,
	mutate func(*models.Member)) (*models.Member, error) {

	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.find(memberID)
	if err != nil {
		return nil, err
	}
	if err := validate(m); err != nil {
		return nil, err
	}
	mutate(m)
	s.members[memberID] = m
	cp := *m
	return &cp, nil
}

func matches(m *models.Member, q string) bool {
	q = strings.ToLower(q)
	return strings.Contains(strings.ToLower(m.FirstName), q) ||
		strings.Contains(strings.ToLower(m.LastName), q) ||
		strings.Contains(m.MemberNumber.String(), q)
}

// find copies; callers hold the lock.
func (s *Memory) find(memberID id.MemberID) (*models.Member, error) {
	m, ok := s.members[memberID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *m
	return &cp, nil
}
