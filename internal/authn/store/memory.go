package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"memberd/internal/authn/models"
	id "memberd/pkg/domain"
	"memberd/pkg/platform/sentinel"
)

// Memory is the in-memory user store for unit tests and standalone runs.
type Memory struct {
	mu    sync.Mutex
	users map[id.UserID]*models.User
}

func NewMemory() *Memory {
	return &Memory{users: make(map[id.UserID]*models.User)}
}

func (s *Memory) Create(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if strings.EqualFold(existing.Username, u.Username) || strings.EqualFold(existing.Email, u.Email) {
			return sentinel.ErrConflict
		}
	}
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *Memory) FindByUsername(_ context.Context, username string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *Memory) FindByID(_ context.Context, userID id.UserID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.find(userID)
}

func (s *Memory) List(_ context.Context) ([]*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.User, 0, len(s.users))
	for _, u := range s.users {
		cp := *u
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (s *Memory) Execute(_ context.Context, userID id.UserID,
	validate func(*models.User) error,
	mutate func(*models.User)) (*models.User, error) {

	s.mu.Lock()
	defer s.mu.Unlock()
	u, err := s.find(userID)
	if err != nil {
		return nil, err
	}
	if err := validate(u); err != nil {
		return nil, err
	}
	mutate(u)
	s.users[userID] = u
	cp := *u
	return &cp, nil
}

// find copies; callers hold the lock.
func (s *Memory) find(userID id.UserID) (*models.User, error) {
	u, ok := s.users[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *u
	return &cp, nil
}
