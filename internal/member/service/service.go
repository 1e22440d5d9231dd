// Package service orchestrates member registration and lifecycle management.
package service

import (
	"context"
	"errors"
	"log/slog"

	"memberd/internal/audit"
	"memberd/internal/authz"
	"memberd/internal/member/models"
	"memberd/internal/platform/metrics"
	"memberd/internal/screening"
	id "memberd/pkg/domain"
	dErrors "memberd/pkg/domainerrors"
	"memberd/pkg/platform/sentinel"
	"memberd/pkg/requestcontext"
)

// allocationRetries bounds how often creation re-runs after losing a number
// race. Races are only possible across types of overlapping prefix ranges,
// so one retry nearly always suffices.
const allocationRetries = 3

// Store is the persistence contract for members.
type Store interface {
	// Create inserts the member, returning sentinel.ErrConflict when its
	// member number was taken concurrently.
	Create(ctx context.Context, m *models.Member) error
	FindByID(ctx context.Context, memberID id.MemberID) (*models.Member, error)
	List(ctx context.Context, filter models.ListFilter) ([]*models.Member, error)
	// Execute atomically validates and mutates one member while holding its
	// row lock.
	Execute(ctx context.Context, memberID id.MemberID,
		validate func(*models.Member) error,
		mutate func(*models.Member)) (*models.Member, error)
}

// NumberAllocator issues the next member number for a type. Must be called
// inside the creation transaction so the type lock covers the insert.
type NumberAllocator interface {
	Next(ctx context.Context, typeID id.MembershipTypeID) (id.MemberNumber, error)
}

// Screener runs the AML watchlist check. Implementations degrade to a
// status, never an error.
type Screener interface {
	Screen(ctx context.Context, subject screening.Subject) models.AMLStatus
}

// StoreTx provides a transactional boundary across stores.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Service struct {
	members  Store
	alloc    NumberAllocator
	screener Screener
	audit    *audit.Recorder
	tx       StoreTx
	metrics  *metrics.Metrics
	logger   *slog.Logger

	domesticProvider string
}

func New(members Store, alloc NumberAllocator, screener Screener, recorder *audit.Recorder,
	tx StoreTx, m *metrics.Metrics, logger *slog.Logger, domesticProvider string) *Service {
	return &Service{
		members:          members,
		alloc:            alloc,
		screener:         screener,
		audit:            recorder,
		tx:               tx,
		metrics:          m,
		logger:           logger,
		domesticProvider: domesticProvider,
	}
}

// Create registers a new pending member, allocating its number inside the
// same transaction as the insert. The screening call runs before the
// transaction opens so a slow provider never holds the type lock.
func (s *Service) Create(ctx context.Context, req *models.CreateMemberRequest) (*models.Member, error) {
	if err := requireCapability(ctx, authz.MemberCreate); err != nil {
		return nil, err
	}
	if err := req.Validate(s.domesticProvider); err != nil {
		return nil, err
	}

	amlStatus := s.screener.Screen(ctx,
		screening.NewSubject(req.FirstName, req.LastName, req.DateOfBirth, req.DocumentNumber))

	now := requestcontext.Now(ctx)
	actor := requestcontext.ActorID(ctx)

	var created *models.Member
	for attempt := 1; ; attempt++ {
		err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
			number, err := s.alloc.Next(txCtx, req.TypeID)
			if err != nil {
				return err
			}
			m := req.NewMember(id.NewMemberID(), number, actor, now)
			m.AMLStatus = amlStatus
			if amlStatus != models.AMLUnchecked {
				checkedAt := now
				m.AMLCheckedAt = &checkedAt
			}
			if err := s.members.Create(txCtx, m); err != nil {
				if errors.Is(err, sentinel.ErrConflict) {
					return err
				}
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create member")
			}
			if err := s.audit.Record(txCtx, audit.Entry{
				Action:     audit.ActionCreateMember,
				EntityType: audit.EntityMember,
				EntityID:   m.ID.String(),
				NewValues:  audit.Snapshot(m),
			}); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record audit entry")
			}
			created = m
			return nil
		})
		if err == nil {
			break
		}
		if errors.Is(err, sentinel.ErrConflict) && attempt < allocationRetries {
			s.metrics.AllocationConflicts.Inc()
			s.logger.WarnContext(ctx, "member number race lost, retrying",
				"attempt", attempt,
				"membership_type_id", req.TypeID.String(),
				"request_id", requestcontext.RequestID(ctx))
			continue
		}
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConcurrencyConflict,
				"member number allocation kept losing races, try again")
		}
		return nil, err
	}

	s.metrics.MembersCreated.Inc()
	return created, nil
}

// Get returns one live member. Tombstoned members read as absent.
func (s *Service) Get(ctx context.Context, memberID id.MemberID) (*models.Member, error) {
	m, err := s.members.FindByID(ctx, memberID)
	if err != nil {
		return nil, wrapMemberErr(err)
	}
	if m.IsDeleted() {
		return nil, dErrors.New(dErrors.CodeNotFound, "member not found")
	}
	return m, nil
}

// List returns members matching the filter. Tombstoned members are an audit
// surface, so asking for them takes the audit capability.
func (s *Service) List(ctx context.Context, filter models.ListFilter) ([]*models.Member, error) {
	if filter.IncludeDeleted {
		if err := requireCapability(ctx, authz.AuditRead); err != nil {
			return nil, err
		}
	}
	return s.members.List(ctx, filter)
}

// Update patches contact details. Identity, type, member number and status
// are out of reach; those move only through lifecycle transitions.
func (s *Service) Update(ctx context.Context, memberID id.MemberID, req *models.UpdateMemberRequest) (*models.Member, error) {
	if err := requireCapability(ctx, authz.MemberUpdate); err != nil {
		return nil, err
	}
	if req.Empty() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "update contains no fields")
	}

	now := requestcontext.Now(ctx)
	var (
		updated *models.Member
		before  []byte
	)
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		m, err := s.members.Execute(txCtx, memberID,
			func(m *models.Member) error {
				if m.IsDeleted() {
					return dErrors.New(dErrors.CodeNotFound, "member not found")
				}
				before = audit.Snapshot(m)
				return nil
			},
			func(m *models.Member) { req.Apply(m, now) },
		)
		if err != nil {
			return wrapMemberErr(err)
		}
		if err := s.audit.Record(txCtx, audit.Entry{
			Action:     audit.ActionUpdateMember,
			EntityType: audit.EntityMember,
			EntityID:   m.ID.String(),
			OldValues:  before,
			NewValues:  audit.Snapshot(m),
		}); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record audit entry")
		}
		updated = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func requireCapability(ctx context.Context, c authz.Capability) error {
	if !authz.Allow(requestcontext.ActorRole(ctx), c) {
		return dErrors.New(dErrors.CodeForbidden, "missing capability "+string(c))
	}
	return nil
}

func wrapMemberErr(err error) error {
	var coded *dErrors.Error
	switch {
	case errors.As(err, &coded):
		return err
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "member not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "member conflict")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "member store error")
	}
}
