// Package service orchestrates membership type lifecycle management.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"memberd/internal/audit"
	"memberd/internal/authz"
	"memberd/internal/membershiptype/models"
	id "memberd/pkg/domain"
	dErrors "memberd/pkg/domainerrors"
	"memberd/pkg/platform/sentinel"
	"memberd/pkg/requestcontext"
)

// Store is the persistence contract for membership types.
type Store interface {
	// CreateIfAvailable inserts the type unless its name or prefix is
	// already taken, in which case it returns sentinel.ErrConflict.
	CreateIfAvailable(ctx context.Context, t *models.MembershipType) error
	FindByID(ctx context.Context, typeID id.MembershipTypeID) (*models.MembershipType, error)
	List(ctx context.Context) ([]*models.MembershipType, error)
	// Execute atomically validates and mutates one type while holding its
	// row lock (FOR UPDATE in postgres, a mutex in memory).
	Execute(ctx context.Context, typeID id.MembershipTypeID,
		validate func(*models.MembershipType) error,
		mutate func(*models.MembershipType)) (*models.MembershipType, error)
}

// StoreTx provides a transactional boundary across stores.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Service struct {
	types Store
	audit *audit.Recorder
	tx    StoreTx
}

func New(types Store, recorder *audit.Recorder, tx StoreTx) *Service {
	return &Service{types: types, audit: recorder, tx: tx}
}

// Create registers a new membership type. Requires the type:manage capability.
func (s *Service) Create(ctx context.Context, name string, fee decimal.Decimal, idPrefix string) (*models.MembershipType, error) {
	if err := requireCapability(ctx, authz.TypeManage); err != nil {
		return nil, err
	}

	var created *models.MembershipType
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		t, err := models.New(id.NewMembershipTypeID(), name, fee, idPrefix, requestcontext.Now(txCtx))
		if err != nil {
			return err
		}
		if err := s.types.CreateIfAvailable(txCtx, t); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict, "membership type name and prefix must be unique")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create membership type")
		}
		if err := s.audit.Record(txCtx, audit.Entry{
			Action:     audit.ActionCreateType,
			EntityType: audit.EntityMembershipType,
			EntityID:   t.ID.String(),
			NewValues:  audit.Snapshot(t),
		}); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record audit entry")
		}
		created = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Get returns one membership type.
func (s *Service) Get(ctx context.Context, typeID id.MembershipTypeID) (*models.MembershipType, error) {
	t, err := s.types.FindByID(ctx, typeID)
	if err != nil {
		return nil, wrapTypeErr(err)
	}
	return t, nil
}

// List returns all membership types, active and inactive.
func (s *Service) List(ctx context.Context) ([]*models.MembershipType, error) {
	return s.types.List(ctx)
}

// Deactivate stops new member creation for the type.
func (s *Service) Deactivate(ctx context.Context, typeID id.MembershipTypeID) (*models.MembershipType, error) {
	return s.transition(ctx, typeID, audit.ActionDeactivateType,
		func(t *models.MembershipType) error { return t.CanDeactivate() },
		func(t *models.MembershipType, now time.Time) { t.ApplyDeactivation(now) })
}

// Reactivate re-enables member creation for the type.
func (s *Service) Reactivate(ctx context.Context, typeID id.MembershipTypeID) (*models.MembershipType, error) {
	return s.transition(ctx, typeID, audit.ActionReactivateType,
		func(t *models.MembershipType) error { return t.CanReactivate() },
		func(t *models.MembershipType, now time.Time) { t.ApplyReactivation(now) })
}

// transition runs the validate-then-mutate callback pair under the type's
// row lock and writes the audit entry in the same transaction.
func (s *Service) transition(ctx context.Context, typeID id.MembershipTypeID, action audit.Action,
	validate func(*models.MembershipType) error,
	apply func(*models.MembershipType, time.Time)) (*models.MembershipType, error) {
	if err := requireCapability(ctx, authz.TypeManage); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	var updated *models.MembershipType
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		t, err := s.types.Execute(txCtx, typeID,
			func(t *models.MembershipType) error {
				if err := validate(t); err != nil {
					if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
						return dErrors.New(dErrors.CodeConflict, dErrors.MessageOf(err))
					}
					return err
				}
				return nil
			},
			func(t *models.MembershipType) { apply(t, now) },
		)
		if err != nil {
			return wrapTypeErr(err)
		}
		if err := s.audit.Record(txCtx, audit.Entry{
			Action:     action,
			EntityType: audit.EntityMembershipType,
			EntityID:   t.ID.String(),
			NewValues:  audit.Snapshot(t),
		}); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record audit entry")
		}
		updated = t
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

func wrapTypeErr(err error) error {
	var coded *dErrors.Error
	switch {
	case errors.As(err, &coded):
		return err
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "membership type not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "membership type conflict")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "membership type store error")
	}
}
