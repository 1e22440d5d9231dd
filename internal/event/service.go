package event

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"memberd/internal/audit"
	"memberd/internal/authz"
	membermodels "memberd/internal/member/models"
	"memberd/internal/platform/metrics"
	id "memberd/pkg/domain"
	dErrors "memberd/pkg/domainerrors"
	"memberd/pkg/platform/sentinel"
	"memberd/pkg/requestcontext"
)

// Store is the persistence contract for events and attendance.
type Store interface {
	CreateEvent(ctx context.Context, e *Event) error
	FindEvent(ctx context.Context, eventID id.EventID) (*Event, error)
	ListEvents(ctx context.Context) ([]*Event, error)
	// CreateAttendance returns sentinel.ErrConflict when the member already
	// checked in to the event.
	CreateAttendance(ctx context.Context, a *Attendance) error
	ListAttendance(ctx context.Context, eventID id.EventID) ([]*Attendance, error)
}

// MemberDirectory looks up members for check-in eligibility. The member
// store satisfies it.
type MemberDirectory interface {
	FindByID(ctx context.Context, memberID id.MemberID) (*membermodels.Member, error)
}

// StoreTx provides a transactional boundary across stores.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Service struct {
	store   Store
	members MemberDirectory
	audit   *audit.Recorder
	tx      StoreTx
	metrics *metrics.Metrics
}

func NewService(store Store, members MemberDirectory, recorder *audit.Recorder,
	tx StoreTx, m *metrics.Metrics) *Service {
	return &Service{store: store, members: members, audit: recorder, tx: tx, metrics: m}
}

// CreateEvent registers an event. Requires the event:manage capability.
func (s *Service) CreateEvent(ctx context.Context, name, description string, date time.Time, location string) (*Event, error) {
	if err := requireCapability(ctx, authz.EventManage); err != nil {
		return nil, err
	}

	var created *Event
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		e, err := NewEvent(id.NewEventID(), name, description, date, location,
			requestcontext.ActorID(txCtx), requestcontext.Now(txCtx))
		if err != nil {
			return err
		}
		if err := s.store.CreateEvent(txCtx, e); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create event")
		}
		if err := s.audit.Record(txCtx, audit.Entry{
			Action:     audit.ActionCreateEvent,
			EntityType: audit.EntityEvent,
			EntityID:   e.ID.String(),
			NewValues:  audit.Snapshot(e),
		}); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record audit entry")
		}
		created = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// GetEvent returns one event.
func (s *Service) GetEvent(ctx context.Context, eventID id.EventID) (*Event, error) {
	e, err := s.store.FindEvent(ctx, eventID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "event not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "event store error")
	}
	return e, nil
}

// ListEvents returns all events, most recent first.
func (s *Service) ListEvents(ctx context.Context) ([]*Event, error) {
	return s.store.ListEvents(ctx)
}

// CheckIn records a member's attendance at an event. Only live approved
// members may check in, and only once per event.
func (s *Service) CheckIn(ctx context.Context, eventID id.EventID, memberID id.MemberID) (*Attendance, error) {
	if err := requireCapability(ctx, authz.EventCheckIn); err != nil {
		return nil, err
	}

	var created *Attendance
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := s.store.FindEvent(txCtx, eventID); err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "event not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "event store error")
		}

		m, err := s.members.FindByID(txCtx, memberID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "member not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "member store error")
		}
		if m.IsDeleted() {
			return dErrors.New(dErrors.CodeNotFound, "member not found")
		}
		if m.Status != membermodels.StatusApproved {
			return dErrors.New(dErrors.CodeConflict, "only approved members can check in")
		}

		a := &Attendance{
			ID:          uuid.New(),
			EventID:     eventID,
			MemberID:    memberID,
			CheckInTime: requestcontext.Now(txCtx),
			CheckedInBy: requestcontext.ActorID(txCtx),
		}
		if err := s.store.CreateAttendance(txCtx, a); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict, "member already checked in to this event")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record attendance")
		}
		if err := s.audit.Record(txCtx, audit.Entry{
			Action:     audit.ActionCheckInMember,
			EntityType: audit.EntityEvent,
			EntityID:   eventID.String(),
			NewValues:  audit.Snapshot(a),
		}); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record audit entry")
		}
		created = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.EventCheckIns.Inc()
	return created, nil
}

// Attendance lists check-ins for one event.
func (s *Service) Attendance(ctx context.Context, eventID id.EventID) ([]*Attendance, error) {
	if _, err := s.GetEvent(ctx, eventID); err != nil {
		return nil, err
	}
	return s.store.ListAttendance(ctx, eventID)
}

func requireCapability(ctx context.Context, c authz.Capability) error {
	if !authz.Allow(requestcontext.ActorRole(ctx), c) {
		return dErrors.New(dErrors.CodeForbidden, "missing capability "+string(c))
	}
	return nil
}
