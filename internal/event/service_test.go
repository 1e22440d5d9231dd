package event

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"memberd/internal/audit"
	"memberd/internal/authz"
	membermodels "memberd/internal/member/models"
	memberstore "memberd/internal/member/store"
	"memberd/internal/platform/metrics"
	id "memberd/pkg/domain"
	dErrors "memberd/pkg/domainerrors"
	"memberd/pkg/platform/tx"
	"memberd/pkg/requestcontext"
)

type fixture struct {
	service  *Service
	members  *memberstore.Memory
	auditLog *audit.MemoryStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	members := memberstore.NewMemory()
	auditLog := audit.NewMemoryStore()
	svc := NewService(NewMemoryStore(), members, audit.NewRecorder(auditLog, log),
		tx.Passthrough{}, metrics.NewWith(prometheus.NewRegistry()))
	return &fixture{service: svc, members: members, auditLog: auditLog}
}

func roleCtx(role string) context.Context {
	ctx := requestcontext.WithActorID(context.Background(), id.NewUserID())
	ctx = requestcontext.WithActorRole(ctx, role)
	return requestcontext.WithTime(ctx, time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC))
}

var nextNumber int

func (f *fixture) addMember(t *testing.T, status membermodels.Status, deleted bool) *membermodels.Member {
	t.Helper()
	now := time.Now().UTC()
	nextNumber++
	m := &membermodels.Member{
		ID:           id.NewMemberID(),
		MemberNumber: id.MemberNumber(fmt.Sprintf("9%06d", nextNumber)),
		TypeID:       id.NewMembershipTypeID(),
		Status:       status,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if deleted {
		m.DeletedAt = &now
	}
	require.NoError(t, f.members.Create(context.Background(), m))
	return m
}

func (f *fixture) createEvent(t *testing.T) *Event {
	t.Helper()
	e, err := f.service.CreateEvent(roleCtx(authz.RoleEditor), "Annual General Meeting",
		"yearly gathering", time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC), "Town Hall")
	require.NoError(t, err)
	return e
}

func TestCreateEvent(t *testing.T) {
	f := newFixture(t)
	e := f.createEvent(t)

	assert.Equal(t, "Annual General Meeting", e.Name)
	assert.False(t, e.CreatedBy.IsNil())

	entries := f.auditLog.All()
	require.Len(t, entries, 1)
	assert.Equal(t, audit.ActionCreateEvent, entries[0].Action)
}

func TestCreateEventRequiresEventManage(t *testing.T) {
	f := newFixture(t)
	_, err := f.service.CreateEvent(roleCtx(authz.RolePrinter), "AGM", "", time.Now(), "")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
}

func TestCreateEventValidation(t *testing.T) {
	f := newFixture(t)
	_, err := f.service.CreateEvent(roleCtx(authz.RoleEditor), "  ", "", time.Now(), "")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	_, err = f.service.CreateEvent(roleCtx(authz.RoleEditor), "AGM", "", time.Time{}, "")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestCheckInApprovedMember(t *testing.T) {
	f := newFixture(t)
	e := f.createEvent(t)
	m := f.addMember(t, membermodels.StatusApproved, false)

	ctx := roleCtx(authz.RolePrinter)
	a, err := f.service.CheckIn(ctx, e.ID, m.ID)
	require.NoError(t, err)
	assert.Equal(t, m.ID, a.MemberID)
	assert.Equal(t, requestcontext.ActorID(ctx), a.CheckedInBy)

	list, err := f.service.Attendance(roleCtx(authz.RolePrinter), e.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestCheckInTwiceConflicts(t *testing.T) {
	f := newFixture(t)
	e := f.createEvent(t)
	m := f.addMember(t, membermodels.StatusApproved, false)
	ctx := roleCtx(authz.RolePrinter)

	_, err := f.service.CheckIn(ctx, e.ID, m.ID)
	require.NoError(t, err)
	_, err = f.service.CheckIn(ctx, e.ID, m.ID)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
}

func TestCheckInRejectsNonApprovedMembers(t *testing.T) {
	f := newFixture(t)
	e := f.createEvent(t)
	ctx := roleCtx(authz.RolePrinter)

	for _, status := range []membermodels.Status{
		membermodels.StatusPending, membermodels.StatusRejected, membermodels.StatusSuspended,
	} {
		m := f.addMember(t, status, false)
		_, err := f.service.CheckIn(ctx, e.ID, m.ID)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict), "status %s", status)
	}
}

func TestCheckInDeletedMemberIsNotFound(t *testing.T) {
	f := newFixture(t)
	e := f.createEvent(t)
	m := f.addMember(t, membermodels.StatusApproved, true)

	_, err := f.service.CheckIn(roleCtx(authz.RolePrinter), e.ID, m.ID)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestCheckInUnknownEvent(t *testing.T) {
	f := newFixture(t)
	m := f.addMember(t, membermodels.StatusApproved, false)

	_, err := f.service.CheckIn(roleCtx(authz.RolePrinter), id.NewEventID(), m.ID)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}
