package service

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"memberd/internal/audit"
	"memberd/internal/authz"
	"memberd/internal/member/allocator"
	"memberd/internal/member/models"
	memberstore "memberd/internal/member/store"
	typemodels "memberd/internal/membershiptype/models"
	typestore "memberd/internal/membershiptype/store"
	"memberd/internal/platform/metrics"
	"memberd/internal/screening"
	id "memberd/pkg/domain"
	dErrors "memberd/pkg/domainerrors"
	"memberd/pkg/platform/tx"
	"memberd/pkg/requestcontext"
)

type stubScreener struct {
	status models.AMLStatus
}

func (s stubScreener) Screen(context.Context, screening.Subject) models.AMLStatus {
	return s.status
}

type fixture struct {
	service  *Service
	types    *typestore.Memory
	members  *memberstore.Memory
	auditLog *audit.MemoryStore
	typeID   id.MembershipTypeID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	types := typestore.NewMemory()
	members := memberstore.NewMemory()
	auditLog := audit.NewMemoryStore()
	recorder := audit.NewRecorder(auditLog, log)
	m := metrics.NewWith(prometheus.NewRegistry())

	mt, err := typemodels.New(id.NewMembershipTypeID(), "Ordinary", decimal.NewFromInt(20),
		"2025000000", time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, types.CreateIfAvailable(context.Background(), mt))

	svc := New(members, allocator.New(types, members), stubScreener{status: models.AMLClear},
		recorder, tx.Passthrough{}, m, log, "United Kingdom")
	return &fixture{service: svc, types: types, members: members, auditLog: auditLog, typeID: mt.ID}
}

func authedCtx(role string) context.Context {
	ctx := requestcontext.WithActorID(context.Background(), id.NewUserID())
	ctx = requestcontext.WithActorRole(ctx, role)
	return requestcontext.WithTime(ctx, time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC))
}

func (f *fixture) createRequest() *models.CreateMemberRequest {
	return &models.CreateMemberRequest{
		TypeID:           f.typeID,
		FirstName:        "Amina",
		LastName:         "Rahman",
		DateOfBirth:      time.Date(1990, 5, 12, 0, 0, 0, 0, time.UTC),
		DocumentType:     "passport",
		DocumentNumber:   "P1234567",
		DocumentProvider: "United Kingdom",
	}
}

func (f *fixture) entriesFor(action audit.Action) []audit.Entry {
	var out []audit.Entry
	for _, e := range f.auditLog.All() {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}

func TestCreateAssignsSequentialNumbers(t *testing.T) {
	f := newFixture(t)
	ctx := authedCtx(authz.RoleDataEntry)

	first, err := f.service.Create(ctx, f.createRequest())
	require.NoError(t, err)
	second, err := f.service.Create(ctx, f.createRequest())
	require.NoError(t, err)

	assert.Equal(t, id.MemberNumber("2025000000"), first.MemberNumber)
	assert.Equal(t, id.MemberNumber("2025000001"), second.MemberNumber)
	assert.Equal(t, models.StatusPending, first.Status)
	assert.Equal(t, models.AMLClear, first.AMLStatus)
	assert.NotNil(t, first.AMLCheckedAt)
	assert.False(t, first.CreatedBy.IsNil())

	entries := f.entriesFor(audit.ActionCreateMember)
	assert.Len(t, entries, 2)
}

func TestCreateRequiresCapability(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Create(authedCtx(authz.RolePrinter), f.createRequest())
	assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
	assert.Empty(t, f.auditLog.All())
}

func TestCreateUnknownType(t *testing.T) {
	f := newFixture(t)
	req := f.createRequest()
	req.TypeID = id.NewMembershipTypeID()

	_, err := f.service.Create(authedCtx(authz.RoleAdmin), req)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidMembershipType))
}

func TestCreateInactiveType(t *testing.T) {
	f := newFixture(t)
	_, err := f.types.Execute(context.Background(), f.typeID,
		func(*typemodels.MembershipType) error { return nil },
		func(mt *typemodels.MembershipType) { mt.ApplyDeactivation(time.Now().UTC()) })
	require.NoError(t, err)

	_, err = f.service.Create(authedCtx(authz.RoleAdmin), f.createRequest())
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidMembershipType))
}

func TestCreateScreeningNeverBlocks(t *testing.T) {
	f := newFixture(t)
	for _, status := range []models.AMLStatus{models.AMLMatch, models.AMLError, models.AMLUnchecked} {
		f.service.screener = stubScreener{status: status}
		m, err := f.service.Create(authedCtx(authz.RoleAdmin), f.createRequest())
		require.NoError(t, err)
		assert.Equal(t, status, m.AMLStatus)
		if status == models.AMLUnchecked {
			assert.Nil(t, m.AMLCheckedAt)
		} else {
			assert.NotNil(t, m.AMLCheckedAt)
		}
	}
}

func TestCreateAuditFailureFailsCreation(t *testing.T) {
	f := newFixture(t)
	f.auditLog.FailAppends(true)

	_, err := f.service.Create(authedCtx(authz.RoleAdmin), f.createRequest())
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
}

// Concurrent creations must never issue the same number twice. A loser that
// exhausts its retries fails with an explicit concurrency conflict rather
// than silently duplicating.
func TestCreateConcurrentNumbersAreDistinct(t *testing.T) {
	f := newFixture(t)
	ctx := authedCtx(authz.RoleAdmin)
	const workers = 10

	var (
		mu      sync.Mutex
		numbers []id.MemberNumber
		wg      sync.WaitGroup
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m, err := f.service.Create(ctx, f.createRequest())
			if err != nil {
				if !dErrors.HasCode(err, dErrors.CodeConcurrencyConflict) {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			mu.Lock()
			numbers = append(numbers, m.MemberNumber)
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.NotEmpty(t, numbers)
	seen := make(map[id.MemberNumber]bool)
	for _, n := range numbers {
		assert.False(t, seen[n], "number %s issued twice", n)
		seen[n] = true
	}
	assert.Len(t, f.entriesFor(audit.ActionCreateMember), len(numbers))
}

func createApproved(t *testing.T, f *fixture) *models.Member {
	t.Helper()
	m, err := f.service.Create(authedCtx(authz.RoleDataEntry), f.createRequest())
	require.NoError(t, err)
	approved, err := f.service.Approve(authedCtx(authz.RoleApprover), m.ID)
	require.NoError(t, err)
	return approved
}

func TestApproveWritesExactlyOneEntry(t *testing.T) {
	f := newFixture(t)
	m, err := f.service.Create(authedCtx(authz.RoleDataEntry), f.createRequest())
	require.NoError(t, err)

	ctx := authedCtx(authz.RoleApprover)
	approved, err := f.service.Approve(ctx, m.ID)
	require.NoError(t, err)

	assert.Equal(t, models.StatusApproved, approved.Status)
	assert.Equal(t, requestcontext.ActorID(ctx), approved.ApprovedBy)
	assert.Len(t, f.entriesFor(audit.ActionApproveMember), 1)
}

func TestReApproveFailsAndLeavesNoEntry(t *testing.T) {
	f := newFixture(t)
	m := createApproved(t, f)

	_, err := f.service.Approve(authedCtx(authz.RoleApprover), m.ID)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	assert.Len(t, f.entriesFor(audit.ActionApproveMember), 1, "failed re-approval must not add an entry")

	got, err := f.service.Get(authedCtx(authz.RoleApprover), m.ID)
	require.NoError(t, err)
	assert.Equal(t, m.ApprovedBy, got.ApprovedBy, "original reviewer preserved")
}

func TestRejectRequiresReason(t *testing.T) {
	f := newFixture(t)
	m, err := f.service.Create(authedCtx(authz.RoleDataEntry), f.createRequest())
	require.NoError(t, err)

	_, err = f.service.Reject(authedCtx(authz.RoleApprover), m.ID, "   ")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	got, err := f.service.Get(authedCtx(authz.RoleApprover), m.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, got.Status, "state untouched by invalid request")
	assert.Empty(t, f.entriesFor(audit.ActionRejectMember))
}

func TestRejectRecordsReasonInAudit(t *testing.T) {
	f := newFixture(t)
	m, err := f.service.Create(authedCtx(authz.RoleDataEntry), f.createRequest())
	require.NoError(t, err)

	rejected, err := f.service.Reject(authedCtx(authz.RoleApprover), m.ID, "duplicate application")
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, rejected.Status)

	entries := f.entriesFor(audit.ActionRejectMember)
	require.Len(t, entries, 1)
	var payload map[string]any
	require.NoError(t, json.Unmarshal(entries[0].NewValues, &payload))
	assert.Equal(t, "duplicate application", payload["reason"])
}

func TestSuspendAndReinstate(t *testing.T) {
	f := newFixture(t)
	m := createApproved(t, f)
	ctx := authedCtx(authz.RoleAdmin)

	suspended, err := f.service.Suspend(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSuspended, suspended.Status)

	reinstated, err := f.service.Reinstate(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, reinstated.Status)
	assert.Len(t, f.entriesFor(audit.ActionSuspendMember), 1)
	assert.Len(t, f.entriesFor(audit.ActionReinstateMember), 1)
}

func TestSuspendRequiresAdminCapability(t *testing.T) {
	f := newFixture(t)
	m := createApproved(t, f)

	_, err := f.service.Suspend(authedCtx(authz.RoleApprover), m.ID)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
}

func TestSoftDeleteHidesMember(t *testing.T) {
	f := newFixture(t)
	m := createApproved(t, f)
	ctx := authedCtx(authz.RoleAdmin)

	require.NoError(t, f.service.SoftDelete(ctx, m.ID))

	_, err := f.service.Get(ctx, m.ID)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))

	visible, err := f.service.List(ctx, models.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, visible)

	all, err := f.service.List(ctx, models.ListFilter{IncludeDeleted: true})
	require.NoError(t, err)
	assert.Len(t, all, 1)

	err = f.service.SoftDelete(ctx, m.ID)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidTransition))
}

func TestListDeletedMembersRequiresAuditRead(t *testing.T) {
	f := newFixture(t)
	m := createApproved(t, f)
	require.NoError(t, f.service.SoftDelete(authedCtx(authz.RoleAdmin), m.ID))

	_, err := f.service.List(authedCtx(authz.RolePrinter), models.ListFilter{IncludeDeleted: true})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))

	// Without the flag the tombstone is filtered, not forbidden.
	visible, err := f.service.List(authedCtx(authz.RolePrinter), models.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, visible)

	all, err := f.service.List(authedCtx(authz.RoleApprover), models.ListFilter{IncludeDeleted: true})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestUpdateDeletedMemberIsNotFound(t *testing.T) {
	f := newFixture(t)
	m := createApproved(t, f)
	ctx := authedCtx(authz.RoleAdmin)
	require.NoError(t, f.service.SoftDelete(ctx, m.ID))

	email := "ghost@example.org"
	_, err := f.service.Update(ctx, m.ID, &models.UpdateMemberRequest{Email: &email})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestUpdateWritesAuditWithOldAndNew(t *testing.T) {
	f := newFixture(t)
	m, err := f.service.Create(authedCtx(authz.RoleDataEntry), f.createRequest())
	require.NoError(t, err)

	email := "amina@example.org"
	updated, err := f.service.Update(authedCtx(authz.RoleEditor), m.ID, &models.UpdateMemberRequest{Email: &email})
	require.NoError(t, err)
	assert.Equal(t, email, updated.Email)

	entries := f.entriesFor(audit.ActionUpdateMember)
	require.Len(t, entries, 1)
	assert.NotEmpty(t, entries[0].OldValues)
	assert.NotEmpty(t, entries[0].NewValues)
}

func TestUpdateRejectsEmptyPatch(t *testing.T) {
	f := newFixture(t)
	m, err := f.service.Create(authedCtx(authz.RoleDataEntry), f.createRequest())
	require.NoError(t, err)

	_, err = f.service.Update(authedCtx(authz.RoleEditor), m.ID, &models.UpdateMemberRequest{})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}
