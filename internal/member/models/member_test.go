package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "memberd/pkg/domain"
	dErrors "memberd/pkg/domainerrors"
)

func TestStatusTransitionMatrix(t *testing.T) {
	all := []Status{StatusPending, StatusApproved, StatusRejected, StatusSuspended}
	allowed := map[Status][]Status{
		StatusPending:   {StatusApproved, StatusRejected},
		StatusApproved:  {StatusSuspended},
		StatusSuspended: {StatusApproved},
		StatusRejected:  {},
	}

	for _, from := range all {
		for _, to := range all {
			want := false
			for _, ok := range allowed[from] {
				if ok == to {
					want = true
				}
			}
			assert.Equal(t, want, from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus("approved")
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, s)

	_, err = ParseStatus("deleted")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func pendingMember() *Member {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return &Member{
		ID:           id.NewMemberID(),
		MemberNumber: "2025000000",
		Status:       StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestApproveRecordsReviewer(t *testing.T) {
	m := pendingMember()
	actor := id.NewUserID()
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	require.NoError(t, m.CanApprove())
	m.ApplyApproval(actor, now)

	assert.Equal(t, StatusApproved, m.Status)
	assert.Equal(t, actor, m.ApprovedBy)
	require.NotNil(t, m.ApprovedAt)
	assert.Equal(t, now, *m.ApprovedAt)
}

func TestReApproveIsInvalidTransition(t *testing.T) {
	m := pendingMember()
	m.ApplyApproval(id.NewUserID(), time.Now().UTC())

	err := m.CanApprove()
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidTransition))
}

func TestRejectIsTerminal(t *testing.T) {
	m := pendingMember()
	require.NoError(t, m.CanReject())
	m.ApplyRejection(time.Now().UTC())

	assert.True(t, dErrors.HasCode(m.CanApprove(), dErrors.CodeInvalidTransition))
	assert.True(t, dErrors.HasCode(m.CanReject(), dErrors.CodeInvalidTransition))
	assert.True(t, dErrors.HasCode(m.CanSuspend(), dErrors.CodeInvalidTransition))
}

func TestSuspendAndReinstateKeepApprovalRecord(t *testing.T) {
	m := pendingMember()
	actor := id.NewUserID()
	approvedAt := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	m.ApplyApproval(actor, approvedAt)

	require.NoError(t, m.CanSuspend())
	m.ApplySuspension(approvedAt.Add(time.Hour))
	assert.Equal(t, StatusSuspended, m.Status)

	require.NoError(t, m.CanReinstate())
	m.ApplyReinstatement(approvedAt.Add(2 * time.Hour))
	assert.Equal(t, StatusApproved, m.Status)
	assert.Equal(t, actor, m.ApprovedBy)
	assert.Equal(t, approvedAt, *m.ApprovedAt)
}

func TestDeletedMemberAcceptsNoTransitions(t *testing.T) {
	m := pendingMember()
	m.ApplySoftDelete(id.NewUserID(), time.Now().UTC())

	assert.True(t, m.IsDeleted())
	assert.Equal(t, StatusPending, m.Status, "deletion must not change status")
	for _, err := range []error{m.CanApprove(), m.CanReject(), m.CanSuspend(), m.CanSoftDelete()} {
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	}
}

func validCreateRequest() *CreateMemberRequest {
	return &CreateMemberRequest{
		TypeID:           id.NewMembershipTypeID(),
		FirstName:        "Amina",
		LastName:         "Rahman",
		DateOfBirth:      time.Date(1990, 5, 12, 0, 0, 0, 0, time.UTC),
		DocumentType:     "passport",
		DocumentNumber:   "P1234567",
		DocumentProvider: "United Kingdom",
	}
}

func TestCreateRequestDomesticProviderForcesILRFalse(t *testing.T) {
	req := validCreateRequest()
	ilr := true
	req.IndefiniteLeaveToRemain = &ilr

	require.NoError(t, req.Validate("United Kingdom"))
	require.NotNil(t, req.IndefiniteLeaveToRemain)
	assert.False(t, *req.IndefiniteLeaveToRemain)
}

func TestCreateRequestForeignProviderRequiresILRAnswer(t *testing.T) {
	req := validCreateRequest()
	req.DocumentProvider = "France"
	req.IndefiniteLeaveToRemain = nil

	err := req.Validate("United Kingdom")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	ilr := true
	req.IndefiniteLeaveToRemain = &ilr
	require.NoError(t, req.Validate("United Kingdom"))
	assert.True(t, *req.IndefiniteLeaveToRemain)
}

func TestCreateRequestMissingFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CreateMemberRequest)
	}{
		{"no type", func(r *CreateMemberRequest) { r.TypeID = id.MembershipTypeID{} }},
		{"no first name", func(r *CreateMemberRequest) { r.FirstName = "  " }},
		{"no last name", func(r *CreateMemberRequest) { r.LastName = "" }},
		{"no date of birth", func(r *CreateMemberRequest) { r.DateOfBirth = time.Time{} }},
		{"no document number", func(r *CreateMemberRequest) { r.DocumentNumber = "" }},
		{"no document provider", func(r *CreateMemberRequest) { r.DocumentProvider = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validCreateRequest()
			tt.mutate(req)
			err := req.Validate("United Kingdom")
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
		})
	}
}

func TestUpdateRequestApply(t *testing.T) {
	m := pendingMember()
	email := "new@example.org"
	city := "Manchester"
	req := &UpdateMemberRequest{Email: &email, City: &city}

	assert.False(t, req.Empty())
	now := time.Now().UTC()
	req.Apply(m, now)

	assert.Equal(t, "new@example.org", m.Email)
	assert.Equal(t, "Manchester", m.City)
	assert.Equal(t, now, m.UpdatedAt)
	assert.Empty(t, m.PostalCode, "untouched fields stay untouched")
}

func TestUpdateRequestEmpty(t *testing.T) {
	assert.True(t, (&UpdateMemberRequest{}).Empty())
}
