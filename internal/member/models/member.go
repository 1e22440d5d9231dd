// Package models defines the member aggregate and its lifecycle rules.
package models

import (
	"time"

	id "memberd/pkg/domain"
	dErrors "memberd/pkg/domainerrors"
)

// Status is the member's position in the review lifecycle.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusSuspended Status = "suspended"
)

// ParseStatus validates a status string from the transport layer.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusApproved, StatusRejected, StatusSuspended:
		return Status(s), nil
	}
	return "", dErrors.New(dErrors.CodeInvalidInput, "unknown member status")
}

// CanTransitionTo encodes the lifecycle state machine:
//
//	pending -> approved | rejected
//	approved -> suspended
//	suspended -> approved (reinstatement)
//
// rejected is terminal. Soft deletion is orthogonal and not a status.
func (s Status) CanTransitionTo(target Status) bool {
	switch s {
	case StatusPending:
		return target == StatusApproved || target == StatusRejected
	case StatusApproved:
		return target == StatusSuspended
	case StatusSuspended:
		return target == StatusApproved
	default:
		return false
	}
}

// AMLStatus records the outcome of the screening attempt at creation time.
// Every member carries a definite value; "unchecked" means the provider was
// unreachable and the check must be repeated out of band.
type AMLStatus string

const (
	AMLClear     AMLStatus = "clear"
	AMLMatch     AMLStatus = "match"
	AMLError     AMLStatus = "error"
	AMLUnchecked AMLStatus = "unchecked"
)

// Member is the aggregate root for a registered member.
//
// Invariants:
//   - MemberNumber is unique across all members and immutable once assigned
//   - Status only moves along Status.CanTransitionTo
//   - IndefiniteLeaveToRemain is false when the identity document provider
//     is the home country, and explicitly disclosed when it is foreign
//   - soft-deleted members (DeletedAt set) are excluded from default reads
//     and accept no further transitions
type Member struct {
	ID           id.MemberID         `json:"id"`
	MemberNumber id.MemberNumber     `json:"member_number"`
	TypeID       id.MembershipTypeID `json:"membership_type_id"`

	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	Email       string    `json:"email,omitempty"`
	DateOfBirth time.Time `json:"date_of_birth"`

	DocumentType            string `json:"id_document_type"`
	DocumentNumber          string `json:"id_document_number"`
	DocumentProvider        string `json:"id_document_provider"`
	IndefiniteLeaveToRemain bool   `json:"indefinite_leave_to_remain"`

	AddressLine1 string `json:"address_line1,omitempty"`
	AddressLine2 string `json:"address_line2,omitempty"`
	City         string `json:"city,omitempty"`
	PostalCode   string `json:"postal_code,omitempty"`
	Country      string `json:"country,omitempty"`
	PhotoURL     string `json:"photo_url,omitempty"`

	Status       Status     `json:"status"`
	AMLStatus    AMLStatus  `json:"aml_check_status"`
	AMLCheckedAt *time.Time `json:"aml_check_date,omitempty"`

	ApprovedAt *time.Time `json:"approved_at,omitempty"`
	ApprovedBy id.UserID  `json:"approved_by,omitempty"`
	CreatedBy  id.UserID  `json:"created_by,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`

	DeletedAt *time.Time `json:"deleted_at,omitempty"`
	DeletedBy id.UserID  `json:"deleted_by,omitempty"`
}

func (m *Member) IsDeleted() bool { return m.DeletedAt != nil }

// guardLive rejects any transition on a soft-deleted member.
func (m *Member) guardLive() error {
	if m.IsDeleted() {
		return dErrors.New(dErrors.CodeInvalidTransition, "member is deleted")
	}
	return nil
}

func (m *Member) canMoveTo(target Status) error {
	if err := m.guardLive(); err != nil {
		return err
	}
	if !m.Status.CanTransitionTo(target) {
		return dErrors.New(dErrors.CodeInvalidTransition,
			"cannot transition member from "+string(m.Status)+" to "+string(target))
	}
	return nil
}

// CanApprove checks pending -> approved. Re-approval is rejected rather than
// treated as a no-op: overwriting ApprovedBy and the timestamp would corrupt
// the review history.
func (m *Member) CanApprove() error { return m.canMoveTo(StatusApproved) }

// ApplyApproval transitions to approved and records the reviewer.
func (m *Member) ApplyApproval(actor id.UserID, now time.Time) {
	m.Status = StatusApproved
	m.ApprovedBy = actor
	m.ApprovedAt = &now
	m.UpdatedAt = now
}

// CanReject checks pending -> rejected.
func (m *Member) CanReject() error { return m.canMoveTo(StatusRejected) }

// ApplyRejection transitions to rejected. The reason lives in the audit
// entry, not on the member row.
func (m *Member) ApplyRejection(now time.Time) {
	m.Status = StatusRejected
	m.UpdatedAt = now
}

// CanSuspend checks approved -> suspended.
func (m *Member) CanSuspend() error { return m.canMoveTo(StatusSuspended) }

// ApplySuspension transitions to suspended.
func (m *Member) ApplySuspension(now time.Time) {
	m.Status = StatusSuspended
	m.UpdatedAt = now
}

// CanReinstate checks suspended -> approved. Reinstatement does not touch
// the original approval record.
func (m *Member) CanReinstate() error { return m.canMoveTo(StatusApproved) }

// ApplyReinstatement transitions back to approved.
func (m *Member) ApplyReinstatement(now time.Time) {
	m.Status = StatusApproved
	m.UpdatedAt = now
}

// CanSoftDelete checks the tombstone transition. Deleting twice is invalid.
func (m *Member) CanSoftDelete() error { return m.guardLive() }

// ApplySoftDelete tombstones the member without changing its status, so a
// deleted-but-approved member's history stays reconstructable.
func (m *Member) ApplySoftDelete(actor id.UserID, now time.Time) {
	m.DeletedAt = &now
	m.DeletedBy = actor
	m.UpdatedAt = now
}
