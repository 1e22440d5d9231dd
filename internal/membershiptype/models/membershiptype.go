package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	id "memberd/pkg/domain"
	dErrors "memberd/pkg/domainerrors"
)

// MembershipType is a category of membership defining a fee and a numbering
// namespace.
//
// Invariants:
//   - Name is non-empty, at most 50 characters, unique case-insensitively
//   - IDPrefix is a non-empty digit string, unique across types, and fixed
//     for the life of the type (member numbers derive from it)
//   - Fee is non-negative
//   - Types are never deleted, only deactivated; deactivation stops new
//     member creation for the type but leaves existing members untouched
type MembershipType struct {
	ID        id.MembershipTypeID `json:"id"`
	Name      string              `json:"name"`
	Fee       decimal.Decimal     `json:"fee"`
	IDPrefix  string              `json:"id_prefix"`
	Active    bool                `json:"is_active"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

func New(typeID id.MembershipTypeID, name string, fee decimal.Decimal, idPrefix string, now time.Time) (*MembershipType, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "membership type name is required")
	}
	if len(name) > 50 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "membership type name must be 50 characters or less")
	}
	if fee.IsNegative() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "fee cannot be negative")
	}
	if _, err := id.ParseMemberNumber(idPrefix); err != nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "id prefix must be a non-empty digit string")
	}
	return &MembershipType{
		ID:        typeID,
		Name:      name,
		Fee:       fee,
		IDPrefix:  idPrefix,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// FirstNumber is the member number assigned to the first member of this type.
func (t *MembershipType) FirstNumber() id.MemberNumber {
	return id.MemberNumber(t.IDPrefix)
}

// CanDeactivate checks the transition to inactive.
func (t *MembershipType) CanDeactivate() error {
	if !t.Active {
		return dErrors.New(dErrors.CodeInvariantViolation, "membership type is already inactive")
	}
	return nil
}

// ApplyDeactivation transitions the type to inactive.
func (t *MembershipType) ApplyDeactivation(now time.Time) {
	t.Active = false
	t.UpdatedAt = now
}

// CanReactivate checks the transition to active.
func (t *MembershipType) CanReactivate() error {
	if t.Active {
		return dErrors.New(dErrors.CodeInvariantViolation, "membership type is already active")
	}
	return nil
}

// ApplyReactivation transitions the type to active.
func (t *MembershipType) ApplyReactivation(now time.Time) {
	t.Active = true
	t.UpdatedAt = now
}
