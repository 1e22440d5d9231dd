// Package domain holds the typed identifiers shared across services.
//
// IDs are distinct types over uuid.UUID so a MemberID can never be passed
// where a UserID is expected. Parse helpers enforce the invariant that IDs
// are valid, non-empty, non-nil UUIDs at trust boundaries.
package domain

import (
	"github.com/google/uuid"

	dErrors "memberd/pkg/domainerrors"
)

// UserID identifies a staff user (the acting party on mutations).
type UserID uuid.UUID

// MemberID identifies a registered member.
type MemberID uuid.UUID

// MembershipTypeID identifies a membership type (numbering namespace).
type MembershipTypeID uuid.UUID

// EventID identifies an organization event.
type EventID uuid.UUID

// AuditEntryID identifies an audit log entry.
type AuditEntryID uuid.UUID

func parseUUID(s, kind string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" id is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+kind+" id")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" id cannot be nil")
	}
	return u, nil
}

// ParseUserID validates and returns a UserID.
func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s, "user")
	return UserID(u), err
}

// ParseMemberID validates and returns a MemberID.
func ParseMemberID(s string) (MemberID, error) {
	u, err := parseUUID(s, "member")
	return MemberID(u), err
}

// ParseMembershipTypeID validates and returns a MembershipTypeID.
func ParseMembershipTypeID(s string) (MembershipTypeID, error) {
	u, err := parseUUID(s, "membership type")
	return MembershipTypeID(u), err
}

// ParseEventID validates and returns an EventID.
func ParseEventID(s string) (EventID, error) {
	u, err := parseUUID(s, "event")
	return EventID(u), err
}

func (id UserID) String() string           { return uuid.UUID(id).String() }
func (id MemberID) String() string         { return uuid.UUID(id).String() }
func (id MembershipTypeID) String() string { return uuid.UUID(id).String() }
func (id EventID) String() string          { return uuid.UUID(id).String() }
func (id AuditEntryID) String() string     { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool           { return uuid.UUID(id) == uuid.Nil }
func (id MemberID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }
func (id MembershipTypeID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id EventID) IsNil() bool          { return uuid.UUID(id) == uuid.Nil }
func (id AuditEntryID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }

// Text marshaling renders IDs as canonical UUID strings in JSON; a nil ID
// renders as the empty string so omitempty-style handling stays possible at
// the transport layer.

func marshalID(u uuid.UUID) ([]byte, error) {
	if u == uuid.Nil {
		return []byte(""), nil
	}
	return []byte(u.String()), nil
}

func (id UserID) MarshalText() ([]byte, error)           { return marshalID(uuid.UUID(id)) }
func (id MemberID) MarshalText() ([]byte, error)         { return marshalID(uuid.UUID(id)) }
func (id MembershipTypeID) MarshalText() ([]byte, error) { return marshalID(uuid.UUID(id)) }
func (id EventID) MarshalText() ([]byte, error)          { return marshalID(uuid.UUID(id)) }
func (id AuditEntryID) MarshalText() ([]byte, error)     { return marshalID(uuid.UUID(id)) }

func unmarshalID(b []byte) (uuid.UUID, error) {
	if len(b) == 0 {
		return uuid.Nil, nil
	}
	return uuid.Parse(string(b))
}

func (id *UserID) UnmarshalText(b []byte) error {
	u, err := unmarshalID(b)
	*id = UserID(u)
	return err
}

func (id *MemberID) UnmarshalText(b []byte) error {
	u, err := unmarshalID(b)
	*id = MemberID(u)
	return err
}

func (id *MembershipTypeID) UnmarshalText(b []byte) error {
	u, err := unmarshalID(b)
	*id = MembershipTypeID(u)
	return err
}

func (id *EventID) UnmarshalText(b []byte) error {
	u, err := unmarshalID(b)
	*id = EventID(u)
	return err
}

func (id *AuditEntryID) UnmarshalText(b []byte) error {
	u, err := unmarshalID(b)
	*id = AuditEntryID(u)
	return err
}

// NewUserID returns a fresh random UserID.
func NewUserID() UserID { return UserID(uuid.New()) }

// NewMemberID returns a fresh random MemberID.
func NewMemberID() MemberID { return MemberID(uuid.New()) }

// NewMembershipTypeID returns a fresh random MembershipTypeID.
func NewMembershipTypeID() MembershipTypeID { return MembershipTypeID(uuid.New()) }

// NewEventID returns a fresh random EventID.
func NewEventID() EventID { return EventID(uuid.New()) }

// NewAuditEntryID returns a fresh random AuditEntryID.
func NewAuditEntryID() AuditEntryID { return AuditEntryID(uuid.New()) }
