package audit

import (
	"encoding/json"
	"time"

	id "memberd/pkg/domain"
)

// Action labels a state-changing operation in the audit trail.
type Action string

const (
	ActionCreateMember    Action = "CREATE_MEMBER"
	ActionUpdateMember    Action = "UPDATE_MEMBER"
	ActionApproveMember   Action = "APPROVE_MEMBER"
	ActionRejectMember    Action = "REJECT_MEMBER"
	ActionSuspendMember   Action = "SUSPEND_MEMBER"
	ActionReinstateMember Action = "REINSTATE_MEMBER"
	ActionDeleteMember    Action = "DELETE_MEMBER"
	ActionCreateType      Action = "CREATE_MEMBERSHIP_TYPE"
	ActionDeactivateType  Action = "DEACTIVATE_MEMBERSHIP_TYPE"
	ActionReactivateType  Action = "REACTIVATE_MEMBERSHIP_TYPE"
	ActionCreateEvent     Action = "CREATE_EVENT"
	ActionCheckInMember   Action = "CHECK_IN_MEMBER"
	ActionLogin           Action = "LOGIN"
	ActionCreateUser      Action = "CREATE_USER"
	ActionDeactivateUser  Action = "DEACTIVATE_USER"
)

// Entity type labels used in entries.
const (
	EntityMember         = "member"
	EntityMembershipType = "membership_type"
	EntityEvent          = "event"
	EntityUser           = "user"
)

// Entry is one append-only audit record. ActorID is nil-valued for actions
// without an authenticated user. Old/NewValues are JSON snapshots of the
// entity (or operation payload) before and after the change.
type Entry struct {
	ID         id.AuditEntryID `json:"id"`
	ActorID    id.UserID       `json:"actor_id,omitempty"`
	Action     Action          `json:"action"`
	EntityType string          `json:"entity_type"`
	EntityID   string          `json:"entity_id,omitempty"`
	OldValues  json.RawMessage `json:"old_values,omitempty"`
	NewValues  json.RawMessage `json:"new_values,omitempty"`
	IP         string          `json:"ip,omitempty"`
	UserAgent  string          `json:"user_agent,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Snapshot marshals v for use as an entry's old or new values. Snapshots are
// advisory; a value that cannot marshal becomes null rather than failing the
// operation that produced it.
func Snapshot(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}
