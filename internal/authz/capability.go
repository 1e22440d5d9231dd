// Package authz maps staff roles to capability sets. Operations declare the
// capability they require; the check is a single predicate over the caller's
// role instead of ad hoc role-string comparisons at every endpoint.
package authz

// Capability names a single permitted operation class.
type Capability string

const (
	MemberCreate  Capability = "member:create"
	MemberUpdate  Capability = "member:update"
	MemberApprove Capability = "member:approve"
	MemberSuspend Capability = "member:suspend"
	MemberDelete  Capability = "member:delete"
	TypeManage    Capability = "type:manage"
	EventManage   Capability = "event:manage"
	EventCheckIn  Capability = "event:checkin"
	AuditRead     Capability = "audit:read"
	UserManage    Capability = "user:manage"
)

// Role names mirror the users.role column.
const (
	RoleAdmin     = "admin"
	RoleDataEntry = "data-entry"
	RolePrinter   = "printer"
	RoleEditor    = "editor"
	RoleApprover  = "approver"
)

var roleCapabilities = map[string]map[Capability]struct{}{
	RoleAdmin: caps(
		MemberCreate, MemberUpdate, MemberApprove, MemberSuspend, MemberDelete,
		TypeManage, EventManage, EventCheckIn, AuditRead, UserManage,
	),
	RoleDataEntry: caps(MemberCreate, MemberUpdate, EventCheckIn),
	RolePrinter:   caps(EventCheckIn),
	RoleEditor:    caps(MemberUpdate, EventManage, EventCheckIn),
	RoleApprover:  caps(MemberApprove, AuditRead),
}

func caps(cs ...Capability) map[Capability]struct{} {
	m := make(map[Capability]struct{}, len(cs))
	for _, c := range cs {
		m[c] = struct{}{}
	}
	return m
}

// Allow reports whether the given role holds the capability.
// Unknown roles hold nothing.
func Allow(role string, c Capability) bool {
	set, ok := roleCapabilities[role]
	if !ok {
		return false
	}
	_, ok = set[c]
	return ok
}

// KnownRole reports whether role is one of the defined staff roles.
func KnownRole(role string) bool {
	_, ok := roleCapabilities[role]
	return ok
}
