package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllow(t *testing.T) {
	tests := []struct {
		role       string
		capability Capability
		want       bool
	}{
		{RoleAdmin, MemberDelete, true},
		{RoleAdmin, UserManage, true},
		{RoleDataEntry, MemberCreate, true},
		{RoleDataEntry, MemberApprove, false},
		{RoleDataEntry, MemberDelete, false},
		{RolePrinter, EventCheckIn, true},
		{RolePrinter, MemberUpdate, false},
		{RoleEditor, MemberUpdate, true},
		{RoleEditor, EventManage, true},
		{RoleEditor, MemberCreate, false},
		{RoleApprover, MemberApprove, true},
		{RoleApprover, AuditRead, true},
		{RoleApprover, MemberSuspend, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Allow(tt.role, tt.capability),
			"role %s capability %s", tt.role, tt.capability)
	}
}

func TestAllowUnknownRole(t *testing.T) {
	assert.False(t, Allow("", MemberCreate))
	assert.False(t, Allow("superuser", MemberCreate))
}

func TestKnownRole(t *testing.T) {
	for _, role := range []string{RoleAdmin, RoleDataEntry, RolePrinter, RoleEditor, RoleApprover} {
		assert.True(t, KnownRole(role))
	}
	assert.False(t, KnownRole("owner"))
}
