package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"memberd/internal/authz"
	id "memberd/pkg/domain"
)

func TestIssueAndValidate(t *testing.T) {
	manager := NewManager("test-signing-key", time.Hour)
	userID := id.NewUserID()

	signed, err := manager.Issue(userID, authz.RoleApprover)
	require.NoError(t, err)

	claims, err := manager.ValidateToken(signed)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, authz.RoleApprover, claims.Role)
}

func TestValidateRejectsWrongKey(t *testing.T) {
	signed, err := NewManager("key-one", time.Hour).Issue(id.NewUserID(), authz.RoleAdmin)
	require.NoError(t, err)

	_, err = NewManager("key-two", time.Hour).ValidateToken(signed)
	assert.Error(t, err)
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	manager := NewManager("test-signing-key", time.Minute)
	issued := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	manager.now = func() time.Time { return issued }

	signed, err := manager.Issue(id.NewUserID(), authz.RoleAdmin)
	require.NoError(t, err)

	manager.now = func() time.Time { return issued.Add(2 * time.Minute) }
	_, err = manager.ValidateToken(signed)
	assert.Error(t, err)
}

func TestValidateRejectsGarbage(t *testing.T) {
	manager := NewManager("test-signing-key", time.Hour)
	_, err := manager.ValidateToken("not.a.token")
	assert.Error(t, err)
}
