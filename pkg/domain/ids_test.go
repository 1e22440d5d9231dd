package domain

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "memberd/pkg/domainerrors"
)

func TestParseMemberID(t *testing.T) {
	valid := uuid.NewString()

	memberID, err := ParseMemberID(valid)
	require.NoError(t, err)
	assert.Equal(t, valid, memberID.String())

	_, err = ParseMemberID("")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	_, err = ParseMemberID("not-a-uuid")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	_, err = ParseMemberID(uuid.Nil.String())
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestIDJSONRoundTrip(t *testing.T) {
	memberID := NewMemberID()

	b, err := json.Marshal(memberID)
	require.NoError(t, err)
	assert.JSONEq(t, `"`+memberID.String()+`"`, string(b))

	var decoded MemberID
	require.NoError(t, json.Unmarshal(b, &decoded))
	assert.Equal(t, memberID, decoded)
}

func TestNilIDMarshalsEmpty(t *testing.T) {
	var userID UserID
	b, err := json.Marshal(userID)
	require.NoError(t, err)
	assert.Equal(t, `""`, string(b))
}
