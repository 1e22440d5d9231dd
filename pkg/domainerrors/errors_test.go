package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasCodeWalksWrappedChain(t *testing.T) {
	inner := New(CodeNotFound, "member not found")
	outer := Wrap(inner, CodeInternal, "lookup failed")

	assert.True(t, HasCode(outer, CodeInternal))
	assert.True(t, HasCode(outer, CodeNotFound))
	assert.False(t, HasCode(outer, CodeConflict))
}

func TestHasCodeSeesThroughFmtWrapping(t *testing.T) {
	err := fmt.Errorf("store: %w", New(CodeConflict, "taken"))
	assert.True(t, HasCode(err, CodeConflict))
}

func TestCodeOfAndMessageOf(t *testing.T) {
	err := New(CodeForbidden, "missing capability")
	assert.Equal(t, CodeForbidden, CodeOf(err))
	assert.Equal(t, "missing capability", MessageOf(err))

	plain := errors.New("boom")
	assert.Equal(t, CodeInternal, CodeOf(plain))
	assert.Equal(t, "internal error", MessageOf(plain))
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(cause, CodeInternal, "db down")
	assert.ErrorIs(t, err, cause)
}
