package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	err := NewInternalError("failed to save", fmt.Errorf("disk full"))
	assert.Equal(t, "INTERNAL: failed to save: disk full", err.Error())

	nf := NotFoundf("donor", "d-1")
	assert.Equal(t, "NOT_FOUND: donor with id d-1 not found", nf.Error())
}

func TestTypeOf_SurvivesWrapping(t *testing.T) {
	base := NewIncompatibilityError("A+ cannot donate to B+")
	wrapped := fmt.Errorf("create referral: %w", base)

	assert.Equal(t, ErrorTypeIncompatible, TypeOf(wrapped))
	assert.True(t, IsType(wrapped, ErrorTypeIncompatible))
	assert.False(t, IsNotFound(wrapped))
}

func TestTypeOf_PlainError(t *testing.T) {
	assert.Equal(t, ErrorType(""), TypeOf(fmt.Errorf("boom")))
	assert.False(t, IsType(nil, ErrorTypeNotFound))
}

func TestAppError_IsSentinel(t *testing.T) {
	stale := fmt.Errorf("update donor: %w", NewConflictError("donor d-1 was modified concurrently"))

	assert.ErrorIs(t, stale, ErrConflict)
	assert.NotErrorIs(t, stale, ErrNotFound)
	assert.ErrorIs(t, NotFoundf("referral", "r-1"), ErrNotFound)
	// a populated error is not a sentinel
	assert.NotErrorIs(t, ErrConflict, NewConflictError("x"))
}
