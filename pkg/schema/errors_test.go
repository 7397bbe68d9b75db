package schema

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypedErrorsMatchSentinels(t *testing.T) {
	assert.ErrorIs(t, &ValidationError{Field: "title", Reason: "is required"}, ErrValidation)
	assert.ErrorIs(t, &NotFoundError{ID: "x"}, ErrNotFound)
	assert.ErrorIs(t, &PermissionError{Role: RoleTester, Action: "change_status"}, ErrPermissionDenied)
	assert.ErrorIs(t, fmt.Errorf("wrapped: %w", &AlreadyAssignedError{BugID: "1", Assignee: "d@co"}), ErrAlreadyAssigned)
}

func TestErrorCodeRoundTrip(t *testing.T) {
	for _, sentinel := range []error{ErrValidation, ErrNotFound, ErrPermissionDenied, ErrAlreadyAssigned, ErrUnknownActor} {
		code := ErrorCode(sentinel)
		assert.NotEqual(t, CodeInternal, code)
		assert.ErrorIs(t, ErrorFromCode(code, "detail"), sentinel)
	}

	assert.Equal(t, CodeInternal, ErrorCode(errors.New("boom")))
	assert.EqualError(t, ErrorFromCode("weird", "boom"), "boom")
}
