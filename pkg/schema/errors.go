package schema

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is returned when required input is empty or malformed.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound is returned when a referenced bug does not exist.
	ErrNotFound = errors.New("bug not found")
	// ErrPermissionDenied is returned when the actor's role lacks the capability.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrAlreadyAssigned is returned when claiming a bug that already has an assignee.
	ErrAlreadyAssigned = errors.New("bug already assigned")
	// ErrUnknownActor is returned when an actor email is not in the directory.
	ErrUnknownActor = errors.New("unknown actor")
)

// ValidationError names the offending input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NotFoundError carries the id that could not be resolved.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("bug %s not found", e.ID) }

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// PermissionError records which role was refused which action.
type PermissionError struct {
	Role   Role
	Action string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("permission denied: role %q may not %s", e.Role, e.Action)
}

func (e *PermissionError) Is(target error) bool { return target == ErrPermissionDenied }

// AlreadyAssignedError reports the current assignee so the caller can refresh.
type AlreadyAssignedError struct {
	BugID    string
	Assignee string
}

func (e *AlreadyAssignedError) Error() string {
	return fmt.Sprintf("bug %s already assigned to %s", e.BugID, e.Assignee)
}

func (e *AlreadyAssignedError) Is(target error) bool { return target == ErrAlreadyAssigned }

// Wire codes shared by the TCP protocol and the SDK client.
const (
	CodeValidation       = "validation"
	CodeNotFound         = "not_found"
	CodePermissionDenied = "permission_denied"
	CodeAlreadyAssigned  = "already_assigned"
	CodeUnknownActor     = "unknown_actor"
	CodeInternal         = "internal"
)

var codes = []struct {
	code string
	err  error
}{
	{CodeValidation, ErrValidation},
	{CodeNotFound, ErrNotFound},
	{CodePermissionDenied, ErrPermissionDenied},
	{CodeAlreadyAssigned, ErrAlreadyAssigned},
	{CodeUnknownActor, ErrUnknownActor},
}

// ErrorCode maps err onto its wire code.
func ErrorCode(err error) string {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return CodeInternal
}

// ErrorFromCode rebuilds an error from a wire code and message so that
// errors.Is works on the receiving side.
func ErrorFromCode(code, msg string) error {
	for _, c := range codes {
		if c.code == code {
			return fmt.Errorf("%w: %s", c.err, msg)
		}
	}
	return errors.New(msg)
}
