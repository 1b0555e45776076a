package calculator

import (
	"errors"
	"fmt"
)

var (
	ErrNoRoster        = errors.New("roster is required")
	ErrNoSharers       = errors.New("at least one member must share the cost")
	ErrInvalidAmount   = errors.New("amount must be a positive number")
	ErrDuplicateSharer = errors.New("sharer listed more than once")
	ErrInvalidDate     = errors.New("date must be formatted as YYYY-MM-DD")
)

// Roles reported by UnknownMemberError.
const (
	RolePayer  = "payer"
	RoleSharer = "sharer"
)

// UnknownMemberError reports an expense that names someone outside the roster.
type UnknownMemberError struct {
	RecordID string
	Member   string
	Role     string
}

func (e *UnknownMemberError) Error() string {
	return fmt.Sprintf("expense %q: %s %q is not a roster member", e.RecordID, e.Role, e.Member)
}

// InvalidRecordError wraps a contract violation found in a single expense.
type InvalidRecordError struct {
	RecordID string
	Err      error
}

func (e *InvalidRecordError) Error() string {
	return fmt.Sprintf("expense %q: %v", e.RecordID, e.Err)
}

func (e *InvalidRecordError) Unwrap() error {
	return e.Err
}
