package apperrors

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// ErrForbidden indicates that the caller is not permitted to perform the action.
var ErrForbidden = errors.New("access forbidden")

// ErrConflict indicates that the operation conflicts with the current resource state.
var ErrConflict = errors.New("resource state conflict")

// ErrInternal indicates an unexpected internal failure.
var ErrInternal = errors.New("internal error")

// ValidationError reports a single failed donation or category invariant.
// Field identifies which invariant failed (amount, date, taxonomy, identity)
// so callers can distinguish failures without string matching.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError builds a ValidationError for the given field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// AccessError reports a role/subject boundary violation. It always fails
// closed: callers receive this error and no partial data.
type AccessError struct {
	Role      string
	SubjectID string
	Reason    string
}

func (e *AccessError) Error() string {
	return fmt.Sprintf("access denied for role %s (subject %s): %s", e.Role, e.SubjectID, e.Reason)
}

func (e *AccessError) Unwrap() error { return ErrForbidden }

// NewAccessError builds an AccessError for the given role and subject.
func NewAccessError(role, subjectID, reason string) *AccessError {
	return &AccessError{Role: role, SubjectID: subjectID, Reason: reason}
}

// ConsistencyError reports a disagreement between incrementally maintained
// category statistics and a full recalculation, beyond rounding tolerance.
// It is surfaced as a reconciliation alert; the last known good totals stay
// usable.
type ConsistencyError struct {
	CategoryID   string
	Incremental  decimal.Decimal
	Recalculated decimal.Decimal
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("category %s statistics drift: incremental total %s, recalculated total %s",
		e.CategoryID, e.Incremental.String(), e.Recalculated.String())
}

// DataIntegrityError reports a malformed donation record encountered during
// aggregation. Such records are excluded from totals with a warning rather
// than aborting the whole report.
type DataIntegrityError struct {
	DonationID string
	Reason     string
}

func (e *DataIntegrityError) Error() string {
	return fmt.Sprintf("malformed donation record %s: %s", e.DonationID, e.Reason)
}
