package types

import (
	"errors"
	"fmt"
)

// Request outcome errors. Every error returned by the service layer wraps one
// of these so transports can map them to status codes.
var (
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrInvalidArgument = errors.New("invalid argument")
)

// Store lifecycle errors.
var (
	ErrStoreDetached   = errors.New("store is detached")
	ErrAlreadyAttached = errors.New("store is already attached")
	ErrReadOnlyTx      = errors.New("write attempted in a read-only transaction")
)

// FieldError reports an invalid value for a named request field.
// It unwraps to ErrInvalidArgument.
type FieldError struct {
	Field   string
	Message string
}

// NewFieldError creates a FieldError with a formatted message.
func NewFieldError(field, format string, args ...any) *FieldError {
	return &FieldError{Field: field, Message: fmt.Sprintf(format, args...)}
}

func (e *FieldError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("field '%s': %s", e.Field, e.Message)
}

func (e *FieldError) Unwrap() error {
	return ErrInvalidArgument
}

// ErrSheetNotFound is returned when a sheet id does not resolve.
var ErrSheetNotFound = fmt.Errorf("sheet %w", ErrNotFound)

// ErrDuplicateSheetName is returned when a create or rename collides with an
// existing sheet name.
var ErrDuplicateSheetName = fmt.Errorf("%w: a sheet with that name already exists", ErrConflict)
