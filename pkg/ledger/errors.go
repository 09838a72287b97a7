package ledger

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a referenced client or user does not exist.
var ErrNotFound = errors.New("record not found")

// ErrDuplicate marks a uniqueness violation (username or document).
var ErrDuplicate = errors.New("already exists")

// ValidationError rejects malformed input before any mutation happens. It
// carries the offending field so callers can surface a field-level message.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Invalid builds a ValidationError for field.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
