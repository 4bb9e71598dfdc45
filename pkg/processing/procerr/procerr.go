// Package procerr contains the error kinds reported by the processing stages.
package procerr

import (
	"errors"
	"fmt"
)

var (
	ErrValidation = errors.New("validation failed")
	ErrInvariant  = errors.New("invariant violated")
)

// ValidationError reports a malformed or out-of-range input row.
// The pipeline aborts the session on this error.
type ValidationError struct {
	Source string // lap, position, session
	Row    int
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s row %d field %s: %s", e.Source, e.Row, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// GapError reports a timestamp which could not be reconstructed.
// It is not fatal, the value is propagated as null.
type GapError struct {
	DriverID string
	Lap      int
	Field    string
}

func (e *GapError) Error() string {
	return fmt.Sprintf("driver %s lap %d: %s cannot be reconstructed",
		e.DriverID, e.Lap, e.Field)
}

// InvariantViolation is a failed consistency check between stages.
type InvariantViolation struct {
	Check    string
	DriverID string
	Tick     int
	Detail   string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("invariant %s violated for driver %s at tick %d: %s",
		e.Check, e.DriverID, e.Tick, e.Detail)
}

func (e *InvariantViolation) Unwrap() error {
	return ErrInvariant
}
