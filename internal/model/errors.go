package model

import (
	"errors"
	"fmt"
)

// Mutation error types
var (
	// ErrSchemaViolation is returned when a mutation does not conform to the schema
	ErrSchemaViolation = errors.New("schema violation")

	// ErrChangeVetoed is returned when a changing subscriber rejects a mutation
	ErrChangeVetoed = errors.New("change vetoed")
)

// SchemaViolationError describes a rejected mutation. Nothing is modified when
// it is returned.
type SchemaViolationError struct {
	OID      OID
	Class    string
	Property string
	Reason   string
}

// Error implements the error interface
func (e *SchemaViolationError) Error() string {
	target := string(e.OID)
	if e.Class != "" {
		target = fmt.Sprintf("%s(%s)", e.Class, e.OID)
	}
	if e.Property != "" {
		return fmt.Sprintf("schema violation on %s.%s: %s", target, e.Property, e.Reason)
	}
	return fmt.Sprintf("schema violation on %s: %s", target, e.Reason)
}

// Unwrap allows errors.Is(err, ErrSchemaViolation)
func (e *SchemaViolationError) Unwrap() error {
	return ErrSchemaViolation
}

// IsSchemaViolation returns true if the error is a schema violation
func IsSchemaViolation(err error) bool {
	return errors.Is(err, ErrSchemaViolation)
}

// IsChangeVetoed returns true if a subscriber vetoed the change
func IsChangeVetoed(err error) bool {
	return errors.Is(err, ErrChangeVetoed)
}
