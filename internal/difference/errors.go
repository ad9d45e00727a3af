package difference

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Cimbios/CimBios.Core-sub000/internal/model"
)

// Difference error types
var (
	// ErrLedgerConsistency is returned when ledger statements contradict
	// each other during extraction. Extraction stops.
	ErrLedgerConsistency = errors.New("ledger consistency violation")

	// ErrClassResolution is reported when the target schema lacks the class
	// of an addition
	ErrClassResolution = errors.New("class not resolved in target schema")

	// ErrObjectNotFound is reported when a difference refers to an object
	// missing from the target graph
	ErrObjectNotFound = errors.New("object not found in target graph")

	// ErrClassMismatch is returned by a strict comparison of objects of
	// different classes
	ErrClassMismatch = errors.New("class mismatch")
)

// IsLedgerConsistency returns true if the error is a ledger consistency violation
func IsLedgerConsistency(err error) bool {
	return errors.Is(err, ErrLedgerConsistency)
}

// ReportEntry is the failure of a single entity
type ReportEntry struct {
	OID   model.OID
	Class string
	Err   error
}

// Report aggregates per-entity failures of a batch operation. Failed
// entities are skipped; the others are processed.
type Report struct {
	Entries []ReportEntry

	// Applied counts the entities processed without error
	Applied int
}

// Add adds an entry
func (r *Report) Add(oid model.OID, class string, err error) {
	r.Entries = append(r.Entries, ReportEntry{OID: oid, Class: class, Err: err})
}

// HasErrors returns true if any entity failed
func (r *Report) HasErrors() bool {
	return len(r.Entries) > 0
}

// Count returns the number of failed entities
func (r *Report) Count() int {
	return len(r.Entries)
}

// Error implements the error interface
func (r *Report) Error() string {
	if len(r.Entries) == 0 {
		return "no errors"
	}
	if len(r.Entries) == 1 {
		e := r.Entries[0]
		return fmt.Sprintf("%s: %v", e.OID, e.Err)
	}

	msgs := make([]string, len(r.Entries))
	for i, e := range r.Entries {
		msgs[i] = fmt.Sprintf("%s: %v", e.OID, e.Err)
	}
	return fmt.Sprintf("%d errors: %s", len(r.Entries), strings.Join(msgs, "; "))
}

// Unwrap exposes the entry errors to errors.Is and errors.As
func (r *Report) Unwrap() []error {
	errs := make([]error, len(r.Entries))
	for i, e := range r.Entries {
		errs[i] = e.Err
	}
	return errs
}

// Err returns the report as an error, or nil if nothing failed
func (r *Report) Err() error {
	if r == nil || !r.HasErrors() {
		return nil
	}
	return r
}
