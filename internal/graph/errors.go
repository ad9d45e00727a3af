package graph

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Cimbios/CimBios.Core-sub000/internal/model"
	"github.com/Cimbios/CimBios.Core-sub000/internal/schema"
)

// Graph error types
var (
	// ErrUnresolvedReference is returned while placeholders remain in the graph
	ErrUnresolvedReference = errors.New("unresolved reference")

	// ErrDuplicateObject is returned when an OID is already taken
	ErrDuplicateObject = errors.New("object already exists")

	// ErrNotFound is returned when no object has the given OID
	ErrNotFound = errors.New("object not found")

	// ErrRequiredProperty is reported for required properties without a value
	ErrRequiredProperty = errors.New("required property missing")
)

// UnresolvedReference is a placeholder that could not be replaced by a
// graph object
type UnresolvedReference struct {
	Holder   model.OID
	Property *schema.MetaProperty
	Target   model.OID

	// Err is set when the target exists but could not be linked
	Err error
}

// String returns a human readable description
func (r UnresolvedReference) String() string {
	s := fmt.Sprintf("%s.%s -> %s", r.Holder, r.Property.Name, r.Target)
	if r.Err != nil {
		s += ": " + r.Err.Error()
	}
	return s
}

// Issue is a single problem found while validating a graph
type Issue struct {
	OID      model.OID
	Property string
	Err      error
}

// Report aggregates per-object problems
type Report struct {
	Issues []Issue
}

// Add adds an issue
func (r *Report) Add(oid model.OID, property string, err error) {
	r.Issues = append(r.Issues, Issue{OID: oid, Property: property, Err: err})
}

// HasErrors returns true if any issue was reported
func (r *Report) HasErrors() bool {
	return len(r.Issues) > 0
}

// Count returns the number of issues
func (r *Report) Count() int {
	return len(r.Issues)
}

// Error implements the error interface
func (r *Report) Error() string {
	if len(r.Issues) == 0 {
		return "no errors"
	}

	var msgs []string
	for _, issue := range r.Issues {
		if issue.Property != "" {
			msgs = append(msgs, fmt.Sprintf("%s.%s: %v", issue.OID, issue.Property, issue.Err))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s: %v", issue.OID, issue.Err))
		}
	}
	return strings.Join(msgs, "; ")
}

// Unwrap exposes the individual issue errors to errors.Is
func (r *Report) Unwrap() []error {
	errs := make([]error, len(r.Issues))
	for i, issue := range r.Issues {
		errs[i] = issue.Err
	}
	return errs
}
