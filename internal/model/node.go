package model

import (
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/Cimbios/CimBios.Core-sub000/internal/schema"
)

// OID identifies an object within a graph
type OID string

// String returns the OID as a string
func (o OID) String() string {
	return string(o)
}

// IsEmpty returns true for the empty OID carried by compound values
func (o OID) IsEmpty() bool {
	return o == ""
}

// Node is anything that can be the target of an association: a real
// object or an unresolved reference to one.
type Node interface {
	OID() OID
	MetaClass() *schema.MetaClass
}

// Unresolved is a placeholder for an object that is referenced by OID but
// not (yet) present. It is accepted wherever a reference is expected and
// never owns data.
type Unresolved struct {
	oid   OID
	class *schema.MetaClass
}

// NewUnresolved creates a placeholder reference
func NewUnresolved(oid OID, class *schema.MetaClass) *Unresolved {
	return &Unresolved{oid: oid, class: class}
}

// OID returns the referenced OID
func (u *Unresolved) OID() OID {
	return u.oid
}

// MetaClass returns the expected class of the referenced object, if known
func (u *Unresolved) MetaClass() *schema.MetaClass {
	return u.class
}

// String returns a debug representation
func (u *Unresolved) String() string {
	return fmt.Sprintf("unresolved(%s)", u.oid)
}

// IsUnresolved returns true if n is a placeholder
func IsUnresolved(n Node) bool {
	_, ok := n.(*Unresolved)
	return ok
}

// Placeholder returns a placeholder for n. Placeholders are returned as is.
func Placeholder(n Node) Node {
	if isNilNode(n) {
		return nil
	}
	if u, ok := n.(*Unresolved); ok {
		return u
	}
	return NewUnresolved(n.OID(), n.MetaClass())
}

// SameNode reports whether two nodes reference the same OID
func SameNode(a, b Node) bool {
	if isNilNode(a) || isNilNode(b) {
		return isNilNode(a) && isNilNode(b)
	}
	return a.OID() == b.OID()
}

// identical is stricter than SameNode: a real object never equals a
// placeholder or another object with the same OID.
func identical(a, b Node) bool {
	if isNilNode(a) || isNilNode(b) {
		return isNilNode(a) && isNilNode(b)
	}
	if a == b {
		return true
	}
	_, ua := a.(*Unresolved)
	_, ub := b.(*Unresolved)
	return ua && ub && a.OID() == b.OID()
}

func isNilNode(n Node) bool {
	switch v := n.(type) {
	case nil:
		return true
	case *Object:
		return v == nil
	case *Unresolved:
		return v == nil
	}
	return false
}

// OIDGenerator produces OIDs for new objects
type OIDGenerator interface {
	Generate() OID
}

// UUIDGenerator generates random UUID based OIDs
type UUIDGenerator struct {
	// Prefix is prepended to every generated UUID, e.g. "_" for RDF ids
	Prefix string
}

// Generate returns a new random OID
func (g UUIDGenerator) Generate() OID {
	return OID(g.Prefix + uuid.NewString())
}

// SequenceGenerator generates deterministic OIDs: prefix1, prefix2, ...
type SequenceGenerator struct {
	Prefix string
	next   atomic.Uint64
}

// NewSequenceGenerator creates a sequence generator with the given prefix
func NewSequenceGenerator(prefix string) *SequenceGenerator {
	return &SequenceGenerator{Prefix: prefix}
}

// Generate returns the next OID of the sequence
func (g *SequenceGenerator) Generate() OID {
	return OID(g.Prefix + strconv.FormatUint(g.next.Add(1), 10))
}
