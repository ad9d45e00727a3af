// Package tracking records the mutations of an object graph since the last
// commit. The ledger folds mutations that cancel each other so that it
// always holds a minimal statement set relative to the baseline.
package tracking

import (
	"fmt"

	"github.com/Cimbios/CimBios.Core-sub000/internal/model"
	"github.com/Cimbios/CimBios.Core-sub000/internal/schema"
)

// StatementKind describes what a statement records
type StatementKind int

const (
	Added StatementKind = iota
	Removed
	Updated
)

// String returns the string representation of the statement kind
func (k StatementKind) String() string {
	switch k {
	case Added:
		return "added"
	case Removed:
		return "removed"
	case Updated:
		return "updated"
	default:
		return "unknown"
	}
}

// Statement is a single ledger entry.
// Added and Updated refer to the live object; Removed carries the snapshot
// taken just before removal.
type Statement struct {
	Kind   StatementKind
	OID    model.OID
	Object *model.Object

	Property *schema.MetaProperty
	Change   model.ChangeKind
	Old      any
	New      any

	Snapshot *model.Object
}

// String returns a debug representation
func (s *Statement) String() string {
	switch s.Kind {
	case Updated:
		return fmt.Sprintf("%s %s.%s %s %v -> %v", s.Kind, s.OID, s.Property.Name, s.Change, s.Old, s.New)
	default:
		return fmt.Sprintf("%s %s", s.Kind, s.OID)
	}
}

// Ledger is an ordered stack of statements. It is not synchronized; the
// owning graph serializes access.
type Ledger struct {
	statements []*Statement
	suspended  int
}

// NewLedger creates an empty ledger
func NewLedger() *Ledger {
	return &Ledger{}
}

// Observe subscribes the ledger to the changes of obj
func (l *Ledger) Observe(obj *model.Object) *model.Subscription {
	return obj.OnChanged(l.RecordUpdated)
}

// Suspend stops recording until the returned function is called.
// Suspensions nest.
func (l *Ledger) Suspend() (resume func()) {
	l.suspended++
	resumed := false
	return func() {
		if !resumed {
			resumed = true
			l.suspended--
		}
	}
}

// IsSuspended returns true while recording is suspended
func (l *Ledger) IsSuspended() bool {
	return l.suspended > 0
}

// RecordAdded records the creation of obj. Re-creating an object whose
// removal is the latest statement cancels that removal.
func (l *Ledger) RecordAdded(obj *model.Object) {
	if l.IsSuspended() {
		return
	}

	if n := len(l.statements); n > 0 {
		last := l.statements[n-1]
		if last.Kind == Removed && last.OID == obj.OID() {
			l.statements = l.statements[:n-1]
			return
		}
	}

	l.push(&Statement{Kind: Added, OID: obj.OID(), Object: obj})
}

// RecordRemoved records the removal of obj. If the object was added within
// the ledger window, its whole history is dropped instead.
func (l *Ledger) RecordRemoved(obj *model.Object, snapshot *model.Object) {
	if l.IsSuspended() {
		return
	}

	oid := obj.OID()
	added := -1
	for i := len(l.statements) - 1; i >= 0; i-- {
		st := l.statements[i]
		if st.OID != oid {
			continue
		}
		if st.Kind == Removed {
			break
		}
		if st.Kind == Added {
			added = i
			break
		}
	}

	if added >= 0 {
		kept := l.statements[:added]
		for _, st := range l.statements[added:] {
			if st.OID != oid {
				kept = append(kept, st)
			}
		}
		l.statements = kept
		return
	}

	l.push(&Statement{Kind: Removed, OID: oid, Object: obj, Snapshot: snapshot})
}

// RecordUpdated records a property change. A change that exactly reverses
// the latest change of the same property (and member, for 1:M) cancels it.
func (l *Ledger) RecordUpdated(ev *model.ChangeEvent) {
	if l.IsSuspended() {
		return
	}

	st := &Statement{
		Kind:     Updated,
		OID:      ev.Object.OID(),
		Object:   ev.Object,
		Property: ev.Property,
		Change:   ev.Kind,
		Old:      ev.Old,
		New:      ev.New,
	}

	if i := l.latestFor(st); i >= 0 && reverses(l.statements[i], st) {
		l.statements = append(l.statements[:i], l.statements[i+1:]...)
		return
	}

	l.push(st)
}

// latestFor finds the latest update of the same property, not looking past
// an Added or Removed statement of the object
func (l *Ledger) latestFor(st *Statement) int {
	for i := len(l.statements) - 1; i >= 0; i-- {
		prev := l.statements[i]
		if prev.OID != st.OID {
			continue
		}
		if prev.Kind != Updated {
			return -1
		}
		if !schema.SameProperty(prev.Property, st.Property) {
			continue
		}
		if st.Property.Kind == schema.KindAssoc1ToM && !model.SameNode(member(prev), member(st)) {
			continue
		}
		return i
	}
	return -1
}

func member(st *Statement) model.Node {
	v := st.New
	if st.Change == model.ChangeRemove {
		v = st.Old
	}
	n, _ := v.(model.Node)
	return n
}

func reverses(prev, st *Statement) bool {
	switch {
	case prev.Change == model.ChangeAssign && st.Change == model.ChangeAssign:
		return model.ValueEqual(prev.New, st.Old) && model.ValueEqual(prev.Old, st.New)
	case prev.Change == model.ChangeAdd && st.Change == model.ChangeRemove:
		return prev.Old == nil
	case prev.Change == model.ChangeRemove && st.Change == model.ChangeAdd:
		return st.Old == nil
	}
	return false
}

func (l *Ledger) push(st *Statement) {
	l.statements = append(l.statements, st)
}

// Statements returns the statements oldest first
func (l *Ledger) Statements() []*Statement {
	out := make([]*Statement, len(l.statements))
	copy(out, l.statements)
	return out
}

// Len returns the number of statements
func (l *Ledger) Len() int {
	return len(l.statements)
}

// IsEmpty returns true if nothing changed since the baseline
func (l *Ledger) IsEmpty() bool {
	return len(l.statements) == 0
}

// Pop removes and returns the newest statement, or nil
func (l *Ledger) Pop() *Statement {
	n := len(l.statements)
	if n == 0 {
		return nil
	}
	st := l.statements[n-1]
	l.statements = l.statements[:n-1]
	return st
}

// CommitAllChanges makes the current state the new baseline
func (l *Ledger) CommitAllChanges() {
	l.statements = nil
}

// Changed returns true if the ledger holds a statement for the object
func (l *Ledger) Changed(oid model.OID) bool {
	for _, st := range l.statements {
		if st.OID == oid {
			return true
		}
	}
	return false
}

// ChangedProperties returns the properties with pending updates for the object
func (l *Ledger) ChangedProperties(oid model.OID) []*schema.MetaProperty {
	var result []*schema.MetaProperty
	for _, st := range l.statements {
		if st.OID != oid || st.Kind != Updated {
			continue
		}
		seen := false
		for _, p := range result {
			if schema.SameProperty(p, st.Property) {
				seen = true
				break
			}
		}
		if !seen {
			result = append(result, st.Property)
		}
	}
	return result
}
