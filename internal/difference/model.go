package difference

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/Cimbios/CimBios.Core-sub000/internal/model"
	"github.com/Cimbios/CimBios.Core-sub000/internal/schema"
	"github.com/Cimbios/CimBios.Core-sub000/internal/tracking"
)

// Model is a set of differences keyed by OID
type Model struct {
	diffs  map[model.OID]Object
	logger *zap.Logger
}

// Option configures a Model
type Option func(*Model)

// WithLogger sets the logger used by Apply
func WithLogger(logger *zap.Logger) Option {
	return func(m *Model) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewModel creates an empty difference model
func NewModel(opts ...Option) *Model {
	m := &Model{
		diffs:  make(map[model.OID]Object),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// FromLedger extracts the differences recorded by a ledger
func FromLedger(l *tracking.Ledger, opts ...Option) (*Model, error) {
	m := NewModel(opts...)
	if err := m.Extract(l); err != nil {
		return nil, err
	}
	return m, nil
}

// Differences returns all differences sorted by OID
func (m *Model) Differences() []Object {
	out := make([]Object, 0, len(m.diffs))
	for _, d := range m.diffs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].OID() < out[j].OID()
	})
	return out
}

// Get returns the difference of an object
func (m *Model) Get(oid model.OID) (Object, bool) {
	d, ok := m.diffs[oid]
	return d, ok
}

// Put adds or replaces a difference
func (m *Model) Put(d Object) {
	m.diffs[d.OID()] = d
}

// Remove drops the difference of an object
func (m *Model) Remove(oid model.OID) {
	delete(m.diffs, oid)
}

// Len returns the number of differences
func (m *Model) Len() int {
	return len(m.diffs)
}

// Extract folds the ledger statements, oldest first, into the model.
// Contradicting statements abort with ErrLedgerConsistency.
func (m *Model) Extract(l *tracking.Ledger) error {
	for _, st := range l.Statements() {
		var err error
		switch st.Kind {
		case tracking.Added:
			err = m.extractAdded(st)
		case tracking.Updated:
			err = m.extractUpdated(st)
		case tracking.Removed:
			err = m.extractRemoved(st)
		}
		if err != nil {
			return err
		}
	}

	for oid, d := range m.diffs {
		if u, ok := d.(*Updating); ok && u.IsEmpty() {
			delete(m.diffs, oid)
		}
	}
	return nil
}

func inconsistent(st *tracking.Statement, existing Object) error {
	return fmt.Errorf("%w: %s of %s after %s", ErrLedgerConsistency, st.Kind, st.OID, existing.Kind())
}

func (m *Model) extractAdded(st *tracking.Statement) error {
	existing, ok := m.diffs[st.OID]
	if !ok {
		m.diffs[st.OID] = AdditionFrom(st.Object)
		return nil
	}

	del, isDeletion := existing.(*Deletion)
	if !isDeletion {
		return inconsistent(st, existing)
	}

	// re-created after removal: the baseline object is replaced, which is an
	// updating that first clears every property of the removed object
	u := NewUpdating(st.OID, st.Object.MetaClass())
	removed := del.Original()
	for _, p := range removed.Properties() {
		v, _ := removed.Lookup(p)
		if err := clearProperty(u, p, v); err != nil {
			return err
		}
	}
	m.diffs[st.OID] = u
	return nil
}

func clearProperty(u *Updating, p *schema.MetaProperty, v any) error {
	switch p.Kind {
	case schema.KindAssoc1ToM:
		members, _ := v.([]model.Node)
		for _, n := range members {
			if err := u.RemoveFromAssocM(p, n); err != nil {
				return err
			}
		}
		return nil
	case schema.KindAssoc1To1:
		n, _ := v.(model.Node)
		return u.ChangeAssoc1(p, n, nil)
	}
	return u.ChangeAttribute(p, v, nil)
}

func (m *Model) extractUpdated(st *tracking.Statement) error {
	var u *Updating
	switch d := m.diffs[st.OID].(type) {
	case nil:
		u = NewUpdating(st.OID, st.Object.MetaClass())
		m.diffs[st.OID] = u
	case *Addition:
		// the addition snapshot already holds the final state
		return nil
	case *Deletion:
		return inconsistent(st, d)
	case *Updating:
		u = d
	}

	return recordStatement(u, st)
}

func recordStatement(u *Updating, st *tracking.Statement) error {
	p := st.Property
	switch st.Change {
	case model.ChangeAssign:
		if p.Kind == schema.KindAssoc1To1 {
			from, _ := st.Old.(model.Node)
			to, _ := st.New.(model.Node)
			return u.ChangeAssoc1(p, from, to)
		}
		return u.ChangeAttribute(p, st.Old, st.New)
	case model.ChangeAdd:
		if st.Old != nil {
			// a placeholder replaced by its object is not a change
			return nil
		}
		n, _ := st.New.(model.Node)
		return u.AddToAssocM(p, n)
	case model.ChangeRemove:
		n, _ := st.Old.(model.Node)
		return u.RemoveFromAssocM(p, n)
	}
	return nil
}

func (m *Model) extractRemoved(st *tracking.Statement) error {
	existing, ok := m.diffs[st.OID]
	var u *Updating
	if ok {
		if u, ok = existing.(*Updating); !ok {
			return inconsistent(st, existing)
		}
	}

	// the snapshot edges may include links made within the window; the
	// baseline edges come back from the statements that detached them
	del := DeletionFrom(snapshotOf(st))
	for _, p := range del.Original().Properties() {
		if p.IsAssociation() {
			if err := del.SetProperty(p, nil); err != nil {
				return err
			}
		}
	}

	if u != nil {
		// the deletion must describe the baseline, not the state the updates led to
		for _, p := range u.ModifiedProperties() {
			var err error
			if p.Kind == schema.KindAssoc1ToM {
				err = del.SetProperty(p, u.Removed(p))
			} else {
				original, _ := u.Original().Lookup(p)
				err = del.SetProperty(p, original)
			}
			if err != nil {
				return err
			}
		}
	}

	m.diffs[st.OID] = del
	return nil
}

func snapshotOf(st *tracking.Statement) *model.Object {
	if st.Snapshot != nil {
		return st.Snapshot
	}
	return st.Object.Snapshot()
}

// Invert returns the differences that undo this model: additions become
// deletions, deletions additions and updatings swap their sides
func (m *Model) Invert() *Model {
	out := NewModel(WithLogger(m.logger))
	for _, d := range m.Differences() {
		switch x := d.(type) {
		case *Addition:
			del := DeletionFrom(x.Modified())
			out.Put(del)
		case *Deletion:
			out.Put(AdditionFrom(x.Original()))
		case *Updating:
			out.Put(x.inverted())
		}
	}
	return out
}

func (u *Updating) inverted() *Updating {
	inv := &Updating{
		base: base{
			oid:      u.oid,
			class:    u.class,
			modified: u.ModifiedProperties(),
		},
		original:    u.modified.Snapshot(),
		modified:    u.original.Snapshot(),
		originalSet: make(map[string]bool, len(u.originalSet)),
	}
	for key := range u.originalSet {
		inv.originalSet[key] = true
	}
	return inv
}
