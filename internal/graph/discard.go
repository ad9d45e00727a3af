package graph

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Cimbios/CimBios.Core-sub000/internal/model"
	"github.com/Cimbios/CimBios.Core-sub000/internal/tracking"
)

// DiscardLastChange undoes the newest ledger statement.
//
// Undo is provisional: it replays recorded before values and snapshots, so
// values that were never observed by the ledger are not restored.
func (m *Model) DiscardLastChange() error {
	if m.ledger == nil {
		return nil
	}
	st := m.ledger.Pop()
	if st == nil {
		return nil
	}

	resume := m.ledger.Suspend()
	defer resume()

	return m.undo(st)
}

// DiscardAllChanges undoes every ledger statement, newest first, and
// returns the joined errors of statements that could not be undone
func (m *Model) DiscardAllChanges() error {
	if m.ledger == nil {
		return nil
	}

	var errs []error
	for !m.ledger.IsEmpty() {
		if err := m.DiscardLastChange(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Model) undo(st *tracking.Statement) error {
	m.logger.Debug("discarding change", zap.Stringer("statement", st))

	switch st.Kind {
	case tracking.Added:
		if _, ok := m.objects[st.OID]; !ok {
			return nil
		}
		if err := m.detachEdges(st.Object); err != nil {
			return fmt.Errorf("failed to discard creation of %s: %w", st.OID, err)
		}
		m.release(st.OID)
		return nil

	case tracking.Removed:
		return m.restore(st.Snapshot)

	case tracking.Updated:
		obj, ok := m.objects[st.OID]
		if !ok {
			return fmt.Errorf("%w: %s", ErrNotFound, st.OID)
		}
		return m.revert(obj, st)
	}
	return nil
}

func (m *Model) revert(obj *model.Object, st *tracking.Statement) error {
	switch st.Change {
	case model.ChangeAssign:
		return obj.SetProperty(st.Property, m.canonical(st.Old))

	case model.ChangeAdd:
		current, err := obj.GetProperty(st.Property)
		if err != nil {
			return err
		}
		members, _ := current.([]model.Node)
		added, _ := st.New.(model.Node)
		out := make([]model.Node, 0, len(members))
		for _, n := range members {
			if !model.SameNode(n, added) {
				out = append(out, n)
			}
		}
		if replaced, ok := st.Old.(model.Node); ok && replaced != nil {
			out = append(out, replaced)
		}
		return obj.SetProperty(st.Property, out)

	case model.ChangeRemove:
		removed, _ := st.Old.(model.Node)
		if removed == nil {
			return nil
		}
		return addMember(obj, st.Property, m.canonical(removed).(model.Node))
	}
	return nil
}

// restore re-creates a removed object from its snapshot
func (m *Model) restore(snapshot *model.Object) error {
	if snapshot == nil {
		return nil
	}
	if _, exists := m.objects[snapshot.OID()]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateObject, snapshot.OID())
	}

	obj, err := m.factory.Create(snapshot.OID(), snapshot.MetaClass())
	if err != nil {
		return err
	}
	obj.SetAuto(snapshot.IsAuto())
	m.attach(obj)

	for _, p := range snapshot.Properties() {
		v, _ := snapshot.Lookup(p)
		if err := obj.SetProperty(p, m.canonical(v)); err != nil {
			return fmt.Errorf("failed to restore %s.%s: %w", obj, p.Name, err)
		}
	}
	return nil
}

// canonical swaps recorded references for the graph's current objects
func (m *Model) canonical(v any) any {
	switch ref := v.(type) {
	case model.Node:
		if obj, ok := ref.(*model.Object); ok && obj.IsCompound() {
			return obj
		}
		if obj, ok := m.objects[ref.OID()]; ok {
			return obj
		}
		return model.Placeholder(ref)
	case []model.Node:
		out := make([]model.Node, len(ref))
		for i, n := range ref {
			out[i] = m.canonical(n).(model.Node)
		}
		return out
	}
	return v
}
