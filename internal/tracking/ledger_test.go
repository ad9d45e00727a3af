package tracking_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cimbios/CimBios.Core-sub000/internal/model"
	"github.com/Cimbios/CimBios.Core-sub000/internal/schema"
	"github.com/Cimbios/CimBios.Core-sub000/internal/schema/schematest"
	"github.com/Cimbios/CimBios.Core-sub000/internal/tracking"
)

var cim = func() *schema.Schema {
	s, err := schematest.Load()
	if err != nil {
		panic(err)
	}
	return s
}()

func observed(t *testing.T, l *tracking.Ledger, class string, oid model.OID) *model.Object {
	t.Helper()
	obj := model.NewObject(oid, schematest.Class(t, cim, class))
	l.Observe(obj)
	return obj
}

func kinds(l *tracking.Ledger) []tracking.StatementKind {
	var out []tracking.StatementKind
	for _, st := range l.Statements() {
		out = append(out, st.Kind)
	}
	return out
}

func TestLedger_AttributeReversal(t *testing.T) {
	l := tracking.NewLedger()
	b := observed(t, l, "Breaker", "b1")

	require.NoError(t, b.SetAttribute("name", "a"))
	require.NoError(t, b.SetAttribute("name", "b"))
	require.NoError(t, b.SetAttribute("name", "a"))

	require.Equal(t, 1, l.Len())
	st := l.Statements()[0]
	assert.Equal(t, tracking.Updated, st.Kind)
	assert.Nil(t, st.Old)
	assert.Equal(t, "a", st.New)

	require.NoError(t, b.SetAttribute("name", nil))
	assert.True(t, l.IsEmpty())
}

func TestLedger_InterleavedPropertiesDoNotCancel(t *testing.T) {
	l := tracking.NewLedger()
	b := observed(t, l, "Breaker", "b1")

	require.NoError(t, b.SetAttribute("open", true))
	require.NoError(t, b.SetAttribute("name", "x"))
	require.NoError(t, b.SetAttribute("open", false))

	// open: nil -> true -> false is not a reversal
	assert.Equal(t, 3, l.Len())
	assert.Len(t, l.ChangedProperties("b1"), 2)
	assert.True(t, l.Changed("b1"))
	assert.False(t, l.Changed("b2"))
}

func TestLedger_AssociationReversal(t *testing.T) {
	l := tracking.NewLedger()
	sub := observed(t, l, "Substation", "s1")
	vl1 := observed(t, l, "VoltageLevel", "vl1")
	vl2 := observed(t, l, "VoltageLevel", "vl2")

	require.NoError(t, sub.AddAssoc1ToM("VoltageLevels", vl1))
	require.NoError(t, sub.AddAssoc1ToM("VoltageLevels", vl2))
	// forward and inverse side are both recorded
	assert.Equal(t, 4, l.Len())

	require.NoError(t, sub.RemoveAssoc1ToM("VoltageLevels", vl1))
	assert.Equal(t, 2, l.Len())
	for _, st := range l.Statements() {
		assert.True(t, st.OID == "s1" || st.OID == "vl2")
	}

	require.NoError(t, vl2.SetAssoc1To1("Substation", nil))
	assert.True(t, l.IsEmpty())
}

func TestLedger_CreateThenDelete(t *testing.T) {
	l := tracking.NewLedger()
	other := observed(t, l, "Breaker", "b0")
	b := observed(t, l, "Breaker", "b1")

	l.RecordAdded(b)
	require.NoError(t, b.SetAttribute("name", "new"))
	require.NoError(t, other.SetAttribute("name", "other"))
	require.NoError(t, b.SetAttribute("open", true))

	l.RecordRemoved(b, b.Snapshot())

	require.Equal(t, 1, l.Len())
	assert.Equal(t, model.OID("b0"), l.Statements()[0].OID)
}

func TestLedger_DeleteThenRecreate(t *testing.T) {
	l := tracking.NewLedger()
	b := observed(t, l, "Breaker", "b1")

	snap := b.Snapshot()
	l.RecordRemoved(b, snap)
	require.Equal(t, []tracking.StatementKind{tracking.Removed}, kinds(l))
	assert.Same(t, snap, l.Statements()[0].Snapshot)

	l.RecordAdded(model.NewObject("b1", b.MetaClass()))
	assert.True(t, l.IsEmpty())

	// only the latest statement is considered
	l.RecordRemoved(b, snap)
	require.NoError(t, observed(t, l, "Breaker", "b2").SetAttribute("name", "x"))
	l.RecordAdded(b)
	assert.Equal(t, []tracking.StatementKind{tracking.Removed, tracking.Updated, tracking.Added}, kinds(l))
}

func TestLedger_UpdateThenDelete(t *testing.T) {
	l := tracking.NewLedger()
	b := observed(t, l, "Breaker", "b1")

	require.NoError(t, b.SetAttribute("name", "changed"))
	l.RecordRemoved(b, b.Snapshot())

	// a baseline object keeps its update history
	assert.Equal(t, []tracking.StatementKind{tracking.Updated, tracking.Removed}, kinds(l))
}

func TestLedger_NoCancelAcrossRemoval(t *testing.T) {
	l := tracking.NewLedger()
	b := observed(t, l, "Breaker", "b1")

	require.NoError(t, b.SetAttribute("name", "a"))
	l.RecordRemoved(b, b.Snapshot())
	l.RecordAdded(model.NewObject("b2", b.MetaClass()))
	require.NoError(t, b.SetAttribute("name", nil))

	assert.Equal(t, 4, l.Len())
}

func TestLedger_SuspendPopCommit(t *testing.T) {
	l := tracking.NewLedger()
	b := observed(t, l, "Breaker", "b1")

	resume := l.Suspend()
	require.NoError(t, b.SetAttribute("name", "quiet"))
	l.RecordAdded(b)
	assert.True(t, l.IsSuspended())
	resume()
	resume()
	assert.False(t, l.IsSuspended())
	assert.True(t, l.IsEmpty())

	require.NoError(t, b.SetAttribute("name", "loud"))
	require.NoError(t, b.SetAttribute("open", true))

	st := l.Pop()
	require.NotNil(t, st)
	assert.Equal(t, "open", st.Property.Name)
	assert.Equal(t, 1, l.Len())

	l.CommitAllChanges()
	assert.True(t, l.IsEmpty())
	assert.Nil(t, l.Pop())
}
