package model_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cimbios/CimBios.Core-sub000/internal/model"
	"github.com/Cimbios/CimBios.Core-sub000/internal/schema"
	"github.com/Cimbios/CimBios.Core-sub000/internal/schema/schematest"
)

func newObject(t *testing.T, s *schema.Schema, class string, oid model.OID) *model.Object {
	t.Helper()
	return model.NewObject(oid, schematest.Class(t, s, class))
}

func TestObject_SetAttributeConversion(t *testing.T) {
	s := schematest.CIM(t)
	terminal := newObject(t, s, "Terminal", "t1")

	require.NoError(t, terminal.SetAttribute("sequenceNumber", 2))
	v, err := terminal.GetAttribute("sequenceNumber")
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)

	require.NoError(t, terminal.SetAttribute("sequenceNumber", "3"))
	v, _ = terminal.GetAttribute("Terminal.sequenceNumber")
	assert.Equal(t, int64(3), v)

	err = terminal.SetAttribute("sequenceNumber", 1.5)
	assert.True(t, model.IsSchemaViolation(err))

	require.NoError(t, terminal.SetAttribute("connected", "true"))
	v, _ = terminal.GetAttribute("connected")
	assert.Equal(t, true, v)

	// inherited attribute
	require.NoError(t, terminal.SetAttribute("name", "T1"))
	v, _ = terminal.GetAttribute(schematest.Namespace + "IdentifiedObject.name")
	assert.Equal(t, "T1", v)

	line := newObject(t, s, "ACLineSegment", "l1")
	require.NoError(t, line.SetAttribute("r", 2))
	v, _ = line.GetAttribute("r")
	assert.Equal(t, float64(2), v)

	sub := newObject(t, s, "Substation", "s1")
	require.NoError(t, sub.SetAttribute("commissionedAt", "2024-03-01T10:00:00Z"))
	v, _ = sub.GetAttribute("commissionedAt")
	assert.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), v)

	vl := newObject(t, s, "VoltageLevel", "vl1")
	require.NoError(t, vl.SetAttribute("highVoltageLimit", 110))
	v, _ = vl.GetAttribute("highVoltageLimit")
	assert.Equal(t, float64(110), v)

	// clearing
	require.NoError(t, terminal.SetAttribute("name", nil))
	v, _ = terminal.GetAttribute("name")
	assert.Nil(t, v)
}

func TestObject_SetAttributeLargeIntegers(t *testing.T) {
	s := schematest.CIM(t)
	terminal := newObject(t, s, "Terminal", "t1")

	var changes int
	terminal.OnChanged(func(ev *model.ChangeEvent) { changes++ })

	require.NoError(t, terminal.SetAttribute("sequenceNumber", int64(1<<53)))
	require.NoError(t, terminal.SetAttribute("sequenceNumber", int64(1<<53+1)))

	v, err := terminal.GetAttribute("sequenceNumber")
	require.NoError(t, err)
	assert.Equal(t, int64(1<<53+1), v)
	assert.Equal(t, 2, changes)
}

func TestObject_SchemaViolations(t *testing.T) {
	s := schematest.CIM(t)
	breaker := newObject(t, s, "Breaker", "b1")
	sub := newObject(t, s, "Substation", "s1")

	t.Run("undeclared property", func(t *testing.T) {
		err := breaker.SetAttribute("ratedCurrent", 1.0)
		require.Error(t, err)

		var sv *model.SchemaViolationError
		require.True(t, errors.As(err, &sv))
		assert.Equal(t, model.OID("b1"), sv.OID)
		assert.Equal(t, "Breaker", sv.Class)
		assert.Equal(t, "ratedCurrent", sv.Property)
	})

	t.Run("kind mismatch", func(t *testing.T) {
		err := breaker.SetAttribute("Terminals", "x")
		assert.True(t, model.IsSchemaViolation(err))

		_, err = breaker.GetAssoc1To1("Terminals")
		assert.True(t, model.IsSchemaViolation(err))
	})

	t.Run("wrong association target", func(t *testing.T) {
		terminal := newObject(t, s, "Terminal", "t1")
		err := terminal.SetAssoc1To1("ConductingEquipment", sub)
		assert.True(t, model.IsSchemaViolation(err))

		ce, _ := terminal.GetAssoc1To1("ConductingEquipment")
		assert.Nil(t, ce)
	})

	t.Run("placeholder is always accepted", func(t *testing.T) {
		terminal := newObject(t, s, "Terminal", "t2")
		ref := model.NewUnresolved("whatever", nil)
		require.NoError(t, terminal.SetAssoc1To1("ConductingEquipment", ref))

		ce, _ := terminal.GetAssoc1To1("ConductingEquipment")
		assert.Same(t, ref, ce)
	})

	t.Run("nil member", func(t *testing.T) {
		err := breaker.AddAssoc1ToM("Terminals", nil)
		assert.True(t, model.IsSchemaViolation(err))
	})
}

func TestObject_EnumAttribute(t *testing.T) {
	s := schematest.CIM(t)
	terminal := newObject(t, s, "Terminal", "t1")

	require.NoError(t, terminal.SetAttribute("phases", "ABC"))
	v, _ := terminal.GetAttribute("phases")
	enum, ok := v.(model.EnumValue)
	require.True(t, ok)
	assert.Equal(t, schematest.Namespace+"PhaseCode.ABC", enum.URI())

	ind, ok := s.ResolveIndividual("PhaseCode.N")
	require.True(t, ok)
	require.NoError(t, terminal.SetAttribute("phases", ind))
	v, _ = terminal.GetAttribute("phases")
	assert.Equal(t, "PhaseCode.N", v.(model.EnumValue).String())

	// individuals of another copy of the schema match by URI
	other := schematest.CIM(t)
	foreign, _ := other.ResolveIndividual("PhaseCode.A")
	require.NoError(t, terminal.SetAttribute("phases", model.EnumValueOf(foreign, 1)))
	v, _ = terminal.GetAttribute("phases")
	assert.Same(t, mustIndividual(t, s, "PhaseCode.A"), v.(model.EnumValue).Individual)
	assert.Equal(t, 1, v.(model.EnumValue).Native)

	err := terminal.SetAttribute("phases", "X")
	assert.True(t, model.IsSchemaViolation(err))

	err = terminal.SetAttribute("phases", 3)
	assert.True(t, model.IsSchemaViolation(err))
}

func mustIndividual(t *testing.T, s *schema.Schema, key string) *schema.MetaIndividual {
	t.Helper()
	ind, ok := s.ResolveIndividual(key)
	require.True(t, ok)
	return ind
}

func TestObject_CompoundAttribute(t *testing.T) {
	s := schematest.CIM(t)
	sub := newObject(t, s, "Substation", "s1")

	require.NoError(t, sub.SetAttribute("address", map[string]any{
		"postalCode": "12345",
		"townDetail": map[string]any{"name": "Springfield"},
	}))

	v, _ := sub.GetAttribute("address")
	addr, ok := v.(*model.Object)
	require.True(t, ok)
	assert.True(t, addr.IsCompound())
	assert.Equal(t, "StreetAddress", addr.MetaClass().Name)

	town, _ := addr.GetAttribute("townDetail")
	name, _ := town.(*model.Object).GetAttribute("name")
	assert.Equal(t, "Springfield", name)

	// a compound of the wrong class is rejected
	err := sub.SetAttribute("address", model.NewCompound(schematest.Class(t, s, "TownDetail")))
	assert.True(t, model.IsSchemaViolation(err))

	// a real object is not a compound value
	err = sub.SetAttribute("address", newObject(t, s, "Breaker", "b1"))
	assert.True(t, model.IsSchemaViolation(err))

	err = sub.SetAttribute("address", map[string]any{"unknown": 1})
	assert.True(t, model.IsSchemaViolation(err))
}

func TestObject_InverseMaintenance(t *testing.T) {
	s := schematest.CIM(t)
	breaker := newObject(t, s, "Breaker", "b1")
	line := newObject(t, s, "ACLineSegment", "l1")
	terminal := newObject(t, s, "Terminal", "t1")

	require.NoError(t, breaker.AddAssoc1ToM("Terminals", terminal))
	ce, _ := terminal.GetAssoc1To1("ConductingEquipment")
	assert.Same(t, breaker, ce)

	// reassigning the 1:1 side moves the terminal between 1:M sets
	require.NoError(t, terminal.SetAssoc1To1("ConductingEquipment", line))
	terms, _ := breaker.GetAssoc1ToM("Terminals")
	assert.Empty(t, terms)
	terms, _ = line.GetAssoc1ToM("Terminals")
	require.Len(t, terms, 1)
	assert.Same(t, terminal, terms[0])

	// adding to another set detaches the terminal from its previous owner
	require.NoError(t, breaker.AddAssoc1ToM("Terminals", terminal))
	terms, _ = line.GetAssoc1ToM("Terminals")
	assert.Empty(t, terms)
	ce, _ = terminal.GetAssoc1To1("ConductingEquipment")
	assert.Same(t, breaker, ce)

	require.NoError(t, breaker.RemoveAssoc1ToM("Terminals", terminal))
	ce, _ = terminal.GetAssoc1To1("ConductingEquipment")
	assert.Nil(t, ce)

	// clearing the 1:1 side
	require.NoError(t, terminal.SetAssoc1To1("ConductingEquipment", line))
	require.NoError(t, terminal.SetAssoc1To1("ConductingEquipment", nil))
	terms, _ = line.GetAssoc1ToM("Terminals")
	assert.Empty(t, terms)
}

func TestObject_RemoveAllAssoc1ToM(t *testing.T) {
	s := schematest.CIM(t)
	sub := newObject(t, s, "Substation", "s1")
	vl1 := newObject(t, s, "VoltageLevel", "vl1")
	vl2 := newObject(t, s, "VoltageLevel", "vl2")

	require.NoError(t, sub.AddAssoc1ToM("VoltageLevels", vl1))
	require.NoError(t, sub.AddAssoc1ToM("VoltageLevels", vl2))
	require.NoError(t, sub.AddAssoc1ToM("VoltageLevels", vl1))

	members, _ := sub.GetAssoc1ToM("VoltageLevels")
	require.Len(t, members, 2)
	assert.Equal(t, model.OID("vl1"), members[0].OID())
	assert.Equal(t, model.OID("vl2"), members[1].OID())

	require.NoError(t, sub.RemoveAllAssoc1ToM("VoltageLevels"))
	members, _ = sub.GetAssoc1ToM("VoltageLevels")
	assert.Empty(t, members)

	for _, vl := range []*model.Object{vl1, vl2} {
		back, _ := vl.GetAssoc1To1("Substation")
		assert.Nil(t, back)
	}
}

func TestObject_RemoveAllAssoc1ToMVetoed(t *testing.T) {
	s := schematest.CIM(t)
	sub := newObject(t, s, "Substation", "s1")
	vl1 := newObject(t, s, "VoltageLevel", "vl1")
	vl2 := newObject(t, s, "VoltageLevel", "vl2")
	require.NoError(t, sub.AddAssoc1ToM("VoltageLevels", vl1))
	require.NoError(t, sub.AddAssoc1ToM("VoltageLevels", vl2))

	var notices, changes int
	sub.OnChanging(func(ev *model.ChangeEvent) error {
		notices++
		if ev.Old == vl2 {
			return errors.New("keep vl2")
		}
		return nil
	})
	sub.OnChanged(func(ev *model.ChangeEvent) { changes++ })

	err := sub.RemoveAllAssoc1ToM("VoltageLevels")
	assert.True(t, model.IsChangeVetoed(err))

	// vl1 was announced but nothing was removed
	assert.Equal(t, 2, notices)
	assert.Zero(t, changes)
	members, _ := sub.GetAssoc1ToM("VoltageLevels")
	assert.Len(t, members, 2)
	back, _ := vl1.GetAssoc1To1("Substation")
	assert.Same(t, sub, back)
}

func TestObject_PrepareDetach(t *testing.T) {
	s := schematest.CIM(t)
	sub := newObject(t, s, "Substation", "s1")
	bv := newObject(t, s, "BaseVoltage", "bv1")
	vl := newObject(t, s, "VoltageLevel", "vl1")
	require.NoError(t, vl.SetAssoc1To1("Substation", sub))
	require.NoError(t, vl.SetAssoc1To1("BaseVoltage", bv))

	var changed []string
	vl.OnChanged(func(ev *model.ChangeEvent) { changed = append(changed, ev.Property.Name) })

	d, err := vl.PrepareDetach(func(*schema.MetaProperty, model.Node) bool { return true })
	require.NoError(t, err)
	assert.Equal(t, 2, d.Len())

	// nothing happens before the commit
	got, _ := vl.GetAssoc1To1("Substation")
	assert.Same(t, sub, got)
	assert.Empty(t, changed)

	d.Commit()
	got, _ = vl.GetAssoc1To1("Substation")
	assert.Nil(t, got)
	got, _ = vl.GetAssoc1To1("BaseVoltage")
	assert.Nil(t, got)
	levels, _ := sub.GetAssoc1ToM("VoltageLevels")
	assert.Empty(t, levels)
	assert.ElementsMatch(t, []string{"Substation", "BaseVoltage"}, changed)
}

func TestObject_PlaceholderReplacement(t *testing.T) {
	s := schematest.CIM(t)
	breaker := newObject(t, s, "Breaker", "b1")
	terminal := newObject(t, s, "Terminal", "t1")

	var events []*model.ChangeEvent
	terminal.OnChanged(func(ev *model.ChangeEvent) { events = append(events, ev) })

	require.NoError(t, terminal.SetAssoc1To1("ConductingEquipment", model.NewUnresolved("b1", nil)))
	terms, _ := breaker.GetAssoc1ToM("Terminals")
	assert.Empty(t, terms, "placeholders are not linked")

	// an equal placeholder is no change
	require.NoError(t, terminal.SetAssoc1To1("ConductingEquipment", model.NewUnresolved("b1", nil)))
	assert.Len(t, events, 1)

	// the real object with the same OID is a change and links the inverse
	require.NoError(t, terminal.SetAssoc1To1("ConductingEquipment", breaker))
	require.Len(t, events, 2)
	assert.True(t, model.IsUnresolved(events[1].Old.(model.Node)))
	assert.Same(t, breaker, events[1].New)

	terms, _ = breaker.GetAssoc1ToM("Terminals")
	require.Len(t, terms, 1)
	assert.Same(t, terminal, terms[0])

	// 1:M members are upgraded in place
	sub := newObject(t, s, "Substation", "s1")
	vl := newObject(t, s, "VoltageLevel", "vl1")
	require.NoError(t, sub.AddAssoc1ToM("VoltageLevels", model.NewUnresolved("vl0", nil)))
	require.NoError(t, sub.AddAssoc1ToM("VoltageLevels", model.NewUnresolved("vl1", nil)))
	require.NoError(t, sub.AddAssoc1ToM("VoltageLevels", vl))

	members, _ := sub.GetAssoc1ToM("VoltageLevels")
	require.Len(t, members, 2)
	assert.True(t, model.IsUnresolved(members[0]))
	assert.Same(t, vl, members[1])
	back, _ := vl.GetAssoc1To1("Substation")
	assert.Same(t, sub, back)
}

func TestObject_ChangeNotifications(t *testing.T) {
	s := schematest.CIM(t)
	breaker := newObject(t, s, "Breaker", "b1")
	terminal := newObject(t, s, "Terminal", "t1")

	var order []string
	breaker.OnChanging(func(ev *model.ChangeEvent) error {
		order = append(order, "changing:"+ev.Property.Name)
		return nil
	})
	breaker.OnChanged(func(ev *model.ChangeEvent) {
		order = append(order, "changed:"+ev.Property.Name)
	})

	var peer []*model.ChangeEvent
	terminal.OnChanged(func(ev *model.ChangeEvent) { peer = append(peer, ev) })

	require.NoError(t, breaker.AddAssoc1ToM("Terminals", terminal))
	assert.Equal(t, []string{"changing:Terminals", "changed:Terminals"}, order)

	require.Len(t, peer, 1)
	assert.True(t, peer[0].Inverse)
	assert.Equal(t, model.ChangeAssign, peer[0].Kind)
	assert.Same(t, breaker, peer[0].New)

	// setting an identical value does not notify
	order = nil
	require.NoError(t, breaker.SetAttribute("open", true))
	require.NoError(t, breaker.SetAttribute("open", true))
	assert.Equal(t, []string{"changing:open", "changed:open"}, order)
}

func TestObject_Veto(t *testing.T) {
	s := schematest.CIM(t)
	breaker := newObject(t, s, "Breaker", "b1")
	terminal := newObject(t, s, "Terminal", "t1")

	sub := breaker.OnChanging(func(ev *model.ChangeEvent) error {
		return errors.New("locked")
	})

	err := breaker.SetAttribute("open", true)
	require.Error(t, err)
	assert.True(t, model.IsChangeVetoed(err))
	assert.Contains(t, err.Error(), "locked")

	v, _ := breaker.GetAttribute("open")
	assert.Nil(t, v)

	err = breaker.AddAssoc1ToM("Terminals", terminal)
	assert.True(t, model.IsChangeVetoed(err))
	ce, _ := terminal.GetAssoc1To1("ConductingEquipment")
	assert.Nil(t, ce, "a vetoed change leaves the peer untouched")

	// peer-side updates cannot be vetoed
	require.NoError(t, terminal.SetAssoc1To1("ConductingEquipment", breaker))
	terms, _ := breaker.GetAssoc1ToM("Terminals")
	assert.Len(t, terms, 1)

	// a veto on any member keeps RemoveAll atomic
	err = breaker.RemoveAllAssoc1ToM("Terminals")
	assert.True(t, model.IsChangeVetoed(err))
	terms, _ = breaker.GetAssoc1ToM("Terminals")
	assert.Len(t, terms, 1)

	sub.Cancel()
	sub.Cancel()
	require.NoError(t, breaker.SetAttribute("open", true))
}

func TestObject_GenericAccess(t *testing.T) {
	s := schematest.CIM(t)
	sub := newObject(t, s, "Substation", "s1")
	vl1 := newObject(t, s, "VoltageLevel", "vl1")
	vl2 := newObject(t, s, "VoltageLevel", "vl2")

	levels, ok := s.ResolveProperty("Substation.VoltageLevels")
	require.True(t, ok)

	require.NoError(t, sub.SetProperty(levels, []model.Node{vl1, vl2}))
	v, err := sub.GetProperty(levels)
	require.NoError(t, err)
	assert.Len(t, v, 2)

	require.NoError(t, sub.SetProperty(levels, []*model.Object{vl2}))
	v, _ = sub.GetProperty(levels)
	require.Len(t, v, 1)
	assert.Same(t, vl2, v.([]model.Node)[0])
	back, _ := vl1.GetAssoc1To1("Substation")
	assert.Nil(t, back)

	require.NoError(t, sub.ClearProperty(levels))
	v, _ = sub.GetProperty(levels)
	assert.Nil(t, v)

	name, _ := s.ResolveProperty("IdentifiedObject.name")
	require.NoError(t, sub.SetProperty(name, "North"))
	assert.Equal(t, []*schema.MetaProperty{name}, sub.Properties())

	r, _ := s.ResolveProperty("ACLineSegment.r")
	_, err = sub.GetProperty(r)
	assert.True(t, model.IsSchemaViolation(err))
	err = sub.SetProperty(r, 1.0)
	assert.True(t, model.IsSchemaViolation(err))

	err = sub.SetProperty(levels, "nope")
	assert.True(t, model.IsSchemaViolation(err))
}

func TestWeakObject(t *testing.T) {
	w := model.NewWeakObject("w1", nil)

	require.NoError(t, w.SetAttribute("voltage", 110))
	v, err := w.GetAttribute("voltage")
	require.NoError(t, err)
	assert.Equal(t, 110, v)

	v, err = w.GetAttribute("missing")
	require.NoError(t, err)
	assert.Nil(t, v)

	require.NoError(t, w.AddAssoc1ToM("children", model.NewUnresolved("c1", nil)))
	members, _ := w.GetAssoc1ToM("children")
	assert.Len(t, members, 1)

	// the synthesized kind is enforced afterwards
	err = w.SetAssoc1To1("voltage", model.NewUnresolved("x", nil))
	assert.True(t, model.IsSchemaViolation(err))

	// a weak object with a class keeps declared kinds but accepts anything else
	s := schematest.CIM(t)
	wt := model.NewWeakObject("t1", schematest.Class(t, s, "Terminal"))
	require.NoError(t, wt.SetAttribute("sequenceNumber", "not a number"))
	require.NoError(t, wt.SetAttribute("extra", 1))
	assert.True(t, wt.HasProperty("extra"))
	err = wt.SetAttribute("ConductingEquipment", 1)
	assert.True(t, model.IsSchemaViolation(err))
}

func TestObject_Snapshot(t *testing.T) {
	s := schematest.CIM(t)
	sub := newObject(t, s, "Substation", "s1")
	vl := newObject(t, s, "VoltageLevel", "vl1")

	require.NoError(t, sub.SetAttribute("name", "North"))
	require.NoError(t, sub.SetAttribute("address", map[string]any{"postalCode": "1"}))
	require.NoError(t, sub.AddAssoc1ToM("VoltageLevels", vl))

	snap := sub.Snapshot()
	assert.True(t, snap.IsWeak())
	assert.Equal(t, sub.OID(), snap.OID())
	assert.Same(t, sub.MetaClass(), snap.MetaClass())

	members, _ := snap.GetAssoc1ToM("VoltageLevels")
	require.Len(t, members, 1)
	assert.True(t, model.IsUnresolved(members[0]))
	assert.Equal(t, model.OID("vl1"), members[0].OID())

	addr, _ := snap.GetAttribute("address")
	require.NoError(t, addr.(*model.Object).SetAttribute("postalCode", "2"))

	orig, _ := sub.GetAttribute("address")
	code, _ := orig.(*model.Object).GetAttribute("postalCode")
	assert.Equal(t, "1", code, "snapshot compounds are copies")

	// mutating the snapshot leaves the graph alone
	require.NoError(t, snap.RemoveAllAssoc1ToM("VoltageLevels"))
	back, _ := vl.GetAssoc1To1("Substation")
	assert.Same(t, sub, back)
}
