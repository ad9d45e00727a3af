package model_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cimbios/CimBios.Core-sub000/internal/model"
	"github.com/Cimbios/CimBios.Core-sub000/internal/schema/schematest"
)

func TestTypeRegistry_Create(t *testing.T) {
	s := schematest.CIM(t)
	registry := model.NewTypeRegistry(s)

	registry.Register(schematest.Namespace+"ConductingEquipment", func(o *model.Object) error {
		return o.SetAttribute("description", "conducting")
	})
	registry.Register(schematest.Namespace+"Breaker", func(o *model.Object) error {
		return o.SetAttribute("normalOpen", false)
	})

	breaker, err := registry.Create("b1", schematest.Class(t, s, "Breaker"))
	require.NoError(t, err)
	v, _ := breaker.GetAttribute("normalOpen")
	assert.Equal(t, false, v)
	v, _ = breaker.GetAttribute("description")
	assert.Nil(t, v, "only the nearest registered constructor runs")

	line, err := registry.Create("l1", schematest.Class(t, s, "ACLineSegment"))
	require.NoError(t, err)
	v, _ = line.GetAttribute("description")
	assert.Equal(t, "conducting", v)

	terminal, err := registry.Create("t1", schematest.Class(t, s, "Terminal"))
	require.NoError(t, err)
	assert.False(t, terminal.IsWeak())
	assert.Empty(t, terminal.Properties())

	assert.True(t, registry.IsRegistered(schematest.Class(t, s, "ACLineSegment")))
	assert.False(t, registry.IsRegistered(schematest.Class(t, s, "Terminal")))
	assert.False(t, registry.IsRegistered(nil))
}

func TestTypeRegistry_Refusals(t *testing.T) {
	s := schematest.CIM(t)
	registry := model.NewTypeRegistry(s)

	for _, name := range []string{"IdentifiedObject", "PhaseCode", "Voltage", "SharedExt"} {
		_, err := registry.Create("x", schematest.Class(t, s, name))
		assert.True(t, model.IsSchemaViolation(err), name)
	}

	_, err := registry.Create("x", nil)
	assert.True(t, model.IsSchemaViolation(err))

	registry.Register(schematest.Namespace+"Terminal", func(o *model.Object) error {
		return errors.New("boom")
	})
	_, err = registry.Create("t1", schematest.Class(t, s, "Terminal"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestTypeRegistry_RegisterWithoutInitializers(t *testing.T) {
	s := schematest.CIM(t)
	registry := model.NewTypeRegistry(nil)

	registry.Register(schematest.Namespace + "Terminal")
	assert.True(t, registry.IsRegistered(schematest.Class(t, s, "Terminal")))
	assert.True(t, registry.IsRegistered(schematest.Class(t, s, "TerminalExt")) == false)

	_, err := registry.Create("x", schematest.Class(t, s, "IdentifiedObject"))
	assert.True(t, model.IsSchemaViolation(err))
}

func TestWeakFactory(t *testing.T) {
	s := schematest.CIM(t)

	obj, err := model.WeakFactory{}.Create("x", schematest.Class(t, s, "IdentifiedObject"))
	require.NoError(t, err)
	assert.True(t, obj.IsWeak())
	assert.Equal(t, model.OID("x"), obj.OID())
}
