package model_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cimbios/CimBios.Core-sub000/internal/model"
	"github.com/Cimbios/CimBios.Core-sub000/internal/schema"
	"github.com/Cimbios/CimBios.Core-sub000/internal/schema/schematest"
)

func TestConvertPrimitive(t *testing.T) {
	tests := []struct {
		name    string
		in      any
		typ     schema.PrimitiveType
		want    any
		wantErr bool
	}{
		{"int to integer", 7, schema.TypeInteger, int64(7), false},
		{"uint8 to integer", uint8(7), schema.TypeInteger, int64(7), false},
		{"whole float to integer", 7.0, schema.TypeInteger, int64(7), false},
		{"json number to integer", json.Number("42"), schema.TypeInteger, int64(42), false},
		{"fraction to integer", 7.5, schema.TypeInteger, nil, true},
		{"float at 2^63 to integer", float64(1 << 63), schema.TypeInteger, nil, true},
		{"float at -2^63 to integer", float64(-1 << 63), schema.TypeInteger, int64(-1 << 63), false},
		{"int32 to float", int32(3), schema.TypeFloat, float64(3), false},
		{"float32 to float", float32(0.5), schema.TypeFloat, float64(0.5), false},
		{"string to float", "2.25", schema.TypeFloat, 2.25, false},
		{"bool to string", true, schema.TypeString, nil, true},
		{"string", "x", schema.TypeString, "x", false},
		{"bad bool", "maybe", schema.TypeBoolean, nil, true},
		{"bad datetime", "yesterday", schema.TypeDateTime, nil, true},
		{"unknown keeps strings", "x", schema.TypeUnknown, "x", false},
		{"unknown normalizes ints", int16(4), schema.TypeUnknown, int64(4), false},
		{"nil", nil, schema.TypeInteger, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := model.ConvertPrimitive(tt.in, tt.typ)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValueEqual(t *testing.T) {
	s := schematest.CIM(t)
	a, _ := s.ResolveIndividual("PhaseCode.A")
	b, _ := s.ResolveIndividual("PhaseCode.B")

	now := time.Now()
	real := model.NewObject("x", schematest.Class(t, s, "Breaker"))

	addr1 := model.NewCompound(schematest.Class(t, s, "StreetAddress"))
	require.NoError(t, addr1.SetAttribute("postalCode", "1"))
	addr2 := model.WrapCompound(map[string]any{"postalCode": "1"}, schematest.Class(t, s, "StreetAddress"))
	addr3 := model.WrapCompound(map[string]any{"postalCode": "2"}, schematest.Class(t, s, "StreetAddress"))

	assert.True(t, model.ValueEqual(nil, nil))
	assert.False(t, model.ValueEqual(nil, 1))
	assert.True(t, model.ValueEqual(int64(1), 1.0))
	assert.False(t, model.ValueEqual(int64(1), "1"))
	assert.False(t, model.ValueEqual(int64(1<<53), int64(1<<53+1)))
	assert.False(t, model.ValueEqual(int64(1<<53), 1<<53+1))
	assert.True(t, model.ValueEqual(int64(1<<53+1), uint64(1<<53+1)))
	assert.True(t, model.ValueEqual(int64(1<<53), float64(1<<53)))
	assert.True(t, model.ValueEqual("a", "a"))
	assert.True(t, model.ValueEqual(now, now.UTC()))
	assert.True(t, model.ValueEqual(model.NewEnumValue(a), model.NewEnumValue(a)))
	assert.False(t, model.ValueEqual(model.NewEnumValue(a), model.NewEnumValue(b)))
	assert.True(t, model.ValueEqual(real, model.NewUnresolved("x", nil)))
	assert.False(t, model.ValueEqual(real, model.NewUnresolved("y", nil)))
	assert.True(t, model.ValueEqual(addr1, addr2))
	assert.False(t, model.ValueEqual(addr1, addr3))
	assert.True(t, model.ValueEqual(
		[]model.Node{real},
		[]model.Node{model.NewUnresolved("x", nil)}))
	assert.True(t, model.ValueEqual([]any{"s", int64(1)}, []any{"s", 1}))
	assert.False(t, model.ValueEqual([]any{"s"}, []any{"s", "t"}))
	assert.True(t, model.ValueEqual(map[string]int{"a": 1}, map[string]int{"a": 1}))
}

func TestOIDGenerators(t *testing.T) {
	seq := model.NewSequenceGenerator("_")
	assert.Equal(t, model.OID("_1"), seq.Generate())
	assert.Equal(t, model.OID("_2"), seq.Generate())

	gen := model.UUIDGenerator{Prefix: "_"}
	first := gen.Generate()
	assert.Len(t, first.String(), 37)
	assert.NotEqual(t, first, gen.Generate())
	assert.False(t, first.IsEmpty())
}

func TestPlaceholder(t *testing.T) {
	s := schematest.CIM(t)
	class := schematest.Class(t, s, "Breaker")
	obj := model.NewObject("b1", class)

	ref := model.Placeholder(obj)
	require.True(t, model.IsUnresolved(ref))
	assert.Equal(t, model.OID("b1"), ref.OID())
	assert.Same(t, class, ref.MetaClass())
	assert.Same(t, ref, model.Placeholder(ref))
	assert.Nil(t, model.Placeholder(nil))

	assert.True(t, model.SameNode(obj, ref))
	assert.True(t, model.SameNode(nil, nil))
	assert.False(t, model.SameNode(obj, nil))
}
