package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidator_Structural(t *testing.T) {
	t.Run("association without target", func(t *testing.T) {
		c := NewMetaClass("urn:A", "")
		c.AddProperty(NewMetaProperty("urn:A.b", "", KindAssoc1To1))

		v := NewValidator()
		err := v.ValidateStructural(c)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "association has no target class")
		require.Len(t, v.Errors(), 1)
		assert.Equal(t, "b", v.Errors()[0].Property)
	})

	t.Run("enum without individuals", func(t *testing.T) {
		c := NewMetaClass("urn:E", "")
		c.Enum = true

		err := NewValidator().ValidateStructural(c)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no individuals")
	})

	t.Run("attribute typed by a plain class", func(t *testing.T) {
		target := NewMetaClass("urn:T", "")
		c := NewMetaClass("urn:A", "")
		p := NewMetaProperty("urn:A.t", "", KindAttribute)
		p.Datatype = target
		c.AddProperty(p)

		err := NewValidator().ValidateStructural(c)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "use an association")
	})

	t.Run("duplicate property", func(t *testing.T) {
		c := NewMetaClass("urn:A", "")
		c.AddProperty(NewMetaProperty("urn:A.x", "", KindAttribute))
		c.AddProperty(NewMetaProperty("urn:A.x2", "x", KindAttribute))

		err := NewValidator().ValidateStructural(c)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate property")
	})

	t.Run("valid class", func(t *testing.T) {
		c := NewMetaClass("urn:A", "")
		c.AddProperty(NewMetaProperty("urn:A.x", "", KindAttribute))

		assert.NoError(t, NewValidator().ValidateStructural(c))
	})
}

func TestValidator_Inverses(t *testing.T) {
	a := NewMetaClass("urn:A", "")
	b := NewMetaClass("urn:B", "")
	other := NewMetaClass("urn:Other", "")

	ab := NewMetaProperty("urn:A.b", "", KindAssoc1To1)
	ab.Datatype = b
	a.AddProperty(ab)

	ba := NewMetaProperty("urn:B.a", "", KindAssoc1ToM)
	ba.Datatype = a
	b.AddProperty(ba)

	ab.Inverse = ba
	ba.Inverse = ab

	classes := map[string]*MetaClass{a.URI: a, b.URI: b, other.URI: other}
	require.NoError(t, NewValidator().ValidateInverses(classes))

	ba.Datatype = other
	err := NewValidator().ValidateInverses(classes)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "inverse B.a targets Other")
}

func TestValidationError_Format(t *testing.T) {
	err := &ValidationError{
		Class:    "Terminal",
		Property: "phases",
		Message:  "bad",
		Hint:     "fix it",
	}
	assert.Equal(t, "Terminal.phases: bad\n  hint: fix it", err.Error())
}
