package model

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"time"

	"github.com/Cimbios/CimBios.Core-sub000/internal/schema"
)

// EnumValue is an attribute value drawn from an enum class. Native optionally
// carries an application specific representation of the same member.
type EnumValue struct {
	Individual *schema.MetaIndividual
	Native     any
}

// NewEnumValue creates an enum value for an individual
func NewEnumValue(ind *schema.MetaIndividual) EnumValue {
	return EnumValue{Individual: ind}
}

// EnumValueOf creates an enum value carrying a native representation
func EnumValueOf(ind *schema.MetaIndividual, native any) EnumValue {
	return EnumValue{Individual: ind, Native: native}
}

// URI returns the URI of the individual
func (e EnumValue) URI() string {
	if e.Individual == nil {
		return ""
	}
	return e.Individual.URI
}

// String returns the short name of the individual
func (e EnumValue) String() string {
	if e.Individual == nil {
		return "<nil>"
	}
	return e.Individual.ShortName()
}

// Equal compares enum values by individual URI
func (e EnumValue) Equal(other EnumValue) bool {
	return e.URI() == other.URI()
}

// NewCompound creates an empty compound value of the given class
func NewCompound(class *schema.MetaClass) *Object {
	return newObject("", class, false)
}

// IsCompound returns true for objects without OID, i.e. compound values
func (o *Object) IsCompound() bool {
	return o.oid.IsEmpty()
}

// WrapCompound builds a weak compound stand-in from a raw map. Keys are
// property names or URIs; nested maps are wrapped recursively using the
// datatype class of the matching property, when known.
func WrapCompound(m map[string]any, class *schema.MetaClass) *Object {
	c := newObject("", class, true)
	for key, v := range m {
		var nested *schema.MetaClass
		if class != nil {
			if p, ok := class.Property(key); ok {
				nested = p.Datatype
			}
		}
		if sub, ok := v.(map[string]any); ok {
			v = WrapCompound(sub, nested)
		}
		// weak objects only reject kind mismatches, which cannot occur here
		_ = c.SetAttribute(key, v)
	}
	return c
}

// normalizeAttribute converts v into the canonical representation of p
func (o *Object) normalizeAttribute(p *schema.MetaProperty, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	if o.weak {
		if m, ok := v.(map[string]any); ok {
			return WrapCompound(m, p.Datatype), nil
		}
		return v, nil
	}

	switch {
	case p.IsCompound():
		return o.normalizeCompound(p, v)
	case p.IsEnum():
		return o.normalizeEnum(p, v)
	}

	out, err := ConvertPrimitive(v, p.ValueType())
	if err != nil {
		return nil, o.violation(p.ShortName(), err.Error())
	}
	return out, nil
}

func (o *Object) normalizeCompound(p *schema.MetaProperty, v any) (any, error) {
	switch c := v.(type) {
	case *Object:
		if !c.IsCompound() {
			return nil, o.violation(p.ShortName(), fmt.Sprintf("object %s is not a compound value", c.oid))
		}
		if c.class != nil && !p.Datatype.Accepts(c.class) {
			return nil, o.violation(p.ShortName(),
				fmt.Sprintf("compound of class %s is not a %s", c.class.Name, p.Datatype.Name))
		}
		return c, nil
	case map[string]any:
		compound := NewCompound(p.Datatype)
		for key, value := range c {
			if err := compound.SetAttribute(key, value); err != nil {
				return nil, o.violation(p.ShortName(), err.Error())
			}
		}
		return compound, nil
	}
	return nil, o.violation(p.ShortName(), fmt.Sprintf("%T is not a %s compound", v, p.Datatype.Name))
}

func (o *Object) normalizeEnum(p *schema.MetaProperty, v any) (any, error) {
	var ind *schema.MetaIndividual
	var native any

	switch e := v.(type) {
	case EnumValue:
		ind, native = e.Individual, e.Native
	case *schema.MetaIndividual:
		ind = e
	case string:
		found, ok := p.Datatype.Individual(e)
		if !ok {
			return nil, o.violation(p.ShortName(), fmt.Sprintf("%q is not an individual of %s", e, p.Datatype.Name))
		}
		ind = found
	default:
		return nil, o.violation(p.ShortName(), fmt.Sprintf("%T is not a %s enum value", v, p.Datatype.Name))
	}

	if ind == nil {
		return nil, o.violation(p.ShortName(), "empty enum value")
	}
	// an individual from another copy of the schema is matched by URI
	if own, ok := p.Datatype.Individual(ind.URI); ok {
		return EnumValueOf(own, native), nil
	}
	return nil, o.violation(p.ShortName(), fmt.Sprintf("%s is not an individual of %s", ind, p.Datatype.Name))
}

// ConvertPrimitive converts v to the Go representation of t: int64, float64,
// bool, string or time.Time. TypeUnknown only normalizes numbers.
func ConvertPrimitive(v any, t schema.PrimitiveType) (any, error) {
	if v == nil {
		return nil, nil
	}

	switch t {
	case schema.TypeString:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case schema.TypeInteger:
		switch n := v.(type) {
		case string:
			i, err := strconv.ParseInt(n, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("cannot convert %q to integer", n)
			}
			return i, nil
		case json.Number:
			i, err := n.Int64()
			if err != nil {
				return nil, fmt.Errorf("cannot convert %s to integer", n)
			}
			return i, nil
		case float32, float64:
			f := reflect.ValueOf(n).Float()
			if f != math.Trunc(f) || f >= 1<<63 || f < -1<<63 {
				return nil, fmt.Errorf("cannot convert %v to integer without loss", f)
			}
			return int64(f), nil
		}
		if i, ok := toInt64(v); ok {
			return i, nil
		}
	case schema.TypeFloat:
		switch n := v.(type) {
		case string:
			f, err := strconv.ParseFloat(n, 64)
			if err != nil {
				return nil, fmt.Errorf("cannot convert %q to float", n)
			}
			return f, nil
		case json.Number:
			f, err := n.Float64()
			if err != nil {
				return nil, fmt.Errorf("cannot convert %s to float", n)
			}
			return f, nil
		case float32:
			return float64(n), nil
		case float64:
			return n, nil
		}
		if i, ok := toInt64(v); ok {
			return float64(i), nil
		}
	case schema.TypeBoolean:
		switch b := v.(type) {
		case bool:
			return b, nil
		case string:
			parsed, err := strconv.ParseBool(b)
			if err != nil {
				return nil, fmt.Errorf("cannot convert %q to boolean", b)
			}
			return parsed, nil
		}
	case schema.TypeDateTime:
		switch d := v.(type) {
		case time.Time:
			return d, nil
		case string:
			parsed, err := time.Parse(time.RFC3339Nano, d)
			if err != nil {
				return nil, fmt.Errorf("cannot convert %q to datetime", d)
			}
			return parsed, nil
		}
	default:
		if n, ok := v.(json.Number); ok {
			if i, err := n.Int64(); err == nil {
				return i, nil
			}
			f, err := n.Float64()
			if err != nil {
				return nil, fmt.Errorf("invalid number %s", n)
			}
			return f, nil
		}
		if i, ok := toInt64(v); ok {
			return i, nil
		}
		if f, ok := v.(float32); ok {
			return float64(f), nil
		}
		return v, nil
	}

	return nil, fmt.Errorf("cannot convert %T to %s", v, t)
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), n <= math.MaxInt64
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), n <= math.MaxInt64
	}
	return 0, false
}

func toFloat64(v any) (float64, bool) {
	if i, ok := toInt64(v); ok {
		return float64(i), true
	}
	switch f := v.(type) {
	case float32:
		return float64(f), true
	case float64:
		return f, true
	case json.Number:
		parsed, err := f.Float64()
		return parsed, err == nil
	}
	return 0, false
}

// ValueEqual compares property values: references by OID, enums by
// individual URI, compounds structurally, times by instant and numbers
// across representations.
func ValueEqual(a, b any) bool {
	if a == nil || b == nil {
		return isNilValue(a) && isNilValue(b)
	}

	switch x := a.(type) {
	case Node:
		if c, ok := x.(*Object); ok && c != nil && c.IsCompound() {
			y, ok := b.(*Object)
			return ok && CompoundEqual(c, y)
		}
		y, ok := b.(Node)
		return ok && SameNode(x, y)
	case EnumValue:
		switch y := b.(type) {
		case EnumValue:
			return x.Equal(y)
		case *schema.MetaIndividual:
			return x.URI() == y.URI
		}
		return false
	case time.Time:
		y, ok := b.(time.Time)
		return ok && x.Equal(y)
	case []Node:
		y, ok := b.([]Node)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !SameNode(x[i], y[i]) {
				return false
			}
		}
		return true
	case []any:
		y, ok := b.([]any)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !ValueEqual(x[i], y[i]) {
				return false
			}
		}
		return true
	}

	// integers compare exactly; floats only when one side is a float
	if ia, ok := toInt64(a); ok {
		if ib, ok := toInt64(b); ok {
			return ia == ib
		}
	}
	if fa, ok := toFloat64(a); ok {
		fb, ok := toFloat64(b)
		return ok && fa == fb
	}

	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta == tb && ta.Comparable() {
		return a == b
	}
	return reflect.DeepEqual(a, b)
}

// CompoundEqual compares two compound values property by property, keyed
// by property URI
func CompoundEqual(a, b *Object) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	av := a.valuesByKey()
	bv := b.valuesByKey()
	if len(av) != len(bv) {
		return false
	}
	for key, x := range av {
		y, ok := bv[key]
		if !ok || !ValueEqual(x, y) {
			return false
		}
	}
	return true
}

func isNilValue(v any) bool {
	if v == nil {
		return true
	}
	if n, ok := v.(Node); ok {
		return isNilNode(n)
	}
	return false
}
