package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/Cimbios/CimBios.Core-sub000/internal/model"
	"github.com/Cimbios/CimBios.Core-sub000/internal/schema"
)

// Values are written in one of these shapes besides plain JSON scalars:
//
//	{"ref": "<oid>", "class": "<class uri>"}      reference
//	{"enum": "<individual uri>"}                  enum value
//	{"compound": "<class uri>", "properties": {}} compound value
//
// 1:M associations and statements are arrays. Times are RFC 3339 strings.

type refValue struct {
	Ref   string `json:"ref"`
	Class string `json:"class,omitempty"`
}

type enumValue struct {
	Enum string `json:"enum"`
}

type compoundValue struct {
	Compound   string                     `json:"compound"`
	Properties map[string]json.RawMessage `json:"properties,omitempty"`
}

var null = json.RawMessage("null")

func encodeValue(v any) (json.RawMessage, error) {
	switch x := v.(type) {
	case nil:
		return null, nil
	case model.EnumValue:
		return json.Marshal(enumValue{Enum: x.URI()})
	case model.Node:
		if obj, ok := x.(*model.Object); ok {
			if obj == nil {
				return null, nil
			}
			if obj.IsCompound() {
				return encodeCompound(obj)
			}
		}
		return json.Marshal(ref(x))
	case []model.Node:
		refs := make([]refValue, len(x))
		for i, n := range x {
			refs[i] = ref(n)
		}
		return json.Marshal(refs)
	case []any:
		items := make([]json.RawMessage, len(x))
		for i, item := range x {
			raw, err := encodeValue(item)
			if err != nil {
				return nil, err
			}
			items[i] = raw
		}
		return json.Marshal(items)
	case time.Time:
		return json.Marshal(x.Format(time.RFC3339Nano))
	case int:
		return encodeInteger(int64(x))
	case int64:
		return encodeInteger(x)
	case uint64:
		if x > maxExactInteger {
			return json.Marshal(strconv.FormatUint(x, 10))
		}
	}
	return json.Marshal(v)
}

// maxExactInteger is the largest magnitude a canonical JSON number holds
// without rounding.
const maxExactInteger = 1<<53 - 1

// encodeInteger writes integers beyond the exact range of a double as
// decimal strings, which integer properties parse back.
func encodeInteger(i int64) (json.RawMessage, error) {
	if i > maxExactInteger || i < -maxExactInteger {
		return json.Marshal(strconv.FormatInt(i, 10))
	}
	return json.Marshal(i)
}

func ref(n model.Node) refValue {
	r := refValue{Ref: n.OID().String()}
	if c := n.MetaClass(); c != nil {
		r.Class = c.URI
	}
	return r
}

func encodeCompound(c *model.Object) (json.RawMessage, error) {
	props, err := encodeProperties(c, c.Properties(), false)
	if err != nil {
		return nil, err
	}
	out := compoundValue{Properties: props}
	if class := c.MetaClass(); class != nil {
		out.Compound = class.URI
	}
	return json.Marshal(out)
}

// encodeProperties encodes the values of props keyed by property URI.
// With explicit set, unset properties are written as null or as an empty
// array for 1:M associations.
func encodeProperties(obj *model.Object, props []*schema.MetaProperty, explicit bool) (map[string]json.RawMessage, error) {
	out := make(map[string]json.RawMessage, len(props))
	for _, p := range props {
		v, ok := obj.Lookup(p)
		if !ok && !explicit {
			continue
		}
		if v == nil && p.Kind == schema.KindAssoc1ToM {
			v = []model.Node{}
		}
		raw, err := encodeValue(v)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s.%s: %w", obj.OID(), p.Name, err)
		}
		out[p.String()] = raw
	}
	return out, nil
}

// decoder turns records back into objects. Classes, properties and
// individuals the schema does not know get stand-in descriptors so that
// nothing in a document is lost.
type decoder struct {
	schema  schema.MetaSchema
	classes map[string]*schema.MetaClass
}

func newDecoder(ms schema.MetaSchema) *decoder {
	return &decoder{
		schema:  ms,
		classes: make(map[string]*schema.MetaClass),
	}
}

// class resolves a class URI; known reports whether the schema has it
func (d *decoder) class(uri string) (class *schema.MetaClass, known bool) {
	if uri == "" {
		return nil, false
	}
	if d.schema != nil {
		if c, ok := d.schema.ResolveClass(uri); ok {
			return c, true
		}
	}
	if c, ok := d.classes[uri]; ok {
		return c, false
	}
	c := schema.NewMetaClass(uri, "")
	d.classes[uri] = c
	return c, false
}

func (d *decoder) individual(uri string, hint *schema.MetaClass) *schema.MetaIndividual {
	if hint != nil {
		if ind, ok := hint.Individual(uri); ok {
			return ind
		}
	}
	if d.schema != nil {
		if ind, ok := d.schema.ResolveIndividual(uri); ok {
			return ind
		}
	}
	return &schema.MetaIndividual{URI: uri}
}

// property finds the descriptor of key on obj. Weak objects get a
// synthesized descriptor whose kind is inferred from the raw values.
func (d *decoder) property(obj *model.Object, key string, raws ...json.RawMessage) (*schema.MetaProperty, error) {
	if p, ok := obj.Property(key); ok {
		return p, nil
	}
	if !obj.IsWeak() {
		return nil, fmt.Errorf("%w: %s on %s", ErrUnknownProperty, key, obj)
	}
	return schema.NewMetaProperty(key, "", inferKind(raws...)), nil
}

func (d *decoder) setProperties(obj *model.Object, props map[string]json.RawMessage) error {
	for key, raw := range props {
		p, err := d.property(obj, key, raw)
		if err != nil {
			return err
		}
		v, err := d.value(p, raw)
		if err != nil {
			return fmt.Errorf("failed to decode %s.%s: %w", obj.OID(), p.Name, err)
		}
		if err := obj.SetProperty(p, v); err != nil {
			return err
		}
	}
	return nil
}

// value decodes raw as a value of p
func (d *decoder) value(p *schema.MetaProperty, raw json.RawMessage) (any, error) {
	if isNull(raw) {
		return nil, nil
	}

	switch p.Kind {
	case schema.KindAssoc1To1:
		return d.ref(raw, p.Datatype)
	case schema.KindAssoc1ToM:
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("%w: expected a reference array", ErrMalformedDocument)
		}
		nodes := make([]model.Node, 0, len(items))
		for _, item := range items {
			n, err := d.ref(item, p.Datatype)
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, n)
		}
		return nodes, nil
	case schema.KindStatements:
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("%w: expected a statement array", ErrMalformedDocument)
		}
		out := make([]any, len(items))
		for i, item := range items {
			v, err := d.generic(item, p.Datatype)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	}

	if isObject(raw) {
		return d.generic(raw, p.Datatype)
	}
	v, err := scalar(raw)
	if err != nil {
		return nil, err
	}
	if p.IsEnum() {
		return v, nil
	}
	return model.ConvertPrimitive(v, p.ValueType())
}

func (d *decoder) ref(raw json.RawMessage, expected *schema.MetaClass) (model.Node, error) {
	var r refValue
	if err := json.Unmarshal(raw, &r); err != nil || r.Ref == "" {
		return nil, fmt.Errorf("%w: expected a reference, got %s", ErrMalformedDocument, raw)
	}
	class := expected
	if r.Class != "" {
		class, _ = d.class(r.Class)
	}
	return model.NewUnresolved(model.OID(r.Ref), class), nil
}

// generic decodes a value without property information
func (d *decoder) generic(raw json.RawMessage, hint *schema.MetaClass) (any, error) {
	if isNull(raw) {
		return nil, nil
	}
	if !isObject(raw) {
		v, err := scalar(raw)
		if err != nil {
			return nil, err
		}
		return model.ConvertPrimitive(v, schema.TypeUnknown)
	}

	var shape map[string]json.RawMessage
	if err := json.Unmarshal(raw, &shape); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedDocument, err)
	}

	switch {
	case shape["ref"] != nil:
		return d.ref(raw, hint)
	case shape["enum"] != nil:
		var e enumValue
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedDocument, err)
		}
		return model.NewEnumValue(d.individual(e.Enum, hint)), nil
	case shape["compound"] != nil:
		var c compoundValue
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedDocument, err)
		}
		return d.compound(c, hint)
	}
	return nil, fmt.Errorf("%w: unrecognized value %s", ErrMalformedDocument, raw)
}

func (d *decoder) compound(c compoundValue, hint *schema.MetaClass) (*model.Object, error) {
	class, known := d.class(c.Compound)
	if hint != nil && (class == nil || hint.URI == class.URI) {
		class, known = hint, true
	}

	var out *model.Object
	if known && class.Compound {
		out = model.NewCompound(class)
	} else {
		out = model.WrapCompound(nil, class)
	}
	if err := d.setProperties(out, c.Properties); err != nil {
		return nil, err
	}
	return out, nil
}

// inferKind guesses the kind of an unknown property from its values
func inferKind(raws ...json.RawMessage) schema.PropertyKind {
	for _, raw := range raws {
		raw = bytes.TrimSpace(raw)
		if len(raw) == 0 || isNull(raw) {
			continue
		}
		switch raw[0] {
		case '[':
			var items []json.RawMessage
			if err := json.Unmarshal(raw, &items); err != nil || len(items) == 0 {
				continue
			}
			if isRef(items[0]) {
				return schema.KindAssoc1ToM
			}
			return schema.KindStatements
		case '{':
			if isRef(raw) {
				return schema.KindAssoc1To1
			}
			return schema.KindAttribute
		default:
			return schema.KindAttribute
		}
	}
	return schema.KindAttribute
}

func isRef(raw json.RawMessage) bool {
	if !isObject(raw) {
		return false
	}
	var shape map[string]json.RawMessage
	if err := json.Unmarshal(raw, &shape); err != nil {
		return false
	}
	_, ok := shape["ref"]
	return ok
}

func isNull(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, null)
}

func isObject(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '{'
}

func scalar(raw json.RawMessage) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedDocument, err)
	}
	return v, nil
}
