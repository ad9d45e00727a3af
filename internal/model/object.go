// Package model implements the nodes of a schema-driven object graph.
//
// An Object holds attribute, association and statement values keyed by the
// properties its MetaClass declares. Every mutation is validated against the
// schema, offered to changing subscribers for veto, applied, mirrored onto
// the inverse side of associations and finally reported to changed
// subscribers. Weak objects follow the same contract without a schema:
// unknown property names are synthesized on first use.
//
// Objects are not synchronized. Callers serialize mutations of one graph.
package model

import (
	"fmt"

	"github.com/Cimbios/CimBios.Core-sub000/internal/schema"
)

// Object is a graph node: an identified instance of a MetaClass
type Object struct {
	oid   OID
	class *schema.MetaClass
	auto  bool
	weak  bool

	// synthesized holds the properties a weak object adopted outside its class
	synthesized []*schema.MetaProperty

	// values holds a scalar, EnumValue or compound *Object for attributes,
	// a Node for 1:1 associations, a []Node for 1:M associations and
	// []any for statements
	values map[*schema.MetaProperty]any

	hooks *hookRegistry
}

var _ Node = (*Object)(nil)

// NewObject creates a schema-validated object
func NewObject(oid OID, class *schema.MetaClass) *Object {
	return newObject(oid, class, false)
}

// NewWeakObject creates an object that accepts any property. Properties of
// its class, if any, keep their declared kinds.
func NewWeakObject(oid OID, class *schema.MetaClass) *Object {
	return newObject(oid, class, true)
}

func newObject(oid OID, class *schema.MetaClass, weak bool) *Object {
	return &Object{
		oid:    oid,
		class:  class,
		weak:   weak,
		values: make(map[*schema.MetaProperty]any),
		hooks:  newHookRegistry(),
	}
}

// OID returns the object identifier
func (o *Object) OID() OID {
	return o.oid
}

// MetaClass returns the class of the object
func (o *Object) MetaClass() *schema.MetaClass {
	return o.class
}

// IsAuto returns true if the OID was generated rather than supplied
func (o *Object) IsAuto() bool {
	return o.auto
}

// SetAuto marks the OID as generated
func (o *Object) SetAuto(auto bool) {
	o.auto = auto
}

// IsWeak returns true for schema-free objects
func (o *Object) IsWeak() bool {
	return o.weak
}

// String returns a debug representation
func (o *Object) String() string {
	return fmt.Sprintf("%s(%s)", o.className(), o.oid)
}

func (o *Object) className() string {
	if o.class == nil {
		return "?"
	}
	return o.class.Name
}

// Property finds a declared or synthesized property by URI, short name or
// bare name
func (o *Object) Property(name string) (*schema.MetaProperty, bool) {
	if o.class != nil {
		if p, ok := o.class.Property(name); ok {
			return p, true
		}
	}
	for _, p := range o.synthesized {
		if p.Matches(name) {
			return p, true
		}
	}
	return nil, false
}

// HasProperty returns true if the object declares the property
func (o *Object) HasProperty(name string) bool {
	_, ok := o.Property(name)
	return ok
}

// DeclaredProperties returns all properties the object may hold values for
func (o *Object) DeclaredProperties() []*schema.MetaProperty {
	var result []*schema.MetaProperty
	if o.class != nil {
		result = o.class.AllProperties()
	}
	return append(result, o.synthesized...)
}

// Properties returns the declared properties that currently hold a value
func (o *Object) Properties() []*schema.MetaProperty {
	var result []*schema.MetaProperty
	for _, p := range o.DeclaredProperties() {
		if _, ok := o.values[p]; ok {
			result = append(result, p)
		}
	}
	return result
}

// Lookup returns the raw stored value of a property without validation
func (o *Object) Lookup(p *schema.MetaProperty) (any, bool) {
	q := o.declared(p)
	if q == nil {
		return nil, false
	}
	v, ok := o.values[q]
	return v, ok
}

// declared maps p onto the descriptor instance the object uses for it
func (o *Object) declared(p *schema.MetaProperty) *schema.MetaProperty {
	if p == nil {
		return nil
	}
	if _, ok := o.values[p]; ok {
		return p
	}
	for _, d := range o.DeclaredProperties() {
		if schema.SameProperty(d, p) {
			return d
		}
	}
	return nil
}

// adopt returns the object's descriptor for p. Weak objects take p over
// when they do not know it yet.
func (o *Object) adopt(p *schema.MetaProperty) (*schema.MetaProperty, error) {
	if p == nil {
		return nil, o.violation("", "nil property")
	}
	if d := o.declared(p); d != nil {
		return d, nil
	}
	if o.weak {
		o.synthesized = append(o.synthesized, p)
		return p, nil
	}
	return nil, o.violation(p.ShortName(), fmt.Sprintf("property is not declared by %s", o.className()))
}

func (o *Object) resolve(name string, kind schema.PropertyKind, create bool) (*schema.MetaProperty, error) {
	p, ok := o.Property(name)
	if !ok {
		if !o.weak {
			return nil, o.violation(name, fmt.Sprintf("property is not declared by %s", o.className()))
		}
		if !create {
			return nil, nil
		}
		p = schema.NewMetaProperty(name, "", kind)
		o.synthesized = append(o.synthesized, p)
		return p, nil
	}
	if p.Kind != kind {
		return nil, o.violation(p.ShortName(), fmt.Sprintf("property is %s, not %s", p.Kind, kind))
	}
	return p, nil
}

func (o *Object) violation(property, reason string) error {
	e := &SchemaViolationError{
		OID:      o.oid,
		Property: property,
		Reason:   reason,
	}
	if o.class != nil {
		e.Class = o.class.Name
	}
	return e
}

func (o *Object) begin(ev *ChangeEvent) error {
	if err := o.hooks.changing(ev); err != nil {
		return fmt.Errorf("%w on %s.%s: %w", ErrChangeVetoed, o, ev.Property.Name, err)
	}
	return nil
}

// GetAttribute returns the value of an attribute, or nil if unset
func (o *Object) GetAttribute(name string) (any, error) {
	p, err := o.resolve(name, schema.KindAttribute, false)
	if err != nil || p == nil {
		return nil, err
	}
	return o.values[p], nil
}

// SetAttribute validates, converts and stores an attribute value.
// A nil value clears the attribute.
func (o *Object) SetAttribute(name string, value any) error {
	p, err := o.resolve(name, schema.KindAttribute, true)
	if err != nil {
		return err
	}
	return o.setAttribute(p, value)
}

func (o *Object) setAttribute(p *schema.MetaProperty, value any) error {
	v, err := o.normalizeAttribute(p, value)
	if err != nil {
		return err
	}

	old, exists := o.values[p]
	if exists && v != nil && ValueEqual(old, v) && sameType(old, v) {
		return nil
	}
	if !exists && v == nil {
		return nil
	}

	ev := &ChangeEvent{Object: o, Property: p, Kind: ChangeAssign, Old: old, New: v}
	if err := o.begin(ev); err != nil {
		return err
	}

	if v == nil {
		delete(o.values, p)
	} else {
		o.values[p] = v
	}

	o.hooks.changed(ev)
	return nil
}

func sameType(a, b any) bool {
	return fmt.Sprintf("%T", a) == fmt.Sprintf("%T", b)
}

// GetAssoc1To1 returns the target of a 1:1 association, or nil
func (o *Object) GetAssoc1To1(name string) (Node, error) {
	p, err := o.resolve(name, schema.KindAssoc1To1, false)
	if err != nil || p == nil {
		return nil, err
	}
	n, _ := o.values[p].(Node)
	return n, nil
}

// SetAssoc1To1 sets or clears (nil) the target of a 1:1 association and
// maintains the inverse on both the old and the new target
func (o *Object) SetAssoc1To1(name string, n Node) error {
	p, err := o.resolve(name, schema.KindAssoc1To1, true)
	if err != nil {
		return err
	}
	return o.setAssoc1(p, n)
}

func (o *Object) setAssoc1(p *schema.MetaProperty, n Node) error {
	if isNilNode(n) {
		n = nil
	}
	if err := o.checkTarget(p, n); err != nil {
		return err
	}

	old, _ := o.values[p].(Node)
	if identical(old, n) {
		return nil
	}

	ev := &ChangeEvent{Object: o, Property: p, Kind: ChangeAssign, Old: nodeValue(old), New: nodeValue(n)}
	if err := o.begin(ev); err != nil {
		return err
	}

	if n == nil {
		delete(o.values, p)
	} else {
		o.values[p] = n
	}
	o.relink(p, old, n)

	o.hooks.changed(ev)
	return nil
}

// GetAssoc1ToM returns the members of a 1:M association in insertion order
func (o *Object) GetAssoc1ToM(name string) ([]Node, error) {
	p, err := o.resolve(name, schema.KindAssoc1ToM, false)
	if err != nil || p == nil {
		return nil, err
	}
	return o.refs(p), nil
}

// AddAssoc1ToM adds a member to a 1:M association. Members are unique by
// OID; adding a real object replaces a placeholder with the same OID.
func (o *Object) AddAssoc1ToM(name string, n Node) error {
	p, err := o.resolve(name, schema.KindAssoc1ToM, true)
	if err != nil {
		return err
	}
	return o.addAssocM(p, n)
}

// RemoveAssoc1ToM removes a member from a 1:M association. Removing a
// non-member is a no-op.
func (o *Object) RemoveAssoc1ToM(name string, n Node) error {
	p, err := o.resolve(name, schema.KindAssoc1ToM, false)
	if err != nil || p == nil {
		return err
	}
	return o.removeAssocM(p, n)
}

// RemoveAllAssoc1ToM removes every member of a 1:M association. Every
// removal is offered to the changing subscribers before any is performed;
// if one is vetoed nothing is removed, though the subscribers have already
// seen the notices for the members before it.
func (o *Object) RemoveAllAssoc1ToM(name string) error {
	p, err := o.resolve(name, schema.KindAssoc1ToM, false)
	if err != nil || p == nil {
		return err
	}
	return o.clearAssocM(p)
}

func (o *Object) refs(p *schema.MetaProperty) []Node {
	list, _ := o.values[p].([]Node)
	if len(list) == 0 {
		return nil
	}
	out := make([]Node, len(list))
	copy(out, list)
	return out
}

func (o *Object) addAssocM(p *schema.MetaProperty, n Node) error {
	if isNilNode(n) {
		return o.violation(p.ShortName(), "cannot add nil to a 1:M association")
	}
	if err := o.checkTarget(p, n); err != nil {
		return err
	}

	list := o.refs(p)
	idx := indexOf(list, n.OID())
	var replaced Node
	if idx >= 0 {
		if list[idx] == n || IsUnresolved(n) {
			return nil
		}
		replaced = list[idx]
	}

	ev := &ChangeEvent{Object: o, Property: p, Kind: ChangeAdd, Old: nodeValue(replaced), New: n}
	if err := o.begin(ev); err != nil {
		return err
	}

	if idx >= 0 {
		list[idx] = n
	} else {
		list = append(list, n)
	}
	o.values[p] = list
	o.relink(p, replaced, n)

	o.hooks.changed(ev)
	return nil
}

func (o *Object) removeAssocM(p *schema.MetaProperty, n Node) error {
	if isNilNode(n) {
		return nil
	}
	list := o.refs(p)
	idx := indexOf(list, n.OID())
	if idx < 0 {
		return nil
	}
	removed := list[idx]

	ev := &ChangeEvent{Object: o, Property: p, Kind: ChangeRemove, Old: removed}
	if err := o.begin(ev); err != nil {
		return err
	}

	o.storeRefs(p, append(list[:idx], list[idx+1:]...))
	o.relink(p, removed, nil)

	o.hooks.changed(ev)
	return nil
}

func (o *Object) clearAssocM(p *schema.MetaProperty) error {
	list := o.refs(p)
	events := make([]*ChangeEvent, len(list))
	for i, member := range list {
		events[i] = &ChangeEvent{Object: o, Property: p, Kind: ChangeRemove, Old: member}
		if err := o.begin(events[i]); err != nil {
			return err
		}
	}

	for i, member := range list {
		o.storeRefs(p, list[i+1:])
		o.relink(p, member, nil)
		o.hooks.changed(events[i])
	}
	return nil
}

// replaceAssocM makes the members of p equal to nodes, removing missing
// members first. A veto stops the replacement at the vetoed member.
func (o *Object) replaceAssocM(p *schema.MetaProperty, nodes []Node) error {
	for _, member := range o.refs(p) {
		if indexOf(nodes, member.OID()) < 0 {
			if err := o.removeAssocM(p, member); err != nil {
				return err
			}
		}
	}
	for _, n := range nodes {
		if err := o.addAssocM(p, n); err != nil {
			return err
		}
	}
	return nil
}

func (o *Object) storeRefs(p *schema.MetaProperty, list []Node) {
	if len(list) == 0 {
		delete(o.values, p)
		return
	}
	out := make([]Node, len(list))
	copy(out, list)
	o.values[p] = out
}

func (o *Object) checkTarget(p *schema.MetaProperty, n Node) error {
	if n == nil || o.weak || IsUnresolved(n) || p.Datatype == nil {
		return nil
	}
	if !p.Datatype.Accepts(n.MetaClass()) {
		return o.violation(p.ShortName(), fmt.Sprintf("%s is not a %s", n, p.Datatype.Name))
	}
	return nil
}

func (o *Object) setStatements(p *schema.MetaProperty, statements []any) error {
	var v any
	if len(statements) > 0 {
		v = append([]any(nil), statements...)
	}

	old, exists := o.values[p]
	if (!exists && v == nil) || (exists && ValueEqual(old, v)) {
		return nil
	}

	ev := &ChangeEvent{Object: o, Property: p, Kind: ChangeAssign, Old: old, New: v}
	if err := o.begin(ev); err != nil {
		return err
	}

	if v == nil {
		delete(o.values, p)
	} else {
		o.values[p] = v
	}

	o.hooks.changed(ev)
	return nil
}

// GetProperty returns the value of any property: an attribute value, a Node,
// a []Node or a []any depending on its kind. Unset properties yield nil.
func (o *Object) GetProperty(p *schema.MetaProperty) (any, error) {
	q := o.declared(p)
	if q == nil {
		if o.weak {
			return nil, nil
		}
		return nil, o.violation(p.ShortName(), fmt.Sprintf("property is not declared by %s", o.className()))
	}

	switch q.Kind {
	case schema.KindAssoc1ToM:
		if refs := o.refs(q); refs != nil {
			return refs, nil
		}
		return nil, nil
	case schema.KindStatements:
		if list, ok := o.values[q].([]any); ok {
			return append([]any(nil), list...), nil
		}
		return nil, nil
	}
	return o.values[q], nil
}

// SetProperty stores a value of any kind through the validated setters.
// A []Node replaces the members of a 1:M association; nil clears.
func (o *Object) SetProperty(p *schema.MetaProperty, value any) error {
	q, err := o.adopt(p)
	if err != nil {
		return err
	}

	switch q.Kind {
	case schema.KindAttribute:
		return o.setAttribute(q, value)
	case schema.KindAssoc1To1:
		n, ok := asNode(value)
		if !ok {
			return o.violation(q.ShortName(), fmt.Sprintf("%T is not a reference", value))
		}
		return o.setAssoc1(q, n)
	case schema.KindAssoc1ToM:
		nodes, ok := asNodes(value)
		if !ok {
			return o.violation(q.ShortName(), fmt.Sprintf("%T is not a reference set", value))
		}
		return o.replaceAssocM(q, nodes)
	case schema.KindStatements:
		if value == nil {
			return o.setStatements(q, nil)
		}
		list, ok := value.([]any)
		if !ok {
			return o.violation(q.ShortName(), fmt.Sprintf("%T is not a statement list", value))
		}
		return o.setStatements(q, list)
	}
	return o.violation(q.ShortName(), "unknown property kind")
}

// ClearProperty removes the value of any property
func (o *Object) ClearProperty(p *schema.MetaProperty) error {
	return o.SetProperty(p, nil)
}

// Snapshot returns a weak deep copy of the object. References are replaced
// by placeholders so the copy does not hold on to the graph.
func (o *Object) Snapshot() *Object {
	s := newObject(o.oid, o.class, true)
	s.auto = o.auto
	s.synthesized = append([]*schema.MetaProperty(nil), o.synthesized...)
	for p, v := range o.values {
		s.values[p] = snapshotValue(v)
	}
	return s
}

func snapshotValue(v any) any {
	switch x := v.(type) {
	case *Object:
		if x.IsCompound() {
			return x.Snapshot()
		}
		return Placeholder(x)
	case *Unresolved:
		return x
	case []Node:
		out := make([]Node, len(x))
		for i, n := range x {
			out[i] = Placeholder(n)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = snapshotValue(item)
		}
		return out
	}
	return v
}

// valuesByKey returns the stored values keyed by property URI
func (o *Object) valuesByKey() map[string]any {
	out := make(map[string]any, len(o.values))
	for p, v := range o.values {
		out[p.String()] = v
	}
	return out
}

func indexOf(list []Node, oid OID) int {
	for i, n := range list {
		if n.OID() == oid {
			return i
		}
	}
	return -1
}

func nodeValue(n Node) any {
	if isNilNode(n) {
		return nil
	}
	return n
}

func asNode(v any) (Node, bool) {
	switch n := v.(type) {
	case nil:
		return nil, true
	case Node:
		return n, true
	}
	return nil, false
}

func asNodes(v any) ([]Node, bool) {
	switch list := v.(type) {
	case nil:
		return nil, true
	case []Node:
		return list, true
	case []*Object:
		out := make([]Node, len(list))
		for i, n := range list {
			out[i] = n
		}
		return out, true
	case []*Unresolved:
		out := make([]Node, len(list))
		for i, n := range list {
			out[i] = n
		}
		return out, true
	}
	return nil, false
}
