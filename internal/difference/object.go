// Package difference represents, computes, extracts and replays structural
// changes of an object graph.
//
// A difference is an Addition, a Deletion or an Updating of one object.
// Their snapshots are weak objects whose references are placeholders, so a
// difference can be applied to any graph holding objects with the same OIDs.
package difference

import (
	"github.com/Cimbios/CimBios.Core-sub000/internal/model"
	"github.com/Cimbios/CimBios.Core-sub000/internal/schema"
)

// Kind is the kind of a difference
type Kind int

const (
	KindAddition Kind = iota
	KindDeletion
	KindUpdating
)

// String returns the string representation of the kind
func (k Kind) String() string {
	switch k {
	case KindAddition:
		return "addition"
	case KindDeletion:
		return "deletion"
	case KindUpdating:
		return "updating"
	default:
		return "unknown"
	}
}

// ParseKind converts a string to a Kind
func ParseKind(s string) (Kind, bool) {
	switch s {
	case "addition":
		return KindAddition, true
	case "deletion":
		return KindDeletion, true
	case "updating":
		return KindUpdating, true
	}
	return 0, false
}

// Object is the difference of a single graph object
type Object interface {
	Kind() Kind
	OID() model.OID
	MetaClass() *schema.MetaClass

	// ModifiedProperties lists the properties the difference touches
	ModifiedProperties() []*schema.MetaProperty

	// Original is the state before the change; nil for additions
	Original() *model.Object

	// Modified is the state after the change; nil for deletions
	Modified() *model.Object
}

type base struct {
	oid      model.OID
	class    *schema.MetaClass
	modified []*schema.MetaProperty
}

func (b *base) OID() model.OID {
	return b.oid
}

func (b *base) MetaClass() *schema.MetaClass {
	return b.class
}

func (b *base) ModifiedProperties() []*schema.MetaProperty {
	out := make([]*schema.MetaProperty, len(b.modified))
	copy(out, b.modified)
	return out
}

func (b *base) touch(p *schema.MetaProperty) {
	for _, q := range b.modified {
		if schema.SameProperty(p, q) {
			return
		}
	}
	b.modified = append(b.modified, p)
}

func (b *base) untouch(p *schema.MetaProperty) {
	for i, q := range b.modified {
		if schema.SameProperty(p, q) {
			b.modified = append(b.modified[:i:i], b.modified[i+1:]...)
			return
		}
	}
}

// Addition is a newly created object. It only has a modified state.
type Addition struct {
	base
	state *model.Object
}

// NewAddition creates an empty addition
func NewAddition(oid model.OID, class *schema.MetaClass) *Addition {
	return &Addition{
		base:  base{oid: oid, class: class},
		state: model.NewWeakObject(oid, class),
	}
}

// AdditionFrom creates an addition holding a snapshot of obj
func AdditionFrom(obj *model.Object) *Addition {
	a := &Addition{
		base:  base{oid: obj.OID(), class: obj.MetaClass()},
		state: obj.Snapshot(),
	}
	for _, p := range a.state.Properties() {
		a.touch(p)
	}
	return a
}

// Kind returns KindAddition
func (a *Addition) Kind() Kind { return KindAddition }

// Original returns nil
func (a *Addition) Original() *model.Object { return nil }

// Modified returns the state of the new object
func (a *Addition) Modified() *model.Object { return a.state }

// SetProperty sets a property of the new object; nil clears it
func (a *Addition) SetProperty(p *schema.MetaProperty, v any) error {
	if err := a.state.SetProperty(p, portable(v)); err != nil {
		return err
	}
	if _, ok := a.state.Lookup(p); ok {
		a.touch(p)
	} else {
		a.untouch(p)
	}
	return nil
}

// Deletion is a removed object. It only has an original state.
type Deletion struct {
	base
	state *model.Object
}

// NewDeletion creates an empty deletion
func NewDeletion(oid model.OID, class *schema.MetaClass) *Deletion {
	return &Deletion{
		base:  base{oid: oid, class: class},
		state: model.NewWeakObject(oid, class),
	}
}

// DeletionFrom creates a deletion from a snapshot or live object
func DeletionFrom(obj *model.Object) *Deletion {
	d := &Deletion{
		base:  base{oid: obj.OID(), class: obj.MetaClass()},
		state: obj.Snapshot(),
	}
	for _, p := range d.state.Properties() {
		d.touch(p)
	}
	return d
}

// Kind returns KindDeletion
func (d *Deletion) Kind() Kind { return KindDeletion }

// Original returns the state of the removed object
func (d *Deletion) Original() *model.Object { return d.state }

// Modified returns nil
func (d *Deletion) Modified() *model.Object { return nil }

// SetProperty sets a property of the removed object; nil clears it
func (d *Deletion) SetProperty(p *schema.MetaProperty, v any) error {
	if err := d.state.SetProperty(p, portable(v)); err != nil {
		return err
	}
	if _, ok := d.state.Lookup(p); ok {
		d.touch(p)
	} else {
		d.untouch(p)
	}
	return nil
}

// Updating is a change of an existing object. For 1:M associations the
// original side holds the removed members and the modified side the added
// ones.
type Updating struct {
	base
	original *model.Object
	modified *model.Object

	// originalSet records properties whose original value is known;
	// the first recorded original wins
	originalSet map[string]bool
}

// NewUpdating creates an empty updating
func NewUpdating(oid model.OID, class *schema.MetaClass) *Updating {
	return &Updating{
		base:        base{oid: oid, class: class},
		original:    model.NewWeakObject(oid, class),
		modified:    model.NewWeakObject(oid, class),
		originalSet: make(map[string]bool),
	}
}

// Kind returns KindUpdating
func (u *Updating) Kind() Kind { return KindUpdating }

// Original returns the values before the change
func (u *Updating) Original() *model.Object { return u.original }

// Modified returns the values after the change
func (u *Updating) Modified() *model.Object { return u.modified }

// IsEmpty returns true if no property differs
func (u *Updating) IsEmpty() bool {
	return len(u.base.modified) == 0
}

// ChangeAttribute records an attribute or statements change. The property
// is dropped once both sides are equal again.
func (u *Updating) ChangeAttribute(p *schema.MetaProperty, from, to any) error {
	return u.change(p, portable(from), portable(to))
}

// ChangeAssoc1 records a 1:1 association change, compared by OID
func (u *Updating) ChangeAssoc1(p *schema.MetaProperty, from, to model.Node) error {
	return u.change(p, model.Placeholder(from), model.Placeholder(to))
}

func (u *Updating) change(p *schema.MetaProperty, from, to any) error {
	key := p.String()
	if !u.originalSet[key] {
		if err := u.original.SetProperty(p, from); err != nil {
			return err
		}
		u.originalSet[key] = true
	}
	if err := u.modified.SetProperty(p, to); err != nil {
		return err
	}

	before, _ := u.original.Lookup(p)
	after, _ := u.modified.Lookup(p)
	if model.ValueEqual(before, after) {
		u.prune(p)
		return nil
	}
	u.touch(p)
	return nil
}

// AddToAssocM records the addition of a 1:M member. Adding a member
// recorded as removed cancels the removal.
func (u *Updating) AddToAssocM(p *schema.MetaProperty, n model.Node) error {
	return u.moveMember(p, n, u.original, u.modified)
}

// RemoveFromAssocM records the removal of a 1:M member. Removing a member
// recorded as added cancels the addition.
func (u *Updating) RemoveFromAssocM(p *schema.MetaProperty, n model.Node) error {
	return u.moveMember(p, n, u.modified, u.original)
}

// moveMember cancels n from the opposite side if present, else records it
// on its own side
func (u *Updating) moveMember(p *schema.MetaProperty, n model.Node, opposite, own *model.Object) error {
	ref := model.Placeholder(n)
	if ref == nil {
		return nil
	}

	members := nodes(opposite, p)
	if idx := indexOf(members, ref.OID()); idx >= 0 {
		if err := opposite.SetProperty(p, append(members[:idx:idx], members[idx+1:]...)); err != nil {
			return err
		}
	} else {
		if err := own.SetProperty(p, append(nodes(own, p), ref)); err != nil {
			return err
		}
	}

	if len(nodes(u.original, p)) == 0 && len(nodes(u.modified, p)) == 0 {
		u.prune(p)
		return nil
	}
	u.touch(p)
	return nil
}

func (u *Updating) prune(p *schema.MetaProperty) {
	_ = u.original.ClearProperty(p)
	_ = u.modified.ClearProperty(p)
	delete(u.originalSet, p.String())
	u.untouch(p)
}

// Added returns the members added to a 1:M association
func (u *Updating) Added(p *schema.MetaProperty) []model.Node {
	return nodes(u.modified, p)
}

// Removed returns the members removed from a 1:M association
func (u *Updating) Removed(p *schema.MetaProperty) []model.Node {
	return nodes(u.original, p)
}

func nodes(obj *model.Object, p *schema.MetaProperty) []model.Node {
	v, _ := obj.Lookup(p)
	list, _ := v.([]model.Node)
	out := make([]model.Node, len(list))
	copy(out, list)
	return out
}

func indexOf(list []model.Node, oid model.OID) int {
	for i, n := range list {
		if n.OID() == oid {
			return i
		}
	}
	return -1
}

// portable turns references into placeholders and copies compounds so a
// difference never points into a live graph
func portable(v any) any {
	switch x := v.(type) {
	case *model.Object:
		if x == nil {
			return nil
		}
		if x.IsCompound() {
			return x.Snapshot()
		}
		return model.Placeholder(x)
	case model.Node:
		return model.Placeholder(x)
	case []model.Node:
		out := make([]model.Node, len(x))
		for i, n := range x {
			out[i] = model.Placeholder(n)
		}
		return out
	}
	return v
}
