package model

import (
	"github.com/Cimbios/CimBios.Core-sub000/internal/schema"
)

// relink mirrors the change of p from old to n onto the inverse side:
// a real old target drops its back-reference to o, a real new target gains
// one. Placeholders are never touched.
func (o *Object) relink(p *schema.MetaProperty, old, n Node) {
	if p.Inverse == nil {
		return
	}
	if prev, ok := old.(*Object); ok && prev != nil && Node(prev) != n {
		prev.unlinkPeer(p.Inverse, o)
	}
	if next, ok := n.(*Object); ok && next != nil {
		next.linkPeer(p.Inverse, o, p)
	}
}

// unlinkPeer removes the reference to from held in inv of the receiver.
// The write is raw: it cannot be vetoed but is reported as an inverse change.
func (o *Object) unlinkPeer(inv *schema.MetaProperty, from *Object) {
	q := o.declared(inv)
	if q == nil {
		return
	}

	switch q.Kind {
	case schema.KindAssoc1To1:
		cur, _ := o.values[q].(Node)
		if isNilNode(cur) || cur.OID() != from.oid {
			return
		}
		delete(o.values, q)
		o.hooks.changed(&ChangeEvent{Object: o, Property: q, Kind: ChangeAssign, Old: cur, Inverse: true})

	case schema.KindAssoc1ToM:
		list := o.refs(q)
		idx := indexOf(list, from.oid)
		if idx < 0 {
			return
		}
		removed := list[idx]
		o.storeRefs(q, append(list[:idx], list[idx+1:]...))
		o.hooks.changed(&ChangeEvent{Object: o, Property: q, Kind: ChangeRemove, Old: removed, Inverse: true})
	}
}

// linkPeer makes inv of the receiver reference to. When inv is 1:1 and the
// receiver was paired with another object, that object loses its forward
// reference to the receiver first.
func (o *Object) linkPeer(inv *schema.MetaProperty, to *Object, forward *schema.MetaProperty) {
	q := o.declared(inv)
	if q == nil {
		if !o.weak {
			return
		}
		q = inv
		o.synthesized = append(o.synthesized, q)
	}

	switch q.Kind {
	case schema.KindAssoc1To1:
		cur, _ := o.values[q].(Node)
		if !isNilNode(cur) && cur == Node(to) {
			return
		}
		if prev, ok := cur.(*Object); ok && prev != nil && prev.oid != to.oid {
			back := q.Inverse
			if back == nil {
				back = forward
			}
			prev.unlinkPeer(back, o)
		}
		o.values[q] = to
		o.hooks.changed(&ChangeEvent{Object: o, Property: q, Kind: ChangeAssign, Old: nodeValue(cur), New: to, Inverse: true})

	case schema.KindAssoc1ToM:
		list := o.refs(q)
		idx := indexOf(list, to.oid)
		var replaced Node
		if idx >= 0 {
			if list[idx] == Node(to) {
				return
			}
			replaced = list[idx]
			list[idx] = to
		} else {
			list = append(list, to)
		}
		o.storeRefs(q, list)
		o.hooks.changed(&ChangeEvent{Object: o, Property: q, Kind: ChangeAdd, Old: nodeValue(replaced), New: to, Inverse: true})
	}
}
