package model

import (
	"github.com/Cimbios/CimBios.Core-sub000/internal/schema"
)

// Detachment is a set of association removals already offered to the
// changing subscribers. Commit performs them.
type Detachment struct {
	obj    *Object
	events []*ChangeEvent
}

// PrepareDetach raises the pre-change notices for removing every
// association value accepted by match, without mutating anything. A veto
// returns the error and leaves the object untouched, though subscribers
// have seen the notices raised before it.
func (o *Object) PrepareDetach(match func(p *schema.MetaProperty, n Node) bool) (*Detachment, error) {
	d := &Detachment{obj: o}

	for _, p := range o.Properties() {
		switch p.Kind {
		case schema.KindAssoc1To1:
			cur, _ := o.values[p].(Node)
			if isNilNode(cur) || !match(p, cur) {
				continue
			}
			d.events = append(d.events, &ChangeEvent{Object: o, Property: p, Kind: ChangeAssign, Old: cur})
		case schema.KindAssoc1ToM:
			for _, member := range o.refs(p) {
				if match(p, member) {
					d.events = append(d.events, &ChangeEvent{Object: o, Property: p, Kind: ChangeRemove, Old: member})
				}
			}
		}
	}

	for _, ev := range d.events {
		if err := o.begin(ev); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// Len returns the number of prepared removals
func (d *Detachment) Len() int {
	return len(d.events)
}

// Commit performs the prepared removals, maintaining inverses. Removals
// already undone by an earlier commit, e.g. through an inverse, are skipped.
func (d *Detachment) Commit() {
	o := d.obj
	for _, ev := range d.events {
		old, _ := ev.Old.(Node)

		switch ev.Kind {
		case ChangeAssign:
			cur, _ := o.values[ev.Property].(Node)
			if isNilNode(cur) || cur.OID() != old.OID() {
				continue
			}
			delete(o.values, ev.Property)
			o.relink(ev.Property, cur, nil)
		case ChangeRemove:
			list := o.refs(ev.Property)
			idx := indexOf(list, old.OID())
			if idx < 0 {
				continue
			}
			removed := list[idx]
			o.storeRefs(ev.Property, append(list[:idx], list[idx+1:]...))
			o.relink(ev.Property, removed, nil)
		}

		o.hooks.changed(ev)
	}
}
