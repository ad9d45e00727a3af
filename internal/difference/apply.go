package difference

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Cimbios/CimBios.Core-sub000/internal/graph"
	"github.com/Cimbios/CimBios.Core-sub000/internal/model"
	"github.com/Cimbios/CimBios.Core-sub000/internal/schema"
)

// Apply replays the differences onto target in OID order. Entities that
// fail are reported and skipped. Afterwards the placeholders of the target
// are resolved once more, so additions may refer to each other in any order.
func (m *Model) Apply(target *graph.Model) *Report {
	report := &Report{}

	for _, d := range m.Differences() {
		var err error
		switch x := d.(type) {
		case *Addition:
			err = m.applyAddition(target, x)
		case *Deletion:
			err = m.applyDeletion(target, x)
		case *Updating:
			err = m.applyUpdating(target, x)
		}

		if err != nil {
			report.Add(d.OID(), className(d.MetaClass()), err)
			m.logger.Warn("difference skipped",
				zap.String("oid", d.OID().String()),
				zap.String("kind", d.Kind().String()),
				zap.String("class", className(d.MetaClass())),
				zap.Error(err))
			continue
		}
		report.Applied++
	}

	if remaining := target.ResolveReferences(); len(remaining) > 0 {
		m.logger.Debug("references left unresolved after apply", zap.Int("count", len(remaining)))
	}
	return report
}

func (m *Model) applyAddition(target *graph.Model, a *Addition) error {
	class, ok := resolveClass(target.Schema(), a.MetaClass())
	if !ok {
		return fmt.Errorf("%w: %s", ErrClassResolution, a.MetaClass())
	}

	obj, exists := target.Object(a.OID())
	if exists && !sameClass(obj.MetaClass(), class) {
		if err := target.RemoveObject(a.OID()); err != nil {
			return err
		}
		exists = false
	}
	if !exists {
		var err error
		obj, err = target.CreateObject(a.OID(), class)
		if err != nil {
			return err
		}
	}

	state := a.Modified()
	var errs []error
	for _, p := range state.Properties() {
		tp, ok := obj.Property(p.String())
		if !ok || tp.Kind != p.Kind {
			continue
		}
		v, _ := state.Lookup(p)
		if err := obj.SetProperty(tp, translate(target, tp, v)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Model) applyDeletion(target *graph.Model, d *Deletion) error {
	if _, ok := target.Object(d.OID()); !ok {
		return fmt.Errorf("%w: %s", ErrObjectNotFound, d.OID())
	}
	return target.RemoveObject(d.OID())
}

func (m *Model) applyUpdating(target *graph.Model, u *Updating) error {
	obj, ok := target.Object(u.OID())
	if !ok {
		return fmt.Errorf("%w: %s", ErrObjectNotFound, u.OID())
	}

	var errs []error
	for _, p := range u.ModifiedProperties() {
		tp, ok := obj.Property(p.String())
		if !ok || tp.Kind != p.Kind {
			continue
		}

		if tp.Kind == schema.KindAssoc1ToM {
			errs = append(errs, applyMembers(target, obj, tp, u.Added(p), u.Removed(p))...)
			continue
		}

		v, _ := u.Modified().Lookup(p)
		if err := obj.SetProperty(tp, translate(target, tp, v)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// applyMembers adds the added members and enforces the removal of removed
// members that were not added back
func applyMembers(target *graph.Model, obj *model.Object, p *schema.MetaProperty, added, removed []model.Node) []error {
	current, err := obj.GetProperty(p)
	if err != nil {
		return []error{err}
	}
	members, _ := current.([]model.Node)

	out := make([]model.Node, 0, len(members)+len(added))
	for _, n := range members {
		if indexOf(removed, n.OID()) >= 0 && indexOf(added, n.OID()) < 0 {
			continue
		}
		out = append(out, n)
	}
	for _, n := range added {
		if indexOf(out, n.OID()) < 0 {
			out = append(out, translate(target, p, n).(model.Node))
		}
	}

	if err := obj.SetProperty(p, out); err != nil {
		return []error{err}
	}
	return nil
}

// translate rebinds a portable value to the target graph: references are
// looked up by OID, compounds are rebuilt with the target classes and enum
// values are re-resolved by URI
func translate(target *graph.Model, p *schema.MetaProperty, v any) any {
	switch x := v.(type) {
	case *model.Object:
		if x.IsCompound() {
			return translateCompound(target, p, x)
		}
		return translateNode(target, x)
	case model.Node:
		return translateNode(target, x)
	case []model.Node:
		out := make([]model.Node, len(x))
		for i, n := range x {
			out[i] = translateNode(target, n)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = translate(target, p, item)
		}
		return out
	case model.EnumValue:
		if ms := target.Schema(); ms != nil {
			if ind, ok := ms.ResolveIndividual(x.URI()); ok {
				return model.EnumValueOf(ind, x.Native)
			}
		}
		return x
	}
	return v
}

func translateNode(target *graph.Model, n model.Node) model.Node {
	if obj, ok := target.Object(n.OID()); ok {
		return obj
	}
	class, _ := resolveClass(target.Schema(), n.MetaClass())
	return model.NewUnresolved(n.OID(), class)
}

func translateCompound(target *graph.Model, p *schema.MetaProperty, c *model.Object) any {
	if p.Datatype == nil {
		return c
	}
	out := model.NewCompound(p.Datatype)
	for _, cp := range c.Properties() {
		tp, ok := p.Datatype.Property(cp.String())
		if !ok {
			continue
		}
		v, _ := c.Lookup(cp)
		// unknown nested values are dropped, like properties absent from the target class
		_ = out.SetProperty(tp, translate(target, tp, v))
	}
	return out
}

func resolveClass(ms schema.MetaSchema, class *schema.MetaClass) (*schema.MetaClass, bool) {
	if class == nil {
		return nil, false
	}
	if ms == nil {
		return class, true
	}
	if c, ok := ms.ResolveClass(class.URI); ok {
		return c, true
	}
	return nil, false
}
