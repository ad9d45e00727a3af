package graph

import (
	"go.uber.org/zap"

	"github.com/Cimbios/CimBios.Core-sub000/internal/model"
	"github.com/Cimbios/CimBios.Core-sub000/internal/schema"
)

// ResolveReferences replaces every placeholder whose OID is present in the
// graph by the object itself, which also links the inverse side. It returns
// the references that remain unresolved.
func (m *Model) ResolveReferences() []UnresolvedReference {
	var remaining []UnresolvedReference

	for _, obj := range m.Objects() {
		for _, p := range obj.Properties() {
			if !p.IsAssociation() {
				continue
			}
			remaining = append(remaining, m.resolveProperty(obj, p)...)
		}
	}

	if len(remaining) > 0 {
		m.logger.Debug("unresolved references remain", zap.Int("count", len(remaining)))
	}
	return remaining
}

func (m *Model) resolveProperty(obj *model.Object, p *schema.MetaProperty) []UnresolvedReference {
	v, err := obj.GetProperty(p)
	if err != nil {
		return nil
	}

	var remaining []UnresolvedReference
	unresolved := func(target model.OID, err error) {
		remaining = append(remaining, UnresolvedReference{
			Holder:   obj.OID(),
			Property: p,
			Target:   target,
			Err:      err,
		})
	}

	switch ref := v.(type) {
	case *model.Unresolved:
		target, ok := m.objects[ref.OID()]
		if !ok {
			unresolved(ref.OID(), nil)
			break
		}
		if err := obj.SetProperty(p, target); err != nil {
			unresolved(ref.OID(), err)
		}

	case []model.Node:
		for _, n := range ref {
			u, ok := n.(*model.Unresolved)
			if !ok {
				continue
			}
			target, found := m.objects[u.OID()]
			if !found {
				unresolved(u.OID(), nil)
				continue
			}
			// adding the real object replaces the placeholder in place
			if err := addMember(obj, p, target); err != nil {
				unresolved(u.OID(), err)
			}
		}
	}
	return remaining
}

func addMember(obj *model.Object, p *schema.MetaProperty, n model.Node) error {
	if p.URI != "" {
		return obj.AddAssoc1ToM(p.URI, n)
	}
	return obj.AddAssoc1ToM(p.ShortName(), n)
}

// Unresolved lists the placeholders currently held by graph objects
func (m *Model) Unresolved() []UnresolvedReference {
	var result []UnresolvedReference
	for _, obj := range m.Objects() {
		for _, p := range obj.Properties() {
			v, err := obj.GetProperty(p)
			if err != nil {
				continue
			}
			switch ref := v.(type) {
			case *model.Unresolved:
				result = append(result, UnresolvedReference{Holder: obj.OID(), Property: p, Target: ref.OID()})
			case []model.Node:
				for _, n := range ref {
					if model.IsUnresolved(n) {
						result = append(result, UnresolvedReference{Holder: obj.OID(), Property: p, Target: n.OID()})
					}
				}
			}
		}
	}
	return result
}

// Complete returns an error wrapping ErrUnresolvedReference while any
// placeholder remains
func (m *Model) Complete() error {
	refs := m.Unresolved()
	if len(refs) == 0 {
		return nil
	}

	report := &Report{}
	for _, ref := range refs {
		report.Add(ref.Holder, ref.Property.Name, unresolvedError(ref))
	}
	return report
}

func unresolvedError(ref UnresolvedReference) error {
	return &unresolvedErr{ref: ref}
}

type unresolvedErr struct {
	ref UnresolvedReference
}

func (e *unresolvedErr) Error() string {
	return ErrUnresolvedReference.Error() + " to " + string(e.ref.Target)
}

func (e *unresolvedErr) Unwrap() error {
	return ErrUnresolvedReference
}

// Validate checks every object for missing required properties and
// unresolved references. Problems are aggregated per object.
func (m *Model) Validate() *Report {
	report := &Report{}

	for _, obj := range m.Objects() {
		for _, p := range obj.DeclaredProperties() {
			if !p.Required {
				continue
			}
			if _, ok := obj.Lookup(p); !ok {
				report.Add(obj.OID(), p.Name, ErrRequiredProperty)
			}
		}
	}

	for _, ref := range m.Unresolved() {
		report.Add(ref.Holder, ref.Property.Name, unresolvedError(ref))
	}

	return report
}
