package difference

import (
	"context"
	"fmt"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/Cimbios/CimBios.Core-sub000/internal/graph"
	"github.com/Cimbios/CimBios.Core-sub000/internal/model"
	"github.com/Cimbios/CimBios.Core-sub000/internal/schema"
)

// Compare computes the updating that turns left into right. Only the
// properties both objects declare (matched by URI) are compared. A strict
// comparison requires both objects to share a class.
func Compare(left, right *model.Object, strict bool) (*Updating, error) {
	if strict && !sameClass(left.MetaClass(), right.MetaClass()) {
		return nil, fmt.Errorf("%w: %s is %s, %s is %s", ErrClassMismatch,
			left.OID(), className(left.MetaClass()), right.OID(), className(right.MetaClass()))
	}

	u := NewUpdating(left.OID(), left.MetaClass())

	rightProps := make(map[string]*schema.MetaProperty)
	for _, p := range right.DeclaredProperties() {
		rightProps[p.String()] = p
	}

	for _, lp := range left.DeclaredProperties() {
		rp, ok := rightProps[lp.String()]
		if !ok || rp.Kind != lp.Kind {
			continue
		}
		lv, _ := left.Lookup(lp)
		rv, _ := right.Lookup(rp)

		if err := compareProperty(u, lp, lv, rv); err != nil {
			return nil, fmt.Errorf("failed to compare %s.%s: %w", left.OID(), lp.Name, err)
		}
	}

	return u, nil
}

func compareProperty(u *Updating, p *schema.MetaProperty, lv, rv any) error {
	switch p.Kind {
	case schema.KindAttribute:
		lc, lok := compound(lv, p)
		rc, rok := compound(rv, p)
		if lok && rok {
			nested, err := Compare(lc, rc, false)
			if err != nil {
				return err
			}
			if nested.IsEmpty() {
				return nil
			}
			return u.ChangeAttribute(p, lc, rc)
		}
		if model.ValueEqual(lv, rv) {
			return nil
		}
		return u.ChangeAttribute(p, lv, rv)

	case schema.KindStatements:
		if model.ValueEqual(lv, rv) {
			return nil
		}
		return u.ChangeAttribute(p, lv, rv)

	case schema.KindAssoc1To1:
		ln, _ := lv.(model.Node)
		rn, _ := rv.(model.Node)
		if model.SameNode(ln, rn) {
			return nil
		}
		return u.ChangeAssoc1(p, ln, rn)

	case schema.KindAssoc1ToM:
		lm, _ := lv.([]model.Node)
		rm, _ := rv.([]model.Node)
		for _, n := range lm {
			if indexOf(rm, n.OID()) < 0 {
				if err := u.RemoveFromAssocM(p, n); err != nil {
					return err
				}
			}
		}
		for _, n := range rm {
			if indexOf(lm, n.OID()) < 0 {
				if err := u.AddToAssocM(p, n); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// compound returns v as a compound object, wrapping raw maps
func compound(v any, p *schema.MetaProperty) (*model.Object, bool) {
	switch c := v.(type) {
	case *model.Object:
		return c, c != nil && c.IsCompound()
	case map[string]any:
		return model.WrapCompound(c, p.Datatype), true
	}
	return nil, false
}

func sameClass(a, b *schema.MetaClass) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a == b || a.URI == b.URI
}

func className(c *schema.MetaClass) string {
	if c == nil {
		return "<nil>"
	}
	return c.Name
}

// CompareOptions configures CompareGraphs
type CompareOptions struct {
	// Strict fails objects whose class differs between the graphs
	Strict bool

	// Workers limits concurrent comparisons; zero means GOMAXPROCS
	Workers int
}

// CompareGraphs computes the differences that turn left into right: shared
// OIDs yield updatings (when non-empty), left-only objects deletions and
// right-only objects additions. Objects are compared concurrently; failed
// comparisons are reported and skipped. Both graphs must not be mutated
// while the comparison runs.
func CompareGraphs(ctx context.Context, left, right *graph.Model, opts CompareOptions) (*Model, *Report, error) {
	oids := unionOIDs(left, right)

	results := make([]Object, len(oids))
	failures := make([]error, len(oids))

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, oid := range oids {
		i, oid := i, oid
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			l, inLeft := left.Object(oid)
			r, inRight := right.Object(oid)

			switch {
			case inLeft && inRight:
				u, err := Compare(l, r, opts.Strict)
				if err != nil {
					failures[i] = err
					return nil
				}
				if !u.IsEmpty() {
					results[i] = u
				}
			case inLeft:
				results[i] = DeletionFrom(l)
			case inRight:
				results[i] = AdditionFrom(r)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	diffs := NewModel()
	report := &Report{}
	for i, oid := range oids {
		if failures[i] != nil {
			class := ""
			if l, ok := left.Object(oid); ok {
				class = className(l.MetaClass())
			}
			report.Add(oid, class, failures[i])
			continue
		}
		if results[i] != nil {
			diffs.Put(results[i])
		}
		report.Applied++
	}

	return diffs, report, nil
}

func unionOIDs(left, right *graph.Model) []model.OID {
	seen := make(map[model.OID]bool)
	var oids []model.OID
	for _, g := range []*graph.Model{left, right} {
		for _, obj := range g.Objects() {
			if !seen[obj.OID()] {
				seen[obj.OID()] = true
				oids = append(oids, obj.OID())
			}
		}
	}
	sort.Slice(oids, func(i, j int) bool { return oids[i] < oids[j] })
	return oids
}
