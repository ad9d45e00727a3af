package codec

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/Cimbios/CimBios.Core-sub000/internal/difference"
	"github.com/Cimbios/CimBios.Core-sub000/internal/model"
	"github.com/Cimbios/CimBios.Core-sub000/internal/schema"
)

// DifferenceDocument holds a difference set as two record lists. Forward
// carries additions and the new values of updatings; reverse carries
// deletions and the old values of updatings. For 1:M associations the
// forward side lists added members and the reverse side removed ones.
type DifferenceDocument struct {
	Forward []Record `json:"forward"`
	Reverse []Record `json:"reverse"`
}

// EncodeDifferences encodes a difference model. Updating records list every
// modified property on both sides, so unset values appear as null.
func EncodeDifferences(m *difference.Model, catalog model.Catalog) (*DifferenceDocument, error) {
	doc := &DifferenceDocument{
		Forward: []Record{},
		Reverse: []Record{},
	}

	for _, d := range m.Differences() {
		kind := d.Kind().String()
		props := d.ModifiedProperties()

		if state := d.Modified(); state != nil {
			r, err := record(state, props, d.Kind() == difference.KindUpdating, catalog)
			if err != nil {
				return nil, err
			}
			r.Kind = kind
			doc.Forward = append(doc.Forward, r)
		}
		if state := d.Original(); state != nil {
			r, err := record(state, props, d.Kind() == difference.KindUpdating, catalog)
			if err != nil {
				return nil, err
			}
			r.Kind = kind
			doc.Reverse = append(doc.Reverse, r)
		}
	}
	return doc, nil
}

// WriteDifferences encodes a difference model and writes it to w
func WriteDifferences(w io.Writer, m *difference.Model, catalog model.Catalog, opts Options) error {
	doc, err := EncodeDifferences(m, catalog)
	if err != nil {
		return err
	}
	return write(w, doc, opts)
}

// ReadDifferences reads and decodes a difference document
func ReadDifferences(r io.Reader, ms schema.MetaSchema, opts ...difference.Option) (*difference.Model, error) {
	var doc DifferenceDocument
	if err := read(r, &doc); err != nil {
		return nil, err
	}
	return DecodeDifferences(&doc, ms, opts...)
}

type recordPair struct {
	forward *Record
	reverse *Record
}

// DecodeDifferences rebuilds a difference model. Updating records are
// paired by OID across both lists.
func DecodeDifferences(doc *DifferenceDocument, ms schema.MetaSchema, opts ...difference.Option) (*difference.Model, error) {
	d := newDecoder(ms)
	m := difference.NewModel(opts...)

	pairs := make(map[string]*recordPair)
	for i := range doc.Forward {
		r := &doc.Forward[i]
		p := pairs[r.OID]
		if p == nil {
			p = &recordPair{}
			pairs[r.OID] = p
		}
		if p.forward != nil {
			return nil, fmt.Errorf("%w: %s appears twice in forward", ErrMalformedDocument, r.OID)
		}
		p.forward = r
	}
	for i := range doc.Reverse {
		r := &doc.Reverse[i]
		p := pairs[r.OID]
		if p == nil {
			p = &recordPair{}
			pairs[r.OID] = p
		}
		if p.reverse != nil {
			return nil, fmt.Errorf("%w: %s appears twice in reverse", ErrMalformedDocument, r.OID)
		}
		p.reverse = r
	}

	oids := make([]string, 0, len(pairs))
	for oid := range pairs {
		oids = append(oids, oid)
	}
	sort.Strings(oids)

	for _, oid := range oids {
		obj, err := d.difference(pairs[oid])
		if err != nil {
			return nil, fmt.Errorf("failed to decode difference %s: %w", oid, err)
		}
		m.Put(obj)
	}
	return m, nil
}

func (d *decoder) difference(p *recordPair) (difference.Object, error) {
	head := p.forward
	if head == nil {
		head = p.reverse
	}
	kind, ok := difference.ParseKind(head.Kind)
	if !ok {
		return nil, fmt.Errorf("%w: unknown kind %q", ErrMalformedDocument, head.Kind)
	}
	if head.OID == "" {
		return nil, fmt.Errorf("%w: record without oid", ErrMalformedDocument)
	}
	oid := model.OID(head.OID)
	class, _ := d.class(head.Class)

	switch kind {
	case difference.KindAddition:
		if p.reverse != nil {
			return nil, fmt.Errorf("%w: addition with a reverse record", ErrMalformedDocument)
		}
		a := difference.NewAddition(oid, class)
		return a, d.fill(a.Modified(), p.forward.Properties, a.SetProperty)

	case difference.KindDeletion:
		if p.forward != nil {
			return nil, fmt.Errorf("%w: deletion with a forward record", ErrMalformedDocument)
		}
		del := difference.NewDeletion(oid, class)
		return del, d.fill(del.Original(), p.reverse.Properties, del.SetProperty)
	}

	u := difference.NewUpdating(oid, class)
	var forward, reverse map[string]json.RawMessage
	if p.forward != nil {
		forward = p.forward.Properties
	}
	if p.reverse != nil {
		reverse = p.reverse.Properties
	}

	keys := make(map[string]bool)
	for key := range forward {
		keys[key] = true
	}
	for key := range reverse {
		keys[key] = true
	}

	for key := range keys {
		prop, err := d.property(u.Modified(), key, forward[key], reverse[key])
		if err != nil {
			return nil, err
		}
		to, err := d.value(prop, forward[key])
		if err != nil {
			return nil, err
		}
		from, err := d.value(prop, reverse[key])
		if err != nil {
			return nil, err
		}
		if err := change(u, prop, from, to); err != nil {
			return nil, err
		}
	}
	return u, nil
}

func (d *decoder) fill(state *model.Object, props map[string]json.RawMessage, set func(*schema.MetaProperty, any) error) error {
	for key, raw := range props {
		p, err := d.property(state, key, raw)
		if err != nil {
			return err
		}
		v, err := d.value(p, raw)
		if err != nil {
			return err
		}
		if err := set(p, v); err != nil {
			return err
		}
	}
	return nil
}

func change(u *difference.Updating, p *schema.MetaProperty, from, to any) error {
	switch p.Kind {
	case schema.KindAssoc1ToM:
		removed, _ := from.([]model.Node)
		added, _ := to.([]model.Node)
		for _, n := range removed {
			if err := u.RemoveFromAssocM(p, n); err != nil {
				return err
			}
		}
		for _, n := range added {
			if err := u.AddToAssocM(p, n); err != nil {
				return err
			}
		}
		return nil
	case schema.KindAssoc1To1:
		fn, _ := from.(model.Node)
		tn, _ := to.(model.Node)
		return u.ChangeAssoc1(p, fn, tn)
	}
	return u.ChangeAttribute(p, from, to)
}
