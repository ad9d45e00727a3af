// Package codec reads and writes graphs and difference sets as JSON
// documents. Documents are written in canonical form (RFC 8785), so equal
// content always produces equal bytes.
package codec

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/Cimbios/CimBios.Core-sub000/internal/model"
	"github.com/Cimbios/CimBios.Core-sub000/internal/schema"
)

// Record is the serialized form of one object or difference
type Record struct {
	Kind  string `json:"kind,omitempty"`
	OID   string `json:"oid"`
	Class string `json:"class,omitempty"`
	Auto  bool   `json:"auto,omitempty"`

	// Generic marks records of classes without a native representation
	Generic bool `json:"generic,omitempty"`

	Properties map[string]json.RawMessage `json:"properties,omitempty"`
}

// GraphDocument is a flat collection of objects
type GraphDocument struct {
	Objects []Record `json:"objects"`
}

func record(obj *model.Object, props []*schema.MetaProperty, explicit bool, catalog model.Catalog) (Record, error) {
	values, err := encodeProperties(obj, props, explicit)
	if err != nil {
		return Record{}, err
	}
	r := Record{
		OID:        obj.OID().String(),
		Auto:       obj.IsAuto(),
		Properties: values,
	}
	if c := obj.MetaClass(); c != nil {
		r.Class = c.URI
	}
	if catalog != nil && !catalog.IsRegistered(obj.MetaClass()) {
		r.Generic = true
	}
	return r, nil
}

// EncodeGraph encodes objects in the given order. The catalog, if any,
// flags classes without a native representation as generic.
func EncodeGraph(objects []*model.Object, catalog model.Catalog) (*GraphDocument, error) {
	doc := &GraphDocument{Objects: make([]Record, 0, len(objects))}
	for _, obj := range objects {
		r, err := record(obj, obj.Properties(), false, catalog)
		if err != nil {
			return nil, err
		}
		doc.Objects = append(doc.Objects, r)
	}
	return doc, nil
}

// WriteGraph encodes objects and writes them to w
func WriteGraph(w io.Writer, objects []*model.Object, catalog model.Catalog, opts Options) error {
	doc, err := EncodeGraph(objects, catalog)
	if err != nil {
		return err
	}
	return write(w, doc, opts)
}

// DecodeGraph builds objects from a document. Records of classes the schema
// resolves are created by the factory; others become weak objects. References
// are left as placeholders for the graph to resolve.
func DecodeGraph(doc *GraphDocument, ms schema.MetaSchema, factory model.Factory) ([]*model.Object, error) {
	d := newDecoder(ms)
	objects := make([]*model.Object, 0, len(doc.Objects))

	for _, r := range doc.Objects {
		obj, err := d.object(r, factory)
		if err != nil {
			return nil, err
		}
		if err := d.setProperties(obj, r.Properties); err != nil {
			return nil, err
		}
		objects = append(objects, obj)
	}
	return objects, nil
}

// ReadGraph reads and decodes a graph document
func ReadGraph(r io.Reader, ms schema.MetaSchema, factory model.Factory) ([]*model.Object, error) {
	var doc GraphDocument
	if err := read(r, &doc); err != nil {
		return nil, err
	}
	return DecodeGraph(&doc, ms, factory)
}

func (d *decoder) object(r Record, factory model.Factory) (*model.Object, error) {
	if r.OID == "" {
		return nil, fmt.Errorf("%w: record without oid", ErrMalformedDocument)
	}

	class, known := d.class(r.Class)
	var obj *model.Object
	if known && factory != nil {
		var err error
		obj, err = factory.Create(model.OID(r.OID), class)
		if err != nil {
			return nil, err
		}
	} else {
		obj = model.NewWeakObject(model.OID(r.OID), class)
	}
	obj.SetAuto(r.Auto)
	return obj, nil
}
