package schema

// MetaProperty describes a property of a class
type MetaProperty struct {
	URI         string
	Name        string
	Description string

	Kind PropertyKind

	// Primitive is the value type of a plain attribute
	Primitive PrimitiveType

	// Datatype is the datatype, enum or compound class of an attribute,
	// or the target class of an association
	Datatype *MetaClass

	Inverse  *MetaProperty
	Owner    *MetaClass
	Required bool
}

// NewMetaProperty creates a new MetaProperty
func NewMetaProperty(uri, name string, kind PropertyKind) *MetaProperty {
	if name == "" {
		name = localName(uri)
	}
	return &MetaProperty{
		URI:  uri,
		Name: name,
		Kind: kind,
	}
}

// ShortName returns Owner.name, or the bare name for unowned properties
func (p *MetaProperty) ShortName() string {
	if p.Owner == nil || p.Owner.Name == "" {
		return p.Name
	}
	return p.Owner.Name + "." + p.Name
}

// String returns the property URI or short name
func (p *MetaProperty) String() string {
	if p == nil {
		return "<nil>"
	}
	if p.URI != "" {
		return p.URI
	}
	return p.ShortName()
}

// Matches returns true if key names this property
func (p *MetaProperty) Matches(key string) bool {
	return p.URI == key || p.ShortName() == key || p.Name == key
}

// ValueType returns the primitive type values of this attribute convert to
func (p *MetaProperty) ValueType() PrimitiveType {
	if p.Datatype != nil && p.Datatype.Datatype {
		return p.Datatype.Primitive
	}
	return p.Primitive
}

// IsAssociation returns true for 1:1 and 1:M associations
func (p *MetaProperty) IsAssociation() bool {
	return p.Kind.IsAssociation()
}

// IsCompound returns true if the attribute holds compound values
func (p *MetaProperty) IsCompound() bool {
	return p.Kind == KindAttribute && p.Datatype != nil && p.Datatype.Compound
}

// IsEnum returns true if the attribute holds enum individuals
func (p *MetaProperty) IsEnum() bool {
	return p.Kind == KindAttribute && p.Datatype != nil && p.Datatype.Enum
}

func (p *MetaProperty) key() string {
	if p.URI != "" {
		return p.URI
	}
	return p.ShortName()
}

// SameProperty compares properties by identity, falling back to URI
func SameProperty(a, b *MetaProperty) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return a.key() == b.key()
}
