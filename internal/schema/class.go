package schema

import (
	"strings"
)

// MetaClass describes a class of graph objects
type MetaClass struct {
	URI         string
	Name        string
	Description string

	Parents []*MetaClass

	// Flags
	Abstract  bool
	Datatype  bool
	Enum      bool
	Compound  bool
	Extension bool

	// Primitive is the underlying value type of a datatype class
	Primitive PrimitiveType

	// ExtensionOf lists the classes an extension class augments.
	// Extensions is the reverse relation, maintained by the registry.
	ExtensionOf []*MetaClass
	Extensions  []*MetaClass

	Individuals []*MetaIndividual

	properties []*MetaProperty
}

// NewMetaClass creates a new MetaClass
func NewMetaClass(uri, name string) *MetaClass {
	if name == "" {
		name = localName(uri)
	}
	return &MetaClass{
		URI:  uri,
		Name: name,
	}
}

// String returns the class URI, or its name for anonymous classes
func (c *MetaClass) String() string {
	if c == nil {
		return "<nil>"
	}
	if c.URI != "" {
		return c.URI
	}
	return c.Name
}

// AddProperty adds an own property and sets its owner
func (c *MetaClass) AddProperty(p *MetaProperty) {
	p.Owner = c
	c.properties = append(c.properties, p)
}

// AddIndividual adds an enum individual and sets its class
func (c *MetaClass) AddIndividual(i *MetaIndividual) {
	i.Class = c
	c.Individuals = append(c.Individuals, i)
}

// OwnProperties returns the properties declared directly on this class
func (c *MetaClass) OwnProperties() []*MetaProperty {
	result := make([]*MetaProperty, len(c.properties))
	copy(result, c.properties)
	return result
}

// AllAncestors returns all transitive parents, nearest first
func (c *MetaClass) AllAncestors() []*MetaClass {
	var result []*MetaClass
	seen := map[*MetaClass]bool{c: true}
	queue := append([]*MetaClass{}, c.Parents...)

	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if seen[next] {
			continue
		}
		seen[next] = true
		result = append(result, next)
		queue = append(queue, next.Parents...)
	}
	return result
}

// IsDescendantOf returns true if other is a transitive parent of c
func (c *MetaClass) IsDescendantOf(other *MetaClass) bool {
	for _, a := range c.AllAncestors() {
		if sameClass(a, other) {
			return true
		}
	}
	return false
}

// IsExtensionOf returns true if c is an extension augmenting other
func (c *MetaClass) IsExtensionOf(other *MetaClass) bool {
	for _, e := range c.ExtensionOf {
		if sameClass(e, other) {
			return true
		}
	}
	return false
}

// Accepts returns true if an instance of other may be used where c is declared:
// the same class, a descendant, or one of c's extensions.
func (c *MetaClass) Accepts(other *MetaClass) bool {
	if c == nil || other == nil {
		return false
	}
	return sameClass(c, other) || other.IsDescendantOf(c) || other.IsExtensionOf(c)
}

// AllProperties returns own, inherited and extension properties, deduplicated by URI
func (c *MetaClass) AllProperties() []*MetaProperty {
	var result []*MetaProperty
	seen := make(map[string]bool)

	add := func(props []*MetaProperty) {
		for _, p := range props {
			key := p.key()
			if seen[key] {
				continue
			}
			seen[key] = true
			result = append(result, p)
		}
	}

	lineage := append([]*MetaClass{c}, c.AllAncestors()...)
	for _, cls := range lineage {
		add(cls.properties)
		for _, ext := range cls.Extensions {
			add(ext.properties)
		}
	}
	return result
}

// Property finds a property by URI, short name (Owner.name) or bare name.
// Exact URI and short name matches win over bare name matches.
func (c *MetaClass) Property(key string) (*MetaProperty, bool) {
	all := c.AllProperties()
	for _, p := range all {
		if p.URI == key || p.ShortName() == key {
			return p, true
		}
	}
	for _, p := range all {
		if p.Name == key {
			return p, true
		}
	}
	return nil, false
}

// HasProperty returns true if the class declares the property
func (c *MetaClass) HasProperty(key string) bool {
	_, ok := c.Property(key)
	return ok
}

// Individual finds an enum individual by URI, short name or bare name
func (c *MetaClass) Individual(key string) (*MetaIndividual, bool) {
	for _, i := range c.Individuals {
		if i.URI == key || i.ShortName() == key || i.Name == key {
			return i, true
		}
	}
	return nil, false
}

// sameClass compares classes by identity, falling back to URI
func sameClass(a, b *MetaClass) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return a.URI != "" && a.URI == b.URI
}

// MetaIndividual is a named member of an enum class
type MetaIndividual struct {
	URI   string
	Name  string
	Class *MetaClass
}

// ShortName returns Class.Name
func (i *MetaIndividual) ShortName() string {
	if i.Class == nil {
		return i.Name
	}
	return i.Class.Name + "." + i.Name
}

// String returns the individual URI
func (i *MetaIndividual) String() string {
	if i.URI != "" {
		return i.URI
	}
	return i.ShortName()
}

// splitShortName splits "Class.name" into its parts
func splitShortName(s string) (string, string, bool) {
	i := strings.LastIndex(s, ".")
	if i <= 0 || i == len(s)-1 {
		return "", s, false
	}
	return s[:i], s[i+1:], true
}
