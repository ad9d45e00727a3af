package schema

import (
	"fmt"
	"sort"
	"sync"
)

// MetaSchema is the read-only view of a schema consumed by the object graph
// and the difference engine.
type MetaSchema interface {
	ResolveClass(key string) (*MetaClass, bool)
	ResolveIndividual(key string) (*MetaIndividual, bool)
	CanInstantiate(class *MetaClass) bool
}

// Schema manages the classes, properties and individuals of a meta-schema
type Schema struct {
	namespace   string
	classes     map[string]*MetaClass
	byName      map[string]*MetaClass
	properties  map[string]*MetaProperty
	individuals map[string]*MetaIndividual
	validator   *Validator
	mu          sync.RWMutex
}

var _ MetaSchema = (*Schema)(nil)

// NewSchema creates a new empty schema for the given namespace
func NewSchema(namespace string) *Schema {
	return &Schema{
		namespace:   namespace,
		classes:     make(map[string]*MetaClass),
		byName:      make(map[string]*MetaClass),
		properties:  make(map[string]*MetaProperty),
		individuals: make(map[string]*MetaIndividual),
		validator:   NewValidator(),
	}
}

// Namespace returns the default namespace of the schema
func (s *Schema) Namespace() string {
	return s.namespace
}

// URI expands a local name into a URI of the schema namespace
func (s *Schema) URI(name string) string {
	return s.namespace + name
}

// Register registers a fully built class
func (s *Schema) Register(class *MetaClass) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if class.URI == "" {
		return fmt.Errorf("class %q has no URI", class.Name)
	}
	if _, exists := s.classes[class.URI]; exists {
		return fmt.Errorf("class %s is already registered", class.URI)
	}

	if err := s.validator.ValidateStructural(class); err != nil {
		return fmt.Errorf("schema validation failed for %s: %w", class.URI, err)
	}

	s.classes[class.URI] = class
	if _, taken := s.byName[class.Name]; !taken {
		s.byName[class.Name] = class
	}
	for _, p := range class.properties {
		s.properties[p.key()] = p
	}
	for _, i := range class.Individuals {
		s.individuals[i.URI] = i
	}
	for _, target := range class.ExtensionOf {
		if !containsClass(target.Extensions, class) {
			target.Extensions = append(target.Extensions, class)
		}
	}

	return nil
}

// ResolveClass retrieves a class by URI or name
func (s *Schema) ResolveClass(key string) (*MetaClass, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if c, ok := s.classes[key]; ok {
		return c, true
	}
	c, ok := s.byName[key]
	return c, ok
}

// ResolveProperty retrieves a property by URI or short name
func (s *Schema) ResolveProperty(key string) (*MetaProperty, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p, ok := s.properties[key]; ok {
		return p, true
	}
	if owner, name, ok := splitShortName(key); ok {
		if c, exists := s.byName[owner]; exists {
			for _, p := range c.properties {
				if p.Name == name {
					return p, true
				}
			}
		}
	}
	return nil, false
}

// ResolveIndividual retrieves an enum individual by URI or short name
func (s *Schema) ResolveIndividual(key string) (*MetaIndividual, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i, ok := s.individuals[key]; ok {
		return i, true
	}
	if owner, name, ok := splitShortName(key); ok {
		if c, exists := s.byName[owner]; exists {
			return c.Individual(name)
		}
	}
	return nil, false
}

// CanInstantiate reports whether graph objects of the class may be created.
// Abstract, datatype and enum classes cannot, nor can an extension claimed by
// more than one class.
func (s *Schema) CanInstantiate(class *MetaClass) bool {
	return CanInstantiate(class)
}

// CanInstantiate implements the instantiation rule without a registry
func CanInstantiate(class *MetaClass) bool {
	if class == nil {
		return false
	}
	if class.Abstract || class.Datatype || class.Enum {
		return false
	}
	if class.Extension && len(class.ExtensionOf) > 1 {
		return false
	}
	return true
}

// Classes returns all registered classes sorted by URI
func (s *Schema) Classes() []*MetaClass {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*MetaClass, 0, len(s.classes))
	for _, c := range s.classes {
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].URI < result[j].URI
	})
	return result
}

// Count returns the number of registered classes
func (s *Schema) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.classes)
}

// ValidateAll performs cross-class validation: hierarchy cycles and
// inverse property consistency
func (s *Schema) ValidateAll() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	graph := NewHierarchyGraph(s.classes)
	if cycles := graph.DetectCycles(); len(cycles) > 0 {
		return fmt.Errorf("circular class hierarchy detected:\n%s", formatCycles(cycles))
	}

	return s.validator.ValidateInverses(s.classes)
}

// DependencyOrder returns class URIs with parents before children
func (s *Schema) DependencyOrder() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return NewHierarchyGraph(s.classes).TopologicalSort()
}

func containsClass(list []*MetaClass, c *MetaClass) bool {
	for _, x := range list {
		if sameClass(x, c) {
			return true
		}
	}
	return false
}
