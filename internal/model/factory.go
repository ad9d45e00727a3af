package model

import (
	"fmt"
	"sync"

	"github.com/Cimbios/CimBios.Core-sub000/internal/schema"
)

// Factory creates graph objects
type Factory interface {
	Create(oid OID, class *schema.MetaClass) (*Object, error)
}

// Initializer prepares a freshly created object, typically by installing
// default values or change hooks. It runs before the object joins a graph.
type Initializer func(o *Object) error

// TypeRegistry is the schema-validating factory. It maps class URIs to the
// initializers of their native representation; classes without one, or
// without a registered ancestor, get a generic object.
type TypeRegistry struct {
	schema       schema.MetaSchema
	constructors map[string][]Initializer
	mu           sync.RWMutex
}

var _ Factory = (*TypeRegistry)(nil)

// NewTypeRegistry creates a type registry bound to a schema. A nil schema
// falls back to the class flags for instantiation checks.
func NewTypeRegistry(ms schema.MetaSchema) *TypeRegistry {
	return &TypeRegistry{
		schema:       ms,
		constructors: make(map[string][]Initializer),
	}
}

// Register adds initializers for a class URI. Registering the same class
// again appends to its initializers.
func (r *TypeRegistry) Register(classURI string, inits ...Initializer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.constructors[classURI]
	if !ok {
		existing = []Initializer{}
	}
	r.constructors[classURI] = append(existing, inits...)
}

// IsRegistered returns true if the class or one of its ancestors has a
// registered constructor
func (r *TypeRegistry) IsRegistered(class *schema.MetaClass) bool {
	_, ok := r.lookup(class)
	return ok
}

// lookup returns the initializers of the class or its nearest registered ancestor
func (r *TypeRegistry) lookup(class *schema.MetaClass) ([]Initializer, bool) {
	if class == nil {
		return nil, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if inits, ok := r.constructors[class.URI]; ok {
		return inits, true
	}
	for _, ancestor := range class.AllAncestors() {
		if inits, ok := r.constructors[ancestor.URI]; ok {
			return inits, true
		}
	}
	return nil, false
}

// Create instantiates an object of the class
func (r *TypeRegistry) Create(oid OID, class *schema.MetaClass) (*Object, error) {
	if class == nil {
		return nil, &SchemaViolationError{OID: oid, Reason: "no class given"}
	}

	canInstantiate := schema.CanInstantiate(class)
	if r.schema != nil {
		canInstantiate = r.schema.CanInstantiate(class)
	}
	if !canInstantiate {
		return nil, &SchemaViolationError{
			OID:    oid,
			Class:  class.Name,
			Reason: "class cannot be instantiated",
		}
	}

	obj := NewObject(oid, class)
	inits, _ := r.lookup(class)
	for _, init := range inits {
		if err := init(obj); err != nil {
			return nil, fmt.Errorf("failed to initialize %s: %w", obj, err)
		}
	}
	return obj, nil
}

// WeakFactory creates schema-free objects for staging and snapshots
type WeakFactory struct{}

var _ Factory = WeakFactory{}

// Create returns a weak object; it never fails
func (WeakFactory) Create(oid OID, class *schema.MetaClass) (*Object, error) {
	return NewWeakObject(oid, class), nil
}

// Catalog reports which classes have a native representation
type Catalog interface {
	IsRegistered(class *schema.MetaClass) bool
}
