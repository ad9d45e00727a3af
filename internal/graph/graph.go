// Package graph provides the owning container of a schema-driven object
// graph. It creates and removes objects, keeps their references resolved and
// wires every object into the change ledger.
package graph

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/Cimbios/CimBios.Core-sub000/internal/model"
	"github.com/Cimbios/CimBios.Core-sub000/internal/schema"
	"github.com/Cimbios/CimBios.Core-sub000/internal/tracking"
)

// Model is an OID keyed collection of objects. It is not synchronized.
type Model struct {
	schema  schema.MetaSchema
	factory model.Factory
	oids    model.OIDGenerator
	logger  *zap.Logger

	objects map[model.OID]*model.Object
	ledger  *tracking.Ledger
	subs    map[model.OID]*model.Subscription
}

// Option configures a Model
type Option func(*Model)

// WithFactory sets the object factory. Defaults to a TypeRegistry over the schema.
func WithFactory(f model.Factory) Option {
	return func(m *Model) {
		m.factory = f
	}
}

// WithOIDGenerator sets the generator used by Create
func WithOIDGenerator(g model.OIDGenerator) Option {
	return func(m *Model) {
		m.oids = g
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(m *Model) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithoutTracking disables the change ledger
func WithoutTracking() Option {
	return func(m *Model) {
		m.ledger = nil
	}
}

// New creates an empty graph governed by ms
func New(ms schema.MetaSchema, opts ...Option) *Model {
	m := &Model{
		schema:  ms,
		oids:    model.UUIDGenerator{Prefix: "_"},
		logger:  zap.NewNop(),
		objects: make(map[model.OID]*model.Object),
		ledger:  tracking.NewLedger(),
		subs:    make(map[model.OID]*model.Subscription),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.factory == nil {
		m.factory = model.NewTypeRegistry(ms)
	}
	return m
}

// Schema returns the governing schema
func (m *Model) Schema() schema.MetaSchema {
	return m.schema
}

// Factory returns the object factory
func (m *Model) Factory() model.Factory {
	return m.factory
}

// Ledger returns the change ledger, or nil when tracking is disabled
func (m *Model) Ledger() *tracking.Ledger {
	return m.ledger
}

// Logger returns the graph logger
func (m *Model) Logger() *zap.Logger {
	return m.logger
}

// CreateObject creates an object with the given OID and records its addition
func (m *Model) CreateObject(oid model.OID, class *schema.MetaClass) (*model.Object, error) {
	if oid.IsEmpty() {
		return nil, fmt.Errorf("cannot create object without OID")
	}
	if _, exists := m.objects[oid]; exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateObject, oid)
	}
	if class != nil && class.Compound {
		return nil, &model.SchemaViolationError{
			OID:    oid,
			Class:  class.Name,
			Reason: "compound classes are values and have no identity",
		}
	}

	obj, err := m.factory.Create(oid, class)
	if err != nil {
		return nil, err
	}

	m.attach(obj)
	if m.ledger != nil {
		m.ledger.RecordAdded(obj)
	}

	m.logger.Debug("object created",
		zap.String("oid", oid.String()),
		zap.Stringer("class", class))
	return obj, nil
}

// Create creates an object with a generated OID
func (m *Model) Create(class *schema.MetaClass) (*model.Object, error) {
	oid := m.oids.Generate()
	for {
		if _, taken := m.objects[oid]; !taken {
			break
		}
		oid = m.oids.Generate()
	}

	obj, err := m.CreateObject(oid, class)
	if err != nil {
		return nil, err
	}
	obj.SetAuto(true)
	return obj, nil
}

// Object returns the object with the given OID
func (m *Model) Object(oid model.OID) (*model.Object, bool) {
	obj, ok := m.objects[oid]
	return obj, ok
}

// Objects returns all objects sorted by OID
func (m *Model) Objects() []*model.Object {
	result := make([]*model.Object, 0, len(m.objects))
	for _, obj := range m.objects {
		result = append(result, obj)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].OID() < result[j].OID()
	})
	return result
}

// ObjectsOf returns the objects accepted by class, sorted by OID
func (m *Model) ObjectsOf(class *schema.MetaClass) []*model.Object {
	var result []*model.Object
	for _, obj := range m.Objects() {
		if class.Accepts(obj.MetaClass()) {
			result = append(result, obj)
		}
	}
	return result
}

// Len returns the number of objects
func (m *Model) Len() int {
	return len(m.objects)
}

// RemoveObject detaches every association edge of the object in both
// directions and removes it. The removal is recorded with a snapshot taken
// before the edges were detached.
func (m *Model) RemoveObject(oid model.OID) error {
	obj, ok := m.objects[oid]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, oid)
	}

	snapshot := obj.Snapshot()
	if err := m.detachEdges(obj); err != nil {
		return fmt.Errorf("failed to detach %s: %w", obj, err)
	}

	if m.ledger != nil {
		m.ledger.RecordRemoved(obj, snapshot)
	}
	m.release(oid)

	m.logger.Debug("object removed", zap.String("oid", oid.String()))
	return nil
}

// detachEdges clears the associations of obj, which also clears their
// inverses, and removes references to obj held without an inverse. Every
// removal is offered for veto first, so a veto leaves the graph unchanged.
func (m *Model) detachEdges(obj *model.Object) error {
	own, err := obj.PrepareDetach(func(*schema.MetaProperty, model.Node) bool { return true })
	if err != nil {
		return err
	}
	detachments := []*model.Detachment{own}

	target := obj.OID()
	oneWay := func(p *schema.MetaProperty, n model.Node) bool {
		return p.Inverse == nil && n.OID() == target
	}
	for _, holder := range m.Objects() {
		if holder == obj {
			continue
		}
		d, err := holder.PrepareDetach(oneWay)
		if err != nil {
			return err
		}
		if d.Len() > 0 {
			detachments = append(detachments, d)
		}
	}

	for _, d := range detachments {
		d.Commit()
	}
	return nil
}

func (m *Model) attach(obj *model.Object) {
	m.objects[obj.OID()] = obj
	if m.ledger != nil {
		m.subs[obj.OID()] = m.ledger.Observe(obj)
	}
}

func (m *Model) release(oid model.OID) {
	if sub, ok := m.subs[oid]; ok {
		sub.Cancel()
		delete(m.subs, oid)
	}
	delete(m.objects, oid)
}

// Load adds decoded objects as part of the baseline, without recording
// them, and resolves references. It returns the references that remain
// unresolved.
func (m *Model) Load(objects []*model.Object) ([]UnresolvedReference, error) {
	if m.ledger != nil {
		resume := m.ledger.Suspend()
		defer resume()
	}

	for _, obj := range objects {
		if _, exists := m.objects[obj.OID()]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateObject, obj.OID())
		}
		m.attach(obj)
	}

	return m.ResolveReferences(), nil
}

// HasChanges returns true if the ledger holds uncommitted statements
func (m *Model) HasChanges() bool {
	return m.ledger != nil && !m.ledger.IsEmpty()
}

// CommitAllChanges makes the current state the new baseline
func (m *Model) CommitAllChanges() {
	if m.ledger == nil {
		return
	}
	m.logger.Debug("changes committed", zap.Int("statements", m.ledger.Len()))
	m.ledger.CommitAllChanges()
}
