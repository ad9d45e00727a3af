// Package schematest provides a small CIM-like schema for tests.
package schematest

import (
	_ "embed"
	"testing"

	"github.com/Cimbios/CimBios.Core-sub000/internal/schema"
)

//go:embed cim.yaml
var cimYAML []byte

// Namespace is the namespace of the fixture schema
const Namespace = "http://iec.ch/TC57/CIM100#"

// YAML returns the raw fixture definition
func YAML() []byte {
	out := make([]byte, len(cimYAML))
	copy(out, cimYAML)
	return out
}

// Load builds a fresh copy of the fixture schema
func Load() (*schema.Schema, error) {
	return schema.LoadYAML(cimYAML)
}

// CIM loads a fresh copy of the fixture schema
func CIM(t testing.TB) *schema.Schema {
	t.Helper()

	s, err := Load()
	if err != nil {
		t.Fatalf("failed to load fixture schema: %v", err)
	}
	return s
}

// Class resolves a fixture class by name
func Class(t testing.TB, s *schema.Schema, name string) *schema.MetaClass {
	t.Helper()

	c, ok := s.ResolveClass(name)
	if !ok {
		t.Fatalf("fixture class %s not found", name)
	}
	return c
}
