// Package schema provides the meta-schema model that governs an object graph.
// It defines classes, properties and enum individuals together with the
// inheritance and extension relations between classes, and a registry that
// resolves them by URI or short name.
package schema

import (
	"fmt"
	"strings"
)

// PrimitiveType represents the value type of a plain attribute
type PrimitiveType int

const (
	// TypeUnknown accepts any value unchanged
	TypeUnknown PrimitiveType = iota
	TypeString
	TypeInteger
	TypeFloat
	TypeBoolean
	TypeDateTime
)

// String returns the string representation of the primitive type
func (p PrimitiveType) String() string {
	switch p {
	case TypeString:
		return "string"
	case TypeInteger:
		return "integer"
	case TypeFloat:
		return "float"
	case TypeBoolean:
		return "boolean"
	case TypeDateTime:
		return "datetime"
	default:
		return "unknown"
	}
}

// ParsePrimitiveType converts a string to a PrimitiveType
func ParsePrimitiveType(s string) (PrimitiveType, error) {
	switch strings.ToLower(s) {
	case "string":
		return TypeString, nil
	case "integer", "int", "long":
		return TypeInteger, nil
	case "float", "double", "decimal":
		return TypeFloat, nil
	case "boolean", "bool":
		return TypeBoolean, nil
	case "datetime", "date", "time":
		return TypeDateTime, nil
	case "any", "":
		return TypeUnknown, nil
	default:
		return TypeUnknown, fmt.Errorf("unknown primitive type: %s", s)
	}
}

// PropertyKind represents the storage shape of a property
type PropertyKind int

const (
	KindAttribute PropertyKind = iota
	KindAssoc1To1
	KindAssoc1ToM
	KindStatements
)

// String returns the string representation of the property kind
func (k PropertyKind) String() string {
	switch k {
	case KindAttribute:
		return "attribute"
	case KindAssoc1To1:
		return "assoc1to1"
	case KindAssoc1ToM:
		return "assoc1toM"
	case KindStatements:
		return "statements"
	default:
		return "unknown"
	}
}

// ParsePropertyKind converts a string to a PropertyKind
func ParsePropertyKind(s string) (PropertyKind, error) {
	switch strings.ToLower(s) {
	case "attribute", "":
		return KindAttribute, nil
	case "assoc1to1", "one":
		return KindAssoc1To1, nil
	case "assoc1tom", "many":
		return KindAssoc1ToM, nil
	case "statements":
		return KindStatements, nil
	default:
		return KindAttribute, fmt.Errorf("unknown property kind: %s", s)
	}
}

// IsAssociation returns true for both association kinds
func (k PropertyKind) IsAssociation() bool {
	return k == KindAssoc1To1 || k == KindAssoc1ToM
}

// localName strips a namespace or owner prefix from a URI or short name
func localName(s string) string {
	if i := strings.LastIndexAny(s, "#/"); i >= 0 {
		s = s[i+1:]
	}
	if i := strings.LastIndex(s, "."); i >= 0 {
		s = s[i+1:]
	}
	return s
}
