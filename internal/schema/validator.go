package schema

import (
	"fmt"
	"sort"
	"strings"
)

// ValidationError represents a schema validation error with context
type ValidationError struct {
	Class    string
	Property string
	Message  string
	Hint     string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	var b strings.Builder

	if e.Class != "" {
		b.WriteString(e.Class)
		if e.Property != "" {
			b.WriteString(".")
			b.WriteString(e.Property)
		}
		b.WriteString(": ")
	}

	b.WriteString(e.Message)

	if e.Hint != "" {
		b.WriteString("\n  hint: ")
		b.WriteString(e.Hint)
	}

	return b.String()
}

// Validator validates class definitions
type Validator struct {
	errors []*ValidationError
}

// NewValidator creates a new schema validator
func NewValidator() *Validator {
	return &Validator{
		errors: make([]*ValidationError, 0),
	}
}

// ValidateStructural validates a single class without cross-class checks.
// Inverse consistency is checked by ValidateInverses once all classes exist.
func (v *Validator) ValidateStructural(class *MetaClass) error {
	v.errors = make([]*ValidationError, 0)

	if class.Enum && len(class.Individuals) == 0 {
		v.addError(class, nil, "enum class declares no individuals", "")
	}
	if class.Extension && len(class.ExtensionOf) == 0 {
		v.addError(class, nil, "extension class does not extend any class",
			"list the extended classes under 'extends'")
	}

	seen := make(map[string]bool)
	for _, p := range class.properties {
		if p.Name == "" {
			v.addError(class, p, "property has no name", "")
			continue
		}
		if seen[p.Name] {
			v.addError(class, p, "duplicate property", "")
		}
		seen[p.Name] = true

		switch p.Kind {
		case KindAssoc1To1, KindAssoc1ToM:
			if p.Datatype == nil {
				v.addError(class, p, "association has no target class", "")
			}
		case KindAttribute:
			if p.Datatype != nil && !p.Datatype.Datatype && !p.Datatype.Enum && !p.Datatype.Compound {
				v.addError(class, p, fmt.Sprintf("attribute type %s is not a datatype, enum or compound class", p.Datatype.Name),
					"use an association for references to identified objects")
			}
		}

		if p.Inverse != nil && !p.Kind.IsAssociation() {
			v.addError(class, p, "only associations may declare an inverse", "")
		}
	}

	return v.result()
}

// ValidateInverses checks that declared inverses point back at each other
// and target the owning class
func (v *Validator) ValidateInverses(classes map[string]*MetaClass) error {
	v.errors = make([]*ValidationError, 0)

	uris := make([]string, 0, len(classes))
	for uri := range classes {
		uris = append(uris, uri)
	}
	sort.Strings(uris)

	for _, uri := range uris {
		class := classes[uri]
		for _, p := range class.properties {
			inv := p.Inverse
			if inv == nil {
				continue
			}
			if !inv.Kind.IsAssociation() {
				v.addError(class, p, fmt.Sprintf("inverse %s is not an association", inv.ShortName()), "")
				continue
			}
			if inv.Inverse != nil && !SameProperty(inv.Inverse, p) {
				v.addError(class, p, fmt.Sprintf("inverse %s points back at %s", inv.ShortName(), inv.Inverse.ShortName()),
					"inverse declarations must be symmetric")
			}
			if inv.Datatype != nil && !inv.Datatype.Accepts(class) {
				v.addError(class, p, fmt.Sprintf("inverse %s targets %s", inv.ShortName(), inv.Datatype.Name), "")
			}
		}
	}

	return v.result()
}

// Errors returns the errors of the last validation run
func (v *Validator) Errors() []*ValidationError {
	return v.errors
}

func (v *Validator) addError(class *MetaClass, prop *MetaProperty, message, hint string) {
	e := &ValidationError{
		Class:   class.Name,
		Message: message,
		Hint:    hint,
	}
	if prop != nil {
		e.Property = prop.Name
	}
	v.errors = append(v.errors, e)
}

func (v *Validator) result() error {
	if len(v.errors) == 0 {
		return nil
	}
	var errMsgs []string
	for _, err := range v.errors {
		errMsgs = append(errMsgs, err.Error())
	}
	return fmt.Errorf("schema validation failed with %d errors:\n%s",
		len(v.errors), strings.Join(errMsgs, "\n"))
}
