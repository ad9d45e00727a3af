package schema

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Definition is the YAML form of a meta-schema
type Definition struct {
	Namespace string            `yaml:"namespace"`
	Classes   []ClassDefinition `yaml:"classes"`
}

// ClassDefinition is the YAML form of a class
type ClassDefinition struct {
	Name        string               `yaml:"name"`
	Description string               `yaml:"description,omitempty"`
	Parents     []string             `yaml:"parents,omitempty"`
	Abstract    bool                 `yaml:"abstract,omitempty"`
	Datatype    bool                 `yaml:"datatype,omitempty"`
	Enum        bool                 `yaml:"enum,omitempty"`
	Compound    bool                 `yaml:"compound,omitempty"`
	Primitive   string               `yaml:"primitive,omitempty"`
	Extends     []string             `yaml:"extends,omitempty"`
	Individuals []string             `yaml:"individuals,omitempty"`
	Properties  []PropertyDefinition `yaml:"properties,omitempty"`
}

// PropertyDefinition is the YAML form of a property. Type names either a
// primitive type or a class of the same schema.
type PropertyDefinition struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	Kind        string `yaml:"kind,omitempty"`
	Type        string `yaml:"type,omitempty"`
	Inverse     string `yaml:"inverse,omitempty"`
	Required    bool   `yaml:"required,omitempty"`
}

// LoadFile reads a YAML schema definition from disk
func LoadFile(path string) (*Schema, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open schema file: %w", err)
	}
	defer f.Close()

	s, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Read decodes a YAML schema definition from r
func Read(r io.Reader) (*Schema, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema: %w", err)
	}
	return LoadYAML(data)
}

// LoadYAML builds and validates a schema from YAML bytes
func LoadYAML(data []byte) (*Schema, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return Build(&def)
}

// Build turns a definition into a registered, validated schema.
// Classes are created first so that definitions may refer to each other
// in any order.
func Build(def *Definition) (*Schema, error) {
	s := NewSchema(def.Namespace)
	classes := make(map[string]*MetaClass, len(def.Classes))
	ordered := make([]*MetaClass, 0, len(def.Classes))

	for _, cd := range def.Classes {
		if cd.Name == "" {
			return nil, fmt.Errorf("class definition without a name")
		}
		if _, exists := classes[cd.Name]; exists {
			return nil, fmt.Errorf("class %s is defined twice", cd.Name)
		}
		c := NewMetaClass(s.URI(cd.Name), cd.Name)
		c.Description = cd.Description
		c.Abstract = cd.Abstract
		c.Datatype = cd.Datatype
		c.Enum = cd.Enum
		c.Compound = cd.Compound
		c.Extension = len(cd.Extends) > 0

		if cd.Primitive != "" {
			prim, err := ParsePrimitiveType(cd.Primitive)
			if err != nil {
				return nil, fmt.Errorf("class %s: %w", cd.Name, err)
			}
			c.Primitive = prim
		}

		for _, ind := range cd.Individuals {
			c.AddIndividual(&MetaIndividual{
				URI:  s.URI(cd.Name + "." + ind),
				Name: ind,
			})
		}

		classes[cd.Name] = c
		ordered = append(ordered, c)
	}

	lookup := func(owner, name string) (*MetaClass, error) {
		c, ok := classes[name]
		if !ok {
			return nil, fmt.Errorf("class %s: unknown class %s", owner, name)
		}
		return c, nil
	}

	props := make(map[string]*MetaProperty)
	inverses := make(map[*MetaProperty]string)

	for i, cd := range def.Classes {
		c := ordered[i]

		for _, name := range cd.Parents {
			parent, err := lookup(cd.Name, name)
			if err != nil {
				return nil, err
			}
			c.Parents = append(c.Parents, parent)
		}
		for _, name := range cd.Extends {
			target, err := lookup(cd.Name, name)
			if err != nil {
				return nil, err
			}
			c.ExtensionOf = append(c.ExtensionOf, target)
		}

		for _, pd := range cd.Properties {
			kind, err := ParsePropertyKind(pd.Kind)
			if err != nil {
				return nil, fmt.Errorf("class %s: property %s: %w", cd.Name, pd.Name, err)
			}
			p := NewMetaProperty(s.URI(cd.Name+"."+pd.Name), pd.Name, kind)
			p.Description = pd.Description
			p.Required = pd.Required

			if target, ok := classes[pd.Type]; ok {
				p.Datatype = target
			} else if kind.IsAssociation() {
				return nil, fmt.Errorf("class %s: association %s targets unknown class %q", cd.Name, pd.Name, pd.Type)
			} else {
				prim, err := ParsePrimitiveType(pd.Type)
				if err != nil {
					return nil, fmt.Errorf("class %s: property %s: %w", cd.Name, pd.Name, err)
				}
				p.Primitive = prim
			}

			c.AddProperty(p)
			props[p.ShortName()] = p
			if pd.Inverse != "" {
				inverses[p] = pd.Inverse
			}
		}
	}

	for p, name := range inverses {
		inv, ok := props[name]
		if !ok {
			return nil, fmt.Errorf("property %s: unknown inverse %s", p.ShortName(), name)
		}
		p.Inverse = inv
	}

	for _, c := range ordered {
		if err := s.Register(c); err != nil {
			return nil, err
		}
	}

	if err := s.ValidateAll(); err != nil {
		return nil, err
	}

	return s, nil
}
