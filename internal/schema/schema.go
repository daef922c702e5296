package schema

import (
	"fmt"
	"regexp"
)

// Schema describes an output shape, compatible with a pragmatic subset of
// JSON Schema draft-07: object/array/string/number/integer/boolean types,
// required properties, enums, numeric bounds, string length and pattern, and
// array item counts. Schemas nest recursively through Properties and Items.
type Schema struct {
	Type                 string             `json:"type" yaml:"type"`
	Description          string             `json:"description,omitempty" yaml:"description,omitempty"`
	Properties           map[string]*Schema `json:"properties,omitempty" yaml:"properties,omitempty"`
	Required             []string           `json:"required,omitempty" yaml:"required,omitempty"`
	Items                *Schema            `json:"items,omitempty" yaml:"items,omitempty"`
	Enum                 []string           `json:"enum,omitempty" yaml:"enum,omitempty"`
	Minimum              *float64           `json:"minimum,omitempty" yaml:"minimum,omitempty"`
	Maximum              *float64           `json:"maximum,omitempty" yaml:"maximum,omitempty"`
	MinLength            *int               `json:"minLength,omitempty" yaml:"minLength,omitempty"`
	MaxLength            *int               `json:"maxLength,omitempty" yaml:"maxLength,omitempty"`
	MinItems             *int               `json:"minItems,omitempty" yaml:"minItems,omitempty"`
	MaxItems             *int               `json:"maxItems,omitempty" yaml:"maxItems,omitempty"`
	Pattern              string             `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	AdditionalProperties *bool              `json:"additionalProperties,omitempty" yaml:"additionalProperties,omitempty"`
}

var validTypes = map[string]bool{
	"object":  true,
	"array":   true,
	"string":  true,
	"number":  true,
	"integer": true,
	"boolean": true,
	"null":    true,
}

// Validate checks that the schema itself is well formed. A malformed schema
// is a deployment defect: the registry refuses to load it and startup fails.
func (s *Schema) Validate() error {
	return s.validateAt("$")
}

func (s *Schema) validateAt(path string) error {
	if s == nil {
		return fmt.Errorf("schema at %s is nil", path)
	}
	if s.Type == "" {
		return fmt.Errorf("schema at %s has no type", path)
	}
	if !validTypes[s.Type] {
		return fmt.Errorf("schema at %s has unknown type %q", path, s.Type)
	}
	if s.Pattern != "" {
		if _, err := regexp.Compile(s.Pattern); err != nil {
			return fmt.Errorf("schema at %s has invalid pattern: %w", path, err)
		}
	}
	if len(s.Enum) > 0 && s.Type != "string" {
		return fmt.Errorf("schema at %s declares an enum on non-string type %q", path, s.Type)
	}
	if s.MinItems != nil && *s.MinItems < 0 {
		return fmt.Errorf("schema at %s has negative minItems", path)
	}
	if s.MinLength != nil && *s.MinLength < 0 {
		return fmt.Errorf("schema at %s has negative minLength", path)
	}

	for _, name := range s.Required {
		if s.Properties != nil {
			if _, ok := s.Properties[name]; !ok {
				return fmt.Errorf("schema at %s requires undeclared property %q", path, name)
			}
		}
	}
	for name, prop := range s.Properties {
		if err := prop.validateAt(fmt.Sprintf("%s.%s", path, name)); err != nil {
			return err
		}
	}
	if s.Items != nil {
		if err := s.Items.validateAt(path + "[]"); err != nil {
			return err
		}
	}

	return nil
}

// NewObjectSchema creates a new object schema with the given properties and required fields
func NewObjectSchema(properties map[string]*Schema, required []string) *Schema {
	return &Schema{
		Type:       "object",
		Properties: properties,
		Required:   required,
	}
}

// NewArraySchema creates a new array schema with the given item schema
func NewArraySchema(items *Schema) *Schema {
	return &Schema{
		Type:  "array",
		Items: items,
	}
}

// NewStringSchema creates a new string schema with the given description
func NewStringSchema(description string) *Schema {
	return &Schema{Type: "string", Description: description}
}

// NewIntegerSchema creates a new integer schema with the given description
func NewIntegerSchema(description string) *Schema {
	return &Schema{Type: "integer", Description: description}
}

// NewNumberSchema creates a new number schema with the given description
func NewNumberSchema(description string) *Schema {
	return &Schema{Type: "number", Description: description}
}

// NewBooleanSchema creates a new boolean schema with the given description
func NewBooleanSchema(description string) *Schema {
	return &Schema{Type: "boolean", Description: description}
}

// WithEnum adds an enum constraint
func (s *Schema) WithEnum(values ...string) *Schema {
	s.Enum = values
	return s
}

// WithMin adds a minimum constraint to numeric schemas
func (s *Schema) WithMin(min float64) *Schema {
	s.Minimum = &min
	return s
}

// WithMax adds a maximum constraint to numeric schemas
func (s *Schema) WithMax(max float64) *Schema {
	s.Maximum = &max
	return s
}

// WithMinItems adds a minimum item count to array schemas
func (s *Schema) WithMinItems(n int) *Schema {
	s.MinItems = &n
	return s
}

// WithMaxItems adds a maximum item count to array schemas
func (s *Schema) WithMaxItems(n int) *Schema {
	s.MaxItems = &n
	return s
}

// WithMinLength adds a minimum length constraint to string schemas
func (s *Schema) WithMinLength(n int) *Schema {
	s.MinLength = &n
	return s
}

// WithPattern adds a regex pattern constraint to string schemas
func (s *Schema) WithPattern(pattern string) *Schema {
	s.Pattern = pattern
	return s
}

// WithDescription sets the description
func (s *Schema) WithDescription(description string) *Schema {
	s.Description = description
	return s
}
