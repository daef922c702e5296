package schema

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Violation describes one schema constraint failure at a JSON path
// (e.g. "$.menus[0].servings").
type Violation struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

// Document is a payload that has passed validation. It is constructible only
// inside this package, on the validation-success path, so downstream code
// cannot fabricate a "validated" payload from raw bytes.
type Document struct {
	raw  string
	data any
}

// Raw returns the original JSON text of the validated payload.
func (d Document) Raw() string { return d.raw }

// Data returns the parsed payload as generic JSON values.
func (d Document) Data() any { return d.data }

// Decode unmarshals the validated payload into target.
func (d Document) Decode(target any) error {
	return json.Unmarshal([]byte(d.raw), target)
}

// Outcome is the result of validating a raw payload against a schema: either
// valid with a Document, or invalid with the complete violation list in a
// stable order.
type Outcome struct {
	valid      bool
	violations []Violation
	doc        Document
}

// Valid reports whether the payload satisfied every schema constraint.
func (o Outcome) Valid() bool { return o.valid }

// Violations returns all constraint failures in a stable order: required
// fields in declaration order, then properties sorted by name at each level.
// Empty when valid.
func (o Outcome) Violations() []Violation { return o.violations }

// Document returns the validated payload. Zero value when the outcome is invalid.
func (o Outcome) Document() Document { return o.doc }

// Validate checks a raw JSON payload against a schema. It is a pure function:
// no I/O, no input mutation, identical inputs yield identical outcomes.
//
// A payload that fails to parse yields exactly one violation at "$"; a payload
// that parses but has the wrong shape yields every violation found, not just
// the first, so one corrective retry can address all of them at once.
func Validate(raw []byte, s *Schema) Outcome {
	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return Outcome{
			violations: []Violation{{
				Path:    "$",
				Message: "response is not parseable JSON",
			}},
		}
	}

	violations := validateValue(parsed, s, "$")
	if len(violations) > 0 {
		return Outcome{violations: violations}
	}

	return Outcome{
		valid: true,
		doc:   Document{raw: string(raw), data: parsed},
	}
}

// validateValue recursively validates a value against a schema, collecting
// every violation. A type mismatch stops descent at that node only; siblings
// are still checked.
func validateValue(value any, s *Schema, path string) []Violation {
	var violations []Violation

	actualType := valueType(value)
	if !typeCompatible(s.Type, actualType, value) {
		return []Violation{{
			Path:    path,
			Message: fmt.Sprintf("type mismatch: expected %s, got %s", s.Type, actualType),
		}}
	}

	switch s.Type {
	case "object":
		violations = append(violations, validateObject(value.(map[string]any), s, path)...)
	case "array":
		violations = append(violations, validateArray(value.([]any), s, path)...)
	case "string":
		violations = append(violations, validateString(value.(string), s, path)...)
	case "number", "integer":
		violations = append(violations, validateNumber(value, s, path)...)
	}

	return violations
}

func validateObject(obj map[string]any, s *Schema, path string) []Violation {
	var violations []Violation

	for _, required := range s.Required {
		if _, exists := obj[required]; !exists {
			violations = append(violations, Violation{
				Path:    fmt.Sprintf("%s.%s", path, required),
				Message: "required field is missing",
			})
		}
	}

	// Map iteration order is randomized; property names are walked sorted so
	// identical inputs always yield an identically ordered violation list.
	names := make([]string, 0, len(obj))
	for name := range obj {
		names = append(names, name)
	}
	sort.Strings(names)

	if s.AdditionalProperties != nil && !*s.AdditionalProperties {
		for _, name := range names {
			if _, declared := s.Properties[name]; !declared {
				violations = append(violations, Violation{
					Path:    fmt.Sprintf("%s.%s", path, name),
					Message: fmt.Sprintf("additional property %q not allowed", name),
				})
			}
		}
	}

	for _, name := range names {
		propSchema, declared := s.Properties[name]
		if !declared {
			continue
		}
		violations = append(violations, validateValue(obj[name], propSchema, fmt.Sprintf("%s.%s", path, name))...)
	}

	return violations
}

func validateArray(arr []any, s *Schema, path string) []Violation {
	var violations []Violation

	if s.MinItems != nil && len(arr) < *s.MinItems {
		violations = append(violations, Violation{
			Path:    path,
			Message: fmt.Sprintf("array has %d items, expected at least %d", len(arr), *s.MinItems),
		})
	}
	if s.MaxItems != nil && len(arr) > *s.MaxItems {
		violations = append(violations, Violation{
			Path:    path,
			Message: fmt.Sprintf("array has %d items, expected at most %d", len(arr), *s.MaxItems),
		})
	}

	if s.Items != nil {
		for i, item := range arr {
			violations = append(violations, validateValue(item, s.Items, fmt.Sprintf("%s[%d]", path, i))...)
		}
	}

	return violations
}

func validateString(str string, s *Schema, path string) []Violation {
	var violations []Violation

	if s.MinLength != nil && len(str) < *s.MinLength {
		violations = append(violations, Violation{
			Path:    path,
			Message: fmt.Sprintf("string length %d below minimum %d", len(str), *s.MinLength),
		})
	}
	if s.MaxLength != nil && len(str) > *s.MaxLength {
		violations = append(violations, Violation{
			Path:    path,
			Message: fmt.Sprintf("string length %d above maximum %d", len(str), *s.MaxLength),
		})
	}

	if s.Pattern != "" {
		// Pattern validity is checked at registry load; a compile failure here
		// means the schema bypassed the registry.
		if matched, err := regexp.MatchString(s.Pattern, str); err == nil && !matched {
			violations = append(violations, Violation{
				Path:    path,
				Message: fmt.Sprintf("string does not match pattern %s", s.Pattern),
			})
		}
	}

	if len(s.Enum) > 0 {
		found := false
		for _, enumValue := range s.Enum {
			if str == enumValue {
				found = true
				break
			}
		}
		if !found {
			violations = append(violations, Violation{
				Path:    path,
				Message: fmt.Sprintf("value %q not in enum [%s]", str, strings.Join(s.Enum, ", ")),
			})
		}
	}

	return violations
}

func validateNumber(value any, s *Schema, path string) []Violation {
	var violations []Violation

	num, ok := value.(float64)
	if !ok {
		return violations
	}

	if s.Type == "integer" && num != float64(int64(num)) {
		violations = append(violations, Violation{
			Path:    path,
			Message: fmt.Sprintf("expected integer, got decimal %v", num),
		})
	}
	if s.Minimum != nil && num < *s.Minimum {
		violations = append(violations, Violation{
			Path:    path,
			Message: fmt.Sprintf("value %v below minimum %v", num, *s.Minimum),
		})
	}
	if s.Maximum != nil && num > *s.Maximum {
		violations = append(violations, Violation{
			Path:    path,
			Message: fmt.Sprintf("value %v above maximum %v", num, *s.Maximum),
		})
	}

	return violations
}

// typeCompatible checks if the actual JSON type satisfies the expected type.
func typeCompatible(expected, actual string, value any) bool {
	if expected == actual {
		return true
	}

	// JSON has no integer type; whole-valued numbers satisfy "integer".
	if expected == "integer" && actual == "number" {
		if f, ok := value.(float64); ok {
			return f == float64(int64(f))
		}
	}

	return false
}

// valueType returns the JSON type name of a decoded value.
func valueType(value any) string {
	if value == nil {
		return "null"
	}

	switch value.(type) {
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64:
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return "unknown"
	}
}
