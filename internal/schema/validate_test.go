package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mealPlanSchema() *Schema {
	return NewObjectSchema(map[string]*Schema{
		"menus": NewArraySchema(NewObjectSchema(map[string]*Schema{
			"name":     NewStringSchema("").WithMinLength(1),
			"servings": NewIntegerSchema("").WithMin(1),
		}, []string{"name", "servings"})).WithMinItems(1),
		"notes": NewStringSchema(""),
	}, []string{"menus"})
}

func TestValidate_ValidPayload(t *testing.T) {
	raw := []byte(`{"menus": [{"name": "pasta", "servings": 4}], "notes": "easy week"}`)

	outcome := Validate(raw, mealPlanSchema())

	require.True(t, outcome.Valid())
	assert.Empty(t, outcome.Violations())
	assert.Equal(t, string(raw), outcome.Document().Raw())

	data, ok := outcome.Document().Data().(map[string]any)
	require.True(t, ok)
	assert.Contains(t, data, "menus")
}

func TestValidate_UnparseablePayload(t *testing.T) {
	outcome := Validate([]byte(`this is not json`), mealPlanSchema())

	require.False(t, outcome.Valid())
	require.Len(t, outcome.Violations(), 1, "parse failure must yield exactly one violation")
	assert.Equal(t, "$", outcome.Violations()[0].Path)
}

func TestValidate_CollectsAllViolations(t *testing.T) {
	// Four independent problems: empty name, zero servings, and menus[1]
	// missing both required fields.
	raw := []byte(`{"menus": [{"name": "", "servings": 0}, {}]}`)

	outcome := Validate(raw, mealPlanSchema())

	require.False(t, outcome.Valid())
	paths := make([]string, 0)
	for _, v := range outcome.Violations() {
		paths = append(paths, v.Path)
	}
	assert.Contains(t, paths, "$.menus[0].name")
	assert.Contains(t, paths, "$.menus[0].servings")
	assert.Contains(t, paths, "$.menus[1].name")
	assert.Contains(t, paths, "$.menus[1].servings")
	assert.GreaterOrEqual(t, len(paths), 4, "all violations must be collected, not just the first")
}

func TestValidate_Deterministic(t *testing.T) {
	// Many violating sibling properties, so any map-order leakage in the
	// walk would reorder the list between runs.
	props := map[string]*Schema{}
	for _, name := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		props[name] = NewStringSchema("").WithMinLength(5)
	}
	s := NewObjectSchema(props, nil)
	raw := []byte(`{"a":"x","b":"x","c":"x","d":"x","e":"x","f":"x","g":"x","h":"x"}`)

	first := Validate(raw, s)
	require.False(t, first.Valid())
	require.Len(t, first.Violations(), 8)

	for i := 0; i < 50; i++ {
		again := Validate(raw, s)
		require.Equal(t, first.Violations(), again.Violations(),
			"identical inputs must yield identically ordered violations")
	}
}

func TestValidate_ViolationOrderIsStable(t *testing.T) {
	// Required fields surface in declaration order, then properties sorted
	// by name, including undeclared ones under additionalProperties: false.
	strict := false
	s := NewObjectSchema(map[string]*Schema{
		"beta":  NewStringSchema("").WithMinLength(5),
		"alpha": NewStringSchema("").WithMinLength(5),
	}, []string{"zeta", "beta", "alpha"})
	s.AdditionalProperties = &strict

	outcome := Validate([]byte(`{"beta":"x","alpha":"x","extra":1}`), s)
	require.False(t, outcome.Valid())

	paths := make([]string, 0, len(outcome.Violations()))
	for _, v := range outcome.Violations() {
		paths = append(paths, v.Path)
	}
	assert.Equal(t, []string{"$.zeta", "$.extra", "$.alpha", "$.beta"}, paths)
}

func TestValidate_TypeMismatchStopsDescent(t *testing.T) {
	raw := []byte(`{"menus": "not an array"}`)

	outcome := Validate(raw, mealPlanSchema())

	require.False(t, outcome.Valid())
	require.Len(t, outcome.Violations(), 1)
	assert.Equal(t, "$.menus", outcome.Violations()[0].Path)
	assert.Contains(t, outcome.Violations()[0].Message, "type mismatch")
}

func TestValidate_IntegerConstraints(t *testing.T) {
	s := NewObjectSchema(map[string]*Schema{
		"servings": NewIntegerSchema("").WithMin(1).WithMax(12),
	}, []string{"servings"})

	tests := []struct {
		name  string
		raw   string
		valid bool
	}{
		{"whole number satisfies integer", `{"servings": 4}`, true},
		{"decimal rejected", `{"servings": 4.5}`, false},
		{"below minimum", `{"servings": 0}`, false},
		{"above maximum", `{"servings": 13}`, false},
		{"string rejected", `{"servings": "4"}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome := Validate([]byte(tt.raw), s)
			assert.Equal(t, tt.valid, outcome.Valid())
		})
	}
}

func TestValidate_StringConstraints(t *testing.T) {
	s := NewObjectSchema(map[string]*Schema{
		"day":  NewStringSchema("").WithEnum("monday", "tuesday"),
		"code": NewStringSchema("").WithPattern(`^[A-Z]{3}$`),
	}, nil)

	outcome := Validate([]byte(`{"day": "friday", "code": "toolong"}`), s)

	require.False(t, outcome.Valid())
	require.Len(t, outcome.Violations(), 2)
}

func TestValidate_ArrayBounds(t *testing.T) {
	s := NewArraySchema(NewStringSchema("")).WithMinItems(1).WithMaxItems(2)

	assert.False(t, Validate([]byte(`[]`), s).Valid())
	assert.True(t, Validate([]byte(`["a"]`), s).Valid())
	assert.False(t, Validate([]byte(`["a", "b", "c"]`), s).Valid())
}

func TestValidate_AdditionalProperties(t *testing.T) {
	strict := false
	s := NewObjectSchema(map[string]*Schema{
		"name": NewStringSchema(""),
	}, nil)
	s.AdditionalProperties = &strict

	outcome := Validate([]byte(`{"name": "x", "extra": 1}`), s)

	require.False(t, outcome.Valid())
	require.Len(t, outcome.Violations(), 1)
	assert.Equal(t, "$.extra", outcome.Violations()[0].Path)
}

func TestValidate_RootTypeMismatch(t *testing.T) {
	outcome := Validate([]byte(`[1, 2, 3]`), mealPlanSchema())

	require.False(t, outcome.Valid())
	require.Len(t, outcome.Violations(), 1)
	assert.Equal(t, "$", outcome.Violations()[0].Path)
}

func TestOutcome_InvalidHasZeroDocument(t *testing.T) {
	outcome := Validate([]byte(`{}`), mealPlanSchema())

	require.False(t, outcome.Valid())
	assert.Empty(t, outcome.Document().Raw())
	assert.Nil(t, outcome.Document().Data())
}

func TestDocument_Decode(t *testing.T) {
	outcome := Validate([]byte(`{"menus": [{"name": "soup", "servings": 2}]}`), mealPlanSchema())
	require.True(t, outcome.Valid())

	var decoded struct {
		Menus []struct {
			Name     string `json:"name"`
			Servings int    `json:"servings"`
		} `json:"menus"`
	}
	require.NoError(t, outcome.Document().Decode(&decoded))
	require.Len(t, decoded.Menus, 1)
	assert.Equal(t, "soup", decoded.Menus[0].Name)
	assert.Equal(t, 2, decoded.Menus[0].Servings)
}
