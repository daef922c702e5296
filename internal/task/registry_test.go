package task

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/savo-ai/savo/internal/types"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "weekly_menu.yaml", `
name: weekly_menu
schema_id: meal_plan_v1
system_prompt: You plan meals.
prompt_template: "Plan dinners for {{.servings}} servings."
required_context_keys: [servings]
temperature: 0.7
`)

	reg, err := LoadDir(dir)
	require.NoError(t, err)

	spec, err := reg.Get("weekly_menu")
	require.NoError(t, err)
	assert.Equal(t, "meal_plan_v1", spec.SchemaID)
	assert.Equal(t, []string{"servings"}, spec.RequiredContextKeys)
	assert.Equal(t, DefaultSchemaRetryBudget, spec.SchemaRetryBudget,
		"omitted budget must default, not zero out")
}

func TestLoadDir_ExplicitZeroBudget(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "strict.yaml", `
name: strict
schema_id: s
prompt_template: "go"
schema_retry_budget: 0
`)

	reg, err := LoadDir(dir)
	require.NoError(t, err)

	spec, err := reg.Get("strict")
	require.NoError(t, err)
	assert.Equal(t, 0, spec.SchemaRetryBudget, "an explicit zero disables corrective retries")
}

func TestLoadDir_ListOfSpecs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "all.yaml", `
- name: first
  schema_id: s
  prompt_template: one
- name: second
  schema_id: s
  prompt_template: two
`)

	reg, err := LoadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, reg.List())
}

func TestLoadDir_BrokenTemplateFailsLoading(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bad.yaml", `
name: bad
schema_id: s
prompt_template: "{{.unclosed"
`)

	_, err := LoadDir(dir)
	require.Error(t, err)
	assert.Equal(t, types.TASK_TEMPLATE_INVALID, types.CodeOf(err))
}

func TestLoadDir_DuplicateName(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", "name: dup\nschema_id: s\nprompt_template: x\n")
	writeFile(t, dir, "b.yaml", "name: dup\nschema_id: s\nprompt_template: y\n")

	_, err := LoadDir(dir)
	require.Error(t, err)
}

func TestLoadDir_MissingDirectory(t *testing.T) {
	_, err := LoadDir(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.Equal(t, types.TASK_LOAD_FAILED, types.CodeOf(err))
}

func TestRegistry_GetUnknown(t *testing.T) {
	reg, err := NewRegistry(Spec{Name: "known", SchemaID: "s", PromptTemplate: "x"})
	require.NoError(t, err)

	_, err = reg.Get("unknown")
	require.Error(t, err)
	assert.Equal(t, types.TASK_NOT_FOUND, types.CodeOf(err))
}
