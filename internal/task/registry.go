package task

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/savo-ai/savo/internal/types"
)

// Registry holds every compiled task spec, loaded once at process start and
// read-only thereafter. A spec that fails to compile fails loading outright.
type Registry struct {
	specs map[string]*Spec
}

// specDoc is the YAML document shape for a task spec file entry.
type specDoc struct {
	Name                string   `yaml:"name"`
	SystemPrompt        string   `yaml:"system_prompt"`
	PromptTemplate      string   `yaml:"prompt_template"`
	SchemaID            string   `yaml:"schema_id"`
	SchemaRetryBudget   *int     `yaml:"schema_retry_budget"`
	RequiredContextKeys []string `yaml:"required_context_keys"`
	Model               string   `yaml:"model"`
	Temperature         float64  `yaml:"temperature"`
}

func (d specDoc) toSpec() Spec {
	budget := DefaultSchemaRetryBudget
	if d.SchemaRetryBudget != nil {
		budget = *d.SchemaRetryBudget
	}
	return Spec{
		Name:                d.Name,
		SystemPrompt:        d.SystemPrompt,
		PromptTemplate:      d.PromptTemplate,
		SchemaID:            d.SchemaID,
		SchemaRetryBudget:   budget,
		RequiredContextKeys: d.RequiredContextKeys,
		Model:               d.Model,
		Temperature:         d.Temperature,
	}
}

// NewRegistry builds a registry from explicit specs, compiling each one.
func NewRegistry(specs ...Spec) (*Registry, error) {
	reg := &Registry{specs: make(map[string]*Spec, len(specs))}
	for _, spec := range specs {
		if err := reg.add(spec); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// LoadDir builds a registry from every .yaml/.yml file in dir. Each file
// holds one task spec or a list of them. Subdirectories are not read.
func LoadDir(dir string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, types.WrapError(types.TASK_LOAD_FAILED, "cannot read task directory "+dir, err)
	}

	reg := &Registry{specs: make(map[string]*Spec)}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		if err := reg.loadFile(path); err != nil {
			return nil, err
		}
	}

	return reg, nil
}

func (r *Registry) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.WrapError(types.TASK_LOAD_FAILED, "cannot read task file "+path, err)
	}

	var docs []specDoc
	if err := yaml.Unmarshal(data, &docs); err != nil {
		var single specDoc
		if err := yaml.Unmarshal(data, &single); err != nil {
			return types.WrapError(types.TASK_PARSE_FAILED, "cannot parse task file "+path, err)
		}
		docs = []specDoc{single}
	}

	for _, doc := range docs {
		if err := r.add(doc.toSpec()); err != nil {
			return err
		}
	}

	return nil
}

func (r *Registry) add(spec Spec) error {
	compiled, err := Compile(spec)
	if err != nil {
		return err
	}
	if _, exists := r.specs[compiled.Name]; exists {
		return types.NewError(types.TASK_PARSE_FAILED, fmt.Sprintf("task %q registered twice", compiled.Name))
	}
	r.specs[compiled.Name] = compiled
	return nil
}

// Get retrieves a compiled task spec by name. Returns TASK_NOT_FOUND if no
// spec is registered under that name.
func (r *Registry) Get(name string) (*Spec, error) {
	spec, exists := r.specs[name]
	if !exists {
		return nil, types.NewError(types.TASK_NOT_FOUND, fmt.Sprintf("task %q not found", name))
	}
	return spec, nil
}

// List returns all registered task names, sorted.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.specs))
	for name := range r.specs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
