package schema

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/savo-ai/savo/internal/types"
)

// Registry holds every named output schema, loaded once at process start.
// It is read-only after construction: a malformed schema is a deployment
// defect, so loading fails outright instead of degrading at runtime, and
// there is no reload without a restart.
type Registry struct {
	schemas map[string]*Schema
}

// namedSchema is the YAML document shape for a schema file entry.
type namedSchema struct {
	ID     string  `yaml:"id"`
	Schema *Schema `yaml:"schema"`
}

// NewRegistry builds a registry from an explicit id -> schema map. Every
// schema is validated; any malformed entry fails construction.
func NewRegistry(schemas map[string]*Schema) (*Registry, error) {
	reg := &Registry{schemas: make(map[string]*Schema, len(schemas))}
	for id, s := range schemas {
		if err := reg.add(id, s); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// LoadDir builds a registry from every .yaml/.yml file in dir. Each file
// holds one named schema or a list of them. Subdirectories are not read.
func LoadDir(dir string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, types.WrapError(types.SCHEMA_LOAD_FAILED, "cannot read schema directory "+dir, err)
	}

	reg := &Registry{schemas: make(map[string]*Schema)}
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
		return types.WrapError(types.SCHEMA_LOAD_FAILED, "cannot read schema file "+path, err)
	}

	// A file may hold a single named schema or a list of them.
	var list []namedSchema
	if err := yaml.Unmarshal(data, &list); err != nil {
		var single namedSchema
		if err := yaml.Unmarshal(data, &single); err != nil {
			return types.WrapError(types.SCHEMA_PARSE_FAILED, "cannot parse schema file "+path, err)
		}
		list = []namedSchema{single}
	}

	for _, entry := range list {
		if entry.ID == "" {
			return types.NewError(types.SCHEMA_PARSE_FAILED, "schema entry without id in "+path)
		}
		if err := r.add(entry.ID, entry.Schema); err != nil {
			return err
		}
	}

	return nil
}

func (r *Registry) add(id string, s *Schema) error {
	if s == nil {
		return types.NewError(types.SCHEMA_PARSE_FAILED, fmt.Sprintf("schema %q has no body", id))
	}
	if err := s.Validate(); err != nil {
		return types.WrapError(types.SCHEMA_PARSE_FAILED, fmt.Sprintf("schema %q is malformed", id), err)
	}
	if _, exists := r.schemas[id]; exists {
		return types.NewError(types.SCHEMA_PARSE_FAILED, fmt.Sprintf("schema %q registered twice", id))
	}
	r.schemas[id] = s
	return nil
}

// Get retrieves a schema by id. Returns SCHEMA_NOT_FOUND if no schema is
// registered under that id.
func (r *Registry) Get(id string) (*Schema, error) {
	s, exists := r.schemas[id]
	if !exists {
		return nil, types.NewError(types.SCHEMA_NOT_FOUND, fmt.Sprintf("schema %q not found", id))
	}
	return s, nil
}

// List returns all registered schema ids, sorted.
func (r *Registry) List() []string {
	ids := make([]string, 0, len(r.schemas))
	for id := range r.schemas {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
