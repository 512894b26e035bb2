package registry

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/invopop/jsonschema"
	"gopkg.in/yaml.v3"
)

// LoadFile reads a YAML registry file and merges it into r.
func (r *Registry) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open registry: %w", err)
	}
	defer f.Close()
	if err := r.Load(f); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// Load decodes a registry document and merges it into r.
// Unknown fields are rejected.
func (r *Registry) Load(rd io.Reader) error {
	var file File
	dec := yaml.NewDecoder(rd)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return fmt.Errorf("structural decode: %w", err)
	}
	for i, a := range file.Addons {
		if a.Namespace == "" {
			return fmt.Errorf("addons[%d]: namespace is required", i)
		}
		for j, op := range a.Operations {
			if op.Matcher == "" {
				return fmt.Errorf("addons[%d].operations[%d]: name is required", i, j)
			}
		}
	}
	for _, a := range file.Addons {
		r.Add(a)
	}
	return nil
}

// GenerateJSONSchema produces the JSON Schema of the registry file format.
func GenerateJSONSchema() ([]byte, error) {
	ref := new(jsonschema.Reflector)
	ref.DoNotReference = false

	s := ref.Reflect(&File{})
	s.ID = "https://github.com/ormasoftchile/rbdoctor/schemas/registry-v0.json"
	s.Title = "rbdoctor addon registry"
	s.Description = "Addon operation specifications used to validate action types and output fields"

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal registry schema: %w", err)
	}
	return data, nil
}
