package manifest

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
	sjsonschema "github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

const schemaURL = "https://github.com/ormasoftchile/rbdoctor/schemas/manifest-v0.json"

// JSONSchema describes an environment: an object of scalar values.
func (Values) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		AdditionalProperties: &jsonschema.Schema{
			AnyOf: []*jsonschema.Schema{
				{Type: "string"},
				{Type: "number"},
				{Type: "boolean"},
				{Type: "null"},
			},
		},
	}
}

// GenerateJSONSchema produces the JSON Schema of txtx.yml using
// invopop/jsonschema.
func GenerateJSONSchema() ([]byte, error) {
	r := new(jsonschema.Reflector)
	r.DoNotReference = false

	s := r.Reflect(&Manifest{})
	s.ID = schemaURL
	s.Title = "txtx workspace manifest"
	s.Description = "Schema for txtx.yml: runbooks, environments and doctor configuration"

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	return data, nil
}

// SchemaError is one schema violation.
type SchemaError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (e SchemaError) String() string {
	if e.Path == "" {
		return e.Message
	}
	return e.Path + ": " + e.Message
}

// ValidateSchema checks raw manifest YAML against the generated schema.
// A non-nil error means the check itself could not run.
func ValidateSchema(data []byte) ([]SchemaError, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	// Round-trip through JSON so numbers and maps take JSON shapes.
	jsonData, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("marshal for schema validation: %w", err)
	}
	var doc any
	if err := json.Unmarshal(jsonData, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}

	schemaJSON, err := GenerateJSONSchema()
	if err != nil {
		return nil, fmt.Errorf("generate schema: %w", err)
	}
	var schemaDoc any
	if err := json.Unmarshal(schemaJSON, &schemaDoc); err != nil {
		return nil, fmt.Errorf("unmarshal schema: %w", err)
	}

	c := sjsonschema.NewCompiler()
	if err := c.AddResource(schemaURL, schemaDoc); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	sch, err := c.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}

	err = sch.Validate(doc)
	if err == nil {
		return nil, nil
	}
	ve, ok := err.(*sjsonschema.ValidationError)
	if !ok {
		return []SchemaError{{Message: err.Error()}}, nil
	}
	var out []SchemaError
	for _, cause := range flatten(ve) {
		out = append(out, SchemaError{
			Path:    strings.Join(cause.InstanceLocation, "/"),
			Message: fmt.Sprintf("%v", cause.ErrorKind),
		})
	}
	return out, nil
}

func flatten(ve *sjsonschema.ValidationError) []*sjsonschema.ValidationError {
	if len(ve.Causes) == 0 {
		return []*sjsonschema.ValidationError{ve}
	}
	var flat []*sjsonschema.ValidationError
	for _, cause := range ve.Causes {
		flat = append(flat, flatten(cause)...)
	}
	return flat
}
