// Package manifest models the workspace manifest (txtx.yml): runbook
// locations, layered environments and doctor configuration.
package manifest

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// GlobalEnvironment is the baseline layer every named environment inherits.
const GlobalEnvironment = "global"

// FileNames are the manifest file names recognised during discovery, in
// lookup order.
var FileNames = []string{"txtx.yml", "txtx.yaml", "Txtx.yml", "Txtx.yaml"}

// ---------------------------------------------------------------------------
// Types
// ---------------------------------------------------------------------------

// Manifest is a parsed txtx.yml.
type Manifest struct {
	Name         string            `yaml:"name"                   json:"name"                   jsonschema:"required"`
	ID           string            `yaml:"id,omitempty"           json:"id,omitempty"`
	Runbooks     []RunbookRef      `yaml:"runbooks,omitempty"     json:"runbooks,omitempty"`
	Environments map[string]Values `yaml:"environments,omitempty" json:"environments,omitempty"`
	Doctor       *DoctorConfig     `yaml:"doctor,omitempty"       json:"doctor,omitempty"`

	// Path is the absolute path of the manifest file. Set after loading.
	Path string `yaml:"-" json:"-"`
}

// RunbookRef declares one runbook of the workspace.
type RunbookRef struct {
	Name        string `yaml:"name"                  json:"name"                  jsonschema:"required"`
	ID          string `yaml:"id,omitempty"          json:"id,omitempty"`
	Location    string `yaml:"location"              json:"location"              jsonschema:"required"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// DoctorConfig configures the diagnostic rule pipeline.
type DoctorConfig struct {
	Strict  bool         `yaml:"strict,omitempty"  json:"strict,omitempty"`
	Disable []string     `yaml:"disable,omitempty" json:"disable,omitempty" jsonschema:"description=Rule names to skip"`
	Rules   []CustomRule `yaml:"rules,omitempty"   json:"rules,omitempty"`
}

// CustomRule is a user-defined input rule. When is an expr-lang boolean
// expression; the rule fires when it evaluates to true.
type CustomRule struct {
	Name       string `yaml:"name"                 json:"name"                 jsonschema:"required"`
	When       string `yaml:"when"                 json:"when"                 jsonschema:"required"`
	Severity   string `yaml:"severity,omitempty"   json:"severity,omitempty"   jsonschema:"enum=error,enum=warning"`
	Message    string `yaml:"message"              json:"message"              jsonschema:"required"`
	Suggestion string `yaml:"suggestion,omitempty" json:"suggestion,omitempty"`
}

// Values is one environment's key/value mapping. Scalar YAML values of any
// type are kept in their textual form.
type Values map[string]string

// UnmarshalYAML accepts scalar values of any type.
func (v *Values) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: environment must be a mapping", node.Line)
	}
	out := make(Values, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		switch val.Kind {
		case yaml.ScalarNode:
			if val.Tag == "!!null" {
				out[key.Value] = ""
			} else {
				out[key.Value] = val.Value
			}
		case yaml.AliasNode:
			if val.Alias != nil && val.Alias.Kind == yaml.ScalarNode {
				out[key.Value] = val.Alias.Value
				continue
			}
			fallthrough
		default:
			return fmt.Errorf("line %d: environment value %q must be a scalar", val.Line, key.Value)
		}
	}
	*v = out
	return nil
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// LoadFile reads and strictly decodes a manifest file.
func LoadFile(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	defer f.Close()

	m, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if abs, err := filepath.Abs(path); err == nil {
		m.Path = abs
	} else {
		m.Path = path
	}
	return m, nil
}

// Load decodes a manifest. Unknown top-level keys are rejected.
func Load(r io.Reader) (*Manifest, error) {
	var m Manifest
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("structural decode: empty manifest")
		}
		return nil, fmt.Errorf("structural decode: %w", err)
	}
	if m.Name == "" {
		return nil, fmt.Errorf("name is required")
	}
	return &m, nil
}

// Parse decodes manifest bytes and records path as its location. Used for
// in-memory editor documents.
func Parse(path string, data []byte) (*Manifest, error) {
	m, err := Load(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	m.Path = path
	return m, nil
}

// Find walks up from start looking for a manifest file. Returns "" (no
// error) when none exists up to the filesystem root.
func Find(start string) (string, error) {
	abs, err := filepath.Abs(start)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", err
	}
	dir := abs
	if !info.IsDir() {
		dir = filepath.Dir(abs)
	}

	for {
		for _, name := range FileNames {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

// Discover finds and loads the nearest manifest. Returns nil, nil when none
// is found.
func Discover(start string) (*Manifest, error) {
	path, err := Find(start)
	if err != nil || path == "" {
		return nil, err
	}
	return LoadFile(path)
}

// IsManifestFile reports whether path names a manifest file.
func IsManifestFile(path string) bool {
	base := filepath.Base(path)
	for _, name := range FileNames {
		if base == name {
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// Accessors
// ---------------------------------------------------------------------------

// Dir returns the directory containing the manifest.
func (m *Manifest) Dir() string {
	if m == nil || m.Path == "" {
		return "."
	}
	return filepath.Dir(m.Path)
}

// EnvironmentMap returns environments as plain nested maps.
func (m *Manifest) EnvironmentMap() map[string]map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]map[string]string, len(m.Environments))
	for name, vals := range m.Environments {
		out[name] = map[string]string(vals)
	}
	return out
}

// HasEnvironment reports whether name is declared.
func (m *Manifest) HasEnvironment(name string) bool {
	if m == nil {
		return false
	}
	_, ok := m.Environments[name]
	return ok
}

// Runbook looks up a runbook declaration by name.
func (m *Manifest) Runbook(name string) (*RunbookRef, bool) {
	for i := range m.Runbooks {
		if m.Runbooks[i].Name == name {
			return &m.Runbooks[i], true
		}
	}
	return nil, false
}

// RunbookNames returns declared runbook names sorted.
func (m *Manifest) RunbookNames() []string {
	names := make([]string, 0, len(m.Runbooks))
	for _, rb := range m.Runbooks {
		names = append(names, rb.Name)
	}
	sort.Strings(names)
	return names
}

// ResolveLocation returns the runbook location joined to the manifest
// directory. Absolute locations are returned unchanged.
func (m *Manifest) ResolveLocation(ref RunbookRef) string {
	if filepath.IsAbs(ref.Location) {
		return filepath.Clean(ref.Location)
	}
	return filepath.Join(m.Dir(), ref.Location)
}

// RunbookFor returns the runbook whose location is file or contains it.
func (m *Manifest) RunbookFor(file string) (*RunbookRef, bool) {
	abs, err := filepath.Abs(file)
	if err != nil {
		abs = file
	}
	for i := range m.Runbooks {
		loc := m.ResolveLocation(m.Runbooks[i])
		if abs == loc || strings.HasPrefix(abs, loc+string(filepath.Separator)) {
			return &m.Runbooks[i], true
		}
	}
	return nil, false
}

// Strict reports whether the manifest requests the strict rule set.
func (m *Manifest) Strict() bool {
	return m != nil && m.Doctor != nil && m.Doctor.Strict
}

// CustomRules returns the configured custom rules.
func (m *Manifest) CustomRules() []CustomRule {
	if m == nil || m.Doctor == nil {
		return nil
	}
	return m.Doctor.Rules
}

// Disabled returns the set of rule names turned off by the manifest.
func (m *Manifest) Disabled() map[string]bool {
	out := map[string]bool{}
	if m == nil || m.Doctor == nil {
		return out
	}
	for _, name := range m.Doctor.Disable {
		out[name] = true
	}
	return out
}
