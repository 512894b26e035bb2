package workspace

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ormasoftchile/rbdoctor/pkg/ast"
	"github.com/ormasoftchile/rbdoctor/pkg/environment"
	"github.com/ormasoftchile/rbdoctor/pkg/manifest"
	"github.com/ormasoftchile/rbdoctor/pkg/parser"
	"github.com/ormasoftchile/rbdoctor/pkg/rules"
)

// Positions in this file are 1-based, like ast.Span.

// redacted replaces the values of sensitive inputs in hover text and
// completion details.
const redacted = "********"

// Location is a source range in a file.
type Location struct {
	Path string
	Span ast.Span
}

// CompletionKind classifies a completion item.
type CompletionKind int

const (
	CompletionVariable CompletionKind = iota
	CompletionModule
	CompletionFunction
	CompletionReference
	CompletionField
)

// Completion is one completion candidate.
type Completion struct {
	Label  string
	Kind   CompletionKind
	Detail string
}

// referenceKinds maps a reference root to the block kind it names.
var referenceKinds = map[string]ast.BlockKind{
	"action":   ast.KindAction,
	"signer":   ast.KindSigner,
	"variable": ast.KindVariable,
	"output":   ast.KindOutput,
}

// cursor is what sits under a position of a runbook.
type cursor struct {
	ref *ast.Reference
	// label is set when the position is on an action or signer type.
	label string
}

func cursorAt(rb *ast.Runbook, line, col int) (cursor, bool) {
	for _, b := range rb.Blocks {
		if b.Span == nil || !b.Span.Contains(line, col) {
			continue
		}
		if b.LabelSpan != nil && b.LabelSpan.Contains(line, col) && b.Label != "" {
			return cursor{label: b.Label}, true
		}
		if ref := referenceAt(b, line, col); ref != nil {
			return cursor{ref: ref}, true
		}
		return cursor{}, false
	}
	return cursor{}, false
}

func referenceAt(b *ast.Block, line, col int) *ast.Reference {
	for _, a := range b.Attributes {
		for _, r := range ast.References(a.Value) {
			if r.Span != nil && r.Span.Contains(line, col) {
				return r
			}
		}
	}
	for _, n := range b.Nested {
		if r := referenceAt(n, line, col); r != nil {
			return r
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Hover
// ---------------------------------------------------------------------------

// Hover returns Markdown describing what sits at a position of an open
// runbook: addon documentation for action types, the effective value of
// inputs, or a summary of the referenced block.
func (s *State) Hover(path string, line, col int) (string, bool) {
	path = clean(path)
	s.mu.RLock()
	defer s.mu.RUnlock()

	rb, ok := s.parseLocked(path)
	if !ok {
		return "", false
	}
	cur, ok := cursorAt(rb, line, col)
	if !ok {
		return "", false
	}
	if cur.label != "" {
		return s.explainLocked(cur.label)
	}

	ref := cur.ref
	switch root := ref.Root(); root {
	case "input", "env":
		name := ref.Segment(1)
		if name == "" {
			return "", false
		}
		m, _ := s.manifestForLocked(path)
		return s.inputHoverLocked(m, name), true
	case "flow":
		return s.flowHoverLocked(path, ref.Segment(1))
	default:
		kind, known := referenceKinds[root]
		if !known {
			return "", false
		}
		b, _, found := s.findBlockLocked(path, kind, ref.Segment(1))
		if !found {
			return "", false
		}
		if kind == ast.KindAction {
			md, ok := s.explainLocked(b.Label)
			if !ok {
				return blockSummary(b), true
			}
			return fmt.Sprintf("**action** `%s`\n\n%s", b.Name, md), true
		}
		return blockSummary(b), true
	}
}

func (s *State) explainLocked(label string) (string, bool) {
	md, err := s.analyzer.Registry.Explain(label)
	if err != nil {
		return "", false
	}
	return md, true
}

func (s *State) inputHoverLocked(m *manifest.Manifest, name string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**Input**: `%s`\n\n", name)
	if m == nil {
		b.WriteString("No txtx.yml governs this runbook.\n")
		return b.String()
	}

	env := s.environment
	if env == "" {
		env = environment.Global
	}
	envs := m.EnvironmentMap()
	effective := environment.Resolve(envs, env, s.cliInputs)

	value, ok := effective[name]
	if ok {
		fmt.Fprintf(&b, "**Current value**: `%s`\n\n", display(name, value))
		switch {
		case environment.Has(s.cliInputs, name):
			b.WriteString("**Source**: CLI input\n\n")
		case env != environment.Global && !hasKey(envs[env], name):
			fmt.Fprintf(&b, "**Environment**: `%s` *(inherited from global)*\n\n", env)
		default:
			fmt.Fprintf(&b, "**Environment**: `%s`\n\n", env)
		}
		if others := definedIn(envs, name, env); len(others) > 0 {
			fmt.Fprintf(&b, "**Also defined in:** %s\n", strings.Join(others, ", "))
		}
		return b.String()
	}

	if others := definedIn(envs, name, env); len(others) > 0 {
		fmt.Fprintf(&b, "⚠️ **Not available** in environment `%s`\n\n", env)
		fmt.Fprintf(&b, "**Available in:** %s\n", strings.Join(others, ", "))
		return b.String()
	}
	b.WriteString("⚠️ **Not defined** in any environment\n\n")
	fmt.Fprintf(&b, "Add it to txtx.yml:\n\n```yaml\nenvironments:\n  %s:\n    %s: <value>\n```\n", env, name)
	return b.String()
}

func (s *State) flowHoverLocked(path, attr string) (string, bool) {
	if attr == "" {
		return "", false
	}
	var b strings.Builder
	fmt.Fprintf(&b, "**Flow attribute**: `%s`\n\n", attr)
	n := 0
	for _, rb := range s.runbooksLocked(path) {
		for _, flow := range rb.OfKind(ast.KindFlow) {
			if a, ok := flow.Attr(attr); ok {
				fmt.Fprintf(&b, "- `%s`: `%s`\n", flow.Name, display(attr, ast.Text(a.Value)))
			} else {
				fmt.Fprintf(&b, "- `%s`: ⚠️ not defined\n", flow.Name)
			}
			n++
		}
	}
	if n == 0 {
		return "", false
	}
	return b.String(), true
}

// blockSummary renders a block header and its attributes.
func blockSummary(b *ast.Block) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "**%s** `%s`", b.Kind, b.Name)
	if b.Label != "" {
		fmt.Fprintf(&sb, " (`%s`)", b.Label)
	}
	sb.WriteString("\n")
	if len(b.Attributes) == 0 {
		return sb.String()
	}
	sb.WriteString("\n```hcl\n")
	for _, key := range b.Keys() {
		a, _ := b.Attr(key)
		fmt.Fprintf(&sb, "%s = %s\n", key, display(key, ast.Text(a.Value)))
	}
	sb.WriteString("```\n")
	return sb.String()
}

func display(name, value string) string {
	if rules.IsSensitive(name) {
		return redacted
	}
	return value
}

func hasKey(values map[string]string, key string) bool {
	_, ok := values[key]
	return ok
}

// definedIn lists the environments other than current that define key.
func definedIn(envs map[string]map[string]string, key, current string) []string {
	var out []string
	for _, name := range environment.Names(envs) {
		if name != current && hasKey(envs[name], key) {
			out = append(out, name)
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// Definition
// ---------------------------------------------------------------------------

// Definition resolves the reference at a position to where it is declared:
// a block of the runbook (in any file of a multi-file runbook), the first
// flow defining an attribute, or the manifest key of an input.
func (s *State) Definition(path string, line, col int) (Location, bool) {
	path = clean(path)
	s.mu.RLock()
	defer s.mu.RUnlock()

	rb, ok := s.parseLocked(path)
	if !ok {
		return Location{}, false
	}
	cur, ok := cursorAt(rb, line, col)
	if !ok || cur.ref == nil {
		return Location{}, false
	}

	ref := cur.ref
	switch root := ref.Root(); root {
	case "input", "env":
		m, found := s.manifestForLocked(path)
		if !found {
			return Location{}, false
		}
		return s.inputDefinitionLocked(m, ref.Segment(1))
	case "flow":
		for _, src := range s.sourcesForLocked(path) {
			for _, flow := range src.runbook.OfKind(ast.KindFlow) {
				if a, ok := flow.Attr(ref.Segment(1)); ok && a.Span != nil {
					return Location{Path: src.path, Span: *a.Span}, true
				}
			}
		}
		return Location{}, false
	default:
		kind, known := referenceKinds[root]
		if !known {
			return Location{}, false
		}
		b, file, found := s.findBlockLocked(path, kind, ref.Segment(1))
		if !found || b.Span == nil {
			return Location{}, false
		}
		return Location{Path: file, Span: *b.Span}, true
	}
}

// inputDefinitionLocked finds the key of an input in txtx.yml: in the
// selected environment first, then global, then any other environment.
func (s *State) inputDefinitionLocked(m *manifest.Manifest, name string) (Location, bool) {
	if name == "" || m.Path == "" {
		return Location{}, false
	}
	var data []byte
	if doc, ok := s.documents[clean(m.Path)]; ok {
		data = []byte(doc.Content)
	} else {
		var err error
		if data, err = os.ReadFile(m.Path); err != nil {
			return Location{}, false
		}
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil || len(root.Content) == 0 {
		return Location{}, false
	}
	envs := mappingValue(root.Content[0], "environments")
	if envs == nil {
		return Location{}, false
	}

	order := []string{}
	if s.environment != "" {
		order = append(order, s.environment)
	}
	order = append(order, environment.Global)
	order = append(order, environment.Names(m.EnvironmentMap())...)
	for _, env := range order {
		values := mappingValue(envs, env)
		if values == nil {
			continue
		}
		if key := mappingKey(values, name); key != nil {
			return Location{Path: m.Path, Span: ast.Span{
				StartLine: key.Line,
				StartCol:  key.Column,
				EndLine:   key.Line,
				EndCol:    key.Column + len(name),
			}}, true
		}
	}
	return Location{}, false
}

func mappingKey(n *yaml.Node, key string) *yaml.Node {
	if n == nil || n.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return n.Content[i]
		}
	}
	return nil
}

func mappingValue(n *yaml.Node, key string) *yaml.Node {
	if n == nil || n.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return n.Content[i+1]
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Completion
// ---------------------------------------------------------------------------

var (
	inputPrefix = regexp.MustCompile(`\b(input|env)\.(\w*)$`)
	fieldPrefix = regexp.MustCompile(`\baction\.(\w+)\.(\w*)$`)
	blockPrefix = regexp.MustCompile(`\b(action|signer|variable|output)\.(\w*)$`)
	flowPrefix  = regexp.MustCompile(`\bflow\.(\w*)$`)
	typePrefix  = regexp.MustCompile(`^\s*(?:action|signer)\s+"[^"]*"\s+"([\w:]*)$`)
	addonPrefix = regexp.MustCompile(`^\s*addon\s+"(\w*)$`)
)

// Complete lists candidates for the text before a position: manifest
// inputs after `input.`, declared block names after `action.` and the
// like, operation outputs after `action.<name>.`, and addon namespaces or
// operations inside block headers.
func (s *State) Complete(path string, line, col int) []Completion {
	path = clean(path)
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.documents[path]
	if !ok || !doc.IsRunbook() {
		return nil
	}
	lines := strings.Split(doc.Content, "\n")
	if line < 1 || line > len(lines) {
		return nil
	}
	text := strings.TrimSuffix(lines[line-1], "\r")
	if col >= 1 && col-1 < len(text) {
		text = text[:col-1]
	}

	var out []Completion
	switch {
	case addonPrefix.MatchString(text):
		typed := addonPrefix.FindStringSubmatch(text)[1]
		out = s.namespaceCompletionsLocked(typed)
	case typePrefix.MatchString(text):
		typed := typePrefix.FindStringSubmatch(text)[1]
		out = s.typeCompletionsLocked(typed)
	case inputPrefix.MatchString(text):
		typed := inputPrefix.FindStringSubmatch(text)[2]
		m, _ := s.manifestForLocked(path)
		out = s.inputCompletionsLocked(m, typed)
	case fieldPrefix.MatchString(text):
		sm := fieldPrefix.FindStringSubmatch(text)
		out = s.fieldCompletionsLocked(path, line, sm[1], sm[2])
	case blockPrefix.MatchString(text):
		sm := blockPrefix.FindStringSubmatch(text)
		out = s.blockCompletionsLocked(path, line, referenceKinds[sm[1]], sm[2])
	case flowPrefix.MatchString(text):
		typed := flowPrefix.FindStringSubmatch(text)[1]
		out = s.flowCompletionsLocked(path, line, typed)
	}
	return out
}

func (s *State) namespaceCompletionsLocked(typed string) []Completion {
	var out []Completion
	for _, ns := range s.analyzer.Registry.Namespaces() {
		if !strings.HasPrefix(ns, typed) {
			continue
		}
		c := Completion{Label: ns, Kind: CompletionModule}
		if a, ok := s.analyzer.Registry.Addon(ns); ok {
			c.Detail = a.Documentation
		}
		out = append(out, c)
	}
	return out
}

func (s *State) typeCompletionsLocked(typed string) []Completion {
	ns, op, hasOp := strings.Cut(typed, "::")
	if !hasOp {
		var out []Completion
		for _, c := range s.namespaceCompletionsLocked(ns) {
			c.Label += "::"
			out = append(out, c)
		}
		return out
	}
	var out []Completion
	for _, spec := range s.analyzer.Registry.Operations(ns) {
		if !strings.HasPrefix(spec.Matcher, op) {
			continue
		}
		out = append(out, Completion{
			Label:  ns + "::" + spec.Matcher,
			Kind:   CompletionFunction,
			Detail: spec.Documentation,
		})
	}
	return out
}

func (s *State) inputCompletionsLocked(m *manifest.Manifest, typed string) []Completion {
	if m == nil {
		return nil
	}
	envs := m.EnvironmentMap()
	env := s.environment
	if env == "" {
		env = environment.Global
	}
	effective := environment.Resolve(envs, env, s.cliInputs)

	keys := map[string]bool{}
	for _, values := range envs {
		for k := range values {
			keys[k] = true
		}
	}
	for _, in := range s.cliInputs {
		keys[in.Key] = true
	}

	names := make([]string, 0, len(keys))
	for k := range keys {
		if strings.HasPrefix(k, typed) {
			names = append(names, k)
		}
	}
	sort.Strings(names)

	out := make([]Completion, 0, len(names))
	for _, k := range names {
		detail := fmt.Sprintf("not set in %s", env)
		if v, ok := effective[k]; ok {
			detail = display(k, v)
		}
		out = append(out, Completion{Label: k, Kind: CompletionVariable, Detail: detail})
	}
	return out
}

func (s *State) blockCompletionsLocked(path string, line int, kind ast.BlockKind, typed string) []Completion {
	var out []Completion
	seen := map[string]bool{}
	for _, rb := range s.runbooksBlankingLocked(path, line) {
		for _, b := range rb.OfKind(kind) {
			if seen[b.Name] || !strings.HasPrefix(b.Name, typed) {
				continue
			}
			seen[b.Name] = true
			out = append(out, Completion{Label: b.Name, Kind: CompletionReference, Detail: b.Label})
		}
	}
	return out
}

func (s *State) fieldCompletionsLocked(path string, line int, action, typed string) []Completion {
	for _, rb := range s.runbooksBlankingLocked(path, line) {
		b := rb.Find(ast.KindAction, action)
		if b == nil {
			continue
		}
		ns, op, ok := strings.Cut(b.Label, "::")
		if !ok {
			return nil
		}
		spec, ok := s.analyzer.Registry.Lookup(ns, op)
		if !ok {
			return nil
		}
		var out []Completion
		for _, f := range spec.Outputs {
			if strings.HasPrefix(f.Name, typed) {
				out = append(out, Completion{Label: f.Name, Kind: CompletionField, Detail: f.Documentation})
			}
		}
		return out
	}
	return nil
}

func (s *State) flowCompletionsLocked(path string, line int, typed string) []Completion {
	var out []Completion
	seen := map[string]bool{}
	for _, rb := range s.runbooksBlankingLocked(path, line) {
		for _, flow := range rb.OfKind(ast.KindFlow) {
			for _, key := range flow.Keys() {
				if seen[key] || !strings.HasPrefix(key, typed) {
					continue
				}
				seen[key] = true
				out = append(out, Completion{Label: key, Kind: CompletionField, Detail: "flow " + flow.Name})
			}
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// Parsing helpers
// ---------------------------------------------------------------------------

// parsedSource is one parsed file of a runbook.
type parsedSource struct {
	path    string
	runbook *ast.Runbook
}

func (s *State) parseLocked(path string) (*ast.Runbook, bool) {
	doc, ok := s.documents[path]
	if !ok || !doc.IsRunbook() {
		return nil, false
	}
	rb, err := parser.Parse(path, []byte(doc.Content))
	if err != nil {
		return nil, false
	}
	return rb, true
}

// sourcesForLocked parses path and, for a multi-file runbook, its sibling
// files. path comes first. Files that fail to parse are skipped.
func (s *State) sourcesForLocked(path string) []parsedSource {
	var out []parsedSource
	if rb, ok := s.parseLocked(path); ok {
		out = append(out, parsedSource{path: path, runbook: rb})
	}
	m, _ := s.manifestForLocked(path)
	dir, ok := s.runbookDirLocked(m, path)
	if !ok {
		return out
	}
	sources, err := s.sourcesLocked(dir)
	if err != nil {
		return out
	}
	for _, src := range sources {
		if clean(src.Path) == path {
			continue
		}
		rb, err := parser.Parse(src.Path, []byte(src.Content))
		if err != nil {
			continue
		}
		out = append(out, parsedSource{path: clean(src.Path), runbook: rb})
	}
	return out
}

func (s *State) runbooksLocked(path string) []*ast.Runbook {
	srcs := s.sourcesForLocked(path)
	out := make([]*ast.Runbook, len(srcs))
	for i, src := range srcs {
		out[i] = src.runbook
	}
	return out
}

// runbooksBlankingLocked is runbooksLocked with line of path emptied, so the
// half-typed reference under the cursor does not break parsing.
func (s *State) runbooksBlankingLocked(path string, line int) []*ast.Runbook {
	doc, ok := s.documents[path]
	if !ok {
		return nil
	}
	lines := strings.Split(doc.Content, "\n")
	if line >= 1 && line <= len(lines) {
		lines[line-1] = ""
	}

	var out []*ast.Runbook
	if rb, err := parser.Parse(path, []byte(strings.Join(lines, "\n"))); err == nil {
		out = append(out, rb)
	}
	for _, src := range s.sourcesForLocked(path) {
		if src.path != path {
			out = append(out, src.runbook)
		}
	}
	return out
}

// findBlockLocked looks a block up in path, then in the other files of its
// multi-file runbook.
func (s *State) findBlockLocked(path string, kind ast.BlockKind, name string) (*ast.Block, string, bool) {
	if name == "" {
		return nil, "", false
	}
	for _, src := range s.sourcesForLocked(path) {
		if b := src.runbook.Find(kind, name); b != nil {
			return b, src.path, true
		}
	}
	return nil, "", false
}
