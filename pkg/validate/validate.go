// Package validate implements the two-pass reference validator:
// collection (build indices, report malformed action types) followed by
// validation (resolve every reference against the indices).
//
// The validator never mutates the AST and performs no I/O. All mutable
// state lives in a per-run index.
package validate

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ormasoftchile/rbdoctor/pkg/ast"
	"github.com/ormasoftchile/rbdoctor/pkg/registry"
)

// Validator checks runbooks against an addon registry. It is safe to reuse
// across runs; each Validate call starts from an empty index.
type Validator struct {
	reg    *registry.Registry
	locate Locator
}

// Locator maps a line of the validated buffer to the file and line it came
// from. It is set when several files are validated as one buffer, so line
// numbers written into message text name the original file.
type Locator func(line int) (file string, local int, ok bool)

// WithLocator returns a copy of v that renders line numbers in message text
// through l. A nil l keeps plain buffer lines.
func (v *Validator) WithLocator(l Locator) *Validator {
	c := *v
	c.locate = l
	return &c
}

// New creates a validator. A nil registry means "no addons".
func New(reg *registry.Registry) *Validator {
	if reg == nil {
		reg = registry.New()
	}
	return &Validator{reg: reg}
}

type phase int

const (
	phaseCollect phase = iota
	phaseValidate
)

// index holds the side tables built during collection.
type index struct {
	signers     map[string]string
	actionTypes map[string]string
	actionSpecs map[string]*registry.OperationSpec
	variables   map[string]bool

	// outputs maps an output name to its first declaration position.
	outputs   map[string]int
	outputPos map[*ast.Block]int

	flowInputs    map[string][]string
	flowOrder     []string
	flowLocations map[string]*ast.Span

	// brokenActions names actions whose indexed definition has a primary
	// error; field access on them is never checked.
	brokenActions map[string]bool
	// brokenBlocks are action blocks whose contents are skipped during
	// validation.
	brokenBlocks map[*ast.Block]bool

	firstLine map[ast.BlockKind]map[string]int
}

func newIndex() *index {
	return &index{
		signers:       map[string]string{},
		actionTypes:   map[string]string{},
		actionSpecs:   map[string]*registry.OperationSpec{},
		variables:     map[string]bool{},
		outputs:       map[string]int{},
		outputPos:     map[*ast.Block]int{},
		flowInputs:    map[string][]string{},
		flowLocations: map[string]*ast.Span{},
		brokenActions: map[string]bool{},
		brokenBlocks:  map[*ast.Block]bool{},
		firstLine:     map[ast.BlockKind]map[string]int{},
	}
}

// run is the state of one Validate call.
type run struct {
	reg    *registry.Registry
	file   string
	locate Locator
	phase  phase
	idx    *index

	primary   []Diagnostic
	errors    []Diagnostic
	warnings  []Diagnostic
	inputRefs []LocatedInputRef

	current *ast.Block
}

// Validate runs collection then validation over rb. It returns the result
// and every input/env reference occurrence in source order.
func (v *Validator) Validate(file string, rb *ast.Runbook) (*Result, []LocatedInputRef) {
	r := &run{reg: v.reg, file: file, locate: v.locate, idx: newIndex()}

	r.phase = phaseCollect
	for _, b := range rb.Blocks {
		r.collect(b)
	}

	r.phase = phaseValidate
	for _, b := range rb.Blocks {
		if b.Kind == ast.KindAction && r.idx.brokenBlocks[b] {
			continue
		}
		r.current = b
		r.visitBlock(b)
	}
	r.current = nil

	res := NewResult()
	res.Errors = append(res.Errors, r.primary...)
	res.Errors = append(res.Errors, r.errors...)
	res.Warnings = append(res.Warnings, r.warnings...)

	refs := r.inputRefs
	if refs == nil {
		refs = []LocatedInputRef{}
	}
	return res, refs
}

// ---------------------------------------------------------------------------
// Collection
// ---------------------------------------------------------------------------

func (r *run) collect(b *ast.Block) {
	first := r.recordDefinition(b)

	switch b.Kind {
	case ast.KindSigner:
		if first {
			r.idx.signers[b.Name] = b.Label
		}
	case ast.KindAction:
		r.collectAction(b, first)
	case ast.KindOutput:
		pos := len(r.idx.outputPos)
		r.idx.outputPos[b] = pos
		if first {
			r.idx.outputs[b.Name] = pos
		}
	case ast.KindVariable:
		r.idx.variables[b.Name] = true
	case ast.KindFlow:
		if first {
			var keys []string
			for _, a := range b.Attributes {
				if a.Key != "description" {
					keys = append(keys, a.Key)
				}
			}
			r.idx.flowInputs[b.Name] = keys
			r.idx.flowOrder = append(r.idx.flowOrder, b.Name)
			r.idx.flowLocations[b.Name] = b.Span
		}
	case ast.KindAddon, ast.KindModule, ast.KindRunbook:
	}

	r.current = b
	r.visitBlock(b)
	r.current = nil
}

// recordDefinition tracks first definitions per kind and warns on
// duplicates. It reports whether b is the first definition of its name.
func (r *run) recordDefinition(b *ast.Block) bool {
	byName, ok := r.idx.firstLine[b.Kind]
	if !ok {
		byName = map[string]int{}
		r.idx.firstLine[b.Kind] = byName
	}
	if line, dup := byName[b.Name]; dup {
		r.warnings = append(r.warnings, r.at(b.Span, Diagnostic{
			Message: fmt.Sprintf("Duplicate %s '%s' (first defined at %s)", b.Kind, b.Name, r.lineRef(line)),
			Context: "Only the first definition is used when resolving references",
		}))
		return false
	}
	byName[b.Name] = b.Line()
	return true
}

var legacyAliases = map[string]string{
	"deploy":   "deploy_contract",
	"send":     "send_eth",
	"call":     "call_contract",
	"transfer": "send_eth",
}

func (r *run) collectAction(b *ast.Block, first bool) {
	if first {
		r.idx.actionTypes[b.Name] = b.Label
	}
	loc := b.LabelSpan
	if loc == nil {
		loc = b.Span
	}

	fail := func(d Diagnostic) {
		r.primary = append(r.primary, r.at(loc, d))
		r.idx.brokenBlocks[b] = true
		if first {
			r.idx.brokenActions[b.Name] = true
		}
	}

	parts := strings.Split(b.Label, "::")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		fail(Diagnostic{
			Message: fmt.Sprintf("Invalid action type '%s' - must be in format 'namespace::action'", b.Label),
			Context: "Action types must include the namespace, e.g., 'evm::send_eth'",
		})
		return
	}
	ns, op := parts[0], parts[1]

	if !r.reg.HasNamespace(ns) {
		fail(Diagnostic{
			Message: fmt.Sprintf("Unknown addon namespace '%s'. Available namespaces: %s",
				ns, strings.Join(r.reg.Namespaces(), ", ")),
			Context: "Make sure you have the correct addon name",
		})
		return
	}

	spec, ok := r.reg.Lookup(ns, op)
	if !ok {
		ops := r.reg.Operations(ns)
		available := make([]string, 0, len(ops))
		for _, o := range ops {
			available = append(available, ns+"::"+o.Matcher)
		}
		d := Diagnostic{
			Message: fmt.Sprintf("Unknown action type '%s::%s'. Available actions for '%s': %s",
				ns, op, ns, strings.Join(available, ", ")),
			DocumentationLink: r.reg.ActionsLink(ns),
		}
		if hint := suggestOperation(ns, op, ops); hint != "" {
			d.Context = hint
			d.Suggestion = &Suggestion{Message: hint}
		}
		fail(d)
		return
	}

	if first {
		r.idx.actionSpecs[b.Name] = spec
	}
}

// suggestOperation proposes a known operation for a mistyped one: a legacy
// alias first, then substring matches in registration order.
func suggestOperation(ns, op string, ops []registry.OperationSpec) string {
	if target, ok := legacyAliases[op]; ok {
		for _, o := range ops {
			if o.Matcher == target {
				return fmt.Sprintf("Did you mean '%s::%s'?", ns, target)
			}
		}
	}
	var similar []string
	for _, o := range ops {
		if strings.Contains(o.Matcher, op) || strings.Contains(op, o.Matcher) {
			similar = append(similar, ns+"::"+o.Matcher)
		}
	}
	if len(similar) == 0 {
		return ""
	}
	return fmt.Sprintf("Did you mean: %s?", strings.Join(similar, " or "))
}

// ---------------------------------------------------------------------------
// Traversal
// ---------------------------------------------------------------------------

// visitBlock walks every attribute expression of b and its nested blocks.
// Nested blocks belong to the enclosing top-level block.
func (r *run) visitBlock(b *ast.Block) {
	for _, a := range b.Attributes {
		ast.Walk(a.Value, r.visitExpr)
	}
	for _, nested := range b.Nested {
		r.visitBlock(nested)
	}
}

func (r *run) visitExpr(e ast.Expression) bool {
	ref, ok := e.(*ast.Reference)
	if !ok {
		return true
	}
	switch r.phase {
	case phaseCollect:
		r.collectInputRef(ref)
	case phaseValidate:
		r.validateRef(ref)
	}
	return true
}

func (r *run) collectInputRef(ref *ast.Reference) {
	if classify(ref.Root()) != refInput || len(ref.Path) < 2 {
		return
	}
	line, col := position(ref.Span)
	r.inputRefs = append(r.inputRefs, LocatedInputRef{
		Name:   ref.Dotted(),
		Line:   line,
		Column: col,
	})
}

// ---------------------------------------------------------------------------
// Validation
// ---------------------------------------------------------------------------

func (r *run) validateRef(ref *ast.Reference) {
	if len(ref.Path) < 2 {
		return
	}
	name := ref.Segment(1)

	switch classify(ref.Root()) {
	case refAction:
		r.validateActionRef(ref, name)
	case refSigner:
		if _, ok := r.idx.signers[name]; !ok {
			r.errorAt(ref.Span, Diagnostic{
				Message: fmt.Sprintf("Reference to undefined signer '%s'", name),
				Context: "Signers must be defined in this runbook before they can be referenced",
			})
		}
	case refVariable:
		if !r.idx.variables[name] {
			r.errorAt(ref.Span, Diagnostic{
				Message: fmt.Sprintf("Reference to undefined variable '%s'", name),
				Context: "Variables must be defined in this runbook before they can be referenced",
			})
		}
	case refOutput:
		r.validateOutputRef(ref, name)
	case refFlow:
		r.validateFlowRef(ref, name)
	case refInput, refOther:
	}
}

func (r *run) validateActionRef(ref *ast.Reference, name string) {
	actionType, ok := r.idx.actionTypes[name]
	if !ok {
		r.errorAt(ref.Span, Diagnostic{
			Message: fmt.Sprintf("Reference to undefined action '%s'", name),
			Context: "Make sure the action is defined in this runbook",
		})
		return
	}
	if len(ref.Path) < 3 || r.idx.brokenActions[name] {
		return
	}
	spec, ok := r.idx.actionSpecs[name]
	if !ok {
		return
	}
	field := ref.Segment(2)
	if spec.HasOutput(field) {
		return
	}
	ns, op, _ := strings.Cut(actionType, "::")
	r.errorAt(ref.Span, Diagnostic{
		Message: fmt.Sprintf("Field '%s' does not exist on action '%s' (%s). Available outputs: %s",
			field, name, actionType, strings.Join(spec.OutputNames(), ", ")),
		DocumentationLink: r.reg.DocLink(ns, op),
	})
}

func (r *run) validateOutputRef(ref *ast.Reference, name string) {
	if r.current == nil || r.current.Kind != ast.KindOutput {
		return
	}
	curPos := r.idx.outputPos[r.current]
	pos, defined := r.idx.outputs[name]
	if defined && pos < curPos {
		return
	}
	d := Diagnostic{
		Message: fmt.Sprintf("Output '%s' references undefined output '%s'", r.current.Name, name),
		Context: "Outputs can only reference previously defined outputs",
	}
	if defined {
		d.Context = fmt.Sprintf("Output '%s' is not yet defined at this point; outputs can only reference previously defined outputs", name)
	}
	r.errorAt(ref.Span, d)
}

func (r *run) validateFlowRef(ref *ast.Reference, attr string) {
	if len(r.idx.flowOrder) == 0 {
		r.errorAt(ref.Span, Diagnostic{
			Message: fmt.Sprintf("Reference to flow.%s but no flows are defined", attr),
			Context: "Define at least one flow before referencing flow attributes",
		})
		return
	}

	var missing []string
	for _, flow := range r.idx.flowOrder {
		if !contains(r.idx.flowInputs[flow], attr) {
			missing = append(missing, flow)
		}
	}
	if len(missing) == 0 {
		return
	}

	plural := ""
	if len(missing) > 1 {
		plural = "s"
	}
	r.errorAt(ref.Span, Diagnostic{
		Message: fmt.Sprintf("Flow attribute '%s' is not defined in %d flow%s: %s",
			attr, len(missing), plural, strings.Join(missing, ", ")),
		Context: "This attribute must be defined in all flows",
	})

	refLine, _ := position(ref.Span)
	for _, flow := range missing {
		r.errorAt(r.idx.flowLocations[flow], Diagnostic{
			Message: fmt.Sprintf("Flow '%s' is missing attribute '%s' which is required by actions", flow, attr),
			Context: fmt.Sprintf("Add '%s = <value>' to this flow since it's referenced at %s", attr, r.lineRef(refLine)),
		})
	}
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func (r *run) errorAt(sp *ast.Span, d Diagnostic) {
	r.errors = append(r.errors, r.at(sp, d))
}

// lineRef renders a buffer line for message text: "line 12", or
// "line 2 of main.tx" when a locator maps it into another file.
func (r *run) lineRef(line int) string {
	if r.locate != nil {
		if file, local, ok := r.locate(line); ok {
			return fmt.Sprintf("line %d of %s", local, filepath.Base(file))
		}
	}
	return fmt.Sprintf("line %d", line)
}

func (r *run) at(sp *ast.Span, d Diagnostic) Diagnostic {
	d.File = r.file
	d.Line, d.Column = position(sp)
	return d
}

func position(sp *ast.Span) (int, int) {
	if sp == nil {
		return 0, 0
	}
	return sp.StartLine, sp.StartCol
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
