// Package rules implements the diagnostic rule pipeline applied to every
// input reference collected by the validator.
//
// Rules are independent: each sees the same Context, none sees another's
// outcome, and every non-pass outcome is recorded.
package rules

import (
	"github.com/ormasoftchile/rbdoctor/pkg/environment"
	"github.com/ormasoftchile/rbdoctor/pkg/manifest"
	"github.com/ormasoftchile/rbdoctor/pkg/validate"
)

// Context is what a rule sees for one input reference.
type Context struct {
	// InputName is the bare key ("rpc_url"); FullName the reference as
	// written ("input.rpc_url").
	InputName string
	FullName  string

	Manifest    *manifest.Manifest
	Environment string
	// Effective is the resolved mapping including CLI overrides.
	Effective environment.Effective
	// ManifestValues is the global+environment layer without CLI overrides.
	ManifestValues environment.Effective
	CLIInputs      []environment.Input

	File    string
	Content string
	Line    int
	Column  int
}

// EnvironmentName returns the active environment, defaulting to "global".
func (c *Context) EnvironmentName() string {
	if c.Environment == "" {
		return environment.Global
	}
	return c.Environment
}

// Kind is the outcome of a rule check.
type Kind int

const (
	KindPass Kind = iota
	KindWarning
	KindError
)

// Outcome is Pass, Warning{Message, Suggestion} or
// Error{Message, Context, Suggestion, DocumentationLink}.
type Outcome struct {
	Kind              Kind
	Message           string
	Context           string
	Suggestion        *validate.Suggestion
	DocumentationLink string
}

// Pass is the empty outcome.
func Pass() Outcome { return Outcome{Kind: KindPass} }

// Warn builds a warning outcome.
func Warn(msg string, s *validate.Suggestion) Outcome {
	return Outcome{Kind: KindWarning, Message: msg, Suggestion: s}
}

// Fail builds an error outcome.
func Fail(msg, context string, s *validate.Suggestion, link string) Outcome {
	return Outcome{Kind: KindError, Message: msg, Context: context, Suggestion: s, DocumentationLink: link}
}

// Rule is one pluggable check.
type Rule interface {
	Name() string
	Description() string
	Check(ctx *Context) Outcome
}

// ---------------------------------------------------------------------------
// Pipeline
// ---------------------------------------------------------------------------

// Pipeline is an ordered list of rules.
type Pipeline struct {
	rules []Rule
}

// NewPipeline creates a pipeline running rules in order.
func NewPipeline(rules ...Rule) *Pipeline {
	return &Pipeline{rules: append([]Rule(nil), rules...)}
}

// Default returns the default rule set.
func Default() []Rule {
	return []Rule{
		InputDefined{},
		InputNamingConvention{},
		CliInputOverride{},
		SensitiveData{},
	}
}

// Strict returns the default set followed by the production-only rules.
func Strict() []Rule {
	return append(Default(), NoDefaultValues{}, RequiredProductionInputs{})
}

// Rules returns the pipeline's rules in order.
func (p *Pipeline) Rules() []Rule { return p.rules }

// Add appends rules to the pipeline.
func (p *Pipeline) Add(rules ...Rule) { p.rules = append(p.rules, rules...) }

// Without returns a pipeline without the named rules.
func (p *Pipeline) Without(disabled map[string]bool) *Pipeline {
	if len(disabled) == 0 {
		return p
	}
	out := &Pipeline{}
	for _, r := range p.rules {
		if !disabled[r.Name()] {
			out.rules = append(out.rules, r)
		}
	}
	return out
}

// Run checks every reference against every rule and appends outcomes to res.
// base supplies the shared fields; per-reference fields are filled in.
func (p *Pipeline) Run(refs []validate.LocatedInputRef, base Context, res *validate.Result) {
	for _, ref := range refs {
		ctx := base
		ctx.InputName = ref.Bare()
		ctx.FullName = ref.Name
		ctx.Line = ref.Line
		ctx.Column = ref.Column

		for _, rule := range p.rules {
			out := rule.Check(&ctx)
			switch out.Kind {
			case KindPass:
				continue
			case KindWarning:
				res.AddWarning(validate.Diagnostic{
					Message:    out.Message,
					File:       ctx.File,
					Line:       ctx.Line,
					Column:     ctx.Column,
					Suggestion: out.Suggestion,
				})
			case KindError:
				res.AddError(validate.Diagnostic{
					Message:           out.Message,
					File:              ctx.File,
					Line:              ctx.Line,
					Column:            ctx.Column,
					Context:           out.Context,
					Suggestion:        out.Suggestion,
					DocumentationLink: out.DocumentationLink,
				})
			}
			if out.Suggestion != nil {
				res.AddSuggestion(*out.Suggestion)
			}
		}
	}
}
