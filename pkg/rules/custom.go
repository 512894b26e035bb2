package rules

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/ormasoftchile/rbdoctor/pkg/environment"
	"github.com/ormasoftchile/rbdoctor/pkg/manifest"
	"github.com/ormasoftchile/rbdoctor/pkg/validate"
)

// Custom is a manifest-declared rule whose condition is an expr-lang
// expression over the reference being checked.
type Custom struct {
	spec    manifest.CustomRule
	program *vm.Program
}

// CompileError reports a custom rule that could not be compiled.
type CompileError struct {
	Rule string
	Err  error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("Invalid custom rule '%s': %v", e.Rule, e.Err)
}

func (e *CompileError) Unwrap() error { return e.Err }

// exprEnv builds the evaluation environment for one reference. The key set
// is fixed so expressions can be type-checked at compile time.
func exprEnv(ctx *Context) map[string]any {
	value, defined := ctx.Effective[ctx.InputName]
	return map[string]any{
		"name":        ctx.InputName,
		"full_name":   ctx.FullName,
		"environment": ctx.EnvironmentName(),
		"value":       value,
		"defined":     defined,
		"cli":         environment.Has(ctx.CLIInputs, ctx.InputName),
	}
}

// CompileCustom compiles manifest rules. Rules that fail to compile are
// skipped and reported as errors; the rest are returned in order.
func CompileCustom(specs []manifest.CustomRule) ([]Rule, []error) {
	var (
		out  []Rule
		errs []error
	)
	sample := exprEnv(&Context{})
	for _, spec := range specs {
		if strings.TrimSpace(spec.When) == "" {
			errs = append(errs, &CompileError{Rule: spec.Name, Err: fmt.Errorf("empty condition")})
			continue
		}
		switch spec.Severity {
		case "", "error", "warning":
		default:
			errs = append(errs, &CompileError{Rule: spec.Name, Err: fmt.Errorf("unknown severity %q", spec.Severity)})
			continue
		}
		program, err := expr.Compile(spec.When, expr.Env(sample), expr.AsBool())
		if err != nil {
			errs = append(errs, &CompileError{Rule: spec.Name, Err: err})
			continue
		}
		out = append(out, &Custom{spec: spec, program: program})
	}
	return out, errs
}

func (c *Custom) Name() string        { return c.spec.Name }
func (c *Custom) Description() string { return "Custom rule: " + c.spec.When }

func (c *Custom) Check(ctx *Context) Outcome {
	env := exprEnv(ctx)
	output, err := expr.Run(c.program, env)
	if err != nil {
		return Fail(
			fmt.Sprintf("Custom rule '%s' failed for '%s': %v", c.spec.Name, ctx.FullName, err),
			"Condition: "+c.spec.When,
			nil,
			"",
		)
	}
	if fired, ok := output.(bool); !ok || !fired {
		return Pass()
	}

	msg := c.expand(c.spec.Message, env)
	var sugg *validate.Suggestion
	if c.spec.Suggestion != "" {
		sugg = &validate.Suggestion{Message: c.expand(c.spec.Suggestion, env)}
	}
	if c.spec.Severity == "warning" {
		return Warn(msg, sugg)
	}
	return Fail(msg, "", sugg, "")
}

// expand substitutes {name}, {full_name}, {environment} and {value}.
func (c *Custom) expand(s string, env map[string]any) string {
	return strings.NewReplacer(
		"{name}", fmt.Sprint(env["name"]),
		"{full_name}", fmt.Sprint(env["full_name"]),
		"{environment}", fmt.Sprint(env["environment"]),
		"{value}", fmt.Sprint(env["value"]),
	).Replace(s)
}
