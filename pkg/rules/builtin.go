package rules

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/ormasoftchile/rbdoctor/pkg/environment"
	"github.com/ormasoftchile/rbdoctor/pkg/validate"
)

// InputDefined fails when the input has no effective value.
type InputDefined struct{}

func (InputDefined) Name() string { return "input_defined" }
func (InputDefined) Description() string {
	return "Validates that all input references are defined in the manifest"
}

func (InputDefined) Check(ctx *Context) Outcome {
	if _, ok := ctx.Effective[ctx.InputName]; ok {
		return Pass()
	}
	env := ctx.EnvironmentName()
	named := env != environment.Global

	context := fmt.Sprintf("Add '%s' to your txtx.yml file", ctx.InputName)
	example := fmt.Sprintf("environments:\n  %s:\n    %s: \"<value>\"", env, ctx.InputName)
	if named {
		context += " (consider adding to 'global' if used across environments)"
		example += "\n  # Or add to 'global' for all environments"
	}
	return Fail(
		fmt.Sprintf("Input '%s' is not defined in environment '%s' (including inherited values)", ctx.FullName, env),
		context,
		&validate.Suggestion{Message: "Add the missing input to your environment", Example: example},
		"https://docs.txtx.sh/concepts/manifest#environments",
	)
}

// InputNamingConvention warns on names that do not look like snake_case.
type InputNamingConvention struct{}

func (InputNamingConvention) Name() string { return "input_naming_convention" }
func (InputNamingConvention) Description() string {
	return "Validates input names follow recommended conventions"
}

func (InputNamingConvention) Check(ctx *Context) Outcome {
	name := ctx.InputName
	switch {
	case strings.HasPrefix(name, "_"):
		return Warn(
			fmt.Sprintf("Input '%s' starts with underscore, which may indicate a private variable", name),
			&validate.Suggestion{
				Message: "Consider using a different naming convention",
				Example: "Rename to: " + strings.TrimLeft(name, "_"),
			},
		)
	case strings.Contains(name, "-"):
		return Warn(
			fmt.Sprintf("Input '%s' contains hyphens, consider using underscores", name),
			&validate.Suggestion{
				Message: "Use underscores instead of hyphens for consistency",
				Example: "Rename to: " + strings.ReplaceAll(name, "-", "_"),
			},
		)
	case !startsLower(name):
		return Warn(
			fmt.Sprintf("Input '%s' should start with a lowercase letter", name),
			&validate.Suggestion{
				Message: "Use lowercase for input names",
				Example: "Rename to: " + strings.ToLower(name),
			},
		)
	}
	return Pass()
}

func startsLower(s string) bool {
	for _, r := range s {
		return unicode.IsLower(r)
	}
	return false
}

// CliInputOverride warns when a CLI input shadows a manifest value.
type CliInputOverride struct{}

func (CliInputOverride) Name() string { return "cli_input_override" }
func (CliInputOverride) Description() string {
	return "Checks if inputs are overridden by CLI arguments"
}

func (CliInputOverride) Check(ctx *Context) Outcome {
	if _, ok := ctx.Effective[ctx.InputName]; !ok {
		return Pass()
	}
	if !environment.Has(ctx.CLIInputs, ctx.InputName) {
		return Pass()
	}
	if _, ok := ctx.ManifestValues[ctx.InputName]; !ok {
		return Pass()
	}
	return Warn(
		fmt.Sprintf("Input '%s' is defined in manifest but overridden by CLI argument", ctx.InputName),
		&validate.Suggestion{Message: "CLI inputs take precedence over environment values"},
	)
}

var sensitivePatterns = []string{
	"password", "passwd", "pwd", "secret", "key",
	"token", "credential", "cred", "private", "priv",
}

// SensitiveData warns when an input name suggests a secret.
type SensitiveData struct{}

func (SensitiveData) Name() string { return "sensitive_data" }
func (SensitiveData) Description() string {
	return "Warns about potentially sensitive data in input names"
}

func (SensitiveData) Check(ctx *Context) Outcome {
	if !IsSensitive(ctx.InputName) {
		return Pass()
	}
	return Warn(
		fmt.Sprintf("Input '%s' appears to contain sensitive information", ctx.InputName),
		&validate.Suggestion{
			Message: "Consider using environment variables or a secure secret manager",
			Example: fmt.Sprintf("# Set via environment variable:\nexport %s=\"${VAULT_SECRET}\"", strings.ToUpper(ctx.InputName)),
		},
	)
}

// IsSensitive reports whether an input name suggests a secret.
func IsSensitive(name string) bool {
	lower := strings.ToLower(name)
	for _, p := range sensitivePatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

var placeholderWords = []string{"default", "example", "test", "demo"}

// NoDefaultValues fails in production when a value looks like a placeholder.
type NoDefaultValues struct{}

func (NoDefaultValues) Name() string { return "no_default_values" }
func (NoDefaultValues) Description() string {
	return "Ensures no default or example values are used in production"
}

func (NoDefaultValues) Check(ctx *Context) Outcome {
	if !environment.IsProduction(ctx.Environment) {
		return Pass()
	}
	value, ok := ctx.Effective[ctx.InputName]
	if !ok {
		return Pass()
	}
	if !isPlaceholder(value) {
		return Pass()
	}
	return Fail(
		fmt.Sprintf("Input '%s' appears to have a placeholder value: '%s'", ctx.InputName, value),
		"Production environments require real values",
		&validate.Suggestion{Message: "Replace with actual production value"},
		"",
	)
}

func isPlaceholder(value string) bool {
	if value == "changeme" || value == "replaceme" {
		return true
	}
	lower := strings.ToLower(value)
	for _, w := range placeholderWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

var requiredProductionInputs = map[string]bool{
	"api_key":       true,
	"api_secret":    true,
	"api_token":     true,
	"database_url":  true,
	"db_url":        true,
	"db_connection": true,
	"rpc_url":       true,
	"rpc_endpoint":  true,
	"private_key":   true,
	"signing_key":   true,
}

// RequiredProductionInputs fails in production when a critical input is
// missing.
type RequiredProductionInputs struct{}

func (RequiredProductionInputs) Name() string { return "required_production_inputs" }
func (RequiredProductionInputs) Description() string {
	return "Ensures critical inputs are defined for production"
}

func (RequiredProductionInputs) Check(ctx *Context) Outcome {
	if !environment.IsProduction(ctx.Environment) {
		return Pass()
	}
	if !requiredProductionInputs[ctx.InputName] {
		return Pass()
	}
	if _, ok := ctx.Effective[ctx.InputName]; ok {
		return Pass()
	}
	return Fail(
		fmt.Sprintf("Required production input '%s' is not defined", ctx.InputName),
		"This input is critical for production deployments",
		&validate.Suggestion{
			Message: "Add this input to your production environment",
			Example: fmt.Sprintf("environments:\n  production:\n    %s: \"<secure-value>\"", ctx.InputName),
		},
		"",
	)
}
