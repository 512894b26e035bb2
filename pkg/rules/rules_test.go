package rules

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ormasoftchile/rbdoctor/pkg/environment"
	"github.com/ormasoftchile/rbdoctor/pkg/manifest"
	"github.com/ormasoftchile/rbdoctor/pkg/validate"
)

func ctxFor(name string, eff environment.Effective) *Context {
	return &Context{
		InputName: name,
		FullName:  "input." + name,
		Effective: eff,
		File:      "main.tx",
	}
}

func TestInputDefined(t *testing.T) {
	c := ctxFor("rpc_url", environment.Effective{"rpc_url": "http://x"})
	assert.Equal(t, KindPass, InputDefined{}.Check(c).Kind)

	c = ctxFor("missing", environment.Effective{})
	c.Environment = "staging"
	out := InputDefined{}.Check(c)
	require.Equal(t, KindError, out.Kind)
	assert.Equal(t, "Input 'input.missing' is not defined in environment 'staging' (including inherited values)", out.Message)
	assert.Equal(t, "Add 'missing' to your txtx.yml file (consider adding to 'global' if used across environments)", out.Context)
	require.NotNil(t, out.Suggestion)
	assert.Contains(t, out.Suggestion.Example, "staging:\n    missing:")
	assert.Contains(t, out.Suggestion.Example, "global")
	assert.Equal(t, "https://docs.txtx.sh/concepts/manifest#environments", out.DocumentationLink)
}

func TestInputDefined_GlobalHasNoInheritanceHint(t *testing.T) {
	out := InputDefined{}.Check(ctxFor("missing", environment.Effective{}))
	require.Equal(t, KindError, out.Kind)
	assert.Contains(t, out.Message, "environment 'global'")
	assert.Equal(t, "Add 'missing' to your txtx.yml file", out.Context)
	assert.NotContains(t, out.Suggestion.Example, "# Or add")
}

func TestInputNamingConvention(t *testing.T) {
	tests := []struct {
		name    string
		message string
		example string
	}{
		{"_hidden", "Input '_hidden' starts with underscore, which may indicate a private variable", "Rename to: hidden"},
		{"rpc-url", "Input 'rpc-url' contains hyphens, consider using underscores", "Rename to: rpc_url"},
		{"RpcUrl", "Input 'RpcUrl' should start with a lowercase letter", "Rename to: rpcurl"},
		{"rpc_url", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := InputNamingConvention{}.Check(ctxFor(tt.name, nil))
			if tt.message == "" {
				assert.Equal(t, KindPass, out.Kind)
				return
			}
			require.Equal(t, KindWarning, out.Kind)
			assert.Equal(t, tt.message, out.Message)
			assert.Equal(t, tt.example, out.Suggestion.Example)
		})
	}
}

func TestCliInputOverride(t *testing.T) {
	c := ctxFor("chain_id", environment.Effective{"chain_id": "5"})
	c.ManifestValues = environment.Effective{"chain_id": "1"}
	c.CLIInputs = []environment.Input{{Key: "chain_id", Value: "5"}}

	out := CliInputOverride{}.Check(c)
	require.Equal(t, KindWarning, out.Kind)
	assert.Equal(t, "Input 'chain_id' is defined in manifest but overridden by CLI argument", out.Message)

	// CLI-only values do not override anything.
	c.ManifestValues = environment.Effective{}
	assert.Equal(t, KindPass, CliInputOverride{}.Check(c).Kind)
}

func TestSensitiveData(t *testing.T) {
	out := SensitiveData{}.Check(ctxFor("deployer_key", nil))
	require.Equal(t, KindWarning, out.Kind)
	assert.Equal(t, "Input 'deployer_key' appears to contain sensitive information", out.Message)
	assert.Contains(t, out.Suggestion.Example, `export DEPLOYER_KEY="${VAULT_SECRET}"`)

	assert.Equal(t, KindPass, SensitiveData{}.Check(ctxFor("chain_id", nil)).Kind)
}

func TestNoDefaultValues_ProductionOnly(t *testing.T) {
	c := ctxFor("rpc_url", environment.Effective{"rpc_url": "https://example.com"})
	assert.Equal(t, KindPass, NoDefaultValues{}.Check(c).Kind)

	c.Environment = "production"
	out := NoDefaultValues{}.Check(c)
	require.Equal(t, KindError, out.Kind)
	assert.Equal(t, "Input 'rpc_url' appears to have a placeholder value: 'https://example.com'", out.Message)
	assert.Equal(t, "Production environments require real values", out.Context)

	c.Effective = environment.Effective{"rpc_url": "changeme"}
	assert.Equal(t, KindError, NoDefaultValues{}.Check(c).Kind)

	c.Effective = environment.Effective{"rpc_url": "https://mainnet.io"}
	assert.Equal(t, KindPass, NoDefaultValues{}.Check(c).Kind)
}

func TestRequiredProductionInputs(t *testing.T) {
	c := ctxFor("rpc_url", environment.Effective{})
	c.Environment = "prod"
	out := RequiredProductionInputs{}.Check(c)
	require.Equal(t, KindError, out.Kind)
	assert.Equal(t, "Required production input 'rpc_url' is not defined", out.Message)
	assert.Contains(t, out.Suggestion.Example, "production:\n    rpc_url:")

	c.InputName = "chain_id"
	assert.Equal(t, KindPass, RequiredProductionInputs{}.Check(c).Kind)
}

func TestStrictExtendsDefault(t *testing.T) {
	def := Default()
	strict := Strict()
	require.Len(t, strict, len(def)+2)
	for i, r := range def {
		assert.Equal(t, r.Name(), strict[i].Name())
	}
	assert.Equal(t, "no_default_values", strict[len(def)].Name())
	assert.Equal(t, "required_production_inputs", strict[len(def)+1].Name())
}

func TestPipelineRun_AllOutcomesRecorded(t *testing.T) {
	refs := []validate.LocatedInputRef{
		{Name: "input.api_key", Line: 3, Column: 9},
		{Name: "env.chain_id", Line: 4, Column: 12},
	}
	base := Context{
		File:      "main.tx",
		Effective: environment.Effective{"chain_id": "1"},
	}
	res := validate.NewResult()
	NewPipeline(Default()...).Run(refs, base, res)

	// api_key: undefined (error) and sensitive (warning); chain_id: clean.
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "Input 'input.api_key' is not defined in environment 'global' (including inherited values)", res.Errors[0].Message)
	assert.Equal(t, 3, res.Errors[0].Line)
	assert.Equal(t, 9, res.Errors[0].Column)
	assert.Equal(t, "main.tx", res.Errors[0].File)

	require.Len(t, res.Warnings, 1)
	assert.Equal(t, "Input 'api_key' appears to contain sensitive information", res.Warnings[0].Message)
	assert.Len(t, res.Suggestions, 2)
}

func TestPipelineWithout(t *testing.T) {
	p := NewPipeline(Default()...).Without(map[string]bool{"sensitive_data": true})
	for _, r := range p.Rules() {
		assert.NotEqual(t, "sensitive_data", r.Name())
	}
	assert.Len(t, p.Rules(), len(Default())-1)
}

func TestCompileCustom(t *testing.T) {
	specs := []manifest.CustomRule{
		{
			Name:       "no_localhost_in_prod",
			When:       `environment == "production" && value contains "localhost"`,
			Severity:   "error",
			Message:    "Input '{name}' points at {value} in {environment}",
			Suggestion: "Use a public endpoint for {full_name}",
		},
		{Name: "broken", When: "value +", Message: "x"},
		{Name: "bad_severity", When: "true", Severity: "fatal", Message: "x"},
	}
	compiled, errs := CompileCustom(specs)
	require.Len(t, compiled, 1)
	require.Len(t, errs, 2)

	var ce *CompileError
	require.True(t, errors.As(errs[0], &ce))
	assert.Equal(t, "broken", ce.Rule)
	assert.True(t, strings.HasPrefix(errs[0].Error(), "Invalid custom rule 'broken':"))

	c := ctxFor("rpc_url", environment.Effective{"rpc_url": "http://localhost:8545"})
	c.Environment = "production"
	out := compiled[0].Check(c)
	require.Equal(t, KindError, out.Kind)
	assert.Equal(t, "Input 'rpc_url' points at http://localhost:8545 in production", out.Message)
	assert.Equal(t, "Use a public endpoint for input.rpc_url", out.Suggestion.Message)

	c.Environment = "staging"
	assert.Equal(t, KindPass, compiled[0].Check(c).Kind)
}

func TestCustomRule_Warning(t *testing.T) {
	compiled, errs := CompileCustom([]manifest.CustomRule{
		{Name: "cli_only", When: "cli && defined", Severity: "warning", Message: "{name} comes from the command line"},
	})
	require.Empty(t, errs)
	c := ctxFor("chain_id", environment.Effective{"chain_id": "5"})
	c.CLIInputs = []environment.Input{{Key: "chain_id", Value: "5"}}
	out := compiled[0].Check(c)
	require.Equal(t, KindWarning, out.Kind)
	assert.Equal(t, "chain_id comes from the command line", out.Message)
	assert.Nil(t, out.Suggestion)
}

func TestIsSensitive(t *testing.T) {
	for _, name := range []string{"api_key", "DB_PASSWORD", "auth_token", "private_pem"} {
		assert.True(t, IsSensitive(name), name)
	}
	for _, name := range []string{"chain_id", "rpc_url", "amount"} {
		assert.False(t, IsSensitive(name), name)
	}
}
