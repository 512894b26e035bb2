package format

import (
	"bytes"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ormasoftchile/rbdoctor/pkg/validate"
)

func fixture() *validate.Result {
	sensitive := &validate.Suggestion{
		Message: "Consider using environment variables or a secure secret manager",
		Example: "# Set via environment variable:\nexport DEPLOYER_KEY=\"${VAULT_SECRET}\"",
	}
	res := validate.NewResult()
	res.AddError(validate.Diagnostic{
		Message: "Reference to undefined action 'deploy'",
		File:    "main.tx",
		Line:    12,
		Column:  11,
		Context: "Make sure the action is defined in this runbook",
	})
	res.AddError(validate.Diagnostic{
		Message:           "Field 'from' does not exist on action 'send' (evm::send_eth). Available outputs: tx_hash",
		File:              "main.tx",
		Line:              20,
		Column:            11,
		DocumentationLink: "https://docs.txtx.sh/addons/evm/actions#send_eth",
	})
	res.AddError(validate.Diagnostic{
		Message: "Failed to parse runbook: unexpected token",
		File:    "other.tx",
	})
	res.AddWarning(validate.Diagnostic{
		Message:    "Input 'deployer_key' appears to contain sensitive information",
		File:       "main.tx",
		Line:       7,
		Column:     16,
		Suggestion: sensitive,
	})
	res.AddSuggestion(*sensitive)
	return res
}

func golden(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestRenderJSON_Golden(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderJSON(&buf, fixture()))
	golden(t).Assert(t, "report_json", buf.Bytes())
}

func TestRenderQuickfix_Golden(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderQuickfix(&buf, fixture()))
	golden(t).Assert(t, "report_quickfix", buf.Bytes())
}

func TestRenderPretty_Golden(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderPretty(&buf, fixture()))
	golden(t).Assert(t, "report_pretty", buf.Bytes())
}

func TestRenderPretty_Clean(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderPretty(&buf, validate.NewResult()))
	assert.Equal(t, "✓ No issues found!\n", buf.String())
}

func TestRenderJSON_EmptyListsAreArrays(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderJSON(&buf, &validate.Result{}))
	assert.JSONEq(t, `{"errors":[],"warnings":[],"suggestions":[]}`, buf.String())
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 1, ExitCode(fixture()))

	warningsOnly := validate.NewResult()
	warningsOnly.AddWarning(validate.Diagnostic{Message: "w"})
	assert.Equal(t, 0, ExitCode(warningsOnly))
	assert.Equal(t, 0, ExitCode(nil))
}

func TestParse(t *testing.T) {
	f, err := Parse("JSON")
	require.NoError(t, err)
	assert.Equal(t, JSON, f)

	f, err = Parse("")
	require.NoError(t, err)
	assert.Equal(t, Auto, f)

	_, err = Parse("xml")
	assert.Error(t, err)
}

func TestResolve(t *testing.T) {
	env := func(vals map[string]string) func(string) string {
		return func(k string) string { return vals[k] }
	}
	tests := []struct {
		name string
		f    Format
		env  map[string]string
		tty  bool
		want Format
	}{
		{"explicit wins", JSON, map[string]string{EnvVar: "quickfix"}, true, JSON},
		{"env var", Auto, map[string]string{EnvVar: "json"}, true, JSON},
		{"bad env var ignored", Auto, map[string]string{EnvVar: "xml"}, true, Pretty},
		{"ci", Auto, map[string]string{"CI": "true"}, true, Quickfix},
		{"piped", Auto, nil, false, Quickfix},
		{"terminal", Auto, nil, true, Pretty},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(tt.f, env(tt.env), tt.tty))
		})
	}
}
