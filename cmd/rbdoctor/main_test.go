package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ormasoftchile/rbdoctor/pkg/analyzer"
	"github.com/ormasoftchile/rbdoctor/pkg/environment"
	"github.com/ormasoftchile/rbdoctor/pkg/format"
	"github.com/ormasoftchile/rbdoctor/pkg/manifest"
)

const testManifest = `name: sample
id: sample
runbooks:
  - name: deploy
    location: deploy.tx
environments:
  global:
    chain_id: 11155111
  devnet:
    rpc_url: http://localhost:8545
    deployer_key: "0xabc"
`

const testRunbook = `addon "evm" {
  chain_id = input.chain_id
  rpc_api_url = input.rpc_url
}

signer "deployer" "evm::secret_key" {
  secret_key = input.deployer_key
}

action "send" "evm::send_eth" {
  recipient_address = "0x0000000000000000000000000000000000000000"
  amount = 1
  signer = signer.deployer
}
`

// writeWorkspace creates a manifest and one runbook; returns the manifest path.
func writeWorkspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "txtx.yml"), []byte(testManifest), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "deploy.tx"), []byte(testRunbook), 0o644))
	return filepath.Join(dir, "txtx.yml")
}

func TestCheck_CleanEnvironment(t *testing.T) {
	mp := writeWorkspace(t)
	res, err := check(context.Background(), analyzer.New(nil), checkOptions{Manifest: mp, Env: "devnet"}, []string{"deploy"})
	require.NoError(t, err)
	assert.Empty(t, res.Errors)
	assert.Equal(t, 0, format.ExitCode(res))

	// deployer_key trips the sensitive-data heuristic.
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0].Message, "deployer_key")
}

func TestCheck_GlobalMissingInputs(t *testing.T) {
	mp := writeWorkspace(t)
	res, err := check(context.Background(), analyzer.New(nil), checkOptions{Manifest: mp}, nil)
	require.NoError(t, err)
	require.Len(t, res.Errors, 2)
	assert.Equal(t, "Input 'input.rpc_url' is not defined in environment 'global' (including inherited values)", res.Errors[0].Message)
	assert.Equal(t, 3, res.Errors[0].Line)
	assert.Equal(t, 1, format.ExitCode(res))

	var buf bytes.Buffer
	require.NoError(t, format.Render(&buf, format.JSON, res))
	var report struct {
		Errors []struct {
			File    string `json:"file"`
			Line    int    `json:"line"`
			Message string `json:"message"`
		} `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &report))
	require.Len(t, report.Errors, 2)
	assert.True(t, strings.HasSuffix(report.Errors[0].File, "deploy.tx"))
}

func TestCheck_CLIInputsOverride(t *testing.T) {
	mp := writeWorkspace(t)
	res, err := check(context.Background(), analyzer.New(nil), checkOptions{
		Manifest: mp,
		Inputs:   []string{"rpc_url=http://a", "deployer_key=0x1"},
	}, []string{"deploy"})
	require.NoError(t, err)
	assert.Empty(t, res.Errors)
	assert.Equal(t, "2 CLI inputs provided. CLI inputs take precedence over environment values.", res.Suggestions[0].Message)
}

func TestCheck_CLIInputsSuggestedOncePerRun(t *testing.T) {
	mp := writeWorkspace(t)
	other := filepath.Join(filepath.Dir(mp), "other.tx")
	require.NoError(t, os.WriteFile(other, []byte("variable \"v\" {\n  value = input.rpc_url\n}\n"), 0o644))

	res, err := check(context.Background(), analyzer.New(nil), checkOptions{
		Manifest: mp,
		Inputs:   []string{"rpc_url=http://a", "deployer_key=0x1"},
	}, []string{"deploy", other})
	require.NoError(t, err)
	assert.Empty(t, res.Errors)

	n := 0
	for _, s := range res.Suggestions {
		if strings.HasPrefix(s.Message, "2 CLI inputs provided.") {
			n++
		}
	}
	assert.Equal(t, 1, n, res.Suggestions)
}

func TestCheck_UnknownEnvironment(t *testing.T) {
	mp := writeWorkspace(t)
	_, err := check(context.Background(), analyzer.New(nil), checkOptions{Manifest: mp, Env: "staging"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "environment 'staging' is not defined")
	assert.Contains(t, err.Error(), "available: global, devnet")
}

func TestCheck_InvalidInput(t *testing.T) {
	mp := writeWorkspace(t)
	_, err := check(context.Background(), analyzer.New(nil), checkOptions{Manifest: mp, Inputs: []string{"novalue"}}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected key=value")
}

func TestCheck_UnknownRunbook(t *testing.T) {
	mp := writeWorkspace(t)
	_, err := check(context.Background(), analyzer.New(nil), checkOptions{Manifest: mp}, []string{"missing"})
	require.Error(t, err)
	assert.Equal(t, "runbook 'missing' not found in manifest", err.Error())
}

func TestCheck_FileWithoutManifestRunsValidatorOnly(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "deploy.tx")
	require.NoError(t, os.WriteFile(path, []byte(testRunbook), 0o644))

	res, err := check(context.Background(), analyzer.New(nil), checkOptions{Dir: dir}, []string{path})
	require.NoError(t, err)
	assert.Empty(t, res.Errors)
	assert.Empty(t, res.Warnings)
}

func TestPrintEffective_Layers(t *testing.T) {
	m, err := manifest.LoadFile(writeWorkspace(t))
	require.NoError(t, err)

	var buf bytes.Buffer
	printEffective(&buf, m, "devnet", []environment.Input{{Key: "rpc_url", Value: "http://cli"}}, false)
	want := "chain_id     = 11155111  (global)\n" +
		"deployer_key = ********  (devnet)\n" +
		"rpc_url      = http://cli  (cli)\n"
	assert.Equal(t, want, buf.String())

	buf.Reset()
	printEffective(&buf, m, "devnet", nil, true)
	assert.Contains(t, buf.String(), "deployer_key = 0xabc  (devnet)")
}

func TestCheckTitle(t *testing.T) {
	assert.Equal(t, "rbdoctor", checkTitle(nil))
	assert.Equal(t, "rbdoctor: deploy.tx", checkTitle([]string{"runbooks/deploy.tx"}))
	assert.Equal(t, "rbdoctor: 2 runbooks", checkTitle([]string{"a", "b"}))
}

func TestVersionCommand(t *testing.T) {
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs([]string{"version"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})
	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, "rbdoctor dev (build: unknown)\n", buf.String())
}

func TestExplainCommand_Raw(t *testing.T) {
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs([]string{"explain", "--raw", "evm::send_eth"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})
	require.NoError(t, rootCmd.Execute())
	assert.True(t, strings.HasPrefix(buf.String(), "# evm::send_eth"))
}

func TestSchemaExportCommand(t *testing.T) {
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs([]string{"schema", "export", "manifest"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})
	require.NoError(t, rootCmd.Execute())

	var schema map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &schema))
	assert.NotEmpty(t, schema)
}
