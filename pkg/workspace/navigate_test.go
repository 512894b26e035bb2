package workspace

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ormasoftchile/rbdoctor/pkg/environment"
)

const navTx = `variable "chain" {
  value = input.chain_id
}

action "send" "evm::send_eth" {
  recipient_address = "0x0"
  amount = 1
}

output "hash" {
  value = action.send.tx_hash
}

variable "rpc" {
  value = input.rpc_url
}

variable "key" {
  value = input.private_key
}
`

func openNav(t *testing.T, content string) (*State, string) {
	t.Helper()
	dir := writeWorkspace(t)
	s := New(nil)
	path := filepath.Join(dir, "deploy.tx")
	s.Open(path, content, 1)
	return s, path
}

func labels(items []Completion) []string {
	out := make([]string, len(items))
	for i, c := range items {
		out[i] = c.Label
	}
	return out
}

func TestHover_InputFollowsSelectedEnvironment(t *testing.T) {
	s, path := openNav(t, navTx)

	md, ok := s.Hover(path, 2, 13)
	require.True(t, ok)
	assert.Contains(t, md, "**Input**: `chain_id`")
	assert.Contains(t, md, "**Current value**: `1`")
	assert.Contains(t, md, "**Environment**: `global`")

	md, ok = s.Hover(path, 15, 13)
	require.True(t, ok)
	assert.Contains(t, md, "⚠️ **Not available** in environment `global`")
	assert.Contains(t, md, "**Available in:** devnet")

	s.SetEnvironment("devnet")
	md, _ = s.Hover(path, 15, 13)
	assert.Contains(t, md, "**Current value**: `http://localhost:8545`")
	md, _ = s.Hover(path, 2, 13)
	assert.Contains(t, md, "**Environment**: `devnet` *(inherited from global)*")
}

func TestHover_UndefinedInputShowsSnippet(t *testing.T) {
	s, path := openNav(t, navTx)
	md, ok := s.Hover(path, 19, 13)
	require.True(t, ok)
	assert.Contains(t, md, "⚠️ **Not defined** in any environment")
	assert.Contains(t, md, "    private_key: <value>")
}

func TestHover_SensitiveValueIsRedacted(t *testing.T) {
	s, path := openNav(t, navTx)
	s.SetCLIInputs([]environment.Input{{Key: "private_key", Value: "0xdead"}})

	md, ok := s.Hover(path, 19, 13)
	require.True(t, ok)
	assert.Contains(t, md, "**Current value**: `"+redacted+"`")
	assert.Contains(t, md, "**Source**: CLI input")
	assert.NotContains(t, md, "0xdead")
}

func TestHover_ActionTypeAndReference(t *testing.T) {
	s, path := openNav(t, navTx)

	md, ok := s.Hover(path, 5, 18)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(md, "# evm::send_eth"), md)

	md, ok = s.Hover(path, 11, 13)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(md, "**action** `send`"), md)
	assert.Contains(t, md, "# evm::send_eth")
	assert.Contains(t, md, "`tx_hash`")

	_, ok = s.Hover(path, 4, 1)
	assert.False(t, ok)
	_, ok = s.Hover(filepath.Join(filepath.Dir(path), "unopened.tx"), 1, 1)
	assert.False(t, ok)
}

func TestDefinition_BlockAndManifestKey(t *testing.T) {
	s, path := openNav(t, navTx)

	loc, ok := s.Definition(path, 11, 13)
	require.True(t, ok)
	assert.Equal(t, path, loc.Path)
	assert.Equal(t, 5, loc.Span.StartLine)
	assert.Equal(t, 8, loc.Span.EndLine)

	manifestPath := filepath.Join(filepath.Dir(path), "txtx.yml")
	loc, ok = s.Definition(path, 2, 13)
	require.True(t, ok)
	assert.Equal(t, manifestPath, loc.Path)
	assert.Equal(t, 9, loc.Span.StartLine)
	assert.Equal(t, 5, loc.Span.StartCol)

	// rpc_url only lives in devnet; it is still found from global.
	loc, ok = s.Definition(path, 15, 13)
	require.True(t, ok)
	assert.Equal(t, 11, loc.Span.StartLine)

	_, ok = s.Definition(path, 19, 13)
	assert.False(t, ok)
}

func TestDefinitionAndHover_AcrossMultiFileRunbook(t *testing.T) {
	dir := writeWorkspace(t)
	s := New(nil)
	b := filepath.Join(dir, "multi", "b.tx")
	content, err := os.ReadFile(b)
	require.NoError(t, err)
	s.Open(b, string(content), 1)

	loc, ok := s.Definition(b, 2, 13)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "multi", "a.tx"), loc.Path)
	assert.Equal(t, 1, loc.Span.StartLine)

	md, ok := s.Hover(b, 2, 13)
	require.True(t, ok)
	assert.Contains(t, md, "**variable** `x`")
	assert.Contains(t, md, "value = 1")
}

// withValue appends an output whose value is typed; it returns the content
// and the cursor position at the end of typed.
func withValue(typed string) (string, int, int) {
	prefix := "  value = " + typed
	return navTx + "\noutput \"o\" {\n" + prefix + "\n}\n", 23, len(prefix) + 1
}

func TestComplete_References(t *testing.T) {
	content, line, col := withValue("input.")
	s, path := openNav(t, content)
	items := s.Complete(path, line, col)
	assert.Equal(t, []string{"chain_id", "rpc_url"}, labels(items))
	assert.Equal(t, "1", items[0].Detail)
	assert.Equal(t, "not set in global", items[1].Detail)
	assert.Equal(t, CompletionVariable, items[0].Kind)

	for typed, want := range map[string][]string{
		"action.":      {"send"},
		"action.send.": {"tx_hash"},
		"variable.r":   {"rpc"},
		"output.":      {"hash", "o"},
	} {
		content, line, col := withValue(typed)
		s.Update(path, content, 2)
		assert.Equal(t, want, labels(s.Complete(path, line, col)), typed)
	}
}

func TestComplete_BlockHeaders(t *testing.T) {
	header := `action "x" "evm::send_`
	s, path := openNav(t, navTx+header)
	items := s.Complete(path, 21, len(header)+1)
	assert.Equal(t, []string{"evm::send_eth"}, labels(items))
	assert.Equal(t, CompletionFunction, items[0].Kind)

	addon := `addon "`
	s.Update(path, navTx+addon, 2)
	names := labels(s.Complete(path, 21, len(addon)+1))
	assert.Contains(t, names, "evm")
	assert.Contains(t, names, "bitcoin")

	assert.Empty(t, s.Complete(path, 1, 1))
}
