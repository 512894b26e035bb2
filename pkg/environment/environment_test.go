package environment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_Precedence(t *testing.T) {
	envs := map[string]map[string]string{
		"global":  {"A": "1"},
		"staging": {"A": "2", "B": "3"},
	}

	got := Resolve(envs, "staging", []Input{{Key: "B", Value: "4"}})
	assert.Equal(t, Effective{"A": "2", "B": "4"}, got)

	got = Resolve(envs, "", nil)
	assert.Equal(t, Effective{"A": "1"}, got)
}

func TestResolve_GlobalRequestedIsBaselineOnly(t *testing.T) {
	envs := map[string]map[string]string{"global": {"A": "1"}}
	assert.Equal(t, Effective{"A": "1"}, Resolve(envs, "global", nil))
}

func TestResolve_UnknownEnvironmentKeepsGlobal(t *testing.T) {
	envs := map[string]map[string]string{"global": {"A": "1"}}
	assert.Equal(t, Effective{"A": "1"}, Resolve(envs, "missing", nil))
}

func TestResolve_LastCLIOccurrenceWins(t *testing.T) {
	got := Resolve(nil, "", []Input{{"k", "first"}, {"k", "second"}})
	assert.Equal(t, "second", got["k"])
}

func TestResolve_PureAndIdempotent(t *testing.T) {
	envs := map[string]map[string]string{
		"global": {"A": "1"},
		"prod":   {"A": "2"},
	}
	cli := []Input{{"C", "3"}}

	first := Resolve(envs, "prod", cli)
	first["mutated"] = "x"
	second := Resolve(envs, "prod", cli)

	assert.Equal(t, Effective{"A": "2", "C": "3"}, second)
	assert.Equal(t, "1", envs["global"]["A"], "inputs must not be modified")
	assert.Len(t, envs["prod"], 1)
}

func TestManifestLayer(t *testing.T) {
	envs := map[string]map[string]string{"global": {"A": "1"}, "dev": {"B": "2"}}
	assert.Equal(t, Effective{"A": "1", "B": "2"}, ManifestLayer(envs, "dev"))
}

func TestParseInputs(t *testing.T) {
	in, err := ParseInputs([]string{"a=1", "url=http://x?y=z", "empty="})
	require.NoError(t, err)
	assert.Equal(t, []Input{{"a", "1"}, {"url", "http://x?y=z"}, {"empty", ""}}, in)

	_, err = ParseInputs([]string{"novalue"})
	assert.ErrorContains(t, err, "expected key=value")

	_, err = ParseInputs([]string{"=v"})
	assert.ErrorContains(t, err, "empty key")
}

func TestNames(t *testing.T) {
	envs := map[string]map[string]string{"prod": {}, "global": {}, "dev": {}}
	assert.Equal(t, []string{"global", "dev", "prod"}, Names(envs))
	assert.Equal(t, []string{"a"}, Names(map[string]map[string]string{"a": {}}))
}

func TestIsProduction(t *testing.T) {
	assert.True(t, IsProduction("production"))
	assert.True(t, IsProduction("prod"))
	assert.False(t, IsProduction("Production"))
	assert.False(t, IsProduction("staging"))
}

func TestHas(t *testing.T) {
	cli := []Input{{"a", "1"}}
	assert.True(t, Has(cli, "a"))
	assert.False(t, Has(cli, "b"))
}
