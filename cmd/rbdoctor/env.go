package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ormasoftchile/rbdoctor/pkg/environment"
	"github.com/ormasoftchile/rbdoctor/pkg/manifest"
	"github.com/ormasoftchile/rbdoctor/pkg/rules"
)

var (
	envManifest    string
	envInputs      []string
	envShowSecrets bool
)

// redacted replaces values of inputs whose names suggest secrets.
const redacted = "********"


var envCmd = &cobra.Command{
	Use:   "env [environment]",
	Short: "List environments or show the effective inputs of one",
	Long: `Without arguments, list the environments declared in txtx.yml.
With an environment name, print its effective inputs after layering
global, the environment and --input overrides, with the layer each
value comes from.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runEnv,
}

func init() {
	envCmd.Flags().StringVar(&envManifest, "manifest", "", "Path to txtx.yml (default: discovered from the working directory)")
	envCmd.Flags().StringArrayVar(&envInputs, "input", nil, "Override an input (key=value), repeatable")
	envCmd.Flags().BoolVar(&envShowSecrets, "show-secrets", false, "Print values of sensitive inputs instead of redacting them")
}

func runEnv(cmd *cobra.Command, args []string) error {
	m, err := loadManifest(envManifest, "")
	if err != nil {
		return err
	}
	if m == nil {
		return fmt.Errorf("no txtx.yml found")
	}
	out := cmd.OutOrStdout()
	if len(args) == 0 {
		for _, name := range environment.Names(m.EnvironmentMap()) {
			fmt.Fprintln(out, name)
		}
		return nil
	}

	name := args[0]
	if name != environment.Global && !m.HasEnvironment(name) {
		return fmt.Errorf("environment '%s' is not defined in %s", name, m.Path)
	}
	inputs, err := environment.ParseInputs(envInputs)
	if err != nil {
		return err
	}
	printEffective(out, m, name, inputs, envShowSecrets)
	return nil
}

// printEffective writes one "key = value  (layer)" line per effective input.
// Values of sensitive inputs are redacted unless showSecrets is set.
func printEffective(w io.Writer, m *manifest.Manifest, name string, inputs []environment.Input, showSecrets bool) {
	envs := m.EnvironmentMap()
	eff := environment.Resolve(envs, name, inputs)
	keys := eff.Keys()

	width := 0
	for _, k := range keys {
		if len(k) > width {
			width = len(k)
		}
	}
	for _, k := range keys {
		v := eff[k]
		if !showSecrets && rules.IsSensitive(k) {
			v = redacted
		}
		fmt.Fprintf(w, "%-*s = %s  (%s)\n", width, k, v, layerOf(envs, name, inputs, k))
	}
}

// layerOf names the layer that supplied key's effective value.
func layerOf(envs map[string]map[string]string, name string, inputs []environment.Input, key string) string {
	if environment.Has(inputs, key) {
		return "cli"
	}
	if name != environment.Global {
		if _, ok := envs[name][key]; ok {
			return name
		}
	}
	return environment.Global
}
