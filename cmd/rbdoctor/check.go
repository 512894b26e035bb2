package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ormasoftchile/rbdoctor/pkg/analyzer"
	"github.com/ormasoftchile/rbdoctor/pkg/ctxlog"
	"github.com/ormasoftchile/rbdoctor/pkg/environment"
	"github.com/ormasoftchile/rbdoctor/pkg/format"
	"github.com/ormasoftchile/rbdoctor/pkg/manifest"
	"github.com/ormasoftchile/rbdoctor/pkg/tui"
	"github.com/ormasoftchile/rbdoctor/pkg/validate"
)

var (
	checkManifest    string
	checkEnv         string
	checkInputs      []string
	checkFormat      string
	checkStrict      bool
	checkInteractive bool
)

var checkCmd = &cobra.Command{
	Use:   "check [runbook|file.tx|dir ...]",
	Short: "Check runbooks for errors",
	Long: `Check one or more runbooks. Arguments are runbook names declared in
txtx.yml, .tx files, or multi-file runbook directories. With no arguments
every runbook of the manifest is checked.

Exit status is 1 when any error is found; warnings never fail a run.`,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().StringVar(&checkManifest, "manifest", "", "Path to txtx.yml (default: discovered from the working directory)")
	checkCmd.Flags().StringVarP(&checkEnv, "env", "e", "", "Environment used to resolve inputs")
	checkCmd.Flags().StringArrayVar(&checkInputs, "input", nil, "Override an input (key=value), repeatable")
	checkCmd.Flags().StringVarP(&checkFormat, "format", "f", "auto", "Output format: auto, pretty, json, quickfix")
	checkCmd.Flags().BoolVar(&checkStrict, "strict", false, "Enable the strict rule set")
	checkCmd.Flags().BoolVarP(&checkInteractive, "interactive", "i", false, "Browse diagnostics in an interactive view")
}

// checkOptions carries the flag values of one check invocation.
type checkOptions struct {
	// Dir is where manifest discovery starts; empty means the working
	// directory.
	Dir      string
	Manifest string
	Env      string
	Inputs   []string
	Strict   bool
}

func runCheck(cmd *cobra.Command, args []string) error {
	f, err := format.Parse(checkFormat)
	if err != nil {
		return err
	}

	a, err := newAnalyzer()
	if err != nil {
		return err
	}
	res, err := check(cmd.Context(), a, checkOptions{
		Manifest: checkManifest,
		Env:      checkEnv,
		Inputs:   checkInputs,
		Strict:   checkStrict,
	}, args)
	if err != nil {
		return err
	}

	if checkInteractive {
		if err := tui.Run(checkTitle(args), res); err != nil {
			return err
		}
	} else {
		out := cmd.OutOrStdout()
		f = format.Resolve(f, os.Getenv, format.IsTerminal(os.Stdout))
		if err := format.Render(out, f, res); err != nil {
			return fmt.Errorf("render report: %w", err)
		}
	}

	if format.ExitCode(res) != 0 {
		return errCheckFailed
	}
	return nil
}

// check resolves targets and analyzes each one; results are merged in
// target order.
func check(ctx context.Context, a *analyzer.Analyzer, opts checkOptions, args []string) (*validate.Result, error) {
	log := ctxlog.FromContext(ctx)

	m, err := loadManifest(opts.Manifest, opts.Dir)
	if err != nil {
		return nil, err
	}
	if opts.Env != "" {
		if m == nil {
			return nil, fmt.Errorf("--env %s requires a txtx.yml manifest", opts.Env)
		}
		if !m.HasEnvironment(opts.Env) {
			return nil, fmt.Errorf("environment '%s' is not defined in %s (available: %s)",
				opts.Env, m.Path, strings.Join(environment.Names(m.EnvironmentMap()), ", "))
		}
	}
	inputs, err := environment.ParseInputs(opts.Inputs)
	if err != nil {
		return nil, err
	}

	targets, err := analyzer.Targets(m, args)
	if err != nil {
		return nil, err
	}

	a.Strict = a.Strict || opts.Strict
	res := validate.NewResult()
	for _, t := range targets {
		log.Info("checking runbook", "name", t.Name, "path", t.Path)
		r, err := a.AnalyzePath(ctx, t.Path, analyzer.Request{
			Manifest:    m,
			Environment: opts.Env,
			CLIInputs:   inputs,
		})
		if err != nil {
			return nil, fmt.Errorf("runbook %s: %w", t.Name, err)
		}
		res.Merge(r)
	}
	return res, nil
}

// loadManifest loads path, or discovers the nearest manifest from the
// directory dir (default ".") when path is empty. A missing manifest is not
// an error.
func loadManifest(path, dir string) (*manifest.Manifest, error) {
	if path != "" {
		m, err := manifest.LoadFile(path)
		if err != nil {
			return nil, fmt.Errorf("load manifest: %w", err)
		}
		return m, nil
	}
	if dir == "" {
		dir = "."
	}
	m, err := manifest.Discover(dir)
	if err != nil {
		return nil, fmt.Errorf("discover manifest: %w", err)
	}
	return m, nil
}

func checkTitle(args []string) string {
	switch len(args) {
	case 0:
		return "rbdoctor"
	case 1:
		return "rbdoctor: " + filepath.Base(args[0])
	}
	return fmt.Sprintf("rbdoctor: %d runbooks", len(args))
}
