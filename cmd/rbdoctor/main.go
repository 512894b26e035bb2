// Package main provides the rbdoctor binary: a static checker for txtx
// runbooks with CLI, editor (LSP) and agent (MCP) front ends.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ormasoftchile/rbdoctor/pkg/analyzer"
	"github.com/ormasoftchile/rbdoctor/pkg/ctxlog"
	"github.com/ormasoftchile/rbdoctor/pkg/registry"
)

// Version is set at build time via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

// errCheckFailed is returned by check when diagnostics contain errors. The
// report has already been printed, so main only sets the exit status.
var errCheckFailed = errors.New("check failed")

func main() {
	// .env is optional; existing variables are never overridden.
	_ = godotenv.Load()

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		if !errors.Is(err, errCheckFailed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

var (
	logLevel     string
	logFormat    string
	registryPath string
)

var rootCmd = &cobra.Command{
	Use:           "rbdoctor",
	Short:         "Static checker for txtx runbooks",
	Long:          "rbdoctor validates txtx runbooks and their txtx.yml manifest without executing anything.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger := ctxlog.New(logLevel, logFormat, os.Stderr)
		cmd.SetContext(ctxlog.WithLogger(cmd.Context(), logger))
	},
}

// --- version ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "rbdoctor %s (build: %s)\n", version, commit)
	},
}

// newAnalyzer builds an analyzer over the built-in addons plus the
// --registry file, if any.
func newAnalyzer() (*analyzer.Analyzer, error) {
	reg := registry.Builtin()
	if registryPath != "" {
		if err := reg.LoadFile(registryPath); err != nil {
			return nil, fmt.Errorf("load registry: %w", err)
		}
	}
	return analyzer.New(reg), nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format: text or json")
	rootCmd.PersistentFlags().StringVar(&registryPath, "registry", "", "YAML file with additional addon specifications")

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(envCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(explainCmd)
	rootCmd.AddCommand(lspCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(versionCmd)
}
