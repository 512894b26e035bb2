package main

import (
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/ormasoftchile/rbdoctor/pkg/ctxlog"
	"github.com/ormasoftchile/rbdoctor/pkg/environment"
	"github.com/ormasoftchile/rbdoctor/pkg/lsp"
	"github.com/ormasoftchile/rbdoctor/pkg/mcp"
	"github.com/ormasoftchile/rbdoctor/pkg/workspace"
)

var (
	lspEnv    string
	lspInputs []string
)

// --- lsp ---

var lspCmd = &cobra.Command{
	Use:   "lsp",
	Short: "Start the language server (stdio)",
	Long: `Start a Language Server Protocol server on stdin/stdout.
Diagnostics are recomputed and republished on every document change.
Messages use Content-Length framed JSON-RPC 2.0; logs go to stderr.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newAnalyzer()
		if err != nil {
			return err
		}
		inputs, err := environment.ParseInputs(lspInputs)
		if err != nil {
			return err
		}
		state := workspace.New(a)
		state.SetEnvironment(lspEnv)
		state.SetCLIInputs(inputs)

		ctxlog.FromContext(cmd.Context()).Info("language server starting", "version", version, "environment", lspEnv)
		return lsp.New(os.Stdin, os.Stdout, state, version).Run(cmd.Context())
	},
}

// --- mcp ---

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server for AI agents (stdio)",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newAnalyzer()
		if err != nil {
			return err
		}
		if err := server.ServeStdio(mcp.NewServer(version, a)); err != nil {
			return fmt.Errorf("mcp server: %w", err)
		}
		return nil
	},
}

func init() {
	lspCmd.Flags().StringVarP(&lspEnv, "env", "e", "", "Initial environment used to resolve inputs")
	lspCmd.Flags().StringArrayVar(&lspInputs, "input", nil, "Override an input (key=value), repeatable")
}
