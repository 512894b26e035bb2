// Package mcp exposes the analyzer to agents as Model Context Protocol
// tools.
package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/ormasoftchile/rbdoctor/pkg/analyzer"
)

// NewServer creates an MCP server with the rbdoctor tools registered.
func NewServer(version string, a *analyzer.Analyzer) *server.MCPServer {
	h := NewHandlers(a)
	s := server.NewMCPServer(
		"rbdoctor",
		version,
		server.WithToolCapabilities(true),
	)

	s.AddTool(
		mcp.NewTool("rbdoctor/check",
			mcp.WithDescription("Statically check a txtx runbook file or runbook directory and return its diagnostics as JSON"),
			mcp.WithString("path", mcp.Required(), mcp.Description("Path to a .tx file or a multi-file runbook directory")),
			mcp.WithString("manifest", mcp.Description("Path to txtx.yml (discovered from the runbook location when omitted)")),
			mcp.WithString("environment", mcp.Description("Manifest environment used to resolve inputs")),
			mcp.WithObject("inputs", mcp.Description("Input overrides, applied on top of the environment")),
		),
		h.HandleCheck,
	)

	s.AddTool(
		mcp.NewTool("rbdoctor/schema",
			mcp.WithDescription("Export rbdoctor JSON Schema (manifest or registry)"),
			mcp.WithString("type", mcp.Required(), mcp.Description("Schema type: 'manifest' or 'registry'")),
		),
		h.HandleSchema,
	)

	s.AddTool(
		mcp.NewTool("rbdoctor/explain",
			mcp.WithDescription("Describe an addon action's inputs and outputs"),
			mcp.WithString("action", mcp.Required(), mcp.Description("Action type such as 'evm::send_eth', or a bare namespace")),
		),
		h.HandleExplain,
	)

	return s
}
