package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ormasoftchile/rbdoctor/pkg/analyzer"
	"github.com/ormasoftchile/rbdoctor/pkg/environment"
	"github.com/ormasoftchile/rbdoctor/pkg/format"
	"github.com/ormasoftchile/rbdoctor/pkg/manifest"
	"github.com/ormasoftchile/rbdoctor/pkg/registry"
)

// Handlers implements the MCP tools over one analyzer.
type Handlers struct {
	analyzer *analyzer.Analyzer
}

// NewHandlers creates handlers. A nil analyzer uses the built-in registry.
func NewHandlers(a *analyzer.Analyzer) *Handlers {
	if a == nil {
		a = analyzer.New(nil)
	}
	return &Handlers{analyzer: a}
}

// HandleCheck implements the rbdoctor/check tool.
func (h *Handlers) HandleCheck(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	path, _ := args["path"].(string)
	if path == "" {
		return errorResult("path argument is required"), nil
	}
	env, _ := args["environment"].(string)

	var inputs []environment.Input
	if raw, ok := args["inputs"].(map[string]any); ok {
		keys := make([]string, 0, len(raw))
		for k := range raw {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			inputs = append(inputs, environment.Input{Key: k, Value: fmt.Sprint(raw[k])})
		}
	}

	var (
		m   *manifest.Manifest
		err error
	)
	if mp, _ := args["manifest"].(string); mp != "" {
		m, err = manifest.LoadFile(mp)
	} else {
		m, err = manifest.Discover(path)
	}
	if err != nil {
		return errorResult(fmt.Sprintf("load manifest: %s", err)), nil
	}
	if env != "" && m != nil && !m.HasEnvironment(env) {
		return errorResult(fmt.Sprintf("environment '%s' is not defined in %s", env, m.Path)), nil
	}

	res, err := h.analyzer.AnalyzePath(ctx, path, analyzer.Request{
		Manifest:    m,
		Environment: env,
		CLIInputs:   inputs,
	})
	if err != nil {
		return errorResult(err.Error()), nil
	}

	data, _ := json.MarshalIndent(format.Report(res), "", "  ")
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(string(data))},
		IsError: res.HasErrors(),
	}, nil
}

// HandleSchema implements the rbdoctor/schema tool.
func (h *Handlers) HandleSchema(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	schemaType, _ := args["type"].(string)

	var data []byte
	var err error

	switch schemaType {
	case "manifest":
		data, err = manifest.GenerateJSONSchema()
	case "registry":
		data, err = registry.GenerateJSONSchema()
	default:
		return errorResult(fmt.Sprintf("unknown schema type %q, use 'manifest' or 'registry'", schemaType)), nil
	}

	if err != nil {
		return errorResult(err.Error()), nil
	}
	return textResult(string(data)), nil
}

// HandleExplain implements the rbdoctor/explain tool.
func (h *Handlers) HandleExplain(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	action, _ := args["action"].(string)
	if action == "" {
		return errorResult("action argument is required"), nil
	}
	md, err := h.analyzer.Registry.Explain(action)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	return textResult(md), nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(text),
		},
	}
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(msg),
		},
		IsError: true,
	}
}
