// Package lsp serves runbook diagnostics to editors over the Language
// Server Protocol: JSON-RPC 2.0 on stdio with Content-Length framing.
package lsp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/textproto"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/ormasoftchile/rbdoctor/pkg/ctxlog"
	"github.com/ormasoftchile/rbdoctor/pkg/environment"
	"github.com/ormasoftchile/rbdoctor/pkg/validate"
	"github.com/ormasoftchile/rbdoctor/pkg/workspace"
)

// Source tags every published diagnostic.
const Source = "rbdoctor"

// Server is the language server.
type Server struct {
	reader *bufio.Reader
	writer io.Writer
	mu     sync.Mutex // serializes writes

	state   *workspace.State
	version string

	shutdown bool
}

// New creates a server over r/w backed by state.
func New(r io.Reader, w io.Writer, state *workspace.State, version string) *Server {
	return &Server{
		reader:  bufio.NewReader(r),
		writer:  w,
		state:   state,
		version: version,
	}
}

// Run reads and dispatches messages until exit, EOF or ctx is done.
func (s *Server) Run(ctx context.Context) error {
	log := ctxlog.FromContext(ctx)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		body, err := s.readMessage()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		var msg Message
		if err := json.Unmarshal(body, &msg); err != nil {
			s.sendError(nil, codeParseError, fmt.Sprintf("parse error: %v", err))
			continue
		}
		log.Debug("lsp message", "method", msg.Method)

		if msg.Method == "exit" {
			return nil
		}
		s.dispatch(ctx, &msg)
	}
}

// readMessage reads one framed message body.
func (s *Server) readMessage() ([]byte, error) {
	tp := textproto.NewReader(s.reader)
	header, err := tp.ReadMIMEHeader()
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	length, err := strconv.Atoi(strings.TrimSpace(header.Get("Content-Length")))
	if err != nil || length < 0 {
		return nil, fmt.Errorf("invalid Content-Length %q", header.Get("Content-Length"))
	}
	body := make([]byte, length)
	if _, err := io.ReadFull(s.reader, body); err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

// dispatch routes a message to the appropriate handler.
func (s *Server) dispatch(ctx context.Context, msg *Message) {
	if s.shutdown && msg.Method != "exit" {
		if msg.ID != nil {
			s.sendError(msg.ID, codeInvalidRequest, "server is shutting down")
		}
		return
	}

	switch msg.Method {
	case "initialize":
		s.handleInitialize(msg)
	case "initialized":
	case "textDocument/didOpen":
		s.handleDidOpen(ctx, msg)
	case "textDocument/didChange":
		s.handleDidChange(ctx, msg)
	case "textDocument/didClose":
		s.handleDidClose(msg)
	case "workspace/didChangeConfiguration":
		s.handleDidChangeConfiguration(ctx, msg)
	case "textDocument/hover":
		s.handleHover(msg)
	case "textDocument/definition":
		s.handleDefinition(msg)
	case "textDocument/completion":
		s.handleCompletion(msg)
	case "rbdoctor/setEnvironment":
		s.handleSetEnvironment(ctx, msg)
	case "rbdoctor/environments":
		s.handleEnvironments(msg)
	case "shutdown":
		s.shutdown = true
		s.sendResult(msg.ID, nil)
	default:
		if msg.ID != nil {
			s.sendError(msg.ID, codeMethodNotFound, fmt.Sprintf("unknown method: %s", msg.Method))
		}
	}
}

// ---------------------------------------------------------------------------
// Handlers
// ---------------------------------------------------------------------------

func (s *Server) handleInitialize(msg *Message) {
	s.sendResult(msg.ID, map[string]any{
		"capabilities": map[string]any{
			"textDocumentSync": map[string]any{
				"openClose": true,
				"change":    1, // full
			},
			"hoverProvider":      true,
			"definitionProvider": true,
			"completionProvider": map[string]any{
				"triggerCharacters": []string{".", "\"", ":"},
			},
		},
		"serverInfo": map[string]string{
			"name":    "rbdoctor",
			"version": s.version,
		},
	})
}

func (s *Server) handleDidOpen(ctx context.Context, msg *Message) {
	var p DidOpenParams
	if !s.decode(msg, &p) {
		return
	}
	path := URIToPath(p.TextDocument.URI)
	s.state.Open(path, p.TextDocument.Text, p.TextDocument.Version)
	s.publish(ctx, p.TextDocument.URI)
	if strings.HasSuffix(path, ".yml") || strings.HasSuffix(path, ".yaml") {
		s.publishAll(ctx)
	}
}

func (s *Server) handleDidChange(ctx context.Context, msg *Message) {
	var p DidChangeParams
	if !s.decode(msg, &p) {
		return
	}
	if len(p.ContentChanges) == 0 {
		return
	}
	// Full sync: the last change holds the whole document.
	text := p.ContentChanges[len(p.ContentChanges)-1].Text
	path := URIToPath(p.TextDocument.URI)
	s.state.Update(path, text, p.TextDocument.Version)

	if strings.HasSuffix(path, ".yml") || strings.HasSuffix(path, ".yaml") {
		s.publishAll(ctx)
		return
	}
	s.publish(ctx, p.TextDocument.URI)
}

func (s *Server) handleDidClose(msg *Message) {
	var p DidCloseParams
	if !s.decode(msg, &p) {
		return
	}
	s.state.Close(URIToPath(p.TextDocument.URI))
	s.sendNotification("textDocument/publishDiagnostics", PublishDiagnosticsParams{
		URI:         p.TextDocument.URI,
		Diagnostics: []Diagnostic{},
	})
}

func (s *Server) handleDidChangeConfiguration(ctx context.Context, msg *Message) {
	var p DidChangeConfigurationParams
	if !s.decode(msg, &p) {
		return
	}
	cfg := p.Settings.RBDoctor
	s.state.SetEnvironment(cfg.Environment)

	keys := make([]string, 0, len(cfg.Inputs))
	for k := range cfg.Inputs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	inputs := make([]environment.Input, 0, len(keys))
	for _, k := range keys {
		inputs = append(inputs, environment.Input{Key: k, Value: cfg.Inputs[k]})
	}
	s.state.SetCLIInputs(inputs)
	s.publishAll(ctx)
}

func (s *Server) handleSetEnvironment(ctx context.Context, msg *Message) {
	var p SetEnvironmentParams
	if !s.decode(msg, &p) {
		return
	}
	s.state.SetEnvironment(p.Environment)
	if msg.ID != nil {
		s.sendResult(msg.ID, map[string]string{"environment": p.Environment})
	}
	s.publishAll(ctx)
}

func (s *Server) handleEnvironments(msg *Message) {
	var p TextDocumentIdentifier
	if !s.decode(msg, &p) {
		return
	}
	envs := s.state.Environments(URIToPath(p.URI))
	if envs == nil {
		envs = []string{}
	}
	s.sendResult(msg.ID, map[string]any{
		"environments": envs,
		"current":      s.state.Environment(),
	})
}

func (s *Server) handleHover(msg *Message) {
	var p TextDocumentPositionParams
	if !s.decode(msg, &p) {
		return
	}
	md, ok := s.state.Hover(URIToPath(p.TextDocument.URI), p.Position.Line+1, p.Position.Character+1)
	if !ok {
		s.sendResult(msg.ID, nil)
		return
	}
	s.sendResult(msg.ID, Hover{Contents: MarkupContent{Kind: "markdown", Value: md}})
}

func (s *Server) handleDefinition(msg *Message) {
	var p TextDocumentPositionParams
	if !s.decode(msg, &p) {
		return
	}
	loc, ok := s.state.Definition(URIToPath(p.TextDocument.URI), p.Position.Line+1, p.Position.Character+1)
	if !ok {
		s.sendResult(msg.ID, nil)
		return
	}
	s.sendResult(msg.ID, Location{
		URI: PathToURI(loc.Path),
		Range: Range{
			Start: Position{Line: loc.Span.StartLine - 1, Character: loc.Span.StartCol - 1},
			End:   Position{Line: loc.Span.EndLine - 1, Character: loc.Span.EndCol - 1},
		},
	})
}

var completionKinds = map[workspace.CompletionKind]int{
	workspace.CompletionVariable:  CompletionKindVariable,
	workspace.CompletionModule:    CompletionKindModule,
	workspace.CompletionFunction:  CompletionKindFunction,
	workspace.CompletionReference: CompletionKindReference,
	workspace.CompletionField:     CompletionKindField,
}

func (s *Server) handleCompletion(msg *Message) {
	var p TextDocumentPositionParams
	if !s.decode(msg, &p) {
		return
	}
	items := s.state.Complete(URIToPath(p.TextDocument.URI), p.Position.Line+1, p.Position.Character+1)
	out := make([]CompletionItem, 0, len(items))
	for _, c := range items {
		out = append(out, CompletionItem{Label: c.Label, Kind: completionKinds[c.Kind], Detail: c.Detail})
	}
	s.sendResult(msg.ID, out)
}

func (s *Server) decode(msg *Message, v any) bool {
	if err := json.Unmarshal(msg.Params, v); err != nil {
		if msg.ID != nil {
			s.sendError(msg.ID, codeInvalidParams, fmt.Sprintf("invalid params: %v", err))
		}
		return false
	}
	return true
}

// ---------------------------------------------------------------------------
// Diagnostics
// ---------------------------------------------------------------------------

func (s *Server) publish(ctx context.Context, uri string) {
	path := URIToPath(uri)
	doc, ok := s.state.Document(path)
	if !ok {
		return
	}
	res := s.state.Diagnostics(ctx, path)
	version := doc.Version
	s.sendNotification("textDocument/publishDiagnostics", PublishDiagnosticsParams{
		URI:         uri,
		Version:     &version,
		Diagnostics: Convert(res),
	})
}

// publishAll republishes every open document.
func (s *Server) publishAll(ctx context.Context) {
	for _, path := range s.state.Documents() {
		s.publish(ctx, PathToURI(path))
	}
}

// Convert maps a result to editor diagnostics. Positions become 0-indexed;
// an unknown location lands on line 0.
func Convert(res *validate.Result) []Diagnostic {
	out := make([]Diagnostic, 0, len(res.Errors)+len(res.Warnings))
	for _, d := range res.Errors {
		out = append(out, toDiagnostic(d, SeverityError))
	}
	for _, d := range res.Warnings {
		out = append(out, toDiagnostic(d, SeverityWarning))
	}
	return out
}

func toDiagnostic(d validate.Diagnostic, sev DiagnosticSeverity) Diagnostic {
	line, col := 0, 0
	if d.Line > 0 {
		line = d.Line - 1
	}
	if d.Column > 0 {
		col = d.Column - 1
	}
	msg := d.Message
	if d.Context != "" {
		msg += "\n" + d.Context
	}
	if d.Suggestion != nil {
		msg += "\nSuggestion: " + d.Suggestion.Message
	}
	out := Diagnostic{
		Range: Range{
			Start: Position{Line: line, Character: col},
			End:   Position{Line: line, Character: col},
		},
		Severity: sev,
		Source:   Source,
		Message:  msg,
	}
	if d.DocumentationLink != "" {
		out.CodeDescription = &CodeDescription{Href: d.DocumentationLink}
	}
	return out
}

// ---------------------------------------------------------------------------
// Message sending
// ---------------------------------------------------------------------------

func (s *Server) sendResult(id json.RawMessage, result any) {
	data, _ := json.Marshal(result)
	s.send(&Message{JSONRPC: "2.0", ID: id, Result: data})
}

func (s *Server) sendError(id json.RawMessage, code int, message string) {
	if id == nil {
		id = json.RawMessage("null")
	}
	s.send(&Message{JSONRPC: "2.0", ID: id, Error: &RPCError{Code: code, Message: message}})
}

func (s *Server) sendNotification(method string, params any) {
	data, _ := json.Marshal(params)
	s.send(&Message{JSONRPC: "2.0", Method: method, Params: data})
}

func (s *Server) send(msg *Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, _ := json.Marshal(msg)
	fmt.Fprintf(s.writer, "Content-Length: %d\r\n\r\n%s", len(data), data)
}
