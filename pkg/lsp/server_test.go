package lsp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/textproto"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ormasoftchile/rbdoctor/pkg/validate"
	"github.com/ormasoftchile/rbdoctor/pkg/workspace"
)

func frame(t *testing.T, msg any) string {
	t.Helper()
	data, err := json.Marshal(msg)
	require.NoError(t, err)
	return fmt.Sprintf("Content-Length: %d\r\n\r\n%s", len(data), data)
}

func readFrames(t *testing.T, out []byte) []Message {
	t.Helper()
	r := bufio.NewReader(bytes.NewReader(out))
	var msgs []Message
	for {
		header, err := textproto.NewReader(r).ReadMIMEHeader()
		if err == io.EOF {
			return msgs
		}
		require.NoError(t, err)
		n, err := strconv.Atoi(header.Get("Content-Length"))
		require.NoError(t, err)
		body := make([]byte, n)
		_, err = io.ReadFull(r, body)
		require.NoError(t, err)
		var m Message
		require.NoError(t, json.Unmarshal(body, &m))
		msgs = append(msgs, m)
	}
}

func runSession(t *testing.T, msgs ...any) []Message {
	t.Helper()
	var in bytes.Buffer
	for _, m := range msgs {
		in.WriteString(frame(t, m))
	}
	var out bytes.Buffer
	srv := New(&in, &out, workspace.New(nil), "test")
	require.NoError(t, srv.Run(context.Background()))
	return readFrames(t, out.Bytes())
}

func TestSession_PublishesDiagnostics(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.tx")
	src := "output \"o\" {\n  value = action.nope.tx_hash\n}\n"
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	uri := PathToURI(path)

	msgs := runSession(t,
		map[string]any{"jsonrpc": "2.0", "id": 1, "method": "initialize", "params": map[string]any{}},
		map[string]any{"jsonrpc": "2.0", "method": "initialized", "params": map[string]any{}},
		map[string]any{"jsonrpc": "2.0", "method": "textDocument/didOpen", "params": map[string]any{
			"textDocument": map[string]any{"uri": uri, "text": src, "version": 1},
		}},
		map[string]any{"jsonrpc": "2.0", "method": "textDocument/didChange", "params": map[string]any{
			"textDocument":   map[string]any{"uri": uri, "version": 2},
			"contentChanges": []map[string]any{{"text": "variable \"v\" {\n  value = 1\n}\n"}},
		}},
		map[string]any{"jsonrpc": "2.0", "id": 2, "method": "shutdown"},
		map[string]any{"jsonrpc": "2.0", "method": "exit"},
	)
	require.Len(t, msgs, 4)

	assert.JSONEq(t, "1", string(msgs[0].ID))
	assert.Contains(t, string(msgs[0].Result), `"change":1`)

	require.Equal(t, "textDocument/publishDiagnostics", msgs[1].Method)
	var open PublishDiagnosticsParams
	require.NoError(t, json.Unmarshal(msgs[1].Params, &open))
	assert.Equal(t, uri, open.URI)
	require.Len(t, open.Diagnostics, 1)
	d := open.Diagnostics[0]
	assert.Equal(t, SeverityError, d.Severity)
	assert.Equal(t, 1, d.Range.Start.Line)
	assert.Equal(t, 10, d.Range.Start.Character)
	assert.Contains(t, d.Message, "Reference to undefined action 'nope'")

	var changed PublishDiagnosticsParams
	require.NoError(t, json.Unmarshal(msgs[2].Params, &changed))
	assert.Empty(t, changed.Diagnostics)
	require.NotNil(t, changed.Version)
	assert.Equal(t, 2, *changed.Version)

	assert.JSONEq(t, "2", string(msgs[3].ID))
	assert.Nil(t, msgs[3].Error)
}

func TestSession_UnknownMethodAndBadJSON(t *testing.T) {
	var in bytes.Buffer
	in.WriteString("Content-Length: 5\r\n\r\n{bad}")
	in.WriteString(frame(t, map[string]any{"jsonrpc": "2.0", "id": 7, "method": "textDocument/rename"}))

	var out bytes.Buffer
	require.NoError(t, New(&in, &out, workspace.New(nil), "test").Run(context.Background()))

	msgs := readFrames(t, out.Bytes())
	require.Len(t, msgs, 2)
	assert.Equal(t, codeParseError, msgs[0].Error.Code)
	assert.Equal(t, codeMethodNotFound, msgs[1].Error.Code)
	assert.JSONEq(t, "7", string(msgs[1].ID))
}

func TestSession_HoverDefinitionCompletion(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.tx")
	src := "action \"send\" \"evm::send_eth\" {\n  recipient_address = \"0x0\"\n  amount = 1\n}\noutput \"o\" {\n  value = action.send.tx_hash\n}\n"
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	uri := PathToURI(path)
	at := func(line, char int) map[string]any {
		return map[string]any{
			"textDocument": map[string]any{"uri": uri},
			"position":     map[string]any{"line": line, "character": char},
		}
	}

	msgs := runSession(t,
		map[string]any{"jsonrpc": "2.0", "id": 1, "method": "initialize", "params": map[string]any{}},
		map[string]any{"jsonrpc": "2.0", "method": "textDocument/didOpen", "params": map[string]any{
			"textDocument": map[string]any{"uri": uri, "text": src, "version": 1},
		}},
		map[string]any{"jsonrpc": "2.0", "id": 2, "method": "textDocument/hover", "params": at(0, 17)},
		map[string]any{"jsonrpc": "2.0", "id": 3, "method": "textDocument/definition", "params": at(5, 12)},
		map[string]any{"jsonrpc": "2.0", "id": 4, "method": "textDocument/completion", "params": at(5, 17)},
		map[string]any{"jsonrpc": "2.0", "id": 5, "method": "textDocument/hover", "params": at(3, 0)},
	)
	byID := map[string]Message{}
	for _, m := range msgs {
		if m.ID != nil {
			byID[string(m.ID)] = m
		}
	}

	assert.Contains(t, string(byID["1"].Result), `"hoverProvider":true`)
	assert.Contains(t, string(byID["1"].Result), `"definitionProvider":true`)

	var hover Hover
	require.NoError(t, json.Unmarshal(byID["2"].Result, &hover))
	assert.Equal(t, "markdown", hover.Contents.Kind)
	assert.Contains(t, hover.Contents.Value, "# evm::send_eth")

	var loc Location
	require.NoError(t, json.Unmarshal(byID["3"].Result, &loc))
	assert.Equal(t, uri, loc.URI)
	assert.Equal(t, Position{Line: 0, Character: 0}, loc.Range.Start)
	assert.Equal(t, 3, loc.Range.End.Line)

	var items []CompletionItem
	require.NoError(t, json.Unmarshal(byID["4"].Result, &items))
	require.Len(t, items, 1)
	assert.Equal(t, CompletionItem{Label: "send", Kind: CompletionKindReference, Detail: "evm::send_eth"}, items[0])

	assert.Contains(t, []string{"", "null"}, string(byID["5"].Result))
	assert.Nil(t, byID["5"].Error)
}

func TestConvert_ZeroIndexed(t *testing.T) {
	res := validate.NewResult()
	res.AddError(validate.Diagnostic{Message: "located", Line: 3, Column: 5, DocumentationLink: "https://docs"})
	res.AddError(validate.Diagnostic{Message: "unlocated"})
	res.AddWarning(validate.Diagnostic{Message: "warn", Line: 1, Column: 1})

	diags := Convert(res)
	require.Len(t, diags, 3)
	assert.Equal(t, Position{Line: 2, Character: 4}, diags[0].Range.Start)
	assert.Equal(t, "https://docs", diags[0].CodeDescription.Href)
	assert.Equal(t, Position{}, diags[1].Range.Start)
	assert.Equal(t, SeverityWarning, diags[2].Severity)
	assert.Equal(t, Position{}, diags[2].Range.Start)
}

func TestURIRoundTrip(t *testing.T) {
	path := filepath.Join(string(filepath.Separator), "tmp", "my runbooks", "main.tx")
	assert.Equal(t, path, URIToPath(PathToURI(path)))
	assert.Equal(t, "relative.tx", URIToPath("relative.tx"))
}
