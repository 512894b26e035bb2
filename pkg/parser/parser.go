// Package parser turns runbook source text into the ast model.
//
// Runbooks use HCL native syntax; parsing is delegated to hclsyntax and the
// resulting syntax tree is lowered into ast.Block / ast.Expression values.
package parser

import (
	"fmt"
	"os"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"

	"github.com/ormasoftchile/rbdoctor/pkg/ast"
)

// Error is a parse failure with the location of the first offending token.
type Error struct {
	File    string `json:"file"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
	Summary string `json:"summary"`
	Detail  string `json:"detail,omitempty"`
}

func (e *Error) Error() string {
	msg := e.Message()
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d,%d: %s", e.File, e.Line, e.Column, msg)
	}
	return fmt.Sprintf("%s: %s", e.File, msg)
}

// Message is the error text without its location.
func (e *Error) Message() string {
	if e.Detail != "" {
		return e.Summary + "; " + e.Detail
	}
	return e.Summary
}

// ParseFile reads and parses a runbook file.
func ParseFile(path string) (*ast.Runbook, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read runbook: %w", err)
	}
	return Parse(path, data)
}

// Parse parses runbook source. Errors are returned as *Error.
func Parse(filename string, src []byte) (*ast.Runbook, error) {
	file, diags := hclsyntax.ParseConfig(src, filename, hcl.InitialPos)
	if diags.HasErrors() {
		return nil, fromDiagnostics(filename, diags)
	}

	body, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		return nil, &Error{File: filename, Summary: "unexpected body type"}
	}

	if len(body.Attributes) > 0 {
		attr := sortedAttributes(body.Attributes)[0]
		return nil, &Error{
			File:    filename,
			Line:    attr.SrcRange.Start.Line,
			Column:  attr.SrcRange.Start.Column,
			Summary: fmt.Sprintf("unexpected top-level attribute %q", attr.Name),
			Detail:  "runbooks contain only blocks at the top level",
		}
	}

	rb := &ast.Runbook{File: filename}
	for _, blk := range body.Blocks {
		kind, ok := ast.ParseKind(blk.Type)
		if !ok {
			return nil, &Error{
				File:    filename,
				Line:    blk.TypeRange.Start.Line,
				Column:  blk.TypeRange.Start.Column,
				Summary: fmt.Sprintf("unsupported block type %q", blk.Type),
			}
		}
		if len(blk.Labels) == 0 {
			return nil, &Error{
				File:    filename,
				Line:    blk.TypeRange.Start.Line,
				Column:  blk.TypeRange.Start.Column,
				Summary: fmt.Sprintf("%s block requires a name label", blk.Type),
			}
		}
		b := convertBlock(blk)
		b.Kind = kind
		rb.Blocks = append(rb.Blocks, b)
	}
	return rb, nil
}

func fromDiagnostics(filename string, diags hcl.Diagnostics) *Error {
	for _, d := range diags {
		if d.Severity != hcl.DiagError {
			continue
		}
		e := &Error{File: filename, Summary: d.Summary, Detail: d.Detail}
		if d.Subject != nil {
			e.Line = d.Subject.Start.Line
			e.Column = d.Subject.Start.Column
		}
		return e
	}
	return &Error{File: filename, Summary: diags.Error()}
}

func convertBlock(blk *hclsyntax.Block) *ast.Block {
	b := &ast.Block{
		Kind: ast.BlockKind(blk.Type),
		Span: span(hcl.RangeBetween(blk.TypeRange, blk.CloseBraceRange)),
	}
	if len(blk.Labels) > 0 {
		b.Name = blk.Labels[0]
	}
	if len(blk.Labels) > 1 {
		b.Label = blk.Labels[1]
		if len(blk.LabelRanges) > 1 {
			b.LabelSpan = span(blk.LabelRanges[1])
		}
	}

	for _, attr := range sortedAttributes(blk.Body.Attributes) {
		b.SetAttr(ast.Attribute{
			Key:   attr.Name,
			Value: convertExpr(attr.Expr),
			Span:  span(attr.SrcRange),
		})
	}
	for _, inner := range blk.Body.Blocks {
		b.Nested = append(b.Nested, convertBlock(inner))
	}
	return b
}

// sortedAttributes returns body attributes in source order; hclsyntax keeps
// them in a map.
func sortedAttributes(attrs hclsyntax.Attributes) []*hclsyntax.Attribute {
	out := make([]*hclsyntax.Attribute, 0, len(attrs))
	for _, a := range attrs {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].SrcRange.Start.Byte < out[j].SrcRange.Start.Byte
	})
	return out
}

func span(r hcl.Range) *ast.Span {
	return &ast.Span{
		StartLine: r.Start.Line,
		StartCol:  r.Start.Column,
		EndLine:   r.End.Line,
		EndCol:    r.End.Column,
	}
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

// convertExpr lowers an hclsyntax expression. Constructs without a direct
// ast counterpart (operators, conditionals, templates, for/splat) become
// FunctionCalls whose arguments keep every nested reference reachable.
func convertExpr(e hclsyntax.Expression) ast.Expression {
	if e == nil {
		return nil
	}
	sp := span(e.Range())

	switch x := e.(type) {
	case *hclsyntax.LiteralValueExpr:
		return literal(x.Val, sp)

	case *hclsyntax.TemplateExpr:
		if x.IsStringLiteral() {
			v, diags := x.Value(nil)
			if !diags.HasErrors() && v.IsKnown() && !v.IsNull() && v.Type() == cty.String {
				return &ast.String{Value: v.AsString(), Span: sp}
			}
		}
		return &ast.FunctionCall{Name: "template", Args: convertAll(x.Parts), Span: sp}

	case *hclsyntax.TemplateWrapExpr:
		return convertExpr(x.Wrapped)

	case *hclsyntax.TemplateJoinExpr:
		return &ast.FunctionCall{Name: "template", Args: []ast.Expression{convertExpr(x.Tuple)}, Span: sp}

	case *hclsyntax.ScopeTraversalExpr:
		return reference(x.Traversal, sp)

	case *hclsyntax.RelativeTraversalExpr:
		return &ast.FunctionCall{Name: "traverse", Args: []ast.Expression{convertExpr(x.Source)}, Span: sp}

	case *hclsyntax.IndexExpr:
		return &ast.FunctionCall{Name: "index", Args: []ast.Expression{convertExpr(x.Collection), convertExpr(x.Key)}, Span: sp}

	case *hclsyntax.ParenthesesExpr:
		return convertExpr(x.Expression)

	case *hclsyntax.TupleConsExpr:
		return &ast.Array{Items: convertAll(x.Exprs), Span: sp}

	case *hclsyntax.ObjectConsExpr:
		obj := &ast.Object{Span: sp}
		for _, item := range x.Items {
			obj.Entries = append(obj.Entries, ast.ObjectEntry{
				Key:   objectKey(item.KeyExpr),
				Value: convertExpr(item.ValueExpr),
			})
		}
		return obj

	case *hclsyntax.FunctionCallExpr:
		return &ast.FunctionCall{Name: x.Name, Args: convertAll(x.Args), Span: sp}

	case *hclsyntax.ConditionalExpr:
		return &ast.FunctionCall{
			Name: "conditional",
			Args: []ast.Expression{convertExpr(x.Condition), convertExpr(x.TrueResult), convertExpr(x.FalseResult)},
			Span: sp,
		}

	case *hclsyntax.BinaryOpExpr:
		return &ast.FunctionCall{Name: "operator", Args: []ast.Expression{convertExpr(x.LHS), convertExpr(x.RHS)}, Span: sp}

	case *hclsyntax.UnaryOpExpr:
		return &ast.FunctionCall{Name: "operator", Args: []ast.Expression{convertExpr(x.Val)}, Span: sp}
	}

	// for-expressions, splats and anything newer: keep the variables.
	call := &ast.FunctionCall{Name: "expr", Span: sp}
	for _, t := range e.Variables() {
		call.Args = append(call.Args, reference(t, span(t.SourceRange())))
	}
	return call
}

func convertAll(exprs []hclsyntax.Expression) []ast.Expression {
	out := make([]ast.Expression, 0, len(exprs))
	for _, e := range exprs {
		out = append(out, convertExpr(e))
	}
	return out
}

func literal(v cty.Value, sp *ast.Span) ast.Expression {
	if !v.IsKnown() || v.IsNull() {
		return &ast.FunctionCall{Name: "null", Span: sp}
	}
	switch v.Type() {
	case cty.String:
		return &ast.String{Value: v.AsString(), Span: sp}
	case cty.Number:
		return &ast.Number{Value: v.AsBigFloat().Text('f', -1), Span: sp}
	case cty.Bool:
		return &ast.Bool{Value: v.True(), Span: sp}
	}
	return &ast.String{Value: v.GoString(), Span: sp}
}

// reference converts a traversal into a dotted path. The path stops at the
// first step that is not an attribute or a string index.
func reference(t hcl.Traversal, sp *ast.Span) ast.Expression {
	path := make([]string, 0, len(t))
loop:
	for _, step := range t {
		switch s := step.(type) {
		case hcl.TraverseRoot:
			path = append(path, s.Name)
		case hcl.TraverseAttr:
			path = append(path, s.Name)
		case hcl.TraverseIndex:
			if !s.Key.IsKnown() || s.Key.IsNull() || s.Key.Type() != cty.String || s.Key.AsString() == "" {
				break loop
			}
			path = append(path, s.Key.AsString())
		default:
			break loop
		}
	}
	return &ast.Reference{Path: path, Span: sp}
}

func objectKey(e hclsyntax.Expression) string {
	if kw := hcl.ExprAsKeyword(e); kw != "" {
		return kw
	}
	v, diags := e.Value(nil)
	if !diags.HasErrors() && v.IsKnown() && !v.IsNull() && v.Type() == cty.String {
		return v.AsString()
	}
	return ""
}
