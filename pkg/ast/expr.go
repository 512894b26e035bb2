package ast

import (
	"strconv"
	"strings"
)

// Expression is the closed set of value expressions: String, Number, Bool,
// Reference, Array, Object and FunctionCall. Dispatch with a type switch.
type Expression interface {
	// Pos returns the expression's source span, or nil when unknown.
	Pos() *Span
	isExpression()
}

// String is a string literal.
type String struct {
	Value string
	Span  *Span
}

// Number is a numeric literal kept in its source text form.
type Number struct {
	Value string
	Span  *Span
}

// Bool is a boolean literal.
type Bool struct {
	Value bool
	Span  *Span
}

// Reference is a dotted traversal such as action.deploy.contract_address.
// Path segments are never empty.
type Reference struct {
	Path []string
	Span *Span
}

// Array is a list literal.
type Array struct {
	Items []Expression
	Span  *Span
}

// ObjectEntry is one key/value pair of an object literal.
type ObjectEntry struct {
	Key   string
	Value Expression
}

// Object is an object literal with entries in source order.
type Object struct {
	Entries []ObjectEntry
	Span    *Span
}

// FunctionCall is a call such as `evm::address(input.x)`. Operators and
// templates that are not plain literals are also lowered to calls so their
// operands stay visible to traversal.
type FunctionCall struct {
	Name string
	Args []Expression
	Span *Span
}

func (e *String) Pos() *Span       { return e.Span }
func (e *Number) Pos() *Span       { return e.Span }
func (e *Bool) Pos() *Span         { return e.Span }
func (e *Reference) Pos() *Span    { return e.Span }
func (e *Array) Pos() *Span        { return e.Span }
func (e *Object) Pos() *Span       { return e.Span }
func (e *FunctionCall) Pos() *Span { return e.Span }

func (*String) isExpression()       {}
func (*Number) isExpression()       {}
func (*Bool) isExpression()         {}
func (*Reference) isExpression()    {}
func (*Array) isExpression()        {}
func (*Object) isExpression()       {}
func (*FunctionCall) isExpression() {}

// Root returns the first path segment.
func (r *Reference) Root() string {
	if len(r.Path) == 0 {
		return ""
	}
	return r.Path[0]
}

// Segment returns the i-th path segment, or "" when out of range.
func (r *Reference) Segment(i int) string {
	if i < 0 || i >= len(r.Path) {
		return ""
	}
	return r.Path[i]
}

// Dotted joins the path with ".".
func (r *Reference) Dotted() string {
	return strings.Join(r.Path, ".")
}

// Walk visits expr and its sub-expressions depth-first, parents first.
// Returning false from fn stops descent into that node's children.
func Walk(expr Expression, fn func(Expression) bool) {
	if expr == nil {
		return
	}
	if !fn(expr) {
		return
	}
	switch e := expr.(type) {
	case *Array:
		for _, item := range e.Items {
			Walk(item, fn)
		}
	case *Object:
		for _, entry := range e.Entries {
			Walk(entry.Value, fn)
		}
	case *FunctionCall:
		for _, arg := range e.Args {
			Walk(arg, fn)
		}
	case *String, *Number, *Bool, *Reference:
	}
}

// References returns every Reference reachable from expr in traversal order.
func References(expr Expression) []*Reference {
	var refs []*Reference
	Walk(expr, func(e Expression) bool {
		if r, ok := e.(*Reference); ok {
			refs = append(refs, r)
		}
		return true
	})
	return refs
}

// Text renders an expression in DSL-like form for hover text. It is not a
// round-trippable printer.
func Text(expr Expression) string {
	switch e := expr.(type) {
	case nil:
		return ""
	case *String:
		return e.Value
	case *Number:
		return e.Value
	case *Bool:
		return strconv.FormatBool(e.Value)
	case *Reference:
		return e.Dotted()
	case *Array:
		parts := make([]string, len(e.Items))
		for i, item := range e.Items {
			parts[i] = Text(item)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case *Object:
		parts := make([]string, len(e.Entries))
		for i, entry := range e.Entries {
			parts[i] = entry.Key + " = " + Text(entry.Value)
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case *FunctionCall:
		parts := make([]string, len(e.Args))
		for i, arg := range e.Args {
			parts[i] = Text(arg)
		}
		return e.Name + "(" + strings.Join(parts, ", ") + ")"
	}
	return ""
}
