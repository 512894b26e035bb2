package validate

import (
	"fmt"
	"slices"
	"strings"
)

// Suggestion is an actionable hint, optionally with a ready-to-paste example.
type Suggestion struct {
	Message string `json:"message"`
	Example string `json:"example,omitempty"`
}

// Diagnostic is one finding. Severity is implied by the Result list holding
// it. Line and Column are 1-based; zero means unknown.
type Diagnostic struct {
	Message           string      `json:"message"`
	File              string      `json:"file"`
	Line              int         `json:"line,omitempty"`
	Column            int         `json:"column,omitempty"`
	Context           string      `json:"context,omitempty"`
	Suggestion        *Suggestion `json:"suggestion,omitempty"`
	DocumentationLink string      `json:"documentation,omitempty"`
}

func (d Diagnostic) String() string {
	var b strings.Builder
	b.WriteString(d.File)
	if d.Line > 0 {
		fmt.Fprintf(&b, ":%d", d.Line)
		if d.Column > 0 {
			fmt.Fprintf(&b, ":%d", d.Column)
		}
	}
	b.WriteString(": ")
	b.WriteString(d.Message)
	return b.String()
}

// Result accumulates diagnostics of one analysis run. It only grows.
type Result struct {
	Errors      []Diagnostic `json:"errors"`
	Warnings    []Diagnostic `json:"warnings"`
	Suggestions []Suggestion `json:"suggestions"`
}

// NewResult returns an empty result with non-nil lists.
func NewResult() *Result {
	return &Result{
		Errors:      []Diagnostic{},
		Warnings:    []Diagnostic{},
		Suggestions: []Suggestion{},
	}
}

// HasErrors reports whether any error was recorded.
func (r *Result) HasErrors() bool { return len(r.Errors) > 0 }

// AddError appends an error.
func (r *Result) AddError(d Diagnostic) { r.Errors = append(r.Errors, d) }

// AddWarning appends a warning.
func (r *Result) AddWarning(d Diagnostic) { r.Warnings = append(r.Warnings, d) }

// AddSuggestion appends a suggestion.
func (r *Result) AddSuggestion(s Suggestion) { r.Suggestions = append(r.Suggestions, s) }

// Merge appends all of other's diagnostics after r's. Suggestions are
// run-level advice, so one already present in r is not repeated.
func (r *Result) Merge(other *Result) {
	if other == nil {
		return
	}
	r.Errors = append(r.Errors, other.Errors...)
	r.Warnings = append(r.Warnings, other.Warnings...)
	for _, s := range other.Suggestions {
		if !slices.Contains(r.Suggestions, s) {
			r.Suggestions = append(r.Suggestions, s)
		}
	}
}

// LocatedInputRef is one textual occurrence of an input.* or env.* reference.
type LocatedInputRef struct {
	Name   string `json:"name"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

// Namespace returns the first path segment ("input" or "env").
func (r LocatedInputRef) Namespace() string {
	ns, _, _ := strings.Cut(r.Name, ".")
	return ns
}

// Bare returns the input key: the segment after the namespace. Further
// segments are field accesses on the input value.
func (r LocatedInputRef) Bare() string {
	_, rest, ok := strings.Cut(r.Name, ".")
	if !ok {
		return r.Name
	}
	key, _, _ := strings.Cut(rest, ".")
	return key
}
