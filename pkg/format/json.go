package format

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/ormasoftchile/rbdoctor/pkg/validate"
)

type jsonDiagnostic struct {
	File          string               `json:"file"`
	Line          int                  `json:"line"`
	Column        int                  `json:"column"`
	Level         string               `json:"level"`
	Message       string               `json:"message"`
	Context       string               `json:"context,omitempty"`
	Suggestion    *validate.Suggestion `json:"suggestion,omitempty"`
	Documentation string               `json:"documentation,omitempty"`
}

type jsonReport struct {
	Errors      []jsonDiagnostic      `json:"errors"`
	Warnings    []jsonDiagnostic      `json:"warnings"`
	Suggestions []validate.Suggestion `json:"suggestions"`
}

func toJSON(level string, diags []validate.Diagnostic) []jsonDiagnostic {
	out := make([]jsonDiagnostic, 0, len(diags))
	for _, d := range diags {
		out = append(out, jsonDiagnostic{
			File:          d.File,
			Line:          d.Line,
			Column:        d.Column,
			Level:         level,
			Message:       d.Message,
			Context:       d.Context,
			Suggestion:    d.Suggestion,
			Documentation: d.DocumentationLink,
		})
	}
	return out
}

// Report converts res to the JSON document shape. Unknown locations are 0.
func Report(res *validate.Result) any {
	suggestions := res.Suggestions
	if suggestions == nil {
		suggestions = []validate.Suggestion{}
	}
	return jsonReport{
		Errors:      toJSON("error", res.Errors),
		Warnings:    toJSON("warning", res.Warnings),
		Suggestions: suggestions,
	}
}

// RenderJSON writes {"errors":[...],"warnings":[...],"suggestions":[...]}.
func RenderJSON(w io.Writer, res *validate.Result) error {
	data, err := json.MarshalIndent(Report(res), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
