package format

import (
	"bufio"
	"fmt"
	"io"

	"github.com/ormasoftchile/rbdoctor/pkg/validate"
)

// RenderQuickfix writes one line per diagnostic in the form editors parse:
//
//	file:line:col: error: message (see: link)
//	file:line:col: warning: message (hint: suggestion)
func RenderQuickfix(w io.Writer, res *validate.Result) error {
	bw := bufio.NewWriter(w)
	for _, d := range res.Errors {
		fmt.Fprintf(bw, "%serror: %s", quickfixLocation(d), d.Message)
		if d.DocumentationLink != "" {
			fmt.Fprintf(bw, " (see: %s)", d.DocumentationLink)
		}
		bw.WriteByte('\n')
	}
	for _, d := range res.Warnings {
		fmt.Fprintf(bw, "%swarning: %s", quickfixLocation(d), d.Message)
		if d.Suggestion != nil {
			fmt.Fprintf(bw, " (hint: %s)", d.Suggestion.Message)
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// quickfixLocation defaults unknown locations to line 1 so editors can
// still jump to the file.
func quickfixLocation(d validate.Diagnostic) string {
	switch {
	case d.Line > 0 && d.Column > 0:
		return fmt.Sprintf("%s:%d:%d: ", d.File, d.Line, d.Column)
	case d.Line > 0:
		return fmt.Sprintf("%s:%d: ", d.File, d.Line)
	}
	return d.File + ":1: "
}
