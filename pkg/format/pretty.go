package format

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/ormasoftchile/rbdoctor/pkg/validate"
)

// Palette matches the interactive browser.
var (
	colorGreen  = lipgloss.Color("42")
	colorRed    = lipgloss.Color("196")
	colorYellow = lipgloss.Color("214")
	colorBlue   = lipgloss.Color("39")
	colorDim    = lipgloss.Color("240")
)

// GlyphClean marks a run without findings.
const GlyphClean = "✓"

type prettyStyles struct {
	clean      lipgloss.Style
	header     lipgloss.Style
	rule       lipgloss.Style
	errorLabel lipgloss.Style
	errorText  lipgloss.Style
	warnLabel  lipgloss.Style
	label      lipgloss.Style
	location   lipgloss.Style
}

// newPrettyStyles binds styles to w so colors are dropped when w is not a
// terminal.
func newPrettyStyles(w io.Writer) prettyStyles {
	r := lipgloss.NewRenderer(w)
	return prettyStyles{
		clean:      r.NewStyle().Foreground(colorGreen).Bold(true),
		header:     r.NewStyle().Foreground(colorRed).Bold(true),
		rule:       r.NewStyle().Foreground(colorDim),
		errorLabel: r.NewStyle().Foreground(colorRed).Bold(true),
		errorText:  r.NewStyle().Foreground(colorRed),
		warnLabel:  r.NewStyle().Foreground(colorYellow).Bold(true),
		label:      r.NewStyle().Foreground(colorBlue).Bold(true),
		location:   r.NewStyle().Foreground(colorDim),
	}
}

// RenderPretty writes a human-readable report.
func RenderPretty(w io.Writer, res *validate.Result) error {
	st := newPrettyStyles(w)
	bw := bufio.NewWriter(w)

	total := len(res.Errors) + len(res.Warnings)
	if total == 0 {
		fmt.Fprintf(bw, "%s No issues found!\n", st.clean.Render(GlyphClean))
		return bw.Flush()
	}

	header := fmt.Sprintf("Found %d issue(s):", total)
	fmt.Fprintln(bw, st.header.Render(header))
	fmt.Fprintln(bw, st.rule.Render(strings.Repeat("─", runewidth.StringWidth(header))))
	fmt.Fprintln(bw)

	for i, d := range res.Errors {
		fmt.Fprintf(bw, "%s%s %s\n",
			st.location.Render(prettyLocation(d)),
			st.errorLabel.Render(fmt.Sprintf("error[%d]:", i+1)),
			st.errorText.Render(d.Message))
		if d.Context != "" {
			fmt.Fprintf(bw, "   %s\n", d.Context)
		}
		if d.Suggestion != nil {
			fmt.Fprintf(bw, "   %s %s\n", st.label.Render("Suggestion:"), d.Suggestion.Message)
		}
		if d.DocumentationLink != "" {
			fmt.Fprintf(bw, "   %s %s\n", st.label.Render("Documentation:"), d.DocumentationLink)
		}
		fmt.Fprintln(bw)
	}

	for _, d := range res.Warnings {
		fmt.Fprintf(bw, "%s%s %s\n",
			st.location.Render(prettyLocation(d)),
			st.warnLabel.Render("warning:"),
			d.Message)
		if d.Suggestion != nil {
			fmt.Fprintf(bw, "   %s %s\n", st.label.Render("Suggestion:"), d.Suggestion.Message)
		}
		fmt.Fprintln(bw)
	}

	if len(res.Suggestions) > 0 {
		fmt.Fprintln(bw, st.label.Render("Suggestions:"))
		for _, s := range res.Suggestions {
			fmt.Fprintf(bw, "  • %s\n", s.Message)
			if s.Example != "" {
				for _, line := range strings.Split(s.Example, "\n") {
					fmt.Fprintf(bw, "    %s\n", line)
				}
			}
		}
	}
	return bw.Flush()
}

func prettyLocation(d validate.Diagnostic) string {
	switch {
	case d.Line > 0 && d.Column > 0:
		return fmt.Sprintf("%s:%d:%d: ", d.File, d.Line, d.Column)
	case d.Line > 0:
		return fmt.Sprintf("%s:%d: ", d.File, d.Line)
	}
	return d.File + ": "
}
