package registry

import (
	"fmt"
	"strings"
)

// Explain renders the documentation of an action type ("ns::op") or of a
// whole namespace ("ns") as Markdown.
func (r *Registry) Explain(target string) (string, error) {
	ns, op, hasOp := strings.Cut(target, "::")
	a, ok := r.byNS[ns]
	if !ok {
		return "", fmt.Errorf("unknown addon namespace '%s' (available: %s)", ns, strings.Join(r.Namespaces(), ", "))
	}

	var b strings.Builder
	if !hasOp {
		fmt.Fprintf(&b, "# %s\n\n", ns)
		if a.Documentation != "" {
			fmt.Fprintf(&b, "%s\n\n", a.Documentation)
		}
		b.WriteString("| action | description |\n|---|---|\n")
		for _, o := range a.Operations {
			fmt.Fprintf(&b, "| `%s::%s` | %s |\n", ns, o.Matcher, o.Documentation)
		}
		fmt.Fprintf(&b, "\nDocumentation: %s\n", r.ActionsLink(ns))
		return b.String(), nil
	}

	spec, ok := r.Lookup(ns, op)
	if !ok {
		return "", fmt.Errorf("unknown action '%s::%s'", ns, op)
	}
	fmt.Fprintf(&b, "# %s::%s\n\n", ns, spec.Matcher)
	if spec.Documentation != "" {
		fmt.Fprintf(&b, "%s\n\n", spec.Documentation)
	}
	writeFields(&b, "Inputs", spec.Inputs, true)
	writeFields(&b, "Outputs", spec.Outputs, false)
	if link := r.DocLink(ns, spec.Matcher); link != "" {
		fmt.Fprintf(&b, "Documentation: %s\n", link)
	}
	return b.String(), nil
}

func writeFields(b *strings.Builder, title string, fields []FieldSpec, showOptional bool) {
	fmt.Fprintf(b, "## %s\n\n", title)
	if len(fields) == 0 {
		b.WriteString("_none_\n\n")
		return
	}
	for _, f := range fields {
		fmt.Fprintf(b, "- `%s`", f.Name)
		if showOptional && f.Optional {
			b.WriteString(" (optional)")
		}
		if f.Documentation != "" {
			fmt.Fprintf(b, ": %s", f.Documentation)
		}
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
}
