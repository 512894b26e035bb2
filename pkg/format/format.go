// Package format renders analysis results for terminals, editors and
// machines.
package format

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/ormasoftchile/rbdoctor/pkg/validate"
)

// Format selects a renderer.
type Format string

const (
	Auto     Format = "auto"
	Pretty   Format = "pretty"
	JSON     Format = "json"
	Quickfix Format = "quickfix"
)

// EnvVar overrides auto-detection.
const EnvVar = "RBDOCTOR_FORMAT"

// Parse validates a --format value.
func Parse(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case "", Auto:
		return Auto, nil
	case Pretty, JSON, Quickfix:
		return f, nil
	}
	return "", fmt.Errorf("unknown format %q (want auto, pretty, json or quickfix)", s)
}

// Resolve turns Auto into a concrete format: RBDOCTOR_FORMAT when it names
// one, else quickfix when CI is set or stdout is not a terminal, else
// pretty.
func Resolve(f Format, getenv func(string) string, tty bool) Format {
	if f != Auto && f != "" {
		return f
	}
	if env, err := Parse(getenv(EnvVar)); err == nil && env != Auto {
		return env
	}
	if getenv("CI") != "" || !tty {
		return Quickfix
	}
	return Pretty
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Render writes res to w in format f. Auto renders as pretty.
func Render(w io.Writer, f Format, res *validate.Result) error {
	switch f {
	case JSON:
		return RenderJSON(w, res)
	case Quickfix:
		return RenderQuickfix(w, res)
	default:
		return RenderPretty(w, res)
	}
}

// ExitCode is 1 iff res has errors. Warnings never fail a run.
func ExitCode(res *validate.Result) int {
	if res != nil && res.HasErrors() {
		return 1
	}
	return 0
}
