// Package multifile concatenates the files of a multi-file runbook into one
// buffer and maps diagnostic lines in that buffer back to their sources.
package multifile

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ormasoftchile/rbdoctor/pkg/validate"
)

// Source is one file of a runbook.
type Source struct {
	Path    string
	Content string
}

// Boundary is the line range [StartLine, EndLine) a file occupies in the
// combined buffer. Lines are 1-based.
type Boundary struct {
	File      string
	StartLine int
	EndLine   int
}

// Contains reports whether combined line falls inside b.
func (b Boundary) Contains(line int) bool {
	return line >= b.StartLine && line < b.EndLine
}

// Combined is the concatenation of several sources.
type Combined struct {
	Content    string
	Boundaries []Boundary
}

// Combine concatenates sources in order. Every source is terminated by a
// newline so the next one starts on a fresh line.
func Combine(sources []Source) *Combined {
	var b strings.Builder
	c := &Combined{}
	line := 1
	for _, src := range sources {
		content := src.Content
		if !strings.HasSuffix(content, "\n") {
			content += "\n"
		}
		b.WriteString(content)
		n := strings.Count(content, "\n")
		c.Boundaries = append(c.Boundaries, Boundary{File: src.Path, StartLine: line, EndLine: line + n})
		line += n
	}
	c.Content = b.String()
	return c
}

// MapLine translates a combined line to (file, local line).
func (c *Combined) MapLine(line int) (string, int, bool) {
	for _, b := range c.Boundaries {
		if b.Contains(line) {
			return b.File, line - b.StartLine + 1, true
		}
	}
	return "", 0, false
}

// Remap rewrites every located diagnostic of res in place to point at its
// source file. Diagnostics without a line, or outside every boundary, are
// left as they are.
func (c *Combined) Remap(res *validate.Result) {
	remap := func(list []validate.Diagnostic) {
		for i := range list {
			if list[i].Line == 0 {
				continue
			}
			if file, local, ok := c.MapLine(list[i].Line); ok {
				list[i].File = file
				list[i].Line = local
			}
		}
	}
	remap(res.Errors)
	remap(res.Warnings)
}

// FilterFor keeps the diagnostics reported against file.
func FilterFor(file string, diags []validate.Diagnostic) []validate.Diagnostic {
	out := []validate.Diagnostic{}
	for _, d := range diags {
		if d.File == file {
			out = append(out, d)
		}
	}
	return out
}

// Load reads every .tx file directly inside dir, in lexical order.
func Load(dir string) ([]Source, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read runbook directory: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".tx" {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	sources := make([]Source, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		sources = append(sources, Source{Path: path, Content: string(data)})
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("no .tx files in %s", dir)
	}
	return sources, nil
}
