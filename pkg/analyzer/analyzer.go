// Package analyzer runs the full diagnostic pass over a runbook: parse,
// two-pass validation, environment resolution and the rule pipeline.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ormasoftchile/rbdoctor/pkg/ctxlog"
	"github.com/ormasoftchile/rbdoctor/pkg/environment"
	"github.com/ormasoftchile/rbdoctor/pkg/manifest"
	"github.com/ormasoftchile/rbdoctor/pkg/multifile"
	"github.com/ormasoftchile/rbdoctor/pkg/parser"
	"github.com/ormasoftchile/rbdoctor/pkg/registry"
	"github.com/ormasoftchile/rbdoctor/pkg/rules"
	"github.com/ormasoftchile/rbdoctor/pkg/validate"
)

// CombinedFileName names the synthetic buffer of a multi-file runbook.
const CombinedFileName = "_combined.tx"

// Analyzer holds the configuration shared by every analysis.
type Analyzer struct {
	Registry *registry.Registry
	// Strict forces the strict rule set regardless of environment.
	Strict bool
}

// New creates an analyzer over reg. A nil registry selects the built-in
// addons.
func New(reg *registry.Registry) *Analyzer {
	if reg == nil {
		reg = registry.Builtin()
	}
	return &Analyzer{Registry: reg}
}

// Request describes one analysis.
type Request struct {
	File        string
	Content     string
	Manifest    *manifest.Manifest
	Environment string
	CLIInputs   []environment.Input

	// locate maps lines of a combined buffer back to their source files.
	locate validate.Locator
}

// Analyze checks a single runbook buffer. It never fails: problems of
// every kind are returned as diagnostics.
func (a *Analyzer) Analyze(ctx context.Context, req Request) *validate.Result {
	log := ctxlog.FromContext(ctx).With("file", req.File)
	res := validate.NewResult()

	rb, err := parser.Parse(req.File, []byte(req.Content))
	if err != nil {
		log.Debug("parse failed", "error", err)
		msg := err.Error()
		d := validate.Diagnostic{File: req.File}
		var perr *parser.Error
		if errors.As(err, &perr) {
			d.Line, d.Column = perr.Line, perr.Column
			if req.locate != nil && perr.Line > 0 {
				if file, local, ok := req.locate(perr.Line); ok {
					msg = fmt.Sprintf("%s:%d,%d: %s", file, local, perr.Column, perr.Message())
				}
			}
		}
		d.Message = "Failed to parse runbook: " + msg
		res.AddError(d)
		return res
	}

	vres, refs := validate.New(a.Registry).WithLocator(req.locate).Validate(req.File, rb)
	res.Merge(vres)
	log.Debug("validated", "blocks", len(rb.Blocks), "errors", len(vres.Errors), "input_refs", len(refs))

	if req.Manifest == nil {
		return res
	}
	a.runRules(ctx, req, refs, res)
	return res
}

func (a *Analyzer) runRules(ctx context.Context, req Request, refs []validate.LocatedInputRef, res *validate.Result) {
	log := ctxlog.FromContext(ctx)
	envs := req.Manifest.EnvironmentMap()

	base := rules.Context{
		Manifest:       req.Manifest,
		Environment:    req.Environment,
		Effective:      environment.Resolve(envs, req.Environment, req.CLIInputs),
		ManifestValues: environment.ManifestLayer(envs, req.Environment),
		CLIInputs:      req.CLIInputs,
		File:           req.File,
		Content:        req.Content,
	}

	if n := len(req.CLIInputs); n > 0 {
		res.AddSuggestion(validate.Suggestion{
			Message: fmt.Sprintf("%d CLI inputs provided. CLI inputs take precedence over environment values.", n),
		})
	}

	set := rules.Default()
	if a.strict(req) {
		set = rules.Strict()
	}
	pipeline := rules.NewPipeline(set...)

	custom, errs := rules.CompileCustom(req.Manifest.CustomRules())
	for _, err := range errs {
		res.AddError(validate.Diagnostic{
			Message: err.Error(),
			File:    req.Manifest.Path,
			Context: "Custom rules are declared under 'doctor.rules' in txtx.yml",
		})
	}
	pipeline.Add(custom...)
	pipeline = pipeline.Without(req.Manifest.Disabled())

	log.Debug("running rules", "rules", len(pipeline.Rules()), "environment", base.EnvironmentName(), "strict", a.strict(req))
	pipeline.Run(refs, base, res)
}

// strict reports whether the strict rule set applies to req.
func (a *Analyzer) strict(req Request) bool {
	return a.Strict || req.Manifest.Strict() || environment.IsProduction(req.Environment)
}

// AnalyzeSources checks a runbook made of several files as one buffer so
// cross-file references resolve, then maps diagnostics back to the files
// they came from.
func (a *Analyzer) AnalyzeSources(ctx context.Context, sources []multifile.Source, req Request) *validate.Result {
	if len(sources) == 1 {
		req.File = sources[0].Path
		req.Content = sources[0].Content
		return a.Analyze(ctx, req)
	}

	combined := multifile.Combine(sources)
	if req.File == "" {
		req.File = CombinedFileName
	}
	req.Content = combined.Content
	req.locate = combined.MapLine
	ctxlog.FromContext(ctx).Debug("combined runbook", "files", len(sources), "boundaries", len(combined.Boundaries))

	res := a.Analyze(ctx, req)
	combined.Remap(res)
	return res
}

// AnalyzeDir checks every .tx file of a runbook directory together.
func (a *Analyzer) AnalyzeDir(ctx context.Context, dir string, req Request) (*validate.Result, error) {
	sources, err := multifile.Load(dir)
	if err != nil {
		return nil, err
	}
	req.File = filepath.Join(dir, CombinedFileName)
	return a.AnalyzeSources(ctx, sources, req), nil
}

// AnalyzePath checks a runbook file or directory.
func (a *Analyzer) AnalyzePath(ctx context.Context, path string, req Request) (*validate.Result, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat runbook: %w", err)
	}
	if info.IsDir() {
		return a.AnalyzeDir(ctx, path, req)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read runbook: %w", err)
	}
	req.File = path
	req.Content = string(data)
	return a.Analyze(ctx, req), nil
}

// Target is one runbook selected for checking.
type Target struct {
	Name string
	Path string
}

// Targets resolves the runbooks to check. With no names every runbook of
// the manifest is returned. A name that is an existing path is used as is.
func Targets(m *manifest.Manifest, names []string) ([]Target, error) {
	if len(names) == 0 {
		if m == nil {
			return nil, fmt.Errorf("no runbook given and no txtx.yml found")
		}
		out := make([]Target, 0, len(m.Runbooks))
		for _, rb := range m.Runbooks {
			out = append(out, Target{Name: rb.Name, Path: m.ResolveLocation(rb)})
		}
		return out, nil
	}

	out := make([]Target, 0, len(names))
	for _, name := range names {
		if _, err := os.Stat(name); err == nil {
			out = append(out, Target{Name: name, Path: name})
			continue
		}
		if m == nil {
			return nil, fmt.Errorf("file '%s' not found or is not a .tx file", name)
		}
		rb, ok := m.Runbook(name)
		if !ok {
			return nil, fmt.Errorf("runbook '%s' not found in manifest", name)
		}
		out = append(out, Target{Name: rb.Name, Path: m.ResolveLocation(*rb)})
	}
	return out, nil
}
