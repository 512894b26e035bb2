// Package workspace holds the editor-side view of a runbook workspace:
// open documents, parsed manifests and the runbook→manifest association.
//
// All state sits behind one sync.RWMutex. Mutations (open, change, close,
// environment selection) take the write lock and rebuild the affected
// indices; diagnostics take the read lock and are recomputed from scratch
// on every call.
package workspace

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/ormasoftchile/rbdoctor/pkg/analyzer"
	"github.com/ormasoftchile/rbdoctor/pkg/ctxlog"
	"github.com/ormasoftchile/rbdoctor/pkg/environment"
	"github.com/ormasoftchile/rbdoctor/pkg/manifest"
	"github.com/ormasoftchile/rbdoctor/pkg/multifile"
	"github.com/ormasoftchile/rbdoctor/pkg/validate"
)

// Document is one open editor buffer.
type Document struct {
	Path    string
	Content string
	Version int
}

// IsManifest reports whether the document is a txtx.yml.
func (d *Document) IsManifest() bool { return manifest.IsManifestFile(d.Path) }

// IsRunbook reports whether the document is a .tx file.
func (d *Document) IsRunbook() bool { return filepath.Ext(d.Path) == ".tx" }

// State is the shared workspace aggregate.
type State struct {
	mu sync.RWMutex

	analyzer *analyzer.Analyzer

	documents         map[string]*Document
	manifests         map[string]*manifest.Manifest
	manifestErrors    map[string]error
	runbookToManifest map[string]string

	environment string
	cliInputs   []environment.Input
}

// New creates an empty workspace analyzed with a.
func New(a *analyzer.Analyzer) *State {
	if a == nil {
		a = analyzer.New(nil)
	}
	return &State{
		analyzer:          a,
		documents:         map[string]*Document{},
		manifests:         map[string]*manifest.Manifest{},
		manifestErrors:    map[string]error{},
		runbookToManifest: map[string]string{},
	}
}

func clean(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

// ---------------------------------------------------------------------------
// Mutations
// ---------------------------------------------------------------------------

// Open adds a document and indexes it.
func (s *State) Open(path, content string, version int) {
	path = clean(path)
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := &Document{Path: path, Content: content, Version: version}
	s.documents[path] = doc
	switch {
	case doc.IsManifest():
		s.indexManifest(path, content)
	case doc.IsRunbook():
		s.indexRunbook(path)
	}
}

// Update replaces a document's content. Unknown documents are opened.
func (s *State) Update(path, content string, version int) {
	path = clean(path)
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.documents[path]
	if !ok {
		doc = &Document{Path: path}
		s.documents[path] = doc
	}
	doc.Content = content
	doc.Version = version
	switch {
	case doc.IsManifest():
		s.indexManifest(path, content)
	case doc.IsRunbook() && !ok:
		s.indexRunbook(path)
	}
}

// Close forgets a document. Closing a manifest drops it and its runbook
// associations; they are re-established from disk on the next runbook open.
func (s *State) Close(path string) {
	path = clean(path)
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.documents, path)
	if manifest.IsManifestFile(path) {
		delete(s.manifests, path)
		delete(s.manifestErrors, path)
		for rb, m := range s.runbookToManifest {
			if m == path {
				delete(s.runbookToManifest, rb)
			}
		}
	}
}

// SetEnvironment selects the environment used for input resolution.
func (s *State) SetEnvironment(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.environment = name
}

// SetCLIInputs sets the overrides applied on top of the environment.
func (s *State) SetCLIInputs(inputs []environment.Input) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cliInputs = append([]environment.Input(nil), inputs...)
}

// indexManifest parses content and associates the manifest's declared
// runbooks with it. A manifest that fails to parse keeps its previous
// associations and records the error. Caller holds the write lock.
func (s *State) indexManifest(path, content string) {
	m, err := manifest.Parse(path, []byte(content))
	if err != nil {
		s.manifestErrors[path] = err
		return
	}
	delete(s.manifestErrors, path)
	s.manifests[path] = m
	for _, rb := range m.Runbooks {
		s.runbookToManifest[m.ResolveLocation(rb)] = path
	}
}

// indexRunbook finds the nearest manifest of a runbook, loading it from
// disk when it is not already known. Caller holds the write lock.
func (s *State) indexRunbook(path string) {
	found, err := manifest.Find(filepath.Dir(path))
	if err != nil || found == "" {
		return
	}
	s.runbookToManifest[path] = found
	if _, ok := s.manifests[found]; ok {
		return
	}
	data, err := os.ReadFile(found)
	if err != nil {
		return
	}
	s.indexManifest(found, string(data))
}

// ---------------------------------------------------------------------------
// Queries
// ---------------------------------------------------------------------------

// Environment returns the selected environment.
func (s *State) Environment() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.environment
}

// Document returns a copy of an open document.
func (s *State) Document(path string) (Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[clean(path)]
	if !ok {
		return Document{}, false
	}
	return *doc, true
}

// Documents returns the paths of open documents sorted.
func (s *State) Documents() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	paths := make([]string, 0, len(s.documents))
	for p := range s.documents {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// ManifestFor returns the manifest governing a runbook.
func (s *State) ManifestFor(path string) (*manifest.Manifest, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.manifestForLocked(clean(path))
}

func (s *State) manifestForLocked(path string) (*manifest.Manifest, bool) {
	if mp, ok := s.runbookToManifest[path]; ok {
		m, ok := s.manifests[mp]
		return m, ok
	}
	// A file inside a multi-file runbook directory.
	for loc, mp := range s.runbookToManifest {
		if strings.HasPrefix(path, loc+string(filepath.Separator)) {
			m, ok := s.manifests[mp]
			return m, ok
		}
	}
	return nil, false
}

// Environments lists the environments of the manifest governing path.
func (s *State) Environments(path string) []string {
	m, ok := s.ManifestFor(path)
	if !ok {
		return nil
	}
	return environment.Names(m.EnvironmentMap())
}

// Diagnostics recomputes the diagnostics of an open document.
func (s *State) Diagnostics(ctx context.Context, path string) *validate.Result {
	path = clean(path)
	s.mu.RLock()
	defer s.mu.RUnlock()

	res := validate.NewResult()
	doc, ok := s.documents[path]
	if !ok {
		return res
	}

	if doc.IsManifest() {
		if err, bad := s.manifestErrors[path]; bad {
			res.AddError(validate.Diagnostic{
				Message: "Failed to parse manifest: " + err.Error(),
				File:    path,
			})
		}
		return res
	}
	if !doc.IsRunbook() {
		return res
	}

	m, _ := s.manifestForLocked(path)
	req := analyzer.Request{
		Manifest:    m,
		Environment: s.environment,
		CLIInputs:   s.cliInputs,
	}

	if dir, ok := s.runbookDirLocked(m, path); ok {
		sources, err := s.sourcesLocked(dir)
		if err != nil {
			res.AddError(validate.Diagnostic{
				Message: "Failed to load multi-file runbook: " + err.Error(),
				File:    path,
			})
			return res
		}
		req.File = filepath.Join(dir, analyzer.CombinedFileName)
		combined := s.analyzer.AnalyzeSources(ctx, sources, req)
		res.Errors = multifile.FilterFor(path, combined.Errors)
		res.Warnings = multifile.FilterFor(path, combined.Warnings)
		res.Suggestions = combined.Suggestions
		ctxlog.FromContext(ctx).Debug("multi-file diagnostics", "file", path, "dir", dir, "errors", len(res.Errors))
		return res
	}

	req.File = path
	req.Content = doc.Content
	return s.analyzer.Analyze(ctx, req)
}

// runbookDirLocked returns the directory runbook containing path, if any.
func (s *State) runbookDirLocked(m *manifest.Manifest, path string) (string, bool) {
	if m == nil {
		return "", false
	}
	for _, rb := range m.Runbooks {
		loc := m.ResolveLocation(rb)
		if !strings.HasPrefix(path, loc+string(filepath.Separator)) {
			continue
		}
		if info, err := os.Stat(loc); err == nil && info.IsDir() {
			return loc, true
		}
	}
	return "", false
}

// sourcesLocked loads a runbook directory, preferring open buffers over
// the file contents on disk.
func (s *State) sourcesLocked(dir string) ([]multifile.Source, error) {
	sources, err := multifile.Load(dir)
	if err != nil {
		return nil, err
	}
	for i := range sources {
		if doc, ok := s.documents[clean(sources[i].Path)]; ok {
			sources[i].Path = doc.Path
			sources[i].Content = doc.Content
		}
	}
	return sources, nil
}
