// Package renderer formats generated dashboard URLs with user-selectable
// text/template templates.
package renderer

import (
	"bytes"
	"embed"
	"fmt"
	"io"
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"text/template"

	"github.com/spf13/afero"

	"github.com/xschemadev/gerrit-dash/logger"
)

// DefaultTemplate is rendered when no template is selected
const DefaultTemplate = "single.txt"

//go:embed templates/*
var builtins embed.FS

// Source selects a template. File wins over Directory+Name; without a
// Directory the Name refers to a builtin template.
type Source struct {
	File      string
	Directory string
	Name      string
}

// Variables is the data passed to templates
type Variables struct {
	URL           string // generated dashboard URL
	Title         string // dashboard.title
	Description   string // dashboard.description, may be empty
	Configuration string // definition in INI form
	Path          string // definition file, empty for built definitions
}

// TemplateError reports a template that cannot be loaded or executed
type TemplateError struct {
	Name string
	Err  error
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("template %q failed: %v", e.Name, e.Err)
}

func (e *TemplateError) Unwrap() error {
	return e.Err
}

// Renderer executes one loaded template
type Renderer struct {
	name string
	tmpl *template.Template
}

// Load finds and parses the template described by src
func Load(afs afero.Fs, src Source) (*Renderer, error) {
	name, content, err := read(afs, src)
	if err != nil {
		return nil, &TemplateError{Name: name, Err: err}
	}

	tmpl, err := template.New(name).Option("missingkey=error").Parse(string(content))
	if err != nil {
		return nil, &TemplateError{Name: name, Err: err}
	}

	logger.Debug("loaded template", "name", name, "bytes", len(content))
	return &Renderer{name: name, tmpl: tmpl}, nil
}

func read(afs afero.Fs, src Source) (string, []byte, error) {
	if src.File != "" {
		name := filepath.Base(src.File)
		data, err := afero.ReadFile(afs, src.File)
		return name, data, err
	}

	name := src.Name
	if name == "" {
		name = DefaultTemplate
	}

	if src.Directory != "" {
		data, err := afero.ReadFile(afs, filepath.Join(src.Directory, name))
		return name, data, err
	}

	data, err := fs.ReadFile(builtins, path.Join("templates", name))
	if err != nil {
		return name, nil, fmt.Errorf("no builtin template %q (available: %s)", name, strings.Join(Builtins(), ", "))
	}
	return name, data, nil
}

// Name returns the template name
func (r *Renderer) Name() string {
	return r.name
}

// Render executes the template and writes the result followed by exactly one newline
func (r *Renderer) Render(w io.Writer, vars Variables) error {
	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, vars); err != nil {
		return &TemplateError{Name: r.name, Err: err}
	}

	out := strings.TrimSuffix(buf.String(), "\n") + "\n"
	if _, err := io.WriteString(w, out); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// Builtins lists the names of the embedded templates
func Builtins() []string {
	entries, err := builtins.ReadDir("templates")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}

// WriteOutput writes rendered output to path, creating parent directories
func WriteOutput(afs afero.Fs, path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := afs.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := afero.WriteFile(afs, path, data, 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	logger.Debug("wrote rendered output", "path", path, "bytes", len(data))
	return nil
}
