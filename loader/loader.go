// Package loader resolves definition paths and reads them into definitions.
package loader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/xschemadev/gerrit-dash/logger"
	"github.com/xschemadev/gerrit-dash/parser"
)

// DefaultSuffix is the extension of dashboard definition files
const DefaultSuffix = ".dash"

// ErrUnreadable is wrapped by errors for definition files that are missing,
// are directories or cannot be read
var ErrUnreadable = errors.New("missing or not readable")

// Dashboard is a definition together with the file it came from
type Dashboard struct {
	Path       string
	Definition *parser.Definition
}

// Loader reads definitions from a filesystem
type Loader struct {
	fs     afero.Fs
	suffix string
}

// Option configures a Loader
type Option func(*Loader)

// WithSuffix changes the file suffix matched when walking directories
func WithSuffix(suffix string) Option {
	return func(l *Loader) {
		l.suffix = suffix
	}
}

// New returns a Loader reading from fs
func New(fs afero.Fs, opts ...Option) *Loader {
	l := &Loader{fs: fs, suffix: DefaultSuffix}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Resolve expands directories into the definition files below them.
// Other paths are returned verbatim, even if they do not exist; reading
// them reports the problem.
func (l *Loader) Resolve(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := l.fs.Stat(p)
		if err != nil || !info.IsDir() {
			files = append(files, p)
			continue
		}

		found, err := l.walk(p)
		if err != nil {
			return nil, err
		}
		logger.Debug("resolved definition directory", "dir", p, "files", len(found))
		files = append(files, found...)
	}
	return files, nil
}

func (l *Loader) walk(root string) ([]string, error) {
	var files []string
	err := afero.Walk(l.fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && strings.HasSuffix(info.Name(), l.suffix) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", root, err)
	}
	return files, nil
}

// LoadFile reads and parses a single definition file
func (l *Loader) LoadFile(path string) (*parser.Definition, error) {
	info, err := l.fs.Stat(path)
	if err != nil || info.IsDir() {
		return nil, fmt.Errorf("dashboard file %q is %w", path, ErrUnreadable)
	}

	data, err := afero.ReadFile(l.fs, filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("dashboard file %q is %w: %v", path, ErrUnreadable, err)
	}

	return parser.Parse(path, data)
}

// Load resolves paths and parses every definition. The first failure
// aborts the load and no definitions are returned.
func (l *Loader) Load(ctx context.Context, paths []string) ([]Dashboard, error) {
	files, err := l.Resolve(paths)
	if err != nil {
		return nil, err
	}

	dashboards := make([]Dashboard, 0, len(files))
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		def, err := l.LoadFile(file)
		if err != nil {
			return nil, err
		}
		dashboards = append(dashboards, Dashboard{Path: file, Definition: def})
	}
	return dashboards, nil
}
