// Package parser reads dashboard definition files.
//
// A definition is INI text with one [dashboard] section and any number of
// [section "<label>"] sections. Keys are case-insensitive, `=` or `:`
// separates a key from its value, indented lines continue the previous value
// and `#` or `;` only start a comment at the beginning of a line. A trailing
// backslash has no special meaning. Values wrapped in backticks or triple
// double quotes lose the wrapping.
package parser

import (
	"fmt"
	"strings"

	"gopkg.in/ini.v1"

	"github.com/xschemadev/gerrit-dash/logger"
)

var loadOptions = ini.LoadOptions{
	InsensitiveKeys:            true,
	IgnoreInlineComment:        true,
	PreserveSurroundedQuote:    true,
	AllowPythonMultilineValues: true,
	IgnoreContinuation:         true,
	AllowNonUniqueSections:     true,
	AllowShadows:               true,
	AllowDuplicateShadowValues: true,
}

// ParseError reports a definition that is not structurally valid INI
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("dashboard definition cannot be parsed: %v", e.Err)
	}
	return fmt.Sprintf("dashboard file %q cannot be parsed: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Parse parses the INI text in data. path is only used for error messages.
func Parse(path string, data []byte) (*Definition, error) {
	f, err := ini.LoadSources(loadOptions, data)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}

	if err := checkHeaders(f, data); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	if err := checkUnique(f); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}

	def := &Definition{path: path, file: f}
	logger.Debug("parsed dashboard definition", "path", path, "sections", len(def.Sections()))
	return def, nil
}

// checkHeaders rejects options that appear before the first section header.
// The INI reader files them under its implicit default section.
func checkHeaders(f *ini.File, data []byte) error {
	keys := f.Section(ini.DefaultSection).KeyStrings()
	if len(keys) == 0 || hasDefaultHeader(data) {
		return nil
	}
	return fmt.Errorf("option %q appears before any section header", keys[0])
}

func hasDefaultHeader(data []byte) bool {
	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) == "["+ini.DefaultSection+"]" {
			return true
		}
	}
	return false
}

// checkUnique rejects repeated section headers and repeated keys in a section
func checkUnique(f *ini.File) error {
	seen := make(map[string]bool)
	for _, sec := range f.Sections() {
		name := sec.Name()
		if seen[name] && name != ini.DefaultSection {
			return fmt.Errorf("section %q already exists", name)
		}
		seen[name] = true

		for _, key := range sec.Keys() {
			if len(key.ValueWithShadows()) > 1 {
				return fmt.Errorf("option %q in section %q already exists", key.Name(), name)
			}
		}
	}
	return nil
}
