package parser

import (
	"bytes"
	"fmt"
	"io"

	"gopkg.in/ini.v1"
)

const (
	// DashboardSection is the mandatory section holding title, foreach and baseurl
	DashboardSection = "dashboard"

	// SectionPrefix marks a section as a named sub-query
	SectionPrefix = "section"
)

// Definition is a parsed dashboard definition.
// Sections keep the order in which they appear in the source.
type Definition struct {
	path string
	file *ini.File
}

// New returns an empty definition for building in memory
func New() *Definition {
	return &Definition{file: ini.Empty(loadOptions)}
}

// Path returns the file the definition was read from, empty for built definitions
func (d *Definition) Path() string {
	return d.path
}

// HasOption reports whether section exists and carries key
func (d *Definition) HasOption(section, key string) bool {
	sec, err := d.file.GetSection(section)
	if err != nil {
		return false
	}
	return sec.HasKey(key)
}

// Get returns the value of key in section
func (d *Definition) Get(section, key string) (string, bool) {
	if !d.HasOption(section, key) {
		return "", false
	}
	return d.file.Section(section).Key(key).String(), true
}

// Sections returns section names in source order
func (d *Definition) Sections() []string {
	var names []string
	for _, sec := range d.file.Sections() {
		if sec.Name() == ini.DefaultSection {
			continue
		}
		names = append(names, sec.Name())
	}
	return names
}

// AddSection appends a new, empty section
func (d *Definition) AddSection(name string) error {
	if name == ini.DefaultSection {
		return fmt.Errorf("invalid section name: %s", name)
	}
	if d.file.HasSection(name) {
		return fmt.Errorf("section %q already exists", name)
	}
	_, err := d.file.NewSection(name)
	return err
}

// Set stores value under key in an existing section
func (d *Definition) Set(section, key, value string) error {
	sec, err := d.file.GetSection(section)
	if err != nil {
		return fmt.Errorf("no section %q", section)
	}
	if sec.HasKey(key) {
		sec.Key(key).SetValue(value)
		return nil
	}
	_, err = sec.NewKey(key, value)
	return err
}

// WriteTo writes the definition back out in INI form
func (d *Definition) WriteTo(w io.Writer) (int64, error) {
	return d.file.WriteTo(w)
}

// String returns the INI form of the definition
func (d *Definition) String() string {
	var buf bytes.Buffer
	if _, err := d.WriteTo(&buf); err != nil {
		return ""
	}
	return buf.String()
}
