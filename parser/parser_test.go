package parser

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const basicDash = `[dashboard]
title = Demo
description = Review inbox
foreach = status:open

[section "Reviews"]
query = change:123 OR change:456

[section "Mine"]
query = owner:self
`

func TestParseBasic(t *testing.T) {
	def, err := Parse("demo.dash", []byte(basicDash))
	require.NoError(t, err)

	assert.Equal(t, "demo.dash", def.Path())
	assert.Equal(t, []string{"dashboard", `section "Reviews"`, `section "Mine"`}, def.Sections())

	title, ok := def.Get("dashboard", "title")
	assert.True(t, ok)
	assert.Equal(t, "Demo", title)

	query, ok := def.Get(`section "Reviews"`, "query")
	assert.True(t, ok)
	assert.Equal(t, "change:123 OR change:456", query)
}

func TestParseSectionOrder(t *testing.T) {
	src := `[section "Z"]
query = a
[dashboard]
title = t
foreach = f
[section "A"]
query = b
[section "M"]
query = c
`
	def, err := Parse("order.dash", []byte(src))
	require.NoError(t, err)
	assert.Equal(t, []string{`section "Z"`, "dashboard", `section "A"`, `section "M"`}, def.Sections())
}

func TestHasOption(t *testing.T) {
	def, err := Parse("demo.dash", []byte(basicDash))
	require.NoError(t, err)

	tests := []struct {
		section string
		key     string
		want    bool
	}{
		{"dashboard", "title", true},
		{"dashboard", "TITLE", true},
		{"dashboard", "baseurl", false},
		{"missing", "title", false},
		{`section "Mine"`, "query", true},
		{`section "mine"`, "query", false},
	}

	for _, tt := range tests {
		t.Run(tt.section+"/"+tt.key, func(t *testing.T) {
			assert.Equal(t, tt.want, def.HasOption(tt.section, tt.key))
		})
	}

	_, ok := def.Get("dashboard", "baseurl")
	assert.False(t, ok)
}

func TestParseDialect(t *testing.T) {
	src := `# leading comment
; another comment
[dashboard]
Title: Needs review
foreach = status:open # not a comment
quoted = "kept as is"
description = first line
  second line
`
	def, err := Parse("dialect.dash", []byte(src))
	require.NoError(t, err)

	title, _ := def.Get("dashboard", "title")
	assert.Equal(t, "Needs review", title)

	foreach, _ := def.Get("dashboard", "foreach")
	assert.Equal(t, "status:open # not a comment", foreach)

	quoted, _ := def.Get("dashboard", "quoted")
	assert.Equal(t, `"kept as is"`, quoted)

	desc, _ := def.Get("dashboard", "description")
	assert.Contains(t, desc, "first line")
	assert.Contains(t, desc, "second line")
}

func TestParseTrailingBackslash(t *testing.T) {
	src := `[dashboard]
title = a \
foreach = f

[section "Paths"]
query = file:^docs/.*\
[section "Other"]
query = is:open
`
	def, err := Parse("paths.dash", []byte(src))
	require.NoError(t, err)

	title, _ := def.Get("dashboard", "title")
	assert.Equal(t, `a \`, title)

	foreach, ok := def.Get("dashboard", "foreach")
	assert.True(t, ok)
	assert.Equal(t, "f", foreach)

	assert.Equal(t, []string{"dashboard", `section "Paths"`, `section "Other"`}, def.Sections())
	query, _ := def.Get(`section "Paths"`, "query")
	assert.Equal(t, `file:^docs/.*\`, query)
}

func TestParseWrappedValues(t *testing.T) {
	src := "[dashboard]\ntitle = `quoted`\nforeach = \"\"\"status:open\"\"\"\n"
	def, err := Parse("wrapped.dash", []byte(src))
	require.NoError(t, err)

	title, _ := def.Get("dashboard", "title")
	assert.Equal(t, "quoted", title)
	foreach, _ := def.Get("dashboard", "foreach")
	assert.Equal(t, "status:open", foreach)
}

func TestParseExplicitDefaultSection(t *testing.T) {
	src := "[DEFAULT]\nowner = self\n[dashboard]\ntitle = t\nforeach = f\n"
	def, err := Parse("default.dash", []byte(src))
	require.NoError(t, err)
	assert.Equal(t, []string{"dashboard"}, def.Sections())
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantMsg string
	}{
		{
			name:    "duplicate section",
			src:     "[dashboard]\ntitle = a\n[dashboard]\nforeach = b\n",
			wantMsg: `section "dashboard" already exists`,
		},
		{
			name:    "duplicate option",
			src:     "[dashboard]\ntitle = a\ntitle = b\n",
			wantMsg: `option "title" in section "dashboard" already exists`,
		},
		{
			name:    "option before first header",
			src:     "orphan = x\n[dashboard]\ntitle = a\nforeach = b\n",
			wantMsg: `option "orphan" appears before any section header`,
		},
		{
			name: "unclosed header",
			src:  "[dashboard\ntitle = a\n",
		},
		{
			name: "line without delimiter",
			src:  "[dashboard]\njust some words\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("bad.dash", []byte(tt.src))
			require.Error(t, err)

			var perr *ParseError
			require.True(t, errors.As(err, &perr), "expected ParseError, got %T", err)
			assert.Equal(t, "bad.dash", perr.Path)
			assert.Contains(t, err.Error(), `"bad.dash"`)
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestBuildDefinition(t *testing.T) {
	def := New()
	require.NoError(t, def.AddSection("dashboard"))
	require.NoError(t, def.Set("dashboard", "title", "Built"))
	require.NoError(t, def.Set("dashboard", "foreach", "status:open"))
	require.NoError(t, def.AddSection(`section "One"`))
	require.NoError(t, def.Set(`section "One"`, "query", "change:1"))

	assert.Equal(t, "", def.Path())
	assert.Equal(t, []string{"dashboard", `section "One"`}, def.Sections())

	require.NoError(t, def.Set("dashboard", "title", "Rebuilt"))
	title, _ := def.Get("dashboard", "title")
	assert.Equal(t, "Rebuilt", title)

	assert.Error(t, def.AddSection("dashboard"))
	assert.Error(t, def.Set("nope", "query", "x"))
}

func TestStringRoundTrip(t *testing.T) {
	def, err := Parse("demo.dash", []byte(basicDash))
	require.NoError(t, err)

	out := def.String()
	assert.True(t, strings.Contains(out, "[dashboard]"))
	assert.True(t, strings.Contains(out, `[section "Reviews"]`))

	again, err := Parse("again.dash", []byte(out))
	require.NoError(t, err)
	assert.Equal(t, def.Sections(), again.Sections())

	q, _ := again.Get(`section "Reviews"`, "query")
	assert.Equal(t, "change:123 OR change:456", q)
}
