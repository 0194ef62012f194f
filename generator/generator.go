// Package generator turns a dashboard definition into a Gerrit dashboard URL.
package generator

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/xschemadev/gerrit-dash/parser"
)

// DefaultBaseURL is used when neither the definition nor the caller sets one
const DefaultBaseURL = "https://review.openstack.org/#/dashboard/?"

// EscapePolicy controls the extra escaping applied to encoded parameters.
// Gerrit splits dashboard parameters on commas, so commas must never reach
// it unescaped.
type EscapePolicy int

const (
	// EscapeComma rewrites every comma as %2c
	EscapeComma EscapePolicy = iota
	// EscapeCommaHyphen also rewrites every hyphen as %2D
	EscapeCommaHyphen
)

var escapePolicyNames = map[EscapePolicy]string{
	EscapeComma:       "comma",
	EscapeCommaHyphen: "comma-hyphen",
}

func (p EscapePolicy) String() string {
	if name, ok := escapePolicyNames[p]; ok {
		return name
	}
	return fmt.Sprintf("EscapePolicy(%d)", int(p))
}

// ParseEscapePolicy maps a policy name ("comma", "comma-hyphen") to its value
func ParseEscapePolicy(name string) (EscapePolicy, error) {
	for p, n := range escapePolicyNames {
		if n == name {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown escape policy %q (want comma or comma-hyphen)", name)
}

// Escape applies the policy to an already query-encoded string
func (p EscapePolicy) Escape(s string) string {
	s = strings.ReplaceAll(s, ",", "%2c")
	if p == EscapeCommaHyphen {
		s = strings.ReplaceAll(s, "-", "%2D")
	}
	return s
}

// Options tunes URL generation
type Options struct {
	// BaseURL replaces DefaultBaseURL for definitions without a baseurl
	BaseURL string
	Escape  EscapePolicy
}

// DefaultOptions returns the canonical behavior: default base URL, comma escaping
func DefaultOptions() Options {
	return Options{
		BaseURL: DefaultBaseURL,
		Escape:  EscapeComma,
	}
}

// ValidationError reports a required option missing from a definition
type ValidationError struct {
	Section string
	Option  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("option %q in section %q not set", e.Option, e.Section)
}

// Generate builds the dashboard URL for def.
// Parameters appear as title, foreach, then one per query section in
// definition order. Sections sharing a label each produce a parameter.
func Generate(def *parser.Definition, opts Options) (string, error) {
	title, ok := def.Get(parser.DashboardSection, "title")
	if !ok {
		return "", &ValidationError{Section: parser.DashboardSection, Option: "title"}
	}

	foreach, ok := def.Get(parser.DashboardSection, "foreach")
	if !ok {
		return "", &ValidationError{Section: parser.DashboardSection, Option: "foreach"}
	}

	baseURL, ok := def.Get(parser.DashboardSection, "baseurl")
	if !ok {
		baseURL = opts.BaseURL
		if baseURL == "" {
			baseURL = DefaultBaseURL
		}
	}

	var b strings.Builder
	b.WriteString(baseURL)
	b.WriteString(opts.Escape.Escape(encodePair("title", title) + "&" + encodePair("foreach", foreach)))

	for _, section := range def.Sections() {
		if !strings.HasPrefix(section, parser.SectionPrefix) {
			continue
		}

		query, ok := def.Get(section, "query")
		if !ok {
			return "", &ValidationError{Section: section, Option: "query"}
		}

		b.WriteByte('&')
		b.WriteString(opts.Escape.Escape(encodePair(Label(section), query)))
	}

	return b.String(), nil
}

// Label derives the parameter name of a query section:
// `section "Needs Review"` becomes `Needs Review`. The canonical form loses
// exactly its `section "` prefix and closing quote; other spellings are
// trimmed and lose one pair of surrounding quotes.
func Label(section string) string {
	const open = parser.SectionPrefix + ` "`
	if len(section) > len(open) && strings.HasPrefix(section, open) && strings.HasSuffix(section, `"`) {
		return section[len(open) : len(section)-1]
	}

	label := strings.TrimSpace(strings.TrimPrefix(section, parser.SectionPrefix))
	if len(label) >= 2 && label[0] == '"' && label[len(label)-1] == '"' {
		label = label[1 : len(label)-1]
	}
	return label
}

// encodePair encodes one key=value query parameter, spaces as '+'
func encodePair(key, value string) string {
	return url.QueryEscape(key) + "=" + url.QueryEscape(value)
}
