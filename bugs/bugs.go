// Package bugs groups the reviews attached to in-progress bugs by milestone
// and importance and turns the result into a dashboard definition.
package bugs

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/xschemadev/gerrit-dash/logger"
	"github.com/xschemadev/gerrit-dash/parser"
	"github.com/xschemadev/gerrit-dash/tracker"
)

const (
	DefaultTitle       = "Prioritized Bug Fix Dashboard"
	DefaultDescription = "Bug Fix Inbox"
	DefaultForeach     = "status:open NOT owner:self"
)

// importanceRank orders the Launchpad importance levels, most urgent first
var importanceRank = map[string]int{
	"Critical":  0,
	"High":      1,
	"Medium":    2,
	"Low":       3,
	"Wishlist":  4,
	"Undecided": 5,
}

// CollectOptions controls which bugs are indexed
type CollectOptions struct {
	// Milestone keeps only bugs targeted to it; empty keeps every bug
	Milestone string

	// Extractor finds review identifiers in a bug thread, tracker.FixProposed by default
	Extractor tracker.Extractor
}

// Association links one bug to one of its reviews
type Association struct {
	Project string
	Bug     tracker.Bug
	Review  string
}

// Index holds review identifiers grouped by milestone, then importance
type Index struct {
	groups       map[string]map[string][]string
	Associations []Association
}

// NewIndex returns an empty index
func NewIndex() *Index {
	return &Index{groups: make(map[string]map[string][]string)}
}

// Collect queries tr for each project in turn and indexes the reviews found
// in their in-progress bugs. Bugs without reviews are not indexed.
func Collect(ctx context.Context, tr tracker.Tracker, projects []string, opts CollectOptions) (*Index, error) {
	extract := opts.Extractor
	if extract == nil {
		extract = tracker.FixProposed
	}

	idx := NewIndex()
	for _, project := range projects {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		found, err := tr.InProgress(ctx, project)
		if err != nil {
			return nil, fmt.Errorf("project %s: %w", project, err)
		}

		for _, bug := range found {
			if opts.Milestone != "" && bug.Milestone != opts.Milestone {
				logger.Debug("skipping bug outside milestone", "bug", bug.ID, "milestone", bug.Milestone)
				continue
			}
			for _, review := range extract.Extract(bug.Messages) {
				idx.Add(project, bug, review)
			}
		}
	}
	return idx, nil
}

// Add records review under the bug's milestone and importance
func (idx *Index) Add(project string, bug tracker.Bug, review string) {
	milestone := bug.Milestone
	if milestone == "" {
		milestone = tracker.NoMilestone
	}
	importance := bug.Importance
	if importance == "" {
		importance = tracker.UnknownImportance
	}

	idx.Associations = append(idx.Associations, Association{Project: project, Bug: bug, Review: review})

	prios, ok := idx.groups[milestone]
	if !ok {
		prios = make(map[string][]string)
		idx.groups[milestone] = prios
	}
	for _, existing := range prios[importance] {
		if existing == review {
			return
		}
	}
	prios[importance] = append(prios[importance], review)
}

// Len returns the number of distinct grouped reviews
func (idx *Index) Len() int {
	n := 0
	for _, prios := range idx.groups {
		for _, reviews := range prios {
			n += len(reviews)
		}
	}
	return n
}

// Milestones returns milestone names in dashboard order: semantic versions
// ascending, then other names lexically, tracker.NoMilestone last
func (idx *Index) Milestones() []string {
	names := make([]string, 0, len(idx.groups))
	for name := range idx.groups {
		names = append(names, name)
	}
	sortMilestones(names)
	return names
}

// Importances returns the importance levels present in milestone, most urgent first
func (idx *Index) Importances(milestone string) []string {
	prios := idx.groups[milestone]
	names := make([]string, 0, len(prios))
	for name := range prios {
		names = append(names, name)
	}
	sortImportances(names)
	return names
}

// Reviews returns the review identifiers of a group in first-seen order
func (idx *Index) Reviews(milestone, importance string) []string {
	return idx.groups[milestone][importance]
}

// DashboardOptions sets the [dashboard] section of a generated definition.
// Empty fields take the package defaults; an empty BaseURL is left unset.
type DashboardOptions struct {
	Title       string
	Description string
	Foreach     string
	BaseURL     string
}

// SectionLabel is the sub-query label of a milestone/importance group
func SectionLabel(milestone, importance string) string {
	return fmt.Sprintf("Milestone %s Importance %s", milestone, importance)
}

// Query ORs together one change: clause per review
func Query(reviews []string) string {
	clauses := make([]string, len(reviews))
	for i, r := range reviews {
		clauses[i] = "change:" + r
	}
	return strings.Join(clauses, " OR ")
}

// Definition builds a dashboard definition with one section per group
func (idx *Index) Definition(opts DashboardOptions) (*parser.Definition, error) {
	def := parser.New()
	if err := def.AddSection(parser.DashboardSection); err != nil {
		return nil, err
	}

	dashboard := [][2]string{
		{"title", orDefault(opts.Title, DefaultTitle)},
		{"description", orDefault(opts.Description, DefaultDescription)},
		{"foreach", orDefault(opts.Foreach, DefaultForeach)},
	}
	if opts.BaseURL != "" {
		dashboard = append(dashboard, [2]string{"baseurl", opts.BaseURL})
	}
	for _, kv := range dashboard {
		if err := def.Set(parser.DashboardSection, kv[0], kv[1]); err != nil {
			return nil, err
		}
	}

	for _, milestone := range idx.Milestones() {
		for _, importance := range idx.Importances(milestone) {
			reviews := idx.Reviews(milestone, importance)
			if len(reviews) == 0 {
				continue
			}
			section := parser.SectionPrefix + ` "` + SectionLabel(milestone, importance) + `"`
			if err := def.AddSection(section); err != nil {
				return nil, err
			}
			if err := def.Set(section, "query", Query(reviews)); err != nil {
				return nil, err
			}
		}
	}
	return def, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func sortMilestones(names []string) {
	versions := make(map[string]*semver.Version, len(names))
	for _, name := range names {
		if v, err := semver.NewVersion(name); err == nil {
			versions[name] = v
		}
	}

	sort.SliceStable(names, func(i, j int) bool {
		a, b := names[i], names[j]
		if (a == tracker.NoMilestone) != (b == tracker.NoMilestone) {
			return b == tracker.NoMilestone
		}
		va, vb := versions[a], versions[b]
		switch {
		case va != nil && vb != nil:
			if c := va.Compare(vb); c != 0 {
				return c < 0
			}
			return a < b
		case va != nil:
			return true
		case vb != nil:
			return false
		}
		return a < b
	})
}

func sortImportances(names []string) {
	sort.SliceStable(names, func(i, j int) bool {
		ri, iok := importanceRank[names[i]]
		rj, jok := importanceRank[names[j]]
		switch {
		case iok && jok:
			return ri < rj
		case iok:
			return true
		case jok:
			return false
		}
		return names[i] < names[j]
	})
}
