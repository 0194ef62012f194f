package tracker

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/go-github/v63/github"
	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"

	"github.com/xschemadev/gerrit-dash/ui"
)

const (
	// DefaultInProgressLabel marks issues someone is working on
	DefaultInProgressLabel = "in progress"

	// DefaultPriorityPrefix marks the label carrying an issue's importance
	DefaultPriorityPrefix = "priority/"

	githubPageSize = 100
)

// GitHubOptions configures the GitHub issues client
type GitHubOptions struct {
	Token           string
	BaseURL         string // API root, for GitHub Enterprise or tests
	InProgressLabel string
	PriorityPrefix  string
	Concurrency     int
	Limit           int // max issues per repository, 0 means all

	HTTPClient *http.Client
}

// GitHub treats open issues carrying the in-progress label as in-progress bugs.
// Projects are named owner/repo.
type GitHub struct {
	opts   GitHubOptions
	client *github.Client
}

// NewGitHub returns a client. A token, when set, authenticates every request.
func NewGitHub(ctx context.Context, opts GitHubOptions) (*GitHub, error) {
	if opts.InProgressLabel == "" {
		opts.InProgressLabel = DefaultInProgressLabel
	}
	if opts.PriorityPrefix == "" {
		opts.PriorityPrefix = DefaultPriorityPrefix
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = defaultConcurrency
	}

	httpClient := opts.HTTPClient
	if opts.Token != "" {
		if httpClient != nil {
			ctx = context.WithValue(ctx, oauth2.HTTPClient, httpClient)
		}
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.Token})
		httpClient = oauth2.NewClient(ctx, ts)
	}

	client := github.NewClient(httpClient)
	if opts.BaseURL != "" {
		u, err := url.Parse(strings.TrimRight(opts.BaseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub API URL %q: %w", opts.BaseURL, err)
		}
		client.BaseURL = u
	}

	return &GitHub{opts: opts, client: client}, nil
}

// InProgress lists open in-progress issues of owner/repo with their comments
func (g *GitHub) InProgress(ctx context.Context, project string) ([]Bug, error) {
	owner, repo, ok := strings.Cut(project, "/")
	if !ok || owner == "" || repo == "" {
		return nil, fmt.Errorf("GitHub project must be owner/repo, got %q", project)
	}

	issues, err := g.listIssues(ctx, owner, repo)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s issues: %w", project, err)
	}

	ui.Verbosef("found %d in-progress issues in %s", len(issues), project)

	bugs := make([]Bug, len(issues))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.opts.Concurrency)

	for i, issue := range issues {
		bugs[i] = Bug{
			ID:         strconv.Itoa(issue.GetNumber()),
			Title:      issue.GetTitle(),
			Link:       issue.GetHTMLURL(),
			Milestone:  NoMilestone,
			Importance: g.importance(issue),
		}
		if title := issue.GetMilestone().GetTitle(); title != "" {
			bugs[i].Milestone = title
		}
		if body := issue.GetBody(); body != "" {
			bugs[i].Messages = append(bugs[i].Messages, Message{Subject: issue.GetTitle(), Content: body})
		}

		eg.Go(func() error {
			comments, err := g.listComments(ctx, owner, repo, issue.GetNumber())
			if err != nil {
				return fmt.Errorf("failed to read comments of issue %d: %w", issue.GetNumber(), err)
			}
			for _, c := range comments {
				body := c.GetBody()
				bugs[i].Messages = append(bugs[i].Messages, Message{Subject: firstLine(body), Content: body})
			}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return bugs, nil
}

func (g *GitHub) listIssues(ctx context.Context, owner, repo string) ([]*github.Issue, error) {
	opts := &github.IssueListByRepoOptions{
		State:       "open",
		Labels:      []string{g.opts.InProgressLabel},
		ListOptions: github.ListOptions{PerPage: githubPageSize},
	}

	var all []*github.Issue
	for {
		page, resp, err := g.client.Issues.ListByRepo(ctx, owner, repo, opts)
		if err != nil {
			return nil, err
		}
		for _, issue := range page {
			if issue.IsPullRequest() {
				continue
			}
			all = append(all, issue)
			if g.opts.Limit > 0 && len(all) >= g.opts.Limit {
				return all, nil
			}
		}
		if resp.NextPage == 0 {
			return all, nil
		}
		opts.Page = resp.NextPage
	}
}

func (g *GitHub) listComments(ctx context.Context, owner, repo string, number int) ([]*github.IssueComment, error) {
	opts := &github.IssueListCommentsOptions{
		ListOptions: github.ListOptions{PerPage: githubPageSize},
	}

	var all []*github.IssueComment
	for {
		page, resp, err := g.client.Issues.ListComments(ctx, owner, repo, number, opts)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if resp.NextPage == 0 {
			return all, nil
		}
		opts.Page = resp.NextPage
	}
}

// importance reads the first priority label, e.g. "priority/High" -> "High"
func (g *GitHub) importance(issue *github.Issue) string {
	for _, label := range issue.Labels {
		if name, ok := strings.CutPrefix(label.GetName(), g.opts.PriorityPrefix); ok && name != "" {
			return name
		}
	}
	return UnknownImportance
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return strings.TrimSpace(line)
}
