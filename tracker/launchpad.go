package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/xschemadev/gerrit-dash/logger"
	"github.com/xschemadev/gerrit-dash/ui"
)

const (
	// DefaultServiceRoot is the production Launchpad web service
	DefaultServiceRoot = "https://api.launchpad.net/1.0"

	defaultRetries     = 3
	defaultConcurrency = 10
	defaultHTTPTimeout = 30 * time.Second
	defaultCacheTTL    = time.Hour
	retryBaseDelay     = 500 * time.Millisecond
	userAgent          = "gerrit-dash/1.0"
)

// LaunchpadOptions configures the Launchpad client
type LaunchpadOptions struct {
	ServiceRoot string
	Concurrency int
	HTTPTimeout time.Duration
	Retries     int
	Limit       int // max bugs per project, 0 means all

	// CacheDir stores responses between runs; empty keeps them in memory only
	CacheDir string
	CacheTTL time.Duration
	Fs       afero.Fs

	HTTPClient *http.Client
}

// DefaultLaunchpadOptions returns sensible defaults
func DefaultLaunchpadOptions() LaunchpadOptions {
	return LaunchpadOptions{
		ServiceRoot: DefaultServiceRoot,
		Concurrency: defaultConcurrency,
		HTTPTimeout: defaultHTTPTimeout,
		Retries:     defaultRetries,
		CacheTTL:    defaultCacheTTL,
	}
}

// Launchpad reads in-progress bug tasks anonymously from Launchpad
type Launchpad struct {
	opts   LaunchpadOptions
	client *http.Client
	cache  *responseCache
}

// NewLaunchpad returns a client; zero option fields take their defaults
func NewLaunchpad(opts LaunchpadOptions) *Launchpad {
	defaults := DefaultLaunchpadOptions()
	if opts.ServiceRoot == "" {
		opts.ServiceRoot = defaults.ServiceRoot
	}
	opts.ServiceRoot = strings.TrimRight(opts.ServiceRoot, "/")
	if opts.Concurrency < 1 {
		opts.Concurrency = defaults.Concurrency
	}
	if opts.HTTPTimeout <= 0 {
		opts.HTTPTimeout = defaults.HTTPTimeout
	}
	if opts.CacheTTL == 0 {
		opts.CacheTTL = defaults.CacheTTL
	}
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: opts.HTTPTimeout}
	}

	return &Launchpad{
		opts:   opts,
		client: client,
		cache:  newResponseCache(opts.Fs, opts.CacheDir, opts.CacheTTL),
	}
}

type collection[T any] struct {
	Entries            []T    `json:"entries"`
	NextCollectionLink string `json:"next_collection_link"`
}

type bugTask struct {
	Title         string  `json:"title"`
	WebLink       string  `json:"web_link"`
	BugLink       string  `json:"bug_link"`
	MilestoneLink *string `json:"milestone_link"`
	Importance    string  `json:"importance"`
}

type bugMessage struct {
	Subject string `json:"subject"`
	Content string `json:"content"`
}

// InProgress lists the project's "In Progress" bug tasks with their messages
func (lp *Launchpad) InProgress(ctx context.Context, project string) ([]Bug, error) {
	query := url.Values{
		"ws.op":  {"searchTasks"},
		"status": {"In Progress"},
	}
	link := lp.opts.ServiceRoot + "/" + url.PathEscape(project) + "?" + query.Encode()

	tasks, err := fetchAll[bugTask](ctx, lp, link, lp.opts.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search %s bug tasks: %w", project, err)
	}

	ui.Verbosef("found %d in-progress tasks in %s", len(tasks), project)

	bugs := make([]Bug, len(tasks))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(lp.opts.Concurrency)

	for i, task := range tasks {
		bugs[i] = Bug{
			ID:         lastSegment(task.BugLink),
			Title:      task.Title,
			Link:       task.WebLink,
			Milestone:  milestoneName(task.MilestoneLink),
			Importance: task.Importance,
		}
		if bugs[i].Importance == "" {
			bugs[i].Importance = UnknownImportance
		}

		g.Go(func() error {
			msgs, err := fetchAll[bugMessage](ctx, lp, task.BugLink+"/messages", 0)
			if err != nil {
				return fmt.Errorf("failed to read messages of bug %s: %w", bugs[i].ID, err)
			}
			for _, m := range msgs {
				bugs[i].Messages = append(bugs[i].Messages, Message{Subject: m.Subject, Content: m.Content})
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return bugs, nil
}

// milestoneName turns https://api.launchpad.net/1.0/heat/+milestone/next into "next"
func milestoneName(link *string) string {
	if link == nil || *link == "" {
		return NoMilestone
	}
	return lastSegment(*link)
}

// fetchAll follows next_collection_link until the collection is exhausted
// or limit entries have been read
func fetchAll[T any](ctx context.Context, lp *Launchpad, link string, limit int) ([]T, error) {
	var all []T
	for link != "" {
		var page collection[T]
		if err := lp.getJSON(ctx, link, &page); err != nil {
			return nil, err
		}
		all = append(all, page.Entries...)
		if limit > 0 && len(all) >= limit {
			return all[:limit], nil
		}
		link = page.NextCollectionLink
	}
	return all, nil
}

func (lp *Launchpad) getJSON(ctx context.Context, link string, v any) error {
	if data, ok := lp.cache.get(link); ok {
		logger.Debug("cache hit", "url", link)
		return json.Unmarshal(data, v)
	}

	data, err := lp.get(ctx, link)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("invalid JSON from %s: %w", link, err)
	}

	lp.cache.set(link, data)
	return nil
}

// get fetches link, retrying transport errors and 5xx responses with
// exponential backoff
func (lp *Launchpad) get(ctx context.Context, link string) ([]byte, error) {
	var lastErr error

	maxAttempts := lp.opts.Retries
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	for attempt := range maxAttempts {
		if attempt > 0 {
			logger.Debug("retrying request", "url", link, "attempt", attempt+1, "max_attempts", maxAttempts)
			delay := retryBaseDelay * time.Duration(1<<(attempt-1))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request for %s: %w", link, err)
		}
		req.Header.Set("User-Agent", userAgent)
		req.Header.Set("Accept", "application/json")

		resp, err := lp.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("failed to fetch %s: %w", link, err)
			continue
		}

		data, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("failed to read response from %s: %w", link, err)
			continue
		}

		if resp.StatusCode >= 500 {
			lastErr = &StatusError{URL: link, StatusCode: resp.StatusCode}
			continue
		}
		if resp.StatusCode != http.StatusOK {
			return nil, &StatusError{URL: link, StatusCode: resp.StatusCode}
		}

		logger.Debug("fetched", "url", link, "status", resp.StatusCode, "bytes", len(data))
		return data, nil
	}

	return nil, lastErr
}
