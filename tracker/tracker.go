// Package tracker queries bug trackers for in-progress bugs and the review
// identifiers mentioned in their comment threads.
package tracker

import (
	"context"
	"fmt"
	"strings"
)

// NoMilestone labels bugs that are not targeted to any milestone
const NoMilestone = "None"

// UnknownImportance is used when a tracker has no importance for a bug
const UnknownImportance = "Undecided"

// Message is one entry of a bug's comment thread
type Message struct {
	Subject string
	Content string
}

// Bug is an in-progress bug as reported by a tracker
type Bug struct {
	ID         string
	Title      string
	Link       string
	Milestone  string // milestone name, NoMilestone when unset
	Importance string
	Messages   []Message
}

func (b Bug) String() string {
	if b.Title == "" {
		return "bug " + b.ID
	}
	return fmt.Sprintf("bug %s: %s", b.ID, b.Title)
}

// Tracker returns the in-progress bugs of a project
type Tracker interface {
	InProgress(ctx context.Context, project string) ([]Bug, error)
}

// StatusError reports an unexpected HTTP status from a tracker API
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("request to %s failed: status %d", e.URL, e.StatusCode)
}

// lastSegment returns the part of s after the final '/', ignoring trailing slashes
func lastSegment(s string) string {
	s = strings.TrimRight(strings.TrimSpace(s), "/")
	if i := strings.LastIndexByte(s, '/'); i >= 0 {
		return s[i+1:]
	}
	return s
}
