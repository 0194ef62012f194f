package tracker

import "strings"

// Extractor maps a bug's comment thread to the review identifiers it mentions
type Extractor interface {
	Extract(messages []Message) []string
}

// ExtractorFunc adapts a function to the Extractor interface
type ExtractorFunc func(messages []Message) []string

func (f ExtractorFunc) Extract(messages []Message) []string {
	return f(messages)
}

// FixProposed looks at messages whose subject contains "Fix proposed" (the
// note Gerrit leaves on a bug when a change referencing it is uploaded) and
// takes the last path segment of every line mentioning "Review" as a review
// identifier. Identifiers are returned in first-seen order without repeats.
var FixProposed Extractor = ExtractorFunc(fixProposed)

func fixProposed(messages []Message) []string {
	var ids []string
	seen := make(map[string]bool)

	for _, msg := range messages {
		if !strings.Contains(msg.Subject, "Fix proposed") {
			continue
		}
		for _, line := range strings.Split(msg.Content, "\n") {
			if !strings.Contains(line, "Review") {
				continue
			}
			id := lastSegment(line)
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}
