package tracker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFixProposed(t *testing.T) {
	tests := []struct {
		name     string
		messages []Message
		want     []string
	}{
		{
			name: "gerrit note",
			messages: []Message{
				{Subject: "Re: heat fails", Content: "I can reproduce this.\nReview later"},
				{Subject: "Fix proposed to heat (master)", Content: "Fix proposed to branch: master\nReview: https://review.openstack.org/12345"},
			},
			want: []string{"12345"},
		},
		{
			name: "new style review url",
			messages: []Message{
				{Subject: "Fix proposed to nova (master)", Content: "Review: https://review.opendev.org/c/openstack/nova/+/880011/"},
			},
			want: []string{"880011"},
		},
		{
			name: "several branches keep order without repeats",
			messages: []Message{
				{Subject: "Fix proposed to heat (master)", Content: "Review: https://review.openstack.org/2"},
				{Subject: "Fix proposed to heat (stable/zed)", Content: "Review: https://review.openstack.org/1\nReview: https://review.openstack.org/2"},
			},
			want: []string{"2", "1"},
		},
		{
			name: "review lines outside fix proposed notes are ignored",
			messages: []Message{
				{Subject: "Fix merged to heat (master)", Content: "Reviewed: https://review.openstack.org/99"},
			},
			want: nil,
		},
		{
			name:     "no messages",
			messages: nil,
			want:     nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FixProposed.Extract(tt.messages))
		})
	}
}

func TestExtractorFunc(t *testing.T) {
	var e Extractor = ExtractorFunc(func(messages []Message) []string {
		return []string{messages[0].Subject}
	})
	assert.Equal(t, []string{"custom"}, e.Extract([]Message{{Subject: "custom"}}))
}

func TestLastSegment(t *testing.T) {
	assert.Equal(t, "12", lastSegment("Review: https://x/12"))
	assert.Equal(t, "next", lastSegment("https://api.launchpad.net/1.0/heat/+milestone/next/"))
	assert.Equal(t, "plain", lastSegment(" plain "))
	assert.Equal(t, "", lastSegment("/"))
}

func TestBugString(t *testing.T) {
	assert.Equal(t, "bug 7", Bug{ID: "7"}.String())
	assert.Equal(t, "bug 7: crash", Bug{ID: "7", Title: "crash"}.String())
}
