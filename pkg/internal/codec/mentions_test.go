package codec

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractMentions(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "bare words and emails, duplicates collapsed",
			text: "hi @alice and @alice again, cc @bob@example.com",
			want: []string{"alice", "bob@example.com"},
		},
		{
			name: "dotted local part",
			text: "ping @jane.doe@corp.example.org please",
			want: []string{"jane.doe@corp.example.org"},
		},
		{
			name: "first occurrence order",
			text: "@zoe then @adam then @zoe",
			want: []string{"zoe", "adam"},
		},
		{
			name: "no mentions",
			text: "plain text with an email-less at sign @ alone",
			want: []string{},
		},
		{
			name: "empty input",
			text: "",
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractMentions(tt.text))
		})
	}
}

func TestExtractMentionsStable(t *testing.T) {
	// Re-extracting from a string rebuilt out of the extracted mentions
	// must not change the result; submission and render paths depend on
	// byte-identical matching.
	text := "cc @alice @bob@example.com @alice"
	first := ExtractMentions(text)

	rebuilt := "@" + strings.Join(first, " @")
	second := ExtractMentions(rebuilt)

	assert.Equal(t, first, second)
}
