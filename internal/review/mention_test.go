package review

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMentionDetectorMatches(t *testing.T) {
	detector := NewMentionDetector("@codecoach")

	tests := []struct {
		name string
		text string
		want bool
	}{
		{
			name: "plain mention",
			text: "@codecoach please review this",
			want: true,
		},
		{
			name: "mention mid-sentence",
			text: "Hey @codecoach, can you take a look?",
			want: true,
		},
		{
			name: "case insensitive",
			text: "Ping @CodeCoach for a review",
			want: true,
		},
		{
			name: "mention at end of line",
			text: "ready for review\n@codecoach",
			want: true,
		},
		{
			name: "empty text",
			text: "",
			want: false,
		},
		{
			name: "no mention",
			text: "please review this PR",
			want: false,
		},
		{
			name: "longer handle is not a mention",
			text: "@codecoacher should look at this",
			want: false,
		},
		{
			name: "email address is not a mention",
			text: "contact us at support@codecoach.example.com",
			want: false,
		},
		{
			name: "host reference is not a mention",
			text: "deployed to @codecoach.internal",
			want: false,
		},
		{
			name: "valid mention after a rejected one",
			text: "mail support@codecoach.example.com or ping @codecoach",
			want: true,
		},
		{
			name: "punctuation after mention is fine",
			text: "thanks, @codecoach!",
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, detector.Matches(tt.text))
		})
	}
}

func TestMentionDetectorEmptyToken(t *testing.T) {
	detector := NewMentionDetector("")
	assert.False(t, detector.Matches("anything at all"))
}

func TestMentionDetectorNormalizesToken(t *testing.T) {
	detector := NewMentionDetector("  @CodeCoach ")
	assert.Equal(t, "@codecoach", detector.Token())
	assert.True(t, detector.Matches("@codecoach review please"))
}
