package insight

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInsights(t *testing.T) {
	str := func(s string) *string { return &s }

	tests := []struct {
		name      string
		content   string
		summary   string
		topics    []string
		title     *string
		sentiment *string
	}{
		{
			name:      "well formed",
			content:   `{"summary":"A short summary.","topics":["ai","policy","ethics"],"title":"AI Rules","sentiment":"positive"}`,
			summary:   "A short summary.",
			topics:    []string{"ai", "policy", "ethics"},
			title:     str("AI Rules"),
			sentiment: str("positive"),
		},
		{
			name:    "missing fields",
			content: `{}`,
			summary: "",
			topics:  []string{},
		},
		{
			name:    "null summary and title",
			content: `{"summary":null,"title":null,"topics":[]}`,
			summary: "",
			topics:  []string{},
		},
		{
			name:    "topics capped at three",
			content: `{"topics":["a1","b2","c3","d4","e5"]}`,
			topics:  []string{"a1", "b2", "c3"},
		},
		{
			name:    "topics wrong type",
			content: `{"topics":"ai, policy"}`,
			topics:  []string{},
		},
		{
			name:    "non-string topics stringified",
			content: `{"topics":[42,true,{"k":"v"}]}`,
			topics:  []string{"42", "true", `{"k":"v"}`},
		},
		{
			name:      "sentiment normalized",
			content:   `{"sentiment":"  Negative "}`,
			topics:    []string{},
			sentiment: str("negative"),
		},
		{
			name:    "sentiment outside allowed set",
			content: `{"sentiment":"mixed"}`,
			topics:  []string{},
		},
		{
			name:    "sentiment wrong type",
			content: `{"sentiment":1}`,
			topics:  []string{},
		},
		{
			name:    "numeric summary and title",
			content: `{"summary":12.5,"title":2024}`,
			summary: "12.5",
			topics:  []string{},
			title:   str("2024"),
		},
		{
			name:    "empty and null topics kept",
			content: `{"topics":["",null,"ai"]}`,
			topics:  []string{"", "", "ai"},
		},
		{
			name:    "object wrapped in prose",
			content: "Here is the result:\n```json\n{\"summary\":\"wrapped\"}\n```",
			summary: "wrapped",
			topics:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := parseInsights(tt.content)
			require.NoError(t, err)

			assert.Equal(t, tt.summary, result.Summary)
			assert.Equal(t, tt.topics, result.Topics)
			assert.Equal(t, tt.title, result.Title)
			assert.Equal(t, tt.sentiment, result.Sentiment)
		})
	}
}

func TestParseInsightsTruncates(t *testing.T) {
	longTopic := strings.Repeat("t", 60)
	longTitle := strings.Repeat("é", 200)

	result, err := parseInsights(`{"topics":["` + longTopic + `"],"title":"` + longTitle + `"}`)
	require.NoError(t, err)

	require.Len(t, result.Topics, 1)
	assert.Equal(t, 40, len([]rune(result.Topics[0])))
	require.NotNil(t, result.Title)
	assert.Equal(t, 120, len([]rune(*result.Title)))
}

func TestParseInsightsErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty", ""},
		{"plain text", "No JSON here"},
		{"array", `["summary"]`},
		{"null", "null"},
		{"broken object", `{"summary": "unterminated`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseInsights(tt.content)
			assert.Error(t, err)
		})
	}
}
