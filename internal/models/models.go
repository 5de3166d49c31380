package models

import (
	"strings"
	"time"
)

// ListDelimiter separates topics and keywords in their stored column
const ListDelimiter = ","

// Sentiment values accepted from the model. An empty string means unknown.
const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"
)

// Analysis is one persisted insight extraction
type Analysis struct {
	ID           int64     `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	OriginalText string    `json:"original_text"`
	Summary      string    `json:"summary"`
	Title        *string   `json:"title"`
	Topics       []string  `json:"topics"`
	Sentiment    string    `json:"sentiment"`
	Keywords     []string  `json:"keywords"`
	Confidence   *float64  `json:"confidence"`
}

// NewAnalysis holds the caller-supplied fields of an analysis.
// The store assigns ID and CreatedAt.
type NewAnalysis struct {
	OriginalText string
	Summary      string
	Title        *string
	Topics       []string
	Sentiment    string
	Keywords     []string
	Confidence   *float64
}

// EncodeList joins values into the stored scalar form. Elements are kept
// verbatim except that the delimiter, which cannot survive inside an element,
// is replaced with a space. Empty elements are dropped.
func EncodeList(values []string) string {
	clean := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ReplaceAll(v, ListDelimiter, " ")
		if v == "" {
			continue
		}
		clean = append(clean, v)
	}
	return strings.Join(clean, ListDelimiter)
}

// DecodeList splits a stored scalar back into its elements, skipping empty segments
func DecodeList(encoded string) []string {
	values := []string{}
	for _, v := range strings.Split(encoded, ListDelimiter) {
		if v != "" {
			values = append(values, v)
		}
	}
	return values
}

// TopicsList returns the decoded topics, never nil
func (a *Analysis) TopicsList() []string {
	if a.Topics == nil {
		return []string{}
	}
	return a.Topics
}

// KeywordsList returns the decoded keywords, never nil
func (a *Analysis) KeywordsList() []string {
	if a.Keywords == nil {
		return []string{}
	}
	return a.Keywords
}

// IsValidSentiment reports whether s is one of the three accepted labels
func IsValidSentiment(s string) bool {
	switch s {
	case SentimentPositive, SentimentNegative, SentimentNeutral:
		return true
	}
	return false
}
