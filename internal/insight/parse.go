package insight

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/zombar/knowledgeextractor/internal/models"
)

const (
	maxTopics     = 3
	maxTopicChars = 40
	maxTitleChars = 120
)

// Result is the sanitized insight returned by the model
type Result struct {
	Summary   string
	Topics    []string
	Title     *string
	Sentiment *string
}

// parseInsights decodes a model response. Only an undecodable response is an
// error; each field that has the wrong shape is downgraded to its empty value.
func parseInsights(content string) (Result, error) {
	data, err := decodeObject(content)
	if err != nil {
		return Result{}, err
	}

	result := Result{Topics: []string{}}

	if v, ok := data["summary"]; ok && v != nil {
		result.Summary = stringify(v)
	}

	if raw, ok := data["topics"].([]any); ok {
		if len(raw) > maxTopics {
			raw = raw[:maxTopics]
		}
		// empty topics are kept here; they count toward confidence and are
		// dropped when the list is stored
		for _, t := range raw {
			result.Topics = append(result.Topics, truncate(stringify(t), maxTopicChars))
		}
	}

	if v, ok := data["title"]; ok && v != nil {
		title := truncate(stringify(v), maxTitleChars)
		result.Title = &title
	}

	if s, ok := data["sentiment"].(string); ok {
		sentiment := strings.ToLower(strings.TrimSpace(s))
		if models.IsValidSentiment(sentiment) {
			result.Sentiment = &sentiment
		}
	}

	return result, nil
}

// decodeObject parses content as a JSON object. Models sometimes wrap the
// object in prose or code fences, so when the whole answer is not an object
// the outermost {...} block is tried next. This is looser than requiring the
// answer to be exactly one JSON object, and is deliberate.
func decodeObject(content string) (map[string]any, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, errors.New("empty response")
	}

	obj, err := decodeStrict(content)
	if err == nil {
		return obj, nil
	}

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object found in response: %w", err)
	}

	obj, err = decodeStrict(content[start : end+1])
	if err != nil {
		return nil, fmt.Errorf("failed to parse insights JSON: %w", err)
	}
	return obj, nil
}

func decodeStrict(s string) (map[string]any, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()

	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, errors.New("response is not a JSON object")
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("unexpected data after JSON object")
	}
	return obj, nil
}

// stringify renders any decoded JSON value as text
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}

// truncate cuts s to at most n characters
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
