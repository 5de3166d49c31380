package analyzer

import (
	"reflect"
	"strings"
	"testing"
)

func TestExtractKeywords(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{"empty string", "", []string{}},
		{"only stop words", "The and of it is were", []string{}},
		{"frequency then first occurrence", "The cat sat on the mat. The cat ran.", []string{"cat", "sat", "mat"}},
		{"case insensitive", "Python FastAPI python API", []string{"python", "fastapi", "api"}},
		{"verb and adverb forms skipped", "running quickly jumped dog dog", []string{"dog"}},
		{"numbers and single letters discarded", "42 a1 x 2024", []string{}},
		{"hyphens and apostrophes kept", "state-of-the-art don't", []string{"state-of-the-art", "don't"}},
		{"never pads", "kubernetes", []string{"kubernetes"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractKeywords(tt.input)
			if got == nil {
				t.Fatal("expected non-nil slice")
			}
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestExtractKeywordsOnlyRanksTopCandidates(t *testing.T) {
	// 50 distinct words seen twice outrank a later word seen once
	var b strings.Builder
	for i := 0; i < 50; i++ {
		w := "w" + strings.Repeat(string(rune('a'+i%26)), 1+i/26) + "ing"
		b.WriteString(w + " " + w + " ")
	}
	b.WriteString("zebra")

	got := ExtractKeywords(b.String())
	if len(got) != 0 {
		t.Errorf("expected no keywords outside the top candidates, got %v", got)
	}
}

func TestExtractKeywordsDeterministic(t *testing.T) {
	text := "Distributed systems need consensus. Consensus protocols like raft keep systems consistent."
	first := ExtractKeywords(text)
	for i := 0; i < 10; i++ {
		if got := ExtractKeywords(text); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d: expected %v, got %v", i, first, got)
		}
	}
	if !reflect.DeepEqual(first, []string{"systems", "consensus", "protocols"}) {
		t.Errorf("unexpected keywords %v", first)
	}
}
