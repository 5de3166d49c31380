package analyzer

import (
	"regexp"
	"sort"
	"strings"
)

const (
	maxKeywords       = 3
	keywordCandidates = 50
)

var (
	// a letter followed by at least one letter, hyphen or apostrophe
	keywordTokenPattern = regexp.MustCompile(`[a-z][a-z\-']+`)
	// verb and adverb endings; nouns are preferred as keywords
	keywordSuffixPattern = regexp.MustCompile(`(ing|ed|ly)$`)
)

// ExtractKeywords returns up to three representative keywords from text.
// Tokens are ranked by frequency with ties kept in first-occurrence order,
// then the first three that do not look like verb or adverb forms are kept.
func ExtractKeywords(text string) []string {
	tokens := keywordTokenPattern.FindAllString(strings.ToLower(text), -1)

	type wordCount struct {
		word  string
		count int
	}
	var counts []wordCount
	index := make(map[string]int)
	for _, token := range tokens {
		if keywordStopWords[token] {
			continue
		}
		if i, ok := index[token]; ok {
			counts[i].count++
			continue
		}
		index[token] = len(counts)
		counts = append(counts, wordCount{token, 1})
	}

	sort.SliceStable(counts, func(i, j int) bool {
		return counts[i].count > counts[j].count
	})
	if len(counts) > keywordCandidates {
		counts = counts[:keywordCandidates]
	}

	keywords := make([]string, 0, maxKeywords)
	for _, c := range counts {
		if len(keywords) >= maxKeywords {
			break
		}
		if keywordSuffixPattern.MatchString(c.word) {
			continue
		}
		keywords = append(keywords, c.word)
	}
	return keywords
}
