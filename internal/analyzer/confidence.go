package analyzer

import (
	"math"
	"strings"
)

// idealSummaryWords is the summary length that earns the full brevity score
const idealSummaryWords = 30

// Confidence scores how complete an insight is, in [0, 1] rounded to 3 decimals.
// Half the score is the fraction of populated fields, half is summary length
// relative to idealSummaryWords.
func Confidence(summary string, topics, keywords []string) float64 {
	filled := 0
	if summary != "" {
		filled++
	}
	if len(topics) > 0 {
		filled++
	}
	if len(keywords) > 0 {
		filled++
	}
	fullness := float64(filled) / 3

	brevity := math.Min(1.0, float64(len(strings.Fields(summary)))/idealSummaryWords)

	return math.Round((0.5*fullness+0.5*brevity)*1000) / 1000
}
