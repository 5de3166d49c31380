package analyzer

// keywordStopWords is the closed list of function words never returned as keywords
var keywordStopWords = getStopWords()

// getStopWords returns articles, conjunctions, common prepositions, pronouns
// and auxiliary/modal verbs
func getStopWords() map[string]bool {
	words := []string{
		"the", "a", "an", "and", "or", "but", "if", "while", "of", "for", "on", "in", "at", "to",
		"from", "with", "without", "within", "this", "that", "those", "these", "is", "are", "was",
		"were", "be", "being", "been", "it", "it's", "its", "as", "by", "we", "you", "they", "i",
		"he", "she", "them", "our", "your", "their", "can", "may", "might", "should", "would",
		"could", "will", "just",
	}

	stopWords := make(map[string]bool, len(words))
	for _, word := range words {
		stopWords[word] = true
	}
	return stopWords
}
