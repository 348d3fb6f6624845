package segment

import "strings"

// WordCount counts whitespace-separated words.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// EstimateTokens gives a rough token count for text, ~1.33 tokens per English word.
// Used to size the generation budget of a chunk, not for splitting.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	tokens := int(float64(WordCount(text)) * 1.33)
	if tokens < 1 {
		tokens = 1
	}
	return tokens
}
