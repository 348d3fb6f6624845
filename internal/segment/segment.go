package segment

import "strings"

// Band maps inputs below MaxWords to Sections.
type Band struct {
	MaxWords int
	Sections int
}

// Bands are the word-count thresholds, in ascending order. Inputs at or above
// the last MaxWords get MaxSections.
var Bands = []Band{
	{MaxWords: 2000, Sections: 10},
	{MaxWords: 4000, Sections: 11},
	{MaxWords: 6000, Sections: 12},
}

const (
	MinSections = 10
	MaxSections = 13
)

// SectionCount picks a target section count from the word count of text.
func SectionCount(text string) int {
	words := WordCount(text)
	for _, b := range Bands {
		if words < b.MaxWords {
			return b.Sections
		}
	}
	return MaxSections
}

// Paragraphs splits text on line breaks and drops blank lines.
func Paragraphs(text string) []string {
	var result []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			result = append(result, line)
		}
	}
	return result
}

// Split groups the paragraphs of text into count chunks. When there are no
// more paragraphs than count, each paragraph is its own chunk. Otherwise the
// first len%count chunks take one extra paragraph so sizes differ by at most one.
func Split(text string, count int) []string {
	paragraphs := Paragraphs(text)
	if count < 1 {
		count = 1
	}
	if len(paragraphs) <= count {
		return paragraphs
	}

	size := len(paragraphs) / count
	remainder := len(paragraphs) % count
	chunks := make([]string, 0, count)

	idx := 0
	for i := range count {
		n := size
		if i < remainder {
			n++
		}
		chunks = append(chunks, strings.Join(paragraphs[idx:idx+n], " "))
		idx += n
	}
	return chunks
}
