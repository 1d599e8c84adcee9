package keywords

import (
	"sort"

	"askdoc/internal/tokenizer"
)

// DefaultMaxKeywords is the keyword count used when none is configured.
const DefaultMaxKeywords = 10

// FrequencyExtractor ranks terms by raw whole-document frequency.
type FrequencyExtractor struct{}

// NewFrequencyExtractor creates a frequency-based keyword extractor.
func NewFrequencyExtractor() *FrequencyExtractor {
	return &FrequencyExtractor{}
}

// Extract returns up to maxKeywords tokens ordered by descending frequency,
// ties broken by first occurrence.
func (e *FrequencyExtractor) Extract(text string, maxKeywords int) []string {
	return Extract(text, maxKeywords)
}

// Extract is the package-level form of FrequencyExtractor.Extract.
func Extract(text string, maxKeywords int) []string {
	if maxKeywords <= 0 {
		return []string{}
	}
	freq := map[string]int{}
	var order []string
	for _, tok := range tokenizer.Tokenize(text) {
		if freq[tok] == 0 {
			order = append(order, tok)
		}
		freq[tok]++
	}
	sort.SliceStable(order, func(i, j int) bool { return freq[order[i]] > freq[order[j]] })
	if maxKeywords > len(order) {
		maxKeywords = len(order)
	}
	out := make([]string, maxKeywords)
	copy(out, order)
	return out
}
