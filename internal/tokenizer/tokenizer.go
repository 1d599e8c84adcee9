// Package tokenizer normalizes text into index terms. The same routine is used
// at index time, for keyword extraction and for queries so that the vocabularies
// always agree.
package tokenizer

import (
	"strings"
	"unicode"
)

// MinTokenLength is the shortest token kept; shorter words are dropped.
const MinTokenLength = 3

var stopwords = func() map[string]struct{} {
	words := []string{
		"the", "a", "an", "and", "or", "but", "in", "on", "at", "to", "for", "of", "with", "by",
		"is", "are", "was", "were", "be", "been", "have", "has", "had", "do", "does", "did",
		"will", "would", "could", "should", "may", "might", "can", "this", "that", "these", "those",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}()

// Tokenize lowercases text, splits it into words and keeps only words that are
// purely alphabetic, at least MinTokenLength long and not stopwords.
func Tokenize(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), isSeparator)
	tokens := make([]string, 0, len(words))
	for _, w := range words {
		if len(w) < MinTokenLength || !isAlpha(w) || IsStopword(w) {
			continue
		}
		tokens = append(tokens, w)
	}
	return tokens
}

// IsStopword reports whether the lowercase word is in the stopword set.
func IsStopword(word string) bool {
	_, ok := stopwords[word]
	return ok
}

// isSeparator splits on anything that is not a word character.
func isSeparator(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
}

func isAlpha(w string) bool {
	for i := 0; i < len(w); i++ {
		if w[i] < 'a' || w[i] > 'z' {
			return false
		}
	}
	return true
}
