// Package tfidf builds a term-frequency × inverse-document-frequency index over
// a chunk sequence.
//
// The dictionary holds every distinct token in first-seen order and each row
// of the matrix is aligned to it. Weights are
//
//	tf(chunk, term) * ln(chunkCount / (df(term) + 1))
//
// with no normalization; cosine similarity normalizes at comparison time.
package tfidf

import (
	"math"

	"askdoc/internal/tokenizer"
)

// Index is the dictionary and weight matrix of one chunk sequence.
type Index struct {
	Dictionary []string
	Matrix     [][]float64
	positions  map[string]int
}

// Build tokenizes every chunk and computes its TF-IDF weight vector.
func Build(chunks []string) *Index {
	ix := &Index{
		Dictionary: []string{},
		Matrix:     make([][]float64, len(chunks)),
		positions:  make(map[string]int),
	}
	counts := make([]map[int]int, len(chunks))
	var df []int
	for i, text := range chunks {
		counts[i] = make(map[int]int)
		for _, tok := range tokenizer.Tokenize(text) {
			pos, ok := ix.positions[tok]
			if !ok {
				pos = len(ix.Dictionary)
				ix.positions[tok] = pos
				ix.Dictionary = append(ix.Dictionary, tok)
				df = append(df, 0)
			}
			if counts[i][pos] == 0 {
				df[pos]++
			}
			counts[i][pos]++
		}
	}
	n := float64(len(chunks))
	idf := make([]float64, len(ix.Dictionary))
	for pos := range idf {
		idf[pos] = math.Log(n / float64(df[pos]+1))
	}
	for i := range chunks {
		vec := make([]float64, len(ix.Dictionary))
		for pos, tf := range counts[i] {
			vec[pos] = float64(tf) * idf[pos]
		}
		ix.Matrix[i] = vec
	}
	return ix
}

// BuildIndex is Build returning the dictionary and matrix separately.
func BuildIndex(chunks []string) ([]string, [][]float64) {
	ix := Build(chunks)
	return ix.Dictionary, ix.Matrix
}

// QueryVector returns the binary presence vector of text over the index dictionary.
func (ix *Index) QueryVector(text string) []float64 {
	vec := make([]float64, len(ix.Dictionary))
	for _, tok := range tokenizer.Tokenize(text) {
		if pos, ok := ix.positions[tok]; ok {
			vec[pos] = 1
		}
	}
	return vec
}

// QueryVector returns the binary presence vector of text over dictionary.
// Queries are short, so raw frequency is not used.
func QueryVector(text string, dictionary []string) []float64 {
	positions := make(map[string]int, len(dictionary))
	for i, term := range dictionary {
		if _, ok := positions[term]; !ok {
			positions[term] = i
		}
	}
	ix := &Index{Dictionary: dictionary, positions: positions}
	return ix.QueryVector(text)
}
