// Package retriever ranks the chunks of one index against a query by cosine
// similarity.
package retriever

import (
	"fmt"
	"math"
	"sort"

	"askdoc/internal/domain"
	"askdoc/internal/embedding/tfidf"
)

// DefaultTopK is the number of chunks forwarded to generation by default.
const DefaultTopK = 3

// CosineSimilarity returns dot(a,b) / (|a|·|b|). It is 0 when either vector
// has zero norm.
func CosineSimilarity(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
	}
	for _, v := range a {
		na += v * v
	}
	for _, v := range b {
		nb += v * v
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// FindRelevantChunks scores every chunk against query and returns the topK
// best, highest first. Equal scores keep their original chunk order.
func FindRelevantChunks(query string, chunks []domain.Chunk, dictionary []string, matrix [][]float64, topK int) ([]domain.ScoredChunk, error) {
	if len(matrix) != len(chunks) {
		return nil, fmt.Errorf("%w: %d chunks but %d vectors", domain.ErrInvalidIndex, len(chunks), len(matrix))
	}
	for i, row := range matrix {
		if len(row) != len(dictionary) {
			return nil, fmt.Errorf("%w: vector %d has %d weights for %d terms", domain.ErrInvalidIndex, i, len(row), len(dictionary))
		}
	}
	if topK <= 0 || len(chunks) == 0 {
		return []domain.ScoredChunk{}, nil
	}
	qv := tfidf.QueryVector(query, dictionary)
	scored := make([]domain.ScoredChunk, len(chunks))
	for i := range chunks {
		scored[i] = domain.ScoredChunk{Chunk: chunks[i], Score: CosineSimilarity(qv, matrix[i])}
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if topK > len(scored) {
		topK = len(scored)
	}
	return scored[:topK], nil
}

// Search runs FindRelevantChunks against a cached index entry.
func Search(query string, entry *domain.IndexEntry, topK int) ([]domain.ScoredChunk, error) {
	if entry == nil {
		return []domain.ScoredChunk{}, nil
	}
	return FindRelevantChunks(query, entry.Chunks, entry.Dictionary, entry.Matrix, topK)
}
