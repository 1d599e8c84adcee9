package chunker

import (
	"strings"
	"unicode/utf8"

	"askdoc/internal/domain"
)

const (
	// DefaultChunkSize is the target chunk length in characters.
	DefaultChunkSize = 1000
	// DefaultOverlapWords is the number of trailing words carried into the next chunk.
	DefaultOverlapWords = 20
)

// SentenceChunker accumulates whole sentences into chunks of about chunkSize
// characters, seeding each new chunk with the last overlapWords words of the
// previous one.
type SentenceChunker struct {
	chunkSize    int
	overlapWords int
}

func NewSentenceChunker(chunkSize, overlapWords int) *SentenceChunker {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlapWords < 0 {
		overlapWords = 0
	}
	return &SentenceChunker{chunkSize: chunkSize, overlapWords: overlapWords}
}

func (c *SentenceChunker) Chunk(text string) []domain.Chunk {
	parts := Split(text, c.chunkSize, c.overlapWords)
	chunks := make([]domain.Chunk, len(parts))
	for i, p := range parts {
		chunks[i] = domain.Chunk{Index: i, Text: p}
	}
	return chunks
}

// Split breaks text into chunks. A chunk boundary only falls between
// sentences; a single sentence longer than chunkSize becomes a chunk on its
// own. Empty input yields no chunks.
func Split(text string, chunkSize, overlapWords int) []string {
	var (
		chunks []string
		buf    string
	)
	for _, sentence := range Sentences(text) {
		if utf8.RuneCountInString(buf)+utf8.RuneCountInString(sentence) <= chunkSize {
			if buf != "" {
				buf += " "
			}
			buf += sentence
			continue
		}
		if buf == "" {
			buf = sentence
			continue
		}
		flushed := strings.TrimSpace(buf)
		chunks = append(chunks, flushed)
		buf = sentence
		if tail := lastWords(flushed, overlapWords); tail != "" {
			buf = tail + " " + sentence
		}
	}
	if rest := strings.TrimSpace(buf); rest != "" {
		chunks = append(chunks, rest)
	}
	return chunks
}

// Sentences splits text on runs of '.', '!' and '?'. The terminators are
// dropped and each sentence is trimmed; empty sentences are skipped.
func Sentences(text string) []string {
	parts := strings.FieldsFunc(text, isTerminator)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func lastWords(s string, n int) string {
	if n <= 0 {
		return ""
	}
	words := strings.Fields(s)
	if len(words) > n {
		words = words[len(words)-n:]
	}
	return strings.Join(words, " ")
}
