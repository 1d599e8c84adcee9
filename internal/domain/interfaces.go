package domain

import (
	"context"
	"time"
)

// RawDocument is a document as returned by a content extractor.
// It is immutable once fetched.
type RawDocument struct {
	ID          string
	DisplayName string
	MimeType    string
	FullText    string
	OwnerID     string
}

// Chunk is an ordered passage of a document's text. Index is its position
// in the chunk sequence and is used for tie-breaking.
type Chunk struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// ScoredChunk is a chunk paired with its similarity to a query.
type ScoredChunk struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
}

// IndexEntry is the per-document retrieval bundle held by the cache.
type IndexEntry struct {
	DocumentID    string
	DisplayName   string
	MimeType      string
	ContentLength int
	Chunks        []Chunk
	Dictionary    []string
	Matrix        [][]float64
	Keywords      []string
	CreatedAt     time.Time
}

// ChunkCount returns the number of chunks in the entry.
func (e *IndexEntry) ChunkCount() int { return len(e.Chunks) }

// FileInfo describes a listed source file.
type FileInfo struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	MimeType     string   `json:"mime_type"`
	ModifiedTime string   `json:"modified_time,omitempty"`
	Size         int64    `json:"size"`
	Parents      []string `json:"parents,omitempty"`
}

// ContentExtractor fetches and extracts the text of a single document.
// Failures are reported as ContentUnavailableError.
type ContentExtractor interface {
	Extract(ctx context.Context, documentID, credential string) (*RawDocument, error)
}

// FileLister lists the files below a folder.
type FileLister interface {
	ListFiles(ctx context.Context, folder, credential string, recursive bool) ([]FileInfo, error)
}

// Generator produces an answer for one assembled prompt.
// Failures are reported as GenerationUnavailableError.
type Generator interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}

// Chunker splits raw text into ordered, overlapping passages.
type Chunker interface {
	Chunk(text string) []Chunk
}

// KeywordExtractor ranks whole-document terms for summary metadata.
type KeywordExtractor interface {
	Extract(text string, maxKeywords int) []string
}

// AskRequest is a single question about one document on behalf of one user.
type AskRequest struct {
	DocumentID string
	UserID     string
	Credential string
	Question   string
}

// Answer is the outcome of an AskRequest.
type Answer struct {
	ID             string        `json:"id"`
	Question       string        `json:"question"`
	Text           string        `json:"answer"`
	RelevantChunks []ScoredChunk `json:"relevant_chunks"`
	TotalChunks    int           `json:"total_chunks"`
	Keywords       []string      `json:"keywords"`
	FileName       string        `json:"file_name"`
	MimeType       string        `json:"mime_type"`
}

// BatchItem is the outcome of one question inside a batch.
type BatchItem struct {
	Question string `json:"question"`
	Answer   string `json:"answer,omitempty"`
	Success  bool   `json:"success"`
	Error    string `json:"error,omitempty"`
}

// BatchResult aggregates a batch of questions about one document.
type BatchResult struct {
	ID          string      `json:"id"`
	Results     []BatchItem `json:"results"`
	Successful  int         `json:"successful"`
	TotalChunks int         `json:"total_chunks"`
}

// Analysis summarizes the structure of an indexed document.
type Analysis struct {
	FileName       string        `json:"file_name"`
	FileType       string        `json:"file_type"`
	TotalChunks    int           `json:"total_chunks"`
	Keywords       []string      `json:"keywords"`
	ContentLength  int           `json:"content_length"`
	EstimatedPages int           `json:"estimated_pages"`
	Age            time.Duration `json:"age"`
}

// QAService defines the operations exposed by the application core.
type QAService interface {
	Ask(ctx context.Context, req AskRequest) (*Answer, error)
	AskBatch(ctx context.Context, req AskRequest, questions []string) (*BatchResult, error)
	Analyze(ctx context.Context, req AskRequest) (*Analysis, error)
}
