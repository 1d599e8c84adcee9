package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"askdoc/internal/cache"
	"askdoc/internal/domain"
	"askdoc/internal/embedding/tfidf"
	"askdoc/internal/logger"
	"askdoc/internal/retriever"
)

// charsPerPage is the rough page size used for page estimates.
const charsPerPage = 2000

// Config holds the tunables of the question-answering pipeline.
type Config struct {
	TopK        int
	MaxKeywords int
}

// RAGServiceImpl answers questions about single documents. Index bundles are
// memoized per (document, user) in the injected cache.
type RAGServiceImpl struct {
	extractor   domain.ContentExtractor
	generator   domain.Generator
	chunker     domain.Chunker
	keywords    domain.KeywordExtractor
	cache       *cache.DocumentIndexCache
	topK        int
	maxKeywords int
	now         func() time.Time
	newID       func() string
}

var _ domain.QAService = (*RAGServiceImpl)(nil)

func NewRAGService(extractor domain.ContentExtractor, generator domain.Generator, chunker domain.Chunker, keywords domain.KeywordExtractor, c *cache.DocumentIndexCache, cfg Config) *RAGServiceImpl {
	if cfg.TopK <= 0 {
		cfg.TopK = retriever.DefaultTopK
	}
	if cfg.MaxKeywords <= 0 {
		cfg.MaxKeywords = 10
	}
	return &RAGServiceImpl{
		extractor:   extractor,
		generator:   generator,
		chunker:     chunker,
		keywords:    keywords,
		cache:       c,
		topK:        cfg.TopK,
		maxKeywords: cfg.MaxKeywords,
		now:         time.Now,
		newID:       uuid.NewString,
	}
}

// ProcessDocument chunks, vectorizes and extracts keywords from fullText.
// Empty text yields an entry with no chunks.
func (s *RAGServiceImpl) ProcessDocument(fullText string) *domain.IndexEntry {
	chunks := s.chunker.Chunk(fullText)
	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}
	ix := tfidf.Build(texts)
	return &domain.IndexEntry{
		ContentLength: utf8.RuneCountInString(fullText),
		Chunks:        chunks,
		Dictionary:    ix.Dictionary,
		Matrix:        ix.Matrix,
		Keywords:      s.keywords.Extract(fullText, s.maxKeywords),
	}
}

// Query ranks the chunks of entry against question. A non-positive topK uses
// the configured default.
func (s *RAGServiceImpl) Query(question string, entry *domain.IndexEntry, topK int) ([]domain.ScoredChunk, error) {
	if topK <= 0 {
		topK = s.topK
	}
	return retriever.Search(question, entry, topK)
}

// Index returns the cached bundle for the request, fetching and processing
// the document on a miss or when the cached bundle is stale.
func (s *RAGServiceImpl) Index(ctx context.Context, req domain.AskRequest) (*domain.IndexEntry, error) {
	if strings.TrimSpace(req.DocumentID) == "" {
		return nil, domain.NewValidationError("document_id", "is required")
	}
	entry, status, err := s.cache.GetOrCompute(ctx, req.DocumentID, req.UserID, func(ctx context.Context) (*domain.IndexEntry, error) {
		logger.Info("Processing document %s (%s)", req.DocumentID, cacheReason(s.cache, req))
		raw, err := s.extractor.Extract(ctx, req.DocumentID, req.Credential)
		if err != nil {
			return nil, fmt.Errorf("extract %s: %w", req.DocumentID, err)
		}
		entry := s.ProcessDocument(raw.FullText)
		entry.DocumentID = raw.ID
		entry.DisplayName = raw.DisplayName
		entry.MimeType = raw.MimeType
		logger.Info("Cached document %s with %d chunks", req.DocumentID, entry.ChunkCount())
		return entry, nil
	})
	if err != nil {
		return nil, err
	}
	if status == cache.Fresh {
		logger.Debug("Using cached document for %s", req.DocumentID)
	}
	return entry, nil
}

func cacheReason(c *cache.DocumentIndexCache, req domain.AskRequest) string {
	if _, status := c.Lookup(req.DocumentID, req.UserID); status == cache.Stale {
		return "cache entry expired"
	}
	return "not in cache"
}

// Ask answers one question about one document.
func (s *RAGServiceImpl) Ask(ctx context.Context, req domain.AskRequest) (*domain.Answer, error) {
	if strings.TrimSpace(req.Question) == "" {
		return nil, domain.NewValidationError("question", "is required")
	}
	entry, err := s.Index(ctx, req)
	if err != nil {
		return nil, err
	}
	relevant, text, err := s.answer(ctx, req.Question, entry)
	if err != nil {
		return nil, err
	}
	return &domain.Answer{
		ID:             s.newID(),
		Question:       req.Question,
		Text:           text,
		RelevantChunks: relevant,
		TotalChunks:    entry.ChunkCount(),
		Keywords:       entry.Keywords,
		FileName:       entry.DisplayName,
		MimeType:       entry.MimeType,
	}, nil
}

// AskBatch answers several questions about one document. The document is
// indexed once; a failing question is recorded without aborting the batch.
func (s *RAGServiceImpl) AskBatch(ctx context.Context, req domain.AskRequest, questions []string) (*domain.BatchResult, error) {
	if len(questions) == 0 {
		return nil, domain.NewValidationError("questions", "at least one question is required")
	}
	entry, err := s.Index(ctx, req)
	if err != nil {
		return nil, err
	}
	res := &domain.BatchResult{ID: s.newID(), TotalChunks: entry.ChunkCount()}
	for _, q := range questions {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		item := domain.BatchItem{Question: q}
		if strings.TrimSpace(q) == "" {
			item.Error = domain.NewValidationError("question", "is required").Error()
			res.Results = append(res.Results, item)
			continue
		}
		_, text, err := s.answer(ctx, q, entry)
		if err != nil {
			logger.Warn("batch question %q failed: %v", q, err)
			item.Error = err.Error()
		} else {
			item.Answer = text
			item.Success = true
			res.Successful++
		}
		res.Results = append(res.Results, item)
	}
	return res, nil
}

// Analyze reports structural metadata for a document.
func (s *RAGServiceImpl) Analyze(ctx context.Context, req domain.AskRequest) (*domain.Analysis, error) {
	entry, err := s.Index(ctx, req)
	if err != nil {
		return nil, err
	}
	return &domain.Analysis{
		FileName:       entry.DisplayName,
		FileType:       entry.MimeType,
		TotalChunks:    entry.ChunkCount(),
		Keywords:       entry.Keywords,
		ContentLength:  entry.ContentLength,
		EstimatedPages: int(math.Ceil(float64(entry.ContentLength) / charsPerPage)),
		Age:            s.now().Sub(entry.CreatedAt),
	}, nil
}

func (s *RAGServiceImpl) answer(ctx context.Context, question string, entry *domain.IndexEntry) ([]domain.ScoredChunk, string, error) {
	relevant, err := s.Query(question, entry, s.topK)
	if err != nil {
		return nil, "", err
	}
	logger.Debug("Using %d relevant chunks out of %d total chunks", len(relevant), entry.ChunkCount())
	text, err := s.generator.Generate(ctx, BuildPrompt(question, entry, relevant))
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", s.generator.Name(), err)
	}
	return relevant, text, nil
}
