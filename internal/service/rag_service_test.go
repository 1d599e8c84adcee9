package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"askdoc/internal/cache"
	"askdoc/internal/chunker"
	"askdoc/internal/domain"
	"askdoc/internal/keywords"
)

const animals = "Cats are mammals. Dogs are mammals too. Fish are not mammals."

type fakeExtractor struct {
	mu    sync.Mutex
	docs  map[string]*domain.RawDocument
	calls int
	err   error
}

func (f *fakeExtractor) Extract(_ context.Context, documentID, _ string) (*domain.RawDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	doc, ok := f.docs[documentID]
	if !ok {
		return nil, domain.NewContentUnavailableError(documentID, "not found", nil)
	}
	return doc, nil
}

func (f *fakeExtractor) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeGenerator struct {
	mu      sync.Mutex
	prompts []string
	failOn  string
}

func (g *fakeGenerator) Name() string { return "fake" }

func (g *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, prompt)
	if g.failOn != "" && strings.Contains(prompt, g.failOn) {
		return "", &domain.GenerationUnavailableError{Status: 503}
	}
	return "answer", nil
}

type fixture struct {
	svc       *RAGServiceImpl
	extractor *fakeExtractor
	generator *fakeGenerator
	cache     *cache.DocumentIndexCache
	now       time.Time
}

func newFixture(t *testing.T, chunkSize int) *fixture {
	t.Helper()
	f := &fixture{now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	c, err := cache.New(cache.WithClock(func() time.Time { return f.now }))
	require.NoError(t, err)
	f.cache = c
	f.extractor = &fakeExtractor{docs: map[string]*domain.RawDocument{
		"doc1": {ID: "doc1", DisplayName: "animals.txt", MimeType: "text/plain", FullText: animals},
		"empty": {ID: "empty", DisplayName: "empty.txt", MimeType: "text/plain", FullText: ""},
	}}
	f.generator = &fakeGenerator{}
	f.svc = NewRAGService(f.extractor, f.generator, chunker.NewSentenceChunker(chunkSize, 0),
		keywords.NewFrequencyExtractor(), c, Config{TopK: 2, MaxKeywords: 3})
	f.svc.now = func() time.Time { return f.now }
	f.svc.newID = func() string { return "id-1" }
	return f
}

func TestProcessDocument(t *testing.T) {
	f := newFixture(t, 1000)

	entry := f.svc.ProcessDocument(animals)

	require.Equal(t, 1, entry.ChunkCount())
	assert.Len(t, entry.Matrix, 1)
	assert.Len(t, entry.Matrix[0], len(entry.Dictionary))
	assert.Equal(t, []string{"mammals", "cats", "dogs"}, entry.Keywords)
	assert.Equal(t, len(animals), entry.ContentLength)
}

func TestProcessDocument_Empty(t *testing.T) {
	f := newFixture(t, 1000)

	entry := f.svc.ProcessDocument("")

	assert.Equal(t, 0, entry.ChunkCount())
	assert.Empty(t, entry.Matrix)
	assert.Empty(t, entry.Keywords)

	got, err := f.svc.Query("anything", entry, 3)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestQuery_UsesDefaultTopK(t *testing.T) {
	f := newFixture(t, 20)
	entry := f.svc.ProcessDocument(animals)

	got, err := f.svc.Query("fish", entry, 0)

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Fish are not mammals", got[0].Chunk.Text)
}

func TestAsk(t *testing.T) {
	f := newFixture(t, 20)

	ans, err := f.svc.Ask(context.Background(), domain.AskRequest{DocumentID: "doc1", UserID: "u1", Question: "Are fish mammals?"})

	require.NoError(t, err)
	assert.Equal(t, "id-1", ans.ID)
	assert.Equal(t, "answer", ans.Text)
	assert.Equal(t, 3, ans.TotalChunks)
	assert.Equal(t, "animals.txt", ans.FileName)
	require.Len(t, ans.RelevantChunks, 2)
	assert.Equal(t, "Fish are not mammals", ans.RelevantChunks[0].Chunk.Text)

	require.Len(t, f.generator.prompts, 1)
	prompt := f.generator.prompts[0]
	assert.Contains(t, prompt, "User Question: Are fish mammals?")
	assert.Contains(t, prompt, "Fish are not mammals")
	assert.Contains(t, prompt, "- File Name: animals.txt")
}

func TestAsk_ReusesCacheWithinTTL(t *testing.T) {
	f := newFixture(t, 20)
	req := domain.AskRequest{DocumentID: "doc1", UserID: "u1", Question: "dogs?"}

	_, err := f.svc.Ask(context.Background(), req)
	require.NoError(t, err)
	f.now = f.now.Add(29 * time.Minute)
	_, err = f.svc.Ask(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 1, f.extractor.Calls())
}

func TestAsk_RecomputesWhenStale(t *testing.T) {
	f := newFixture(t, 20)
	req := domain.AskRequest{DocumentID: "doc1", UserID: "u1", Question: "dogs?"}

	_, err := f.svc.Ask(context.Background(), req)
	require.NoError(t, err)
	f.now = f.now.Add(31 * time.Minute)
	_, err = f.svc.Ask(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 2, f.extractor.Calls())
}

func TestAsk_CacheIsPerUser(t *testing.T) {
	f := newFixture(t, 20)

	_, err := f.svc.Ask(context.Background(), domain.AskRequest{DocumentID: "doc1", UserID: "u1", Question: "dogs?"})
	require.NoError(t, err)
	_, err = f.svc.Ask(context.Background(), domain.AskRequest{DocumentID: "doc1", UserID: "u2", Question: "dogs?"})
	require.NoError(t, err)

	assert.Equal(t, 2, f.extractor.Calls())
}

func TestAsk_Validation(t *testing.T) {
	f := newFixture(t, 20)

	_, err := f.svc.Ask(context.Background(), domain.AskRequest{DocumentID: "doc1"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.svc.Ask(context.Background(), domain.AskRequest{Question: "why?"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	assert.Equal(t, 0, f.extractor.Calls())
}

func TestAsk_ContentUnavailablePassesThrough(t *testing.T) {
	f := newFixture(t, 20)

	_, err := f.svc.Ask(context.Background(), domain.AskRequest{DocumentID: "missing", Question: "why?"})

	assert.ErrorIs(t, err, domain.ErrContentUnavailable)
	assert.Equal(t, 0, f.cache.Len())
	assert.Empty(t, f.generator.prompts)
}

func TestAsk_ExtractorErrorIsNotRetried(t *testing.T) {
	f := newFixture(t, 20)
	boom := errors.New("network down")
	f.extractor.err = boom

	_, err := f.svc.Ask(context.Background(), domain.AskRequest{DocumentID: "doc1", Question: "why?"})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, f.extractor.Calls())
}

func TestAsk_GenerationUnavailablePassesThrough(t *testing.T) {
	f := newFixture(t, 20)
	f.generator.failOn = "User Question"

	_, err := f.svc.Ask(context.Background(), domain.AskRequest{DocumentID: "doc1", Question: "why?"})

	assert.ErrorIs(t, err, domain.ErrGenerationUnavailable)
}

func TestAsk_EmptyDocument(t *testing.T) {
	f := newFixture(t, 20)

	ans, err := f.svc.Ask(context.Background(), domain.AskRequest{DocumentID: "empty", Question: "anything?"})

	require.NoError(t, err)
	assert.Equal(t, 0, ans.TotalChunks)
	assert.Empty(t, ans.RelevantChunks)
}

func TestAsk_ConcurrentRequestsIndexOnce(t *testing.T) {
	f := newFixture(t, 20)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Ask(context.Background(), domain.AskRequest{DocumentID: "doc1", UserID: "u1", Question: "fish?"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, f.extractor.Calls())
}

func TestAskBatch(t *testing.T) {
	f := newFixture(t, 20)
	f.generator.failOn = "User Question: broken"

	res, err := f.svc.AskBatch(context.Background(), domain.AskRequest{DocumentID: "doc1", UserID: "u1"},
		[]string{"Are fish mammals?", "broken", "", "dogs?"})

	require.NoError(t, err)
	assert.Equal(t, "id-1", res.ID)
	assert.Equal(t, 3, res.TotalChunks)
	assert.Equal(t, 2, res.Successful)
	require.Len(t, res.Results, 4)
	assert.True(t, res.Results[0].Success)
	assert.False(t, res.Results[1].Success)
	assert.Contains(t, res.Results[1].Error, "generation unavailable")
	assert.False(t, res.Results[2].Success)
	assert.Contains(t, res.Results[2].Error, "question")
	assert.True(t, res.Results[3].Success)
	assert.Equal(t, 1, f.extractor.Calls())
}

func TestAskBatch_RequiresQuestions(t *testing.T) {
	f := newFixture(t, 20)

	_, err := f.svc.AskBatch(context.Background(), domain.AskRequest{DocumentID: "doc1"}, nil)

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestAnalyze(t *testing.T) {
	f := newFixture(t, 20)
	req := domain.AskRequest{DocumentID: "doc1", UserID: "u1"}

	_, err := f.svc.Analyze(context.Background(), req)
	require.NoError(t, err)
	f.now = f.now.Add(5 * time.Minute)
	a, err := f.svc.Analyze(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, "animals.txt", a.FileName)
	assert.Equal(t, "text/plain", a.FileType)
	assert.Equal(t, 3, a.TotalChunks)
	assert.Equal(t, len(animals), a.ContentLength)
	assert.Equal(t, 1, a.EstimatedPages)
	assert.Equal(t, 5*time.Minute, a.Age)
	assert.Equal(t, []string{"mammals", "cats", "dogs"}, a.Keywords)
}
