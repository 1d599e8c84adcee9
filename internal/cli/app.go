package cli

import (
	"fmt"
	"os"
	"time"

	"askdoc/internal/cache"
	"askdoc/internal/chunker"
	"askdoc/internal/config"
	"askdoc/internal/domain"
	"askdoc/internal/extractor/drive"
	"askdoc/internal/extractor/local"
	"askdoc/internal/generation/gemini"
	"askdoc/internal/keywords"
	"askdoc/internal/service"
)

// source is a document source that can both extract and list.
type source interface {
	domain.ContentExtractor
	domain.FileLister
}

// buildService and buildLister assemble components from configuration.
// Tests replace them with fakes.
var (
	buildService = newService
	buildLister  = func(cfg *config.AppConfig) (domain.FileLister, error) { return newSource(cfg) }
)

func qaService() (domain.QAService, error) {
	if appConfig == nil {
		return nil, errNoConfig
	}
	return buildService(appConfig)
}

func fileLister() (domain.FileLister, error) {
	if appConfig == nil {
		return nil, errNoConfig
	}
	return buildLister(appConfig)
}

func newSource(cfg *config.AppConfig) (source, error) {
	switch cfg.Source.Type {
	case "local", "":
		return local.New(), nil
	case "drive":
		dc := config.DriveConfig{}
		if cfg.Source.Drive != nil {
			dc = *cfg.Source.Drive
		}
		tokenEnv := dc.TokenEnv
		if tokenEnv == "" {
			tokenEnv = "GOOGLE_ACCESS_TOKEN"
		}
		return drive.New(drive.Config{
			Token:     os.Getenv(tokenEnv),
			RateLimit: drive.RateLimitConfig{RequestsPerSecond: dc.RequestsPerSecond, BurstSize: dc.Burst},
			MaxDepth:  dc.MaxDepth,
		}), nil
	default:
		return nil, fmt.Errorf("%w: source %q", domain.ErrUnsupportedType, cfg.Source.Type)
	}
}

func newService(cfg *config.AppConfig) (domain.QAService, error) {
	src, err := newSource(cfg)
	if err != nil {
		return nil, err
	}

	var gen domain.Generator
	switch cfg.Generator.Type {
	case "gemini", "":
		gen, err = gemini.NewClient(gemini.Config{
			BaseURL:    cfg.Generator.BaseURL,
			APIKeyEnv:  cfg.Generator.APIKeyEnv,
			Model:      cfg.Generator.Model,
			Timeout:    time.Duration(cfg.Generator.TimeoutSecs) * time.Second,
			MaxRetries: cfg.Generator.MaxRetries,
		})
		if err != nil {
			return nil, fmt.Errorf("gemini generator init failed: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: generator %q", domain.ErrUnsupportedType, cfg.Generator.Type)
	}

	var ch domain.Chunker
	switch cfg.Chunker.Type {
	case "sentence", "":
		ch = chunker.NewSentenceChunker(cfg.Chunker.ChunkSize, cfg.Chunker.OverlapWords)
	default:
		return nil, fmt.Errorf("%w: chunker %q", domain.ErrUnsupportedType, cfg.Chunker.Type)
	}

	var kw domain.KeywordExtractor
	switch cfg.Keywords.Type {
	case "frequency", "":
		kw = keywords.NewFrequencyExtractor()
	default:
		return nil, fmt.Errorf("%w: keywords %q", domain.ErrUnsupportedType, cfg.Keywords.Type)
	}

	c, err := cache.New(cache.WithTTL(cfg.Cache.TTL()), cache.WithCapacity(cfg.Cache.Capacity))
	if err != nil {
		return nil, err
	}

	return service.NewRAGService(src, gen, ch, kw, c, service.Config{
		TopK:        cfg.Retriever.TopK,
		MaxKeywords: cfg.Keywords.MaxKeywords,
	}), nil
}

// request builds the AskRequest shared by the document commands.
func request(documentID string) domain.AskRequest {
	return domain.AskRequest{DocumentID: documentID, UserID: userID, Credential: credential}
}
