package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"askdoc/internal/domain"
)

// ChunkerConfig configures how documents are split into chunks.
type ChunkerConfig struct {
	Type         string `yaml:"type" toml:"type"`
	ChunkSize    int    `yaml:"chunk_size" toml:"chunk_size"`
	OverlapWords int    `yaml:"overlap_words" toml:"overlap_words"`
}

// RetrieverConfig configures chunk ranking.
type RetrieverConfig struct {
	TopK int `yaml:"top_k" toml:"top_k"`
}

// KeywordsConfig selects and configures the keyword extractor.
type KeywordsConfig struct {
	Type        string `yaml:"type" toml:"type"`
	MaxKeywords int    `yaml:"max_keywords" toml:"max_keywords"`
}

// CacheConfig bounds the per-document index cache.
type CacheConfig struct {
	TTLMinutes int `yaml:"ttl_minutes" toml:"ttl_minutes"`
	Capacity   int `yaml:"capacity" toml:"capacity"`
}

// TTL returns the configured time-to-live.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLMinutes) * time.Minute
}

// GeneratorConfig holds configuration for the Gemini text generator.
type GeneratorConfig struct {
	Type        string `yaml:"type" toml:"type"`
	BaseURL     string `yaml:"base_url" toml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env" toml:"api_key_env"`
	Model       string `yaml:"model" toml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs" toml:"timeout_secs"`
	MaxRetries  int    `yaml:"max_retries" toml:"max_retries"`
}

// DriveConfig contains connection details for the Google Drive source.
type DriveConfig struct {
	TokenEnv          string  `yaml:"token_env" toml:"token_env"`
	RequestsPerSecond float64 `yaml:"requests_per_second" toml:"requests_per_second"`
	Burst             int     `yaml:"burst" toml:"burst"`
	MaxDepth          int     `yaml:"max_depth" toml:"max_depth"`
}

// SourceConfig selects where documents are read from.
type SourceConfig struct {
	Type  string       `yaml:"type" toml:"type"`
	Drive *DriveConfig `yaml:"drive,omitempty" toml:"drive,omitempty"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Chunker   ChunkerConfig   `yaml:"chunker" toml:"chunker"`
	Retriever RetrieverConfig `yaml:"retriever" toml:"retriever"`
	Keywords  KeywordsConfig  `yaml:"keywords" toml:"keywords"`
	Cache     CacheConfig     `yaml:"cache" toml:"cache"`
	Generator GeneratorConfig `yaml:"generator" toml:"generator"`
	Source    SourceConfig    `yaml:"source" toml:"source"`
}

// Load reads a config from a specified path. TOML is used for .toml files and
// YAML otherwise. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	// Keys absent from the file keep their default values.
	cfg := Default()
	if isTOML(path) {
		err = toml.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, err
	}
	applyConfigDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/askdoc/config.yaml.
// If neither exists, it writes defaults to ~/.config/askdoc/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := Default()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	var (
		data []byte
		err  error
	)
	if isTOML(path) {
		data, err = toml.Marshal(cfg)
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate rejects settings no component can work with.
func (c *AppConfig) Validate() error {
	switch {
	case c.Chunker.ChunkSize < 0:
		return domain.NewValidationError("chunker.chunk_size", "must not be negative")
	case c.Chunker.OverlapWords < 0:
		return domain.NewValidationError("chunker.overlap_words", "must not be negative")
	case c.Retriever.TopK < 0:
		return domain.NewValidationError("retriever.top_k", "must not be negative")
	case c.Keywords.MaxKeywords < 0:
		return domain.NewValidationError("keywords.max_keywords", "must not be negative")
	case c.Cache.TTLMinutes < 0:
		return domain.NewValidationError("cache.ttl_minutes", "must not be negative")
	case c.Cache.Capacity < 0:
		return domain.NewValidationError("cache.capacity", "must not be negative")
	}
	switch c.Source.Type {
	case "local", "drive":
	default:
		return domain.NewValidationError("source.type", "must be local or drive")
	}
	return nil
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "askdoc", "config.yaml"), nil
}

// Default returns the built-in configuration.
func Default() *AppConfig {
	cfg := &AppConfig{
		Chunker:   ChunkerConfig{Type: "sentence", ChunkSize: 1000, OverlapWords: 20},
		Retriever: RetrieverConfig{TopK: 3},
		Keywords:  KeywordsConfig{Type: "frequency", MaxKeywords: 10},
		Cache:     CacheConfig{TTLMinutes: 30, Capacity: 256},
		Generator: GeneratorConfig{Type: "gemini"},
		Source:    SourceConfig{Type: "local"},
	}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Chunker.Type == "" {
		cfg.Chunker.Type = "sentence"
	}
	if cfg.Chunker.ChunkSize == 0 {
		cfg.Chunker.ChunkSize = 1000
	}
	if cfg.Retriever.TopK == 0 {
		cfg.Retriever.TopK = 3
	}
	if cfg.Keywords.Type == "" {
		cfg.Keywords.Type = "frequency"
	}
	if cfg.Keywords.MaxKeywords == 0 {
		cfg.Keywords.MaxKeywords = 10
	}
	if cfg.Cache.TTLMinutes == 0 {
		cfg.Cache.TTLMinutes = 30
	}
	if cfg.Cache.Capacity == 0 {
		cfg.Cache.Capacity = 256
	}
	if cfg.Generator.Type == "" {
		cfg.Generator.Type = "gemini"
	}
	if cfg.Generator.BaseURL == "" {
		cfg.Generator.BaseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if cfg.Generator.APIKeyEnv == "" {
		cfg.Generator.APIKeyEnv = "GEMINI_API_KEY"
	}
	if cfg.Generator.Model == "" {
		cfg.Generator.Model = "gemini-1.5-flash"
	}
	if cfg.Generator.TimeoutSecs == 0 {
		cfg.Generator.TimeoutSecs = 60
	}
	if cfg.Generator.MaxRetries == 0 {
		cfg.Generator.MaxRetries = 2
	}
	if cfg.Source.Type == "" {
		cfg.Source.Type = "local"
	}
	if cfg.Source.Type == "drive" {
		if cfg.Source.Drive == nil {
			cfg.Source.Drive = &DriveConfig{}
		}
		if cfg.Source.Drive.TokenEnv == "" {
			cfg.Source.Drive.TokenEnv = "GOOGLE_ACCESS_TOKEN"
		}
		if cfg.Source.Drive.RequestsPerSecond == 0 {
			cfg.Source.Drive.RequestsPerSecond = 8
		}
		if cfg.Source.Drive.Burst == 0 {
			cfg.Source.Drive.Burst = 10
		}
		if cfg.Source.Drive.MaxDepth == 0 {
			cfg.Source.Drive.MaxDepth = 10
		}
	}
}
