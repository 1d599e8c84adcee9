// Package gemini implements domain.Generator over the Gemini generateContent
// REST endpoint.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"askdoc/internal/domain"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel   = "gemini-1.5-flash"
)

// maxErrorBody caps how much of a failed response is kept for the error.
const maxErrorBody = 2048

// Client is a Gemini text-generation client implementing the Generator interface.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	client     *http.Client
	maxRetries int
	sleep      func(ctx context.Context, d time.Duration) error
}

// Config configures the Gemini client.
type Config struct {
	BaseURL    string
	APIKeyEnv  string
	Model      string
	Timeout    time.Duration
	MaxRetries int
}

var _ domain.Generator = (*Client)(nil)

// NewClient creates a new generation client using the provided configuration.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKeyEnv == "" {
		cfg.APIKeyEnv = "GEMINI_API_KEY"
	}
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	t := cfg.Timeout
	if t == 0 {
		t = 60 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     key,
		model:      cfg.Model,
		client:     &http.Client{Timeout: t},
		maxRetries: cfg.MaxRetries,
		sleep:      sleepCtx,
	}, nil
}

// Name returns the identifier of this generator implementation.
func (c *Client) Name() string { return "gemini" }

type part struct {
	Text string `json:"text"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Generate sends prompt as a single user turn and returns the first candidate's
// text. Throttling and server errors are retried with backoff; everything else
// fails with a GenerationUnavailableError.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)
	data, err := json.Marshal(generateRequest{Contents: []content{{Parts: []part{{Text: prompt}}}}})
	if err != nil {
		return "", err
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			if err := c.sleep(ctx, lastDelay(lastErr, attempt-1)); err != nil {
				return "", err
			}
		}
		text, err := c.do(ctx, url, data)
		if err == nil {
			return text, nil
		}
		if !retryable(err) || ctx.Err() != nil {
			return "", err
		}
		lastErr = err
	}
	if ra, ok := lastErr.(*retryAfterError); ok {
		return "", ra.GenerationUnavailableError
	}
	return "", lastErr
}

// retryAfterError carries the server's requested delay alongside the failure.
type retryAfterError struct {
	*domain.GenerationUnavailableError
	after time.Duration
}

func (c *Client) do(ctx context.Context, url string, data []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", &domain.GenerationUnavailableError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		genErr := &domain.GenerationUnavailableError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			// Respect Retry-After if provided
			if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs >= 0 {
				return "", &retryAfterError{GenerationUnavailableError: genErr, after: time.Duration(secs) * time.Second}
			}
		}
		return "", genErr
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &domain.GenerationUnavailableError{Err: err}
	}
	var out generateResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		return "", &domain.GenerationUnavailableError{Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", &domain.GenerationUnavailableError{Status: resp.StatusCode, Body: "no candidates returned"}
	}
	return out.Candidates[0].Content.Parts[0].Text, nil
}

func retryable(err error) bool {
	switch e := err.(type) {
	case *retryAfterError:
		return true
	case *domain.GenerationUnavailableError:
		return e.Status == 0 && e.Err != nil || e.Status == http.StatusTooManyRequests || e.Status >= 500
	}
	return false
}

func lastDelay(err error, attempt int) time.Duration {
	if ra, ok := err.(*retryAfterError); ok {
		return ra.after
	}
	return retryDelay(attempt)
}

func retryDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	base := 200 * time.Millisecond
	// exponential backoff capped at 5s
	d := base << attempt
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
