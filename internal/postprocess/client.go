package postprocess

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const cleanupInstruction = "You are a transcription editor. Clean up the " +
	"following raw meeting transcript: fix punctuation, casing, and obvious " +
	"recognition mistakes. Do not summarize, do not add commentary, return " +
	"only the corrected transcript text."

// Config contains cleanup client configuration. An empty BaseURL
// disables post-processing entirely.
type Config struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Client sends transcript text through a local language model for
// cleanup. The model is reached over Ollama's OpenAI-compatible API.
type Client struct {
	api     *openai.Client
	config  Config
	logger  *slog.Logger
	enabled bool

	// Statistics
	requests uint64
	failures uint64
	mu       sync.Mutex
}

// NewClient creates a cleanup client. When cfg.BaseURL is empty the
// client is a no-op that always returns the input unchanged.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	c := &Client{
		config: cfg,
		logger: logger,
	}

	if cfg.BaseURL == "" {
		return c
	}

	if cfg.Timeout <= 0 {
		c.config.Timeout = 30 * time.Second
	}
	if cfg.Model == "" {
		c.config.Model = "llama2"
	}

	apiConfig := openai.DefaultConfig("")
	apiConfig.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/") + "/v1"

	c.api = openai.NewClientWithConfig(apiConfig)
	c.enabled = true

	return c
}

// Enabled reports whether a cleanup endpoint is configured.
func (c *Client) Enabled() bool {
	return c.enabled
}

// Cleanup sends text through the cleanup model and returns the cleaned
// text with processed=true. Any failure (timeout, transport error,
// empty completion) is logged and the original text comes back with
// processed=false; cleanup failures are never surfaced as errors.
func (c *Client) Cleanup(ctx context.Context, text string) (string, bool) {
	if !c.enabled || strings.TrimSpace(text) == "" {
		return text, false
	}

	c.countRequest()

	reqCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	resp, err := c.api.CreateChatCompletion(reqCtx, openai.ChatCompletionRequest{
		Model: c.config.Model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: cleanupInstruction,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: text,
			},
		},
	})
	if err != nil {
		c.countFailure()
		c.logger.Warn("Transcript cleanup failed, keeping original text",
			slog.String("model", c.config.Model),
			slog.String("error", err.Error()),
		)
		return text, false
	}

	if len(resp.Choices) == 0 {
		c.countFailure()
		c.logger.Warn("Transcript cleanup returned no choices, keeping original text",
			slog.String("model", c.config.Model),
		)
		return text, false
	}

	cleaned := strings.TrimSpace(resp.Choices[0].Message.Content)
	if cleaned == "" {
		c.countFailure()
		c.logger.Warn("Transcript cleanup returned empty text, keeping original")
		return text, false
	}

	c.logger.Info("Transcript cleanup completed",
		slog.String("model", c.config.Model),
		slog.Int("original_chars", len(text)),
		slog.Int("cleaned_chars", len(cleaned)),
	)

	return cleaned, true
}

func (c *Client) countRequest() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests++
}

func (c *Client) countFailure() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures++
}

// Stats reports cleanup request counters.
type Stats struct {
	Enabled  bool   `json:"enabled"`
	Requests uint64 `json:"requests"`
	Failures uint64 `json:"failures"`
}

// GetStats returns cleanup statistics for monitoring endpoints.
func (c *Client) GetStats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Enabled:  c.enabled,
		Requests: c.requests,
		Failures: c.failures,
	}
}
