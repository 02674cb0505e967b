// Package openai talks to an OpenAI-compatible API for meal classification,
// naming, nutrition estimation and image generation.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const providerName = "openai"

var (
	ErrMissingAPIKey = errors.New("openai: api key is not configured")
	ErrNoChoices     = errors.New("openai: response has no choices")
	ErrNoImage       = errors.New("openai: response has no image")
	ErrEmptyContent  = errors.New("openai: empty completion")
)

// APIError is returned for non-2xx responses
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Body)
}

// Config holds the provider settings
type Config struct {
	APIKey            string
	BaseURL           string
	ChatModel         string
	ImageModel        string
	ImageSize         string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
}

// RequestRecorder receives one observation per provider call
type RequestRecorder interface {
	AIRequest(provider, model, status string, duration time.Duration)
}

// Client is a thin JSON client for the chat completion and image generation endpoints
type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	metrics RequestRecorder
	logger  *zap.Logger
}

// NewClient creates a new OpenAI client. metrics may be nil.
func NewClient(cfg Config, metrics RequestRecorder, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.ChatModel == "" {
		cfg.ChatModel = "gpt-4o"
	}
	if cfg.ImageModel == "" {
		cfg.ImageModel = "dall-e-3"
	}
	if cfg.ImageSize == "" {
		cfg.ImageSize = "1024x1024"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	return &Client{
		cfg: cfg,
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		limiter: rate.NewLimiter(limit, burst),
		metrics: metrics,
		logger:  logger.Named("openai"),
	}
}

type ChatCompletionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatCompletionResponse struct {
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

type Choice struct {
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type ImageGenerationRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	N      int    `json:"n"`
	Size   string `json:"size"`
}

type ImageGenerationResponse struct {
	Data []ImageData `json:"data"`
}

type ImageData struct {
	URL string `json:"url"`
}

// Complete sends a system + user prompt and returns the trimmed content of
// the first choice
func (c *Client) Complete(ctx context.Context, system, user string, maxTokens int, temperature float64) (string, error) {
	req := ChatCompletionRequest{
		Model: c.cfg.ChatModel,
		Messages: []Message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}

	var resp ChatCompletionResponse
	if err := c.post(ctx, "/chat/completions", c.cfg.ChatModel, req, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}

	c.logger.Debug("Chat completion finished",
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.String("finish_reason", resp.Choices[0].FinishReason),
	)

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// GenerateImage requests exactly one square image and returns its URL
func (c *Client) GenerateImage(ctx context.Context, prompt string) (string, error) {
	req := ImageGenerationRequest{
		Model:  c.cfg.ImageModel,
		Prompt: prompt,
		N:      1,
		Size:   c.cfg.ImageSize,
	}

	var resp ImageGenerationResponse
	if err := c.post(ctx, "/images/generations", c.cfg.ImageModel, req, &resp); err != nil {
		return "", err
	}
	if len(resp.Data) == 0 || resp.Data[0].URL == "" {
		return "", ErrNoImage
	}
	return resp.Data[0].URL, nil
}

func (c *Client) post(ctx context.Context, path, model string, body, out interface{}) (err error) {
	if c.cfg.APIKey == "" {
		return ErrMissingAPIKey
	}

	start := time.Now()
	defer func() {
		c.record(model, err, time.Since(start))
	}()

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Body: truncate(string(respBody), 512)}
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) record(model string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "error"
		c.logger.Warn("OpenAI request failed", zap.String("model", model), zap.Duration("duration", d), zap.Error(err))
	}
	if c.metrics != nil {
		c.metrics.AIRequest(providerName, model, status, d)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// joinIngredients renders a comma separated phrase, skipping blank entries
func joinIngredients(items []string) string {
	parts := make([]string, 0, len(items))
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			parts = append(parts, it)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ", ")
}

// HealthCheck reports whether the provider is configured. It makes no API
// call, since every request is billed.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.cfg.APIKey == "" {
		return ErrMissingAPIKey
	}
	return ctx.Err()
}
