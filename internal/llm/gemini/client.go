// Package gemini implements llm.Generator on the Google GenAI SDK.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/joseph-ayodele/course-extractor/internal/common"
	"github.com/joseph-ayodele/course-extractor/internal/llm"
)

type Client struct {
	client *genai.Client
	model  string
	log    *zap.Logger
}

// Option adjusts the underlying GenAI client config.
type Option func(*genai.ClientConfig)

// WithBaseURL points the client at another endpoint, such as a proxy or a test server.
func WithBaseURL(url string) Option {
	return func(cfg *genai.ClientConfig) {
		cfg.HTTPOptions.BaseURL = url
	}
}

// NewClient creates a Gemini generator.
func NewClient(ctx context.Context, apiKey, model string, logger *zap.Logger, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	cc := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	for _, opt := range opts {
		opt(cc)
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &Client{client: client, model: model, log: common.OrNop(logger).Named("gemini")}, nil
}

// Generate implements llm.Generator.
func (c *Client) Generate(ctx context.Context, req llm.GenerateRequest) (string, error) {
	start := time.Now()
	cfg := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(req.Temperature),
		ResponseMIMEType: "application/json",
	}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(req.Prompt), cfg)
	if err != nil {
		return "", classify(err)
	}
	text := strings.TrimSpace(resp.Text())

	c.log.Debug("llm.generate.ok",
		zap.String("model", c.model),
		zap.Int("content_len", len(text)),
		zap.Int64("elapsed_ms", time.Since(start).Milliseconds()),
	)
	return text, nil
}

// Name identifies the backend in logs and metrics.
func (c *Client) Name() string { return "gemini:" + c.model }

// classify marks client errors other than timeouts and rate limits as
// permanent; a bad key or unknown model fails the same way on every attempt.
func classify(err error) error {
	code := 0
	var apiErr genai.APIError
	var apiErrPtr *genai.APIError
	switch {
	case errors.As(err, &apiErr):
		code = apiErr.Code
	case errors.As(err, &apiErrPtr) && apiErrPtr != nil:
		code = apiErrPtr.Code
	}
	wrapped := fmt.Errorf("gemini generate failed: %w", err)
	if code >= 400 && code < 500 && code != http.StatusRequestTimeout && code != http.StatusTooManyRequests {
		return llm.Permanent(wrapped)
	}
	return wrapped
}
