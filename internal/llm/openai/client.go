package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/joseph-ayodele/course-extractor/internal/llm"
)

// Generate implements llm.Generator over chat/completions.
func (c *Client) Generate(ctx context.Context, req llm.GenerateRequest) (string, error) {
	start := time.Now()

	body := map[string]any{
		"model":       c.cfg.Model,
		"temperature": req.Temperature,
		"messages": []map[string]any{
			{"role": "system", "content": req.System},
			{"role": "user", "content": req.Prompt},
		},
	}
	if c.cfg.JSONMode {
		body["response_format"] = map[string]any{"type": "json_object"}
	}

	headers := map[string]string{}
	if c.cfg.APIKey != "" {
		headers["Authorization"] = "Bearer " + c.cfg.APIKey
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	raw, _, err := llm.SendJSON(ctx, c.httpClient, endpoint, body, headers, c.log)
	if err != nil {
		var se *llm.StatusError
		if errors.As(err, &se) && !se.Retryable() {
			return "", llm.Permanent(fmt.Errorf("openai: %w", err))
		}
		return "", fmt.Errorf("openai: %w", err)
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		c.log.Error("llm.generate.decode_error",
			zap.Error(err), zap.Int("raw_bytes", len(raw)),
			zap.Int64("elapsed_ms", time.Since(start).Milliseconds()),
		)
		return "", fmt.Errorf("decode openai response: %w", err)
	}
	if len(cc.Choices) == 0 {
		return "", fmt.Errorf("no choices in openai response")
	}

	content := strings.TrimSpace(cc.Choices[0].Message.Content)
	c.log.Debug("llm.generate.ok",
		zap.String("model", c.cfg.Model),
		zap.Int("content_len", len(content)),
		zap.Int64("elapsed_ms", time.Since(start).Milliseconds()),
	)
	return content, nil
}

// Name identifies the backend in logs and metrics.
func (c *Client) Name() string { return "openai:" + c.cfg.Model }
