package openai

import (
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/joseph-ayodele/course-extractor/internal/common"
)

// Config for the OpenAI-compatible client. Ollama and vLLM expose the same API.
type Config struct {
	APIKey   string        // if empty, falls back to env OPENAI_API_KEY
	BaseURL  string        // default https://api.openai.com/v1
	Model    string        // e.g., "gpt-4o-mini"
	Timeout  time.Duration // http client timeout, above the per-call context deadline
	JSONMode bool          // send response_format json_object
}

type Client struct {
	cfg        Config
	httpClient *http.Client
	log        *zap.Logger
}

func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        common.OrNop(logger).Named("openai"),
	}
}
