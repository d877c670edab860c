package common

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/joseph-ayodele/course-extractor/constants"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Task store backends.
const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

// LLM providers.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Config holds all application configuration
type Config struct {
	Env string

	Log      LogConfig
	Server   ServerConfig
	Storage  StorageConfig
	Store    StoreConfig
	Text     TextConfig
	LLM      LLMConfig
	Pipeline PipelineConfig
}

// LogConfig selects zap level and encoding.
type LogConfig struct {
	Level  string
	Format string
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HTTPAddr        string
	GRPCAddr        string
	MaxUploadBytes  int64
	ShutdownTimeout time.Duration
}

// StorageConfig holds the on-disk locations for uploads and artifacts.
type StorageConfig struct {
	UploadDir   string
	OutputDir   string
	KeepUploads bool
}

// StoreConfig selects and configures the task store.
type StoreConfig struct {
	Backend       string
	DSN           string
	MaxConns      int32
	DialTimeout   time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	TaskTTL       time.Duration
}

// TextConfig configures pdf -> text extraction.
type TextConfig struct {
	Pdftotext      string
	NativeFallback bool
}

// LLMConfig holds LLM-related configuration
type LLMConfig struct {
	Provider       string
	Model          string
	APIKey         string
	BaseURL        string
	Temperature    float32
	CallTimeout    time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	MaxPromptChars int
}

// PipelineConfig holds worker and merge settings.
type PipelineConfig struct {
	Workers      int
	QueueSize    int
	FileTimeout  time.Duration
	GraduateOnly bool
	IgnoreTitles []string
}

// LoadConfig loads configuration from .env (when present) and the environment.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, NewAppError(CodeConfig, "read .env", err)
		}
	}

	cfg := &Config{
		Env: v.GetString("ENV"),
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		Server: ServerConfig{
			HTTPAddr:        v.GetString("HTTP_ADDR"),
			GRPCAddr:        v.GetString("GRPC_ADDR"),
			MaxUploadBytes:  v.GetInt64("MAX_UPLOAD_BYTES"),
			ShutdownTimeout: parseDuration(v.GetString("SHUTDOWN_TIMEOUT"), 15*time.Second),
		},
		Storage: StorageConfig{
			UploadDir:   v.GetString("UPLOAD_DIR"),
			OutputDir:   v.GetString("OUTPUT_DIR"),
			KeepUploads: v.GetBool("KEEP_UPLOADS"),
		},
		Store: StoreConfig{
			Backend:       strings.ToLower(v.GetString("TASK_STORE")),
			DSN:           v.GetString("DB_URL"),
			MaxConns:      v.GetInt32("DB_MAX_CONNS"),
			DialTimeout:   parseDuration(v.GetString("DB_DIAL_TIMEOUT"), 3*time.Second),
			RedisAddr:     v.GetString("REDIS_ADDR"),
			RedisPassword: v.GetString("REDIS_PASSWORD"),
			RedisDB:       v.GetInt("REDIS_DB"),
			TaskTTL:       parseDuration(v.GetString("TASK_TTL"), 7*24*time.Hour),
		},
		Text: TextConfig{
			Pdftotext:      v.GetString("PDFTOTEXT_BIN"),
			NativeFallback: v.GetBool("PDF_NATIVE_FALLBACK"),
		},
		LLM: LLMConfig{
			Provider:       strings.ToLower(v.GetString("LLM_PROVIDER")),
			Model:          v.GetString("LLM_MODEL"),
			APIKey:         v.GetString("LLM_API_KEY"),
			BaseURL:        v.GetString("LLM_BASE_URL"),
			Temperature:    float32(v.GetFloat64("LLM_TEMPERATURE")),
			CallTimeout:    parseDuration(v.GetString("LLM_CALL_TIMEOUT"), 90*time.Second),
			MaxAttempts:    v.GetInt("LLM_MAX_ATTEMPTS"),
			InitialBackoff: parseDuration(v.GetString("LLM_INITIAL_BACKOFF"), 2*time.Second),
			MaxBackoff:     parseDuration(v.GetString("LLM_MAX_BACKOFF"), 20*time.Second),
			MaxPromptChars: v.GetInt("LLM_MAX_PROMPT_CHARS"),
		},
		Pipeline: PipelineConfig{
			Workers:      v.GetInt("WORKERS"),
			QueueSize:    v.GetInt("QUEUE_SIZE"),
			FileTimeout:  parseDuration(v.GetString("FILE_TIMEOUT"), 10*time.Minute),
			GraduateOnly: v.GetBool("GRADUATE_ONLY"),
			IgnoreTitles: splitAndTrim(v.GetString("IGNORE_TITLES")),
		},
	}

	if cfg.LLM.APIKey == "" {
		switch cfg.LLM.Provider {
		case ProviderGemini:
			cfg.LLM.APIKey = v.GetString("GEMINI_API_KEY")
		default:
			cfg.LLM.APIKey = v.GetString("OPENAI_API_KEY")
		}
	}
	if cfg.LLM.Model == "" {
		switch cfg.LLM.Provider {
		case ProviderGemini:
			cfg.LLM.Model = "gemini-2.0-flash"
		default:
			cfg.LLM.Model = "gpt-4o-mini"
		}
	}
	if len(cfg.Pipeline.IgnoreTitles) == 0 {
		cfg.Pipeline.IgnoreTitles = append([]string(nil), constants.IgnoreCourses...)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("HTTP_ADDR", ":8000")
	v.SetDefault("GRPC_ADDR", ":9090")
	v.SetDefault("MAX_UPLOAD_BYTES", constants.MaxUploadBytesDefault)
	v.SetDefault("SHUTDOWN_TIMEOUT", "15s")

	v.SetDefault("UPLOAD_DIR", "./uploads")
	v.SetDefault("OUTPUT_DIR", "./downloads")
	v.SetDefault("KEEP_UPLOADS", false)

	v.SetDefault("TASK_STORE", StoreMemory)
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_DIAL_TIMEOUT", "3s")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("TASK_TTL", "168h")

	v.SetDefault("PDFTOTEXT_BIN", "pdftotext")
	v.SetDefault("PDF_NATIVE_FALLBACK", true)

	v.SetDefault("LLM_PROVIDER", ProviderOpenAI)
	v.SetDefault("LLM_BASE_URL", "https://api.openai.com/v1")
	v.SetDefault("LLM_TEMPERATURE", 0.1)
	v.SetDefault("LLM_CALL_TIMEOUT", "90s")
	v.SetDefault("LLM_MAX_ATTEMPTS", 3)
	v.SetDefault("LLM_INITIAL_BACKOFF", "2s")
	v.SetDefault("LLM_MAX_BACKOFF", "20s")
	v.SetDefault("LLM_MAX_PROMPT_CHARS", 60000)

	v.SetDefault("WORKERS", 4)
	v.SetDefault("QUEUE_SIZE", 256)
	v.SetDefault("FILE_TIMEOUT", "10m")
	v.SetDefault("GRADUATE_ONLY", true)
	v.SetDefault("IGNORE_TITLES", "")
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case ProviderOpenAI, ProviderGemini:
	default:
		return NewAppError(CodeConfig, "LLM_PROVIDER must be openai or gemini", ErrInput)
	}
	if c.LLM.APIKey == "" && !c.LLM.IsLocalEndpoint() {
		return NewAppError(CodeConfig, "LLM_API_KEY is required", ErrInput)
	}
	if c.LLM.MaxAttempts <= 0 {
		return NewAppError(CodeConfig, "LLM_MAX_ATTEMPTS must be positive", ErrInput)
	}
	if c.Pipeline.Workers <= 0 {
		return NewAppError(CodeConfig, "WORKERS must be positive", ErrInput)
	}
	switch c.Store.Backend {
	case StoreMemory, StoreRedis:
	case StoreSQLite, StorePostgres:
		if c.Store.DSN == "" {
			return NewAppError(CodeConfig, "DB_URL is required for "+c.Store.Backend+" task store", ErrInput)
		}
	default:
		return NewAppError(CodeConfig, "unknown TASK_STORE "+c.Store.Backend, ErrInput)
	}
	if c.Server.HTTPAddr == "" {
		return NewAppError(CodeConfig, "HTTP_ADDR is required", ErrInput)
	}
	return nil
}

// IsLocalEndpoint reports whether the OpenAI-compatible base URL is a local server
// (for example Ollama) that does not need an API key.
func (c LLMConfig) IsLocalEndpoint() bool {
	if c.Provider != ProviderOpenAI {
		return false
	}
	u := strings.ToLower(c.BaseURL)
	return strings.Contains(u, "localhost") || strings.Contains(u, "127.0.0.1") || strings.Contains(u, "host.docker.internal")
}

func parseDuration(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
