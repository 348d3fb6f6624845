package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port string

	// Optional bearer token for /api routes.
	APIKey string

	// Generation backend
	Provider              string
	OpenAIAPIKey          string
	OpenAIBaseURL         string
	OpenAIModel           string
	AnthropicAPIKey       string
	AnthropicModel        string
	GenerationMaxTokens   int
	GenerationTemperature float64
	GenerationTimeout     time.Duration
	GenerationRateLimit   float64
	SectionConcurrency    int

	// Document store
	DocumentStore     string
	GoogleAccessToken string
	GoogleDocsURL     string
	DocxOutputDir     string
	PublicBaseURL     string

	SanitizeRulesFile string

	// Worker pool
	WorkerCount  int
	MaxQueueSize int
	JobTTL       time.Duration

	// Upload limits
	MaxUploadBytes int64

	LogLevel slog.Level
}

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"

	StoreGoogle = "google"
	StoreDocx   = "docx"
)

// Load reads an optional .env file from the working directory, then the
// environment. Variables already set in the environment win.
func Load() Config {
	_ = godotenv.Load()

	port := envOr("PORT", "5002")
	cfg := Config{
		Port:   port,
		APIKey: os.Getenv("API_KEY"),

		Provider:              strings.ToLower(envOr("GENERATION_PROVIDER", ProviderOpenAI)),
		OpenAIAPIKey:          os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:         os.Getenv("OPENAI_BASE_URL"),
		OpenAIModel:           envOr("OPENAI_MODEL", "gpt-4o-mini"),
		AnthropicAPIKey:       os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicModel:        envOr("ANTHROPIC_MODEL", "claude-sonnet-4-5-20250929"),
		GenerationMaxTokens:   envInt("GENERATION_MAX_TOKENS", 2000),
		GenerationTemperature: envFloat("GENERATION_TEMPERATURE", 0.7),
		GenerationTimeout:     envDuration("GENERATION_TIMEOUT", 120*time.Second),
		GenerationRateLimit:   envFloat("GENERATION_RATE_LIMIT", 0),
		SectionConcurrency:    envInt("SECTION_CONCURRENCY", 1),

		DocumentStore:     strings.ToLower(envOr("DOCUMENT_STORE", StoreGoogle)),
		GoogleAccessToken: os.Getenv("GOOGLE_ACCESS_TOKEN"),
		GoogleDocsURL:     os.Getenv("GOOGLE_DOCS_URL"),
		DocxOutputDir:     envOr("DOCX_OUTPUT_DIR", "./documents"),
		PublicBaseURL:     envOr("PUBLIC_BASE_URL", "http://localhost:"+port),

		SanitizeRulesFile: os.Getenv("SANITIZE_RULES_FILE"),

		WorkerCount:  envInt("WORKER_COUNT", 2),
		MaxQueueSize: envInt("MAX_QUEUE_SIZE", 20),
		JobTTL:       envDuration("JOB_TTL", 1*time.Hour),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 10<<20), // 10MB

		LogLevel: envLevel("LOG_LEVEL", slog.LevelInfo),
	}

	if cfg.GenerationMaxTokens <= 0 {
		cfg.GenerationMaxTokens = 2000
	}
	if cfg.GenerationTimeout <= 0 {
		cfg.GenerationTimeout = 120 * time.Second
	}
	if cfg.SectionConcurrency <= 0 {
		cfg.SectionConcurrency = 1
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 2
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 20
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 10 << 20
	}

	return cfg
}

// Validate reports every missing credential for the selected backends.
func (c Config) Validate() error {
	var errs []error
	switch c.Provider {
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			errs = append(errs, errors.New("OPENAI_API_KEY is required"))
		}
	case ProviderAnthropic:
		if c.AnthropicAPIKey == "" {
			errs = append(errs, errors.New("ANTHROPIC_API_KEY is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("GENERATION_PROVIDER %q is not one of openai, anthropic", c.Provider))
	}
	switch c.DocumentStore {
	case StoreGoogle:
		if c.GoogleAccessToken == "" {
			errs = append(errs, errors.New("GOOGLE_ACCESS_TOKEN is required"))
		}
	case StoreDocx:
		if c.DocxOutputDir == "" {
			errs = append(errs, errors.New("DOCX_OUTPUT_DIR is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("DOCUMENT_STORE %q is not one of google, docx", c.DocumentStore))
	}
	if c.GenerationTemperature < 0 || c.GenerationTemperature > 2 {
		errs = append(errs, fmt.Errorf("GENERATION_TEMPERATURE %v is outside [0, 2]", c.GenerationTemperature))
	}
	return errors.Join(errs...)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envLevel(key string, fallback slog.Level) slog.Level {
	if v := os.Getenv(key); v != "" {
		var l slog.Level
		if err := l.UnmarshalText([]byte(v)); err == nil {
			return l
		}
	}
	return fallback
}
