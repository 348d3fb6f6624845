package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allKeys = []string{
	"PORT", "API_KEY", "GENERATION_PROVIDER", "OPENAI_API_KEY", "OPENAI_BASE_URL",
	"OPENAI_MODEL", "ANTHROPIC_API_KEY", "ANTHROPIC_MODEL", "GENERATION_MAX_TOKENS",
	"GENERATION_TEMPERATURE", "GENERATION_TIMEOUT", "GENERATION_RATE_LIMIT",
	"SECTION_CONCURRENCY", "DOCUMENT_STORE", "GOOGLE_ACCESS_TOKEN", "GOOGLE_DOCS_URL",
	"DOCX_OUTPUT_DIR", "PUBLIC_BASE_URL", "SANITIZE_RULES_FILE", "WORKER_COUNT",
	"MAX_QUEUE_SIZE", "JOB_TTL", "MAX_UPLOAD_BYTES", "LOG_LEVEL",
}

// clearEnv blanks every key for the test and runs it from an empty directory
// so no stray .env file is picked up.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range allKeys {
		t.Setenv(k, "")
	}
	t.Chdir(t.TempDir())
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg := Load()

	assert.Equal(t, "5002", cfg.Port)
	assert.Equal(t, ProviderOpenAI, cfg.Provider)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAIModel)
	assert.Equal(t, 2000, cfg.GenerationMaxTokens)
	assert.InDelta(t, 0.7, cfg.GenerationTemperature, 1e-9)
	assert.Equal(t, 120*time.Second, cfg.GenerationTimeout)
	assert.Zero(t, cfg.GenerationRateLimit)
	assert.Equal(t, 1, cfg.SectionConcurrency)
	assert.Equal(t, StoreGoogle, cfg.DocumentStore)
	assert.Equal(t, "./documents", cfg.DocxOutputDir)
	assert.Equal(t, "http://localhost:5002", cfg.PublicBaseURL)
	assert.Equal(t, 2, cfg.WorkerCount)
	assert.Equal(t, 20, cfg.MaxQueueSize)
	assert.Equal(t, time.Hour, cfg.JobTTL)
	assert.EqualValues(t, 10<<20, cfg.MaxUploadBytes)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("GENERATION_PROVIDER", "Anthropic")
	t.Setenv("GENERATION_TEMPERATURE", "0.2")
	t.Setenv("GENERATION_TIMEOUT", "30s")
	t.Setenv("GENERATION_RATE_LIMIT", "2.5")
	t.Setenv("SECTION_CONCURRENCY", "4")
	t.Setenv("DOCUMENT_STORE", "docx")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("WORKER_COUNT", "-3")
	t.Setenv("MAX_QUEUE_SIZE", "not-a-number")

	cfg := Load()
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "http://localhost:9000", cfg.PublicBaseURL)
	assert.Equal(t, ProviderAnthropic, cfg.Provider)
	assert.InDelta(t, 0.2, cfg.GenerationTemperature, 1e-9)
	assert.Equal(t, 30*time.Second, cfg.GenerationTimeout)
	assert.InDelta(t, 2.5, cfg.GenerationRateLimit, 1e-9)
	assert.Equal(t, 4, cfg.SectionConcurrency)
	assert.Equal(t, StoreDocx, cfg.DocumentStore)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, 2, cfg.WorkerCount)
	assert.Equal(t, 20, cfg.MaxQueueSize)
}

func TestLoad_DotEnv(t *testing.T) {
	clearEnv(t)
	// godotenv never overrides a variable that is present, even when empty.
	os.Unsetenv("OPENAI_MODEL")
	os.Unsetenv("WORKER_COUNT")
	t.Setenv("PORT", "7000")
	require.NoError(t, os.WriteFile(filepath.Join(".", ".env"), []byte("OPENAI_MODEL=gpt-test\nWORKER_COUNT=6\nPORT=1234\n"), 0o600))

	cfg := Load()
	assert.Equal(t, "gpt-test", cfg.OpenAIModel)
	assert.Equal(t, 6, cfg.WorkerCount)
	assert.Equal(t, "7000", cfg.Port)
}

func TestValidate(t *testing.T) {
	base := Config{
		Provider:              ProviderOpenAI,
		OpenAIAPIKey:          "sk",
		DocumentStore:         StoreGoogle,
		GoogleAccessToken:     "tok",
		GenerationTemperature: 0.7,
	}
	require.NoError(t, base.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		want   []string
	}{
		{"missing openai key", func(c *Config) { c.OpenAIAPIKey = "" }, []string{"OPENAI_API_KEY"}},
		{"anthropic without key", func(c *Config) { c.Provider = ProviderAnthropic }, []string{"ANTHROPIC_API_KEY"}},
		{"unknown provider", func(c *Config) { c.Provider = "bard" }, []string{"GENERATION_PROVIDER"}},
		{"missing google token", func(c *Config) { c.GoogleAccessToken = "" }, []string{"GOOGLE_ACCESS_TOKEN"}},
		{"docx needs no token", func(c *Config) {
			c.DocumentStore = StoreDocx
			c.GoogleAccessToken = ""
			c.DocxOutputDir = "/tmp/docs"
		}, nil},
		{"unknown store", func(c *Config) { c.DocumentStore = "s3" }, []string{"DOCUMENT_STORE"}},
		{"temperature", func(c *Config) { c.GenerationTemperature = 3 }, []string{"GENERATION_TEMPERATURE"}},
		{"several at once", func(c *Config) {
			c.OpenAIAPIKey = ""
			c.GoogleAccessToken = ""
		}, []string{"OPENAI_API_KEY", "GOOGLE_ACCESS_TOKEN"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := base
			tc.mutate(&c)
			err := c.Validate()
			if tc.want == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			for _, w := range tc.want {
				assert.Contains(t, err.Error(), w)
			}
		})
	}
}
