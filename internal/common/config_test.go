package common

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))

	assert.Equal(t, ":8000", cfg.Server.HTTPAddr)
	assert.Equal(t, 50, cfg.Server.MaxUploadMB)
	assert.Equal(t, "memory", cfg.Store.Backend)
	assert.Equal(t, "tesseract", cfg.OCR.Backend)
	assert.Equal(t, float32(0.1), cfg.LLM.Temperature)
	assert.Equal(t, 3, cfg.Pipeline.MaxRetries)
	assert.Equal(t, 3*time.Minute, cfg.Pipeline.ProcessTimeout)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("STORE_BACKEND", "Postgres")
	t.Setenv("DB_URL", "postgres://u:p@localhost/db")
	t.Setenv("MAX_VALIDATION_RETRIES", "5")
	t.Setenv("OPENAI_RPS", "2.5")
	t.Setenv("AZURE_CV_ENHANCE", "false")
	t.Setenv("QUEUE_WORKERS", "not-a-number")

	cfg := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))

	assert.Equal(t, "postgres", cfg.Store.Backend)
	assert.Equal(t, 5, cfg.Pipeline.MaxRetries)
	assert.Equal(t, 2.5, cfg.LLM.RequestsPerSecond)
	assert.False(t, cfg.OCR.AzureEnhance)
	assert.Equal(t, 4, cfg.Pipeline.QueueWorkers, "unparseable values fall back to the default")
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("DOCPARSER_TEST_MODEL=from-file\nLOG_FORMAT=json\n"), 0o600))
	t.Setenv("LOG_FORMAT", "text")
	t.Cleanup(func() { _ = os.Unsetenv("DOCPARSER_TEST_MODEL") })

	cfg := LoadConfig(path)

	assert.Equal(t, "from-file", os.Getenv("DOCPARSER_TEST_MODEL"))
	assert.Equal(t, "text", cfg.Log.Format, "process env wins over the file")
}

func TestConfig_Validate(t *testing.T) {
	base := func() *Config { return LoadConfig(filepath.Join(t.TempDir(), "missing.env")) }

	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"unknown store", func(c *Config) { c.Store.Backend = "mongo" }, "STORE_BACKEND"},
		{"postgres without dsn", func(c *Config) { c.Store.Backend = "postgres"; c.Store.DSN = "" }, "DB_URL"},
		{"azure without key", func(c *Config) { c.OCR.Backend = "azure"; c.OCR.AzureEndpoint = "https://x" }, "AZURE_CV_KEY"},
		{"log format", func(c *Config) { c.Log.Format = "xml" }, "LOG_FORMAT"},
		{"queue workers", func(c *Config) { c.Pipeline.QueueWorkers = 0 }, "QUEUE_WORKERS"},
		{"empty http addr", func(c *Config) { c.Server.HTTPAddr = " " }, "HTTP_ADDR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidInput))
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestConfig_RequireLLM(t *testing.T) {
	cfg := &Config{}
	assert.ErrorIs(t, cfg.RequireLLM(), ErrInvalidInput)
	cfg.LLM.APIKey = "sk-test"
	assert.NoError(t, cfg.RequireLLM())
}

func TestRequestIDContext(t *testing.T) {
	ctx := WithRequestID(t.Context(), "req-1")
	assert.Equal(t, "req-1", RequestIDFromContext(ctx))
	assert.Equal(t, "", RequestIDFromContext(t.Context()))
	assert.Equal(t, "", RequestIDFromContext(WithRequestID(t.Context(), "")))
}
