package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 1000, cfg.Chunking.Size)
	assert.Equal(t, 200, cfg.Chunking.Overlap)
	assert.Equal(t, 3, cfg.Retrieval.K)
	assert.Equal(t, "llama-3.1-8b-instant", cfg.LLM.Model)
	assert.Equal(t, 60*time.Second, cfg.LLM.Timeout)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
chunking:
  overlap: 0
retrieval:
  k: 5
llm:
  provider: ollama
  model: llama3.1
  timeout: 30s
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1000, cfg.Chunking.Size)
	assert.Equal(t, 0, cfg.Chunking.Overlap)
	assert.Equal(t, 5, cfg.Retrieval.K)
	assert.Equal(t, ProviderOllama, cfg.LLM.Provider)
	assert.Equal(t, 30*time.Second, cfg.LLM.Timeout)
	assert.InDelta(t, 0.1, cfg.LLM.Temperature, 1e-9)
	assert.Equal(t, "all-minilm", cfg.Embedding.Model)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("chunking: [1, 2"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("QDRANT_HOST", "qdrant.internal")
	t.Setenv("QDRANT_PORT", "7000")
	t.Setenv("PORT", "9090")
	t.Setenv("SERVER_MODE", ModeHTTP)

	cfg := Default()
	cfg.ApplyEnv()
	assert.Equal(t, "qdrant.internal", cfg.Index.Qdrant.Host)
	assert.Equal(t, 7000, cfg.Index.Qdrant.Port)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, ModeHTTP, cfg.Server.Mode)
}

func TestApplyEnv_IgnoresBadPort(t *testing.T) {
	t.Setenv("QDRANT_PORT", "not-a-port")
	cfg := Default()
	cfg.ApplyEnv()
	assert.Equal(t, 6334, cfg.Index.Qdrant.Port)
}

func TestValidate(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "test-key")

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"defaults", func(*Config) {}, ""},
		{"zero overlap", func(c *Config) { c.Chunking.Overlap = 0 }, ""},
		{"zero size", func(c *Config) { c.Chunking.Size = 0 }, "chunking.size"},
		{"overlap equals size", func(c *Config) { c.Chunking.Overlap = c.Chunking.Size }, "chunking.overlap"},
		{"negative overlap", func(c *Config) { c.Chunking.Overlap = -1 }, "chunking.overlap"},
		{"k zero", func(c *Config) { c.Retrieval.K = 0 }, "retrieval.k"},
		{"temperature", func(c *Config) { c.LLM.Temperature = 2.5 }, "llm.temperature"},
		{"max tokens", func(c *Config) { c.LLM.MaxTokens = 0 }, "llm.max_tokens"},
		{"timeout", func(c *Config) { c.LLM.Timeout = 0 }, "llm.timeout"},
		{"backend", func(c *Config) { c.Index.Backend = "faiss" }, "unknown index backend"},
		{"embedding provider", func(c *Config) { c.Embedding.Provider = "bert" }, "unknown embedding provider"},
		{"llm provider", func(c *Config) { c.LLM.Provider = "claude" }, "unknown llm provider"},
		{"missing key", func(c *Config) { c.LLM.APIKeyEnv = "HSE_TEST_UNSET_KEY" }, "HSE_TEST_UNSET_KEY is not set"},
		{"ollama needs no key", func(c *Config) {
			c.LLM.Provider = ProviderOllama
			c.LLM.APIKeyEnv = "HSE_TEST_UNSET_KEY"
		}, ""},
		{"no sources", func(c *Config) { c.Sources = SourcesConfig{} }, "no sources"},
		{"server mode", func(c *Config) { c.Server.Mode = "grpc" }, "unknown server mode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.want == "" {
				assert.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(LoggingConfig{Level: "warn", Format: "json"}, &buf)
	logger.Info("hidden")
	logger.Warn("Index rebuilt", "chunks", 3)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.True(t, strings.HasPrefix(out, "{"), "json output expected: %s", out)
	assert.Contains(t, out, `"chunks":3`)
}

func TestLoadFromEnv_ConfigPathFromEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hse.yaml")
	require.NoError(t, os.WriteFile(path, []byte("retrieval:\n  k: 7\n"), 0o644))
	t.Setenv("HSE_CONFIG", path)
	t.Setenv("PORT", "9999")

	cfg, err := LoadFromEnv("")
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Retrieval.K)
	assert.Equal(t, "9999", cfg.Server.Port)

	cfg, err = LoadFromEnv(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Retrieval.K, "an explicit path wins over HSE_CONFIG")
}
