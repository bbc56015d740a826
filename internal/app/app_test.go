package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mike-a-ellis/hse-assistant/internal/config"
	"github.com/mike-a-ellis/hse-assistant/internal/embedding"
	"github.com/mike-a-ellis/hse-assistant/internal/index"
	"github.com/mike-a-ellis/hse-assistant/internal/llm"
	"github.com/mike-a-ellis/hse-assistant/internal/rag"
)

func offlineConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	doc := filepath.Join(dir, "rules.txt")
	require.NoError(t, os.WriteFile(doc, []byte("Ventilation must be checked before each shift."), 0o644))

	cfg := config.Default()
	cfg.Sources = config.SourcesConfig{Documents: []string{doc}}
	cfg.Index.Dir = filepath.Join(dir, "db")
	cfg.Embedding.Provider = config.ProviderHashing
	cfg.LLM.Provider = config.ProviderOllama
	cfg.LLM.BaseURL = "http://localhost:11434"
	cfg.LLM.Model = "llama3.1"
	return cfg
}

func TestNew_Offline(t *testing.T) {
	cfg := offlineConfig(t)
	a, err := New(cfg, nil)
	require.NoError(t, err)
	defer a.Close()

	assert.IsType(t, &index.SQLiteStore{}, a.Store)
	assert.IsType(t, &embedding.HashingEmbedder{}, a.Embedder)
	require.True(t, a.System.Initialize(context.Background()))
	assert.Equal(t, rag.Ready, a.System.State())
	assert.FileExists(t, filepath.Join(cfg.Index.Dir, index.FileName))
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := offlineConfig(t)
	cfg.Chunking.Overlap = cfg.Chunking.Size
	_, err := New(cfg, nil)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestNewCompleter(t *testing.T) {
	t.Setenv("HSE_TEST_KEY", "k")
	c, err := NewCompleter(config.LLMConfig{Provider: config.ProviderOpenAI, Model: "m", APIKeyEnv: "HSE_TEST_KEY"})
	require.NoError(t, err)
	assert.IsType(t, &llm.OpenAICompleter{}, c)

	_, err = NewCompleter(config.LLMConfig{Provider: config.ProviderOpenAI, Model: "m", APIKeyEnv: "HSE_TEST_UNSET_KEY"})
	assert.Error(t, err)
}

func TestNewEmbedder(t *testing.T) {
	e, err := NewEmbedder(config.Default().Embedding)
	require.NoError(t, err)
	assert.Equal(t, "ollama/all-minilm", e.ModelName())
	assert.Equal(t, 384, e.Dimension())
}
