// Package app wires the configured components into a rag.System.
package app

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/mike-a-ellis/hse-assistant/internal/chunker"
	"github.com/mike-a-ellis/hse-assistant/internal/config"
	"github.com/mike-a-ellis/hse-assistant/internal/embedding"
	"github.com/mike-a-ellis/hse-assistant/internal/index"
	"github.com/mike-a-ellis/hse-assistant/internal/indexer"
	"github.com/mike-a-ellis/hse-assistant/internal/llm"
	"github.com/mike-a-ellis/hse-assistant/internal/loader"
	"github.com/mike-a-ellis/hse-assistant/internal/rag"
)

// App holds the components built from a Config.
type App struct {
	Config   *config.Config
	Store    index.Store
	Embedder embedding.Embedder
	Pipeline *indexer.Pipeline
	System   *rag.System

	closers []func() error
}

// New validates cfg and builds every component. Nothing is loaded or
// indexed until System.Initialize.
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	a := &App{Config: cfg}

	store, err := a.newStore(logger)
	if err != nil {
		return nil, err
	}
	a.Store = store

	embedder, err := NewEmbedder(cfg.Embedding)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Embedder = embedder

	completer, err := NewCompleter(cfg.LLM)
	if err != nil {
		a.Close()
		return nil, err
	}

	ch, err := chunker.New(chunker.WithChunkSize(cfg.Chunking.Size), chunker.WithOverlap(cfg.Chunking.Overlap))
	if err != nil {
		a.Close()
		return nil, err
	}

	l := loader.New(loader.Sources{Documents: cfg.Sources.Documents, Records: cfg.Sources.Records}, logger)
	a.Pipeline = indexer.NewPipeline(l, ch, embedder, store, logger)

	a.System = rag.NewSystem(rag.Deps{
		Store:     store,
		Pipeline:  a.Pipeline,
		Embedder:  embedder,
		Completer: completer,
	}, rag.Options{
		K: cfg.Retrieval.K,
		Generation: rag.GenerationOptions{
			Temperature: cfg.LLM.Temperature,
			MaxTokens:   cfg.LLM.MaxTokens,
			Timeout:     cfg.LLM.Timeout,
		},
	}, logger)
	a.closers = append([]func() error{a.System.Close}, a.closers...)
	return a, nil
}

func (a *App) newStore(logger *slog.Logger) (index.Store, error) {
	cfg := a.Config.Index
	switch cfg.Backend {
	case config.BackendQdrant:
		store, err := index.NewQdrantStore(index.QdrantConfig{
			Host:       cfg.Qdrant.Host,
			Port:       cfg.Qdrant.Port,
			APIKey:     cfg.Qdrant.APIKey,
			UseTLS:     cfg.Qdrant.UseTLS,
			Collection: cfg.Qdrant.Collection,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("connect to qdrant: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		return store, nil
	default:
		return index.NewSQLiteStore(filepath.Clean(cfg.Dir), logger), nil
	}
}

// NewEmbedder builds the configured embedder.
func NewEmbedder(cfg config.EmbeddingConfig) (embedding.Embedder, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		client, err := embedding.NewClient(embedding.ClientConfig{
			BaseURL:   cfg.BaseURL,
			APIKeyEnv: cfg.APIKeyEnv,
			Timeout:   cfg.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("create embedding client: %w", err)
		}
		return embedding.NewOpenAIEmbedder(client, cfg.Model, cfg.Dimension, cfg.BatchSize), nil
	case config.ProviderHashing:
		return embedding.NewHashingEmbedder(cfg.Dimension), nil
	default:
		e, err := embedding.NewOllamaEmbedder(cfg.BaseURL, cfg.Model, cfg.Dimension, cfg.BatchSize, cfg.Timeout)
		if err != nil {
			return nil, fmt.Errorf("create embedder: %w", err)
		}
		return e, nil
	}
}

// NewCompleter builds the configured language model client.
func NewCompleter(cfg config.LLMConfig) (llm.Completer, error) {
	switch cfg.Provider {
	case config.ProviderOllama:
		c, err := llm.NewOllamaCompleter(cfg.BaseURL, cfg.Model)
		if err != nil {
			return nil, fmt.Errorf("create completer: %w", err)
		}
		return c, nil
	default:
		client, err := embedding.NewClient(embedding.ClientConfig{
			BaseURL:   cfg.BaseURL,
			APIKeyEnv: cfg.APIKeyEnv,
		})
		if err != nil {
			return nil, fmt.Errorf("create llm client: %w", err)
		}
		return llm.NewOpenAICompleter(client.Client(), cfg.Model), nil
	}
}

// Close releases the index and store connections.
func (a *App) Close() error {
	var first error
	for _, c := range a.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
