// Package indexer runs the build phase: load sources, chunk, embed, persist.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mike-a-ellis/hse-assistant/internal/chunker"
	"github.com/mike-a-ellis/hse-assistant/internal/embedding"
	"github.com/mike-a-ellis/hse-assistant/internal/index"
	"github.com/mike-a-ellis/hse-assistant/internal/loader"
)

// embedBatchSize bounds each EmbedBatch call so progress can be logged.
const embedBatchSize = 128

// IndexResult contains statistics about a build.
type IndexResult struct {
	TotalDocs     int
	TotalChunks   int
	Sources       []loader.LoadedSource
	FailedSources []FailedSource
	Model         string
	Duration      time.Duration
}

// FailedSource represents a configured source that could not be ingested.
type FailedSource struct {
	Path   string
	Reason string
}

// Pipeline builds a fresh index from the configured sources.
type Pipeline struct {
	loader   *loader.Loader
	chunker  *chunker.Chunker
	embedder embedding.Embedder
	store    index.Store
	logger   *slog.Logger
}

// NewPipeline creates a new build pipeline with the given components.
func NewPipeline(
	loader *loader.Loader,
	chunker *chunker.Chunker,
	embedder embedding.Embedder,
	store index.Store,
	logger *slog.Logger,
) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		loader:   loader,
		chunker:  chunker,
		embedder: embedder,
		store:    store,
		logger:   logger,
	}
}

// ManifestFor describes the embedding space of e.
func ManifestFor(e embedding.Embedder) index.Manifest {
	return index.Manifest{Model: e.ModelName(), Dimension: e.Dimension()}
}

// Build runs the full pipeline and persists the result, replacing any
// previous index. Returns loader.ErrNoDocumentsFound if nothing could be read.
func (p *Pipeline) Build(ctx context.Context) (index.Index, *IndexResult, error) {
	start := time.Now()
	result := &IndexResult{Model: p.embedder.ModelName()}

	// 1. Load sources
	docs, report, err := p.loader.Load(ctx)
	if report != nil {
		result.Sources = report.Loaded
		for _, s := range report.Skipped {
			result.FailedSources = append(result.FailedSources, FailedSource{Path: s.Path, Reason: s.Reason})
		}
	}
	if err != nil {
		return nil, result, fmt.Errorf("load: %w", err)
	}
	result.TotalDocs = len(docs)

	// 2. Chunk
	chunks := p.chunker.Split(docs)
	if len(chunks) == 0 {
		return nil, result, fmt.Errorf("chunk: %w", loader.ErrNoDocumentsFound)
	}
	result.TotalChunks = len(chunks)
	p.logger.Info("Chunked documents", "documents", len(docs), "chunks", len(chunks))

	// 3. Embed
	entries := make([]index.Entry, 0, len(chunks))
	for i := 0; i < len(chunks); i += embedBatchSize {
		end := min(i+embedBatchSize, len(chunks))
		texts := make([]string, 0, end-i)
		for _, c := range chunks[i:end] {
			texts = append(texts, c.Text)
		}

		vecs, err := p.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, result, fmt.Errorf("embeddings: %w", err)
		}
		for j, vec := range vecs {
			entries = append(entries, index.Entry{Chunk: chunks[i+j], Vector: vec})
		}
		p.logger.Debug("Embedded chunks", "done", end, "total", len(chunks))
	}

	// 4. Persist
	idx, err := p.store.Build(ctx, ManifestFor(p.embedder), entries)
	if err != nil {
		return nil, result, fmt.Errorf("store: %w", err)
	}

	result.Duration = time.Since(start)
	p.logger.Info("Indexing complete",
		"documents", result.TotalDocs,
		"chunks", result.TotalChunks,
		"skipped", len(result.FailedSources),
		"duration", result.Duration,
	)
	return idx, result, nil
}
