// Package index persists chunk embeddings and answers nearest-neighbour queries.
//
// A Store owns the persisted form. Build replaces it completely, Load restores
// it without recomputing embeddings. Load fails with ErrIndexNotFound when
// nothing has been built and with ErrIndexLoad when the persisted index is
// corrupt, incomplete or was built for another embedding model; in both cases
// callers rebuild.
package index

import (
	"context"
	"fmt"
	"time"

	"github.com/mike-a-ellis/hse-assistant/internal/document"
)

// Manifest identifies the embedding space an index was built in.
type Manifest struct {
	Model     string    `json:"model"`
	Dimension int       `json:"dimension"`
	Chunks    int       `json:"chunks"`
	BuiltAt   time.Time `json:"built_at"`
}

// Compatible reports whether an index with manifest m can serve queries
// embedded as described by want.
func (m Manifest) Compatible(want Manifest) error {
	if m.Model != want.Model {
		return fmt.Errorf("built with model %q, want %q", m.Model, want.Model)
	}
	if m.Dimension != want.Dimension {
		return fmt.Errorf("%w: built with %d dimensions, want %d", ErrDimensionMismatch, m.Dimension, want.Dimension)
	}
	return nil
}

// Entry is a chunk and its embedding.
type Entry struct {
	Chunk  document.Chunk
	Vector []float32
}

// Hit is one search result.
type Hit struct {
	Chunk document.Chunk
	Score float64
}

// Index answers similarity queries over a fixed set of entries.
type Index interface {
	// Search returns at most k hits in non-increasing score order. Ties keep
	// insertion order.
	Search(ctx context.Context, query []float32, k int) ([]Hit, error)
	Len() int
	Manifest() Manifest
	Close() error
}

// Store builds and loads an Index at a fixed location.
type Store interface {
	Build(ctx context.Context, m Manifest, entries []Entry) (Index, error)
	Load(ctx context.Context, want Manifest) (Index, error)
	Remove(ctx context.Context) error
}

func validateEntries(m Manifest, entries []Entry) error {
	for i, e := range entries {
		if len(e.Vector) != m.Dimension {
			return fmt.Errorf("%w: entry %d has %d dimensions, expected %d",
				ErrDimensionMismatch, i, len(e.Vector), m.Dimension)
		}
	}
	return nil
}
