package rag

import (
	"context"
	"fmt"

	"github.com/mike-a-ellis/hse-assistant/internal/embedding"
	"github.com/mike-a-ellis/hse-assistant/internal/index"
	"github.com/mike-a-ellis/hse-assistant/internal/indexer"
)

// DefaultK is the number of chunks retrieved per question.
const DefaultK = 3

// Retriever turns a question into its top-k chunks. The embedder must be the
// one the index was built with; NewRetriever enforces this through the index
// manifest because vectors from another model give meaningless scores.
type Retriever struct {
	embedder embedding.Embedder
	index    index.Index
	k        int
}

// NewRetriever creates a retriever with fan-out k (k >= 1).
func NewRetriever(e embedding.Embedder, idx index.Index, k int) (*Retriever, error) {
	if k < 1 {
		return nil, fmt.Errorf("%w: got %d", index.ErrInvalidK, k)
	}
	if err := idx.Manifest().Compatible(indexer.ManifestFor(e)); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmbeddingMismatch, err)
	}
	return &Retriever{embedder: e, index: idx, k: k}, nil
}

// K returns the retrieval fan-out.
func (r *Retriever) K() int { return r.k }

// Retrieve embeds question and searches the index.
func (r *Retriever) Retrieve(ctx context.Context, question string) ([]index.Hit, error) {
	return r.RetrieveK(ctx, question, r.k)
}

// RetrieveK is Retrieve with an explicit fan-out, used by diagnostics.
func (r *Retriever) RetrieveK(ctx context.Context, question string, k int) ([]index.Hit, error) {
	vec, err := r.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}
	hits, err := r.index.Search(ctx, vec, k)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return hits, nil
}
