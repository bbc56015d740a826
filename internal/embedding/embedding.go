// Package embedding maps chunk and question text to unit-length vectors.
package embedding

import (
	"context"
	"errors"
	"math"
)

var (
	ErrEmbedding         = errors.New("embedding failed")
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// Embedder produces L2-normalised vectors of a fixed dimension.
// EmbedBatch(ctx, xs)[i] must equal Embed(ctx, xs[i]).
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
	ModelName() string
}

// Normalize scales v to unit length in place. A zero vector is left as is.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	inv := 1 / math.Sqrt(sum)
	for i, x := range v {
		v[i] = float32(float64(x) * inv)
	}
	return v
}

// embedOne is the shared single-text path for batch-first providers.
func embedOne(ctx context.Context, e Embedder, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}
