package index

import (
	"context"
	"fmt"
	"sort"
)

// FlatIndex is an exhaustive in-memory index. Vectors are unit length, so the
// dot product is the cosine similarity.
type FlatIndex struct {
	manifest Manifest
	entries  []Entry
}

// NewFlatIndex wraps entries. The slice is owned by the index afterwards.
func NewFlatIndex(m Manifest, entries []Entry) (*FlatIndex, error) {
	if err := validateEntries(m, entries); err != nil {
		return nil, err
	}
	m.Chunks = len(entries)
	return &FlatIndex{manifest: m, entries: entries}, nil
}

func (f *FlatIndex) Search(ctx context.Context, query []float32, k int) ([]Hit, error) {
	if k < 1 {
		return nil, ErrInvalidK
	}
	if len(query) != f.manifest.Dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d",
			ErrDimensionMismatch, len(query), f.manifest.Dimension)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	hits := make([]Hit, len(f.entries))
	for i, e := range f.entries {
		hits[i] = Hit{Chunk: e.Chunk, Score: dot(query, e.Vector)}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })

	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (f *FlatIndex) Len() int { return len(f.entries) }

func (f *FlatIndex) Manifest() Manifest { return f.manifest }

func (f *FlatIndex) Close() error { return nil }

// Entries returns the indexed entries in insertion order.
func (f *FlatIndex) Entries() []Entry { return f.entries }

func dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}
