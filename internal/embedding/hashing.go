package embedding

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
)

// DefaultHashingDimension matches all-MiniLM-L6-v2 so indexes stay comparable in size.
const DefaultHashingDimension = 384

// HashingEmbedder is an in-process embedder based on signed feature hashing of
// word tokens and character trigrams. It needs no model files or network and
// is fully deterministic, which makes it suitable for offline use and tests.
type HashingEmbedder struct {
	dim int
}

// NewHashingEmbedder creates a hashing embedder. dim <= 0 selects DefaultHashingDimension.
func NewHashingEmbedder(dim int) *HashingEmbedder {
	if dim <= 0 {
		dim = DefaultHashingDimension
	}
	return &HashingEmbedder{dim: dim}
}

func (h *HashingEmbedder) Dimension() int { return h.dim }

func (h *HashingEmbedder) ModelName() string { return fmt.Sprintf("feature-hashing-%d", h.dim) }

func (h *HashingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmbedding, err)
	}
	vec := make([]float32, h.dim)
	for _, token := range tokenize(text) {
		h.add(vec, "w:"+token, 1)
		padded := []rune("^" + token + "$")
		for i := 0; i+3 <= len(padded); i++ {
			h.add(vec, "c:"+string(padded[i:i+3]), 0.5)
		}
	}
	return Normalize(vec), nil
}

func (h *HashingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := h.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (h *HashingEmbedder) add(vec []float32, feature string, weight float32) {
	sum := xxhash.Sum64String(feature)
	if sum>>63 == 1 {
		weight = -weight
	}
	vec[sum%uint64(h.dim)] += weight
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
