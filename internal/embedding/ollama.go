package embedding

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	ollama "github.com/ollama/ollama/api"
)

const (
	// DefaultOllamaModel is all-MiniLM-L6-v2 as published in the Ollama library.
	DefaultOllamaModel = "all-minilm"

	// DefaultOllamaDimension is the output size of all-MiniLM-L6-v2.
	DefaultOllamaDimension = 384

	defaultOllamaBatchSize = 64
)

// OllamaEmbedder runs a sentence-embedding model on a local Ollama server.
type OllamaEmbedder struct {
	client    *ollama.Client
	model     string
	dim       int
	batchSize int
}

// NewOllamaEmbedder connects to the Ollama server at baseURL.
func NewOllamaEmbedder(baseURL, model string, dim, batchSize int, timeout time.Duration) (*OllamaEmbedder, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse ollama url: %w", err)
	}
	if model == "" {
		model = DefaultOllamaModel
	}
	if dim <= 0 {
		dim = DefaultOllamaDimension
	}
	if batchSize <= 0 {
		batchSize = defaultOllamaBatchSize
	}
	return &OllamaEmbedder{
		client:    ollama.NewClient(u, &http.Client{Timeout: timeout}),
		model:     model,
		dim:       dim,
		batchSize: batchSize,
	}, nil
}

func (o *OllamaEmbedder) Dimension() int { return o.dim }

func (o *OllamaEmbedder) ModelName() string { return "ollama/" + o.model }

func (o *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return embedOne(ctx, o, text)
}

func (o *OllamaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += o.batchSize {
		end := min(i+o.batchSize, len(texts))
		resp, err := o.client.Embed(ctx, &ollama.EmbedRequest{
			Model: o.model,
			Input: texts[i:end],
		})
		if err != nil {
			return nil, fmt.Errorf("%w: batch %d-%d: %w", ErrEmbedding, i, end, err)
		}
		if len(resp.Embeddings) != end-i {
			return nil, fmt.Errorf("%w: batch %d-%d: got %d vectors", ErrEmbedding, i, end, len(resp.Embeddings))
		}
		for _, vec := range resp.Embeddings {
			if len(vec) != o.dim {
				return nil, fmt.Errorf("%w: %w: model returned %d dimensions, expected %d",
					ErrEmbedding, ErrDimensionMismatch, len(vec), o.dim)
			}
			out = append(out, Normalize(vec))
		}
	}
	return out, nil
}
