package embedding

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/openai/openai-go"
)

const (
	// DefaultOpenAIModel is used when no model is configured.
	DefaultOpenAIModel = "text-embedding-3-small"

	// DefaultOpenAIDimension is the vector dimension for text-embedding-3-small.
	DefaultOpenAIDimension = 1536

	// DefaultBatchSize balances requests-per-minute vs tokens-per-minute rate limits.
	// OpenAI supports up to 2048 texts per batch, but smaller batches reduce TPM pressure.
	DefaultBatchSize = 500
)

// OpenAIEmbedder generates embeddings through an OpenAI-compatible endpoint.
// It batches requests and backs off exponentially on rate limit errors.
type OpenAIEmbedder struct {
	client    *Client
	model     string
	dim       int
	batchSize int
}

// NewOpenAIEmbedder creates an embedder. Zero values select the defaults.
func NewOpenAIEmbedder(client *Client, model string, dim, batchSize int) *OpenAIEmbedder {
	if model == "" {
		model = DefaultOpenAIModel
	}
	if dim <= 0 {
		dim = DefaultOpenAIDimension
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &OpenAIEmbedder{client: client, model: model, dim: dim, batchSize: batchSize}
}

func (e *OpenAIEmbedder) Dimension() int { return e.dim }

func (e *OpenAIEmbedder) ModelName() string { return "openai/" + e.model }

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return embedOne(ctx, e, text)
}

// EmbedBatch embeds texts in batches of batchSize, preserving input order.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	all := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += e.batchSize {
		end := min(i+e.batchSize, len(texts))
		vecs, err := e.embedBatchWithRetry(ctx, texts[i:end])
		if err != nil {
			return nil, fmt.Errorf("%w: batch %d-%d: %w", ErrEmbedding, i, end, err)
		}
		all = append(all, vecs...)
	}
	return all, nil
}

// embedBatchWithRetry retries with exponential backoff on HTTP 429.
// Other errors are treated as permanent and fail immediately.
func (e *OpenAIEmbedder) embedBatchWithRetry(ctx context.Context, texts []string) ([][]float32, error) {
	var vecs [][]float32

	operation := func() error {
		resp, err := e.client.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
			Input: openai.EmbeddingNewParamsInputUnion{
				OfArrayOfStrings: texts,
			},
			Model: openai.EmbeddingModel(e.model),
		})
		if err != nil {
			if isRateLimitError(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		if len(resp.Data) != len(texts) {
			return backoff.Permanent(fmt.Errorf("got %d vectors for %d inputs", len(resp.Data), len(texts)))
		}

		vecs = make([][]float32, len(texts))
		for _, data := range resp.Data {
			if data.Index < 0 || int(data.Index) >= len(texts) {
				return backoff.Permanent(fmt.Errorf("response index %d out of range", data.Index))
			}
			if len(data.Embedding) != e.dim {
				return backoff.Permanent(fmt.Errorf("%w: model returned %d dimensions, expected %d",
					ErrDimensionMismatch, len(data.Embedding), e.dim))
			}
			vecs[data.Index] = Normalize(toFloat32(data.Embedding))
		}
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second

	err := backoff.Retry(operation, backoff.WithContext(b, ctx))
	return vecs, err
}

func isRateLimitError(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests
	}
	return false
}

// toFloat32 converts []float64 to []float32.
// The API returns float64, but the index stores float32.
func toFloat32(f64 []float64) []float32 {
	f32 := make([]float32, len(f64))
	for i, v := range f64 {
		f32[i] = float32(v)
	}
	return f32
}
