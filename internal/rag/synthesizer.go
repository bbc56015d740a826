package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mike-a-ellis/hse-assistant/internal/index"
	"github.com/mike-a-ellis/hse-assistant/internal/llm"
)

// Generation defaults.
const (
	DefaultTemperature = 0.1
	DefaultMaxTokens   = 1000
	DefaultTimeout     = 60 * time.Second
)

const promptTemplate = `You are an HSE (health, safety and environment) assistant specialised in the mining industry.

You MUST use the information in the context below to answer the question.
NEVER answer "I don't have the information" or "I don't have enough information".

ALWAYS use the available context to build a relevant answer, even when the information is incomplete.
If the context does not mention exactly what is asked, take the closest information it contains and adapt your answer.

AVAILABLE CONTEXT:
%s

QUESTION: %s

ANSWER (based on the context above):`

// BuildPrompt embeds the retrieved chunk texts, separated by blank lines, and
// the question verbatim into the grounding prompt.
func BuildPrompt(question string, hits []index.Hit) string {
	texts := make([]string, len(hits))
	for i, h := range hits {
		texts[i] = h.Chunk.Text
	}
	return fmt.Sprintf(promptTemplate, strings.Join(texts, "\n\n"), question)
}

// GenerationOptions fixes the sampling parameters of every request.
type GenerationOptions struct {
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// DefaultGenerationOptions returns the near-deterministic defaults.
func DefaultGenerationOptions() GenerationOptions {
	return GenerationOptions{
		Temperature: DefaultTemperature,
		MaxTokens:   DefaultMaxTokens,
		Timeout:     DefaultTimeout,
	}
}

// Synthesizer turns a question and its retrieved chunks into an Answer.
type Synthesizer struct {
	completer llm.Completer
	opts      GenerationOptions
}

func NewSynthesizer(c llm.Completer, opts GenerationOptions) *Synthesizer {
	return &Synthesizer{completer: c, opts: opts}
}

// Synthesize calls the model once. Failures are returned wrapping
// llm.ErrGeneration and are not retried.
func (s *Synthesizer) Synthesize(ctx context.Context, question string, hits []index.Hit) (Answer, error) {
	resp, err := s.completer.Complete(ctx, llm.Request{
		Prompt:      BuildPrompt(question, hits),
		Temperature: s.opts.Temperature,
		MaxTokens:   s.opts.MaxTokens,
		Timeout:     s.opts.Timeout,
	})
	if err != nil {
		if !errors.Is(err, llm.ErrGeneration) {
			err = fmt.Errorf("%w: %w", llm.ErrGeneration, err)
		}
		return Answer{}, err
	}
	if resp == nil || strings.TrimSpace(resp.Text) == "" {
		return Answer{}, fmt.Errorf("%w: empty completion", llm.ErrGeneration)
	}

	sources := make([]string, len(hits))
	for i, h := range hits {
		sources[i] = h.Chunk.Source()
	}
	return Answer{Answer: resp.Text, Sources: sources}, nil
}
