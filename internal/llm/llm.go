// Package llm is the request/response boundary to the text-completion service.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var ErrGeneration = errors.New("generation failed")

// Request is a single completion call.
type Request struct {
	Prompt      string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration // Zero means no per-request timeout
}

// Response carries the completion text.
type Response struct {
	Text string
}

// Completer sends a prompt to a language model. Errors wrap ErrGeneration;
// a timeout additionally satisfies errors.Is(err, context.DeadlineExceeded).
type Completer interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// failure classifies err; deadline errors from ctx are reported as timeouts.
func failure(ctx context.Context, timeout time.Duration, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: request timed out after %s: %w", ErrGeneration, timeout, context.DeadlineExceeded)
	}
	return fmt.Errorf("%w: %w", ErrGeneration, err)
}

func empty() error {
	return fmt.Errorf("%w: empty completion", ErrGeneration)
}
