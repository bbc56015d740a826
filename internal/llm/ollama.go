package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	ollama "github.com/ollama/ollama/api"
)

// OllamaCompleter runs chat completions on a local Ollama server.
type OllamaCompleter struct {
	client *ollama.Client
	model  string
}

// NewOllamaCompleter connects to the Ollama server at baseURL.
func NewOllamaCompleter(baseURL, model string) (*OllamaCompleter, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse ollama url: %w", err)
	}
	if model == "" {
		return nil, fmt.Errorf("ollama model not configured")
	}
	return &OllamaCompleter{client: ollama.NewClient(u, http.DefaultClient), model: model}, nil
}

func (c *OllamaCompleter) Complete(ctx context.Context, req Request) (*Response, error) {
	ctx, cancel := withTimeout(ctx, req.Timeout)
	defer cancel()

	stream := false
	options := map[string]any{"temperature": req.Temperature}
	if req.MaxTokens > 0 {
		options["num_predict"] = req.MaxTokens
	}

	var out strings.Builder
	err := c.client.Chat(ctx, &ollama.ChatRequest{
		Model:    c.model,
		Messages: []ollama.Message{{Role: "user", Content: req.Prompt}},
		Stream:   &stream,
		Options:  options,
	}, func(resp ollama.ChatResponse) error {
		out.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return nil, failure(ctx, req.Timeout, err)
	}

	text := strings.TrimSpace(out.String())
	if text == "" {
		return nil, empty()
	}
	return &Response{Text: text}, nil
}
