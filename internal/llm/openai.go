package llm

import (
	"context"
	"strings"

	"github.com/openai/openai-go"
)

// DefaultModel is the Groq-hosted model used by default.
const DefaultModel = "llama-3.1-8b-instant"

// OpenAICompleter calls the chat completions API of an OpenAI-compatible
// endpoint such as Groq.
type OpenAICompleter struct {
	client *openai.Client
	model  string
}

// NewOpenAICompleter creates a completer using client. An empty model selects DefaultModel.
func NewOpenAICompleter(client *openai.Client, model string) *OpenAICompleter {
	if model == "" {
		model = DefaultModel
	}
	return &OpenAICompleter{client: client, model: model}
}

// Complete sends the prompt as a single user message.
func (c *OpenAICompleter) Complete(ctx context.Context, req Request) (*Response, error) {
	ctx, cancel := withTimeout(ctx, req.Timeout)
	defer cancel()

	params := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(req.Prompt),
		},
		Model:       openai.ChatModel(c.model),
		Temperature: openai.Float(req.Temperature),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, failure(ctx, req.Timeout, err)
	}
	if len(resp.Choices) == 0 {
		return nil, empty()
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return nil, empty()
	}
	return &Response{Text: text}, nil
}
