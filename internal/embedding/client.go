package embedding

import (
	"fmt"
	"os"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// ClientConfig describes an OpenAI-compatible endpoint.
type ClientConfig struct {
	BaseURL   string        // Empty uses the OpenAI default
	APIKeyEnv string        // Environment variable holding the key, e.g. GROQ_API_KEY
	Timeout   time.Duration // Per-request timeout, zero for none
}

// Client wraps an OpenAI-compatible client. It is shared by the embedder and
// the chat completer when both talk to the same provider.
type Client struct {
	client *openai.Client
}

// NewClient creates a client for cfg. It returns an error if the API key
// variable is not set.
func NewClient(cfg ClientConfig) (*Client, error) {
	apiKey := os.Getenv(cfg.APIKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("%s environment variable not set", cfg.APIKeyEnv)
	}

	// Retries are handled by callers so that timeouts surface immediately.
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}

	client := openai.NewClient(opts...)
	return &Client{client: &client}, nil
}

// Client returns the underlying OpenAI client for use in other packages (e.g., chat completion).
func (c *Client) Client() *openai.Client {
	return c.client
}
