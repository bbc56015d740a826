package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chatServer(t *testing.T, handler http.HandlerFunc) *OpenAICompleter {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := openai.NewClient(
		option.WithBaseURL(srv.URL),
		option.WithAPIKey("test-key"),
		option.WithMaxRetries(0),
	)
	return NewOpenAICompleter(&client, "")
}

func writeCompletion(w http.ResponseWriter, content string) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 0,
		"model":   DefaultModel,
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
	})
}

func TestOpenAICompleter_SendsSamplingParameters(t *testing.T) {
	var got struct {
		Model       string  `json:"model"`
		Temperature float64 `json:"temperature"`
		MaxTokens   int     `json:"max_tokens"`
		Messages    []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	c := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeCompletion(w, "  Wear a helmet.  ")
	})

	resp, err := c.Complete(context.Background(), Request{
		Prompt:      "QUESTION: helmets?",
		Temperature: 0.1,
		MaxTokens:   1000,
		Timeout:     5 * time.Second,
	})
	require.NoError(t, err)
	assert.Equal(t, "Wear a helmet.", resp.Text)

	assert.Equal(t, DefaultModel, got.Model)
	assert.InDelta(t, 0.1, got.Temperature, 1e-9)
	assert.Equal(t, 1000, got.MaxTokens)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
	assert.Equal(t, "QUESTION: helmets?", got.Messages[0].Content)
}

func TestOpenAICompleter_Timeout(t *testing.T) {
	c := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	_, err := c.Complete(context.Background(), Request{Prompt: "p", Timeout: 50 * time.Millisecond})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGeneration)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestOpenAICompleter_ServiceError(t *testing.T) {
	c := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
	})

	_, err := c.Complete(context.Background(), Request{Prompt: "p"})
	assert.ErrorIs(t, err, ErrGeneration)
}

func TestOpenAICompleter_EmptyCompletion(t *testing.T) {
	c := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeCompletion(w, "   ")
	})

	_, err := c.Complete(context.Background(), Request{Prompt: "p"})
	assert.ErrorIs(t, err, ErrGeneration)
}

func TestOllamaCompleter_Complete(t *testing.T) {
	var options map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		var req struct {
			Options map[string]any `json:"options"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		options = req.Options
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"model":      "llama3.1",
			"created_at": "2025-01-01T00:00:00Z",
			"message":    map[string]any{"role": "assistant", "content": "Use the gas detector."},
			"done":       true,
		})
	}))
	defer srv.Close()

	c, err := NewOllamaCompleter(srv.URL, "llama3.1")
	require.NoError(t, err)

	resp, err := c.Complete(context.Background(), Request{Prompt: "p", Temperature: 0.1, MaxTokens: 1000})
	require.NoError(t, err)
	assert.Equal(t, "Use the gas detector.", resp.Text)
	assert.InDelta(t, 0.1, options["temperature"], 1e-9)
	assert.EqualValues(t, 1000, options["num_predict"])
}

func TestNewOllamaCompleter_RequiresModel(t *testing.T) {
	_, err := NewOllamaCompleter("http://localhost:11434", "")
	assert.Error(t, err)
}
