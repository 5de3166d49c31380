package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"
)

const DefaultURL = "http://localhost:11434"

// Client wraps the Ollama API client
type Client struct {
	client *api.Client
}

// New creates a new Ollama client
func New(ollamaURL string) (*Client, error) {
	if ollamaURL == "" {
		ollamaURL = DefaultURL
	}

	// Parse the base URL
	baseURL, err := url.Parse(strings.TrimRight(ollamaURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid Ollama URL: %w", err)
	}

	return &Client{
		client: api.NewClient(baseURL, http.DefaultClient),
	}, nil
}

// Variant reports the provider name
func (c *Client) Variant() string {
	return "ollama"
}

// Complete runs a non-streaming chat with a system and a user message.
// The model is asked for JSON output.
func (c *Client) Complete(ctx context.Context, model, system, prompt string, temperature float32) (string, error) {
	slog.Debug("ollama: sending chat request", "model", model, "prompt_chars", len(prompt))

	req := &api.ChatRequest{
		Model: model,
		Messages: []api.Message{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
		Stream:  new(bool), // false
		Format:  json.RawMessage(`"json"`),
		Options: map[string]any{"temperature": temperature},
	}

	var response strings.Builder
	err := c.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		response.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("chat failed: %w", err)
	}

	result := strings.TrimSpace(response.String())
	slog.Debug("ollama: response received", "chars", len(result))
	return result, nil
}
