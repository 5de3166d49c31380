// Package openai wraps the OpenAI chat completions API. The same client
// speaks to api.openai.com, to an OpenAI-compatible base URL, or to an
// Azure OpenAI resource when an API version is configured.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// Variant names reported by Client.Variant
const (
	VariantDirect = "openai"
	VariantAzure  = "azure"
)

// Config selects and authenticates the remote endpoint
type Config struct {
	APIKey string
	// Endpoint overrides the base URL. With APIVersion it is the Azure resource URL.
	Endpoint   string
	APIVersion string
	HTTPClient *http.Client
}

// Client wraps the go-openai client
type Client struct {
	client  *openai.Client
	variant string
}

// New creates a client. Azure OpenAI is used only when both an endpoint and
// an API version are set; otherwise the direct API is used, with the endpoint
// as base URL override when present.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("api key is required")
	}

	endpoint := strings.TrimRight(cfg.Endpoint, "/")
	if endpoint != "" {
		if _, err := url.Parse(endpoint); err != nil {
			return nil, fmt.Errorf("invalid endpoint: %w", err)
		}
	}

	var (
		clientCfg openai.ClientConfig
		variant   string
	)
	if endpoint != "" && cfg.APIVersion != "" {
		clientCfg = openai.DefaultAzureConfig(cfg.APIKey, endpoint)
		clientCfg.APIVersion = cfg.APIVersion
		// the configured model is the deployment name, used verbatim
		clientCfg.AzureModelMapperFunc = func(model string) string { return model }
		variant = VariantAzure
	} else {
		clientCfg = openai.DefaultConfig(cfg.APIKey)
		if endpoint != "" {
			clientCfg.BaseURL = endpoint
		}
		variant = VariantDirect
	}
	if cfg.HTTPClient != nil {
		clientCfg.HTTPClient = cfg.HTTPClient
	}

	return &Client{
		client:  openai.NewClientWithConfig(clientCfg),
		variant: variant,
	}, nil
}

// Variant reports which protocol variant the client speaks
func (c *Client) Variant() string {
	return c.variant
}

// Complete sends a system and a user message and returns the first choice's content
func (c *Client) Complete(ctx context.Context, model, system, prompt string, temperature float32) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: temperature,
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}

	return resp.Choices[0].Message.Content, nil
}
