package embedder

import (
	"context"
	"fmt"
	"net/http"
)

// HTTPProvider posts {"model","input"} to an arbitrary embedding endpoint,
// such as a self-hosted gateway, and parses the response tolerantly.
type HTTPProvider struct {
	// endpoint is the full URL the request is posted to.
	endpoint string
	// apiKey, when set, is sent as a Bearer token.
	apiKey string
	// model is forwarded in the request body when non-empty.
	model string
	// client is the shared HTTP client.
	client *http.Client
}

// HTTPConfig holds the settings for constructing an HTTPProvider.
type HTTPConfig struct {
	// Endpoint is the full embedding URL.
	Endpoint string
	// APIKey is an optional Bearer token.
	APIKey string
	// Model is an optional model identifier.
	Model string
}

// NewHTTPProvider constructs an HTTPProvider from the given config.
func NewHTTPProvider(cfg *HTTPConfig) *HTTPProvider {
	return &HTTPProvider{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		model:    cfg.Model,
		client:   &http.Client{},
	}
}

// Name returns "http".
func (p *HTTPProvider) Name() string { return "http" }

// Embed posts text to the configured endpoint.
func (p *HTTPProvider) Embed(ctx context.Context, text string) ([]float64, error) {
	header := http.Header{}
	if p.apiKey != "" {
		header.Set("Authorization", "Bearer "+p.apiKey)
	}

	payload, err := postJSON(ctx, p.client, p.endpoint, header, modelInputRequest{
		Model: p.model,
		Input: text,
	})
	if err != nil {
		return nil, fmt.Errorf("http embedder: %w", err)
	}
	vec, err := decodeVector(payload)
	if err != nil {
		return nil, fmt.Errorf("http embedder: %w", err)
	}
	return vec, nil
}
