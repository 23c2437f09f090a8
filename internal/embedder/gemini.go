package embedder

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// defaultGeminiBaseURL is the public Generative Language API host.
const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com"

// GeminiProvider calls the Generative Language REST API directly and parses
// the response tolerantly, so it keeps working across API versions that nest
// the vector differently.
type GeminiProvider struct {
	// baseURL is the API host, without a trailing slash.
	baseURL string
	// apiKey is sent in the x-goog-api-key header.
	apiKey string
	// model is the embedding model name without the "models/" prefix.
	model string
	// client is the shared HTTP client.
	client *http.Client
}

// GeminiConfig holds the settings for constructing a GeminiProvider.
type GeminiConfig struct {
	// BaseURL overrides the API host (default: https://generativelanguage.googleapis.com).
	BaseURL string
	// APIKey is the Google API key.
	APIKey string
	// Model is the embedding model name (e.g. "text-embedding-004").
	Model string
}

// NewGeminiProvider constructs a GeminiProvider. The HTTP client has no
// timeout of its own; the Embedder bounds each call through the context.
func NewGeminiProvider(cfg *GeminiConfig) *GeminiProvider {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = defaultGeminiBaseURL
	}
	return &GeminiProvider{
		baseURL: base,
		apiKey:  cfg.APIKey,
		model:   strings.TrimPrefix(cfg.Model, "models/"),
		client:  &http.Client{},
	}
}

// Name returns "gemini".
func (p *GeminiProvider) Name() string { return "gemini" }

// geminiEmbedRequest is the JSON body sent to the embedText endpoint.
type geminiEmbedRequest struct {
	Input string `json:"input"`
}

// Embed posts text to {base}/v1/models/{model}:embedText and returns the first
// numeric array found in the response.
func (p *GeminiProvider) Embed(ctx context.Context, text string) ([]float64, error) {
	endpoint := fmt.Sprintf("%s/v1/models/%s:embedText", p.baseURL, url.PathEscape(p.model))
	header := http.Header{"X-Goog-Api-Key": []string{p.apiKey}}

	payload, err := postJSON(ctx, p.client, endpoint, header, geminiEmbedRequest{Input: text})
	if err != nil {
		return nil, fmt.Errorf("gemini embedder: %w", err)
	}
	vec, err := decodeVector(payload)
	if err != nil {
		return nil, fmt.Errorf("gemini embedder: %w", err)
	}
	return vec, nil
}
