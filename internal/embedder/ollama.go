package embedder

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// OllamaProvider calls a local Ollama server's /api/embed endpoint.
// No API key is required.
type OllamaProvider struct {
	// host is the Ollama server base URL (e.g. "http://localhost:11434").
	host string
	// model is the embedding model name (e.g. "nomic-embed-text").
	model string
	// client is the shared HTTP client.
	client *http.Client
}

// OllamaConfig holds the settings for constructing an OllamaProvider.
type OllamaConfig struct {
	// Host is the Ollama server base URL (e.g. "http://localhost:11434").
	Host string
	// Model is the embedding model name (e.g. "nomic-embed-text").
	Model string
}

// NewOllamaProvider constructs an OllamaProvider from the given config.
func NewOllamaProvider(cfg *OllamaConfig) *OllamaProvider {
	return &OllamaProvider{
		host:   strings.TrimRight(cfg.Host, "/"),
		model:  cfg.Model,
		client: &http.Client{},
	}
}

// Name returns "ollama".
func (p *OllamaProvider) Name() string { return "ollama" }

// modelInputRequest is the {"model","input"} body shared by Ollama and the
// generic HTTP provider.
type modelInputRequest struct {
	Model string `json:"model,omitempty"`
	Input string `json:"input"`
}

// Embed posts text to {host}/api/embed. Ollama answers with
// {"embeddings":[[...]]}; the tolerant parser picks the inner array.
func (p *OllamaProvider) Embed(ctx context.Context, text string) ([]float64, error) {
	payload, err := postJSON(ctx, p.client, p.host+"/api/embed", nil, modelInputRequest{
		Model: p.model,
		Input: text,
	})
	if err != nil {
		return nil, fmt.Errorf("ollama embedder: %w", err)
	}
	vec, err := decodeVector(payload)
	if err != nil {
		return nil, fmt.Errorf("ollama embedder: %w", err)
	}
	return vec, nil
}
