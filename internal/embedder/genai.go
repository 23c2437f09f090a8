package embedder

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GenAIProvider embeds text with the official Google Gen AI SDK.
type GenAIProvider struct {
	// client is the Gen AI SDK client.
	client *genai.Client
	// model is the embedding model name (e.g. "text-embedding-004").
	model string
}

// NewGenAIProvider constructs a GenAIProvider backed by the Gemini API.
func NewGenAIProvider(ctx context.Context, apiKey, model string) (*GenAIProvider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("genai embedder: failed to create client: %w", err)
	}
	return &GenAIProvider{client: client, model: model}, nil
}

// Name returns "genai".
func (p *GenAIProvider) Name() string { return "genai" }

// Embed calls Models.EmbedContent for a single text.
func (p *GenAIProvider) Embed(ctx context.Context, text string) ([]float64, error) {
	resp, err := p.client.Models.EmbedContent(ctx, p.model, genai.Text(text), nil)
	if err != nil {
		return nil, fmt.Errorf("genai embedder: %w", err)
	}
	if resp == nil || len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil {
		return nil, fmt.Errorf("genai embedder: %w", ErrNoVector)
	}
	return widen(resp.Embeddings[0].Values), nil
}
