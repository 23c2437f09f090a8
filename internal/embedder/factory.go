package embedder

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Provider names accepted by NewProvider.
const (
	ProviderGemini = "gemini"
	ProviderGenAI  = "genai"
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
	ProviderHTTP   = "http"
	ProviderNone   = "none"
)

// Default embedding models per provider.
const (
	defaultOllamaModel = "nomic-embed-text"
	defaultOpenAIModel = "text-embedding-3-small"
	defaultOllamaHost  = "http://localhost:11434"
)

// Config is the explicit embedding configuration handed to NewFromConfig.
// Nothing in this package reads global state once a Config exists.
type Config struct {
	// Provider selects the backend: gemini, genai, ollama, openai, http, none.
	Provider string
	// Model is the embedding model name.
	Model string
	// APIKey authenticates against the provider.
	APIKey string
	// Endpoint overrides the provider base URL (required for http).
	Endpoint string
	// Dimensions requests a vector length where the provider supports it.
	Dimensions int
	// Timeout bounds each remote call (default DefaultTimeout).
	Timeout time.Duration
	// RateLimit paces remote calls in requests/second (0 = unlimited).
	RateLimit float64
	// RateBurst is the pacing burst size (default 1).
	RateBurst int
}

// ConfigFromEnv resolves a Config from environment variables, inheriting
// provider-specific credentials when embedding-specific ones are unset.
//
// Resolution order:
//
//  1. EMBEDDING_PROVIDER (default: gemini)
//  2. EMBEDDING_MODEL, else GEMINI_MODEL for gemini/genai, else the provider default
//  3. EMBEDDING_API_KEY, else GOOGLE_API_KEY (gemini/genai) or OPENAI_API_KEY (openai)
//  4. EMBEDDING_ENDPOINT, else OLLAMA_HOST for ollama
//  5. EMBEDDING_DIMENSIONS, EMBEDDING_TIMEOUT, EMBEDDING_RATE_LIMIT, EMBEDDING_RATE_BURST
func ConfigFromEnv() Config {
	cfg := Config{
		Provider:   getEnvOrDefault("EMBEDDING_PROVIDER", ProviderGemini),
		Model:      os.Getenv("EMBEDDING_MODEL"),
		APIKey:     os.Getenv("EMBEDDING_API_KEY"),
		Endpoint:   os.Getenv("EMBEDDING_ENDPOINT"),
		Dimensions: getEnvInt("EMBEDDING_DIMENSIONS", 0),
		Timeout:    getEnvDuration("EMBEDDING_TIMEOUT", DefaultTimeout),
		RateLimit:  getEnvFloat("EMBEDDING_RATE_LIMIT", 0),
		RateBurst:  getEnvInt("EMBEDDING_RATE_BURST", 1),
	}

	switch cfg.Provider {
	case ProviderGemini, ProviderGenAI:
		if cfg.Model == "" {
			cfg.Model = os.Getenv("GEMINI_MODEL")
		}
		if cfg.APIKey == "" {
			cfg.APIKey = os.Getenv("GOOGLE_API_KEY")
		}
	case ProviderOllama:
		if cfg.Model == "" {
			cfg.Model = defaultOllamaModel
		}
		if cfg.Endpoint == "" {
			cfg.Endpoint = getEnvOrDefault("OLLAMA_HOST", defaultOllamaHost)
		}
	case ProviderOpenAI:
		if cfg.Model == "" {
			cfg.Model = defaultOpenAIModel
		}
		if cfg.APIKey == "" {
			cfg.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	}
	return cfg
}

// NewProvider builds the remote Provider described by cfg. It returns a nil
// Provider and a nil error when the configuration is incomplete (no model, no
// key, no endpoint): missing configuration means "always use the fallback",
// not a startup failure. Unknown provider names are an error.
func NewProvider(ctx context.Context, cfg Config) (Provider, error) {
	switch cfg.Provider {
	case ProviderNone, "":
		return nil, nil

	case ProviderGemini:
		if cfg.Model == "" || cfg.APIKey == "" {
			return nil, nil
		}
		return NewGeminiProvider(&GeminiConfig{
			BaseURL: cfg.Endpoint,
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
		}), nil

	case ProviderGenAI:
		if cfg.Model == "" || cfg.APIKey == "" {
			return nil, nil
		}
		p, err := NewGenAIProvider(ctx, cfg.APIKey, cfg.Model)
		if err != nil {
			return nil, err
		}
		return p, nil

	case ProviderOllama:
		host := cfg.Endpoint
		if host == "" {
			host = defaultOllamaHost
		}
		model := cfg.Model
		if model == "" {
			model = defaultOllamaModel
		}
		return NewOllamaProvider(&OllamaConfig{Host: host, Model: model}), nil

	case ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, nil
		}
		model := cfg.Model
		if model == "" {
			model = defaultOpenAIModel
		}
		return NewOpenAIProvider(&OpenAIConfig{
			BaseURL:    cfg.Endpoint,
			APIKey:     cfg.APIKey,
			Model:      model,
			Dimensions: cfg.Dimensions,
		}), nil

	case ProviderHTTP:
		if cfg.Endpoint == "" {
			return nil, nil
		}
		return NewHTTPProvider(&HTTPConfig{
			Endpoint: cfg.Endpoint,
			APIKey:   cfg.APIKey,
			Model:    cfg.Model,
		}), nil

	default:
		return nil, fmt.Errorf("embedder: unknown provider %q (valid: gemini, genai, ollama, openai, http, none)", cfg.Provider)
	}
}

// NewFromConfig builds an Embedder from cfg. Extra options are applied after
// the ones derived from cfg.
func NewFromConfig(ctx context.Context, cfg Config, opts ...Option) (*Embedder, error) {
	provider, err := NewProvider(ctx, cfg)
	if err != nil {
		return nil, err
	}
	base := []Option{
		WithTimeout(cfg.Timeout),
		WithRateLimit(cfg.RateLimit, cfg.RateBurst),
	}
	return New(provider, append(base, opts...)...), nil
}

// getEnvOrDefault returns the value of the named environment variable, or
// fallback if the variable is unset or empty.
func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvInt returns the integer value of the named environment variable, or
// fallback if the variable is unset, empty, or not parseable.
func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

// getEnvFloat is the float64 counterpart of getEnvInt.
func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

// getEnvDuration parses a Go duration ("30s", "1m") from the named variable.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
