package embedder

import (
	"fmt"
	"log/slog"
	"strings"
)

// knownChatModelPrefixes contains name fragments that identify chat/completion
// models which are NOT suitable for embedding. A chat model name in
// EMBEDDING_MODEL (or inherited from GEMINI_MODEL) makes every provider call
// fail and silently produces fallback vectors.
var knownChatModelPrefixes = []string{
	"gemini-1",
	"gemini-2",
	"gemini-pro",
	"gpt-4",
	"gpt-3.5",
	"gpt-35",
	"o1",
	"o3",
	"llama3",
	"llama2",
	"llama-3",
	"llama-2",
	"mistral",
	"mixtral",
	"gemma",
	"claude",
	"deepseek",
	"qwen",
}

// looksLikeChatModel returns true when the model name resembles a known
// chat/completion model rather than a dedicated embedding model.
func looksLikeChatModel(model string) bool {
	lower := strings.ToLower(model)
	for _, prefix := range knownChatModelPrefixes {
		if strings.Contains(lower, prefix) {
			return true
		}
	}
	return false
}

// Validate is a pre-flight check for cfg. It returns an error only for
// configurations that can never work (an unknown provider). Incomplete
// configurations are legal and degrade to fallback-only embeddings, so they
// are reported as warnings to make the degradation visible at startup.
func Validate(cfg Config, log *slog.Logger) error {
	switch cfg.Provider {
	case ProviderNone, "":
		log.Info("embedder: no provider configured, all embeddings use the deterministic fallback")
		return nil

	case ProviderGemini, ProviderGenAI:
		if cfg.APIKey == "" {
			log.Warn("embedder: no API key for provider, falling back to deterministic embeddings",
				slog.String("provider", cfg.Provider),
				slog.String("hint", "set EMBEDDING_API_KEY or GOOGLE_API_KEY"),
			)
		}
		if cfg.Model == "" {
			log.Warn("embedder: no embedding model configured, falling back to deterministic embeddings",
				slog.String("provider", cfg.Provider),
				slog.String("hint", "set EMBEDDING_MODEL (e.g. text-embedding-004)"),
			)
		}

	case ProviderOpenAI:
		if cfg.APIKey == "" {
			log.Warn("embedder: no API key for provider, falling back to deterministic embeddings",
				slog.String("provider", cfg.Provider),
				slog.String("hint", "set EMBEDDING_API_KEY or OPENAI_API_KEY"),
			)
		}

	case ProviderHTTP:
		if cfg.Endpoint == "" {
			log.Warn("embedder: http provider needs EMBEDDING_ENDPOINT, falling back to deterministic embeddings")
		}

	case ProviderOllama:

	default:
		return fmt.Errorf("embedder: unknown provider %q (valid: gemini, genai, ollama, openai, http, none)", cfg.Provider)
	}

	if cfg.Model != "" && looksLikeChatModel(cfg.Model) {
		log.Warn("embedder: embedding model looks like a chat model, not an embedding model; "+
			"the provider will likely reject it and every chunk will use the fallback embedding",
			slog.String("model", cfg.Model),
			slog.String("hint", "use a dedicated embedding model e.g. text-embedding-004, nomic-embed-text"),
		)
	}

	return nil
}
