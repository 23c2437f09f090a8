// Package config provides file-based configuration for irag.
// Configuration is loaded with a layered precedence: defaults → config file → env vars.
// Environment variables always win, so deployments driven purely by env keep working.
//
// File search order:
//  1. --config CLI flag (explicit path)
//  2. IRAG_CONFIG environment variable
//  3. ~/.irag/config.yaml
//  4. ./irag.yaml
//  5. ./irag.toml
//
// Files ending in .toml are parsed as TOML; everything else as YAML.
// If no file is found the system runs entirely from env vars.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration structure.
// Field names mirror the env var naming (lowercase, underscored).
type Config struct {
	// Embedding configures the remote embedding provider.
	Embedding EmbeddingConfig `yaml:"embedding" toml:"embedding"`

	// Chunking configures the document window.
	Chunking ChunkingConfig `yaml:"chunking" toml:"chunking"`

	// Store selects and configures chunk storage.
	Store StoreConfig `yaml:"store" toml:"store"`

	// Qdrant configures the Qdrant vector store connection.
	Qdrant QdrantConfig `yaml:"qdrant" toml:"qdrant"`

	// Postgres configures the PostgreSQL + pgvector store.
	Postgres PostgresConfig `yaml:"postgres" toml:"postgres"`

	// Server configures the HTTP server.
	Server ServerConfig `yaml:"server" toml:"server"`

	// Logging configures structured logging.
	Logging LoggingConfig `yaml:"logging" toml:"logging"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	// Provider selects the backend: gemini, genai, ollama, openai, http, none.
	Provider string `yaml:"provider" toml:"provider"`
	// Model is the embedding model name.
	Model string `yaml:"model" toml:"model"`
	// APIKey is the embedding API key. Prefer env var EMBEDDING_API_KEY.
	APIKey string `yaml:"api_key" toml:"api_key"`
	// Endpoint overrides the provider base URL.
	Endpoint string `yaml:"endpoint" toml:"endpoint"`
	// Dimensions requests a vector size where the provider supports it.
	Dimensions int `yaml:"dimensions" toml:"dimensions"`
	// Timeout bounds each remote call, as a Go duration ("30s").
	Timeout string `yaml:"timeout" toml:"timeout"`
	// RateLimit paces remote calls in requests per second.
	RateLimit float64 `yaml:"rate_limit" toml:"rate_limit"`
	// RateBurst is the pacing burst size.
	RateBurst int `yaml:"rate_burst" toml:"rate_burst"`
	// Gemini holds Google settings shared with the chat side of a deployment.
	Gemini GeminiConfig `yaml:"gemini" toml:"gemini"`
	// Ollama holds Ollama settings.
	Ollama OllamaConfig `yaml:"ollama" toml:"ollama"`
	// OpenAI holds OpenAI settings.
	OpenAI OpenAIConfig `yaml:"openai" toml:"openai"`
}

// GeminiConfig holds Google Gemini settings.
type GeminiConfig struct {
	// APIKey is the Google API key. Prefer env var GOOGLE_API_KEY.
	APIKey string `yaml:"api_key" toml:"api_key"`
	// Model is used as the embedding model when embedding.model is unset.
	Model string `yaml:"model" toml:"model"`
}

// OllamaConfig holds Ollama provider settings.
type OllamaConfig struct {
	// Host is the Ollama API endpoint.
	Host string `yaml:"host" toml:"host"`
}

// OpenAIConfig holds OpenAI provider settings.
type OpenAIConfig struct {
	// APIKey is the OpenAI API key. Prefer env var OPENAI_API_KEY.
	APIKey string `yaml:"api_key" toml:"api_key"`
}

// ChunkingConfig holds the chunk window.
type ChunkingConfig struct {
	// Size is the window size in characters.
	Size int `yaml:"size" toml:"size"`
	// Overlap is the overlap between consecutive windows in characters.
	Overlap int `yaml:"overlap" toml:"overlap"`
	// Concurrency bounds parallel chunk embedding per document.
	Concurrency int `yaml:"concurrency" toml:"concurrency"`
}

// StoreConfig selects the chunk store.
type StoreConfig struct {
	// Backend is one of sqlite, memory, qdrant, postgres.
	Backend string `yaml:"backend" toml:"backend"`
	// DBPath is the SQLite database path.
	DBPath string `yaml:"db_path" toml:"db_path"`
}

// QdrantConfig holds Qdrant vector store settings.
type QdrantConfig struct {
	// Host is the Qdrant server hostname.
	Host string `yaml:"host" toml:"host"`
	// Port is the Qdrant gRPC port.
	Port int `yaml:"port" toml:"port"`
	// Collection is the Qdrant collection name.
	Collection string `yaml:"collection" toml:"collection"`
	// VectorSize is the collection vector length.
	VectorSize int `yaml:"vector_size" toml:"vector_size"`
	// APIKey is the Qdrant API key. Prefer env var QDRANT_API_KEY.
	APIKey string `yaml:"api_key" toml:"api_key"`
	// TLS enables TLS for the Qdrant connection.
	TLS bool `yaml:"tls" toml:"tls"`
}

// PostgresConfig holds PostgreSQL settings.
type PostgresConfig struct {
	// DSN is the connection string. Prefer env var POSTGRES_DSN.
	DSN string `yaml:"dsn" toml:"dsn"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the bind address.
	Host string `yaml:"host" toml:"host"`
	// Port is the TCP port.
	Port int `yaml:"port" toml:"port"`
	// APIKey is the Bearer token for API authentication. Prefer env var IRAG_API_KEY.
	APIKey string `yaml:"api_key" toml:"api_key"`
	// RateLimit is the per-IP request rate on the embedding endpoints.
	RateLimit float64 `yaml:"rate_limit" toml:"rate_limit"`
	// RateBurst is the per-IP burst size.
	RateBurst int `yaml:"rate_burst" toml:"rate_burst"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string `yaml:"level" toml:"level"`
	// Format is the log output format: json, text.
	Format string `yaml:"format" toml:"format"`
}

// envMapping maps config file fields to their corresponding env var names.
// Only non-empty file values are applied; env vars always take precedence.
var envMapping = []struct {
	envKey string
	value  func(*Config) string
}{
	{"EMBEDDING_PROVIDER", func(c *Config) string { return c.Embedding.Provider }},
	{"EMBEDDING_MODEL", func(c *Config) string { return c.Embedding.Model }},
	{"EMBEDDING_API_KEY", func(c *Config) string { return c.Embedding.APIKey }},
	{"EMBEDDING_ENDPOINT", func(c *Config) string { return c.Embedding.Endpoint }},
	{"EMBEDDING_DIMENSIONS", func(c *Config) string { return intStr(c.Embedding.Dimensions) }},
	{"EMBEDDING_TIMEOUT", func(c *Config) string { return c.Embedding.Timeout }},
	{"EMBEDDING_RATE_LIMIT", func(c *Config) string { return floatStr(c.Embedding.RateLimit) }},
	{"EMBEDDING_RATE_BURST", func(c *Config) string { return intStr(c.Embedding.RateBurst) }},
	{"GOOGLE_API_KEY", func(c *Config) string { return c.Embedding.Gemini.APIKey }},
	{"GEMINI_MODEL", func(c *Config) string { return c.Embedding.Gemini.Model }},
	{"OLLAMA_HOST", func(c *Config) string { return c.Embedding.Ollama.Host }},
	{"OPENAI_API_KEY", func(c *Config) string { return c.Embedding.OpenAI.APIKey }},
	{"CHUNK_SIZE", func(c *Config) string { return intStr(c.Chunking.Size) }},
	{"CHUNK_OVERLAP", func(c *Config) string { return intStr(c.Chunking.Overlap) }},
	{"CHUNK_CONCURRENCY", func(c *Config) string { return intStr(c.Chunking.Concurrency) }},
	{"IRAG_STORE", func(c *Config) string { return c.Store.Backend }},
	{"IRAG_DB", func(c *Config) string { return c.Store.DBPath }},
	{"QDRANT_HOST", func(c *Config) string { return c.Qdrant.Host }},
	{"QDRANT_PORT", func(c *Config) string { return intStr(c.Qdrant.Port) }},
	{"QDRANT_COLLECTION", func(c *Config) string { return c.Qdrant.Collection }},
	{"QDRANT_VECTOR_SIZE", func(c *Config) string { return intStr(c.Qdrant.VectorSize) }},
	{"QDRANT_API_KEY", func(c *Config) string { return c.Qdrant.APIKey }},
	{"QDRANT_TLS", func(c *Config) string { return boolStr(c.Qdrant.TLS) }},
	{"POSTGRES_DSN", func(c *Config) string { return c.Postgres.DSN }},
	{"IRAG_HOST", func(c *Config) string { return c.Server.Host }},
	{"IRAG_PORT", func(c *Config) string { return intStr(c.Server.Port) }},
	{"IRAG_API_KEY", func(c *Config) string { return c.Server.APIKey }},
	{"IRAG_RATE_LIMIT", func(c *Config) string { return floatStr(c.Server.RateLimit) }},
	{"IRAG_RATE_BURST", func(c *Config) string { return intStr(c.Server.RateBurst) }},
	{"LOG_LEVEL", func(c *Config) string { return c.Logging.Level }},
	{"LOG_FORMAT", func(c *Config) string { return c.Logging.Format }},
}

// Load reads a YAML or TOML config file and applies non-empty values as
// environment variables. Existing env vars are never overwritten (env always
// wins). Returns the path that was loaded, or empty string if no file was found.
func Load(explicitPath string, log *slog.Logger) (string, error) {
	path := resolveConfigPath(explicitPath)
	if path == "" {
		log.Debug("config: no config file found, using env vars only")
		return "", nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	cfg, err := parse(path, data)
	if err != nil {
		return "", err
	}

	applied := 0
	for _, m := range envMapping {
		val := m.value(cfg)
		if val == "" {
			continue
		}
		if os.Getenv(m.envKey) != "" {
			continue // env var already set, do not override
		}
		if err := os.Setenv(m.envKey, val); err != nil {
			return "", fmt.Errorf("config: set %s: %w", m.envKey, err)
		}
		applied++
	}

	log.Info("config: loaded config file",
		slog.String("path", path),
		slog.Int("keys_applied", applied),
	)

	return path, nil
}

// LoadEnvFile loads KEY=VALUE pairs from a dotenv file without overriding
// variables that are already set. A missing file is not an error when
// optional is true.
func LoadEnvFile(path string, optional bool) error {
	if _, err := os.Stat(path); err != nil {
		if optional && os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("config: env file %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("config: failed to load env file %s: %w", path, err)
	}
	return nil
}

// parse decodes data as TOML or YAML depending on the file extension.
func parse(path string, data []byte) (*Config, error) {
	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: failed to parse TOML %s: %w", path, err)
		}
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: failed to parse YAML %s: %w", path, err)
		}
	}
	return &cfg, nil
}

// resolveConfigPath returns the first config file path that exists.
func resolveConfigPath(explicit string) string {
	if explicit != "" {
		if _, err := os.Stat(explicit); err == nil {
			return explicit
		}
		return ""
	}

	if envPath := os.Getenv("IRAG_CONFIG"); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	home, err := os.UserHomeDir()
	if err == nil {
		p := filepath.Join(home, ".irag", "config.yaml")
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	for _, local := range []string{"irag.yaml", "irag.toml"} {
		if _, err := os.Stat(local); err == nil {
			return local
		}
	}

	return ""
}

// intStr converts an int to string, returning "" for zero values.
func intStr(v int) string {
	if v == 0 {
		return ""
	}
	return strconv.Itoa(v)
}

// floatStr converts a float64 to its shortest string form, returning "" for zero.
func floatStr(v float64) string {
	if v == 0 {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// boolStr converts a bool to string, returning "" for false.
func boolStr(v bool) string {
	if !v {
		return ""
	}
	return "true"
}
