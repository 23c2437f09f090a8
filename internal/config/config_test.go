package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

// clearEnv unsets keys for the duration of the test.
func clearEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoad_NoFile(t *testing.T) {
	t.Parallel()

	log := slog.Default()
	path, err := Load("/nonexistent/path/config.yaml", log)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != "" {
		t.Errorf("expected empty path, got %q", path)
	}
}

func TestLoad_ValidYAML(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	content := []byte(`
embedding:
  provider: gemini
  model: text-embedding-004
  timeout: 10s
  rate_limit: 2.5
  gemini:
    api_key: from-file
chunking:
  size: 800
  overlap: 100
store:
  backend: qdrant
qdrant:
  host: qdrant.internal
  port: 6334
  collection: interview-docs
  vector_size: 768
logging:
  level: debug
  format: text
`)
	if err := os.WriteFile(cfgPath, content, 0o644); err != nil {
		t.Fatal(err)
	}

	clearEnv(t,
		"EMBEDDING_PROVIDER", "EMBEDDING_MODEL", "EMBEDDING_TIMEOUT", "EMBEDDING_RATE_LIMIT",
		"GOOGLE_API_KEY", "CHUNK_SIZE", "CHUNK_OVERLAP", "IRAG_STORE",
		"QDRANT_HOST", "QDRANT_PORT", "QDRANT_COLLECTION", "QDRANT_VECTOR_SIZE",
		"LOG_LEVEL", "LOG_FORMAT",
	)

	loaded, err := Load(cfgPath, slog.Default())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded != cfgPath {
		t.Errorf("loaded path: got %q, want %q", loaded, cfgPath)
	}

	checks := map[string]string{
		"EMBEDDING_PROVIDER":   "gemini",
		"EMBEDDING_MODEL":      "text-embedding-004",
		"EMBEDDING_TIMEOUT":    "10s",
		"EMBEDDING_RATE_LIMIT": "2.5",
		"GOOGLE_API_KEY":       "from-file",
		"CHUNK_SIZE":           "800",
		"CHUNK_OVERLAP":        "100",
		"IRAG_STORE":           "qdrant",
		"QDRANT_HOST":          "qdrant.internal",
		"QDRANT_PORT":          "6334",
		"QDRANT_COLLECTION":    "interview-docs",
		"QDRANT_VECTOR_SIZE":   "768",
		"LOG_LEVEL":            "debug",
		"LOG_FORMAT":           "text",
	}
	for k, want := range checks {
		if got := os.Getenv(k); got != want {
			t.Errorf("%s: got %q, want %q", k, got, want)
		}
	}
}

func TestLoad_ValidTOML(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "irag.toml")

	content := []byte(`
[embedding]
provider = "ollama"
model = "nomic-embed-text"

[embedding.ollama]
host = "http://ollama:11434"

[store]
backend = "postgres"

[postgres]
dsn = "postgres://irag@db/irag"

[server]
port = 9090
rate_limit = 5
`)
	if err := os.WriteFile(cfgPath, content, 0o644); err != nil {
		t.Fatal(err)
	}

	clearEnv(t, "EMBEDDING_PROVIDER", "EMBEDDING_MODEL", "OLLAMA_HOST", "IRAG_STORE",
		"POSTGRES_DSN", "IRAG_PORT", "IRAG_RATE_LIMIT")

	if _, err := Load(cfgPath, slog.Default()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	checks := map[string]string{
		"EMBEDDING_PROVIDER": "ollama",
		"EMBEDDING_MODEL":    "nomic-embed-text",
		"OLLAMA_HOST":        "http://ollama:11434",
		"IRAG_STORE":         "postgres",
		"POSTGRES_DSN":       "postgres://irag@db/irag",
		"IRAG_PORT":          "9090",
		"IRAG_RATE_LIMIT":    "5",
	}
	for k, want := range checks {
		if got := os.Getenv(k); got != want {
			t.Errorf("%s: got %q, want %q", k, got, want)
		}
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	content := []byte(`
embedding:
  provider: ollama
`)
	if err := os.WriteFile(cfgPath, content, 0o644); err != nil {
		t.Fatal(err)
	}

	// Set env var BEFORE loading; it must not be overwritten.
	t.Setenv("EMBEDDING_PROVIDER", "gemini")

	if _, err := Load(cfgPath, slog.Default()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if got := os.Getenv("EMBEDDING_PROVIDER"); got != "gemini" {
		t.Errorf("EMBEDDING_PROVIDER: expected env override %q, got %q", "gemini", got)
	}
}

func TestLoad_ConfigFromEnvVar(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "custom.yaml")
	if err := os.WriteFile(cfgPath, []byte("store:\n  backend: memory\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("IRAG_CONFIG", cfgPath)
	clearEnv(t, "IRAG_STORE")

	loaded, err := Load("", slog.Default())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded != cfgPath {
		t.Errorf("loaded path: got %q, want %q", loaded, cfgPath)
	}
	if got := os.Getenv("IRAG_STORE"); got != "memory" {
		t.Errorf("IRAG_STORE: got %q, want memory", got)
	}
}

func TestLoad_InvalidFiles(t *testing.T) {
	dir := t.TempDir()

	cases := map[string]string{
		"config.yaml": "{{invalid yaml",
		"config.toml": "[embedding\nprovider = ",
	}
	for name, body := range cases {
		cfgPath := filepath.Join(dir, name)
		if err := os.WriteFile(cfgPath, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := Load(cfgPath, slog.Default()); err == nil {
			t.Errorf("%s: expected parse error", name)
		}
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte("IRAG_TEST_FROM_FILE=file\nIRAG_TEST_PRESET=file\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	clearEnv(t, "IRAG_TEST_FROM_FILE")
	t.Setenv("IRAG_TEST_PRESET", "env")

	if err := LoadEnvFile(envPath, false); err != nil {
		t.Fatalf("LoadEnvFile: %v", err)
	}
	if got := os.Getenv("IRAG_TEST_FROM_FILE"); got != "file" {
		t.Errorf("IRAG_TEST_FROM_FILE: got %q, want file", got)
	}
	if got := os.Getenv("IRAG_TEST_PRESET"); got != "env" {
		t.Errorf("IRAG_TEST_PRESET: env must win, got %q", got)
	}
	t.Cleanup(func() { os.Unsetenv("IRAG_TEST_FROM_FILE") })

	if err := LoadEnvFile(filepath.Join(dir, "missing.env"), true); err != nil {
		t.Errorf("optional missing file: %v", err)
	}
	if err := LoadEnvFile(filepath.Join(dir, "missing.env"), false); err == nil {
		t.Error("required missing file: want error")
	}
}

func TestFloatStr(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   float64
		want string
	}{
		{0, ""},
		{0.5, "0.5"},
		{2.5, "2.5"},
		{10, "10"},
	}
	for _, tt := range tests {
		if got := floatStr(tt.in); got != tt.want {
			t.Errorf("floatStr(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
