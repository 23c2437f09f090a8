// Package audit provides a structured audit logger for CLI command invocations.
// It logs command name, resolved configuration, and sanitised environment state
// so operators can trace what happened without exposing secret values.
//
// Secrets are logged as presence/absence only, never their values.
// Connection strings are logged with their password masked.
package audit

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"strings"
)

// auditEntry defines an env var to include in the audit log.
type auditEntry struct {
	// key is the environment variable name.
	key string
	// kind selects how the value is sanitised.
	kind valueKind
}

// valueKind selects how an env var value is sanitised.
type valueKind int

const (
	plain  valueKind = iota // logged verbatim
	secret                  // logged as set/unset
	dsn                     // logged with the password masked
)

// auditKeys is the ordered list of env vars included in every audit log entry.
var auditKeys = []auditEntry{
	{"EMBEDDING_PROVIDER", plain},
	{"EMBEDDING_MODEL", plain},
	{"EMBEDDING_ENDPOINT", plain},
	{"EMBEDDING_API_KEY", secret},
	{"GEMINI_MODEL", plain},
	{"GOOGLE_API_KEY", secret},
	{"OLLAMA_HOST", plain},
	{"OPENAI_API_KEY", secret},
	{"CHUNK_SIZE", plain},
	{"CHUNK_OVERLAP", plain},
	{"IRAG_STORE", plain},
	{"IRAG_DB", plain},
	{"QDRANT_HOST", plain},
	{"QDRANT_PORT", plain},
	{"QDRANT_COLLECTION", plain},
	{"QDRANT_API_KEY", secret},
	{"POSTGRES_DSN", dsn},
	{"IRAG_API_KEY", secret},
	{"LOG_LEVEL", plain},
	{"LOG_FORMAT", plain},
}

// secretEnvKeys lists environment variable names whose values must never be
// logged. Only presence ("set") or absence ("unset") is recorded.
var secretEnvKeys = func() map[string]bool {
	m := make(map[string]bool)
	for _, e := range auditKeys {
		if e.kind == secret {
			m[e.key] = true
		}
	}
	return m
}()

// LogCommandStart emits a structured audit log entry when a CLI command begins.
// It records the command name, config file source, and sanitised environment.
func LogCommandStart(ctx context.Context, log *slog.Logger, command string, configPath string) {
	attrs := []slog.Attr{
		slog.String("command", command),
		slog.String("config_file", sanitiseConfigPath(configPath)),
	}

	for _, entry := range auditKeys {
		val := os.Getenv(entry.key)
		switch entry.kind {
		case secret:
			attrs = append(attrs, slog.String(entry.key, presence(val)))
		case dsn:
			attrs = append(attrs, slog.String(entry.key, maskDSN(val)))
		default:
			attrs = append(attrs, slog.String(entry.key, valOrUnset(val)))
		}
	}

	log.LogAttrs(ctx, slog.LevelInfo, "audit: command start", attrs...)
}

// SanitiseKey returns "set" or "unset" for known secret keys, or the actual
// value for non-secret keys. This is safe to use in log messages.
func SanitiseKey(key, value string) string {
	if secretEnvKeys[key] {
		return presence(value)
	}
	if key == "POSTGRES_DSN" {
		return maskDSN(value)
	}
	return valOrUnset(value)
}

// presence returns "set" if the value is non-empty, "unset" otherwise.
func presence(v string) string {
	if v != "" {
		return "set"
	}
	return "unset"
}

// valOrUnset returns the value if non-empty, "unset" otherwise.
func valOrUnset(v string) string {
	if v != "" {
		return v
	}
	return "unset"
}

// maskDSN replaces the password of a URL-style connection string with
// "xxxxx". Strings that do not parse as URLs are reduced to presence.
func maskDSN(v string) string {
	if v == "" {
		return "unset"
	}
	u, err := url.Parse(v)
	if err != nil || u.Scheme == "" {
		return "set"
	}
	return u.Redacted()
}

// sanitiseConfigPath returns the config path or "none" if empty.
func sanitiseConfigPath(p string) string {
	if p == "" {
		return "none"
	}
	// Redact home directory for privacy in logs.
	home, err := os.UserHomeDir()
	if err == nil && strings.HasPrefix(p, home) {
		return "~" + p[len(home):]
	}
	return p
}
