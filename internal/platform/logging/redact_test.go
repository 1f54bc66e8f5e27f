package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/m-mizutani/masq"
	"github.com/stretchr/testify/assert"
)

func redacted(attr slog.Attr, opts ...masq.Option) string {
	var buf bytes.Buffer

	slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{ReplaceAttr: NewReplaceAttr(opts...)})).
		Info("test", attr)

	return buf.String()
}

func TestDefaultRedactOptions(t *testing.T) {
	assert.Greater(t, len(DefaultRedactOptions()), len(sensitiveFields))
}

func TestNewReplaceAttr(t *testing.T) {
	tests := []struct {
		key, value string
		hidden     bool
	}{
		{"password", "secret123", true},
		{"token", "my-secret-token", true},
		{"api_key", "api-key-value", true},
		{"accessToken", "access-token-value", true},
		{"Authorization", "Bearer token123", true},
		{"credential", "cred-value", true},
		{"secret_config", "sensitive-data", true},
		{"private_notes", "hidden-notes", true},
		{"auth", "Bearer abc123xyz456", true},
		{"header", "Basic dXNlcjpwYXNz", true},
		{"session", "eyJhbGciOiJIUzI1NiJ9.eyJzdWIiOiIxIn0.sig", true},
		{"title", "Relance client", false},
		{"category", "Marketing", false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			out := redacted(slog.String(tt.key, tt.value))

			assert.Contains(t, out, tt.key)
			if tt.hidden {
				assert.NotContains(t, out, tt.value)
				assert.True(t, strings.Contains(out, "REDACTED") || strings.Contains(out, "***"))
			} else {
				assert.Contains(t, out, tt.value)
			}
		})
	}
}

func TestNewReplaceAttr_ExtraOptions(t *testing.T) {
	out := redacted(slog.String("library_dsn", "postgres://u:p@h/db"), masq.WithFieldName("library_dsn"))

	assert.NotContains(t, out, "postgres://")
}
