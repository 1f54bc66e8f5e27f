package domain

import "log/slog"

// Credential is an opaque bearer credential. It is passed explicitly to every
// collaborator call; nothing in the core reads it from ambient state.
type Credential struct {
	token string
}

// NewCredential wraps a bearer token.
func NewCredential(token string) Credential {
	return Credential{token: token}
}

// Token returns the raw bearer token.
func (c Credential) Token() string {
	return c.token
}

// IsZero reports whether no token is present.
func (c Credential) IsZero() bool {
	return c.token == ""
}

// String never reveals the token.
func (c Credential) String() string {
	if c.token == "" {
		return "<none>"
	}

	return "[REDACTED]"
}

// LogValue implements slog.LogValuer so credentials are never logged in clear.
func (c Credential) LogValue() slog.Value {
	return slog.StringValue(c.String())
}
