package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/promptlib/internal/adapters/http/dto"
	"github.com/jsamuelsen/promptlib/internal/domain"
	"github.com/jsamuelsen/promptlib/internal/platform/config"
)

// ContextKeyCredential is the gin key holding the caller's domain.Credential.
const ContextKeyCredential = "credential"

// Credential extracts the caller's opaque library credential from the
// configured header and attaches it to the request. The scheme prefix, if
// configured and present, is stripped. The token is never inspected here;
// the library collaborator is the one that accepts or rejects it.
//
// When cfg.Required is set a missing credential aborts with 401.
func Credential(cfg *config.AuthConfig) gin.HandlerFunc {
	header := config.DefaultCredentialHeader
	scheme := ""
	required := false

	if cfg != nil {
		if cfg.CredentialHeader != "" {
			header = cfg.CredentialHeader
		}

		scheme = cfg.Scheme
		required = cfg.Required
	}

	return func(c *gin.Context) {
		token := stripScheme(strings.TrimSpace(c.GetHeader(header)), scheme)

		if token == "" {
			if required {
				dto.AbortWithCode(c, dto.ErrorCodeUnauthorized, "a library credential is required in "+header)
				return
			}

			c.Next()

			return
		}

		cred := domain.NewCredential(token)

		c.Set(ContextKeyCredential, cred)
		c.Request = c.Request.WithContext(ContextWithCredential(c.Request.Context(), cred))

		c.Next()
	}
}

// GetCredential returns the credential attached by Credential.
func GetCredential(c *gin.Context) domain.Credential {
	if v, ok := c.Get(ContextKeyCredential); ok {
		if cred, ok := v.(domain.Credential); ok {
			return cred
		}
	}

	return domain.Credential{}
}

// stripScheme removes a leading "<scheme> ". A value that is only the scheme
// carries no token.
func stripScheme(value, scheme string) string {
	if scheme == "" {
		return value
	}

	if strings.EqualFold(value, scheme) {
		return ""
	}

	prefix := scheme + " "
	if len(value) >= len(prefix) && strings.EqualFold(value[:len(prefix)], prefix) {
		return strings.TrimSpace(value[len(prefix):])
	}

	return value
}
