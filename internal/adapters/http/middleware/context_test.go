package middleware

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jsamuelsen/promptlib/internal/domain"
)

func TestContextIDs(t *testing.T) {
	ctx := context.Background()

	assert.Empty(t, RequestIDFromContext(ctx))
	assert.Empty(t, CorrelationIDFromContext(ctx))
	assert.Empty(t, RequestIDFromContext(nil)) //nolint:staticcheck // nil guard

	ctx = ContextWithRequestID(ctx, "request-123")
	ctx = ContextWithCorrelationID(ctx, "correlation-456")

	assert.Equal(t, "request-123", RequestIDFromContext(ctx))
	assert.Equal(t, "correlation-456", CorrelationIDFromContext(ctx))
}

func TestContextCredential(t *testing.T) {
	assert.True(t, CredentialFromContext(context.Background()).IsZero())
	assert.True(t, CredentialFromContext(nil).IsZero()) //nolint:staticcheck // nil guard

	ctx := ContextWithCredential(context.Background(), domain.NewCredential("tok"))
	assert.Equal(t, "tok", CredentialFromContext(ctx).Token())
}
