// Package middleware provides the gin middleware chain of the API.
package middleware

import (
	"context"

	"github.com/jsamuelsen/promptlib/internal/domain"
)

type contextKey string

const (
	ctxKeyRequestID     contextKey = "request_id"
	ctxKeyCorrelationID contextKey = "correlation_id"
	ctxKeyCredential    contextKey = "credential"
)

// RequestIDFromContext returns the request ID stored by RequestID, if any.
// Client adapters use it to propagate the ID downstream.
func RequestIDFromContext(ctx context.Context) string {
	return stringValue(ctx, ctxKeyRequestID)
}

// CorrelationIDFromContext returns the correlation ID stored by CorrelationID.
func CorrelationIDFromContext(ctx context.Context) string {
	return stringValue(ctx, ctxKeyCorrelationID)
}

func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID, id)
}

func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyCorrelationID, id)
}

// ContextWithCredential stores the caller's library credential.
func ContextWithCredential(ctx context.Context, cred domain.Credential) context.Context {
	return context.WithValue(ctx, ctxKeyCredential, cred)
}

// CredentialFromContext returns the stored credential, or the zero
// credential when none was supplied.
func CredentialFromContext(ctx context.Context) domain.Credential {
	if ctx == nil {
		return domain.Credential{}
	}

	cred, _ := ctx.Value(ctxKeyCredential).(domain.Credential)

	return cred
}

func stringValue(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}

	s, _ := ctx.Value(key).(string)

	return s
}
