package acl

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/promptlib/internal/adapters/clients"
	"github.com/jsamuelsen/promptlib/internal/domain"
)

func response(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestMapHTTPError_Status(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		checkFn func(error) bool
	}{
		{"not found", http.StatusNotFound, `{"detail":"Prompt not found"}`, domain.IsNotFound},
		{"conflict", http.StatusConflict, ``, domain.IsConflict},
		{"bad request detail", http.StatusBadRequest, `{"detail":"A category with this name already exists."}`, domain.IsValidation},
		{"unprocessable", http.StatusUnprocessableEntity, `{"detail":[{"loc":["body","title"],"msg":"field required"}]}`, domain.IsValidation},
		{"unauthorized", http.StatusUnauthorized, `{"detail":"Could not validate credentials"}`, domain.IsForbidden},
		{"forbidden", http.StatusForbidden, ``, domain.IsForbidden},
		{"rate limited", http.StatusTooManyRequests, ``, domain.IsUnavailable},
		{"server error", http.StatusInternalServerError, `oops`, domain.IsUnavailable},
		{"bad gateway", http.StatusBadGateway, ``, domain.IsUnavailable},
		{"unknown 4xx", http.StatusTeapot, ``, domain.IsValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := MapHTTPError(response(tt.status, tt.body), nil, "library", "op", "42")

			require.Error(t, err)
			assert.True(t, tt.checkFn(err), "unexpected error type: %v", err)
		})
	}
}

func TestMapHTTPError_NotFoundCarriesEntityID(t *testing.T) {
	err := MapHTTPError(response(http.StatusNotFound, ""), nil, "library", "get prompt", "42")

	var nf *domain.NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "42", nf.ID)
}

func TestMapHTTPError_FieldErrors(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantField string
	}{
		{"list detail", `{"detail":[{"loc":["body","title"],"msg":"field required"}]}`, "title"},
		{"nested envelope", `{"error":{"code":"","message":"bad","details":{"name":"too long"}}}`, "name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := MapHTTPError(response(http.StatusUnprocessableEntity, tt.body), nil, "library", "create", "")

			var ve *domain.ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.wantField, ve.Field)
		})
	}
}

func TestMapHTTPError_ExternalCodeWins(t *testing.T) {
	err := MapHTTPError(
		response(http.StatusBadRequest, `{"error":{"code":"CONFLICT","message":"taken"}}`),
		nil, "library", "create tag", "",
	)

	assert.True(t, domain.IsConflict(err))
}

func TestMapHTTPError_ClientErrors(t *testing.T) {
	for _, cause := range []error{clients.ErrCircuitOpen, clients.ErrMaxRetriesExceeded, errors.New("dial tcp: refused")} {
		err := MapHTTPError(nil, cause, "library", "list tags", "")
		assert.True(t, domain.IsUnavailable(err), "%v", cause)
	}
}

func TestMapHTTPError_SuccessAndNil(t *testing.T) {
	assert.NoError(t, MapHTTPError(response(http.StatusOK, ""), nil, "library", "op", ""))
	assert.True(t, domain.IsUnavailable(MapHTTPError(nil, nil, "library", "op", "")))
}

func TestParseErrorResponse(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantNil bool
		code    string
		message string
	}{
		{name: "nested", body: `{"error":{"code":"NOT_FOUND","message":"gone"}}`, code: "NOT_FOUND", message: "gone"},
		{name: "flat", body: `{"code":"CONFLICT","message":"taken"}`, code: "CONFLICT", message: "taken"},
		{name: "detail string", body: `{"detail":"Category not found"}`, message: "Category not found"},
		{name: "detail list", body: `{"detail":[{"loc":["body","name"],"msg":"too short"}]}`, message: "too short"},
		{name: "empty object", body: `{}`, wantNil: true},
		{name: "not json", body: `<html>`, wantNil: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseErrorResponse(strings.NewReader(tt.body))
			if tt.wantNil {
				assert.Nil(t, got)
				return
			}

			require.NotNil(t, got)
			assert.Equal(t, tt.code, got.GetCode())
			assert.Equal(t, tt.message, got.GetMessage())
		})
	}

	assert.Nil(t, ParseErrorResponse(nil))
}

func TestMapExternalCode(t *testing.T) {
	tests := []struct {
		code    string
		checkFn func(error) bool
	}{
		{ExternalCodeNotFound, domain.IsNotFound},
		{ExternalCodeConflict, domain.IsConflict},
		{ExternalCodeValidation, domain.IsValidation},
		{ExternalCodeForbidden, domain.IsForbidden},
		{ExternalCodeUnauthorized, domain.IsForbidden},
		{"SOMETHING_ELSE", domain.IsUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.True(t, tt.checkFn(MapExternalCode(tt.code, "msg", "library", "op", "1")))
		})
	}
}
