package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/jsamuelsen/promptlib/internal/adapters/http/dto"
	"github.com/jsamuelsen/promptlib/internal/adapters/http/middleware"
	"github.com/jsamuelsen/promptlib/internal/adapters/memstore"
	"github.com/jsamuelsen/promptlib/internal/app"
	"github.com/jsamuelsen/promptlib/internal/domain"
	"github.com/jsamuelsen/promptlib/internal/interchange"
	"github.com/jsamuelsen/promptlib/internal/mocks"
	"github.com/jsamuelsen/promptlib/internal/platform/config"
)

const testToken = "Bearer tok"

func newLibraryRouter(t *testing.T, lib LibraryService, maxSize int64) *gin.Engine {
	t.Helper()

	router := gin.New()
	api := router.Group("/api/v1", middleware.Credential(&config.AuthConfig{
		Required:         true,
		CredentialHeader: "Authorization",
		Scheme:           "Bearer",
	}))
	NewLibraryHandler(lib, maxSize).RegisterRoutes(api)

	return router
}

func newStoreService(store *memstore.Store) *app.LibraryService {
	return app.NewLibraryService(app.LibraryServiceConfig{
		Library: store,
		Clock:   func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) },
	})
}

func libraryRequest(router *gin.Engine, method, target, contentType, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Authorization", testToken)

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	return w
}

func seedStore(t *testing.T) *memstore.Store {
	t.Helper()

	ctx := context.Background()
	cred := domain.NewCredential("tok")
	store := memstore.New()

	cat, err := store.CreateCategory(ctx, cred, "Marketing")
	require.NoError(t, err)

	_, err = store.CreatePrompt(ctx, cred, &domain.StructuredPrompt{
		Title:      "Relance",
		Contexte:   "Client B2B",
		CategoryID: cat.ID,
		Tags:       []string{"vente"},
	})
	require.NoError(t, err)

	return store
}

func TestLibraryHandler_ExportJSON(t *testing.T) {
	router := newLibraryRouter(t, newStoreService(seedStore(t)), 0)

	w := libraryRequest(router, http.MethodGet, "/api/v1/library/export", "", "")
	require.Equal(t, http.StatusOK, w.Code)

	assert.Contains(t, w.Header().Get("Content-Type"), "application/json")
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".json")

	var doc interchange.Document
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	assert.Equal(t, []interchange.CategoryEntry{{Name: "Marketing"}}, doc.Categories)
	assert.Equal(t, []string{"vente"}, doc.Tags)
	require.Len(t, doc.Prompts, 1)
	assert.Equal(t, "Relance", doc.Prompts[0].Title)
	assert.Equal(t, "Marketing", doc.Prompts[0].Category)
}

func TestLibraryHandler_ExportFilenameMatchesDocument(t *testing.T) {
	router := newLibraryRouter(t, newStoreService(seedStore(t)), 0)

	w := libraryRequest(router, http.MethodGet, "/api/v1/library/export", "", "")
	require.Equal(t, http.StatusOK, w.Code)

	var doc interchange.Document
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	assert.Equal(t, "2024-03-01T12:00:00Z", doc.ExportedAt)

	_, params, err := mime.ParseMediaType(w.Header().Get("Content-Disposition"))
	require.NoError(t, err)
	assert.Equal(t, "promptlib-20240301-120000.json", params["filename"])
}

func TestExportFilename(t *testing.T) {
	tests := []struct {
		name       string
		exportedAt string
		want       string
	}{
		{"utc", "2024-03-01T12:00:00Z", "promptlib-20240301-120000.yaml"},
		{"offset normalized to utc", "2024-03-01T14:30:00+02:00", "promptlib-20240301-123000.yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := exportFilename(&interchange.Document{ExportedAt: tt.exportedAt}, interchange.FormatYAML)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("unparseable stamp falls back to now", func(t *testing.T) {
		got := exportFilename(&interchange.Document{ExportedAt: "yesterday"}, interchange.FormatJSON)
		assert.Regexp(t, `^promptlib-\d{8}-\d{6}\.json$`, got)
	})
}

func TestLibraryHandler_ExportYAML(t *testing.T) {
	router := newLibraryRouter(t, newStoreService(seedStore(t)), 0)

	w := libraryRequest(router, http.MethodGet, "/api/v1/library/export?format=yaml", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".yaml")

	var doc interchange.Document
	require.NoError(t, yaml.Unmarshal(w.Body.Bytes(), &doc))
	require.Len(t, doc.Prompts, 1)
	assert.Equal(t, "Client B2B", doc.Prompts[0].Contexte)
}

func TestLibraryHandler_ExportBadFormat(t *testing.T) {
	router := newLibraryRouter(t, newStoreService(memstore.New()), 0)

	w := libraryRequest(router, http.MethodGet, "/api/v1/library/export?format=xml", "", "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), dto.ErrorCodeValidation)
}

func TestLibraryHandler_RequiresCredential(t *testing.T) {
	router := newLibraryRouter(t, newStoreService(memstore.New()), 0)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/library/export", http.NoBody))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), dto.ErrorCodeUnauthorized)
}

func TestLibraryHandler_ExportForwardsCredentialAndMapsErrors(t *testing.T) {
	lib := mocks.NewMockLibrary(t)
	forbidden := domain.NewForbiddenError("list categories", "token rejected")

	isTok := mock.MatchedBy(func(c domain.Credential) bool { return c.Token() == "tok" })
	lib.On("ListCategories", mock.Anything, isTok).Return(nil, forbidden).Maybe()
	lib.On("ListTags", mock.Anything, isTok).Return(nil, forbidden).Maybe()
	lib.On("ListPrompts", mock.Anything, isTok, mock.Anything).Return(nil, forbidden).Maybe()

	router := newLibraryRouter(t, app.NewLibraryService(app.LibraryServiceConfig{Library: lib}), 0)

	w := libraryRequest(router, http.MethodGet, "/api/v1/library/export", "", "")

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), dto.ErrorCodeForbidden)
}

func TestLibraryHandler_ImportJSON(t *testing.T) {
	store := memstore.New()
	router := newLibraryRouter(t, newStoreService(store), 0)

	body := `{
		"categories": [{"name": "RH"}],
		"subcategories": [{"name": "Recrutement", "category": "RH"}],
		"tags": ["onboarding"],
		"prompts": [
			{"title": "Fiche de poste", "category": "RH", "subcategory": "Recrutement", "tags": ["rh"]},
			{"title": "", "contexte": "sans titre"},
			{"title": "Fiche de poste", "category": "RH"}
		]
	}`

	w := libraryRequest(router, http.MethodPost, "/api/v1/library/import", "application/json", body)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"created": 2, "skipped": 1}`, w.Body.String())

	cats, subs, tags, prompts := store.Counts()
	assert.Equal(t, 1, cats)
	assert.Equal(t, 1, subs)
	assert.Equal(t, 2, tags)
	assert.Equal(t, 2, prompts)
}

func TestLibraryHandler_ImportYAMLByContentType(t *testing.T) {
	store := memstore.New()
	router := newLibraryRouter(t, newStoreService(store), 0)

	body := "prompts:\n  - title: Plan\n    tags: [formation]\n"

	w := libraryRequest(router, http.MethodPost, "/api/v1/library/import", "application/yaml", body)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"created": 1, "skipped": 0}`, w.Body.String())
}

func TestLibraryHandler_ImportMalformed(t *testing.T) {
	store := memstore.New()
	router := newLibraryRouter(t, newStoreService(store), 0)

	for name, body := range map[string]string{
		"not json":        `{"prompts": [`,
		"missing prompts": `{"tags": ["a"]}`,
		"wrong type":      `{"prompts": "nope"}`,
	} {
		t.Run(name, func(t *testing.T) {
			w := libraryRequest(router, http.MethodPost, "/api/v1/library/import", "application/json", body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), dto.ErrorCodeMalformedDocument)
		})
	}

	_, _, _, prompts := store.Counts()
	assert.Zero(t, prompts)
}

func TestLibraryHandler_ImportTooLarge(t *testing.T) {
	router := newLibraryRouter(t, newStoreService(memstore.New()), 32)

	body := `{"prompts": [{"title": "` + strings.Repeat("x", 64) + `"}]}`

	w := libraryRequest(router, http.MethodPost, "/api/v1/library/import", "application/json", body)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Contains(t, w.Body.String(), dto.ErrorCodePayloadTooLarge)
}

func TestLibraryHandler_ImportAbortReportsProgress(t *testing.T) {
	store := memstore.New()
	store.FailOn[memstore.OpCreatePrompt] = domain.NewUnavailableError("library", "down")

	router := newLibraryRouter(t, newStoreService(store), 0)

	body := `{"prompts": [{"title": ""}, {"title": "Relance"}]}`

	w := libraryRequest(router, http.MethodPost, "/api/v1/library/import", "application/json", body)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	var resp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, dto.ErrorCodeUnavailable, resp.Error.Code)
	assert.Equal(t, "0", resp.Error.Details["created"])
	assert.Equal(t, "1", resp.Error.Details["skipped"])
}

type stubLibraryService struct {
	doc *interchange.Document
	err error
}

func (s stubLibraryService) Export(context.Context, domain.Credential) (*interchange.Document, error) {
	return s.doc, s.err
}

func (s stubLibraryService) Import(context.Context, domain.Credential, *interchange.Document) (app.ImportResult, error) {
	return app.ImportResult{}, s.err
}

func TestLibraryHandler_UnexpectedErrorIsInternal(t *testing.T) {
	router := newLibraryRouter(t, stubLibraryService{err: errors.New("boom")}, 0)

	w := libraryRequest(router, http.MethodGet, "/api/v1/library/export", "", "")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "boom")
}

func TestImportFormat(t *testing.T) {
	tests := []struct {
		query, contentType string
		want               interchange.Format
		wantErr            bool
	}{
		{"", "application/json", interchange.FormatJSON, false},
		{"", "application/yaml", interchange.FormatYAML, false},
		{"", "text/x-yaml; charset=utf-8", interchange.FormatYAML, false},
		{"", "", interchange.FormatJSON, false},
		{"yml", "application/json", interchange.FormatYAML, false},
		{"json", "application/yaml", interchange.FormatJSON, false},
		{"xml", "", "", true},
	}

	for _, tt := range tests {
		got, err := importFormat(tt.query, tt.contentType)
		if tt.wantErr {
			assert.Error(t, err)
			continue
		}

		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%q %q", tt.query, tt.contentType)
	}
}
