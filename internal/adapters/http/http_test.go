package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/promptlib/internal/adapters/http/dto"
	"github.com/jsamuelsen/promptlib/internal/adapters/http/handlers"
	"github.com/jsamuelsen/promptlib/internal/adapters/memstore"
	"github.com/jsamuelsen/promptlib/internal/app"
	"github.com/jsamuelsen/promptlib/internal/interchange"
	"github.com/jsamuelsen/promptlib/internal/platform/config"
	"github.com/jsamuelsen/promptlib/internal/ports"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func serverConfig(maxRequestSize int64) *config.ServerConfig {
	return &config.ServerConfig{
		Host:           "127.0.0.1",
		Port:           0,
		ReadTimeout:    5 * time.Second,
		WriteTimeout:   10 * time.Second,
		IdleTimeout:    30 * time.Second,
		MaxRequestSize: maxRequestSize,
	}
}

// newTestServer wires the full router against an in-memory library.
func newTestServer(t *testing.T, maxRequestSize, maxDocumentSize int64) (*Server, *memstore.Store) {
	t.Helper()

	logger := discardLogger()
	store := memstore.New()
	reg := prometheus.NewRegistry()
	metrics := app.NewMetrics(reg)

	health := ports.NewHealthRegistry()
	require.NoError(t, health.Register(store))

	srv := New(serverConfig(maxRequestSize), logger, WithBodyLimitExempt(ImportPath))

	SetupRouter(srv.Engine(), RouterConfig{
		Logger:     logger,
		AuthConfig: &config.AuthConfig{Required: true, CredentialHeader: "Authorization", Scheme: "Bearer"},
		AppConfig:  &config.AppConfig{Name: "promptlib", Version: "test"},
		HealthHandler: handlers.NewHealthHandler(health, handlers.NewBuildInfo("test", "abc", ""), reg),
		PreviewHandler: handlers.NewPreviewHandler(app.NewPreviewService(logger, metrics)),
		LibraryHandler: handlers.NewLibraryHandler(
			app.NewLibraryService(app.LibraryServiceConfig{Library: store, Logger: logger, Metrics: metrics}),
			maxDocumentSize,
		),
		Timeout: DefaultRequestTimeout,
	})

	return srv, store
}

func do(srv *Server, method, target, body string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for k, v := range header {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	srv.Engine().ServeHTTP(w, req)

	return w
}

var withToken = map[string]string{"Authorization": "Bearer tok", "Content-Type": "application/json"}

func TestServer_NewAndAddr(t *testing.T) {
	cfg := serverConfig(1 << 20)
	cfg.Port = 8081

	srv := New(cfg, discardLogger())

	assert.NotNil(t, srv.Engine())
	assert.Same(t, cfg, srv.Config())
	assert.Equal(t, "127.0.0.1:8081", srv.Addr())
}

func TestServer_StartShutdown(t *testing.T) {
	srv := New(serverConfig(1<<20), discardLogger())
	errCh := srv.Start()

	time.Sleep(50 * time.Millisecond)

	select {
	case err := <-errCh:
		require.NoError(t, err)
	default:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, srv.Shutdown(ctx))

	select {
	case _, ok := <-errCh:
		assert.False(t, ok, "error channel should be closed")
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for server to stop")
	}
}

func TestMaxBodySize(t *testing.T) {
	srv := New(serverConfig(16), discardLogger(), WithBodyLimitExempt("/exempt"))

	echo := func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.Status(http.StatusRequestEntityTooLarge)
			return
		}

		c.String(http.StatusOK, "%d", len(body))
	}
	srv.Engine().POST("/limited", echo)
	srv.Engine().POST("/exempt", echo)

	big := strings.Repeat("x", 64)

	assert.Equal(t, http.StatusOK, do(srv, http.MethodPost, "/limited", "small", nil).Code)
	assert.Equal(t, http.StatusRequestEntityTooLarge, do(srv, http.MethodPost, "/limited", big, nil).Code)

	w := do(srv, http.MethodPost, "/exempt", big, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "64", w.Body.String())
}

func TestNewDefaultRouterConfig(t *testing.T) {
	logger := discardLogger()
	appCfg := &config.AppConfig{Name: "promptlib"}
	authCfg := &config.AuthConfig{Required: true}

	cfg := NewDefaultRouterConfig(logger, appCfg, authCfg, nil)

	assert.Equal(t, logger, cfg.Logger)
	assert.Equal(t, appCfg, cfg.AppConfig)
	assert.Equal(t, authCfg, cfg.AuthConfig)
	assert.Equal(t, DefaultRequestTimeout, cfg.Timeout)
	assert.Nil(t, cfg.LibraryHandler)
}

func TestSetupRouter_OptionalHandlers(t *testing.T) {
	engine := gin.New()

	require.NotPanics(t, func() {
		SetupRouter(engine, RouterConfig{Logger: discardLogger()})
	})

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/templates", http.NoBody))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	srv, _ := newTestServer(t, 1<<20, 1<<20)

	assert.Equal(t, http.StatusOK, do(srv, http.MethodGet, "/-/live", "", nil).Code)

	w := do(srv, http.MethodGet, "/-/ready", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "memstore")

	do(srv, http.MethodPost, "/api/v1/preview", `{"title":"x"}`, withToken)

	w = do(srv, http.MethodGet, "/-/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "promptlib_")
}

func TestRouter_PreviewNeedsNoCredential(t *testing.T) {
	srv, _ := newTestServer(t, 1<<20, 1<<20)

	w := do(srv, http.MethodPost, "/api/v1/preview", `{"title":"Demo","objectif":"Tester"}`,
		map[string]string{"Content-Type": "application/json"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	var resp dto.PreviewResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, strings.HasPrefix(resp.Markdown, "# Demo"))

	w = do(srv, http.MethodGet, "/api/v1/templates/"+url.PathEscape("Génération de script vidéo"), "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_LibraryRequiresCredential(t *testing.T) {
	srv, _ := newTestServer(t, 1<<20, 1<<20)

	w := do(srv, http.MethodGet, "/api/v1/library/export", "", nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), dto.ErrorCodeUnauthorized)
}

func TestRouter_ImportThenExport(t *testing.T) {
	srv, store := newTestServer(t, 1<<20, 1<<20)

	doc := `{
		"exported_at": "2024-03-01T12:00:00Z",
		"categories": [{"name": "Marketing"}, {"name": "RH"}],
		"subcategories": [{"name": "Emailing", "category": "Marketing"}],
		"tags": ["vente"],
		"prompts": [
			{"title": "Relance", "category": "Marketing", "subcategory": "Emailing", "tags": ["vente", "email"]},
			{"title": "Relance", "category": "Marketing"}
		]
	}`

	w := do(srv, http.MethodPost, ImportPath, doc, withToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"created": 2, "skipped": 0}`, w.Body.String())

	// Taxonomy is deduplicated by name; prompts are always added.
	w = do(srv, http.MethodPost, ImportPath, doc, withToken)
	require.Equal(t, http.StatusOK, w.Code)

	cats, subs, tags, prompts := store.Counts()
	assert.Equal(t, 2, cats)
	assert.Equal(t, 1, subs)
	assert.Equal(t, 2, tags)
	assert.Equal(t, 4, prompts)

	w = do(srv, http.MethodGet, "/api/v1/library/export", "", withToken)
	require.Equal(t, http.StatusOK, w.Code)

	var exported interchange.Document
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &exported))
	assert.Len(t, exported.Prompts, 4)
	assert.Len(t, exported.Categories, 2)

	withSub := 0
	for _, p := range exported.Prompts {
		if p.Subcategory == "Emailing" {
			withSub++
		}
	}
	assert.Equal(t, 2, withSub)
}

func TestRouter_ImportBypassesGlobalBodyLimit(t *testing.T) {
	srv, _ := newTestServer(t, 64, 1<<20)

	doc := `{"prompts": [{"title": "` + strings.Repeat("x", 200) + `"}]}`

	w := do(srv, http.MethodPost, ImportPath, doc, withToken)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(srv, http.MethodPost, "/api/v1/preview", `{"title": "`+strings.Repeat("x", 200)+`"}`, withToken)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_ImportOwnLimit(t *testing.T) {
	srv, _ := newTestServer(t, 1<<20, 32)

	w := do(srv, http.MethodPost, ImportPath, `{"prompts": [{"title": "`+strings.Repeat("x", 64)+`"}]}`, withToken)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}
