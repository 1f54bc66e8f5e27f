//go:build integration

package integration

import (
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jsamuelsen/promptlib/internal/adapters/clients"
	"github.com/jsamuelsen/promptlib/internal/adapters/clients/acl"
	apihttp "github.com/jsamuelsen/promptlib/internal/adapters/http"
	"github.com/jsamuelsen/promptlib/internal/adapters/http/handlers"
	"github.com/jsamuelsen/promptlib/internal/app"
	"github.com/jsamuelsen/promptlib/internal/platform/config"
	"github.com/jsamuelsen/promptlib/internal/ports"
)

const apiToken = "secret"

// stack is a running promptlib service wired to a fake persistence API.
type stack struct {
	api     *fakeAPI
	backend *httptest.Server
	service *httptest.Server
	client  *clients.Client
}

func (s *stack) Close() {
	s.service.Close()
	s.backend.Close()
}

func newStack() (*stack, error) {
	api := newFakeAPI(apiToken)
	backend := httptest.NewServer(api.handler())

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	client, err := clients.New(&clients.Config{
		BaseURL:     backend.URL,
		ServiceName: "library",
		Timeout:     2 * time.Second,
		Retry: config.RetryConfig{
			MaxAttempts:     2,
			InitialInterval: 5 * time.Millisecond,
			MaxInterval:     20 * time.Millisecond,
			Multiplier:      2,
		},
		Circuit: config.CircuitBreakerConfig{
			MaxFailures:   3,
			Timeout:       200 * time.Millisecond,
			HalfOpenLimit: 1,
		},
		Logger: logger,
	})
	if err != nil {
		backend.Close()
		return nil, err
	}

	health := ports.NewHealthRegistry()
	if err := health.Register(client); err != nil {
		backend.Close()
		return nil, err
	}

	reg := prometheus.NewRegistry()
	metrics := app.NewMetrics(reg)

	library := acl.NewLibraryClient(acl.LibraryClientConfig{Client: client, Logger: logger})

	srv := apihttp.New(&config.ServerConfig{
		Host:           "127.0.0.1",
		Port:           0,
		ReadTimeout:    5 * time.Second,
		WriteTimeout:   5 * time.Second,
		IdleTimeout:    5 * time.Second,
		MaxRequestSize: 1 << 20,
	}, logger, apihttp.WithBodyLimitExempt(apihttp.ImportPath))

	apihttp.SetupRouter(srv.Engine(), apihttp.RouterConfig{
		Logger:         logger,
		AuthConfig:     &config.AuthConfig{Required: true, CredentialHeader: "Authorization", Scheme: "Bearer"},
		AppConfig:      &config.AppConfig{Name: "promptlib"},
		HealthHandler:  handlers.NewHealthHandler(health, handlers.NewBuildInfo("it", "it", ""), reg),
		PreviewHandler: handlers.NewPreviewHandler(app.NewPreviewService(logger, metrics)),
		LibraryHandler: handlers.NewLibraryHandler(
			app.NewLibraryService(app.LibraryServiceConfig{Library: library, Logger: logger, Metrics: metrics}),
			1<<20,
		),
		Timeout: 5 * time.Second,
	})

	return &stack{
		api:     api,
		backend: backend,
		service: httptest.NewServer(srv.Engine()),
		client:  client,
	}, nil
}

func mustStack(t *testing.T) *stack {
	t.Helper()

	s, err := newStack()
	if err != nil {
		t.Fatalf("starting stack: %v", err)
	}

	t.Cleanup(s.Close)

	return s
}
