// Package main runs the prompt library HTTP API.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/jsamuelsen/promptlib/internal/adapters/clients"
	"github.com/jsamuelsen/promptlib/internal/adapters/clients/acl"
	"github.com/jsamuelsen/promptlib/internal/adapters/http"
	"github.com/jsamuelsen/promptlib/internal/adapters/http/handlers"
	"github.com/jsamuelsen/promptlib/internal/app"
	"github.com/jsamuelsen/promptlib/internal/platform/config"
	"github.com/jsamuelsen/promptlib/internal/platform/logging"
	"github.com/jsamuelsen/promptlib/internal/platform/telemetry"
	"github.com/jsamuelsen/promptlib/internal/ports"
)

// Set via -ldflags "-X main.Version=... -X main.Commit=... -X main.BuildTime=...".
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	profile := os.Getenv("APP_ENVIRONMENT")
	if profile == "" {
		profile = "local"
	}

	cfg, err := config.Load(profile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := logging.New(newLoggingConfig(cfg))
	logging.SetDefault(logger)

	logger.Info("starting promptlib",
		slog.String("version", Version),
		slog.String("commit", Commit),
		slog.String("environment", cfg.App.Environment),
		slog.String("library_url", cfg.Services.Library.BaseURL),
	)

	telProvider, err := telemetry.New(ctx, &telemetry.Config{
		Enabled:      cfg.Telemetry.Enabled,
		Endpoint:     cfg.Telemetry.Endpoint,
		ServiceName:  cfg.Telemetry.ServiceName,
		Version:      cfg.App.Version,
		Environment:  cfg.App.Environment,
		SamplingRate: cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}

	defer func() {
		if shutdownErr := telProvider.Shutdown(ctx); shutdownErr != nil {
			logger.Error("telemetry shutdown error", slog.Any("error", shutdownErr))
		}
	}()

	httpClient, err := clients.New(&clients.Config{
		BaseURL:     cfg.Services.Library.BaseURL,
		ServiceName: cfg.Services.Library.Name,
		Timeout:     cfg.Client.Timeout,
		Retry:       cfg.Client.Retry,
		Circuit:     cfg.Client.CircuitBreaker,
		Transport:   cfg.Client.Transport,
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("creating library client: %w", err)
	}

	library := acl.NewLibraryClient(acl.LibraryClientConfig{
		Client:      httpClient,
		ServiceName: cfg.Services.Library.Name,
		Logger:      logger,
	})

	healthRegistry := ports.NewHealthRegistry()
	if err := healthRegistry.Register(httpClient); err != nil {
		return fmt.Errorf("registering library health check: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	metrics := app.NewMetrics(registry)

	previewService := app.NewPreviewService(logger, metrics)
	libraryService := app.NewLibraryService(app.LibraryServiceConfig{
		Library:           library,
		Logger:            logger,
		Metrics:           metrics,
		ExportConcurrency: cfg.Export.Concurrency,
	})

	server := http.New(&cfg.Server, logger, http.WithBodyLimitExempt(http.ImportPath))

	http.SetupRouter(server.Engine(), http.RouterConfig{
		Logger:         logger,
		AuthConfig:     &cfg.Auth,
		AppConfig:      &cfg.App,
		HealthHandler:  handlers.NewHealthHandler(healthRegistry, handlers.NewBuildInfo(Version, Commit, BuildTime), registry),
		PreviewHandler: handlers.NewPreviewHandler(previewService),
		LibraryHandler: handlers.NewLibraryHandler(libraryService, cfg.Import.MaxDocumentSize),
		Timeout:        http.DefaultRequestTimeout,
	})

	serverErr := server.Start()

	return waitForShutdown(ctx, logger, server, serverErr, cfg.Server.ShutdownTimeout)
}

func newLoggingConfig(cfg *config.Config) *logging.Config {
	return &logging.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Service: cfg.App.Name,
		Version: cfg.App.Version,
		File: logging.FileConfig{
			Enabled:    cfg.Log.File.Enabled,
			Path:       cfg.Log.File.Path,
			MaxSizeMB:  cfg.Log.File.MaxSizeMB,
			MaxBackups: cfg.Log.File.MaxBackups,
			MaxAgeDays: cfg.Log.File.MaxAgeDays,
			Compress:   cfg.Log.File.Compress,
		},
	}
}

// waitForShutdown blocks until SIGINT/SIGTERM or a server error, then drains
// in-flight requests within shutdownTimeout.
func waitForShutdown(
	ctx context.Context,
	logger *slog.Logger,
	server *http.Server,
	serverErr <-chan error,
	shutdownTimeout time.Duration,
) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		logger.Info("received shutdown signal", slog.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	logger.Info("initiating graceful shutdown", slog.Duration("timeout", shutdownTimeout))

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("shutdown complete")

	return nil
}
