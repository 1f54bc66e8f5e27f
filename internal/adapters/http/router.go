package http

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/promptlib/internal/adapters/http/handlers"
	"github.com/jsamuelsen/promptlib/internal/adapters/http/middleware"
	"github.com/jsamuelsen/promptlib/internal/platform/config"
	"github.com/jsamuelsen/promptlib/internal/platform/telemetry"
)

// DefaultRequestTimeout is the default deadline for API requests.
const DefaultRequestTimeout = 30 * time.Second

// APIPrefix is the mount point of the public API.
const APIPrefix = "/api/v1"

// ImportPath is the full path of the library import route.
const ImportPath = APIPrefix + handlers.ImportRoute

// RouterConfig contains everything SetupRouter mounts.
type RouterConfig struct {
	Logger *slog.Logger

	// AuthConfig controls how the library credential is read.
	AuthConfig *config.AuthConfig

	AppConfig *config.AppConfig

	HealthHandler  *handlers.HealthHandler
	PreviewHandler *handlers.PreviewHandler

	// LibraryHandler is optional; without it the /library routes are absent.
	LibraryHandler *handlers.LibraryHandler

	// Timeout is the per-request deadline. Import is exempt.
	Timeout time.Duration
}

// SetupRouter installs middleware and routes on engine.
//
// Middleware order, outermost first:
//  1. Recovery
//  2. Logger (context logger, before the IDs so they can enrich it)
//  3. Request ID and correlation ID
//  4. OpenTelemetry tracing and metrics
//  5. Access logging (skips /-/ probes)
//  6. Timeout
//
// Routes:
//   - /-/        health, build info and Prometheus metrics
//   - /api/v1/   preview and templates, no credential needed
//   - /api/v1/library/  export and import, credential forwarded to the library
func SetupRouter(engine *gin.Engine, cfg RouterConfig) {
	serviceName := "promptlib"
	if cfg.AppConfig != nil && cfg.AppConfig.Name != "" {
		serviceName = cfg.AppConfig.Name
	}

	engine.Use(
		middleware.Recovery(),
		middleware.Logger(cfg.Logger),
		middleware.RequestID(),
		middleware.CorrelationID(),
	)
	engine.Use(telemetry.Middleware(serviceName, "/-/live", "/-/ready", "/-/metrics")...)
	engine.Use(
		middleware.Logging(),
		middleware.Timeout(cfg.Timeout, ImportPath),
	)

	if cfg.HealthHandler != nil {
		cfg.HealthHandler.RegisterHealthRoutesOnEngine(engine)
	}

	api := engine.Group(APIPrefix)

	if cfg.PreviewHandler != nil {
		cfg.PreviewHandler.RegisterRoutes(api)
	}

	if cfg.LibraryHandler != nil {
		cfg.LibraryHandler.RegisterRoutes(api.Group("", middleware.Credential(cfg.AuthConfig)))
	}
}

// NewDefaultRouterConfig returns a RouterConfig with DefaultRequestTimeout.
func NewDefaultRouterConfig(
	logger *slog.Logger,
	appCfg *config.AppConfig,
	authCfg *config.AuthConfig,
	healthHandler *handlers.HealthHandler,
) RouterConfig {
	return RouterConfig{
		Logger:        logger,
		AuthConfig:    authCfg,
		AppConfig:     appCfg,
		HealthHandler: healthHandler,
		Timeout:       DefaultRequestTimeout,
	}
}
