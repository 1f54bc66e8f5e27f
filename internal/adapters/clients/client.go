package clients

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/jsamuelsen/promptlib/internal/adapters/http/middleware"
	"github.com/jsamuelsen/promptlib/internal/platform/config"
	"github.com/jsamuelsen/promptlib/internal/platform/logging"
)

const (
	instrumentationName = "github.com/jsamuelsen/promptlib/internal/adapters/clients"

	defaultTimeout = 30 * time.Second

	transportMaxIdleConns        = 100
	transportMaxIdleConnsPerHost = 10
	transportIdleConnTimeout     = 90 * time.Second
)

// Config configures a Client.
type Config struct {
	// BaseURL is the collaborator root, e.g. "http://library:8000".
	BaseURL string

	// ServiceName labels logs, spans, metrics and the health check.
	ServiceName string

	// Timeout bounds a single attempt. Retries and backoff come on top.
	Timeout time.Duration

	Retry     config.RetryConfig
	Circuit   config.CircuitBreakerConfig
	Transport config.TransportConfig

	Logger *slog.Logger
}

// RequestOption customizes one outgoing request. Options run again before
// every retry.
type RequestOption func(*http.Request)

// WithBearer sets the Authorization header. An empty token sets nothing.
func WithBearer(token string) RequestOption {
	return func(r *http.Request) {
		if token != "" {
			r.Header.Set("Authorization", "Bearer "+token)
		}
	}
}

func WithHeader(key, value string) RequestOption {
	return func(r *http.Request) {
		r.Header.Set(key, value)
	}
}

// Client talks JSON over HTTP to the library collaborator. Every call passes
// through a circuit breaker, is traced and measured, and forwards the request
// and correlation IDs found in ctx. Only idempotent methods are retried.
type Client struct {
	http    *http.Client
	baseURL string
	name    string
	retry   retryPolicy
	logger  *slog.Logger
	cb      *CircuitBreaker

	tracer   trace.Tracer
	duration metric.Float64Histogram
	calls    metric.Int64Counter
}

func New(cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}

	if cfg.ServiceName == "" {
		return nil, errors.New("service name is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	logger = logger.With(slog.String("component", "clients"), slog.String("downstream", cfg.ServiceName))

	cb := NewCircuitBreaker(cfg.Circuit)
	cb.OnStateChange(func(from, to State) {
		logger.Warn("circuit breaker state changed", slog.String("from", from.String()), slog.String("to", to.String()))
	})

	meter := otel.Meter(instrumentationName)

	duration, err := meter.Float64Histogram("promptlib.collaborator.request.duration",
		metric.WithDescription("Duration of calls to the library collaborator"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating duration histogram: %w", err)
	}

	calls, err := meter.Int64Counter("promptlib.collaborator.requests",
		metric.WithDescription("Calls to the library collaborator by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating request counter: %w", err)
	}

	return &Client{
		http:     &http.Client{Timeout: timeout, Transport: newTransport(cfg.Transport)},
		baseURL:  strings.TrimSuffix(cfg.BaseURL, "/"),
		name:     cfg.ServiceName,
		retry:    retryPolicy(cfg.Retry),
		logger:   logger,
		cb:       cb,
		tracer:   otel.Tracer(instrumentationName),
		duration: duration,
		calls:    calls,
	}, nil
}

func (c *Client) Get(ctx context.Context, path string, opts ...RequestOption) (*http.Response, error) {
	return c.send(ctx, http.MethodGet, path, nil, opts)
}

// Post sends body as JSON. It is attempted once.
func (c *Client) Post(ctx context.Context, path string, body []byte, opts ...RequestOption) (*http.Response, error) {
	return c.send(ctx, http.MethodPost, path, body, opts)
}

func (c *Client) send(ctx context.Context, method, path string, body []byte, opts []RequestOption) (*http.Response, error) {
	var payload io.Reader = http.NoBody
	if body != nil {
		payload = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.buildURL(path), payload)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.Do(ctx, req, opts...)
}

// Do runs req through the breaker and, for idempotent methods, the retry
// policy. A returned error wraps ErrCircuitOpen, ErrMaxRetriesExceeded or
// the context error; any status below 500 comes back as a response.
func (c *Client) Do(ctx context.Context, req *http.Request, opts ...RequestOption) (*http.Response, error) {
	x := &exchange{
		client: c,
		req:    req,
		opts:   opts,
		start:  time.Now(),
		logger: logging.FromContext(ctx).With(
			slog.String("downstream", c.name),
			slog.String("method", req.Method),
			slog.String("path", req.URL.Path),
		),
	}

	if !c.cb.Allow() {
		x.record(ctx, 0, "circuit_open")
		x.logger.Warn("request blocked by circuit breaker")

		return nil, ErrCircuitOpen
	}

	ctx, span := c.tracer.Start(ctx, "library "+req.Method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", req.Method),
			attribute.String("url.full", req.URL.String()),
			attribute.String("peer.service", c.name),
		),
	)
	defer span.End()

	x.prepare(ctx)

	resp, err := x.run(ctx)
	if err != nil {
		if ctx.Err() == nil || !errors.Is(err, ctx.Err()) {
			err = fmt.Errorf("%w: %w", ErrMaxRetriesExceeded, err)
		}

		c.cb.RecordFailure()
		span.SetStatus(codes.Error, err.Error())
		x.record(ctx, 0, "error")
		x.logger.Error("request failed", slog.Duration("duration", time.Since(x.start)), slog.Any("error", err))

		return nil, err
	}

	c.cb.RecordSuccess()
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	if resp.StatusCode >= http.StatusBadRequest {
		span.SetStatus(codes.Error, resp.Status)
	}

	x.record(ctx, resp.StatusCode, fmt.Sprintf("%dxx", resp.StatusCode/100))
	x.logger.Debug("request completed", slog.Int("status", resp.StatusCode), slog.Duration("duration", time.Since(x.start)))

	return resp, nil
}

// exchange is the state of one Do call across its attempts.
type exchange struct {
	client *Client
	req    *http.Request
	opts   []RequestOption
	start  time.Time
	logger *slog.Logger
}

// prepare sets the headers every attempt carries.
func (x *exchange) prepare(ctx context.Context) {
	h := x.req.Header

	if id := middleware.RequestIDFromContext(ctx); id != "" {
		h.Set(middleware.HeaderRequestID, id)
	}

	if id := middleware.CorrelationIDFromContext(ctx); id != "" {
		h.Set(middleware.HeaderCorrelationID, id)
	}

	for _, opt := range x.opts {
		opt(x.req)
	}

	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(h))
}

func (x *exchange) run(ctx context.Context) (*http.Response, error) {
	attempts := x.client.retry.attempts(x.req.Method)

	var lastErr error

	for attempt := range attempts {
		if attempt > 0 {
			if err := x.rewind(ctx, attempt); err != nil {
				return nil, err
			}
		}

		resp, err := x.client.http.Do(x.req.WithContext(ctx))

		switch {
		case err != nil && !isRetryableError(err):
			return nil, err
		case err != nil:
			lastErr = err
		case resp.StatusCode >= http.StatusInternalServerError:
			lastErr = fmt.Errorf("server error: %d", resp.StatusCode)
			if closeErr := resp.Body.Close(); closeErr != nil {
				x.logger.Debug("closing response body", slog.Any("error", closeErr))
			}
		default:
			return resp, nil
		}

		x.logger.Debug("attempt failed", slog.Int("attempt", attempt+1), slog.Any("error", lastErr))
	}

	return nil, lastErr
}

// rewind waits out the backoff and resets the body and headers for the next
// attempt.
func (x *exchange) rewind(ctx context.Context, attempt int) error {
	wait := x.client.retry.backoff(attempt)

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
	}

	if x.req.GetBody != nil {
		body, err := x.req.GetBody()
		if err != nil {
			return fmt.Errorf("rewinding request body: %w", err)
		}

		x.req.Body = body
	}

	for _, opt := range x.opts {
		opt(x.req)
	}

	return nil
}

func (x *exchange) record(ctx context.Context, status int, result string) {
	attrs := []attribute.KeyValue{
		attribute.String("http.request.method", x.req.Method),
		attribute.String("peer.service", x.client.name),
		attribute.String("result", result),
	}

	if status > 0 {
		attrs = append(attrs, attribute.Int("http.response.status_code", status))
	}

	set := metric.WithAttributes(attrs...)
	x.client.duration.Record(ctx, time.Since(x.start).Seconds(), set)
	x.client.calls.Add(ctx, 1, set)
}

func (c *Client) CircuitState() State {
	return c.cb.State()
}

// Name implements ports.HealthChecker.
func (c *Client) Name() string {
	return c.name
}

// Check implements ports.HealthChecker: unhealthy while the circuit is open.
func (c *Client) Check(context.Context) error {
	if c.cb.State() == StateOpen {
		return ErrCircuitOpen
	}

	return nil
}

func (c *Client) buildURL(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	return c.baseURL + path
}

func newTransport(cfg config.TransportConfig) *http.Transport {
	return &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        positiveOr(cfg.MaxIdleConns, transportMaxIdleConns),
		MaxIdleConnsPerHost: positiveOr(cfg.MaxIdleConnsPerHost, transportMaxIdleConnsPerHost),
		IdleConnTimeout:     positiveOr(cfg.IdleConnTimeout, transportIdleConnTimeout),
	}
}

func positiveOr[T int | time.Duration](v, fallback T) T {
	if v > 0 {
		return v
	}

	return fallback
}
