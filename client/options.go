package client

import (
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"github.com/adamwoolhether/naett/metrics"
)

// Option is a functional option for configuring a [Client] via [Build].
type Option func(*options) error
type options struct {
	backend        Backend
	logger         *slog.Logger
	userAgent      string
	tracerProvider trace.TracerProvider
	metrics        *metrics.Metrics
}

// WithBackend sets the [Backend] that executes requests. It is required.
func WithBackend(b Backend) Option {
	return func(o *options) error {
		if b == nil {
			return errors.New("backend must not be nil")
		}
		o.backend = b
		return nil
	}
}

// WithLogger injects a custom [slog.Logger] into the [Client].
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) error {
		if logger == nil {
			return errors.New("logger must not be nil")
		}
		o.logger = logger
		return nil
	}
}

// WithUserAgent replaces [DefaultUserAgent] for requests that don't set
// their own.
func WithUserAgent(agent string) Option {
	return func(o *options) error {
		if agent == "" {
			return errors.New("user agent must not be empty")
		}
		o.userAgent = agent
		return nil
	}
}

// WithTracerProvider records a span per response using tp.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) error {
		if tp == nil {
			return errors.New("tracer provider must not be nil")
		}
		o.tracerProvider = tp
		return nil
	}
}

// WithMetrics records response metrics into m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) error {
		o.metrics = m
		return nil
	}
}
