package client

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/adamwoolhether/naett/metrics"
)

const tracerName = "github.com/adamwoolhether/naett/client"

// Client owns a [Backend] and turns request descriptions into
// asynchronously executing responses.
type Client struct {
	backend   Backend
	logger    *slog.Logger
	tracer    trace.Tracer
	metrics   *metrics.Metrics
	userAgent string

	ctx    context.Context
	cancel context.CancelFunc
	closed atomic.Bool
}

// Build creates a [Client] and initializes its backend. [WithBackend] is
// required.
func Build(optFns ...Option) (*Client, error) {
	var opts options
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return nil, fmt.Errorf("applying client option: %w", err)
		}
	}

	if opts.backend == nil {
		return nil, ErrNoBackend
	}

	c := &Client{
		backend:   opts.backend,
		logger:    slog.Default(),
		metrics:   opts.metrics,
		userAgent: DefaultUserAgent,
	}

	if opts.logger != nil {
		c.logger = opts.logger
	}

	if opts.userAgent != "" {
		c.userAgent = opts.userAgent
	}

	tp := opts.tracerProvider
	if tp == nil {
		tp = noop.NewTracerProvider()
	}
	c.tracer = tp.Tracer(tracerName)

	if err := c.backend.Init(InitData{Logger: c.logger, Tracer: c.tracer}); err != nil {
		return nil, fmt.Errorf("initializing backend: %w", err)
	}

	c.ctx, c.cancel = context.WithCancel(context.Background())

	return c, nil
}

// UserAgent returns the default User-Agent for requests that don't set one.
func (c *Client) UserAgent() string { return c.userAgent }

// Request builds a [Request] for url from opts. Options are applied in
// order and each is consumed. The backend validates the result before it
// is returned.
func (c *Client) Request(url string, opts ...*RequestOption) (*Request, error) {
	return c.RequestWithOptions(url, opts)
}

// RequestWithOptions is [Client.Request] taking the options as a slice.
func (c *Client) RequestWithOptions(url string, opts []*RequestOption) (*Request, error) {
	if c.closed.Load() {
		return nil, ErrClientClosed
	}

	if url == "" {
		return nil, ErrEmptyURL
	}

	s := defaultSettings(url)
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.apply(&s); err != nil {
			return nil, fmt.Errorf("applying request option: %w", err)
		}
	}

	if s.reader == nil {
		s.reader = DefaultReader
		s.defaultReader = true
	}

	if err := validateSettings(&s); err != nil {
		return nil, fmt.Errorf("validating request: %w", err)
	}

	req := &Request{client: c, settings: s}

	if err := c.backend.PrepareRequest(req); err != nil {
		req.freed.Store(true)
		c.backend.FreeRequest(req)
		return nil, fmt.Errorf("%w: %w", ErrPrepareFailed, err)
	}

	return req, nil
}

// Make starts executing req and returns immediately. The returned
// [Response] must be closed.
func (c *Client) Make(req *Request) (*Response, error) {
	if c.closed.Load() {
		return nil, ErrClientClosed
	}

	if req.freed.Load() {
		return nil, ErrRequestFreed
	}

	res := &Response{
		id:      uuid.New(),
		client:  c,
		req:     req,
		started: time.Now(),
		done:    make(chan struct{}),
	}
	res.request.Store(req)
	res.transfer = &Transfer{res: res}

	res.reader, res.readerState = req.reader()
	res.writer, res.writerState = req.settings.writer, req.settings.writerState
	if res.writer == nil {
		res.writer, res.writerState = DefaultWriter, &res.body
	}

	res.ctx, res.span = c.tracer.Start(c.ctx, "naett "+req.Method(),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", req.Method()),
			attribute.String("url.full", req.URL()),
			attribute.String("naett.response.id", res.id.String()),
		),
	)
	res.ctx, res.cancel = context.WithCancel(res.ctx)

	req.open.Add(1)
	c.metrics.Started()

	c.logger.Debug("dispatching request", "id", res.id.String(), "method", req.Method(), "url", req.URL())
	c.backend.Dispatch(res.transfer)

	return res, nil
}

// Close cancels every in-flight response and shuts down the backend if it
// implements [Shutdowner]. Open responses must still be closed.
func (c *Client) Close(ctx context.Context) error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}

	c.cancel()

	if s, ok := c.backend.(Shutdowner); ok {
		if err := s.Shutdown(ctx); err != nil {
			return fmt.Errorf("shutting down backend: %w", err)
		}
	}

	return nil
}
