// Package nethttp executes client transfers with net/http.
package nethttp

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"slices"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"golang.org/x/net/http/httpguts"
	"golang.org/x/net/http2"

	"github.com/adamwoolhether/naett/client"
	"github.com/adamwoolhether/naett/internal/executor"
	"github.com/adamwoolhether/naett/throttle"
)

// chunkSize is how much of a response body is handed to the body writer
// at a time.
const chunkSize = 10 << 10

// Backend implements [client.Backend] on top of an [http.Client].
type Backend struct {
	opts        options
	initialized atomic.Bool

	client     *http.Client
	queue      *executor.Queue
	limiter    *throttle.Limiter
	logger     *slog.Logger
	propagator propagation.TextMapPropagator
}

// New returns an uninitialized Backend. It is initialized by
// [client.Build].
func New(optFns ...Option) (*Backend, error) {
	opts := options{maxRedirects: DefaultMaxRedirects}
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return nil, fmt.Errorf("applying backend option: %w", err)
		}
	}

	return &Backend{opts: opts}, nil
}

// Init sets up the HTTP client, worker queue and throttle. It fails when
// called twice.
func (b *Backend) Init(data client.InitData) error {
	if !b.initialized.CompareAndSwap(false, true) {
		return ErrAlreadyInitialized
	}

	b.logger = cmp.Or(b.opts.logger, data.Logger, slog.Default())
	b.propagator = otel.GetTextMapPropagator()

	hc, err := b.httpClient()
	if err != nil {
		return err
	}
	b.client = hc

	if b.opts.throttle != nil {
		l, err := throttle.New(b.opts.throttle.rps, b.opts.throttle.burst, b.logger)
		if err != nil {
			return fmt.Errorf("configuring throttle: %w", err)
		}
		b.limiter = l
	}

	b.queue = executor.New(b.opts.maxConcurrent, b.logger)

	b.logger.Debug("nethttp backend initialized", "maxConcurrent", b.opts.maxConcurrent, "maxRedirects", b.opts.maxRedirects)

	return nil
}

func (b *Backend) httpClient() (*http.Client, error) {
	var hc http.Client
	if b.opts.client != nil {
		hc = *b.opts.client
	}

	switch {
	case b.opts.rt != nil:
		hc.Transport = b.opts.rt
	case hc.Transport == nil:
		t, err := newTransport()
		if err != nil {
			return nil, err
		}
		hc.Transport = t
	}

	if hc.CheckRedirect == nil {
		hc.CheckRedirect = b.checkRedirect
	}

	return &hc, nil
}

type connectTimeoutKey struct{}

// newTransport builds the default transport. Dials honor the request's
// connection timeout, and HTTP/2 is negotiated over TLS.
func newTransport() (*http.Transport, error) {
	dialer := &net.Dialer{KeepAlive: 30 * time.Second}

	t := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			if d, ok := ctx.Value(connectTimeoutKey{}).(time.Duration); ok && d > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, d)
				defer cancel()
			}
			return dialer.DialContext(ctx, network, addr)
		},
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	if err := http2.ConfigureTransport(t); err != nil {
		return nil, fmt.Errorf("configuring http2: %w", err)
	}

	return t, nil
}

func (b *Backend) checkRedirect(req *http.Request, via []*http.Request) error {
	if b.opts.maxRedirects == 0 {
		return http.ErrUseLastResponse
	}

	if len(via) >= b.opts.maxRedirects {
		return fmt.Errorf("%w: stopped after %d", ErrTooManyRedirects, b.opts.maxRedirects)
	}

	return nil
}

// prepared is the per-request state kept between PrepareRequest and
// FreeRequest.
type prepared struct {
	url *url.URL
}

// PrepareRequest checks that req can be sent over HTTP and caches its
// parsed URL.
func (b *Backend) PrepareRequest(req *client.Request) error {
	if !b.initialized.Load() {
		return ErrNotInitialized
	}

	u, err := url.Parse(req.URL())
	if err != nil {
		return fmt.Errorf("parsing url: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}

	if u.Host == "" {
		return ErrMissingHost
	}

	if !validMethod(req.Method()) {
		return fmt.Errorf("%w: %q", ErrInvalidMethod, req.Method())
	}

	for name, value := range req.Headers().All() {
		if !httpguts.ValidHeaderFieldName(name) {
			return fmt.Errorf("%w name: %q", ErrInvalidHeader, name)
		}
		if !httpguts.ValidHeaderFieldValue(value) {
			return fmt.Errorf("%w value for %q", ErrInvalidHeader, name)
		}
	}

	if !httpguts.ValidHeaderFieldValue(req.UserAgent()) {
		return fmt.Errorf("%w value for %q", ErrInvalidHeader, "User-Agent")
	}

	req.SetBackendData(&prepared{url: u})

	return nil
}

func validMethod(method string) bool {
	if method == "" {
		return false
	}

	for _, r := range method {
		if !httpguts.IsTokenRune(r) {
			return false
		}
	}

	return true
}

// FreeRequest drops the cached request state.
func (b *Backend) FreeRequest(req *client.Request) {
	req.SetBackendData(nil)
}

// Dispatch queues the transfer and returns at once.
func (b *Backend) Dispatch(t *client.Transfer) {
	p, ok := t.Request().BackendData().(*prepared)
	if !ok {
		t.Fail(client.StatusGenericError, ErrNotPrepared)
		return
	}

	task := b.queue.Start(t.Context(), func(ctx context.Context) error {
		b.execute(ctx, t, p)
		return nil
	})
	t.SetBackendData(task)

	// Tasks that never ran, or panicked, still have to finish the transfer.
	go func() {
		if err := task.Err(); err != nil {
			t.Fail(client.StatusGenericError, err)
		}
	}()
}

// CloseResponse cancels the transfer and waits for its task to return.
func (b *Backend) CloseResponse(t *client.Transfer) {
	task, ok := t.BackendData().(*executor.Task)
	if !ok {
		return
	}

	_ = task.Stop()
}

// Shutdown stops queued transfers from starting, waits for running ones
// and closes idle connections.
func (b *Backend) Shutdown(ctx context.Context) error {
	if !b.initialized.Load() {
		return nil
	}

	b.queue.Shutdown()

	done := make(chan error, 1)
	go func() {
		done <- b.queue.Wait()
	}()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}

	b.client.CloseIdleConnections()

	return err
}

func (b *Backend) execute(ctx context.Context, t *client.Transfer, p *prepared) {
	req := t.Request()
	log := t.Logger()

	if err := b.limiter.Wait(ctx, p.url.Redacted()); err != nil {
		t.Fail(client.StatusGenericError, err)
		return
	}

	var size int
	if req.HasBody() {
		n, err := t.BodySize()
		if err != nil {
			t.Fail(client.StatusWriteError, fmt.Errorf("querying body size: %w", err))
			return
		}
		size = n
	}

	ctx = context.WithValue(ctx, connectTimeoutKey{}, req.Timeout())

	body := &transferBody{t: t}
	var reader io.Reader = http.NoBody
	if size != 0 {
		reader = body
	}

	hreq, err := http.NewRequestWithContext(ctx, req.Method(), p.url.String(), reader)
	if err != nil {
		t.Fail(client.StatusGenericError, err)
		return
	}

	switch {
	case size > 0:
		hreq.ContentLength = int64(size)
	case size < 0:
		hreq.ContentLength = -1
	}

	headers := req.Headers()
	for name, value := range headers.All() {
		hreq.Header.Add(name, value)
	}
	if _, ok := headers.Get("User-Agent"); !ok {
		hreq.Header.Set("User-Agent", req.UserAgent())
	}

	b.propagator.Inject(ctx, propagation.HeaderCarrier(hreq.Header))

	log.Debug("sending request", "method", hreq.Method, "url", p.url.Redacted(), "bodySize", size)

	resp, err := b.client.Do(hreq)
	if err != nil {
		if berr := body.err.Load(); berr != nil {
			t.Fail(client.StatusWriteError, *berr)
			return
		}
		t.Fail(classify(err), err)
		return
	}
	defer resp.Body.Close()

	t.Receive(resp.StatusCode, responseHeaders(resp.Header))

	buf := make([]byte, chunkSize)
	for {
		n, rerr := resp.Body.Read(buf)
		if n > 0 {
			written, werr := t.Write(buf[:n])
			if werr == nil && written < n {
				werr = io.ErrShortWrite
			}
			if werr != nil {
				t.Fail(client.StatusWriteError, werr)
				return
			}
		}

		if errors.Is(rerr, io.EOF) {
			break
		}
		if rerr != nil {
			if ctx.Err() != nil {
				t.Fail(client.StatusGenericError, ctx.Err())
				return
			}
			t.Fail(client.StatusReadError, rerr)
			return
		}
	}

	t.Finish(resp.StatusCode)
}

// responseHeaders flattens h into a header list ordered by name, keeping
// each name's values in the order received.
func responseHeaders(h http.Header) client.Headers {
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	slices.Sort(names)

	fields := make([]client.HeaderField, 0, len(h))
	for _, name := range names {
		for _, v := range h[name] {
			fields = append(fields, client.HeaderField{Name: name, Value: v})
		}
	}

	return client.NewHeaders(fields...)
}

// transferBody adapts the transfer's body producer to an io.Reader.
type transferBody struct {
	t   *client.Transfer
	err atomic.Pointer[error]
}

func (tb *transferBody) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	n, err := tb.t.ReadBody(p)
	if err != nil {
		tb.err.Store(&err)
		return n, err
	}

	if n == 0 {
		return 0, io.EOF
	}

	return n, nil
}
