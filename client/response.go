package client

import (
	"bytes"
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Response tracks one execution of a [Request]. It is filled in
// asynchronously by the backend; callers poll [Response.Complete] or block
// on [Response.Done] / [Response.Wait]. Every response must be closed.
type Response struct {
	id      uuid.UUID
	client  *Client
	req     *Request
	request atomic.Pointer[Request]

	ctx     context.Context
	cancel  context.CancelFunc
	span    trace.Span
	started time.Time

	complete      atomic.Bool
	received      atomic.Bool
	code          atomic.Int64
	headers       atomic.Pointer[Headers]
	contentLength atomic.Int64
	totalRead     atomic.Int64

	// mu guards body and the writer while a chunk is being consumed.
	mu          sync.Mutex
	body        Buffer
	writer      WriteFunc
	writerState any

	reader      ReadFunc
	readerState any

	backendMu   sync.Mutex
	backendData any

	transfer   *Transfer
	err        error
	done       chan struct{}
	finishOnce sync.Once
	closeOnce  sync.Once
}

// ID returns the unique identifier assigned when the response was made.
func (r *Response) ID() uuid.UUID { return r.id }

// Complete reports whether the response reached a terminal status.
func (r *Response) Complete() bool { return r.complete.Load() }

// Done is closed once the response is complete.
func (r *Response) Done() <-chan struct{} { return r.done }

// Wait blocks until the response completes or ctx ends. It returns ctx's
// error in the latter case, otherwise [Response.Err].
func (r *Response) Wait(ctx context.Context) error {
	select {
	case <-r.done:
		return r.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Status returns the HTTP status code once headers have arrived, zero
// before that, or one of the negative processing-error codes.
func (r *Response) Status() int { return int(r.code.Load()) }

// Err returns a *[ProcessingError] when the response completed with a
// negative status, and nil otherwise.
func (r *Response) Err() error {
	if !r.complete.Load() {
		return nil
	}

	return r.err
}

// State returns the response's lifecycle position.
func (r *Response) State() State {
	switch {
	case r.complete.Load():
		return StateDone
	case r.headers.Load() != nil:
		return StateInProgress
	default:
		return StatePending
	}
}

// Body returns a copy of the bytes received so far. It is empty when a
// custom body writer is in use.
func (r *Response) Body() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()

	return bytes.Clone(r.body.Bytes())
}

// Header returns the first value for name, matched case-insensitively.
func (r *Response) Header(name string) (string, bool) {
	h := r.headers.Load()
	if h == nil {
		return "", false
	}

	return h.Get(name)
}

// Headers returns a copy of the response headers, empty until they arrive.
func (r *Response) Headers() Headers {
	h := r.headers.Load()
	if h == nil {
		return Headers{}
	}

	return h.Clone()
}

// ListHeaders calls fn for every header in order until fn returns false.
func (r *Response) ListHeaders(fn func(name, value string) bool) {
	h := r.headers.Load()
	if h == nil {
		return
	}

	for name, value := range h.All() {
		if !fn(name, value) {
			return
		}
	}
}

// TotalBytesRead returns the number of body bytes received so far and the
// expected total from Content-Length. The total is 0 until headers arrive
// and -1 when the header is missing or invalid.
func (r *Response) TotalBytesRead() (read int, total int) {
	return int(r.totalRead.Load()), int(r.contentLength.Load())
}

// Request returns the request the response was made from, or nil once
// the response is closed.
func (r *Response) Request() *Request { return r.request.Load() }

// Close cancels any in-flight transfer and releases the response. A
// response closed before completion finishes with [StatusGenericError].
// Closing twice is a no-op.
func (r *Response) Close() {
	r.closeOnce.Do(func() {
		req := r.request.Swap(nil)

		r.cancel()
		r.client.backend.CloseResponse(r.transfer)

		if !r.complete.Load() {
			r.finish(StatusGenericError, context.Canceled)
		}

		r.mu.Lock()
		r.body.Reset()
		r.mu.Unlock()
		r.headers.Store(nil)

		if req != nil {
			req.open.Add(-1)
		}
	})
}

func (r *Response) finish(code int, cause error) {
	r.finishOnce.Do(func() {
		if IsProcessingError(code) {
			r.err = &ProcessingError{Code: code, Err: cause}
		}
		r.code.Store(int64(code))

		read := r.totalRead.Load()
		elapsed := time.Since(r.started)

		r.span.SetAttributes(
			attribute.Int("http.response.status_code", code),
			attribute.Int64("naett.body.read", read),
		)
		if r.err != nil {
			r.span.RecordError(r.err)
			r.span.SetStatus(codes.Error, StatusText(code))
		}
		r.span.End()

		r.client.metrics.Finished(r.req.Method(), code, read, elapsed)

		log := r.client.logger.With("id", r.id.String(), "url", r.req.URL(), "status", code, "read", read, "elapsed", elapsed)
		if r.err != nil {
			log.Warn("request failed", "error", r.err)
		} else {
			log.Debug("request complete")
		}

		r.complete.Store(true)
		close(r.done)
	})
}
