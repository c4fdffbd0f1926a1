package client

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// Backend performs the platform side of request execution. A [Client]
// calls Init once from [Build], PrepareRequest and FreeRequest once per
// [Request], and Dispatch and CloseResponse once per [Response].
//
// Dispatch must not block: it starts the transfer and reports progress
// through the [Transfer], finishing it exactly once with
// [Transfer.Finish] or [Transfer.Fail]. CloseResponse must not return
// until the backend has stopped touching the transfer.
type Backend interface {
	Init(InitData) error
	PrepareRequest(*Request) error
	Dispatch(*Transfer)
	FreeRequest(*Request)
	CloseResponse(*Transfer)
}

// Shutdowner is implemented by backends that hold resources beyond
// individual requests. [Client.Close] calls it.
type Shutdowner interface {
	Shutdown(ctx context.Context) error
}

// InitData is handed to [Backend.Init].
type InitData struct {
	Logger *slog.Logger
	Tracer trace.Tracer
}

// Transfer is the backend's handle on an in-flight [Response]. It is the
// only way a backend mutates response state.
type Transfer struct {
	res *Response
}

// ID returns the response's unique identifier.
func (t *Transfer) ID() uuid.UUID { return t.res.id }

// Context is cancelled when the response is closed or the client shuts
// down.
func (t *Transfer) Context() context.Context { return t.res.ctx }

// Request returns the request being executed. Unlike
// [Response.Request] it stays valid after the response is closed.
func (t *Transfer) Request() *Request { return t.res.req }

// Response returns the response being filled.
func (t *Transfer) Response() *Response { return t.res }

// Logger returns the client's logger annotated with the transfer id.
func (t *Transfer) Logger() *slog.Logger {
	return t.res.client.logger.With("id", t.res.id.String())
}

// BodySize asks the body producer how many bytes it still has to send.
func (t *Transfer) BodySize() (int, error) {
	return t.res.reader(nil, t.res.readerState)
}

// ReadBody pulls the next chunk of the request body into p.
func (t *Transfer) ReadBody(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	return t.res.reader(p, t.res.readerState)
}

// Receive records the response status and headers. Only the first call
// has any effect. The Content-Length header becomes the expected total
// body size, or -1 when it is missing or invalid. Headers are published
// last, so a response seen in progress already has its status.
func (t *Transfer) Receive(code int, headers Headers) {
	if t.res.complete.Load() {
		return
	}

	if !t.res.received.CompareAndSwap(false, true) {
		return
	}

	h := headers.Clone()

	length := int64(-1)
	if v, ok := h.Get("Content-Length"); ok {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			length = int64(n)
		}
	}

	t.res.contentLength.Store(length)
	t.res.code.Store(int64(code))
	t.res.headers.Store(&h)
}

// Write hands a chunk of the response body to the body consumer.
func (t *Transfer) Write(p []byte) (int, error) {
	if t.res.complete.Load() {
		return 0, ErrTransferDone
	}

	t.res.mu.Lock()
	n, err := t.res.writer(p, t.res.writerState)
	t.res.mu.Unlock()

	if n > 0 {
		t.res.totalRead.Add(int64(n))
	}

	return n, err
}

// Finish marks the response complete with the given HTTP status code.
func (t *Transfer) Finish(code int) {
	t.res.finish(code, nil)
}

// Fail marks the response complete with a negative processing-error code.
func (t *Transfer) Fail(code int, cause error) {
	if !IsProcessingError(code) {
		code = StatusGenericError
	}

	t.res.finish(code, cause)
}

// Done is closed once the response is complete.
func (t *Transfer) Done() <-chan struct{} { return t.res.done }

// BackendData returns the value stored by [Transfer.SetBackendData].
func (t *Transfer) BackendData() any {
	t.res.backendMu.Lock()
	defer t.res.backendMu.Unlock()

	return t.res.backendData
}

// SetBackendData attaches backend-private state to the transfer.
func (t *Transfer) SetBackendData(v any) {
	t.res.backendMu.Lock()
	defer t.res.backendMu.Unlock()

	t.res.backendData = v
}
