package client

import (
	"sync"
	"sync/atomic"
	"time"
)

const (
	// DefaultUserAgent is sent when neither the client nor the request sets one.
	DefaultUserAgent = "Naett/1.0"
	// DefaultTimeout is the connection timeout applied to new requests.
	DefaultTimeout = 5 * time.Second
	// DefaultMethod is the method used when none is set.
	DefaultMethod = "GET"
)

// settings is the full configuration of a request, assembled from its
// [RequestOption] list.
type settings struct {
	URL           string `name:"url" validate:"required"`
	Method        string `name:"method" validate:"required,printascii"`
	UserAgent     string `name:"userAgent" validate:"omitempty,printascii"`
	TimeoutMillis int    `name:"timeout" validate:"gte=0"`

	headers Headers

	bodyData []byte
	bodySize int
	hasBody  bool

	reader      ReadFunc
	readerState any
	writer      WriteFunc
	writerState any

	// defaultReader is set when the request body is served from bodyData.
	defaultReader bool
}

func defaultSettings(url string) settings {
	return settings{
		URL:           url,
		Method:        DefaultMethod,
		TimeoutMillis: int(DefaultTimeout.Milliseconds()),
	}
}

// Request is an immutable, reusable request description. Any number of
// responses may be made from it with [Client.Make]. A Request must not be
// freed while a response made from it is still open.
type Request struct {
	client   *Client
	settings settings
	open     atomic.Int32
	freed    atomic.Bool

	mu          sync.Mutex
	backendData any
}

// URL returns the request target.
func (r *Request) URL() string { return r.settings.URL }

// Method returns the HTTP method.
func (r *Request) Method() string { return r.settings.Method }

// UserAgent returns the User-Agent to send: the request's own value if
// set, otherwise the client default.
func (r *Request) UserAgent() string {
	if r.settings.UserAgent != "" {
		return r.settings.UserAgent
	}

	return r.client.userAgent
}

// Timeout returns the connection timeout. Zero means none.
func (r *Request) Timeout() time.Duration {
	return time.Duration(r.settings.TimeoutMillis) * time.Millisecond
}

// TimeoutMillis returns the connection timeout in milliseconds.
func (r *Request) TimeoutMillis() int { return r.settings.TimeoutMillis }

// Headers returns a copy of the request's header list.
func (r *Request) Headers() Headers { return r.settings.headers.Clone() }

// HasBody reports whether the request carries an in-memory body or a
// custom body reader.
func (r *Request) HasBody() bool {
	return r.settings.hasBody || !r.settings.defaultReader
}

// BackendData returns the value stored by [Request.SetBackendData].
func (r *Request) BackendData() any {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.backendData
}

// SetBackendData attaches backend-private state to the request. It is
// meant to be called from [Backend.PrepareRequest].
func (r *Request) SetBackendData(v any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.backendData = v
}

// OpenResponses returns the number of responses made from r that have not
// been closed.
func (r *Request) OpenResponses() int { return int(r.open.Load()) }

// Free releases the request's backend resources. It fails with
// [ErrResponseOpen] while any response made from r is open. Freeing an
// already freed request is a no-op.
func (r *Request) Free() error {
	if r.open.Load() > 0 {
		return ErrResponseOpen
	}

	if !r.freed.CompareAndSwap(false, true) {
		return nil
	}

	r.client.backend.FreeRequest(r)
	r.client.logger.Debug("request freed", "url", r.settings.URL)

	return nil
}

// reader returns the body producer and the state to pass it for a new
// response. The default producer gets a fresh cursor over the body bytes
// so every response sends the full body.
func (r *Request) reader() (ReadFunc, any) {
	if r.settings.defaultReader {
		return DefaultReader, NewBuffer(r.settings.bodyData[:r.settings.bodySize])
	}

	return r.settings.reader, r.settings.readerState
}
