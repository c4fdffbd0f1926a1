package nethttp

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/adamwoolhether/naett/throttle"
)

// DefaultMaxRedirects is how many redirects a transfer follows by default.
const DefaultMaxRedirects = 10

// Option is a functional option for configuring a [Backend] via [New].
type Option func(*options) error
type options struct {
	client        *http.Client
	rt            http.RoundTripper
	maxConcurrent int
	throttle      *throttleConfig
	maxRedirects  int
	logger        *slog.Logger
}

type throttleConfig struct {
	rps   int
	burst int
}

// WithHTTPClient executes transfers with hc. Its CheckRedirect is kept if
// set; otherwise the backend's redirect limit applies.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) error {
		if hc == nil {
			return errors.New("client must not be nil")
		}
		o.client = hc
		return nil
	}
}

// WithTransport sets a custom [http.RoundTripper]. Per-request connection
// timeouts only apply to the default transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) error {
		if rt == nil {
			return errors.New("transport must not be nil")
		}
		o.rt = rt
		return nil
	}
}

// WithMaxConcurrent caps the number of transfers running at once. Zero
// means unlimited.
func WithMaxConcurrent(n int) Option {
	return func(o *options) error {
		if n < 0 {
			return errors.New("max concurrent must not be negative")
		}
		o.maxConcurrent = n
		return nil
	}
}

// WithThrottle limits how many transfers start per second.
func WithThrottle(rps, burst int) Option {
	return func(o *options) error {
		if rps <= 0 || burst <= 0 {
			return fmt.Errorf("rps[%d] and burst[%d] %w", rps, burst, throttle.ErrMustNotBeZero)
		}
		o.throttle = &throttleConfig{rps: rps, burst: burst}
		return nil
	}
}

// WithMaxRedirects sets how many redirects a transfer follows. Zero
// disables following; the 3xx response is returned as is.
func WithMaxRedirects(n int) Option {
	return func(o *options) error {
		if n < 0 {
			return errors.New("max redirects must not be negative")
		}
		o.maxRedirects = n
		return nil
	}
}

// WithLogger overrides the logger handed over by the client.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) error {
		if logger == nil {
			return errors.New("logger must not be nil")
		}
		o.logger = logger
		return nil
	}
}
