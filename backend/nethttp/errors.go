package nethttp

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"strings"

	"github.com/adamwoolhether/naett/client"
)

var (
	ErrAlreadyInitialized = errors.New("backend already initialized")
	ErrNotInitialized     = errors.New("backend not initialized")
	ErrNotPrepared        = errors.New("request was not prepared by this backend")
	ErrUnsupportedScheme  = errors.New("unsupported url scheme")
	ErrMissingHost        = errors.New("url has no host")
	ErrInvalidMethod      = errors.New("invalid method")
	ErrInvalidHeader      = errors.New("invalid header")
	ErrTooManyRedirects   = errors.New("too many redirects")
)

// classify maps a transport error to a processing-error status code.
func classify(err error) int {
	if errors.Is(err, context.Canceled) {
		return client.StatusGenericError
	}

	if errors.Is(err, ErrTooManyRedirects) {
		return client.StatusProtocolError
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return client.StatusConnectionError
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return client.StatusConnectionError
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return client.StatusConnectionError
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return client.StatusConnectionError
	}

	var recErr tls.RecordHeaderError
	if errors.As(err, &recErr) {
		return client.StatusProtocolError
	}

	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return client.StatusProtocolError
	}

	if strings.Contains(err.Error(), "malformed HTTP") {
		return client.StatusProtocolError
	}

	return client.StatusGenericError
}
