package client

import (
	"errors"
	"fmt"
)

var (
	// ErrNoBackend is returned by [Build] when no [Backend] was supplied.
	ErrNoBackend = errors.New("no backend configured")
	// ErrClientClosed is returned when a closed [Client] is used.
	ErrClientClosed = errors.New("client closed")
	// ErrEmptyURL is returned when a request is constructed without a URL.
	ErrEmptyURL = errors.New("url must not be empty")
	// ErrOptionReused is returned when a [RequestOption] is applied a second time.
	ErrOptionReused = errors.New("request option already applied")
	// ErrPrepareFailed wraps the backend's reason for rejecting a request.
	ErrPrepareFailed = errors.New("backend rejected request")
	// ErrRequestFreed is returned when a freed [Request] is used.
	ErrRequestFreed = errors.New("request already freed")
	// ErrResponseOpen is returned by [Request.Free] while a response made
	// from the request has not been closed.
	ErrResponseOpen = errors.New("request has an open response")
	// ErrInvalidState is returned by the default body hooks when their
	// state is not a *Buffer.
	ErrInvalidState = errors.New("body state is not a *Buffer")
	// ErrTransferDone is returned to a backend writing into a response
	// that already completed.
	ErrTransferDone = errors.New("transfer already complete")
)

// Sentinels matching each processing-error status code.
var (
	ErrConnection = errors.New("connection failure")
	ErrProtocol   = errors.New("protocol failure")
	ErrRead       = errors.New("read failure")
	ErrWrite      = errors.New("write failure")
	ErrGeneric    = errors.New("generic failure")
)

// ProcessingError is returned by [Response.Err] when the response
// completed with a negative status code. It unwraps to both the sentinel
// for its code and the backend's underlying cause, if any.
type ProcessingError struct {
	Code int
	Err  error
}

func (e *ProcessingError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%v: status %d", sentinelFor(e.Code), e.Code)
	}

	return fmt.Sprintf("%v: status %d: %v", sentinelFor(e.Code), e.Code, e.Err)
}

func (e *ProcessingError) Unwrap() []error {
	if e.Err == nil {
		return []error{sentinelFor(e.Code)}
	}

	return []error{sentinelFor(e.Code), e.Err}
}

func sentinelFor(code int) error {
	switch code {
	case StatusConnectionError:
		return ErrConnection
	case StatusProtocolError:
		return ErrProtocol
	case StatusReadError:
		return ErrRead
	case StatusWriteError:
		return ErrWrite
	default:
		return ErrGeneric
	}
}
