package client

// Status codes reported by [Response.Status]. Values above zero are HTTP
// status codes as returned by the server; values below zero are processing
// errors raised by the backend before a usable response was produced.
const (
	StatusProcessing      = 0
	StatusConnectionError = -1
	StatusProtocolError   = -2
	StatusReadError       = -3
	StatusWriteError      = -4
	StatusGenericError    = -5
)

// IsProcessingError reports whether code is one of the negative
// processing-error codes.
func IsProcessingError(code int) bool {
	return code < 0
}

// StatusText returns a short description of a processing-error code, or
// the empty string for any other code.
func StatusText(code int) string {
	switch code {
	case StatusConnectionError:
		return "connection error"
	case StatusProtocolError:
		return "protocol error"
	case StatusReadError:
		return "read error"
	case StatusWriteError:
		return "write error"
	case StatusGenericError:
		return "generic error"
	}

	return ""
}

// State is the lifecycle position of a [Response].
type State int

const (
	// StatePending means the backend has not received any response data yet.
	StatePending State = iota
	// StateInProgress means headers and status are fixed and the body is streaming.
	StateInProgress
	// StateDone means the response reached a terminal status.
	StateDone
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateInProgress:
		return "in-progress"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}
