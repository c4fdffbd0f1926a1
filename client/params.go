package client

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"
)

// RequestOption is a single-use descriptor that configures one aspect of a
// request. Options are created by the constructors in this file and passed
// to [Client.Request]. Applying an option consumes it; applying it again
// fails with [ErrOptionReused].
type RequestOption struct {
	params   [2]param
	n        int
	consumed atomic.Bool
}

type paramKind int

const (
	replaceString paramKind = iota
	replaceInt
	replaceValue
	prependHeader
)

type field int

const (
	fieldMethod field = iota
	fieldUserAgent
	fieldTimeout
	fieldHeaders
	fieldBodyData
	fieldBodySize
	fieldBodyReader
	fieldBodyReaderState
	fieldBodyWriter
	fieldBodyWriterState
)

// param is one tagged edit to the request settings. Only the payload that
// matches kind is meaningful.
type param struct {
	kind  paramKind
	field field
	str   string
	str2  string
	num   int
	value any
}

func newOption(params ...param) *RequestOption {
	opt := &RequestOption{n: len(params)}
	copy(opt.params[:], params)

	return opt
}

// Method sets the HTTP method. The default is GET.
func Method(method string) *RequestOption {
	return newOption(param{kind: replaceString, field: fieldMethod, str: method})
}

// Header adds a request header. Headers added later take precedence over
// earlier ones with the same name.
func Header(name, value string) *RequestOption {
	return newOption(param{kind: prependHeader, field: fieldHeaders, str: name, str2: value})
}

// UserAgent overrides the client's default User-Agent for this request.
func UserAgent(agent string) *RequestOption {
	return newOption(param{kind: replaceString, field: fieldUserAgent, str: agent})
}

// Timeout sets the connection timeout, truncated to whole milliseconds.
// The default is five seconds; zero disables it.
func Timeout(d time.Duration) *RequestOption {
	return newOption(param{kind: replaceInt, field: fieldTimeout, num: int(d.Milliseconds())})
}

// Body sets an in-memory request body. The slice is not copied and must
// stay unchanged until every response made from the request is closed.
func Body(data []byte) *RequestOption {
	return newOption(
		param{kind: replaceValue, field: fieldBodyData, value: data},
		param{kind: replaceInt, field: fieldBodySize, num: len(data)},
	)
}

// BodyReader sets a custom producer for the request body.
func BodyReader(fn ReadFunc, state any) *RequestOption {
	return newOption(
		param{kind: replaceValue, field: fieldBodyReader, value: fn},
		param{kind: replaceValue, field: fieldBodyReaderState, value: state},
	)
}

// BodyWriter sets a custom consumer for the response body. When set,
// [Response.Body] stays empty.
func BodyWriter(fn WriteFunc, state any) *RequestOption {
	return newOption(
		param{kind: replaceValue, field: fieldBodyWriter, value: fn},
		param{kind: replaceValue, field: fieldBodyWriterState, value: state},
	)
}

// apply consumes the option and writes its params into s.
func (o *RequestOption) apply(s *settings) error {
	if !o.consumed.CompareAndSwap(false, true) {
		return ErrOptionReused
	}

	for _, p := range o.params[:o.n] {
		if err := p.apply(s); err != nil {
			return err
		}
	}

	return nil
}

func (p param) apply(s *settings) error {
	switch p.kind {
	case replaceString:
		switch p.field {
		case fieldMethod:
			s.Method = p.str
		case fieldUserAgent:
			s.UserAgent = p.str
		default:
			return p.mismatch()
		}

	case replaceInt:
		switch p.field {
		case fieldTimeout:
			if p.num < 0 {
				return errors.New("timeout must not be negative")
			}
			s.TimeoutMillis = p.num
		case fieldBodySize:
			s.bodySize = p.num
		default:
			return p.mismatch()
		}

	case prependHeader:
		if p.field != fieldHeaders {
			return p.mismatch()
		}
		s.headers.Prepend(p.str, p.str2)

	case replaceValue:
		switch p.field {
		case fieldBodyData:
			data, _ := p.value.([]byte)
			s.bodyData = data
			s.hasBody = true
		case fieldBodyReader:
			fn, _ := p.value.(ReadFunc)
			if fn == nil {
				return errors.New("body reader must not be nil")
			}
			s.reader = fn
		case fieldBodyReaderState:
			s.readerState = p.value
		case fieldBodyWriter:
			fn, _ := p.value.(WriteFunc)
			if fn == nil {
				return errors.New("body writer must not be nil")
			}
			s.writer = fn
		case fieldBodyWriterState:
			s.writerState = p.value
		default:
			return p.mismatch()
		}

	default:
		return fmt.Errorf("unknown param kind %d", p.kind)
	}

	return nil
}

func (p param) mismatch() error {
	return fmt.Errorf("param kind %d cannot target field %d", p.kind, p.field)
}
