package testrig

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"
)

// failure is a check that did not hold. It is reported to the client as a
// 400 with the message as body.
type failure struct {
	msg string
}

func (f *failure) Error() string { return f.msg }

func fail(format string, args ...any) error {
	return &failure{msg: fmt.Sprintf(format, args...)}
}

// Logger records each request the rig handles along with the client
// details its checks look at. Responses with a 4xx or 5xx status are
// logged as warnings.
func Logger(log *slog.Logger) Middleware {
	m := func(handler Handler) Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			v := GetValues(ctx)

			target := r.URL.Path
			if r.URL.RawQuery != "" {
				target += "?" + r.URL.RawQuery
			}

			log := log.With("trace_id", v.TraceID, "method", r.Method, "target", target)
			log.Debug("rig request", "user_agent", r.UserAgent(), "accept", r.Header.Get("Accept"), "content_length", r.ContentLength)

			err := handler(ctx, w, r)

			level := slog.LevelInfo
			if v.StatusCode >= http.StatusBadRequest {
				level = slog.LevelWarn
			}
			log.Log(ctx, level, "rig response", "status", v.StatusCode, "elapsed", time.Since(v.Now))

			return err
		}

		return h
	}

	return m
}

// Errors turns failed checks into 400 responses and anything else into a
// 500.
func Errors(log *slog.Logger) Middleware {
	m := func(handler Handler) Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			err := handler(ctx, w, r)
			if err == nil {
				return nil
			}

			var f *failure
			if errors.As(err, &f) {
				log.Warn("check failed", "trace_id", GetValues(ctx).TraceID, "path", r.URL.Path, "reason", f.msg)
				return respond(ctx, w, http.StatusBadRequest, f.msg+"\n")
			}

			var p *panicError
			if errors.As(err, &p) {
				log.Error(p.Error(), "trace_id", GetValues(ctx).TraceID, "stack", string(p.stack))
			} else {
				log.Error(err.Error(), "trace_id", GetValues(ctx).TraceID, "path", r.URL.Path)
			}

			return respond(ctx, w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		}

		return h
	}

	return m
}

// panicError is a handler panic, reported by Errors as a 500.
type panicError struct {
	path  string
	value any
	stack []byte
}

func (p *panicError) Error() string {
	return fmt.Sprintf("handler for %s panicked: %v", p.path, p.value)
}

// Panics turns a handler panic into a *panicError carrying the stack.
func Panics() Middleware {
	m := func(handler Handler) Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) (err error) {
			defer func() {
				if rec := recover(); rec != nil {
					err = &panicError{path: r.URL.Path, value: rec, stack: debug.Stack()}
				}
			}()

			return handler(ctx, w, r)
		}
		return h
	}
	return m
}

func respond(ctx context.Context, w http.ResponseWriter, statusCode int, body string) error {
	setStatusCode(ctx, statusCode)

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(statusCode)

	if _, err := w.Write([]byte(body)); err != nil {
		return err
	}

	return nil
}
