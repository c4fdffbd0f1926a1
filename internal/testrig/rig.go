// Package testrig serves the endpoints the client's integration tests and
// the serve command run against.
package testrig

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"
)

const (
	// AcceptHeader must be sent as Accept to the checked endpoints.
	AcceptHeader = "naett/testresult"
	// UserAgent must be sent as User-Agent to the checked endpoints.
	UserAgent = "Naett/1.0"
	// PostBody is the body /post expects.
	PostBody = "TestRequest!"
	// DefaultAddr is where Serve listens when no address is given.
	DefaultAddr = ":4711"
)

// NewHandler returns the rig's routes. /stress is not logged.
func NewHandler(logger *slog.Logger, tracer trace.Tracer) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	app := newApp(logger, tracer, Logger(logger), Errors(logger), Panics())
	quiet := app.Group(Errors(logger), Panics())

	app.Handle("", "/get", handleGet)
	quiet.Handle("", "/stress", handleGet)
	app.Handle("", "/post", handlePost)
	app.Handle("", "/redirect", handleRedirect)
	app.Handle("", "/redirected", handleRedirected)
	app.Handle("", "/echo", handleEcho)
	app.Handle(http.MethodGet, "/slow", handleSlow)
	app.Handle(http.MethodGet, "/chunked", handleChunked)
	app.Handle("", "/status/{code}", handleStatus)

	return app
}

// Serve runs the rig on addr until ctx ends, then shuts down gracefully.
func Serve(ctx context.Context, addr string, logger *slog.Logger) error {
	if addr == "" {
		addr = DefaultAddr
	}
	if logger == nil {
		logger = slog.Default()
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           NewHandler(logger, nil),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErrs := make(chan error, 1)
	go func() {
		logger.Info("test rig started", "addr", addr)
		serverErrs <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrs:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil

	case <-ctx.Done():
		logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			srv.Close()
			return fmt.Errorf("server didn't stop gracefully: %w", err)
		}

		logger.Info("shutdown complete")
		return nil
	}
}

func checkHeader(r *http.Request, header, expected string) error {
	actual := r.Header.Values(header)
	if len(actual) == 0 || actual[0] != expected {
		return fail("Expected header %q to be %q, got %q", header, expected, actual)
	}
	return nil
}

func checkCommon(r *http.Request) error {
	if err := checkHeader(r, "Accept", AcceptHeader); err != nil {
		return err
	}
	return checkHeader(r, "User-Agent", UserAgent)
}

func handleGet(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	if r.Method != http.MethodGet {
		return fail("Unexpected method, %q", r.Method)
	}

	if r.ContentLength != 0 {
		return fail("Non-empty body in GET")
	}

	if err := checkCommon(r); err != nil {
		return err
	}

	return respond(ctx, w, http.StatusOK, "OK")
}

func handlePost(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	if r.Method != http.MethodPost {
		return fail("Unexpected method, %q", r.Method)
	}

	if r.ContentLength == 0 {
		return fail("Empty body in POST")
	}

	if err := checkCommon(r); err != nil {
		return err
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return fmt.Errorf("reading body: %w", err)
	}

	if string(body) != PostBody {
		return fail("Unexpected body: %v", body)
	}

	return respond(ctx, w, http.StatusOK, "OK")
}

func handleRedirect(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	setStatusCode(ctx, http.StatusFound)

	w.Header().Add("Location", "/redirected")
	w.WriteHeader(http.StatusFound)

	return nil
}

func handleRedirected(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return respond(ctx, w, http.StatusOK, "Redirected")
}

// handleEcho replies with the request body. The method, the User-Agent and
// every X-Test header are reflected as response headers.
func handleEcho(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return fmt.Errorf("reading body: %w", err)
	}

	w.Header().Set("X-Method", r.Method)
	w.Header().Set("X-User-Agent", r.UserAgent())
	for name, values := range r.Header {
		if strings.HasPrefix(name, "X-Test") {
			for _, v := range values {
				w.Header().Add(name, v)
			}
		}
	}

	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	setStatusCode(ctx, http.StatusOK)
	w.WriteHeader(http.StatusOK)

	_, err = w.Write(body)
	return err
}

// handleSlow sends headers at once and the body after ms milliseconds.
func handleSlow(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	ms, err := strconv.Atoi(r.URL.Query().Get("ms"))
	if err != nil || ms < 0 {
		return fail("Invalid ms %q", r.URL.Query().Get("ms"))
	}

	setStatusCode(ctx, http.StatusOK)
	w.WriteHeader(http.StatusOK)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}

	select {
	case <-time.After(time.Duration(ms) * time.Millisecond):
	case <-ctx.Done():
		return nil
	}

	_, err = w.Write([]byte("OK"))
	return err
}

// handleChunked streams n lines without a Content-Length.
func handleChunked(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	n, err := strconv.Atoi(r.URL.Query().Get("n"))
	if err != nil || n < 0 {
		return fail("Invalid n %q", r.URL.Query().Get("n"))
	}

	setStatusCode(ctx, http.StatusOK)
	w.WriteHeader(http.StatusOK)

	f, _ := w.(http.Flusher)
	for i := range n {
		if _, err := fmt.Fprintf(w, "chunk %d\n", i); err != nil {
			return err
		}
		if f != nil {
			f.Flush()
		}
	}

	return nil
}

func handleStatus(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	code, err := strconv.Atoi(r.PathValue("code"))
	if err != nil || code < 200 || code > 599 {
		return fail("Invalid status %q", r.PathValue("code"))
	}

	return respond(ctx, w, code, http.StatusText(code))
}
