package testrig

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ts := httptest.NewServer(NewHandler(logger, nil))
	t.Cleanup(ts.Close)

	return ts
}

func do(t *testing.T, method, url string, body io.Reader, headers map[string]string) (int, string) {
	t.Helper()

	req, err := http.NewRequestWithContext(t.Context(), method, url, body)
	if err != nil {
		t.Fatalf("creating request: %v", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("doing request: %v", err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading body: %v", err)
	}

	return resp.StatusCode, string(b)
}

var rigHeaders = map[string]string{"Accept": AcceptHeader, "User-Agent": UserAgent}

func TestRig(t *testing.T) {
	ts := newServer(t)

	tests := []struct {
		name     string
		method   string
		path     string
		body     string
		headers  map[string]string
		wantCode int
		wantBody string
	}{
		{name: "get", method: http.MethodGet, path: "/get", headers: rigHeaders, wantCode: 200, wantBody: "OK"},
		{name: "stress", method: http.MethodGet, path: "/stress", headers: rigHeaders, wantCode: 200, wantBody: "OK"},
		{name: "get wrong method", method: http.MethodPut, path: "/get", headers: rigHeaders, wantCode: 400},
		{name: "get missing accept", method: http.MethodGet, path: "/get", headers: map[string]string{"User-Agent": UserAgent}, wantCode: 400},
		{name: "get wrong agent", method: http.MethodGet, path: "/get", headers: map[string]string{"Accept": AcceptHeader, "User-Agent": "curl"}, wantCode: 400},
		{name: "post", method: http.MethodPost, path: "/post", body: PostBody, headers: rigHeaders, wantCode: 200, wantBody: "OK"},
		{name: "post empty", method: http.MethodPost, path: "/post", headers: rigHeaders, wantCode: 400},
		{name: "post wrong body", method: http.MethodPost, path: "/post", body: "nope", headers: rigHeaders, wantCode: 400},
		{name: "redirect", method: http.MethodGet, path: "/redirect", wantCode: 200, wantBody: "Redirected"},
		{name: "status", method: http.MethodGet, path: "/status/404", wantCode: 404, wantBody: "Not Found"},
		{name: "bad status", method: http.MethodGet, path: "/status/abc", wantCode: 400},
		{name: "chunked", method: http.MethodGet, path: "/chunked?n=2", wantCode: 200, wantBody: "chunk 0\nchunk 1\n"},
		{name: "slow", method: http.MethodGet, path: "/slow?ms=10", wantCode: 200, wantBody: "OK"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var body io.Reader
			if tc.body != "" {
				body = strings.NewReader(tc.body)
			}

			code, got := do(t, tc.method, ts.URL+tc.path, body, tc.headers)
			if code != tc.wantCode {
				t.Errorf("code = %d, want %d (body %q)", code, tc.wantCode, got)
			}
			if tc.wantBody != "" && got != tc.wantBody {
				t.Errorf("body = %q, want %q", got, tc.wantBody)
			}
		})
	}
}

func TestRig_Echo(t *testing.T) {
	ts := newServer(t)

	req, err := http.NewRequestWithContext(t.Context(), http.MethodPut, ts.URL+"/echo", bytes.NewReader([]byte("ping")))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Add("X-Test", "a")
	req.Header.Add("X-Test", "b")
	req.Header.Set("User-Agent", "echo/1")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	b, _ := io.ReadAll(resp.Body)
	if string(b) != "ping" {
		t.Errorf("body = %q", b)
	}
	if got := resp.Header.Get("X-Method"); got != http.MethodPut {
		t.Errorf("x-method = %q", got)
	}
	if got := resp.Header.Get("X-User-Agent"); got != "echo/1" {
		t.Errorf("x-user-agent = %q", got)
	}
	if got := resp.Header.Values("X-Test"); len(got) != 2 || got[0] != "a" {
		t.Errorf("x-test = %q", got)
	}
}

func TestServe(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()

	ctx, cancel := context.WithCancel(t.Context())
	errs := make(chan error, 1)
	go func() {
		errs <- Serve(ctx, addr, slog.New(slog.NewTextHandler(io.Discard, nil)))
	}()

	deadline := time.Now().Add(2 * time.Second)
	for {
		conn, err := net.Dial("tcp", addr)
		if err == nil {
			conn.Close()
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("rig did not start: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-errs:
		if err != nil {
			t.Errorf("serve: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return")
	}
}

// lockedBuffer is a bytes.Buffer safe to share with server goroutines.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestMiddleware_PanicAndLogging(t *testing.T) {
	var buf lockedBuffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	app := newApp(logger, nil, Logger(logger), Errors(logger), Panics())
	app.Handle(http.MethodGet, "/boom", func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		panic("kaboom")
	})

	ts := httptest.NewServer(app)
	t.Cleanup(ts.Close)

	code, body := do(t, http.MethodGet, ts.URL+"/boom?x=1", nil, rigHeaders)
	if code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", code)
	}
	if body != http.StatusText(http.StatusInternalServerError) {
		t.Errorf("body = %q", body)
	}

	logs := buf.String()
	for _, want := range []string{
		"handler for /boom panicked: kaboom",
		"stack=",
		`msg="rig request"`,
		"target=\"/boom?x=1\"",
		"user_agent=" + UserAgent,
		`level=WARN msg="rig response"`,
		"status=500",
	} {
		if !strings.Contains(logs, want) {
			t.Errorf("logs missing %q:\n%s", want, logs)
		}
	}
}
