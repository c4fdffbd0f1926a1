//go:build integration

package e2e_test

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/adamwoolhether/naett"
	"github.com/adamwoolhether/naett/client"
	"github.com/adamwoolhether/naett/internal/testrig"
)

// endpoint points the suite at an external rig, e.g. one started with
// `naett serve`. An in-process rig is used when it is empty.
var endpoint = flag.String("endpoint", "", "base URL of a running test rig")

func rigURL(t *testing.T) string {
	t.Helper()

	if *endpoint != "" {
		return *endpoint
	}

	ts := httptest.NewServer(testrig.NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), nil))
	t.Cleanup(ts.Close)

	return ts.URL
}

func newClient(t *testing.T) *client.Client {
	t.Helper()

	c, err := naett.NewClient(client.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	if err != nil {
		t.Fatalf("building client: %v", err)
	}
	t.Cleanup(func() { _ = c.Close(context.Background()) })

	return c
}

// fetch makes req and polls until the response completes.
func fetch(t *testing.T, c *client.Client, req *client.Request) *client.Response {
	t.Helper()

	res, err := c.Make(req)
	if err != nil {
		t.Fatalf("making request: %v", err)
	}
	t.Cleanup(res.Close)

	deadline := time.Now().Add(10 * time.Second)
	for !res.Complete() {
		if time.Now().After(deadline) {
			t.Fatal("response did not complete")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if res.Status() < 0 {
		t.Fatalf("connection failed: %v", res.Err())
	}

	return res
}

func verifyBody(t *testing.T, res *client.Response, expected string) {
	t.Helper()

	body := res.Body()
	if string(body) != expected {
		t.Fatalf("expected body %q, got %q", expected, body)
	}

	length, ok := res.Header("Content-Length")
	if !ok {
		t.Fatal("expected 'Content-Length' header")
	}
	if n, _ := strconv.Atoi(length); n != len(body) {
		t.Fatalf("received body (%d) and 'Content-Length' (%d) mismatch", len(body), n)
	}
}

func TestGET(t *testing.T) {
	c := newClient(t)

	req, err := c.Request(rigURL(t)+"/get", client.Method("GET"), client.Header("accept", testrig.AcceptHeader))
	if err != nil {
		t.Fatalf("creating request: %v", err)
	}

	res := fetch(t, c, req)
	verifyBody(t, res, "OK")

	if res.Status() != 200 {
		t.Fatalf("expected 200, got %d", res.Status())
	}
}

func TestPOST(t *testing.T) {
	c := newClient(t)

	req, err := c.Request(rigURL(t)+"/post",
		client.Method("POST"),
		client.Header("accept", testrig.AcceptHeader),
		client.Body([]byte(testrig.PostBody)),
	)
	if err != nil {
		t.Fatalf("creating request: %v", err)
	}

	res := fetch(t, c, req)
	verifyBody(t, res, "OK")

	if res.Status() != 200 {
		t.Fatalf("expected 200, got %d", res.Status())
	}
}

func TestRedirect(t *testing.T) {
	c := newClient(t)

	req, err := c.Request(rigURL(t)+"/redirect", client.Method("GET"))
	if err != nil {
		t.Fatalf("creating request: %v", err)
	}

	res := fetch(t, c, req)
	verifyBody(t, res, "Redirected")

	if res.Status() != 200 {
		t.Fatalf("expected 200, got %d", res.Status())
	}
}

func TestStress(t *testing.T) {
	c := newClient(t)
	url := rigURL(t)

	const workers = 8
	const perWorker = 25

	var wg sync.WaitGroup
	for range workers {
		wg.Go(func() {
			req, err := c.Request(url+"/stress", client.Header("accept", testrig.AcceptHeader))
			if err != nil {
				t.Errorf("creating request: %v", err)
				return
			}

			for range perWorker {
				res, err := c.Make(req)
				if err != nil {
					t.Errorf("making request: %v", err)
					return
				}

				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				err = res.Wait(ctx)
				cancel()

				if err != nil || res.Status() != 200 || string(res.Body()) != "OK" {
					t.Errorf("stress response: status=%d err=%v body=%q", res.Status(), err, res.Body())
				}
				res.Close()
			}

			if err := req.Free(); err != nil {
				t.Errorf("freeing request: %v", err)
			}
		})
	}
	wg.Wait()
}
