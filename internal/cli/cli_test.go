package cli

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/adamwoolhether/naett/client"
	"github.com/adamwoolhether/naett/internal/testrig"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

func rig(t *testing.T) string {
	t.Helper()

	ts := httptest.NewServer(testrig.NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), nil))
	t.Cleanup(ts.Close)

	return ts.URL
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCmd()
	if cmd.Use != "naett" {
		t.Errorf("expected Use to be 'naett', got %q", cmd.Use)
	}

	want := map[string]bool{"fetch URL": false, "serve": false, "version": false}
	for _, sub := range cmd.Commands() {
		if _, ok := want[sub.Use]; ok {
			want[sub.Use] = true
		}
	}
	for use, found := range want {
		if !found {
			t.Errorf("%q subcommand not registered", use)
		}
	}
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out, "naett dev") {
		t.Errorf("unexpected output %q", out)
	}
}

func TestFetch_Get(t *testing.T) {
	url := rig(t)

	out, err := execute(t, "fetch", url+"/get", "-H", "Accept: "+testrig.AcceptHeader, "-i")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}

	if !strings.HasPrefix(out, "Status: 200\n") {
		t.Errorf("missing status line in %q", out)
	}
	if !strings.Contains(out, "Content-Length: 2\n") {
		t.Errorf("missing headers in %q", out)
	}
	if !strings.HasSuffix(out, "\n\nOK") {
		t.Errorf("missing body in %q", out)
	}
}

func TestFetch_Post(t *testing.T) {
	url := rig(t)

	out, err := execute(t, "fetch", url+"/post",
		"-X", "POST",
		"-H", "Accept: "+testrig.AcceptHeader,
		"-d", testrig.PostBody,
	)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if out != "OK" {
		t.Errorf("body = %q", out)
	}
}

func TestFetch_UserAgentFlag(t *testing.T) {
	url := rig(t)

	out, err := execute(t, "fetch", url+"/get", "-H", "Accept: "+testrig.AcceptHeader, "-A", "Other/1.0")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if !strings.Contains(out, "User-Agent") {
		t.Errorf("expected the rig to reject the agent, got %q", out)
	}
}

func TestFetch_Errors(t *testing.T) {
	t.Run("missing url", func(t *testing.T) {
		if _, err := execute(t, "fetch"); err == nil {
			t.Error("expected error without url")
		}
	})

	t.Run("bad header", func(t *testing.T) {
		_, err := execute(t, "fetch", "http://localhost", "-H", "no-colon")
		if !errors.Is(err, errMalformedHeader) {
			t.Errorf("expected errMalformedHeader, got %v", err)
		}
	})

	t.Run("unsupported scheme", func(t *testing.T) {
		_, err := execute(t, "fetch", "ftp://localhost/file")
		if !errors.Is(err, client.ErrPrepareFailed) {
			t.Errorf("expected ErrPrepareFailed, got %v", err)
		}
	})

	t.Run("connection refused", func(t *testing.T) {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatal(err)
		}
		addr := ln.Addr().String()
		ln.Close()

		_, err = execute(t, "fetch", "http://"+addr+"/get", "--timeout", "1000")
		if !errors.Is(err, client.ErrConnection) {
			t.Errorf("expected ErrConnection, got %v", err)
		}
	})
}

func TestFetch_ReleasesRequest(t *testing.T) {
	t.Setenv("NAETT_LOG_LEVEL", "debug")
	url := rig(t)

	cmd := NewRootCmd()
	var out, logs bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&logs)
	cmd.SetArgs([]string{"fetch", url + "/get", "-H", "Accept: " + testrig.AcceptHeader})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("fetch: %v", err)
	}

	if !strings.Contains(logs.String(), "fetch complete") {
		t.Errorf("missing completion log in %q", logs.String())
	}
	for _, unwanted := range []string{"freeing request", "closing client"} {
		if strings.Contains(logs.String(), unwanted) {
			t.Errorf("unexpected %q in logs:\n%s", unwanted, logs.String())
		}
	}
}
