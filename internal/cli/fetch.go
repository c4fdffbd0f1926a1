package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/adamwoolhether/naett/backend/nethttp"
	"github.com/adamwoolhether/naett/client"
	"github.com/adamwoolhether/naett/config"
)

type fetchFlags struct {
	method         string
	headers        []string
	data           string
	userAgent      string
	timeoutMS      int
	includeHeaders bool
}

func newFetchCmd() *cobra.Command {
	var f fetchFlags

	cmd := &cobra.Command{
		Use:   "fetch URL",
		Short: "Make a request and print the response",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			if !cmd.Flags().Changed("user-agent") {
				f.userAgent = cfg.UserAgent
			}
			if !cmd.Flags().Changed("timeout") {
				f.timeoutMS = cfg.TimeoutMS
			}

			return runFetch(cmd, cfg, args[0], f)
		},
	}

	cmd.Flags().StringVarP(&f.method, "method", "X", "GET", "HTTP method")
	cmd.Flags().StringArrayVarP(&f.headers, "header", "H", nil, "Extra header (repeatable, e.g., -H 'Accept: text/plain')")
	cmd.Flags().StringVarP(&f.data, "data", "d", "", "Request body")
	cmd.Flags().StringVarP(&f.userAgent, "user-agent", "A", "", "User-Agent (default from NAETT_USER_AGENT)")
	cmd.Flags().IntVar(&f.timeoutMS, "timeout", 0, "Connection timeout in milliseconds (default from NAETT_TIMEOUT_MS)")
	cmd.Flags().BoolVarP(&f.includeHeaders, "include", "i", false, "Print status and response headers")

	return cmd
}

func runFetch(cmd *cobra.Command, cfg *config.Config, url string, f fetchFlags) error {
	ctx := cmd.Context()

	logger, err := newLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	backendOpts := []nethttp.Option{
		nethttp.WithMaxConcurrent(cfg.MaxConcurrent),
		nethttp.WithMaxRedirects(cfg.MaxRedirects),
	}
	if cfg.RPS > 0 {
		backendOpts = append(backendOpts, nethttp.WithThrottle(cfg.RPS, cfg.Burst))
	}

	b, err := nethttp.New(backendOpts...)
	if err != nil {
		return err
	}

	c, err := client.Build(client.WithBackend(b), client.WithLogger(logger))
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.Close(closeCtx); err != nil {
			logger.Warn("closing client", "error", err)
		}
	}()

	opts, err := requestOptions(f)
	if err != nil {
		return err
	}

	req, err := c.Request(url, opts...)
	if err != nil {
		return err
	}
	defer func() {
		if err := req.Free(); err != nil {
			logger.Warn("freeing request", "error", err)
		}
	}()

	res, err := c.Make(req)
	if err != nil {
		return err
	}
	defer res.Close()

	if err := poll(ctx, res, cfg.PollInterval, func(read, total int) {
		if total >= 0 {
			logger.Debug("receiving", "read", humanize.Bytes(uint64(read)), "total", humanize.Bytes(uint64(total)))
			return
		}
		logger.Debug("receiving", "read", humanize.Bytes(uint64(read)))
	}); err != nil {
		return err
	}

	if err := res.Err(); err != nil {
		return fmt.Errorf("fetching %s: %w", url, err)
	}

	out := cmd.OutOrStdout()
	if f.includeHeaders {
		fmt.Fprintf(out, "Status: %d\n", res.Status())
		res.ListHeaders(func(name, value string) bool {
			fmt.Fprintf(out, "%s: %s\n", name, value)
			return true
		})
		fmt.Fprintln(out)
	}

	body := res.Body()
	if _, err := out.Write(body); err != nil {
		return err
	}

	logger.Info("fetch complete", "status", res.Status(), "size", humanize.Bytes(uint64(len(body))))

	return nil
}

// poll checks the response every interval until it completes, reporting
// progress along the way.
func poll(ctx context.Context, res *client.Response, interval time.Duration, progress func(read, total int)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for !res.Complete() {
		select {
		case <-ticker.C:
			progress(res.TotalBytesRead())
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return nil
}

func requestOptions(f fetchFlags) ([]*client.RequestOption, error) {
	opts := []*client.RequestOption{
		client.Method(f.method),
		client.Timeout(time.Duration(f.timeoutMS) * time.Millisecond),
	}

	if f.userAgent != "" {
		opts = append(opts, client.UserAgent(f.userAgent))
	}

	for _, h := range f.headers {
		name, value, ok := strings.Cut(h, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid header %q: %w", h, errMalformedHeader)
		}
		opts = append(opts, client.Header(strings.TrimSpace(name), strings.TrimSpace(value)))
	}

	if f.data != "" {
		opts = append(opts, client.Body([]byte(f.data)))
	}

	return opts, nil
}

var errMalformedHeader = errors.New("expected 'Name: value'")
