package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/adamwoolhether/naett/config"
)

// Version information (set by build flags)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// NewRootCmd builds the naett command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "naett",
		Short: "Asynchronous HTTP client",
		Long: `naett - asynchronous HTTP client

Requests are started in the background and polled for completion. The fetch
command shows the flow end to end; serve runs the test rig the integration
tests use.

Defaults are read from NAETT_* environment variables.`,
		SilenceUsage: true,
	}

	root.AddCommand(newFetchCmd(), newServeCmd(), newVersionCmd())

	return root
}

// Execute runs the command tree with ctx.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "naett %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}

func newLogger(cfg *config.Config, w io.Writer) (*slog.Logger, error) {
	level, err := cfg.Level()
	if err != nil {
		return nil, err
	}

	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), nil
}
