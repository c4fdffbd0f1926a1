package cli

import (
	"github.com/spf13/cobra"

	"github.com/adamwoolhether/naett/config"
	"github.com/adamwoolhether/naett/internal/testrig"
)

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the test rig",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			if !cmd.Flags().Changed("addr") {
				addr = cfg.RigAddr
			}

			logger, err := newLogger(cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			return testrig.Serve(cmd.Context(), addr, logger)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", testrig.DefaultAddr, "Listen address (default from NAETT_RIG_ADDR)")

	return cmd
}
