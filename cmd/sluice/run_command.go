package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"sluice/internal/daemon"
	"sluice/internal/logging"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the capture workflow in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			d, cleanup, err := daemon.Bootstrap(signalCtx, cfg, logger)
			if err != nil {
				return err
			}
			defer cleanup()
			defer d.Close()

			if err := d.Start(signalCtx); err != nil {
				return err
			}
			d.Wait()
			d.Stop()
			return nil
		},
	}
}
