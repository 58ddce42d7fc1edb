// Command ingest decodes and reconciles the NJ crash files from the command line.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"njcrashes/internal/config"
	"njcrashes/internal/logging"
)

// cli carries state shared by every subcommand.
type cli struct {
	verbose bool
	cfg     *config.Config
	logger  *zap.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:   "ingest",
		Short: "Decode and reconcile New Jersey crash record files",
		Long: `ingest reads the state's yearly fixed-width crash files (Accidents, Drivers,
Occupants, Pedestrians, Vehicles), decodes them against the per-year field
layout, merges duplicate primary keys and exports CSV tables.

Configuration comes from NJCRASHES_* environment variables.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if c.verbose {
				cfg.Log.Level = "debug"
			}
			logger, err := logging.New(cfg.Log)
			if err != nil {
				return err
			}
			c.cfg, c.logger = cfg, logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.logger != nil {
				_ = c.logger.Sync()
			}
		},
	}
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(newRunCmd(c))
	root.AddCommand(newDecodeCmd(c))
	root.AddCommand(newSchemaCmd(c))
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
