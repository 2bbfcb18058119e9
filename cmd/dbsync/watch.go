package main

import (
	"github.com/spf13/cobra"

	"github.com/jfoltran/dbsync/internal/orchestrator"
	"github.com/jfoltran/dbsync/internal/tui"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run a sync pass with a live terminal dashboard",
	Long: `Watch starts a sync pass in the background and displays its
progress, per-table results, and log stream in a terminal dashboard.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(); err != nil {
			return err
		}

		engine := orchestrator.New(cfg, logger)

		errCh := make(chan error, 1)
		go func() {
			_, err := engine.SyncNow(cmd.Context())
			errCh <- err
		}()

		if err := tui.Run(engine); err != nil {
			return err
		}
		return <-errCh
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
