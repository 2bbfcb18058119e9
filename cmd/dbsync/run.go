package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jfoltran/dbsync/internal/orchestrator"
	"github.com/jfoltran/dbsync/internal/progressbridge"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a single sync pass and exit",
	Long: `Run discovers tables in dependency order and copies them from the
source database to the target database once, then exits.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		if runProgress {
			cfg.ProgressServer.Enabled = true
		}

		engine := orchestrator.New(cfg, logger)

		if cfg.ProgressServer.Enabled {
			bridge, err := progressbridge.New(cfg.ProgressServer, engine, logger.Zerolog())
			if err != nil {
				return fmt.Errorf("start progress bridge: %w", err)
			}
			go func() {
				_ = bridge.Serve(cmd.Context())
			}()
		}

		summary, err := engine.SyncNow(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Printf("sync complete: %d/%d tables succeeded in %s\n",
			summary.Successful, summary.Total, summary.Duration.Round(0))
		for _, r := range summary.Results {
			if r.Err != nil {
				fmt.Printf("  %-30s FAILED: %v\n", r.Table, r.Err)
			}
		}

		if summary.Successful < summary.Total {
			return fmt.Errorf("%d of %d tables failed to sync", summary.Total-summary.Successful, summary.Total)
		}
		return nil
	},
}

var runProgress bool

func init() {
	runCmd.Flags().BoolVar(&runProgress, "progress", false, "Expose progress over the HTTP/WebSocket bridge during this run")
	rootCmd.AddCommand(runCmd)
}
