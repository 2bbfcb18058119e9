package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jfoltran/dbsync/internal/orchestrator"
	"github.com/jfoltran/dbsync/internal/progressbridge"
	"github.com/jfoltran/dbsync/internal/scheduler"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run sync passes on a fixed interval until interrupted",
	Long: `Schedule runs a sync pass immediately, then again every interval
minutes (from config, or --interval), until the process receives an
interrupt signal.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if scheduleIntervalMinutes > 0 {
			cfg.IntervalMinutes = scheduleIntervalMinutes
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		if scheduleProgress {
			cfg.ProgressServer.Enabled = true
		}

		engine := orchestrator.New(cfg, logger)

		interval := time.Duration(cfg.IntervalMinutes) * time.Minute
		sched := scheduler.New(engine, interval, logger.Sink())

		if cfg.ProgressServer.Enabled {
			bridge, err := progressbridge.New(cfg.ProgressServer, engine, logger.Zerolog())
			if err != nil {
				return fmt.Errorf("start progress bridge: %w", err)
			}
			bridge.SetTriggerer(sched)
			go func() {
				_ = bridge.Serve(cmd.Context())
			}()
		}

		sched.Start(cmd.Context())
		<-cmd.Context().Done()
		sched.Stop()
		return nil
	},
}

var (
	scheduleIntervalMinutes int
	scheduleProgress        bool
)

func init() {
	scheduleCmd.Flags().IntVar(&scheduleIntervalMinutes, "interval", 0, "Minutes between sync passes (overrides config)")
	scheduleCmd.Flags().BoolVar(&scheduleProgress, "progress", false, "Expose progress over the HTTP/WebSocket bridge while scheduled")
	rootCmd.AddCommand(scheduleCmd)
}
