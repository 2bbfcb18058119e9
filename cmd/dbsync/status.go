package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/jfoltran/dbsync/internal/orchestrator"
)

var statusAddr string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Fetch progress from a running dbsync progress bridge",
	Long: `Status queries the /status endpoint of a dbsync process that was
started with the progress bridge enabled, and prints a summary.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client := &http.Client{Timeout: 5 * time.Second}

		resp, err := client.Get(statusAddr + "/status")
		if err != nil {
			return fmt.Errorf("fetch status: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			return fmt.Errorf("status endpoint returned %d: %s", resp.StatusCode, body)
		}

		var snap orchestrator.ProgressInfo
		if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
			return fmt.Errorf("decode status response: %w", err)
		}

		fmt.Printf("Status:        %s\n", snap.Status)
		fmt.Printf("Progress:      %d/%d (%d%%)\n", snap.Completed, snap.Total, snap.Percent())
		fmt.Printf("Current table: %s\n", snap.CurrentTable)
		if !snap.StartedAt.IsZero() {
			fmt.Printf("Started:       %s (%s ago)\n", snap.StartedAt.Format(time.RFC3339), time.Since(snap.StartedAt).Round(time.Second))
		}
		if snap.Err != nil {
			fmt.Printf("Last error:    %v\n", snap.Err)
		}
		if len(snap.RecentResults) > 0 {
			fmt.Println("\nRecent tables:")
			for _, r := range snap.RecentResults {
				status := "ok"
				if r.Err != nil {
					status = "FAILED: " + r.Err.Error()
				}
				fmt.Printf("  %-30s %-8s %-8s %s\n", r.Table, r.Outcome, r.Duration.Round(time.Millisecond), status)
			}
		}

		return nil
	},
}

func init() {
	statusCmd.Flags().StringVar(&statusAddr, "addr", "http://localhost:8089", "Address of the running dbsync progress bridge")
	rootCmd.AddCommand(statusCmd)
}
