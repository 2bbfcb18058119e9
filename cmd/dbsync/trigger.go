package main

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

var triggerAddr string

var triggerCmd = &cobra.Command{
	Use:   "trigger",
	Short: "Trigger an immediate sync pass on a running dbsync schedule",
	Long: `Trigger calls the /trigger endpoint of a dbsync process running the
schedule command with the progress bridge enabled, starting a sync pass
outside its regular interval. It reports "not active" if that process
isn't currently running a schedule.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client := &http.Client{Timeout: 5 * time.Second}

		resp, err := client.Post(triggerAddr+"/trigger", "", nil)
		if err != nil {
			return fmt.Errorf("trigger sync: %w", err)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode != http.StatusAccepted {
			return fmt.Errorf("trigger endpoint returned %d: %s", resp.StatusCode, body)
		}

		fmt.Print(string(body))
		return nil
	},
}

func init() {
	triggerCmd.Flags().StringVar(&triggerAddr, "addr", "http://localhost:8089", "Address of the running dbsync progress bridge")
	rootCmd.AddCommand(triggerCmd)
}
