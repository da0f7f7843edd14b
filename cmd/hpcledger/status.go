package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

var statusServerURL string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the ledger's current state via the status HTTP surface",
	Long: `Query the running manager's read-only status endpoints
(GET /status, GET /status/failed) and print the result.`,
}

var statusAllCmd = &cobra.Command{
	Use:   "all",
	Short: "Print every learner row and the completion count",
	RunE: func(cmd *cobra.Command, args []string) error {
		var resp struct {
			Learners []map[string]any `json:"learners"`
			NDone    int              `json:"n_done"`
		}
		if err := getJSON(statusServerURL+"/status", &resp); err != nil {
			return err
		}
		fmt.Printf("n_done: %d\n", resp.NDone)
		for _, row := range resp.Learners {
			fmt.Printf("  %v\n", row)
		}
		return nil
	},
}

var statusFailedCmd = &cobra.Command{
	Use:   "failed",
	Short: "Print rows that crashed (claimed, then released, never completed)",
	RunE: func(cmd *cobra.Command, args []string) error {
		var resp struct {
			Learners []map[string]any `json:"learners"`
		}
		if err := getJSON(statusServerURL+"/status/failed", &resp); err != nil {
			return err
		}
		for _, row := range resp.Learners {
			fmt.Printf("  %v\n", row)
		}
		return nil
	},
}

func getJSON(url string, out any) error {
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("requesting %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: unexpected status %s", url, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func init() {
	statusCmd.PersistentFlags().StringVar(
		&statusServerURL, "status-addr", "http://127.0.0.1:8911", "status HTTP surface base URL",
	)
	statusCmd.AddCommand(statusAllCmd, statusFailedCmd)
	rootCmd.AddCommand(statusCmd)
}
