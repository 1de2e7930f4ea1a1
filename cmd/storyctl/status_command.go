// cmd/storyctl/status_command.go
package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

type healthEnvelope struct {
	Success bool `json:"success"`
	Data    struct {
		Status        string `json:"status"`
		Projects      int    `json:"projects"`
		UptimeSeconds int    `json:"uptime_seconds"`
		Gateway       string `json:"gateway"`
	} `json:"data"`
}

func newStatusCommand() *cobra.Command {
	var serverURL string
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Query a running studio server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := &http.Client{Timeout: timeout}
			req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, strings.TrimRight(serverURL, "/")+"/api/health", nil)
			if err != nil {
				return err
			}
			resp, err := client.Do(req)
			if err != nil {
				return fmt.Errorf("server unreachable: %w", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("server answered %s", resp.Status)
			}

			var health healthEnvelope
			if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
				return fmt.Errorf("decode health: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Status:   %s\n", health.Data.Status)
			fmt.Fprintf(out, "Projects: %d\n", health.Data.Projects)
			fmt.Fprintf(out, "Uptime:   %s\n", time.Duration(health.Data.UptimeSeconds)*time.Second)
			if health.Data.Gateway != "" {
				fmt.Fprintf(out, "Gateway:  %s\n", health.Data.Gateway)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&serverURL, "url", "http://localhost:8080", "Server base URL")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "Request timeout")
	return cmd
}
