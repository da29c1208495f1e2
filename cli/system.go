package cli

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/cinestream/cinestream/pkg/config"
	"github.com/spf13/cobra"
)

func newSystemCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "system",
		Short: "System information",
	}

	var serverURL string
	info := &cobra.Command{
		Use:   "info",
		Short: "Show system info",
		Long:  `Display runtime details, the configured storage and the health of a running API server.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "System Information:")
			fmt.Fprintln(out, "-------------------")
			fmt.Fprintf(out, "OS: %s\n", runtime.GOOS)
			fmt.Fprintf(out, "Architecture: %s\n", runtime.GOARCH)
			fmt.Fprintf(out, "Go Version: %s\n", runtime.Version())
			fmt.Fprintf(out, "moviectl: %s\n", Version)

			cfg, err := config.Load()
			if err != nil {
				fmt.Fprintf(out, "\nConfiguration: invalid (%s)\n", err)
				return nil
			}
			fmt.Fprintln(out, "\nConfiguration:")
			fmt.Fprintf(out, "  Database: %s\n", cfg.Database.Driver)
			fmt.Fprintf(out, "  Video Dir: %s\n", cfg.Media.VideoDir)
			fmt.Fprintf(out, "  Thumbnail Dir: %s\n", cfg.Media.ThumbnailDir)

			if serverURL == "" {
				serverURL = "http://localhost:" + cfg.Port
			}
			fmt.Fprintf(out, "\nServer Connectivity (%s):\n", serverURL)

			client := http.Client{Timeout: 2 * time.Second}
			resp, err := client.Get(serverURL + "/health")
			if err != nil {
				fmt.Fprintf(out, "  Status: ✗ Unreachable (%s)\n", err.Error())
				return nil
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				fmt.Fprintf(out, "  Status: ⚠ Issues (HTTP %d)\n", resp.StatusCode)
				return nil
			}

			var health struct {
				Uptime        string `json:"uptime"`
				ActiveStreams int64  `json:"active_streams"`
				StreamsServed int64  `json:"streams_served"`
				BytesStreamed string `json:"bytes_streamed"`
			}
			fmt.Fprintf(out, "  Status: ✓ Online (HTTP %d)\n", resp.StatusCode)
			if err := json.NewDecoder(resp.Body).Decode(&health); err == nil {
				fmt.Fprintf(out, "  Uptime: %s\n", health.Uptime)
				fmt.Fprintf(out, "  Active Streams: %d\n", health.ActiveStreams)
				fmt.Fprintf(out, "  Streams Served: %d (%s)\n", health.StreamsServed, health.BytesStreamed)
			}
			return nil
		},
	}
	info.Flags().StringVar(&serverURL, "server", "", "API server base URL (default http://localhost:$PORT)")
	cmd.AddCommand(info)
	return cmd
}
