package commands

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/himakhaitan/memkv/cli/output"
	"github.com/himakhaitan/memkv/pkg/config"
	servertypes "github.com/himakhaitan/memkv/types"
	"github.com/spf13/cobra"
)

// NewStatsCommand creates a new stats command
func NewStatsCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show cache statistics from the admin endpoint",
		Run: func(cmd *cobra.Command, args []string) {
			if cfg.AdminAddr == "" {
				output.Error("Admin endpoint is not configured (set MEMKV_ADMIN_ADDR)")
				return
			}
			base := adminURL(cfg.AdminAddr)

			client := &http.Client{Timeout: 10 * time.Second}
			resp, err := client.Get(base + "/v1/stats")
			if err != nil {
				output.Error(fmt.Sprintf("Failed to connect to server at %s\n %v", base, err))
				return
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				output.Error(fmt.Sprintf("Server error: %s", resp.Status))
				return
			}
			var out servertypes.StatsResponse
			if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
				output.Error(fmt.Sprintf("Invalid response: %v", err))
				return
			}
			output.Success("Cache Statistics")
			output.Field("Total Keys", out.TotalKeys)
			output.Field("Total Size", fmt.Sprintf("%d bytes", out.TotalSize))
			output.Field("Active Connections", out.ActiveConnections)
		},
	}
}

// adminURL turns a listen address such as ":9090" into a dialable base URL
func adminURL(addr string) string {
	if strings.HasPrefix(addr, "http://") || strings.HasPrefix(addr, "https://") {
		return strings.TrimSuffix(addr, "/")
	}
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://" + addr
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port)
}
