package cli

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check whether a resortd server is up and ready",
		Long:  "Query /readyz on the configured address and report the database and session store checks.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			host := cfg.Server.Host
			if host == "" || host == "0.0.0.0" {
				host = "127.0.0.1"
			}
			url := "http://" + net.JoinHostPort(host, strconv.Itoa(cfg.Server.Port)) + "/readyz"

			client := &http.Client{Timeout: 3 * time.Second}
			resp, err := client.Get(url)
			out := cmd.OutOrStdout()
			if err != nil {
				fmt.Fprintf(out, "Server is not responding at %s\n", url)
				return nil
			}
			defer resp.Body.Close()

			var body struct {
				Status string            `json:"status"`
				Checks map[string]string `json:"checks"`
			}
			json.NewDecoder(resp.Body).Decode(&body)

			fmt.Fprintf(out, "Server is %s (%s, HTTP %d)\n", body.Status, url, resp.StatusCode)
			for name, state := range body.Checks {
				fmt.Fprintf(out, "  %-10s %s\n", name+":", state)
			}
			return nil
		},
	}
}
