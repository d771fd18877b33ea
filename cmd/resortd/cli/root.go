package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/palmcove/resortd/internal/config"
)

var (
	cfgFile    string
	appVersion string // set in Execute, reported by /openapi.json
)

// Execute creates the root command tree and runs it.
func Execute(version, commit, date string) error {
	appVersion = version
	rootCmd := newRootCmd(version, commit, date)
	return rootCmd.Execute()
}

func newRootCmd(version, commit, date string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resortd",
		Short: "Resort booking and administration server",
		Long: `resortd serves the resort's public catalog, customer accounts and bookings,
and the back-office admin API behind a session-based login.

Configuration is read from ./resortd.yaml (or --config), .env files and
RESORT_* environment variables, in increasing order of precedence.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./resortd.yaml)")

	cobra.OnInitialize(initConfig)

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newVersionCmd(version, commit, date))
	cmd.AddCommand(newDBCmd())
	cmd.AddCommand(newAdminCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newOpenAPICmd())
	cmd.AddCommand(newStatusCmd())

	return cmd
}

func initConfig() {
	if err := config.LoadEnvFiles(); err != nil {
		fmt.Fprintln(os.Stderr, "warning:", err)
	}
	config.ConfigureViper(viper.GetViper(), cfgFile)
}

// loadConfig reads and validates the configuration for the current command.
func loadConfig() (*config.Config, error) {
	return config.Load(viper.GetViper())
}
