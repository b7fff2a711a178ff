package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/creamcroissant/subrelay/internal/config"
)

// Build info - injected via ldflags
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:           "subrelay",
	Short:         "Subscription relay for Clash and Loon",
	Long:          `subrelay fronts a private proxy subscription behind a shared key and serves ready-to-use Clash and Loon configs.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default ./config.yaml or /etc/subrelay/config.yaml)")
}

// loadConfig reads and validates the configuration once per command run.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
