package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hypd/urlshortener/internal/app"
	"github.com/hypd/urlshortener/internal/config"
	"github.com/hypd/urlshortener/internal/logging"
)

// configPath is the directory holding config.yaml, set by --config.
var configPath string

// RootCmd is the base command for the CLI application.
// Subcommands (run-server, create, stats, ...) register themselves in their own init().
var RootCmd = &cobra.Command{
	Use:   "urlshortener",
	Short: "A product-aware URL shortener",
	Long: `A URL shortener that creates short links, tracks click analytics
and extracts product metadata from recognised product pages.`,
	SilenceUsage: true,
}

// Execute is called from main.go.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	RootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultConfigPath,
		"directory containing config.yaml")
}

// LoadConfig loads the configuration from the --config directory, the environment and defaults.
func LoadConfig() (*config.Config, error) {
	return config.LoadConfig(configPath)
}

// OpenApp loads the configuration and builds the application for a CLI command.
// Logs go to stderr so they never mix with command output. The caller closes it.
func OpenApp() (*app.App, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	return app.New(cfg, logging.NewWithWriter(os.Stderr, cfg.Log.Format, cfg.Log.Level))
}
