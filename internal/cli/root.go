package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/bedrock-tools/bedrockmon/internal/config"
	"github.com/bedrock-tools/bedrockmon/pkg/pricing"
	"github.com/bedrock-tools/bedrockmon/pkg/storage"
)

// Version is set at build time via ldflags.
var Version = "dev"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "bedrockmon",
	Short: "AWS Bedrock usage monitoring and reporting",
	Long: `bedrockmon generates usage reports for AWS Bedrock model invocations.
It aggregates CloudWatch metrics over a reporting window, prices token usage,
computes latency and error statistics, and projects monthly cost.`,
	SilenceUsage: true,
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.bedrockmon/config.yaml)")
}

// loadConfig loads the configuration.
func loadConfig() (*config.Config, error) {
	return config.Load(cfgFile)
}

// newLogger creates a structured logger from config. Logs go to stderr so
// stdout stays clean for report output.
func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	var handler slog.Handler
	if cfg.Logging.Format == "text" {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}

	return slog.New(handler)
}

// initPricing loads the pricing table, preferring the configured override
// file when one is set.
func initPricing(cfg *config.Config) (*pricing.Table, error) {
	if cfg.Pricing.Path != "" {
		return pricing.Load(cfg.Pricing.Path)
	}
	return pricing.Default(), nil
}

// initStore opens the report history database.
func initStore(cfg *config.Config) (storage.Store, error) {
	return storage.NewSQLite(cfg.Storage.HistoryPath)
}
