package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/reloquent/parity/internal/config"
	"github.com/reloquent/parity/internal/engine"
	"github.com/reloquent/parity/internal/logging"
)

var (
	cfgFile  string
	logLevel string
	version  = "dev"
	commit   = "none"
	date     = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "parity",
	Short: "Parity: source/target data validation",
	Long: `Parity compares a source table against its migrated or replicated
target by running validation rules (row count, column sums, schema and
ordered row digests) on both sides and reporting every discrepancy.`,
	SilenceUsage: true,
}

func Execute() {
	rootCmd.Version = fmt.Sprintf("%s (commit %s, built %s)", version, commit, date)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.parity/parity.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error); overrides the config file")
}

// loadConfig reads the config file, falling back to defaults when the default
// file does not exist.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadOrDefault(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	return cfg, nil
}

// setupLogger builds the command logger. Console output goes to stderr so it
// never mixes with report output on stdout.
func setupLogger(cfg *config.Config, console bool) *slog.Logger {
	var w io.Writer
	if console {
		w = os.Stderr
	}
	logger, err := logging.Setup(cfg.Logging.Level, cfg.Logging.Directory, cfg.Logging.RetentionDays, w)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: file logging disabled: %v\n", err)
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logging.ParseLevel(cfg.Logging.Level)}))
	}
	return logger
}

// openEngine loads the config and opens the gateway and persistence store.
func openEngine(ctx context.Context, console bool) (*engine.Engine, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	eng := engine.New(cfg, setupLogger(cfg, console))
	if err := eng.Open(ctx); err != nil {
		return nil, err
	}
	return eng, nil
}
