package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/reloquent/parity/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `View, validate, and initialize Parity configuration.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display current config (secrets masked)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		fmt.Println("Current configuration:")
		fmt.Println()
		fmt.Printf("  Gateway:\n")
		fmt.Printf("    Base URL:       %s\n", cfg.Gateway.BaseURL)
		fmt.Printf("    API Key:        %s\n", maskSecret(cfg.Gateway.APIKey))
		fmt.Printf("    Timeout:        %s\n", cfg.Gateway.Timeout)
		if cfg.Gateway.RequestsPerSecond > 0 {
			fmt.Printf("    Rate Limit:     %.1f req/s\n", cfg.Gateway.RequestsPerSecond)
		}
		if len(cfg.Connections) > 0 {
			fmt.Println()
			fmt.Printf("  Connections:\n")
			names := make([]string, 0, len(cfg.Connections))
			for name := range cfg.Connections {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				c := cfg.Connections[name]
				fmt.Printf("    %-15s %s %s\n", name+":", c.Driver, maskSecret(c.DSN))
			}
		}
		fmt.Println()
		fmt.Printf("  Source:           %s %s\n", cfg.Source.Connection, cfg.Source.Table)
		fmt.Printf("  Target:           %s %s\n", cfg.Target.Connection, cfg.Target.Table)
		fmt.Println()
		fmt.Printf("  Validation:\n")
		fmt.Printf("    Concurrency:    %d\n", cfg.Validation.Concurrency)
		fmt.Printf("    Query Timeout:  %s\n", cfg.Validation.QueryTimeout)
		if cfg.Validation.RulesFile != "" {
			fmt.Printf("    Rules File:     %s\n", cfg.Validation.RulesFile)
		}
		fmt.Println()
		fmt.Printf("  Persistence:      %s\n", persistenceTarget(cfg.Persistence))
		fmt.Printf("  Logging:          %s (%s)\n", cfg.Logging.Level, cfg.Logging.Directory)

		return nil
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("config invalid: %w", err)
		}

		problems := cfg.Problems()
		if len(problems) > 0 {
			fmt.Println("Validation errors:")
			for _, p := range problems {
				fmt.Printf("  - %s\n", p)
			}
			return fmt.Errorf("%d validation error(s)", len(problems))
		}

		fmt.Println("Configuration is valid.")
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfgFile
		if path == "" {
			path = config.ExpandHome(config.DefaultPath)
		}
		if _, err := config.Load(path); err == nil {
			return fmt.Errorf("config already exists at %s", path)
		}
		if err := config.Default().Save(path); err != nil {
			return fmt.Errorf("saving config: %w", err)
		}
		fmt.Printf("Wrote default configuration to %s\n", path)
		return nil
	},
}

func persistenceTarget(p config.PersistenceConfig) string {
	switch p.Type {
	case "file":
		return "file " + p.Directory
	case "postgres":
		return fmt.Sprintf("postgres %s (table %s)", maskSecret(p.DSN), p.Table)
	case "mongodb":
		return fmt.Sprintf("mongodb %s/%s.%s", maskSecret(p.ConnectionString), p.Database, p.Collection)
	case "kafka":
		return fmt.Sprintf("kafka %s (topic %s)", strings.Join(p.Brokers, ","), p.Topic)
	case "bolt":
		return "bolt " + p.Path
	default:
		return p.Type
	}
}

func maskSecret(s string) string {
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}
