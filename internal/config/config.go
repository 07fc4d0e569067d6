package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	CurrentVersion = 1
	DefaultPath    = "~/.parity/parity.yaml"
)

// Config is the top-level configuration.
type Config struct {
	Version     int                         `yaml:"version"`
	Gateway     GatewayConfig               `yaml:"gateway"`
	Connections map[string]ConnectionConfig `yaml:"connections,omitempty"`
	Source      EndpointConfig              `yaml:"source,omitempty"`
	Target      EndpointConfig              `yaml:"target,omitempty"`
	Validation  ValidationConfig            `yaml:"validation,omitempty"`
	Persistence PersistenceConfig           `yaml:"persistence,omitempty"`
	Logging     LogConfig                   `yaml:"logging,omitempty"`
}

// GatewayConfig defines the remote query execution service.
type GatewayConfig struct {
	BaseURL           string        `yaml:"base_url,omitempty"`
	APIKey            string        `yaml:"api_key,omitempty"`
	Timeout           time.Duration `yaml:"timeout,omitempty"`             // HTTP client timeout, default 60s
	RequestsPerSecond float64       `yaml:"requests_per_second,omitempty"` // 0 disables throttling
}

// ConnectionConfig defines a connection executed directly instead of through
// the remote gateway.
type ConnectionConfig struct {
	Driver string `yaml:"driver"` // postgresql, oracle or mysql
	DSN    string `yaml:"dsn"`
}

// EndpointConfig names one side of a validation.
type EndpointConfig struct {
	Connection string `yaml:"connection,omitempty"`
	Table      string `yaml:"table,omitempty"`
}

// ValidationConfig controls rule execution.
type ValidationConfig struct {
	Concurrency  int           `yaml:"concurrency,omitempty"`   // default 1, max 16
	QueryTimeout time.Duration `yaml:"query_timeout,omitempty"` // per gateway call, default 2m
	RulesFile    string        `yaml:"rules_file,omitempty"`
}

// PersistenceConfig selects where validation summaries are stored.
type PersistenceConfig struct {
	Type string `yaml:"type,omitempty"` // file, postgres, mongodb, kafka, bolt, none

	Directory string `yaml:"directory,omitempty"` // file

	DSN   string `yaml:"dsn,omitempty"`   // postgres
	Table string `yaml:"table,omitempty"` // postgres

	ConnectionString string `yaml:"connection_string,omitempty"` // mongodb
	Database         string `yaml:"database,omitempty"`          // mongodb
	Collection       string `yaml:"collection,omitempty"`        // mongodb

	Brokers []string `yaml:"brokers,omitempty"` // kafka
	Topic   string   `yaml:"topic,omitempty"`   // kafka

	Path string `yaml:"path,omitempty"` // bolt
}

// LogConfig defines logging settings.
type LogConfig struct {
	Level         string `yaml:"level,omitempty"`          // debug, info, warn, error
	Directory     string `yaml:"directory,omitempty"`      // default ~/.parity/logs/
	RetentionDays int    `yaml:"retention_days,omitempty"` // default 30
}

// Load reads and parses the config file from the given path.
func Load(path string) (*Config, error) {
	if path == "" {
		path = ExpandHome(DefaultPath)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.Version != CurrentVersion {
		return nil, fmt.Errorf("unsupported config version %d (expected %d)", cfg.Version, CurrentVersion)
	}

	if err := cfg.resolveSecrets(); err != nil {
		return nil, fmt.Errorf("resolving secrets: %w", err)
	}

	cfg.ApplyDefaults()
	return cfg, nil
}

// LoadOrDefault behaves like Load, except that a missing file at the default
// location yields a default configuration instead of an error. An explicitly
// named file must exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if err == nil {
		return cfg, nil
	}
	if path == "" && errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return nil, err
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{Version: CurrentVersion}
	cfg.ApplyDefaults()
	return cfg
}

// Save writes the config to the given path.
func (c *Config) Save(path string) error {
	if path == "" {
		path = ExpandHome(DefaultPath)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	return os.WriteFile(path, data, 0o600)
}

// ApplyDefaults fills unset fields with their default values.
func (c *Config) ApplyDefaults() {
	if c.Gateway.Timeout == 0 {
		c.Gateway.Timeout = 60 * time.Second
	}
	if c.Validation.Concurrency <= 0 {
		c.Validation.Concurrency = 1
	}
	if c.Validation.Concurrency > 16 {
		c.Validation.Concurrency = 16
	}
	if c.Validation.QueryTimeout == 0 {
		c.Validation.QueryTimeout = 2 * time.Minute
	}
	if c.Persistence.Type == "" {
		c.Persistence.Type = "file"
	}
	switch c.Persistence.Type {
	case "file":
		if c.Persistence.Directory == "" {
			c.Persistence.Directory = ExpandHome("~/.parity/results/")
		}
	case "postgres":
		if c.Persistence.Table == "" {
			c.Persistence.Table = "validation_summaries"
		}
	case "mongodb":
		if c.Persistence.Collection == "" {
			c.Persistence.Collection = "validation_summaries"
		}
	case "kafka":
		if c.Persistence.Topic == "" {
			c.Persistence.Topic = "parity.validation-summaries"
		}
	case "bolt":
		if c.Persistence.Path == "" {
			c.Persistence.Path = ExpandHome("~/.parity/history.db")
		}
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Directory == "" {
		c.Logging.Directory = ExpandHome("~/.parity/logs/")
	}
	if c.Logging.RetentionDays == 0 {
		c.Logging.RetentionDays = 30
	}
}

// Problems reports configuration errors that would prevent a validation run.
// An empty result means the configuration is usable.
func (c *Config) Problems() []string {
	var problems []string

	if c.Gateway.BaseURL == "" && len(c.Connections) == 0 {
		problems = append(problems, "gateway.base_url or at least one connection is required")
	}
	if c.Gateway.BaseURL != "" && !strings.HasPrefix(c.Gateway.BaseURL, "http://") && !strings.HasPrefix(c.Gateway.BaseURL, "https://") {
		problems = append(problems, "gateway.base_url must be an http or https URL")
	}
	for name, conn := range c.Connections {
		switch conn.Driver {
		case "postgresql", "oracle", "mysql":
		default:
			problems = append(problems, fmt.Sprintf("connections.%s.driver %q is not supported", name, conn.Driver))
		}
		if conn.DSN == "" {
			problems = append(problems, fmt.Sprintf("connections.%s.dsn is required", name))
		}
	}

	switch c.Persistence.Type {
	case "file", "bolt", "none":
	case "postgres":
		if c.Persistence.DSN == "" {
			problems = append(problems, "persistence.dsn is required for postgres")
		}
	case "mongodb":
		if c.Persistence.ConnectionString == "" {
			problems = append(problems, "persistence.connection_string is required for mongodb")
		}
		if c.Persistence.Database == "" {
			problems = append(problems, "persistence.database is required for mongodb")
		}
	case "kafka":
		if len(c.Persistence.Brokers) == 0 {
			problems = append(problems, "persistence.brokers is required for kafka")
		}
	default:
		problems = append(problems, fmt.Sprintf("persistence.type %q is not supported", c.Persistence.Type))
	}

	return problems
}

var secretPattern = regexp.MustCompile(`\$\{(ENV|VAULT|AWS_SM):([^}]+)\}`)

func (c *Config) resolveSecrets() error {
	var err error
	c.Gateway.APIKey, err = ResolveValue(c.Gateway.APIKey)
	if err != nil {
		return fmt.Errorf("gateway api key: %w", err)
	}
	for name, conn := range c.Connections {
		conn.DSN, err = ResolveValue(conn.DSN)
		if err != nil {
			return fmt.Errorf("connection %s dsn: %w", name, err)
		}
		c.Connections[name] = conn
	}
	c.Persistence.DSN, err = ResolveValue(c.Persistence.DSN)
	if err != nil {
		return fmt.Errorf("persistence dsn: %w", err)
	}
	c.Persistence.ConnectionString, err = ResolveValue(c.Persistence.ConnectionString)
	if err != nil {
		return fmt.Errorf("persistence connection string: %w", err)
	}
	return nil
}

// ResolveValue resolves secret references in a string value.
func ResolveValue(val string) (string, error) {
	matches := secretPattern.FindStringSubmatch(val)
	if matches == nil {
		return val, nil
	}

	provider := matches[1]
	ref := matches[2]

	switch provider {
	case "ENV":
		v := os.Getenv(ref)
		if v == "" {
			return "", fmt.Errorf("environment variable %s not set", ref)
		}
		return v, nil
	case "VAULT":
		return resolveVault(ref)
	case "AWS_SM":
		return resolveAWSSecretsManager(ref)
	default:
		return "", fmt.Errorf("unknown secrets provider: %s", provider)
	}
}

// ExpandHome expands ~ to the user's home directory.
func ExpandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
