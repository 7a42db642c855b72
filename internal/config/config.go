// ABOUTME: Configuration loading and parsing for the toolgate server.
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing.

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete toolgate configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Dispatch DispatchConfig `yaml:"dispatch"`
	Logging  LoggingConfig  `yaml:"logging"`
	Services ServicesConfig `yaml:"services"`
}

// ServerConfig holds server address configuration.
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
}

// DatabaseConfig holds the execution audit database configuration.
// An empty path disables audit recording.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// DispatchConfig holds dispatch engine timing configuration.
type DispatchConfig struct {
	Timeout time.Duration `yaml:"-"`

	// Raw string value for YAML unmarshaling
	TimeoutRaw string `yaml:"timeout"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ServicesConfig holds per-backend adapter configuration.
type ServicesConfig struct {
	GitHub ServiceConfig `yaml:"github"`
	Linear ServiceConfig `yaml:"linear"`
}

// ServiceConfig holds the settings for one backend integration.
// APIKey is typically supplied via ${VAR} expansion and is never logged.
type ServiceConfig struct {
	Enabled bool   `yaml:"enabled"`
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	return &Config{
		Server:   ServerConfig{HTTPAddr: "127.0.0.1:8080"},
		Dispatch: DispatchConfig{Timeout: 30 * time.Second},
		Logging:  LoggingConfig{Level: "info", Format: "text"},
		Services: ServicesConfig{
			GitHub: ServiceConfig{Enabled: true, BaseURL: "https://api.github.com"},
			Linear: ServiceConfig{Enabled: true, BaseURL: "https://api.linear.app"},
		},
	}
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expandedData), cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required")
	}
	if c.Dispatch.Timeout < 0 {
		return fmt.Errorf("dispatch.timeout must not be negative")
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging.format must be \"text\" or \"json\", got %q", c.Logging.Format)
	}
	return nil
}

// parseDurations converts the raw duration strings into time.Duration values.
func parseDurations(cfg *Config) error {
	if cfg.Dispatch.TimeoutRaw != "" {
		timeout, err := time.ParseDuration(cfg.Dispatch.TimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing dispatch.timeout %q: %w", cfg.Dispatch.TimeoutRaw, err)
		}
		cfg.Dispatch.Timeout = timeout
	}
	return nil
}
