// Package config loads the service configuration from a YAML file with
// environment-variable overrides. Precedence: defaults, then file, then
// environment.
package config

import (
	"fmt"
	"time"
)

// Config is the complete service configuration.
type Config struct {
	// Bridge configures the WebSocket listener the extension dials into.
	Bridge BridgeConfig `yaml:"bridge"`

	// Routing configures the decision engine.
	Routing RoutingConfig `yaml:"routing"`

	// Server configures the operational HTTP surface (metrics, health).
	Server ServerConfig `yaml:"server"`

	// Log configures logging.
	Log LogConfig `yaml:"log"`

	// Telemetry configures OpenTelemetry export.
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// History configures the action audit trail.
	History HistoryConfig `yaml:"history"`
}

// BridgeConfig configures the extension-facing listener.
type BridgeConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	ReadLimitBytes int64         `yaml:"read_limit_bytes"`
	CallTimeout    time.Duration `yaml:"call_timeout"`
}

// RoutingConfig configures the decision engine.
type RoutingConfig struct {
	CallTimeout time.Duration `yaml:"call_timeout"`
}

// ServerConfig configures the operational HTTP endpoint.
type ServerConfig struct {
	MetricsAddr     string        `yaml:"metrics_addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or console
}

// TelemetryConfig configures OpenTelemetry export.
type TelemetryConfig struct {
	Enabled      bool   `yaml:"enabled"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	ServiceName  string `yaml:"service_name"`
	Insecure     bool   `yaml:"insecure"`
}

// HistoryConfig configures the action audit trail.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"` // sqlite file path, or :memory:
}

// Default returns the configuration defaults: loopback listener on the
// extension's well-known port, console logging, telemetry off, history off.
func Default() Config {
	return Config{
		Bridge: BridgeConfig{
			Host:           "127.0.0.1",
			Port:           9333,
			ReadLimitBytes: 16 << 20,
			CallTimeout:    10 * time.Second,
		},
		Routing: RoutingConfig{
			CallTimeout: 10 * time.Second,
		},
		Server: ServerConfig{
			MetricsAddr:     "127.0.0.1:9334",
			ShutdownTimeout: 5 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Telemetry: TelemetryConfig{
			Enabled:      false,
			OTLPEndpoint: "localhost:4317",
			ServiceName:  "hybridctl",
			Insecure:     true,
		},
		History: HistoryConfig{
			Enabled: false,
			Path:    "hybridctl-history.db",
		},
	}
}

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	if c.Bridge.Port <= 0 || c.Bridge.Port > 65535 {
		return fmt.Errorf("config: bridge port %d out of range", c.Bridge.Port)
	}
	if c.Bridge.CallTimeout <= 0 {
		return fmt.Errorf("config: bridge call_timeout must be positive")
	}
	if c.Routing.CallTimeout <= 0 {
		return fmt.Errorf("config: routing call_timeout must be positive")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log level %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: unknown log format %q", c.Log.Format)
	}
	if c.History.Enabled && c.History.Path == "" {
		return fmt.Errorf("config: history enabled but path is empty")
	}
	return nil
}
