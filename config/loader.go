package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Loader loads configuration with the precedence defaults → YAML file →
// environment variables.
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("hybridctl.yaml").
//	    WithEnvPrefix("HYBRIDCTL").
//	    Load()
type Loader struct {
	configPath string
	envPrefix  string
}

// NewLoader creates a loader with no file and the default env prefix.
func NewLoader() *Loader {
	return &Loader{envPrefix: "HYBRIDCTL"}
}

// WithConfigPath sets the YAML file to load. A missing file is an error; to
// run on defaults, pass no path.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix sets the environment variable prefix.
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// Load resolves the configuration.
func (l *Loader) Load() (*Config, error) {
	cfg := Default()

	if l.configPath != "" {
		data, err := os.ReadFile(l.configPath)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", l.configPath, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", l.configPath, err)
		}
	}

	if err := l.applyEnv(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// applyEnv overrides individual fields from PREFIX_SECTION_FIELD variables.
func (l *Loader) applyEnv(cfg *Config) error {
	var err error

	l.envString("BRIDGE_HOST", &cfg.Bridge.Host)
	err = firstErr(err, l.envInt("BRIDGE_PORT", &cfg.Bridge.Port))
	err = firstErr(err, l.envDuration("BRIDGE_CALL_TIMEOUT", &cfg.Bridge.CallTimeout))
	err = firstErr(err, l.envDuration("ROUTING_CALL_TIMEOUT", &cfg.Routing.CallTimeout))
	l.envString("SERVER_METRICS_ADDR", &cfg.Server.MetricsAddr)
	l.envString("LOG_LEVEL", &cfg.Log.Level)
	l.envString("LOG_FORMAT", &cfg.Log.Format)
	err = firstErr(err, l.envBool("TELEMETRY_ENABLED", &cfg.Telemetry.Enabled))
	l.envString("TELEMETRY_OTLP_ENDPOINT", &cfg.Telemetry.OTLPEndpoint)
	l.envString("TELEMETRY_SERVICE_NAME", &cfg.Telemetry.ServiceName)
	err = firstErr(err, l.envBool("HISTORY_ENABLED", &cfg.History.Enabled))
	l.envString("HISTORY_PATH", &cfg.History.Path)

	return err
}

func (l *Loader) lookup(key string) (string, bool) {
	return os.LookupEnv(l.envPrefix + "_" + key)
}

func (l *Loader) envString(key string, dst *string) {
	if v, ok := l.lookup(key); ok {
		*dst = v
	}
}

func (l *Loader) envInt(key string, dst *int) error {
	v, ok := l.lookup(key)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("config: %s_%s: %w", l.envPrefix, key, err)
	}
	*dst = n
	return nil
}

func (l *Loader) envBool(key string, dst *bool) error {
	v, ok := l.lookup(key)
	if !ok {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("config: %s_%s: %w", l.envPrefix, key, err)
	}
	*dst = b
	return nil
}

func (l *Loader) envDuration(key string, dst *time.Duration) error {
	v, ok := l.lookup(key)
	if !ok {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("config: %s_%s: %w", l.envPrefix, key, err)
	}
	*dst = d
	return nil
}

func firstErr(a, b error) error {
	if a != nil {
		return a
	}
	return b
}
