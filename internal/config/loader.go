// Package config provides configuration management for the Footy Edge pipeline.
package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Load reads and parses the configuration from file and environment variables.
// It expands environment variable placeholders in the YAML file (${VAR_NAME}).
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found at %s: %w", configPath, err)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in the configuration (${VAR} syntax)
	expanded := os.ExpandEnv(string(data))

	v := viper.New()
	v.SetConfigType("yaml")

	if err := v.ReadConfig(bytes.NewBufferString(expanded)); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	v.SetEnvPrefix("FOOTY_EDGE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	return cfg, nil
}

// LoadWithDefaults loads configuration with default values for optional fields.
// Missing config files are tolerated; defaults and environment variables apply.
func LoadWithDefaults(configPath string) (*Config, error) {
	v := viper.New()

	if configPath == "" {
		configPath = "config/config.yaml"
	}

	v.SetConfigType("yaml")
	v.SetEnvPrefix("FOOTY_EDGE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("ingestion.dedup_window_seconds", 60)
	v.SetDefault("ingestion.max_retries", 5)
	v.SetDefault("ingestion.backoff_initial_seconds", 1)
	v.SetDefault("ingestion.backoff_max_seconds", 300)
	v.SetDefault("ingestion.degraded_after_failures", 3)
	v.SetDefault("inference.secondary_stack_enabled", true)
	v.SetDefault("inference.secondary_stack_time_budget_seconds", 2)
	v.SetDefault("inference.request_timeout_seconds", 5)
	v.SetDefault("inference.min_completeness_groups", 2)
	v.SetDefault("calibration.calibration_window_size", 500)
	v.SetDefault("calibration.min_samples", 50)
	v.SetDefault("calibration.refit_every", 10)
	v.SetDefault("calibration.blend_weight_min", 0.1)
	v.SetDefault("calibration.blend_weight_max", 0.9)
	v.SetDefault("staking.min_edge_threshold", 0.02)
	v.SetDefault("staking.min_confidence_threshold", 0.6)
	v.SetDefault("staking.kelly_fraction", 0.125)
	v.SetDefault("staking.max_stake_fraction", 0.05)
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.ttl_seconds", 30)
	v.SetDefault("cache.max_size", 10000)
	v.SetDefault("cache.breaker_failures", 5)
	v.SetDefault("cache.breaker_cooldown_seconds", 60)

	if data, err := os.ReadFile(configPath); err == nil {
		expanded := os.ExpandEnv(string(data))
		if err := v.ReadConfig(bytes.NewBufferString(expanded)); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	return cfg, nil
}
