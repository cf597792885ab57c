// Package config provides configuration management for the Footy Edge pipeline.
package config

import (
	"fmt"
	"time"
)

// Config represents the complete application configuration
type Config struct {
	App         AppConfig         `mapstructure:"app" validate:"required"`
	Database    DatabaseConfig    `mapstructure:"database" validate:"required"`
	Connectors  ConnectorsConfig  `mapstructure:"connectors" validate:"required"`
	Ingestion   IngestionConfig   `mapstructure:"ingestion" validate:"required"`
	Inference   InferenceConfig   `mapstructure:"inference" validate:"required"`
	Calibration CalibrationConfig `mapstructure:"calibration" validate:"required"`
	Staking     StakingConfig     `mapstructure:"staking" validate:"required"`
	Cache       CacheConfig       `mapstructure:"cache" validate:"required"`
	Metrics     MetricsConfig     `mapstructure:"metrics" validate:"required"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
}

// DatabaseConfig represents database connection configuration
type DatabaseConfig struct {
	Host               string `mapstructure:"host" validate:"required"`
	Port               int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Name               string `mapstructure:"name" validate:"required"`
	User               string `mapstructure:"user" validate:"required"`
	Password           string `mapstructure:"password" validate:"required"`
	SSLMode            string `mapstructure:"ssl_mode" validate:"required,oneof=disable require verify-full"`
	MaxConnections     int    `mapstructure:"max_connections" validate:"required,gt=0"`
	MaxIdleConnections int    `mapstructure:"max_idle_connections" validate:"required,gt=0"`
}

// ConnectorsConfig holds per-source connector configuration
type ConnectorsConfig struct {
	Sources []ConnectorConfig `mapstructure:"sources" validate:"required,min=1,dive"`
}

// ConnectorConfig represents a single source connector configuration
type ConnectorConfig struct {
	Kind                    string  `mapstructure:"kind" validate:"required,sourcekind"`
	Enabled                 bool    `mapstructure:"enabled"`
	BaseURL                 string  `mapstructure:"base_url"`
	APIKey                  string  `mapstructure:"api_key"`
	PollIntervalSeconds     int     `mapstructure:"poll_interval_seconds" validate:"required,gt=0"`
	StalenessWindowSeconds  int     `mapstructure:"staleness_window_seconds" validate:"required,gt=0"`
	RateLimitPerSecond      float64 `mapstructure:"rate_limit_per_second" validate:"omitempty,gt=0"`
	DailySyncCron           string  `mapstructure:"daily_sync_cron"`
}

// IngestionConfig governs the orchestrator's retry and dedup behavior
type IngestionConfig struct {
	DedupWindowSeconds     int `mapstructure:"dedup_window_seconds" validate:"required,gt=0"`
	MaxRetries             int `mapstructure:"max_retries" validate:"required,gte=0"`
	BackoffInitialSeconds  int `mapstructure:"backoff_initial_seconds" validate:"required,gt=0"`
	BackoffMaxSeconds      int `mapstructure:"backoff_max_seconds" validate:"required,gt=0"`
	DegradedAfterFailures  int `mapstructure:"degraded_after_failures" validate:"required,gt=0"`
}

// InferenceConfig governs the ensemble engine
type InferenceConfig struct {
	ArtifactDir                   string `mapstructure:"artifact_dir" validate:"required"`
	SecondaryStackEnabled         bool   `mapstructure:"secondary_stack_enabled"`
	SecondaryStackTimeBudgetSeconds int  `mapstructure:"secondary_stack_time_budget_seconds" validate:"required,gt=0"`
	RequestTimeoutSeconds         int    `mapstructure:"request_timeout_seconds" validate:"required,gt=0"`
	MinCompletenessGroups         int    `mapstructure:"min_completeness_groups" validate:"required,gte=0"`
}

// CalibrationConfig governs the calibration and blend controller
type CalibrationConfig struct {
	WindowSize       int     `mapstructure:"calibration_window_size" validate:"required,gt=0"`
	MinSamples       int     `mapstructure:"min_samples" validate:"required,gt=0"`
	RefitEvery       int     `mapstructure:"refit_every" validate:"required,gt=0"`
	BlendWeightMin   float64 `mapstructure:"blend_weight_min" validate:"gte=0,lte=1"`
	BlendWeightMax   float64 `mapstructure:"blend_weight_max" validate:"gte=0,lte=1"`
}

// StakingConfig governs the staking decision engine
type StakingConfig struct {
	MinEdgeThreshold       float64 `mapstructure:"min_edge_threshold" validate:"required,gt=0,lt=1"`
	MinConfidenceThreshold float64 `mapstructure:"min_confidence_threshold" validate:"required,gte=0,lte=1"`
	KellyFraction          float64 `mapstructure:"kelly_fraction" validate:"required,gt=0,lte=1"`
	MaxStakeFraction       float64 `mapstructure:"max_stake_fraction" validate:"required,gt=0,lte=1"`
}

// CacheConfig governs the snapshot cache and its circuit breaker
type CacheConfig struct {
	Enabled               bool `mapstructure:"enabled"`
	TTLSeconds            int  `mapstructure:"ttl_seconds" validate:"required,gt=0"`
	MaxSize               int  `mapstructure:"max_size" validate:"required,gt=0"`
	BreakerFailures       int  `mapstructure:"breaker_failures" validate:"required,gt=0"`
	BreakerCooldownSeconds int `mapstructure:"breaker_cooldown_seconds" validate:"required,gt=0"`
}

// MetricsConfig represents metrics and monitoring configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Path    string `mapstructure:"path" validate:"required"`
}

// IsDevelopment checks if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// GetDatabaseDSN returns a PostgreSQL DSN string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// RequestTimeout returns the per-prediction latency budget
func (c *InferenceConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// SecondaryStackTimeBudget returns the secondary path's time budget
func (c *InferenceConfig) SecondaryStackTimeBudget() time.Duration {
	return time.Duration(c.SecondaryStackTimeBudgetSeconds) * time.Second
}

// PollInterval returns the connector's polling cadence
func (c *ConnectorConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// StalenessWindow returns how long a capture stays usable
func (c *ConnectorConfig) StalenessWindow() time.Duration {
	return time.Duration(c.StalenessWindowSeconds) * time.Second
}

// DedupWindow returns the orchestrator dedup window
func (c *IngestionConfig) DedupWindow() time.Duration {
	return time.Duration(c.DedupWindowSeconds) * time.Second
}
