// Package config provides configuration management for the Footy Edge pipeline.
package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// CustomValidator wraps the validator with custom validation rules
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates a new validator with custom validation functions
func NewValidator() *CustomValidator {
	v := validator.New()

	_ = v.RegisterValidation("environment", validateEnvironment)
	_ = v.RegisterValidation("loglevel", validateLogLevel)
	_ = v.RegisterValidation("sourcekind", validateSourceKind)

	return &CustomValidator{validator: v}
}

// Validate validates the entire configuration
func Validate(cfg *Config) error {
	cv := NewValidator()
	return cv.Validate(cfg)
}

// Validate validates the configuration using registered validation rules
func (cv *CustomValidator) Validate(cfg *Config) error {
	err := cv.validator.Struct(cfg)
	if err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			return formatValidationErrors(validationErrors)
		}
		return fmt.Errorf("validation failed: %w", err)
	}

	return validateCrossField(cfg)
}

// validateEnvironment validates the environment field
func validateEnvironment(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "development", "staging", "production":
		return true
	default:
		return false
	}
}

// validateLogLevel validates the log level field
func validateLogLevel(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

// validateSourceKind validates a connector kind against the closed source set
func validateSourceKind(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "live_scores", "exchange_odds", "closing_line", "xg",
		"ratings", "standings", "valuations", "historical_odds":
		return true
	default:
		return false
	}
}

// validateCrossField performs cross-field validations
func validateCrossField(cfg *Config) error {
	if cfg.Calibration.BlendWeightMin > cfg.Calibration.BlendWeightMax {
		return fmt.Errorf("blend_weight_min (%.2f) cannot exceed blend_weight_max (%.2f)",
			cfg.Calibration.BlendWeightMin, cfg.Calibration.BlendWeightMax)
	}

	if cfg.Calibration.MinSamples > cfg.Calibration.WindowSize {
		return fmt.Errorf("calibration min_samples cannot exceed calibration_window_size")
	}

	if cfg.Ingestion.BackoffInitialSeconds > cfg.Ingestion.BackoffMaxSeconds {
		return fmt.Errorf("backoff_initial_seconds cannot exceed backoff_max_seconds")
	}

	if cfg.Database.MaxIdleConnections > cfg.Database.MaxConnections {
		return fmt.Errorf("max_idle_connections cannot exceed max_connections")
	}

	if cfg.IsProduction() && cfg.Database.SSLMode == "disable" {
		return fmt.Errorf("production environment requires SSL mode to be 'require' or 'verify-full'")
	}

	seen := make(map[string]bool)
	for _, src := range cfg.Connectors.Sources {
		if seen[src.Kind] {
			return fmt.Errorf("duplicate connector kind: %s", src.Kind)
		}
		seen[src.Kind] = true
	}

	return nil
}

// formatValidationErrors formats validation errors into a readable string
func formatValidationErrors(validationErrors validator.ValidationErrors) error {
	var errMsg string
	for _, fieldError := range validationErrors {
		field := fieldError.StructField()
		tag := fieldError.Tag()
		value := fieldError.Value()

		switch tag {
		case "required":
			errMsg += fmt.Sprintf("- Field '%s' is required\n", field)
		case "min", "max":
			errMsg += fmt.Sprintf("- Field '%s' validation failed: %s constraint violated\n", field, tag)
		case "gt", "gte", "lt", "lte":
			errMsg += fmt.Sprintf("- Field '%s' validation failed: numeric constraint %s violated\n", field, tag)
		case "environment":
			errMsg += fmt.Sprintf("- Field '%s' must be one of: development, staging, production\n", field)
		case "loglevel":
			errMsg += fmt.Sprintf("- Field '%s' must be one of: debug, info, warn, error\n", field)
		case "sourcekind":
			errMsg += fmt.Sprintf("- Field '%s' has unknown connector kind '%v'\n", field, value)
		default:
			errMsg += fmt.Sprintf("- Field '%s' failed validation rule '%s' (value: '%v')\n", field, tag, value)
		}
	}
	return fmt.Errorf("configuration validation failed:\n%s", errMsg)
}
