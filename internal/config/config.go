// Package config defines the global configuration structure for the TutorPass
// platform. Configuration is loaded once at process initialization and is
// immutable thereafter. It follows 12-Factor App principles by strictly
// separating code from configuration.
//
// Values are resolved via a priority chain:
//
//	OS Environment (Highest) -> Dotenv File (Lowest)
//
// Any missing required value or invalid format causes startup to fail
// immediately (fail fast).
package config

import (
	"time"

	"tutorpass/internal/types"
)

// SecretString is an alias for types.SecretString, the redacted secret type used
// throughout configuration to prevent accidental logging of sensitive values.
type SecretString = types.SecretString

// Config is the top-level configuration struct for the TutorPass platform.
// It is populated once during process initialization and never modified.
// Sub-components receive only the specific config subsets they require
// (Least Privilege principle).
type Config struct {
	// System Metadata
	Environment string `envconfig:"APP_ENV" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"tutorpass-api"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	// Domain Configurations
	Server   ServerConfig
	Store    StoreConfig
	Payment  PaymentConfig
	Security SecurityConfig

	// Build Metadata (Injected via ldflags, not Env)
	Build BuildInfo
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8080"`
}

// StoreConfig holds snapshot persistence settings.
type StoreConfig struct {
	// DataFile is the path of the JSON snapshot holding all three
	// collections (users, templates, memberships).
	DataFile string `envconfig:"DATA_FILE" default:"data/memberships.json"`
	// Backups is how many gzip snapshot backups are kept before rotation
	// discards the oldest. Zero disables backups.
	Backups int `envconfig:"SNAPSHOT_BACKUPS" default:"3"`
}

// PaymentConfig holds payment gateway settings. When GatewayURL is empty the
// deterministic in-process gateway is used (local development and tests).
type PaymentConfig struct {
	GatewayURL string        `envconfig:"PAYMENT_GATEWAY_URL" validate:"omitempty,url"`
	APIKey     SecretString  `envconfig:"PAYMENT_GATEWAY_API_KEY"`
	Timeout    time.Duration `envconfig:"PAYMENT_TIMEOUT" default:"10s"`
}

// SecurityConfig holds CORS settings.
type SecurityConfig struct {
	CorsAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
}

// BuildInfo holds build-time metadata injected via ldflags.
// These values are NOT populated from environment variables.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// ConfigErrorType categorizes configuration loading failures to aid debugging.
type ConfigErrorType string

const (
	// ErrValidation indicates the configuration failed struct validation rules.
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
	// ErrParsing indicates a failure when parsing environment variable values
	// into their target types.
	ErrParsing ConfigErrorType = "PARSING_FAILED"
)
