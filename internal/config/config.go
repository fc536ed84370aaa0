// Package config loads and validates engine configuration from YAML
// files with environment variable interpolation.
package config

import "time"

// Config is the top-level engine configuration.
type Config struct {
	Core     CoreConfig     `mapstructure:"core" yaml:"core"`
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	Engine   EngineConfig   `mapstructure:"engine" yaml:"engine"`
	Retry    RetryConfig    `mapstructure:"retry" yaml:"retry"`
	PKI      PKIConfig      `mapstructure:"pki" yaml:"pki"`
	Webhook  WebhookConfig  `mapstructure:"webhook" yaml:"webhook"`
	Report   ReportConfig   `mapstructure:"report" yaml:"report"`
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
}

// CoreConfig holds paths and global limits.
type CoreConfig struct {
	HomeDir string `mapstructure:"home_dir" yaml:"home_dir"`
	DataDir string `mapstructure:"data_dir" yaml:"data_dir"`
	Debug   bool   `mapstructure:"debug" yaml:"debug"`
}

// DatabaseConfig configures the SQLite store.
type DatabaseConfig struct {
	Path        string        `mapstructure:"path" yaml:"path" validate:"required"`
	MaxConns    int           `mapstructure:"max_connections" yaml:"max_connections" validate:"min=1"`
	BusyTimeout time.Duration `mapstructure:"busy_timeout" yaml:"busy_timeout"`
}

// EngineConfig configures instance lifecycle behavior.
type EngineConfig struct {
	// Deadline is how long an instance may sit idle before the expiry
	// sweep retires it.
	Deadline time.Duration `mapstructure:"deadline" yaml:"deadline" validate:"required"`

	// SweepInterval is how often the expiry sweep runs.
	SweepInterval time.Duration `mapstructure:"sweep_interval" yaml:"sweep_interval"`

	// SweepConcurrency bounds parallel expiry during a sweep.
	SweepConcurrency int `mapstructure:"sweep_concurrency" yaml:"sweep_concurrency" validate:"min=1"`
}

// RetryConfig configures action delivery retry.
type RetryConfig struct {
	MaxRetries      int           `mapstructure:"max_retries" yaml:"max_retries" validate:"min=0"`
	BackoffStrategy string        `mapstructure:"backoff_strategy" yaml:"backoff_strategy" validate:"oneof=constant linear exponential"`
	InitialDelay    time.Duration `mapstructure:"initial_delay" yaml:"initial_delay"`
	MaxDelay        time.Duration `mapstructure:"max_delay" yaml:"max_delay"`
	Multiplier      float64       `mapstructure:"multiplier" yaml:"multiplier"`
}

// PKIConfig configures signature verification.
type PKIConfig struct {
	// TrustRoots lists PEM files of trusted root certificates.
	TrustRoots []string `mapstructure:"trust_roots" yaml:"trust_roots"`

	// Intermediates lists PEM files of intermediate certificates.
	Intermediates []string `mapstructure:"intermediates" yaml:"intermediates"`

	// OCSPURL is the OCSP responder; empty disables certificate
	// revocation checks (status not-checked).
	OCSPURL string `mapstructure:"ocsp_url" yaml:"ocsp_url" validate:"omitempty,url"`

	// KeyServerURL is the PGP key server; empty disables key status
	// lookups.
	KeyServerURL string `mapstructure:"key_server_url" yaml:"key_server_url" validate:"omitempty,url"`

	// CacheTTL bounds how long verification results are reused.
	CacheTTL time.Duration `mapstructure:"cache_ttl" yaml:"cache_ttl"`
}

// WebhookConfig configures outbound webhook delivery.
type WebhookConfig struct {
	// SigningKey is the shared HMAC secret; supports ${ENV_VAR}
	// interpolation so it stays out of config files.
	SigningKey string        `mapstructure:"signing_key" yaml:"signing_key"`
	Timeout    time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// ReportConfig configures generated report output.
type ReportConfig struct {
	OutputDir string `mapstructure:"output_dir" yaml:"output_dir"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" yaml:"format" validate:"oneof=text json"`
}
