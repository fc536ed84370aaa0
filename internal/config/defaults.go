package config

import (
	"os"
	"path/filepath"
	"time"
)

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	homeDir := getDefaultHomeDir()

	return &Config{
		Core: CoreConfig{
			HomeDir: homeDir,
			DataDir: filepath.Join(homeDir, "data"),
			Debug:   false,
		},
		Database: DatabaseConfig{
			Path:        filepath.Join(homeDir, "papertrail.db"),
			MaxConns:    10,
			BusyTimeout: 5 * time.Second,
		},
		Engine: EngineConfig{
			Deadline:         30 * 24 * time.Hour,
			SweepInterval:    time.Hour,
			SweepConcurrency: 4,
		},
		Retry: RetryConfig{
			MaxRetries:      4,
			BackoffStrategy: "exponential",
			InitialDelay:    500 * time.Millisecond,
			MaxDelay:        30 * time.Second,
			Multiplier:      2.0,
		},
		PKI: PKIConfig{
			CacheTTL: 15 * time.Minute,
		},
		Webhook: WebhookConfig{
			Timeout: 15 * time.Second,
		},
		Report: ReportConfig{
			OutputDir: filepath.Join(homeDir, "reports"),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func getDefaultHomeDir() string {
	if dir := os.Getenv("PAPERTRAIL_HOME"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".papertrail"
	}
	return filepath.Join(home, ".papertrail")
}
