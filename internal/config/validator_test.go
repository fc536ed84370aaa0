package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghost-ng/Papertrail/internal/types"
)

func TestValidateDefaults(t *testing.T) {
	assert.NoError(t, NewValidator().Validate(DefaultConfig()))
}

func TestValidateNilConfig(t *testing.T) {
	err := NewValidator().Validate(nil)
	assert.Equal(t, types.CONFIG_VALIDATION_FAILED, types.CodeOf(err))
}

func TestValidateFailures(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(cfg *Config)
		wantMsg string
	}{
		{
			name:    "missing database path",
			mutate:  func(cfg *Config) { cfg.Database.Path = "" },
			wantMsg: "database.path is required",
		},
		{
			name:    "zero max connections",
			mutate:  func(cfg *Config) { cfg.Database.MaxConns = 0 },
			wantMsg: "database.maxconns must be at least 1",
		},
		{
			name:    "unknown backoff strategy",
			mutate:  func(cfg *Config) { cfg.Retry.BackoffStrategy = "fibonacci" },
			wantMsg: "must be one of",
		},
		{
			name:    "bad log level",
			mutate:  func(cfg *Config) { cfg.Logging.Level = "trace" },
			wantMsg: "must be one of",
		},
		{
			name:    "bad ocsp url",
			mutate:  func(cfg *Config) { cfg.PKI.OCSPURL = "not a url" },
			wantMsg: "must be a valid URL",
		},
		{
			name:    "exponential multiplier too small",
			mutate:  func(cfg *Config) { cfg.Retry.Multiplier = 1.0 },
			wantMsg: "retry.multiplier must exceed 1.0",
		},
		{
			name: "exponential without max delay",
			mutate: func(cfg *Config) {
				cfg.Retry.MaxDelay = 0
			},
			wantMsg: "retry.max_delay must be set",
		},
		{
			name: "ocsp without trust roots",
			mutate: func(cfg *Config) {
				cfg.PKI.OCSPURL = "http://ocsp.example.com"
				cfg.PKI.TrustRoots = nil
			},
			wantMsg: "pki.trust_roots must be non-empty",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := NewValidator().Validate(cfg)
			require.Error(t, err)
			assert.Equal(t, types.CONFIG_VALIDATION_FAILED, types.CodeOf(err))
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}
