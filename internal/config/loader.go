package config

import (
	"os"
	"regexp"
	"strings"

	"github.com/spf13/viper"

	"github.com/ghost-ng/Papertrail/internal/types"
)

// Loader loads configuration files.
type Loader interface {
	Load(path string) (*Config, error)
	LoadWithDefaults(path string) (*Config, error)
}

type viperLoader struct {
	validator Validator
}

// NewLoader creates a Loader backed by viper.
func NewLoader(validator Validator) Loader {
	return &viperLoader{validator: validator}
}

// Load loads configuration from the specified file path. Values support
// ${VAR_NAME} environment variable interpolation.
func (l *viperLoader) Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, types.WrapError(types.CONFIG_LOAD_FAILED, "failed to read config file", err)
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, types.WrapError(types.CONFIG_LOAD_FAILED, "failed to unmarshal config", err)
	}

	interpolate(cfg)

	if err := l.validator.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadWithDefaults loads configuration from path, falling back to
// defaults when the file does not exist.
func (l *viperLoader) LoadWithDefaults(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := DefaultConfig()
		if err := l.validator.Validate(cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	return l.Load(path)
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// interpolate replaces ${VAR_NAME} references in string fields that may
// carry secrets or host-specific paths.
func interpolate(cfg *Config) {
	cfg.Webhook.SigningKey = interpolateString(cfg.Webhook.SigningKey)
	cfg.PKI.OCSPURL = interpolateString(cfg.PKI.OCSPURL)
	cfg.PKI.KeyServerURL = interpolateString(cfg.PKI.KeyServerURL)
	cfg.Database.Path = interpolateString(cfg.Database.Path)
	cfg.Core.HomeDir = interpolateString(cfg.Core.HomeDir)
	cfg.Core.DataDir = interpolateString(cfg.Core.DataDir)
	cfg.Report.OutputDir = interpolateString(cfg.Report.OutputDir)
	for i, p := range cfg.PKI.TrustRoots {
		cfg.PKI.TrustRoots[i] = interpolateString(p)
	}
	for i, p := range cfg.PKI.Intermediates {
		cfg.PKI.Intermediates[i] = interpolateString(p)
	}
}

func interpolateString(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		if value, ok := os.LookupEnv(name); ok {
			return value
		}
		return match
	})
}
