package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ghost-ng/Papertrail/internal/types"
)

// Validator validates configuration values.
type Validator interface {
	Validate(cfg *Config) error
}

type validatorImpl struct {
	validate *validator.Validate
}

// NewValidator creates a Validator using struct tag validation.
func NewValidator() Validator {
	return &validatorImpl{validate: validator.New()}
}

// Validate validates the configuration and returns detailed error messages.
func (v *validatorImpl) Validate(cfg *Config) error {
	if cfg == nil {
		return types.NewError(types.CONFIG_VALIDATION_FAILED, "configuration is nil")
	}

	if err := v.validate.Struct(cfg); err != nil {
		validationErrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return types.WrapError(types.CONFIG_VALIDATION_FAILED, "validation error", err)
		}
		var messages []string
		for _, e := range validationErrs {
			messages = append(messages, formatValidationError(e))
		}
		return types.NewErrorf(types.CONFIG_VALIDATION_FAILED,
			"configuration validation failed:\n  - %s", strings.Join(messages, "\n  - "))
	}

	if cfg.Retry.BackoffStrategy == "exponential" {
		if cfg.Retry.Multiplier <= 1.0 {
			return types.NewErrorf(types.CONFIG_VALIDATION_FAILED,
				"configuration validation failed:\n  - retry.multiplier must exceed 1.0 for exponential backoff (got: %g)",
				cfg.Retry.Multiplier)
		}
		if cfg.Retry.MaxDelay <= 0 {
			return types.NewError(types.CONFIG_VALIDATION_FAILED,
				"configuration validation failed:\n  - retry.max_delay must be set for exponential backoff")
		}
	}
	if cfg.PKI.OCSPURL != "" && len(cfg.PKI.TrustRoots) == 0 {
		return types.NewError(types.CONFIG_VALIDATION_FAILED,
			"configuration validation failed:\n  - pki.trust_roots must be non-empty when pki.ocsp_url is set")
	}
	return nil
}

func formatValidationError(e validator.FieldError) string {
	field := strings.ToLower(e.Namespace())
	field = strings.TrimPrefix(field, "config.")

	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s (got: %v)", field, e.Param(), e.Value())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s] (got: %v)", field, e.Param(), e.Value())
	case "url":
		return fmt.Sprintf("%s must be a valid URL (got: %v)", field, e.Value())
	default:
		return fmt.Sprintf("%s failed %s validation (got: %v)", field, e.Tag(), e.Value())
	}
}
