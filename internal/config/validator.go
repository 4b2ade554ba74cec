package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator validates configuration values
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{validate: validator.New()}
}

// ValidateLogLevel validates log level
func (v *Validator) ValidateLogLevel(level string) error {
	validLevels := []string{"debug", "info", "warn", "error", "fatal"}
	for _, valid := range validLevels {
		if strings.ToLower(level) == valid {
			return nil
		}
	}
	return fmt.Errorf("invalid log level: %s (must be one of: %s)", level, strings.Join(validLevels, ", "))
}

// ValidatePort validates a listen port
func (v *Validator) ValidatePort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("invalid port: %d (must be between 1 and 65535)", port)
	}
	return nil
}

// ValidateConfig performs comprehensive validation
func (v *Validator) ValidateConfig(cfg *Config) []error {
	var errs []error

	// Struct tag validation catches range and required violations
	if err := v.validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				errs = append(errs, fmt.Errorf("%s failed on rule %q", fe.Namespace(), fe.Tag()))
			}
		} else {
			errs = append(errs, fmt.Errorf("failed to validate config: %w", err))
		}
	}

	if err := v.ValidateLogLevel(cfg.Logging.Level); err != nil {
		errs = append(errs, err)
	}

	if cfg.Gateway.Enabled && cfg.Gateway.Host == cfg.Server.Host && cfg.Gateway.Port == cfg.Server.Port {
		errs = append(errs, fmt.Errorf("gateway and hub cannot both listen on %s:%d", cfg.Server.Host, cfg.Server.Port))
	}

	if cfg.Server.MaxLineBytes > 0 && cfg.Server.MaxLineBytes < 1024 {
		errs = append(errs, fmt.Errorf("server max_line_bytes too small: %d (minimum 1024)", cfg.Server.MaxLineBytes))
	}

	return errs
}
