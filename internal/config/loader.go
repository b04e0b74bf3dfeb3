package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

// Load reads a single YAML configuration file, expands ${VAR} references
// against the process environment, applies production defaults for unset
// fields, and validates the result.
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, NewLoadError(path, ErrConfigNotFound)
		}
		return Config{}, NewLoadError(path, err)
	}

	expanded := ExpandEnv(raw)

	var cfg Config
	if err := yaml.Unmarshal(expanded, &cfg); err != nil {
		return Config{}, NewLoadError(path, fmt.Errorf("%w: %v", ErrInvalidYAML, err))
	}

	cfg = applyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate runs struct-tag validation plus the cross-field checks that
// validator tags can't express (e.g. at least one delivery target set).
func Validate(cfg Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	if cfg.DeliveryTarget.DealAnalysis == "" &&
		cfg.DeliveryTarget.DataAnalysis == "" &&
		cfg.DeliveryTarget.LeadAnalysis == "" &&
		cfg.DeliveryTarget.General == "" {
		return NewValidationError("delivery_targets", "", fmt.Errorf("%w: at least one intent class must have a target URL", ErrMissingRequiredField))
	}

	return nil
}
