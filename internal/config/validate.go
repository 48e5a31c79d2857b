package config

import (
	"fmt"

	"weft/internal/opentime"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateLogging(); err != nil {
		return err
	}
	return c.validateConvert()
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}

func (c *Config) validateConvert() error {
	rate, err := opentime.ParseRational(c.Convert.FallbackRate)
	if err != nil {
		return fmt.Errorf("convert.fallback_rate: %w", err)
	}
	if rate.Num <= 0 {
		return fmt.Errorf("convert.fallback_rate must be positive, got %q", c.Convert.FallbackRate)
	}
	return nil
}

// FallbackRate returns the configured fallback edit rate. Validate has
// already checked the value parses.
func (c *Config) FallbackRate() opentime.Rational {
	rate, err := opentime.ParseRational(c.Convert.FallbackRate)
	if err != nil || rate.Num <= 0 {
		return opentime.NewRational(24, 1)
	}
	return rate
}
