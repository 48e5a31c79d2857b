// Package config loads, normalizes, and validates weft configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours the WEFT_CONFIG environment
// variable for locating the file. The Config type centralizes every knob the
// CLI needs: log output, and the conversion engine defaults applied when
// command-line flags stay silent.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
