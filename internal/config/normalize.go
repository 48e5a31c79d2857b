package config

import "strings"

// normalize expands user paths and canonicalizes string fields so the rest of
// the program never re-trims or re-expands.
func (c *Config) normalize() error {
	logDir, err := expandPath(c.Paths.LogDir)
	if err != nil {
		return err
	}
	c.Paths.LogDir = logDir

	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Convert.FallbackRate = strings.TrimSpace(c.Convert.FallbackRate)
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Convert.FallbackRate == "" {
		c.Convert.FallbackRate = defaultFallbackRate
	}
	return nil
}
