package config

const (
	defaultLogDir       = "~/.local/share/weft/logs"
	defaultLogFormat    = "console"
	defaultLogLevel     = "info"
	defaultFallbackRate = "24"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir: defaultLogDir,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Convert: Convert{
			Simplify:     true,
			FallbackRate: defaultFallbackRate,
		},
	}
}
