package main

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"weft/internal/config"
	"weft/internal/logging"
	"weft/internal/opentime"
	"weft/internal/transcribe"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		logger, err := logging.NewFromConfig(cfg)
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger = logger
	})
	return c.logger, c.loggerErr
}

// convertFlags carries the per-command conversion overrides. Flags left
// untouched fall back to the configured defaults.
type convertFlags struct {
	simplify      bool
	attachMarkers bool
	bakeKeyframed bool
	transcribeLog bool
	fallbackRate  string
}

func addConvertFlags(cmd *cobra.Command, f *convertFlags) {
	cmd.Flags().BoolVar(&f.simplify, "simplify", true, "Collapse redundant nesting after transcription")
	cmd.Flags().BoolVar(&f.attachMarkers, "attach-markers", false, "Re-home markers onto the items containing them")
	cmd.Flags().BoolVar(&f.bakeKeyframed, "bake-keyframed-properties", false, "Bake keyframed speed curves into per-frame maps")
	cmd.Flags().BoolVar(&f.transcribeLog, "transcribe-log", false, "Trace per-segment decisions at debug level")
	cmd.Flags().StringVar(&f.fallbackRate, "fallback-rate", "", "Edit rate used when rates cannot be reconciled (e.g. 24 or 30000/1001)")
}

func (c *commandContext) convertOptions(cmd *cobra.Command, f *convertFlags) (transcribe.Options, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return transcribe.Options{}, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return transcribe.Options{}, err
	}

	opts := transcribe.DefaultOptions()
	opts.Simplify = cfg.Convert.Simplify
	opts.AttachMarkers = cfg.Convert.AttachMarkers
	opts.BakeKeyframedProperties = cfg.Convert.BakeKeyframedProperties
	opts.TranscribeLog = cfg.Convert.TranscribeLog
	opts.FallbackRate = cfg.FallbackRate()
	opts.Logger = logger.With("component", "convert")

	flags := cmd.Flags()
	if flags.Changed("simplify") {
		opts.Simplify = f.simplify
	}
	if flags.Changed("attach-markers") {
		opts.AttachMarkers = f.attachMarkers
	}
	if flags.Changed("bake-keyframed-properties") {
		opts.BakeKeyframedProperties = f.bakeKeyframed
	}
	if flags.Changed("transcribe-log") {
		opts.TranscribeLog = f.transcribeLog
	}
	if flags.Changed("fallback-rate") {
		rate, err := opentime.ParseRational(f.fallbackRate)
		if err != nil {
			return transcribe.Options{}, err
		}
		opts.FallbackRate = rate
	}
	return opts, nil
}
