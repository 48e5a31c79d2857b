package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"weft/internal/config"
	"weft/internal/opentime"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("WEFT_CONFIG", "")

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	if cfg.Logging.Format != "console" || cfg.Logging.Level != "info" {
		t.Fatalf("unexpected logging defaults: %+v", cfg.Logging)
	}
	if !cfg.Convert.Simplify {
		t.Fatal("expected simplify on by default")
	}
	if cfg.Convert.AttachMarkers || cfg.Convert.BakeKeyframedProperties {
		t.Fatalf("expected opt-in conversions off by default: %+v", cfg.Convert)
	}
	if !cfg.FallbackRate().Equal(opentime.NewRational(24, 1)) {
		t.Fatalf("unexpected fallback rate: %s", cfg.FallbackRate())
	}
	wantLogDir := filepath.Join(tempHome, ".local", "share", "weft", "logs")
	if cfg.Paths.LogDir != wantLogDir {
		t.Fatalf("unexpected log dir: got %q want %q", cfg.Paths.LogDir, wantLogDir)
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "weft.toml")

	custom := config.Default()
	custom.Logging.Level = "debug"
	custom.Convert.Simplify = false
	custom.Convert.FallbackRate = "30000/1001"
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("expected level override, got %q", cfg.Logging.Level)
	}
	if cfg.Convert.Simplify {
		t.Fatal("expected simplify override to stick")
	}
	if !cfg.FallbackRate().Equal(opentime.NewRational(30000, 1001)) {
		t.Fatalf("unexpected fallback rate: %s", cfg.FallbackRate())
	}
}

func TestEnvVarLocatesConfig(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "elsewhere.toml")
	if err := os.WriteFile(configPath, []byte("[logging]\nlevel = \"warn\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("WEFT_CONFIG", configPath)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected env-located config, got %q exists=%v", resolved, exists)
	}
	if cfg.Logging.Level != "warn" {
		t.Fatalf("expected level from env-located file, got %q", cfg.Logging.Level)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "fallback_rate") {
		t.Fatalf("sample config missing convert section: %s", contents)
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	cfg := config.Default()
	cfg.Logging.Format = "xml"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown log format")
	}

	cfg = config.Default()
	cfg.Logging.Level = "loud"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown log level")
	}

	cfg = config.Default()
	cfg.Convert.FallbackRate = "0"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for non-positive fallback rate")
	}

	cfg = config.Default()
	cfg.Convert.FallbackRate = "not-a-rate"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unparsable fallback rate")
	}
}
