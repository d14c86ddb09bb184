package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
)

func TestSetDefaults(t *testing.T) {
	var cfg Config
	cfg.SetDefaults()

	if cfg.ProviderSettings == nil {
		t.Error("expected ProviderSettings to be initialized")
	}
	if cfg.GlobalSettings.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want info", cfg.GlobalSettings.Logging.Level)
	}
	if cfg.GlobalSettings.Logging.Format != "text" {
		t.Errorf("Logging.Format = %q, want text", cfg.GlobalSettings.Logging.Format)
	}
	if cfg.GlobalSettings.Timeouts.RequestTimeoutSeconds != 60 {
		t.Errorf("RequestTimeoutSeconds = %d, want 60", cfg.GlobalSettings.Timeouts.RequestTimeoutSeconds)
	}
	if cfg.GlobalSettings.Timeouts.ConnectTimeoutSeconds != 10 {
		t.Errorf("ConnectTimeoutSeconds = %d, want 10", cfg.GlobalSettings.Timeouts.ConnectTimeoutSeconds)
	}
	if cfg.GlobalSettings.Timeouts.ShutdownGraceSeconds != 5 {
		t.Errorf("ShutdownGraceSeconds = %d, want 5", cfg.GlobalSettings.Timeouts.ShutdownGraceSeconds)
	}
}

func TestSetDefaultsPreservesExplicitValues(t *testing.T) {
	cfg := Config{GlobalSettings: GlobalSettings{Logging: LoggingConfig{Level: "debug", Format: "json"}}}
	cfg.SetDefaults()
	if cfg.GlobalSettings.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug to survive SetDefaults", cfg.GlobalSettings.Logging.Level)
	}
	if cfg.GlobalSettings.Logging.Format != "json" {
		t.Errorf("Logging.Format = %q, want json to survive SetDefaults", cfg.GlobalSettings.Logging.Format)
	}
}

func TestValidateRejectsBadLogLevel(t *testing.T) {
	cfg := Config{GlobalSettings: GlobalSettings{Logging: LoggingConfig{Level: "loud", Format: "text"}}}
	if err := validate.Struct(&cfg); err == nil {
		t.Error("expected validation to reject an unrecognized log level")
	}
}

func TestValidateRejectsEmptyEnabledProviderName(t *testing.T) {
	cfg := Config{EnabledProviders: []string{""}}
	cfg.SetDefaults()
	if err := validate.Struct(&cfg); err == nil {
		t.Error("expected validation to reject an empty enabled_providers entry")
	}
}

func withTempConfig(t *testing.T, yamlBody string) func() {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "mcpgateway.yaml")
	if err := os.WriteFile(path, []byte(yamlBody), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	prevWD, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	return func() {
		_ = os.Chdir(prevWD)
		viper.Reset()
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	cleanup := withTempConfig(t, `
enabled_providers:
  - filesystem
global_settings:
  logging:
    level: debug
`)
	defer cleanup()

	InitViper("")
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if len(cfg.EnabledProviders) != 1 || cfg.EnabledProviders[0] != "filesystem" {
		t.Errorf("EnabledProviders = %v, want [filesystem]", cfg.EnabledProviders)
	}
	if cfg.GlobalSettings.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.GlobalSettings.Logging.Level)
	}
	if cfg.GlobalSettings.Logging.Format != "text" {
		t.Errorf("Logging.Format = %q, want the default text", cfg.GlobalSettings.Logging.Format)
	}
}

func TestLoadConfigMissingFileFallsBackToDefaults(t *testing.T) {
	dir := t.TempDir()
	prevWD, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	defer func() {
		_ = os.Chdir(prevWD)
		viper.Reset()
	}()

	InitViper("")
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig with no file present should still succeed: %v", err)
	}
	if cfg.GlobalSettings.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want the default info", cfg.GlobalSettings.Logging.Level)
	}
}
