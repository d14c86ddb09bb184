package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/brightgate-labs/mcpgateway/internal/config"
)

func TestVersionCommandRegistered(t *testing.T) {
	found := false
	for _, c := range rootCmd.Commands() {
		if c.Use == "version" {
			found = true
		}
	}
	if !found {
		t.Error("expected \"version\" to be registered on the root command")
	}
}

func TestServeCommandRegistered(t *testing.T) {
	found := false
	for _, c := range rootCmd.Commands() {
		if c.Use == "serve" {
			found = true
		}
	}
	if !found {
		t.Error("expected \"serve\" to be registered on the root command")
	}
}

func TestRunConfigDumpWithNoFilePresent(t *testing.T) {
	dir := t.TempDir()
	prevWD, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	defer func() {
		_ = os.Chdir(prevWD)
		viper.Reset()
	}()

	config.InitViper("")

	var buf bytes.Buffer
	testCmd := &cobra.Command{Use: "config-dump"}
	testCmd.SetOut(&buf)

	if err := runConfigDump(testCmd, nil); err != nil {
		t.Fatalf("runConfigDump: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "no config file found") {
		t.Errorf("expected the no-file banner, got: %s", out)
	}
	if !strings.Contains(out, "global_settings") {
		t.Errorf("expected the dumped config to contain global_settings, got: %s", out)
	}
}

func TestRunConfigDumpWithFilePresent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mcpgateway.yaml")
	if err := os.WriteFile(path, []byte("enabled_providers:\n  - filesystem\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	prevWD, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	defer func() {
		_ = os.Chdir(prevWD)
		viper.Reset()
	}()

	config.InitViper("")

	var buf bytes.Buffer
	testCmd := &cobra.Command{Use: "config-dump"}
	testCmd.SetOut(&buf)

	if err := runConfigDump(testCmd, nil); err != nil {
		t.Fatalf("runConfigDump: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "# source:") || !strings.Contains(out, "mcpgateway.yaml") {
		t.Errorf("expected a source banner naming the config file, got: %s", out)
	}
	if !strings.Contains(out, "filesystem") {
		t.Errorf("expected the dumped config to list the enabled provider, got: %s", out)
	}
}
