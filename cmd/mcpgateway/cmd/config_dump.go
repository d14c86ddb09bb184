package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/brightgate-labs/mcpgateway/internal/config"
)

var configDumpCmd = &cobra.Command{
	Use:   "config-dump",
	Short: "Print the resolved configuration, defaults applied, as YAML",
	Long: `Load the configuration file plus environment overrides, apply
defaults, and print the result as YAML. Does not run validation, so it also
doubles as a way to inspect a config file that currently fails validation.`,
	RunE: runConfigDump,
}

func init() {
	rootCmd.AddCommand(configDumpCmd)
}

func runConfigDump(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigRaw()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	out, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if path := config.ConfigFileUsed(); path != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "# source: %s\n", path)
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), "# source: defaults and environment only, no config file found")
	}
	_, err = cmd.OutOrStdout().Write(out)
	return err
}
