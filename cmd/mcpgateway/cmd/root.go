// Package cmd provides the CLI commands for the MCP gateway.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/brightgate-labs/mcpgateway/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "mcpgateway",
	Short: "MCP Gateway - a single front door for many MCP servers",
	Long: `mcpgateway is a Model Context Protocol gateway: it speaks MCP to a
single downstream client over stdio, fans every tools/call and
resources/read out to the right upstream MCP server, and merges every
upstream's tools/resources/prompts into one namespaced catalog.

Quick start:
  1. Create a config file: mcpgateway.yaml
  2. Run: mcpgateway serve

Configuration:
  Config is loaded from mcpgateway.yaml in the current directory,
  $HOME/.mcpgateway/, or /etc/mcpgateway/.

  Environment variables can override config values with the MCPGATEWAY_
  prefix. Example: MCPGATEWAY_GLOBAL_SETTINGS_LOGGING_LEVEL=debug

Commands:
  serve       Start the gateway
  version     Print version information`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./mcpgateway.yaml)")
}

func initConfig() {
	config.InitViper(cfgFile)
}
