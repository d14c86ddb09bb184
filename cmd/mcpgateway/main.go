// Command mcpgateway is the entry point for the MCP gateway CLI.
package main

import "github.com/brightgate-labs/mcpgateway/cmd/mcpgateway/cmd"

func main() {
	cmd.Execute()
}
