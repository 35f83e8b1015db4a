// Package main is the entry point for the Proxmox MCP relay.
package main

import (
	"fmt"
	"os"

	"github.com/rezytijo/mcp-collection/internal/cli"
)

func main() {
	if err := cli.ExecuteProxmox(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
