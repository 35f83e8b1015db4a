// Package main is the entry point for the document generation MCP relay.
package main

import (
	"fmt"
	"os"

	"github.com/rezytijo/mcp-collection/internal/cli"
)

func main() {
	if err := cli.ExecuteDocument(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
