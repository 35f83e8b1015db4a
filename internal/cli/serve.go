// Package cli provides the command-line interface for both MCP relays.
package cli

import (
	"fmt"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rezytijo/mcp-collection/internal/config"
)

// addTransportFlags registers the serving flags shared by both relays.
func addTransportFlags(cmd *cobra.Command) {
	cmd.Flags().String("transport", "", "MCP transport: stdio or sse (overrides MCP_TRANSPORT)")
	cmd.Flags().Int("port", 0, "listen port for the sse transport (overrides MCP_PORT)")
	cmd.Flags().String("log-level", "", "log level: debug, info, warn, error (overrides LOG_LEVEL)")
}

// applyTransportFlags folds explicit flag values over the loaded config.
func applyTransportFlags(cmd *cobra.Command, transport *string, port *int, logLevel *string) {
	if cmd.Flags().Changed("transport") {
		*transport, _ = cmd.Flags().GetString("transport")
	}
	if cmd.Flags().Changed("port") {
		*port, _ = cmd.Flags().GetInt("port")
	}
	if cmd.Flags().Changed("log-level") {
		*logLevel, _ = cmd.Flags().GetString("log-level")
	}
}

// serveTransport runs the MCP server on the configured transport and
// blocks until it stops.
func serveTransport(s *mcpserver.MCPServer, transport string, port int, logger zerolog.Logger) error {
	switch config.NormalizedTransport(transport) {
	case config.TransportSSE:
		logger.Info().Int("port", port).Msg("serving MCP over SSE")
		sse := mcpserver.NewSSEServer(s)
		return sse.Start(fmt.Sprintf(":%d", port))
	default:
		logger.Info().Msg("serving MCP over stdio")
		return mcpserver.ServeStdio(s)
	}
}
