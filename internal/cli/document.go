package cli

import (
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/rezytijo/mcp-collection/internal/config"
	"github.com/rezytijo/mcp-collection/internal/document"
	"github.com/rezytijo/mcp-collection/internal/logging"
	"github.com/rezytijo/mcp-collection/internal/relay"
	"github.com/rezytijo/mcp-collection/internal/tools/doctools"
	"github.com/rezytijo/mcp-collection/internal/version"
)

var documentCmd = &cobra.Command{
	Use:   "document-mcp",
	Short: "MCP server for document generation",
	Long: `document-mcp exposes document generation as MCP tools: Word documents
with template placeholder substitution, Excel workbooks, PowerPoint
decks, and PDFs.

Templates are read from DOCUMENT_TEMPLATES_DIR and outputs are written
to DOCUMENT_OUTPUTS_DIR.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runDocument,
}

func init() {
	addTransportFlags(documentCmd)
	documentCmd.AddCommand(newVersionCmd("document-mcp"))
}

// ExecuteDocument runs the document-mcp root command.
func ExecuteDocument() error {
	return documentCmd.Execute()
}

func runDocument(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadDocument()
	if err != nil {
		return err
	}
	applyTransportFlags(cmd, &cfg.Transport, &cfg.Port, &cfg.LogLevel)

	logger := logging.Setup(cfg.LogLevel)

	gen := &document.Generator{
		TemplatesDir: cfg.TemplatesDir,
		OutputsDir:   cfg.OutputsDir,
	}

	s := mcpserver.NewMCPServer("document-generator", version.Version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithRecovery(),
		mcpserver.WithToolHandlerMiddleware(relay.LoggingMiddleware(logger)),
	)
	doctools.Register(s, gen)

	logger.Info().
		Str("templates", cfg.TemplatesDir).
		Str("outputs", cfg.OutputsDir).
		Msg("starting document MCP server")
	return serveTransport(s, cfg.Transport, cfg.Port, logger)
}
