// Package doctools registers the document generation tools on an MCP
// server. Each tool validates its JSON arguments, delegates to
// document.Generator, and reports the output path.
package doctools

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/rezytijo/mcp-collection/internal/document"
	"github.com/rezytijo/mcp-collection/internal/relay"
)

// Register adds the four document tools to the server.
func Register(s *server.MCPServer, gen *document.Generator) {
	s.AddTool(mcp.NewTool("document_generate_word",
		mcp.WithDescription("Generate a Word document with optional template, content, and placeholders to fill"),
		mcp.WithString("content", mcp.Description("Document body; blank lines separate paragraphs, **bold** and *italic* are honored")),
		mcp.WithString("template", mcp.Description("Template file name in the templates directory (.docx or .dotx)")),
		mcp.WithString("output_name", mcp.Description("Output file name (default document.docx)")),
		mcp.WithString("placeholders", mcp.Description("JSON object mapping {placeholder} keys to replacement values")),
	), generateWord(gen))

	s.AddTool(mcp.NewTool("document_generate_excel",
		mcp.WithDescription("Generate an Excel document with data and optional template"),
		mcp.WithString("data", mcp.Description("JSON array of row arrays appended to the first sheet")),
		mcp.WithString("template", mcp.Description("Template workbook name in the templates directory")),
		mcp.WithString("output_name", mcp.Description("Output file name (default document.xlsx)")),
	), generateExcel(gen))

	s.AddTool(mcp.NewTool("document_generate_powerpoint",
		mcp.WithDescription("Generate a PowerPoint document with slides and optional template"),
		mcp.WithString("slides", mcp.Description("JSON array of objects with 'title' and 'content'")),
		mcp.WithString("template", mcp.Description("Template deck name in the templates directory")),
		mcp.WithString("output_name", mcp.Description("Output file name (default document.pptx)")),
	), generatePowerPoint(gen))

	s.AddTool(mcp.NewTool("document_generate_pdf",
		mcp.WithDescription("Generate a PDF document with text content"),
		mcp.WithString("content", mcp.Description("Text drawn line by line with automatic page breaks")),
		mcp.WithString("output_name", mcp.Description("Output file name (default document.pdf)")),
	), generatePDF(gen))
}

func generateWord(gen *document.Generator) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		content := req.GetString("content", "")
		template := req.GetString("template", "")
		outputName := req.GetString("output_name", "")
		rawPlaceholders := req.GetString("placeholders", "")

		if strings.TrimSpace(content) == "" && strings.TrimSpace(rawPlaceholders) == "" {
			return relay.ErrorResult(relay.Validationf("Content or placeholders are required")), nil
		}

		var placeholders map[string]string
		if strings.TrimSpace(rawPlaceholders) != "" {
			if err := json.Unmarshal([]byte(rawPlaceholders), &placeholders); err != nil {
				return relay.ErrorResult(relay.Validationf("Invalid JSON for placeholders")), nil
			}
		}

		path, err := gen.GenerateWord(template, outputName, content, placeholders)
		if err != nil {
			return relay.ErrorResult(classify("generate Word document", err)), nil
		}
		return relay.TextResult("✅ Word document generated successfully: " + path), nil
	}
}

func generateExcel(gen *document.Generator) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		data := req.GetString("data", "")
		template := req.GetString("template", "")
		outputName := req.GetString("output_name", "")

		if strings.TrimSpace(data) == "" {
			return relay.ErrorResult(relay.Validationf("Data is required (JSON format)")), nil
		}

		var raw []json.RawMessage
		if err := json.Unmarshal([]byte(data), &raw); err != nil {
			return relay.ErrorResult(relay.Validationf("Data must be a JSON array of arrays")), nil
		}

		// Scalar entries become one-cell rows.
		rows := make([][]any, 0, len(raw))
		for _, entry := range raw {
			var row []any
			if err := json.Unmarshal(entry, &row); err != nil {
				var scalar any
				if err := json.Unmarshal(entry, &scalar); err != nil {
					return relay.ErrorResult(relay.Validationf("Invalid JSON data")), nil
				}
				row = []any{scalar}
			}
			rows = append(rows, row)
		}

		path, err := gen.GenerateExcel(template, outputName, rows)
		if err != nil {
			return relay.ErrorResult(classify("generate Excel document", err)), nil
		}
		return relay.TextResult("✅ Excel document generated successfully: " + path), nil
	}
}

func generatePowerPoint(gen *document.Generator) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		slidesJSON := req.GetString("slides", "")
		template := req.GetString("template", "")
		outputName := req.GetString("output_name", "")

		if strings.TrimSpace(slidesJSON) == "" {
			return relay.ErrorResult(relay.Validationf("Slides data is required (JSON format)")), nil
		}

		var slides []document.Slide
		if err := json.Unmarshal([]byte(slidesJSON), &slides); err != nil {
			return relay.ErrorResult(relay.Validationf("Slides must be a JSON array of objects with 'title' and 'content'")), nil
		}

		path, err := gen.GeneratePowerPoint(template, outputName, slides)
		if err != nil {
			return relay.ErrorResult(classify("generate PowerPoint document", err)), nil
		}
		return relay.TextResult("✅ PowerPoint document generated successfully: " + path), nil
	}
}

func generatePDF(gen *document.Generator) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		content := req.GetString("content", "")
		outputName := req.GetString("output_name", "")

		if strings.TrimSpace(content) == "" {
			return relay.ErrorResult(relay.Validationf("Content is required")), nil
		}

		path, err := gen.GeneratePDF(outputName, content)
		if err != nil {
			return relay.ErrorResult(classify("generate PDF document", err)), nil
		}
		return relay.TextResult("✅ PDF document generated successfully: " + path), nil
	}
}

// classify maps generator failures onto the relay error model. A
// missing template is the caller's mistake; everything else is ours.
func classify(op string, err error) error {
	if errors.Is(err, document.ErrTemplateNotFound) {
		return relay.Validationf("%v", err)
	}
	return relay.Internal(op, err)
}
