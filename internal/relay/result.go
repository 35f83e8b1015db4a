package relay

import (
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// Status markers prefixing every tool result. Clients key off these, so
// they are part of the tool contract.
const (
	MarkerOK      = "✅"
	MarkerWarning = "⚠️"
	MarkerError   = "❌"
)

// Status classifies a result string by its marker prefix.
type Status string

const (
	StatusSuccess Status = "success"
	StatusWarning Status = "warning"
	StatusError   Status = "error"
)

// StatusOf returns the status implied by the text's marker prefix.
// Unprefixed text counts as success, matching the original contract
// where only errors and warnings carry markers that demote the status.
func StatusOf(text string) Status {
	switch {
	case strings.HasPrefix(text, MarkerError):
		return StatusError
	case strings.HasPrefix(text, MarkerWarning):
		return StatusWarning
	default:
		return StatusSuccess
	}
}

// TextResult wraps a pre-formatted success string as an MCP result.
func TextResult(text string) *mcp.CallToolResult {
	return mcp.NewToolResultText(text)
}

// ErrorResult renders a tool failure as a ❌-prefixed text result. The
// MCP call itself succeeds; the failure travels in the content, which is
// what tool-calling clients display to the model.
func ErrorResult(err error) *mcp.CallToolResult {
	return mcp.NewToolResultText(FormatError(err))
}

// FormatError renders err with the error marker and a kind-specific
// preamble. This is the only place errors become user-facing text.
func FormatError(err error) string {
	var b strings.Builder
	b.WriteString(MarkerError + " ")
	switch KindOf(err) {
	case KindValidation:
		b.WriteString("Error: ")
	case KindNetwork:
		b.WriteString("Network Error: ")
	case KindTimeout:
		b.WriteString("Timeout: ")
	default:
		b.WriteString("Error: ")
	}
	b.WriteString(err.Error())
	return b.String()
}
