package relay

import (
	"context"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
)

// redactedValue replaces sensitive argument values in log output.
const redactedValue = "***REDACTED***"

// LoggingMiddleware returns a tool middleware that logs start, finish,
// duration, and status for every tool call. Argument maps are logged at
// debug level with password/secret/token values redacted.
func LoggingMiddleware(logger zerolog.Logger) server.ToolHandlerMiddleware {
	return func(next server.ToolHandlerFunc) server.ToolHandlerFunc {
		return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			tool := req.Params.Name
			start := time.Now()

			logger.Info().Str("tool", tool).Msg("tool start")
			logger.Debug().
				Str("event", "tool_start").
				Str("tool", tool).
				Interface("arguments", RedactArguments(req.GetArguments())).
				Msg("tool arguments")

			result, err := next(ctx, req)
			duration := time.Since(start)

			status := StatusSuccess
			switch {
			case err != nil:
				status = StatusError
			case result != nil:
				status = StatusOf(firstText(result))
			}

			evt := logger.Info()
			if err != nil {
				evt = logger.Error().Err(err)
			}
			evt.Str("tool", tool).
				Str("status", string(status)).
				Dur("duration", duration).
				Msg("tool finish")

			logger.Debug().
				Str("event", "tool_finish").
				Str("tool", tool).
				Str("status", string(status)).
				Float64("duration_sec", duration.Seconds()).
				Msg("tool finish details")

			return result, err
		}
	}
}

// RedactArguments returns a copy of args with sensitive values masked.
// A key is sensitive when it contains password, secret, or token.
func RedactArguments(args map[string]any) map[string]any {
	if args == nil {
		return nil
	}
	safe := make(map[string]any, len(args))
	for k, v := range args {
		if isSensitiveKey(k) {
			safe[k] = redactedValue
		} else {
			safe[k] = v
		}
	}
	return safe
}

func isSensitiveKey(key string) bool {
	k := strings.ToLower(key)
	return strings.Contains(k, "password") ||
		strings.Contains(k, "secret") ||
		strings.Contains(k, "token")
}

// firstText returns the first text content of a result, or "".
func firstText(result *mcp.CallToolResult) string {
	for _, c := range result.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}
