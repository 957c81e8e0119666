package mcp

import (
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/quarrydocs/quarry/internal/kb"
	"github.com/quarrydocs/quarry/internal/log"
)

// resultToMCP converts an operation Result to a CallToolResult. Errors keep
// their code and message; details are limited to the structured fields the
// operation chose to expose, never internals.
func resultToMCP(result kb.Result, logger log.Logger) *mcp.CallToolResult {
	if logger == nil {
		logger = log.NewNop()
	}

	if result.Status == kb.StatusError {
		errorText := fmt.Sprintf("[%s] %s", result.Error.Code, result.Error.Message)
		if len(result.Error.Details) > 0 {
			detailsJSON, err := json.Marshal(result.Error.Details)
			if err != nil {
				logger.Warn("marshaling error details", "error", err)
			} else {
				errorText += fmt.Sprintf("\nDetails: %s", string(detailsJSON))
			}
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: errorText}},
			IsError: true,
		}
	}

	return dataToMCP(result)
}

// dataToMCP marshals a success result to JSON text content. All data
// becomes JSON; clients parse it.
func dataToMCP(result kb.Result) *mcp.CallToolResult {
	payload := map[string]any{"status": result.Status}
	if result.Message != "" {
		payload["message"] = result.Message
	}
	if result.Data != nil {
		payload["data"] = result.Data
	}

	b, err := json.Marshal(payload)
	if err != nil {
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: "internal marshal error"}},
			IsError: true,
		}
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(b)}},
	}
}
