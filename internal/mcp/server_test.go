package mcp

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/quarrydocs/quarry/internal/kb"
	"github.com/quarrydocs/quarry/internal/log"
)

func TestNewServer_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "missing name", cfg: Config{Version: "1.0.0"}},
		{name: "missing version", cfg: Config{Name: "quarry"}},
		{name: "missing knowledge base", cfg: Config{Name: "quarry", Version: "1.0.0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewServer(tt.cfg); err == nil {
				t.Error("NewServer() expected error, got nil")
			}
		})
	}
}

func textContent(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) != 1 {
		t.Fatalf("result has %d content items, want 1", len(result.Content))
	}
	text, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("content type = %T, want *mcp.TextContent", result.Content[0])
	}
	return text.Text
}

func TestResultToMCP_Success(t *testing.T) {
	result := kb.Result{
		Status:  kb.StatusSuccess,
		Message: "added 3 chunks",
		Data: kb.IngestReport{
			Collection:  "docs",
			ChunksAdded: 3,
		},
	}

	out := resultToMCP(result, log.NewNop())
	if out.IsError {
		t.Fatal("IsError = true for success result")
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(textContent(t, out)), &payload); err != nil {
		t.Fatalf("content is not valid JSON: %v", err)
	}
	if payload["status"] != "success" {
		t.Errorf("payload status = %v, want success", payload["status"])
	}
	data, ok := payload["data"].(map[string]any)
	if !ok {
		t.Fatalf("payload data type = %T, want object", payload["data"])
	}
	if data["chunks_added"] != float64(3) {
		t.Errorf("data chunks_added = %v, want 3", data["chunks_added"])
	}
}

func TestResultToMCP_Error(t *testing.T) {
	result := kb.Result{
		Status: kb.StatusError,
		Error: &kb.Error{
			Code:    kb.ErrCodeNotFound,
			Message: `collection "missing" does not exist`,
			Details: map[string]any{"available_collections": []string{"docs"}},
		},
	}

	out := resultToMCP(result, log.NewNop())
	if !out.IsError {
		t.Fatal("IsError = false for error result")
	}

	text := textContent(t, out)
	if !strings.Contains(text, "[NotFound]") {
		t.Errorf("error text %q missing the error code", text)
	}
	if !strings.Contains(text, "available_collections") {
		t.Errorf("error text %q missing the recovery details", text)
	}
}

func TestResultToMCP_HealthStatus(t *testing.T) {
	result := kb.Result{
		Status: kb.StatusHealthy,
		Data:   kb.HealthReport{Timestamp: "2026-01-01T00:00:00Z"},
	}

	out := resultToMCP(result, log.NewNop())
	if out.IsError {
		t.Fatal("IsError = true for healthy result")
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(textContent(t, out)), &payload); err != nil {
		t.Fatalf("content is not valid JSON: %v", err)
	}
	if payload["status"] != "healthy" {
		t.Errorf("payload status = %v, want healthy", payload["status"])
	}
}
