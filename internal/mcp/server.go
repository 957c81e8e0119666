// Package mcp exposes the knowledge base as MCP tools over the official
// go-sdk. Operation results are already discriminated, so the handlers only
// translate them into CallToolResult payloads.
package mcp

import (
	"context"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/quarrydocs/quarry/internal/kb"
	"github.com/quarrydocs/quarry/internal/log"
)

// Server wraps the MCP SDK server around a knowledge base.
type Server struct {
	mcpServer *mcp.Server
	kb        *kb.KB
	logger    log.Logger
	name      string
	version   string
}

// Config holds MCP server configuration.
type Config struct {
	Name    string
	Version string
	KB      *kb.KB
	Logger  log.Logger
}

// NewServer creates the MCP server and registers all knowledge-base tools.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("server name is required")
	}
	if cfg.Version == "" {
		return nil, fmt.Errorf("server version is required")
	}
	if cfg.KB == nil {
		return nil, fmt.Errorf("knowledge base is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = log.NewNop()
	}

	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, nil)

	s := &Server{
		mcpServer: mcpServer,
		kb:        cfg.KB,
		logger:    cfg.Logger,
		name:      cfg.Name,
		version:   cfg.Version,
	}
	if err := s.registerTools(); err != nil {
		return nil, fmt.Errorf("registering tools: %w", err)
	}
	return s, nil
}

// Run starts the server on the given transport. It blocks until the
// context is canceled or the transport closes.
func (s *Server) Run(ctx context.Context, transport mcp.Transport) error {
	s.logger.Info("MCP server starting", "name", s.name, "version", s.version)
	return s.mcpServer.Run(ctx, transport)
}

// AddTextInput is the input schema for add_text_to_kb.
type AddTextInput struct {
	Text       string            `json:"text" jsonschema:"The text content to add to the knowledge base (minimum 10 characters)"`
	SourceName string            `json:"source_name" jsonschema:"A label identifying where this text came from"`
	Collection string            `json:"collection,omitempty" jsonschema:"Target collection (default: the configured default collection)"`
	Metadata   map[string]string `json:"metadata,omitempty" jsonschema:"Optional extra metadata attached to every chunk"`
}

// AddURLInput is the input schema for add_url_to_kb.
type AddURLInput struct {
	URL        string            `json:"url" jsonschema:"The http or https URL to scrape and ingest"`
	Collection string            `json:"collection,omitempty" jsonschema:"Target collection (default: the configured default collection)"`
	Metadata   map[string]string `json:"metadata,omitempty" jsonschema:"Optional extra metadata attached to every chunk"`
}

// SearchInput is the input schema for search_kb.
type SearchInput struct {
	Query           string `json:"query" jsonschema:"The search query (minimum 3 characters)"`
	Collection      string `json:"collection,omitempty" jsonschema:"Collection to search (default: the configured default collection)"`
	Limit           int    `json:"limit,omitempty" jsonschema:"Maximum results to return, 1-50 (default: 10)"`
	IncludeMetadata *bool  `json:"include_metadata,omitempty" jsonschema:"Include chunk provenance metadata in results (default: true)"`
}

// ListSourcesInput is the input schema for list_kb_sources.
type ListSourcesInput struct {
	Collection string `json:"collection,omitempty" jsonschema:"Collection to list sources for (default: the configured default collection)"`
}

// SetupInput is the input schema for setup_knowledge_base.
type SetupInput struct{}

// HealthInput is the input schema for get_kb_health.
type HealthInput struct{}

// StatsInput is the input schema for get_kb_stats.
type StatsInput struct{}

func (s *Server) registerTools() error {
	if err := register(s, "add_text_to_kb",
		"Add text content to the knowledge base. The text is chunked, embedded, and stored for semantic search.",
		func(ctx context.Context, in AddTextInput) kb.Result {
			return s.kb.AddText(ctx, in.Text, in.SourceName, in.Collection, in.Metadata)
		}); err != nil {
		return err
	}

	if err := register(s, "add_url_to_kb",
		"Scrape a web page and add its readable content to the knowledge base.",
		func(ctx context.Context, in AddURLInput) kb.Result {
			return s.kb.AddURL(ctx, in.URL, in.Collection, in.Metadata)
		}); err != nil {
		return err
	}

	if err := register(s, "search_kb",
		"Search the knowledge base for content semantically similar to the query. Returns ranked results with similarity scores.",
		func(ctx context.Context, in SearchInput) kb.Result {
			limit := in.Limit
			if limit == 0 {
				limit = kb.DefaultSearchLimit
			}
			includeMeta := true
			if in.IncludeMetadata != nil {
				includeMeta = *in.IncludeMetadata
			}
			return s.kb.Search(ctx, in.Query, in.Collection, limit, includeMeta)
		}); err != nil {
		return err
	}

	if err := register(s, "list_kb_sources",
		"List the sources stored in a collection with per-source chunk counts and ingestion times.",
		func(ctx context.Context, in ListSourcesInput) kb.Result {
			return s.kb.ListSources(ctx, in.Collection)
		}); err != nil {
		return err
	}

	if err := register(s, "get_kb_stats",
		"Report aggregate statistics across all collections plus the active configuration.",
		func(ctx context.Context, _ StatsInput) kb.Result {
			return s.kb.Stats(ctx)
		}); err != nil {
		return err
	}

	if err := register(s, "setup_knowledge_base",
		"Verify the knowledge base end to end: configuration, chunking, embedding, storage, and search, using a disposable test collection.",
		func(ctx context.Context, _ SetupInput) kb.Result {
			return s.kb.Setup(ctx)
		}); err != nil {
		return err
	}

	if err := register(s, "get_kb_health",
		"Report the status of every knowledge-base component without writing anything.",
		func(ctx context.Context, _ HealthInput) kb.Result {
			return s.kb.Health(ctx)
		}); err != nil {
		return err
	}

	return nil
}

// register infers the input schema from In and wires a kb operation as an
// MCP tool. Operations never return Go errors past their boundary, so the
// handler only maps the structured Result.
func register[In any](s *Server, name, description string, op func(context.Context, In) kb.Result) error {
	inputSchema, err := jsonschema.For[In](nil)
	if err != nil {
		return fmt.Errorf("building schema for %s: %w", name, err)
	}

	tool := &mcp.Tool{
		Name:        name,
		Description: description,
		InputSchema: inputSchema,
	}

	mcp.AddTool(s.mcpServer, tool, func(ctx context.Context, req *mcp.CallToolRequest, in In) (*mcp.CallToolResult, any, error) {
		result := op(ctx, in)
		if result.Status == kb.StatusError {
			s.logger.Warn("tool returned error",
				"tool", name, "code", result.Error.Code, "message", result.Error.Message)
		}
		return resultToMCP(result, s.logger), nil, nil
	})
	return nil
}
