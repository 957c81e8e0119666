package kb

import "encoding/json"

// Status discriminates operation results. Every public operation returns a
// structured Result instead of letting errors escape past its boundary, so
// the transport layer never needs error handling of its own.
type Status string

const (
	StatusSuccess   Status = "success"
	StatusError     Status = "error"
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
)

// ErrorCode classifies operation failures for the caller.
type ErrorCode string

const (
	// ErrCodeValidation is the caller's fault: bad input, nothing written.
	ErrCodeValidation ErrorCode = "ValidationError"
	// ErrCodeDependency means a required component or credential is
	// unavailable; the message carries a remediation hint.
	ErrCodeDependency ErrorCode = "DependencyError"
	// ErrCodeNotFound means the referenced collection does not exist.
	ErrCodeNotFound ErrorCode = "NotFound"
	// ErrCodeUpstream means the external page fetch failed or returned
	// unusable content.
	ErrCodeUpstream ErrorCode = "UpstreamError"
	// ErrCodeInternal means the embedding or storage backend failed during
	// an otherwise valid operation.
	ErrCodeInternal ErrorCode = "InternalError"
)

// Error is the structured error carried inside an error Result.
type Error struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// Result is the discriminated outcome of every knowledge-base operation.
// On success Data holds the operation's report; on error Error is set.
type Result struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   *Error `json:"error,omitempty"`
}

func errorResult(code ErrorCode, message string, details map[string]any) Result {
	return Result{
		Status: StatusError,
		Error:  &Error{Code: code, Message: message, Details: details},
	}
}

// SourceType labels the provenance of an ingested source.
const (
	SourceTypeText    = "text"
	SourceTypeWebpage = "webpage"
)

// ChunkMetadata is the provenance record attached to every stored chunk.
// The reserved fields are fixed struct members, so caller-supplied extra
// metadata can never overwrite them.
type ChunkMetadata struct {
	SourceType    string `json:"source_type"`
	SourceName    string `json:"source_name,omitempty"`
	SourceURL     string `json:"source_url,omitempty"`
	Timestamp     string `json:"timestamp"`
	ChunkIndex    int    `json:"chunk_index"`
	ChunkLength   int    `json:"chunk_length"`
	TokenCount    int    `json:"token_count"`
	Collection    string `json:"collection"`
	TotalChunks   int    `json:"total_chunks"`
	ContentLength int    `json:"content_length"`

	// Extra holds caller-supplied metadata. Keys colliding with reserved
	// field names are dropped at ingestion time.
	Extra map[string]string `json:"extra,omitempty"`
}

// Source returns the grouping identity of the chunk's source: the URL when
// present, the user-supplied name otherwise.
func (m ChunkMetadata) Source() string {
	if m.SourceURL != "" {
		return m.SourceURL
	}
	return m.SourceName
}

// reservedMetadataKeys are the JSON names of ChunkMetadata's fixed fields.
// Caller-supplied extras with these keys are silently discarded.
var reservedMetadataKeys = map[string]bool{
	"source_type":    true,
	"source_name":    true,
	"source_url":     true,
	"timestamp":      true,
	"chunk_index":    true,
	"chunk_length":   true,
	"token_count":    true,
	"collection":     true,
	"total_chunks":   true,
	"content_length": true,
	"extra":          true,
}

// sanitizeExtra filters caller metadata down to non-reserved keys.
func sanitizeExtra(extra map[string]string) map[string]string {
	if len(extra) == 0 {
		return nil
	}
	out := make(map[string]string, len(extra))
	for k, v := range extra {
		if !reservedMetadataKeys[k] {
			out[k] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func (m ChunkMetadata) marshal() (string, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func unmarshalMetadata(raw string) (ChunkMetadata, error) {
	var m ChunkMetadata
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return ChunkMetadata{}, err
	}
	return m, nil
}

// IngestReport is the success payload of AddText and AddURL.
type IngestReport struct {
	Collection      string   `json:"collection"`
	ChunksAdded     int      `json:"chunks_added"`
	TotalCharacters int      `json:"total_characters"`
	SampleChunkIDs  []string `json:"sample_chunk_ids"`
	Source          string   `json:"source"`
	SourceType      string   `json:"source_type"`
}

// SearchResultMetadata is the per-hit metadata included when the caller
// asks for it.
type SearchResultMetadata struct {
	Source      string            `json:"source"`
	SourceType  string            `json:"source_type"`
	Timestamp   string            `json:"timestamp,omitempty"`
	ChunkIndex  int               `json:"chunk_index"`
	ChunkLength int               `json:"chunk_length"`
	TokenCount  int               `json:"token_count"`
	Extra       map[string]string `json:"extra,omitempty"`
}

// SearchResult is one ranked hit.
type SearchResult struct {
	Rank            int                   `json:"rank"`
	Content         string                `json:"content"`
	SimilarityScore float64               `json:"similarity_score"`
	Metadata        *SearchResultMetadata `json:"metadata,omitempty"`
}

// SearchReport is the success payload of Search.
type SearchReport struct {
	Query      string         `json:"query"`
	Collection string         `json:"collection"`
	Results    []SearchResult `json:"results"`
	Count      int            `json:"count"`
}

// SourceInfo is one entry of the per-collection source catalog.
type SourceInfo struct {
	Source          string `json:"source"`
	SourceType      string `json:"source_type"`
	ChunkCount      int    `json:"chunk_count"`
	TotalCharacters int    `json:"total_characters"`
	TotalTokens     int    `json:"total_tokens"`
	FirstAdded      string `json:"first_added,omitempty"`
	LastUpdated     string `json:"last_updated,omitempty"`
}

// SourcesSummary aggregates the catalog of one collection.
type SourcesSummary struct {
	MostChunks         string         `json:"most_chunks,omitempty"`
	AvgChunksPerSource float64        `json:"avg_chunks_per_source"`
	SourceTypes        map[string]int `json:"source_types"`
}

// SourcesReport is the success payload of ListSources.
type SourcesReport struct {
	Collection   string         `json:"collection"`
	Sources      []SourceInfo   `json:"sources"`
	TotalSources int            `json:"total_sources"`
	TotalChunks  int            `json:"total_chunks"`
	Summary      SourcesSummary `json:"summary"`
}

// CollectionStats is the per-collection slice of the stats report.
type CollectionStats struct {
	ChunkCount  int            `json:"chunk_count"`
	SourceCount int            `json:"source_count"`
	SourceTypes map[string]int `json:"source_types"`
}

// StatsOverview aggregates across all collections.
type StatsOverview struct {
	TotalCollections int            `json:"total_collections"`
	TotalChunks      int            `json:"total_chunks"`
	TotalSources     int            `json:"total_sources"`
	SourceTypes      map[string]int `json:"source_types"`
}

// StatsConfiguration echoes the active settings relevant to stored data.
type StatsConfiguration struct {
	EmbeddingModel string `json:"embedding_model"`
	ChunkSize      int    `json:"chunk_size"`
	ChunkOverlap   int    `json:"chunk_overlap"`
	DatabasePath   string `json:"database_path"`
}

// StatsPerformance carries derived metrics.
type StatsPerformance struct {
	AvgChunksPerCollection  float64 `json:"avg_chunks_per_collection"`
	AvgSourcesPerCollection float64 `json:"avg_sources_per_collection"`
}

// StatsReport is the success payload of Stats.
type StatsReport struct {
	Overview      StatsOverview              `json:"overview"`
	Collections   map[string]CollectionStats `json:"collections"`
	Configuration StatsConfiguration         `json:"configuration"`
	Performance   StatsPerformance           `json:"performance_metrics"`
}

// ComponentStatus is one component's state inside setup and health reports.
type ComponentStatus struct {
	Status  string         `json:"status"`
	Details map[string]any `json:"details,omitempty"`
}

// SetupReport is the success payload of Setup.
type SetupReport struct {
	ConfigPath  string                     `json:"config_path"`
	Components  map[string]ComponentStatus `json:"components"`
	TestResults map[string]string          `json:"test_results"`
}

// HealthReport is the payload of Health, under both healthy and unhealthy
// statuses.
type HealthReport struct {
	Components map[string]ComponentStatus `json:"components"`
	Timestamp  string                     `json:"timestamp"`
}
