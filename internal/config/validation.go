package config

import (
	"errors"
	"fmt"
	"slices"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrInvalidModelName indicates the embedding model name is invalid.
	ErrInvalidModelName = errors.New("invalid embedding model name")

	// ErrInvalidModelType indicates the embedding provider is not supported.
	ErrInvalidModelType = errors.New("invalid embedding model type")

	// ErrInvalidDimension indicates the embedding dimension is out of range.
	ErrInvalidDimension = errors.New("invalid embedding dimension")

	// ErrInvalidChunkSize indicates the chunk size is out of range.
	ErrInvalidChunkSize = errors.New("invalid chunk size")

	// ErrInvalidChunkOverlap indicates the chunk overlap is out of range.
	ErrInvalidChunkOverlap = errors.New("invalid chunk overlap")

	// ErrInvalidStoragePath indicates the database path is invalid.
	ErrInvalidStoragePath = errors.New("invalid storage path")

	// ErrInvalidCollectionName indicates the default collection name is invalid.
	ErrInvalidCollectionName = errors.New("invalid collection name")

	// ErrInvalidOllamaHost indicates the Ollama host is invalid.
	ErrInvalidOllamaHost = errors.New("invalid Ollama host")
)

// MaxChunkSize bounds chunk_size; larger chunks exceed what embedding
// models accept without truncation.
const MaxChunkSize = 100_000

// Validate validates configuration values.
// Returns sentinel errors that can be checked with errors.Is().
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	// Embedding configuration
	if c.Embedding.ModelName == "" {
		return fmt.Errorf("%w: model_name cannot be empty", ErrInvalidModelName)
	}

	validTypes := []string{ModelTypeGoogleGenAI, ModelTypeOllama}
	if !slices.Contains(validTypes, c.Embedding.ModelType) {
		return fmt.Errorf("%w: must be one of %v, got %q",
			ErrInvalidModelType, validTypes, c.Embedding.ModelType)
	}

	if c.Embedding.ModelType == ModelTypeOllama && c.Embedding.OllamaHost == "" {
		return fmt.Errorf("%w: ollama_host cannot be empty when model_type is %q",
			ErrInvalidOllamaHost, ModelTypeOllama)
	}

	if c.Embedding.EmbeddingDimension < 1 {
		return fmt.Errorf("%w: must be positive, got %d",
			ErrInvalidDimension, c.Embedding.EmbeddingDimension)
	}

	// Chunking configuration. overlap >= size is a configuration error, not
	// a runtime one: it is rejected once here, before any pipeline runs.
	if c.Chunking.ChunkSize < 1 || c.Chunking.ChunkSize > MaxChunkSize {
		return fmt.Errorf("%w: must be between 1 and %d, got %d",
			ErrInvalidChunkSize, MaxChunkSize, c.Chunking.ChunkSize)
	}

	if c.Chunking.ChunkOverlap < 0 {
		return fmt.Errorf("%w: must not be negative, got %d",
			ErrInvalidChunkOverlap, c.Chunking.ChunkOverlap)
	}

	if c.Chunking.ChunkOverlap >= c.Chunking.ChunkSize {
		return fmt.Errorf("%w: chunk_overlap (%d) must be smaller than chunk_size (%d)",
			ErrInvalidChunkOverlap, c.Chunking.ChunkOverlap, c.Chunking.ChunkSize)
	}

	// Storage configuration
	if c.Storage.DatabasePath == "" {
		return fmt.Errorf("%w: database_path cannot be empty", ErrInvalidStoragePath)
	}

	if c.Storage.DefaultCollection == "" {
		return fmt.Errorf("%w: default_collection cannot be empty", ErrInvalidCollectionName)
	}

	return nil
}
