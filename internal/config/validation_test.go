package config

import (
	"errors"
	"testing"
)

// validConfig returns a configuration that passes Validate.
func validConfig() *Config {
	return &Config{
		Version: Version,
		Embedding: EmbeddingConfig{
			ModelName:           DefaultEmbeddingModel,
			ModelType:           ModelTypeGoogleGenAI,
			EmbeddingDimension:  DefaultDimension,
			NormalizeEmbeddings: true,
		},
		Chunking: ChunkingConfig{
			ChunkSize:    DefaultChunkSize,
			ChunkOverlap: DefaultChunkOverlap,
		},
		Storage: StorageConfig{
			DatabasePath:      "/tmp/kb.db",
			DefaultCollection: DefaultCollection,
		},
	}
}

func TestValidate_OK(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("Validate() on valid config = %v", err)
	}
}

func TestValidate_Nil(t *testing.T) {
	var cfg *Config
	if err := cfg.Validate(); !errors.Is(err, ErrConfigNil) {
		t.Errorf("Validate() on nil = %v, want ErrConfigNil", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{
			name:    "empty model name",
			mutate:  func(c *Config) { c.Embedding.ModelName = "" },
			wantErr: ErrInvalidModelName,
		},
		{
			name:    "unknown model type",
			mutate:  func(c *Config) { c.Embedding.ModelType = "sentence-transformers" },
			wantErr: ErrInvalidModelType,
		},
		{
			name: "ollama without host",
			mutate: func(c *Config) {
				c.Embedding.ModelType = ModelTypeOllama
				c.Embedding.OllamaHost = ""
			},
			wantErr: ErrInvalidOllamaHost,
		},
		{
			name:    "zero dimension",
			mutate:  func(c *Config) { c.Embedding.EmbeddingDimension = 0 },
			wantErr: ErrInvalidDimension,
		},
		{
			name:    "negative dimension",
			mutate:  func(c *Config) { c.Embedding.EmbeddingDimension = -5 },
			wantErr: ErrInvalidDimension,
		},
		{
			name:    "zero chunk size",
			mutate:  func(c *Config) { c.Chunking.ChunkSize = 0 },
			wantErr: ErrInvalidChunkSize,
		},
		{
			name:    "chunk size over max",
			mutate:  func(c *Config) { c.Chunking.ChunkSize = MaxChunkSize + 1 },
			wantErr: ErrInvalidChunkSize,
		},
		{
			name:    "negative overlap",
			mutate:  func(c *Config) { c.Chunking.ChunkOverlap = -1 },
			wantErr: ErrInvalidChunkOverlap,
		},
		{
			name: "overlap equals size",
			mutate: func(c *Config) {
				c.Chunking.ChunkSize = 100
				c.Chunking.ChunkOverlap = 100
			},
			wantErr: ErrInvalidChunkOverlap,
		},
		{
			name: "overlap exceeds size",
			mutate: func(c *Config) {
				c.Chunking.ChunkSize = 100
				c.Chunking.ChunkOverlap = 150
			},
			wantErr: ErrInvalidChunkOverlap,
		},
		{
			name:    "empty database path",
			mutate:  func(c *Config) { c.Storage.DatabasePath = "" },
			wantErr: ErrInvalidStoragePath,
		},
		{
			name:    "empty default collection",
			mutate:  func(c *Config) { c.Storage.DefaultCollection = "" },
			wantErr: ErrInvalidCollectionName,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
