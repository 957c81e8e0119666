// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (QUARRY_* runtime overrides)
//  2. Config file (<root>/kb_config.json)
//  3. Default values (sensible defaults for quick start)
//
// The configuration file is JSON and is written to disk with defaults on
// first run, so operators can inspect and edit the active settings. The
// knowledge-base root directory (default ~/.quarry) also holds the vector
// index database.
//
// Error handling uses sentinel errors for errors.Is checks; see
// validation.go for the range checks applied on every Load.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Version is the configuration schema version persisted in kb_config.json.
const Version = "1.0.0"

// ConfigFileName is the name of the persisted configuration file.
const ConfigFileName = "kb_config.json"

// Embedding provider identifiers used in EmbeddingConfig.ModelType.
const (
	ModelTypeGoogleGenAI = "googlegenai"
	ModelTypeOllama      = "ollama"
)

// Default values written on first run.
const (
	DefaultEmbeddingModel = "gemini-embedding-001"
	DefaultDimension      = 768
	DefaultChunkSize      = 1000
	DefaultChunkOverlap   = 100
	DefaultCollection     = "default"
	DefaultOllamaHost     = "http://localhost:11434"
)

// EmbeddingConfig selects and shapes the embedding model.
type EmbeddingConfig struct {
	ModelName           string `mapstructure:"model_name" json:"model_name"`
	ModelType           string `mapstructure:"model_type" json:"model_type"`
	EmbeddingDimension  int    `mapstructure:"embedding_dimension" json:"embedding_dimension"`
	NormalizeEmbeddings bool   `mapstructure:"normalize_embeddings" json:"normalize_embeddings"`

	// OllamaHost is only used when ModelType is "ollama".
	OllamaHost string `mapstructure:"ollama_host" json:"ollama_host,omitempty"`

	// RequestsPerMinute throttles calls to the embedding API. 0 disables
	// throttling.
	RequestsPerMinute int `mapstructure:"requests_per_minute" json:"requests_per_minute,omitempty"`
}

// ChunkingConfig shapes the text splitter.
type ChunkingConfig struct {
	ChunkSize    int `mapstructure:"chunk_size" json:"chunk_size"`
	ChunkOverlap int `mapstructure:"chunk_overlap" json:"chunk_overlap"`
}

// StorageConfig locates the persistent vector index.
type StorageConfig struct {
	DatabasePath      string `mapstructure:"database_path" json:"database_path"`
	DefaultCollection string `mapstructure:"default_collection" json:"default_collection"`
}

// ScraperConfig holds web scraper settings for URL ingestion.
type ScraperConfig struct {
	// Parallelism is max concurrent requests per domain (default: 2)
	Parallelism int `mapstructure:"parallelism" json:"parallelism"`
	// DelayMs is delay between requests in milliseconds (default: 1000)
	DelayMs int `mapstructure:"delay_ms" json:"delay_ms"`
	// TimeoutMs is request timeout in milliseconds (default: 30000)
	TimeoutMs int `mapstructure:"timeout_ms" json:"timeout_ms"`
}

// Config stores application configuration. One instance exists per process;
// it is read-mostly after Load.
type Config struct {
	Version   string          `mapstructure:"version" json:"version"`
	Embedding EmbeddingConfig `mapstructure:"embedding" json:"embedding"`
	Chunking  ChunkingConfig  `mapstructure:"chunking" json:"chunking"`
	Storage   StorageConfig   `mapstructure:"storage" json:"storage"`
	Scraper   ScraperConfig   `mapstructure:"scraper" json:"scraper"`

	// Root is the knowledge-base root directory holding the config file and
	// the database. Not serialized; derived at Load time.
	Root string `mapstructure:"-" json:"-"`
}

// Load loads configuration from the given root directory, creating the
// directory and a default config file when absent. An empty root selects
// ~/.quarry (or $QUARRY_HOME when set).
// Priority: environment variables > configuration file > default values.
func Load(root string) (*Config, error) {
	root, err := resolveRoot(root)
	if err != nil {
		return nil, err
	}

	// Ensure directory exists (0750 keeps the index private to the user)
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("creating knowledge-base directory: %w", err)
	}

	v := viper.New()
	v.SetConfigName(strings.TrimSuffix(ConfigFileName, ".json"))
	v.SetConfigType("json")
	v.AddConfigPath(root)

	setDefaults(v, root)

	v.SetEnvPrefix("QUARRY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"search_path", root, "config_name", ConfigFileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}
	cfg.Root = root

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	// Persist defaults on first run so operators can inspect the active
	// settings, matching the documented first-run behavior.
	if _, statErr := os.Stat(cfg.Path()); os.IsNotExist(statErr) {
		if err := cfg.Save(); err != nil {
			return nil, err
		}
	}

	return &cfg, nil
}

// resolveRoot expands the knowledge-base root directory.
func resolveRoot(root string) (string, error) {
	if root != "" {
		return root, nil
	}
	if env := os.Getenv("QUARRY_HOME"); env != "" {
		return env, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting user home directory: %w", err)
	}
	return filepath.Join(home, ".quarry"), nil
}

// Default returns a configuration populated with all default values, rooted
// at the given directory. It does not touch the filesystem.
func Default(root string) *Config {
	return &Config{
		Version: Version,
		Embedding: EmbeddingConfig{
			ModelName:           DefaultEmbeddingModel,
			ModelType:           ModelTypeGoogleGenAI,
			EmbeddingDimension:  DefaultDimension,
			NormalizeEmbeddings: true,
			OllamaHost:          DefaultOllamaHost,
		},
		Chunking: ChunkingConfig{
			ChunkSize:    DefaultChunkSize,
			ChunkOverlap: DefaultChunkOverlap,
		},
		Storage: StorageConfig{
			DatabasePath:      filepath.Join(root, "kb.db"),
			DefaultCollection: DefaultCollection,
		},
		Scraper: ScraperConfig{
			Parallelism: 2,
			DelayMs:     1000,
			TimeoutMs:   30000,
		},
		Root: root,
	}
}

// setDefaults sets all default configuration values.
func setDefaults(v *viper.Viper, root string) {
	v.SetDefault("version", Version)

	// Embedding defaults
	v.SetDefault("embedding.model_name", DefaultEmbeddingModel)
	v.SetDefault("embedding.model_type", ModelTypeGoogleGenAI)
	v.SetDefault("embedding.embedding_dimension", DefaultDimension)
	v.SetDefault("embedding.normalize_embeddings", true)
	v.SetDefault("embedding.ollama_host", DefaultOllamaHost)
	v.SetDefault("embedding.requests_per_minute", 0)

	// Chunking defaults
	v.SetDefault("chunking.chunk_size", DefaultChunkSize)
	v.SetDefault("chunking.chunk_overlap", DefaultChunkOverlap)

	// Storage defaults
	v.SetDefault("storage.database_path", filepath.Join(root, "kb.db"))
	v.SetDefault("storage.default_collection", DefaultCollection)

	// Scraper defaults
	v.SetDefault("scraper.parallelism", 2)
	v.SetDefault("scraper.delay_ms", 1000)
	v.SetDefault("scraper.timeout_ms", 30000)
}

// Path returns the location of the persisted configuration file.
func (c *Config) Path() string {
	return filepath.Join(c.Root, ConfigFileName)
}

// Save writes the configuration to <root>/kb_config.json.
func (c *Config) Save() error {
	data, err := json.MarshalIndent(c, "", "    ")
	if err != nil {
		return fmt.Errorf("encoding configuration: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(c.Path(), data, 0o600); err != nil {
		return fmt.Errorf("writing configuration: %w", err)
	}
	return nil
}
