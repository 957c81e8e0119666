// Package kb is the knowledge-base core: ingestion of text and web pages
// into embedded chunks, similarity search over them, and catalog, stats,
// setup, and health reporting. Every operation returns a discriminated
// Result; errors never escape the operation boundary.
package kb

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/quarrydocs/quarry/internal/chunk"
	"github.com/quarrydocs/quarry/internal/config"
	"github.com/quarrydocs/quarry/internal/embed"
	"github.com/quarrydocs/quarry/internal/log"
	"github.com/quarrydocs/quarry/internal/scrape"
	"github.com/quarrydocs/quarry/internal/vectorstore"
)

// minContentLength is the smallest text accepted for ingestion, applied to
// direct text before chunking and to scraped pages after extraction.
const minContentLength = 10

// VectorIndex is the storage capability the knowledge base consumes.
// *vectorstore.Store satisfies it.
type VectorIndex interface {
	Upsert(ctx context.Context, collection string, docs []vectorstore.Document) error
	Query(ctx context.Context, collection string, embedding []float32, k int, filter map[string]string) ([]vectorstore.Hit, error)
	AllMetadata(ctx context.Context, collection string, filter map[string]string) ([]string, error)
	ListCollections(ctx context.Context) ([]string, error)
	Count(ctx context.Context, collection string) (int, error)
	EnsureCollection(ctx context.Context, collection string) error
	DeleteCollection(ctx context.Context, collection string) error
}

// Embedder is the encoding capability the knowledge base consumes.
// *embed.Encoder satisfies it.
type Embedder interface {
	Encode(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// PageFetcher is the scraping capability URL ingestion consumes.
// *scrape.Scraper satisfies it.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (scrape.Page, error)
}

// KB holds the long-lived pipeline components. It is constructed once at
// process start and passed into every operation; there is no lazily cached
// process-global state.
//
// KB is safe for concurrent use: searches run concurrently with ingestion
// at last-committed-write visibility, and each ingestion is one store
// transaction.
type KB struct {
	cfg      *config.Config
	splitter *chunk.Splitter
	encoder  Embedder
	store    VectorIndex
	fetcher  PageFetcher
	logger   log.Logger

	closeStore func() error
}

// Open builds the full pipeline from configuration: splitter, embedding
// provider, vector store, and scraper. It fails fast with one error naming
// the missing capability instead of deferring to the first operation that
// needs it.
func Open(ctx context.Context, cfg *config.Config, logger log.Logger) (*KB, error) {
	if cfg == nil {
		return nil, config.ErrConfigNil
	}
	if logger == nil {
		logger = log.NewNop()
	}

	splitter, err := chunk.New(
		chunk.WithChunkSize(cfg.Chunking.ChunkSize),
		chunk.WithOverlap(cfg.Chunking.ChunkOverlap),
	)
	if err != nil {
		return nil, fmt.Errorf("text splitter unavailable: %w", err)
	}

	embedder, err := embed.Provide(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("embedding model unavailable: %w", err)
	}
	encoder, err := embed.NewEncoder(embedder, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("embedding model unavailable: %w", err)
	}

	store, err := vectorstore.Open(cfg.Storage.DatabasePath, logger)
	if err != nil {
		return nil, fmt.Errorf("vector store unavailable: %w", err)
	}

	scraper, err := scrape.New(cfg, logger)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("scraper unavailable: %w", err)
	}

	logger.Info("knowledge base opened",
		"database", cfg.Storage.DatabasePath,
		"model", cfg.Embedding.ModelName,
		"dimension", cfg.Embedding.EmbeddingDimension)

	return &KB{
		cfg:        cfg,
		splitter:   splitter,
		encoder:    encoder,
		store:      store,
		fetcher:    scraper,
		logger:     logger,
		closeStore: store.Close,
	}, nil
}

// New assembles a KB from pre-built components. Used by tests and by Setup,
// which constructs components one at a time to name the failing one.
func New(cfg *config.Config, splitter *chunk.Splitter, encoder Embedder, store VectorIndex, fetcher PageFetcher, logger log.Logger) (*KB, error) {
	if cfg == nil {
		return nil, config.ErrConfigNil
	}
	if splitter == nil {
		return nil, fmt.Errorf("splitter is required")
	}
	if encoder == nil {
		return nil, fmt.Errorf("encoder is required")
	}
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &KB{
		cfg:      cfg,
		splitter: splitter,
		encoder:  encoder,
		store:    store,
		fetcher:  fetcher,
		logger:   logger,
	}, nil
}

// Config returns the active configuration.
func (k *KB) Config() *config.Config { return k.cfg }

// Close releases the vector store and its lock.
func (k *KB) Close() error {
	if k.closeStore != nil {
		return k.closeStore()
	}
	return nil
}

// collectionOrDefault falls back to the configured default collection.
func (k *KB) collectionOrDefault(collection string) string {
	if collection == "" {
		return k.cfg.Storage.DefaultCollection
	}
	return collection
}

// chunkID derives a stable chunk identity from source, position, and
// content. Keying on source and index makes re-ingestion of the same
// source overwrite its previous chunks instead of accumulating duplicates;
// the content digest keeps distinct chunks from ever colliding.
func chunkID(source string, index int, text string) string {
	sum := sha256.Sum256([]byte(source + ":" + strconv.Itoa(index) + ":" + text))
	return "chunk_" + hex.EncodeToString(sum[:16])
}

// tokenCount approximates tokens as whitespace-separated words.
func tokenCount(text string) int {
	return len(strings.Fields(text))
}
