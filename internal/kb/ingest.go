package kb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/quarrydocs/quarry/internal/vectorstore"
)

// sampleIDCount is how many chunk IDs the ingestion report includes.
const sampleIDCount = 5

// AddText ingests raw text under a user-supplied source name. The pipeline
// is validate, chunk, embed, persist: validation failures write nothing,
// and persistence is one store transaction, so a failed call leaves no
// partial chunk set behind.
func (k *KB) AddText(ctx context.Context, text, sourceName, collection string, extra map[string]string) Result {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) < minContentLength {
		return errorResult(ErrCodeValidation,
			fmt.Sprintf("text must be at least %d characters, got %d", minContentLength, len(trimmed)),
			nil)
	}
	if strings.TrimSpace(sourceName) == "" {
		return errorResult(ErrCodeValidation, "source_name is required", nil)
	}

	collection = k.collectionOrDefault(collection)

	meta := ChunkMetadata{
		SourceType: SourceTypeText,
		SourceName: sourceName,
	}
	return k.ingest(ctx, trimmed, meta, collection, extra)
}

// AddURL fetches a web page and ingests its readable text. A fetch failure
// and a page with no usable content are distinct upstream errors.
func (k *KB) AddURL(ctx context.Context, url, collection string, extra map[string]string) Result {
	if k.fetcher == nil {
		return errorResult(ErrCodeDependency,
			"web scraper is not configured; URL ingestion is unavailable", nil)
	}
	if err := validateIngestURL(url); err != nil {
		return errorResult(ErrCodeValidation, err.Error(), nil)
	}

	collection = k.collectionOrDefault(collection)

	page, err := k.fetcher.Fetch(ctx, url)
	if err != nil {
		k.logger.Error("page fetch failed", "url", url, "error", err)
		return errorResult(ErrCodeUpstream,
			fmt.Sprintf("failed to scrape %s: %v", url, err), nil)
	}

	text := strings.TrimSpace(page.Text)
	if len(text) < minContentLength {
		return errorResult(ErrCodeUpstream,
			fmt.Sprintf("no meaningful content extracted from %s", url), nil)
	}

	meta := ChunkMetadata{
		SourceType: SourceTypeWebpage,
		SourceURL:  page.URL,
		SourceName: page.Title,
	}
	return k.ingest(ctx, text, meta, collection, extra)
}

func validateIngestURL(url string) error {
	if strings.TrimSpace(url) == "" {
		return fmt.Errorf("url is required")
	}
	return nil
}

// ingest runs chunk, embed, persist for pre-validated content. base carries
// the source identity; per-chunk positional fields are filled in here.
func (k *KB) ingest(ctx context.Context, text string, base ChunkMetadata, collection string, extra map[string]string) Result {
	chunks := k.splitter.Split(text)
	if len(chunks) == 0 {
		return errorResult(ErrCodeInternal,
			"chunking produced no chunks for non-empty text", nil)
	}

	embeddings, err := k.encoder.Encode(ctx, chunks)
	if err != nil {
		k.logger.Error("embedding failed",
			"source", base.Source(), "chunks", len(chunks), "error", err)
		return errorResult(ErrCodeInternal,
			fmt.Sprintf("embedding failed: %v", err), nil)
	}

	source := base.Source()
	now := time.Now().UTC().Format(time.RFC3339)
	cleanExtra := sanitizeExtra(extra)

	docs := make([]vectorstore.Document, len(chunks))
	for i, c := range chunks {
		meta := base
		meta.Timestamp = now
		meta.ChunkIndex = i
		meta.ChunkLength = len(c)
		meta.TokenCount = tokenCount(c)
		meta.Collection = collection
		meta.TotalChunks = len(chunks)
		meta.ContentLength = len(text)
		meta.Extra = cleanExtra

		raw, err := meta.marshal()
		if err != nil {
			return errorResult(ErrCodeInternal,
				fmt.Sprintf("encoding chunk metadata: %v", err), nil)
		}
		docs[i] = vectorstore.Document{
			ID:        chunkID(source, i, c),
			Content:   c,
			Metadata:  raw,
			Embedding: embeddings[i],
		}
	}

	if err := k.store.Upsert(ctx, collection, docs); err != nil {
		k.logger.Error("persisting chunks failed",
			"collection", collection, "source", source, "error", err)
		return errorResult(ErrCodeInternal,
			fmt.Sprintf("storing chunks failed: %v", err), nil)
	}

	sample := make([]string, 0, sampleIDCount)
	for i := 0; i < len(docs) && i < sampleIDCount; i++ {
		sample = append(sample, docs[i].ID)
	}

	k.logger.Info("ingested source",
		"collection", collection, "source", source,
		"source_type", base.SourceType, "chunks", len(chunks))

	return Result{
		Status:  StatusSuccess,
		Message: fmt.Sprintf("added %d chunks to collection %q", len(chunks), collection),
		Data: IngestReport{
			Collection:      collection,
			ChunksAdded:     len(chunks),
			TotalCharacters: len(text),
			SampleChunkIDs:  sample,
			Source:          source,
			SourceType:      base.SourceType,
		},
	}
}
