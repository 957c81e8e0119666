package kb

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/quarrydocs/quarry/internal/vectorstore"
)

// sourceAccumulator gathers per-source aggregates while scanning metadata.
type sourceAccumulator struct {
	sourceType  string
	chunkCount  int
	characters  int
	tokens      int
	firstAdded  string
	lastUpdated string
}

// ListSources groups the collection's chunk metadata by source and reports
// per-source chunk, character, and token counts with first/last ingestion
// times. Sources are ordered by descending chunk count.
func (k *KB) ListSources(ctx context.Context, collection string) Result {
	collection = k.collectionOrDefault(collection)

	metas, err := k.store.AllMetadata(ctx, collection, nil)
	if err != nil {
		if errors.Is(err, vectorstore.ErrCollectionNotFound) {
			return k.collectionNotFound(ctx, collection)
		}
		k.logger.Error("reading collection metadata failed", "collection", collection, "error", err)
		return errorResult(ErrCodeInternal,
			fmt.Sprintf("reading collection metadata failed: %v", err), nil)
	}

	bySource := make(map[string]*sourceAccumulator)
	order := make([]string, 0)
	for _, raw := range metas {
		meta, err := unmarshalMetadata(raw)
		if err != nil {
			k.logger.Warn("skipping unreadable chunk metadata", "collection", collection, "error", err)
			continue
		}
		source := meta.Source()
		if source == "" {
			source = "unknown"
		}
		acc, ok := bySource[source]
		if !ok {
			acc = &sourceAccumulator{sourceType: meta.SourceType}
			bySource[source] = acc
			order = append(order, source)
		}
		acc.chunkCount++
		acc.characters += meta.ChunkLength
		acc.tokens += meta.TokenCount
		if acc.firstAdded == "" || meta.Timestamp < acc.firstAdded {
			acc.firstAdded = meta.Timestamp
		}
		if meta.Timestamp > acc.lastUpdated {
			acc.lastUpdated = meta.Timestamp
		}
	}

	sources := make([]SourceInfo, 0, len(order))
	sourceTypes := make(map[string]int)
	totalChunks := 0
	for _, name := range order {
		acc := bySource[name]
		sources = append(sources, SourceInfo{
			Source:          name,
			SourceType:      acc.sourceType,
			ChunkCount:      acc.chunkCount,
			TotalCharacters: acc.characters,
			TotalTokens:     acc.tokens,
			FirstAdded:      acc.firstAdded,
			LastUpdated:     acc.lastUpdated,
		})
		sourceTypes[acc.sourceType]++
		totalChunks += acc.chunkCount
	}
	sort.SliceStable(sources, func(i, j int) bool {
		return sources[i].ChunkCount > sources[j].ChunkCount
	})

	summary := SourcesSummary{SourceTypes: sourceTypes}
	if len(sources) > 0 {
		summary.MostChunks = sources[0].Source
		summary.AvgChunksPerSource = float64(totalChunks) / float64(len(sources))
	}

	return Result{
		Status:  StatusSuccess,
		Message: fmt.Sprintf("collection %q has %d sources", collection, len(sources)),
		Data: SourcesReport{
			Collection:   collection,
			Sources:      sources,
			TotalSources: len(sources),
			TotalChunks:  totalChunks,
			Summary:      summary,
		},
	}
}

// Stats aggregates chunk and source counts across every collection and
// echoes the configuration that shaped the stored data. An empty store
// yields zero aggregates, not an error.
func (k *KB) Stats(ctx context.Context) Result {
	collections, err := k.store.ListCollections(ctx)
	if err != nil {
		k.logger.Error("listing collections failed", "error", err)
		return errorResult(ErrCodeInternal,
			fmt.Sprintf("listing collections failed: %v", err), nil)
	}

	perCollection := make(map[string]CollectionStats, len(collections))
	overview := StatsOverview{
		TotalCollections: len(collections),
		SourceTypes:      make(map[string]int),
	}

	for _, name := range collections {
		metas, err := k.store.AllMetadata(ctx, name, nil)
		if err != nil {
			k.logger.Error("reading collection metadata failed", "collection", name, "error", err)
			return errorResult(ErrCodeInternal,
				fmt.Sprintf("reading metadata of collection %q failed: %v", name, err), nil)
		}

		sources := make(map[string]string) // source -> source_type
		for _, raw := range metas {
			meta, err := unmarshalMetadata(raw)
			if err != nil {
				continue
			}
			source := meta.Source()
			if source == "" {
				source = "unknown"
			}
			sources[source] = meta.SourceType
		}

		cs := CollectionStats{
			ChunkCount:  len(metas),
			SourceCount: len(sources),
			SourceTypes: make(map[string]int),
		}
		for _, st := range sources {
			cs.SourceTypes[st]++
			overview.SourceTypes[st]++
		}
		perCollection[name] = cs

		overview.TotalChunks += cs.ChunkCount
		overview.TotalSources += cs.SourceCount
	}

	perf := StatsPerformance{}
	if overview.TotalCollections > 0 {
		perf.AvgChunksPerCollection = float64(overview.TotalChunks) / float64(overview.TotalCollections)
		perf.AvgSourcesPerCollection = float64(overview.TotalSources) / float64(overview.TotalCollections)
	}

	return Result{
		Status: StatusSuccess,
		Data: StatsReport{
			Overview:    overview,
			Collections: perCollection,
			Configuration: StatsConfiguration{
				EmbeddingModel: k.cfg.Embedding.ModelName,
				ChunkSize:      k.cfg.Chunking.ChunkSize,
				ChunkOverlap:   k.cfg.Chunking.ChunkOverlap,
				DatabasePath:   k.cfg.Storage.DatabasePath,
			},
			Performance: perf,
		},
	}
}
