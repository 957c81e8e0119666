package kb

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/quarrydocs/quarry/internal/vectorstore"
)

const (
	// minQueryLength is the shortest accepted search query.
	minQueryLength = 3
	// maxSearchLimit bounds the number of results a single search may ask for.
	maxSearchLimit = 50
	// DefaultSearchLimit is used when the caller does not specify a limit.
	DefaultSearchLimit = 10
)

// Search embeds the query, runs a nearest-neighbour scan over the
// collection, and maps the hits to ranked results with similarity scores.
// A collection that does not exist yields a NotFound error carrying the
// names of the collections that do; zero hits is a success with an
// explanatory message.
func (k *KB) Search(ctx context.Context, query, collection string, limit int, includeMetadata bool) Result {
	trimmed := strings.TrimSpace(query)
	if len(trimmed) < minQueryLength {
		return errorResult(ErrCodeValidation,
			fmt.Sprintf("query must be at least %d characters", minQueryLength), nil)
	}
	if limit < 1 || limit > maxSearchLimit {
		return errorResult(ErrCodeValidation,
			fmt.Sprintf("limit must be between 1 and %d, got %d", maxSearchLimit, limit), nil)
	}

	collection = k.collectionOrDefault(collection)

	embedding, err := k.encoder.Encode(ctx, []string{trimmed})
	if err != nil {
		k.logger.Error("query embedding failed", "query", trimmed, "error", err)
		return errorResult(ErrCodeInternal,
			fmt.Sprintf("embedding query failed: %v", err), nil)
	}

	hits, err := k.store.Query(ctx, collection, embedding[0], limit, nil)
	if err != nil {
		if errors.Is(err, vectorstore.ErrCollectionNotFound) {
			return k.collectionNotFound(ctx, collection)
		}
		k.logger.Error("vector query failed", "collection", collection, "error", err)
		return errorResult(ErrCodeInternal,
			fmt.Sprintf("querying collection failed: %v", err), nil)
	}

	results := make([]SearchResult, 0, len(hits))
	for i, hit := range hits {
		result := SearchResult{
			Rank:            i + 1,
			Content:         hit.Content,
			SimilarityScore: similarityScore(hit.Distance),
		}
		if includeMetadata {
			meta, err := unmarshalMetadata(hit.Metadata)
			if err != nil {
				k.logger.Warn("unreadable chunk metadata", "chunk", hit.ID, "error", err)
			} else {
				result.Metadata = &SearchResultMetadata{
					Source:      meta.Source(),
					SourceType:  meta.SourceType,
					Timestamp:   meta.Timestamp,
					ChunkIndex:  meta.ChunkIndex,
					ChunkLength: meta.ChunkLength,
					TokenCount:  meta.TokenCount,
					Extra:       meta.Extra,
				}
			}
		}
		results = append(results, result)
	}

	message := fmt.Sprintf("found %d results", len(results))
	if len(results) == 0 {
		message = fmt.Sprintf("no results found in collection %q for this query", collection)
	}

	return Result{
		Status:  StatusSuccess,
		Message: message,
		Data: SearchReport{
			Query:      trimmed,
			Collection: collection,
			Results:    results,
			Count:      len(results),
		},
	}
}

// similarityScore converts cosine distance to a similarity in [0, 1].
func similarityScore(distance float64) float64 {
	score := 1 - distance
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// collectionNotFound builds the NotFound result, listing the collections
// that actually exist so the caller can recover.
func (k *KB) collectionNotFound(ctx context.Context, collection string) Result {
	available, err := k.store.ListCollections(ctx)
	if err != nil {
		k.logger.Warn("listing collections failed", "error", err)
		available = nil
	}
	if available == nil {
		available = []string{}
	}
	return errorResult(ErrCodeNotFound,
		fmt.Sprintf("collection %q does not exist", collection),
		map[string]any{"available_collections": available})
}
