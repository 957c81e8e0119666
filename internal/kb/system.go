package kb

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// setupProbeText exercises the whole pipeline during setup: long enough to
// pass validation and produce one chunk.
const setupProbeText = "Knowledge base setup verification: this sentence is chunked, embedded, stored, and searched once, then removed."

// Setup verifies the whole pipeline end to end: it reports each component's
// configuration and runs a disposable chunk, embed, upsert, query
// round-trip against a throwaway collection that is removed afterwards.
// Durable application data is never touched. A failure names the failing
// component.
func (k *KB) Setup(ctx context.Context) Result {
	components := map[string]ComponentStatus{
		"configuration": {
			Status: "loaded",
			Details: map[string]any{
				"version": k.cfg.Version,
				"path":    k.cfg.Path(),
			},
		},
		"text_splitter": {
			Status: "configured",
			Details: map[string]any{
				"chunk_size":    k.splitter.ChunkSize(),
				"chunk_overlap": k.splitter.Overlap(),
			},
		},
		"embedding_model": {
			Status: "loaded",
			Details: map[string]any{
				"model":     k.cfg.Embedding.ModelName,
				"type":      k.cfg.Embedding.ModelType,
				"dimension": k.encoder.Dimension(),
			},
		},
		"database": {
			Status: "connected",
			Details: map[string]any{
				"path": k.cfg.Storage.DatabasePath,
			},
		},
	}

	testResults := make(map[string]string)

	chunks := k.splitter.Split(setupProbeText)
	if len(chunks) == 0 {
		return errorResult(ErrCodeDependency,
			"text splitter produced no chunks during setup", nil)
	}
	testResults["chunking"] = fmt.Sprintf("ok (%d chunks)", len(chunks))

	embeddings, err := k.encoder.Encode(ctx, chunks)
	if err != nil {
		return errorResult(ErrCodeDependency,
			fmt.Sprintf("embedding model failed during setup: %v (check the embedding provider credentials and host in %s)", err, k.cfg.Path()),
			nil)
	}
	testResults["embedding"] = fmt.Sprintf("ok (dimension %d)", len(embeddings[0]))

	// Round-trip against a throwaway collection, removed on every exit path.
	probe := "setup_" + uuid.NewString()
	defer func() {
		if err := k.store.DeleteCollection(context.WithoutCancel(ctx), probe); err != nil {
			k.logger.Warn("removing setup probe collection failed",
				"collection", probe, "error", err)
		}
	}()

	ingest := k.ingest(ctx, setupProbeText, ChunkMetadata{
		SourceType: SourceTypeText,
		SourceName: "setup_probe",
	}, probe, nil)
	if ingest.Status != StatusSuccess {
		return errorResult(ErrCodeDependency,
			fmt.Sprintf("vector store failed during setup: %s", ingest.Error.Message), nil)
	}
	testResults["storage"] = "ok"

	search := k.Search(ctx, "setup verification", probe, 1, false)
	if search.Status != StatusSuccess {
		return errorResult(ErrCodeDependency,
			fmt.Sprintf("search failed during setup: %s", search.Error.Message), nil)
	}
	report, ok := search.Data.(SearchReport)
	if !ok || report.Count == 0 {
		return errorResult(ErrCodeDependency,
			"setup round-trip query returned no results", nil)
	}
	testResults["search"] = fmt.Sprintf("ok (%d result)", report.Count)

	k.logger.Info("setup verification passed")

	return Result{
		Status:  StatusSuccess,
		Message: "knowledge base is fully operational",
		Data: SetupReport{
			ConfigPath:  k.cfg.Path(),
			Components:  components,
			TestResults: testResults,
		},
	}
}

// Health reports each component's status without writing anything. A
// component that cannot be reached marks the whole report unhealthy.
func (k *KB) Health(ctx context.Context) Result {
	components := make(map[string]ComponentStatus)
	healthy := true

	components["configuration"] = ComponentStatus{
		Status: "loaded",
		Details: map[string]any{
			"version": k.cfg.Version,
			"path":    k.cfg.Path(),
		},
	}

	components["text_splitter"] = ComponentStatus{
		Status: "configured",
		Details: map[string]any{
			"chunk_size":    k.splitter.ChunkSize(),
			"chunk_overlap": k.splitter.Overlap(),
		},
	}

	components["embedding_model"] = ComponentStatus{
		Status: "loaded",
		Details: map[string]any{
			"model":     k.cfg.Embedding.ModelName,
			"type":      k.cfg.Embedding.ModelType,
			"dimension": k.encoder.Dimension(),
		},
	}

	if collections, err := k.store.ListCollections(ctx); err != nil {
		healthy = false
		components["database"] = ComponentStatus{
			Status:  "unavailable",
			Details: map[string]any{"error": err.Error()},
		}
	} else {
		components["database"] = ComponentStatus{
			Status: "connected",
			Details: map[string]any{
				"path":             k.cfg.Storage.DatabasePath,
				"collection_count": len(collections),
				"collections":      collections,
			},
		}
	}

	if k.fetcher == nil {
		components["scraper"] = ComponentStatus{Status: "not configured"}
	} else {
		components["scraper"] = ComponentStatus{Status: "configured"}
	}

	status := StatusHealthy
	if !healthy {
		status = StatusUnhealthy
	}
	return Result{
		Status: status,
		Data: HealthReport{
			Components: components,
			Timestamp:  time.Now().UTC().Format(time.RFC3339),
		},
	}
}
