package embed

import (
	"context"
	"fmt"
	"math"

	"github.com/firebase/genkit/go/ai"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/quarrydocs/quarry/internal/config"
	"github.com/quarrydocs/quarry/internal/log"
)

// Encoder wraps an ai.Embedder with the knowledge-base embedding policy:
// the configured output dimensionality is pinned on every request, vectors
// are optionally L2-normalized, and calls are throttled against the
// provider's rate limit.
//
// Encoder is safe for concurrent use by multiple goroutines.
type Encoder struct {
	embedder  ai.Embedder
	dimension int
	normalize bool
	pinDim    bool
	limiter   *rate.Limiter
	logger    log.Logger
}

// NewEncoder builds an Encoder from the embedding configuration. Only the
// googlegenai provider honors OutputDimensionality, so dimension pinning is
// applied for that model type and the configured dimension is verified on
// every response for both providers.
func NewEncoder(embedder ai.Embedder, cfg *config.Config, logger log.Logger) (*Encoder, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if cfg == nil {
		return nil, config.ErrConfigNil
	}
	if logger == nil {
		logger = log.NewNop()
	}

	var limiter *rate.Limiter
	if rpm := cfg.Embedding.RequestsPerMinute; rpm > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(rpm)/60.0), 1)
	}

	return &Encoder{
		embedder:  embedder,
		dimension: cfg.Embedding.EmbeddingDimension,
		normalize: cfg.Embedding.NormalizeEmbeddings,
		pinDim:    cfg.Embedding.ModelType == config.ModelTypeGoogleGenAI,
		limiter:   limiter,
		logger:    logger,
	}, nil
}

// Dimension returns the configured embedding dimension.
func (e *Encoder) Dimension() int { return e.dimension }

// Encode embeds all texts in one request, preserving input order. Every
// returned vector has the configured dimension; a provider response with a
// different dimension or a missing vector is an error, never silently
// truncated.
func (e *Encoder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("no texts to embed")
	}

	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("waiting for rate limit: %w", err)
		}
	}

	docs := make([]*ai.Document, len(texts))
	for i, t := range texts {
		docs[i] = ai.DocumentFromText(t, nil)
	}

	req := &ai.EmbedRequest{Input: docs}
	if e.pinDim {
		dim := int32(e.dimension)
		req.Options = &genai.EmbedContentConfig{OutputDimensionality: &dim}
	}

	resp, err := e.embedder.Embed(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("embedding %d texts: %w", len(texts), err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embedding response has %d vectors for %d texts",
			len(resp.Embeddings), len(texts))
	}

	out := make([][]float32, len(texts))
	for i, emb := range resp.Embeddings {
		vec := emb.Embedding
		if len(vec) != e.dimension {
			return nil, fmt.Errorf("embedding %d has dimension %d, expected %d",
				i, len(vec), e.dimension)
		}
		if e.normalize {
			vec = l2Normalize(vec)
		}
		out[i] = vec
	}

	e.logger.Debug("encoded texts", "count", len(texts), "dimension", e.dimension)
	return out, nil
}

// EncodeOne embeds a single text.
func (e *Encoder) EncodeOne(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.Encode(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// l2Normalize scales vec to unit length. A zero vector is returned as is;
// downstream cosine comparison reports it rather than dividing by zero here.
func l2Normalize(vec []float32) []float32 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return vec
	}
	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = float32(float64(v) / norm)
	}
	return out
}
