// Package embed turns chunk text into fixed-dimension embedding vectors
// through a Genkit ai.Embedder, selected by the configured model type.
package embed

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/firebase/genkit/go/plugins/ollama"

	"github.com/quarrydocs/quarry/internal/config"
	"github.com/quarrydocs/quarry/internal/log"
)

// ErrMissingAPIKey is returned when the googlegenai provider is configured
// but no API key is present in the environment.
var ErrMissingAPIKey = errors.New("GEMINI_API_KEY is not set (export GEMINI_API_KEY to use the googlegenai provider)")

// Provide initializes Genkit with the configured embedding provider and
// returns the registered embedder.
func Provide(ctx context.Context, cfg *config.Config, logger log.Logger) (ai.Embedder, error) {
	if cfg == nil {
		return nil, config.ErrConfigNil
	}
	if logger == nil {
		logger = log.NewNop()
	}

	switch cfg.Embedding.ModelType {
	case config.ModelTypeOllama:
		ollamaPlugin := &ollama.Ollama{ServerAddress: cfg.Embedding.OllamaHost}
		g := genkit.Init(ctx, genkit.WithPlugins(ollamaPlugin))
		if g == nil {
			return nil, errors.New("initializing genkit with ollama provider")
		}
		// Ollama requires explicit embedder registration, keyed by server address.
		ollamaPlugin.DefineEmbedder(g, cfg.Embedding.OllamaHost, cfg.Embedding.ModelName, nil)
		logger.Info("initialized ollama embedding provider",
			"model", cfg.Embedding.ModelName, "host", cfg.Embedding.OllamaHost)
		return ollama.Embedder(g, cfg.Embedding.OllamaHost), nil

	case config.ModelTypeGoogleGenAI:
		if os.Getenv("GEMINI_API_KEY") == "" && os.Getenv("GOOGLE_API_KEY") == "" {
			return nil, ErrMissingAPIKey
		}
		g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with googlegenai provider")
		}
		logger.Info("initialized googlegenai embedding provider",
			"model", cfg.Embedding.ModelName)
		return googlegenai.GoogleAIEmbedder(g, cfg.Embedding.ModelName), nil

	default:
		return nil, fmt.Errorf("%w: %q", config.ErrInvalidModelType, cfg.Embedding.ModelType)
	}
}
