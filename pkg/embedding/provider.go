// Package embedding turns query text into fixed-length vectors.
package embedding

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/pario-ai/semcache/pkg/config"
)

// Provider embeds text. Output need not be normalized; callers normalize.
type Provider interface {
	// Embed returns the embedding of text.
	Embed(ctx context.Context, text string) ([]float32, error)
	// Dimensions returns the length of every vector Embed produces.
	Dimensions() int
}

// Provider names accepted in configuration.
const (
	ProviderHash   = "hash"
	ProviderOpenAI = "openai"
)

// New builds the provider described by cfg. dims is the cache dimension; the
// provider must produce vectors of exactly this length.
func New(cfg config.EmbeddingConfig, dims int) (Provider, error) {
	switch cfg.Provider {
	case "", ProviderHash:
		return NewHash(dims), nil
	case ProviderOpenAI:
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		return NewOpenAI(OpenAIConfig{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.URL,
			Model:      cfg.Model,
			Dimensions: dims,
		}, &http.Client{Timeout: timeout}), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}
