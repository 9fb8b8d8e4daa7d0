package embedding

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

// OpenAIConfig configures an OpenAI or OpenAI-compatible (Ollama, vLLM, ...)
// embeddings endpoint.
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
}

// OpenAI embeds text through the OpenAI embeddings API.
type OpenAI struct {
	client openai.Client
	cfg    OpenAIConfig
}

// NewOpenAI creates an OpenAI provider. SDK retries are disabled; a failed
// embedding surfaces to the caller immediately.
func NewOpenAI(cfg OpenAIConfig, httpClient *http.Client) *OpenAI {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")+"/"))
	}

	return &OpenAI{
		client: openai.NewClient(opts...),
		cfg:    cfg,
	}
}

// Embed implements Provider.
func (o *OpenAI) Embed(ctx context.Context, text string) ([]float32, error) {
	params := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{
			OfString: openai.String(text),
		},
		Model: openai.EmbeddingModel(o.cfg.Model),
	}
	// Only text-embedding-3 models accept a dimensions override.
	if strings.HasPrefix(o.cfg.Model, "text-embedding-3") && o.cfg.Dimensions > 0 {
		params.Dimensions = openai.Int(int64(o.cfg.Dimensions))
	}

	resp, err := o.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("create embedding: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("no embedding data returned")
	}

	embedding := make([]float32, len(resp.Data[0].Embedding))
	for i, v := range resp.Data[0].Embedding {
		embedding[i] = float32(v)
	}
	if o.cfg.Dimensions > 0 && len(embedding) != o.cfg.Dimensions {
		return nil, fmt.Errorf("embedding model %s returned %d dimensions, want %d", o.cfg.Model, len(embedding), o.cfg.Dimensions)
	}
	return embedding, nil
}

// Dimensions implements Provider.
func (o *OpenAI) Dimensions() int {
	return o.cfg.Dimensions
}
