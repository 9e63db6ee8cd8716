package embedding

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

// OpenAI embeds texts through the OpenAI embeddings endpoint.
type OpenAI struct {
	client openai.Client
	model  string
	dim    int
}

// OpenAIConfig configures the OpenAI embedder.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	// Dimensions asks the model to shorten its vectors; 0 keeps the model default.
	Dimensions int
	MaxRetries int
}

// NewOpenAI builds an OpenAI embedder.
func NewOpenAI(cfg OpenAIConfig) *OpenAI {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	model := cfg.Model
	if model == "" {
		model = string(openai.EmbeddingModelTextEmbedding3Small)
	}

	return &OpenAI{
		client: openai.NewClient(opts...),
		model:  model,
		dim:    cfg.Dimensions,
	}
}

// Embed implements Embedder.
func (o *OpenAI) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	params := openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(o.model),
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
	}
	if o.dim > 0 {
		params.Dimensions = openai.Int(int64(o.dim))
	}

	resp, err := o.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai embeddings request: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai embeddings: got %d vectors for %d texts", len(resp.Data), len(texts))
	}

	out := make([][]float64, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || int(d.Index) >= len(out) {
			return nil, fmt.Errorf("openai embeddings: index %d out of range", d.Index)
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}
