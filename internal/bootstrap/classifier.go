// Package bootstrap assembles the classification stack from configuration.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/DeafMist/waste-radar/internal/classifier"
	"github.com/DeafMist/waste-radar/internal/config"
	"github.com/DeafMist/waste-radar/internal/embedding"
	"github.com/DeafMist/waste-radar/internal/taxonomy"
)

// Classification is the wired classification stack.
type Classification struct {
	Taxonomy   *taxonomy.Taxonomy
	Classifier classifier.Classifier
}

// LoadTaxonomy returns the taxonomy at path, or the built-in one when path is empty.
func LoadTaxonomy(path string) (*taxonomy.Taxonomy, error) {
	if path == "" {
		return taxonomy.Default(), nil
	}
	tax, err := taxonomy.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load taxonomy: %w", err)
	}
	return tax, nil
}

// NewEmbedder builds the embedding backend named in cfg.
func NewEmbedder(cfg config.Classifier) (embedding.Embedder, error) {
	switch cfg.EmbeddingBackend {
	case "", "hashing":
		return embedding.NewHashing(cfg.EmbeddingDim), nil
	case "openai":
		return embedding.NewOpenAI(embedding.OpenAIConfig{
			APIKey:     cfg.OpenAIAPIKey,
			BaseURL:    cfg.OpenAIBaseURL,
			Model:      cfg.OpenAIModel,
			Dimensions: cfg.EmbeddingDim,
			MaxRetries: 2,
		}), nil
	default:
		return nil, fmt.Errorf("unknown embedding backend %q", cfg.EmbeddingBackend)
	}
}

// NewClassification loads the taxonomy and builds the configured strategy.
func NewClassification(ctx context.Context, cfg config.Classifier, log *slog.Logger) (*Classification, error) {
	tax, err := LoadTaxonomy(cfg.TaxonomyPath)
	if err != nil {
		return nil, err
	}

	var (
		emb  embedding.Embedder
		opts []classifier.SemanticOption
	)
	if cfg.Mode == classifier.ModeSemantic {
		emb, err = NewEmbedder(cfg)
		if err != nil {
			return nil, err
		}
		if cfg.SemanticRequirement {
			opts = append(opts, classifier.WithRequirementScoring())
		}
	}

	c, err := classifier.New(ctx, cfg.Mode, tax, emb, opts...)
	if err != nil {
		return nil, fmt.Errorf("build classifier: %w", err)
	}

	if log != nil {
		log.Info("classifier ready",
			"strategy", c.Name(),
			"categories", len(tax.Categories),
			"embedding_backend", cfg.EmbeddingBackend,
		)
	}

	return &Classification{Taxonomy: tax, Classifier: c}, nil
}
