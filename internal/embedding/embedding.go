// Package embedding turns text into fixed-dimension vectors for the semantic
// classifier.
package embedding

import "context"

// Embedder encodes a batch of texts. The returned slice has one vector per
// input text, in input order, all of the same dimension.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}
