package embedding

import (
	"context"
	"math"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
)

var hashingStopwords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "and": {}, "or": {}, "of": {},
	"to": {}, "in": {}, "for": {}, "on": {}, "we": {}, "are": {},
	"is": {}, "with": {}, "our": {}, "your": {},
}

// Hashing is an offline bag-of-words embedder: every token is hashed into one
// of dim buckets and the vector is L2 normalized. It needs no model and is
// deterministic, which makes it usable in tests and air-gapped runs.
type Hashing struct {
	dim int
}

// NewHashing returns a hashing embedder with dim buckets.
func NewHashing(dim int) *Hashing {
	if dim <= 0 {
		dim = 256
	}
	return &Hashing{dim: dim}
}

// Dim returns the vector dimension.
func (h *Hashing) Dim() int { return h.dim }

// Embed implements Embedder.
func (h *Hashing) Embed(_ context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, text := range texts {
		vec := make([]float64, h.dim)
		for _, token := range tokenize(text) {
			vec[xxhash.Sum64String(token)%uint64(h.dim)]++
		}
		normalize(vec)
		out[i] = vec
	}
	return out, nil
}

func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r) && r != '-'
	})
	tokens := fields[:0]
	for _, f := range fields {
		f = strings.Trim(f, "-")
		if f == "" {
			continue
		}
		if _, skip := hashingStopwords[f]; skip {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

func normalize(vec []float64) {
	var sumSq float64
	for _, v := range vec {
		sumSq += v * v
	}
	if sumSq == 0 {
		return
	}
	norm := 1 / math.Sqrt(sumSq)
	for i := range vec {
		vec[i] *= norm
	}
}
