package classifier

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/DeafMist/waste-radar/internal/embedding"
	"github.com/DeafMist/waste-radar/internal/models"
	"github.com/DeafMist/waste-radar/internal/taxonomy"
)

type label struct {
	code string
	name string
	vec  []float64
	norm float64
}

type parentLabel struct {
	label
	subs []label
}

// Semantic picks the category whose display name embedding is closest (cosine
// similarity) to the text embedding. The label table is embedded once in
// NewSemantic and never changes afterwards.
type Semantic struct {
	tax         *taxonomy.Taxonomy
	emb         embedding.Embedder
	labels      []parentLabel
	requirement *Lexical
}

// SemanticOption tunes NewSemantic.
type SemanticOption func(*Semantic)

// WithRequirementScoring adds lexical supply/demand scoring to the semantic
// strategy. Without it the requirement type is left empty.
func WithRequirementScoring() SemanticOption {
	return func(s *Semantic) {
		s.requirement = NewLexical(s.tax)
	}
}

// NewSemantic embeds every category and subcategory name in a single call.
func NewSemantic(ctx context.Context, tax *taxonomy.Taxonomy, emb embedding.Embedder, opts ...SemanticOption) (*Semantic, error) {
	s := &Semantic{tax: tax, emb: emb}
	for _, opt := range opts {
		opt(s)
	}

	var names []string
	for _, c := range tax.Categories {
		names = append(names, c.Name)
		for _, sub := range c.Subcategories {
			names = append(names, sub.Name)
		}
	}

	vecs, err := emb.Embed(ctx, names)
	if err != nil {
		return nil, fmt.Errorf("embed category names: %w", err)
	}
	if len(vecs) != len(names) {
		return nil, fmt.Errorf("embed category names: got %d vectors for %d names", len(vecs), len(names))
	}
	for _, v := range vecs {
		if len(v) != len(vecs[0]) {
			return nil, fmt.Errorf("embed category names: mixed dimensions %d and %d", len(vecs[0]), len(v))
		}
	}

	i := 0
	next := func(code, name string) label {
		l := label{code: code, name: name, vec: vecs[i], norm: norm(vecs[i])}
		i++
		return l
	}
	for _, c := range tax.Categories {
		p := parentLabel{label: next(c.Code, c.Name)}
		for _, sub := range c.Subcategories {
			p.subs = append(p.subs, next(sub.Code, sub.Name))
		}
		s.labels = append(s.labels, p)
	}

	return s, nil
}

// Name implements Classifier.
func (s *Semantic) Name() string { return ModeSemantic }

// Classify implements Classifier.
func (s *Semantic) Classify(ctx context.Context, content, title string) (models.Classification, error) {
	text := joinText(content, title)
	if strings.TrimSpace(text) == "" {
		return Fallback(s.tax), nil
	}

	vecs, err := s.emb.Embed(ctx, []string{text})
	if err != nil {
		return Fallback(s.tax), &Failure{Strategy: ModeSemantic, Err: err}
	}
	if len(vecs) != 1 {
		return Fallback(s.tax), &Failure{Strategy: ModeSemantic, Err: fmt.Errorf("got %d vectors for 1 text", len(vecs))}
	}

	vec := vecs[0]
	if len(s.labels) > 0 && len(vec) != len(s.labels[0].vec) {
		return Fallback(s.tax), &Failure{
			Strategy: ModeSemantic,
			Err:      fmt.Errorf("dimension mismatch: text %d, labels %d", len(vec), len(s.labels[0].vec)),
		}
	}

	out := models.Classification{Category: s.nearest(vec)}
	if s.requirement != nil {
		out.RequirementType = s.requirement.RequirementType(content, title)
	}
	return out, nil
}

func (s *Semantic) nearest(vec []float64) models.CategoryRef {
	n := norm(vec)
	if n == 0 {
		return fallbackRef(s.tax)
	}

	best, bestSim := -1, math.Inf(-1)
	for i, l := range s.labels {
		// strict comparison keeps the earlier label on ties
		if sim := cosine(vec, n, l.label); sim > bestSim {
			best, bestSim = i, sim
		}
	}
	if best < 0 {
		return fallbackRef(s.tax)
	}

	p := s.labels[best]
	ref := models.CategoryRef{Code: p.code, Name: p.name}

	sub, subSim := -1, 0.0
	for i, l := range p.subs {
		if sim := cosine(vec, n, l); sim > subSim {
			sub, subSim = i, sim
		}
	}
	if sub >= 0 {
		ref.SubCode = p.subs[sub].code
		ref.SubName = p.subs[sub].name
	}
	return ref
}

func cosine(vec []float64, vecNorm float64, l label) float64 {
	if vecNorm == 0 || l.norm == 0 {
		return 0
	}
	var dot float64
	for i := range vec {
		dot += vec[i] * l.vec[i]
	}
	return dot / (vecNorm * l.norm)
}

func norm(vec []float64) float64 {
	var sumSq float64
	for _, v := range vec {
		sumSq += v * v
	}
	return math.Sqrt(sumSq)
}
