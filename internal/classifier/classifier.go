// Package classifier tags post text with a requirement type and a waste
// category. Two strategies share one interface: keyword scoring (Lexical)
// and embedding similarity (Semantic).
package classifier

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/DeafMist/waste-radar/internal/embedding"
	"github.com/DeafMist/waste-radar/internal/models"
	"github.com/DeafMist/waste-radar/internal/taxonomy"
)

// Strategy names accepted by New.
const (
	ModeLexical  = "lexical"
	ModeSemantic = "semantic"
)

// ErrClassification marks a recoverable per-record failure. The
// classification returned alongside it is the fallback one.
var ErrClassification = errors.New("classification failure")

// Failure describes why a single text fell back to the default classification.
type Failure struct {
	Strategy string
	Err      error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s classifier: %v", f.Strategy, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// Is reports ErrClassification as a match so callers can use errors.Is.
func (f *Failure) Is(target error) bool { return target == ErrClassification }

// Classifier maps post text to a Classification.
//
// Classify always returns a usable classification. A non-nil error is always
// a *Failure: the record got the fallback classification and the caller
// should log it and move on.
type Classifier interface {
	Classify(ctx context.Context, content, title string) (models.Classification, error)
	Name() string
}

// New builds the strategy selected by mode. The embedder is only used by the
// semantic strategy.
func New(ctx context.Context, mode string, tax *taxonomy.Taxonomy, emb embedding.Embedder, opts ...SemanticOption) (Classifier, error) {
	if tax == nil {
		return nil, errors.New("classifier: nil taxonomy")
	}
	if err := tax.Validate(); err != nil {
		return nil, err
	}

	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", ModeLexical:
		return NewLexical(tax), nil
	case ModeSemantic:
		if emb == nil {
			return nil, errors.New("classifier: semantic mode needs an embedder")
		}
		return NewSemantic(ctx, tax, emb, opts...)
	default:
		return nil, fmt.Errorf("classifier: unknown mode %q", mode)
	}
}

// Fallback is the classification used for empty text and failed records.
func Fallback(tax *taxonomy.Taxonomy) models.Classification {
	return models.Classification{
		RequirementType: models.RequirementDemand,
		Category:        fallbackRef(tax),
	}
}

func fallbackRef(tax *taxonomy.Taxonomy) models.CategoryRef {
	c := tax.FallbackCategory()
	return models.CategoryRef{Code: c.Code, Name: c.Name}
}

func joinText(content, title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return content
	}
	// newline keeps multi-word keywords from spanning title and body
	return title + "\n" + content
}
