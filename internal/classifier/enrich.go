package classifier

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/DeafMist/waste-radar/internal/metrics"
	"github.com/DeafMist/waste-radar/internal/models"
)

// Enricher applies a Classifier to whole posts. Recoverable failures are
// logged and counted here so one bad record never stops a batch.
type Enricher struct {
	c       Classifier
	log     *slog.Logger
	metrics *metrics.Metrics
}

// NewEnricher wraps c. log and m may be nil.
func NewEnricher(c Classifier, log *slog.Logger, m *metrics.Metrics) *Enricher {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Enricher{c: c, log: log, metrics: m}
}

// Enrich classifies one post. The returned post is always usable; a non-nil
// error is the *Failure that caused the fallback, already logged.
func (e *Enricher) Enrich(ctx context.Context, post models.Post) (models.ClassifiedPost, error) {
	cls, err := e.c.Classify(ctx, post.Content, post.Title)
	if err != nil {
		var failure *Failure
		if !errors.As(err, &failure) {
			// a strategy broke the contract; keep the record anyway
			failure = &Failure{Strategy: e.c.Name(), Err: err}
		}
		e.log.Warn("classification fell back to default",
			slog.String("url", post.URL),
			slog.String("strategy", failure.Strategy),
			slog.Any("err", failure.Err),
		)
		e.metrics.ObserveFailure(e.c.Name())
		err = failure
	}

	e.metrics.ObserveClassified(e.c.Name(), cls.Category.Code, string(cls.RequirementType))
	return models.ClassifiedPost{Post: post, Classification: cls}, err
}

// EnrichAll classifies every post in order and reports how many fell back.
func (e *Enricher) EnrichAll(ctx context.Context, posts []models.Post) ([]models.ClassifiedPost, int) {
	out := make([]models.ClassifiedPost, 0, len(posts))
	failures := 0
	for _, p := range posts {
		cp, err := e.Enrich(ctx, p)
		if err != nil {
			failures++
		}
		out = append(out, cp)
	}
	return out, failures
}
