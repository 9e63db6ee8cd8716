package classifier_test

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/DeafMist/waste-radar/internal/classifier"
	"github.com/DeafMist/waste-radar/internal/metrics"
	"github.com/DeafMist/waste-radar/internal/models"
	"github.com/DeafMist/waste-radar/internal/taxonomy"
)

func TestEnrichAllIsolatesFailures(t *testing.T) {
	tax, emb := semanticFixture()
	sem, err := classifier.NewSemantic(context.Background(), tax, emb)
	require.NoError(t, err)

	m := metrics.New()
	enricher := classifier.NewEnricher(sem, nil, m)

	posts := []models.Post{
		{URL: "u1", Content: "offering plastic bottles"},
		{URL: "u2", Content: "no vector for this one"},
		{URL: "u3", Content: "old newspapers", Poster: models.Poster{Name: "Asha"}},
	}

	out, failures := enricher.EnrichAll(context.Background(), posts)
	require.Equal(t, 1, failures)
	require.Len(t, out, 3)

	require.Equal(t, "u1", out[0].URL)
	require.Equal(t, "A", out[0].Category.Code)

	require.Equal(t, "u2", out[1].URL)
	require.Equal(t, classifier.Fallback(tax), out[1].Classification)

	require.Equal(t, "H", out[2].Category.Code)
	require.Equal(t, "Asha", out[2].Poster.Name)

	require.Equal(t, 1.0, testutil.ToFloat64(m.Failures.WithLabelValues("semantic")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.Classified.WithLabelValues("semantic", "A", "none")))
}

type brokenClassifier struct{}

func (brokenClassifier) Classify(context.Context, string, string) (models.Classification, error) {
	return classifier.Fallback(taxonomy.Default()), errors.New("plain error")
}

func (brokenClassifier) Name() string { return "broken" }

func TestEnrichWrapsForeignErrors(t *testing.T) {
	enricher := classifier.NewEnricher(brokenClassifier{}, nil, nil)

	cp, err := enricher.Enrich(context.Background(), models.Post{URL: "u", Content: "x"})
	require.ErrorIs(t, err, classifier.ErrClassification)
	require.Equal(t, "H", cp.Category.Code)
	require.Equal(t, "u", cp.URL)
}

func TestEnrichLexicalNeverFails(t *testing.T) {
	enricher := classifier.NewEnricher(classifier.NewLexical(taxonomy.Default()), nil, nil)

	out, failures := enricher.EnrichAll(context.Background(), []models.Post{
		{URL: "a", Content: "plastic packaging material"},
		{URL: "b", Content: ""},
	})
	require.Zero(t, failures)
	require.Equal(t, "A", out[0].Category.Code)
	require.Equal(t, "H", out[1].Category.Code)
	require.Equal(t, models.RequirementDemand, out[1].RequirementType)
}
