package main

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"github.com/DeafMist/waste-radar/internal/classifier"
	"github.com/DeafMist/waste-radar/internal/config"
	"github.com/DeafMist/waste-radar/internal/dedupe"
	"github.com/DeafMist/waste-radar/internal/logger"
	"github.com/DeafMist/waste-radar/internal/metrics"
	"github.com/DeafMist/waste-radar/internal/models"
	"github.com/DeafMist/waste-radar/internal/processing"
	"github.com/DeafMist/waste-radar/internal/taxonomy"
)

type stubIndexer struct {
	docs []models.PostDocument
	err  error
}

func (s *stubIndexer) IndexPost(_ context.Context, doc models.PostDocument) error {
	if s.err != nil {
		return s.err
	}
	s.docs = append(s.docs, doc)
	return nil
}

type failingClassifier struct{}

func (failingClassifier) Name() string { return "semantic" }

func (failingClassifier) Classify(context.Context, string, string) (models.Classification, error) {
	return classifier.Fallback(taxonomy.Default()), &classifier.Failure{Strategy: "semantic", Err: errors.New("embedding service down")}
}

func newTestWorker(c classifier.Classifier, idx postIndexer) *worker {
	log := logger.Discard()
	m := metrics.New()
	return &worker{
		log: log,
		cfg: &config.Worker{
			Common: config.Common{
				ElasticsearchAddr:  "http://test",
				ElasticsearchIndex: "posts",
			},
			KeywordLimit:     5,
			KeywordMinLength: 3,
		},
		indexer:  idx,
		cache:    dedupe.NewCache(100, time.Hour),
		enricher: classifier.NewEnricher(c, log, m),
		metrics:  m,
	}
}

func message(t *testing.T, p rawPost) kafka.Message {
	t.Helper()
	data, err := json.Marshal(p)
	require.NoError(t, err)
	return kafka.Message{Value: data}
}

func TestProcessMessageIndexesClassifiedPost(t *testing.T) {
	idx := &stubIndexer{}
	w := newTestWorker(classifier.NewLexical(taxonomy.Default()), idx)

	msg := message(t, rawPost{
		URL:       "https://www.linkedin.com/posts/acme_activity-7001-xyz",
		Content:   "We are <b>offering</b> hospital &amp; clinical waste pickup in Pune",
		Poster:    models.Poster{Name: "Asha", Company: "Acme"},
		Source:    "tavily",
		ScrapedAt: "2025-01-02T15:04:05Z",
	})

	require.NoError(t, w.processMessage(context.Background(), msg))
	require.Len(t, idx.docs, 1)

	doc := idx.docs[0]
	require.Equal(t, processing.BuildDocumentID("https://www.linkedin.com/posts/acme_activity-7001-xyz"), doc.ID)
	require.Equal(t, "C", doc.WasteCategory)
	require.Equal(t, "Bio-medical Waste", doc.WasteCategoryName)
	require.Equal(t, models.RequirementSupply, doc.RequirementType)
	require.Equal(t, "7001", doc.ActivityID)
	require.Equal(t, "Acme", doc.PosterCompany)
	require.Equal(t, "tavily", doc.Source)
	require.Equal(t, 2025, doc.Timestamp.Year())
	require.NotEmpty(t, doc.Title)
	require.NotEmpty(t, doc.Keywords)
	require.Equal(t, 1.0, testutil.ToFloat64(w.metrics.Indexed))
}

func TestProcessMessageSkipsUnchangedAndReindexesEdits(t *testing.T) {
	idx := &stubIndexer{}
	w := newTestWorker(classifier.NewLexical(taxonomy.Default()), idx)

	first := rawPost{URL: "https://example.com/p/1", Content: "Need glass pickup"}
	require.NoError(t, w.processMessage(context.Background(), message(t, first)))
	require.NoError(t, w.processMessage(context.Background(), message(t, first)))
	require.Len(t, idx.docs, 1)
	require.Equal(t, 1.0, testutil.ToFloat64(w.metrics.Duplicates))

	edited := rawPost{URL: "https://example.com/p/1", Content: "Offering battery recycling"}
	require.NoError(t, w.processMessage(context.Background(), message(t, edited)))
	require.Len(t, idx.docs, 2)
	require.Equal(t, idx.docs[0].ID, idx.docs[1].ID)
	require.Equal(t, "E", idx.docs[1].WasteCategory)
	require.Equal(t, models.RequirementSupply, idx.docs[1].RequirementType)
}

func TestProcessMessageIndexesFallbackOnClassificationFailure(t *testing.T) {
	idx := &stubIndexer{}
	w := newTestWorker(failingClassifier{}, idx)

	msg := message(t, rawPost{URL: "https://example.com/p/2", Content: "Offering plastic scrap"})
	require.NoError(t, w.processMessage(context.Background(), msg))
	require.Len(t, idx.docs, 1)
	require.Equal(t, "H", idx.docs[0].WasteCategory)
	require.Equal(t, models.RequirementDemand, idx.docs[0].RequirementType)
	require.Equal(t, 1.0, testutil.ToFloat64(w.metrics.Failures.WithLabelValues("semantic")))
}

func TestProcessMessageGeneratesTitleWhenMissing(t *testing.T) {
	idx := &stubIndexer{}
	w := newTestWorker(classifier.NewLexical(taxonomy.Default()), idx)

	msg := message(t, rawPost{URL: "https://example.com/p/3", Content: "Looking for e-waste buyers! Pickup from Chennai."})
	require.NoError(t, w.processMessage(context.Background(), msg))
	require.Len(t, idx.docs, 1)
	require.Equal(t, "Looking for e-waste buyers", idx.docs[0].Title)
	require.Equal(t, "unknown", idx.docs[0].Source)
}

func TestProcessMessageRejectsBadPayloads(t *testing.T) {
	idx := &stubIndexer{}
	w := newTestWorker(classifier.NewLexical(taxonomy.Default()), idx)

	require.Error(t, w.processMessage(context.Background(), kafka.Message{Value: []byte("{not json")}))
	require.Error(t, w.processMessage(context.Background(), message(t, rawPost{Content: "no url"})))
	require.Error(t, w.processMessage(context.Background(), message(t, rawPost{URL: "https://example.com/p/4"})))
	require.Empty(t, idx.docs)
}

func TestProcessMessageIndexFailureIsNotCached(t *testing.T) {
	idx := &stubIndexer{err: errors.New("cluster unavailable")}
	w := newTestWorker(classifier.NewLexical(taxonomy.Default()), idx)

	p := rawPost{URL: "https://example.com/p/5", Content: "Offering pallet wood"}
	require.Error(t, w.processMessage(context.Background(), message(t, p)))

	idx.err = nil
	require.NoError(t, w.processMessage(context.Background(), message(t, p)))
	require.Len(t, idx.docs, 1)
}

type flakyWriter struct {
	failures int
	written  []kafka.Message
}

func (f *flakyWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.failures > 0 {
		f.failures--
		return errors.New("broker unavailable")
	}
	f.written = append(f.written, msgs...)
	return nil
}

func TestSendToDLQRetriesAndAnnotates(t *testing.T) {
	orig := dlqBackoff
	dlqBackoff = time.Millisecond
	t.Cleanup(func() { dlqBackoff = orig })

	dlq := &flakyWriter{failures: 2}
	msg := kafka.Message{Value: []byte(`{}`), Partition: 3, Offset: 42}

	require.True(t, sendToDLQ(context.Background(), logger.Discard(), dlq, msg, errors.New("missing post url")))
	require.Len(t, dlq.written, 1)

	headers := map[string]string{}
	for _, h := range dlq.written[0].Headers {
		headers[h.Key] = string(h.Value)
	}
	require.Equal(t, "3", headers["original_partition"])
	require.Equal(t, "42", headers["original_offset"])
	require.Equal(t, "missing post url", headers["error"])
}

func TestSendToDLQGivesUp(t *testing.T) {
	orig := dlqBackoff
	dlqBackoff = time.Millisecond
	t.Cleanup(func() { dlqBackoff = orig })

	dlq := &flakyWriter{failures: 10}
	require.False(t, sendToDLQ(context.Background(), logger.Discard(), dlq, kafka.Message{}, errors.New("boom")))
	require.Empty(t, dlq.written)
}

func TestParseTimestamp(t *testing.T) {
	ts := parseTimestamp("2024-02-03T04:05:06Z")
	require.False(t, ts.IsZero())
	require.Equal(t, time.UTC, ts.Location())
	require.Equal(t, time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC), ts)

	legacy := parseTimestamp("2024-02-03 04:05:06")
	require.Equal(t, time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC), legacy)

	require.True(t, parseTimestamp("invalid").IsZero())
	require.True(t, parseTimestamp("  ").IsZero())
}
