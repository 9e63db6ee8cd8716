package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"github.com/DeafMist/waste-radar/internal/classifier"
	"github.com/DeafMist/waste-radar/internal/logger"
	"github.com/DeafMist/waste-radar/internal/models"
	"github.com/DeafMist/waste-radar/internal/taxonomy"
)

type stubSearcher struct {
	mu      sync.Mutex
	results map[string][]models.Post
	fail    map[string]bool
	calls   []string
}

func (s *stubSearcher) Search(_ context.Context, term string) ([]models.Post, error) {
	s.mu.Lock()
	s.calls = append(s.calls, term)
	s.mu.Unlock()
	if s.fail[term] {
		return nil, errors.New("tavily: status 500")
	}
	return s.results[term], nil
}

type recordingWriter struct {
	msgs []kafka.Message
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func newTestScraper(t *testing.T, s searcher) *scraper {
	t.Helper()
	tax := taxonomy.Default()
	return &scraper{
		log:         logger.Discard(),
		search:      s,
		enricher:    classifier.NewEnricher(classifier.NewLexical(tax), logger.Discard(), nil),
		taxonomy:    tax,
		concurrency: 2,
		outputDir:   filepath.Join(t.TempDir(), "out"),
	}
}

func post(url, content string) models.Post {
	return models.Post{URL: url, Content: content, Source: "tavily"}
}

func TestRunWritesSnapshot(t *testing.T) {
	stub := &stubSearcher{
		results: map[string][]models.Post{
			"waste disposal": {
				post("https://l/1", "Offering hospital waste disposal"),
				post("https://l/2", "Need asbestos removal"),
			},
			"recycling service": {
				post("https://l/1", "Seeking battery recyclers"),
				post("https://l/3", "Cardboard available in bulk"),
			},
		},
		fail: map[string]bool{"hazardous waste": true},
	}
	s := newTestScraper(t, stub)
	now := time.Date(2025, 4, 1, 9, 30, 0, 0, time.UTC)

	res, err := s.run(context.Background(), []string{"waste disposal", "recycling service", "hazardous waste"}, now)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"waste disposal", "recycling service", "hazardous waste"}, stub.calls)

	require.Equal(t, 4, res.Fetched)
	require.Equal(t, 3, res.Unique)
	require.Zero(t, res.Failures)
	require.Equal(t, models.CategoryCounts{"E": 1, "G": 1, "H": 1}, res.Counts)
	require.Equal(t, filepath.Join(s.outputDir, "waste_management_data_20250401_093000.csv"), res.Path)

	f, err := os.Open(res.Path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)

	byURL := map[string][]string{}
	for _, r := range records[1:] {
		byURL[r[1]] = r
	}
	require.Equal(t, "E", byURL["https://l/1"][3])
	require.Equal(t, "demand", byURL["https://l/1"][2])
	require.Equal(t, "G3", byURL["https://l/2"][5])
	require.Equal(t, "H2", byURL["https://l/3"][5])
	require.Equal(t, "supply", byURL["https://l/3"][2])
}

func TestRunWithoutResultsWritesNothing(t *testing.T) {
	s := newTestScraper(t, &stubSearcher{})

	res, err := s.run(context.Background(), []string{"waste management"}, time.Now())
	require.NoError(t, err)
	require.Empty(t, res.Path)
	require.Empty(t, res.Counts)
	_, statErr := os.Stat(s.outputDir)
	require.True(t, os.IsNotExist(statErr))
}

func TestRunPublishesRawPosts(t *testing.T) {
	stub := &stubSearcher{results: map[string][]models.Post{
		"waste management": {post("https://l/9", "Offering glass cullet")},
	}}
	s := newTestScraper(t, stub)
	w := &recordingWriter{}
	s.publisher = w

	_, err := s.run(context.Background(), []string{"waste management"}, time.Now())
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)
	require.Equal(t, "https://l/9", string(w.msgs[0].Key))

	var got models.Post
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &got))
	require.Equal(t, "Offering glass cullet", got.Content)
}

func TestCollectKeepsTermOrder(t *testing.T) {
	stub := &stubSearcher{results: map[string][]models.Post{
		"a": {post("https://a/1", "x")},
		"b": {post("https://b/1", "y"), post("https://b/2", "z")},
	}}
	s := newTestScraper(t, stub)

	posts, err := s.collect(context.Background(), []string{"b", "a"})
	require.NoError(t, err)
	require.Equal(t, []string{"https://b/1", "https://b/2", "https://a/1"}, []string{posts[0].URL, posts[1].URL, posts[2].URL})
}

func TestHistogramCoversAllCategories(t *testing.T) {
	attrs := histogram(taxonomy.Default(), models.CategoryCounts{"C": 2})
	require.Len(t, attrs, 8)
	require.Equal(t, slog.Int("A", 0), attrs[0])
	require.Equal(t, slog.Int("C", 2), attrs[2])
}
