package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"golang.org/x/sync/errgroup"

	"github.com/DeafMist/waste-radar/internal/bootstrap"
	"github.com/DeafMist/waste-radar/internal/classifier"
	"github.com/DeafMist/waste-radar/internal/config"
	"github.com/DeafMist/waste-radar/internal/dedupe"
	"github.com/DeafMist/waste-radar/internal/export"
	"github.com/DeafMist/waste-radar/internal/logger"
	"github.com/DeafMist/waste-radar/internal/models"
	"github.com/DeafMist/waste-radar/internal/search"
	"github.com/DeafMist/waste-radar/internal/taxonomy"
)

type searcher interface {
	Search(ctx context.Context, term string) ([]models.Post, error)
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type summary struct {
	Fetched  int
	Unique   int
	Failures int
	Path     string
	Counts   models.CategoryCounts
}

type scraper struct {
	log         *slog.Logger
	search      searcher
	enricher    *classifier.Enricher
	taxonomy    *taxonomy.Taxonomy
	publisher   messageWriter
	concurrency int
	outputDir   string
}

func main() {
	log := logger.New("scraper").With(slog.String("run_id", uuid.NewString()))
	cfg, err := config.LoadScraper()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	cls, err := bootstrap.NewClassification(ctx, cfg.Classifier, log)
	if err != nil {
		log.Error("init classifier", slog.Any("err", err))
		os.Exit(1)
	}

	s := &scraper{
		log: log,
		search: search.NewTavily(search.Config{
			APIKey:         cfg.TavilyAPIKey,
			URL:            cfg.TavilyURL,
			MaxResults:     cfg.MaxResults,
			SearchDepth:    cfg.SearchDepth,
			IncludeDomains: cfg.IncludeDomains,
			RatePerSec:     cfg.RatePerSec,
			Retries:        cfg.Retries,
			Timeout:        cfg.Timeout,
		}, log),
		enricher:    classifier.NewEnricher(cls.Classifier, log, nil),
		taxonomy:    cls.Taxonomy,
		concurrency: cfg.Concurrency,
		outputDir:   cfg.OutputDir,
	}

	if cfg.Publish {
		w := &kafka.Writer{
			Addr:         kafka.TCP(cfg.KafkaBrokers...),
			Topic:        cfg.KafkaTopic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
		}
		defer w.Close()
		s.publisher = w
	}

	res, err := s.run(ctx, cfg.SearchTerms, time.Now())
	if err != nil {
		log.Error("scrape run failed", slog.Any("err", err))
		os.Exit(1)
	}

	if res.Path == "" {
		log.Info("no posts to save", slog.Int("fetched", res.Fetched))
		return
	}
	log.Info("scrape run completed",
		slog.Int("fetched", res.Fetched),
		slog.Int("unique", res.Unique),
		slog.Int("classification_failures", res.Failures),
		slog.String("path", res.Path),
	)
	log.Info("category distribution", histogram(s.taxonomy, res.Counts)...)
}

// run searches every term, classifies the results, keeps the last record per
// URL and writes the snapshot.
func (s *scraper) run(ctx context.Context, terms []string, now time.Time) (summary, error) {
	posts, err := s.collect(ctx, terms)
	if err != nil {
		return summary{}, err
	}

	if s.publisher != nil && len(posts) > 0 {
		if err := publish(ctx, s.publisher, posts); err != nil {
			return summary{}, err
		}
		s.log.Info("published raw posts", slog.Int("count", len(posts)))
	}

	classified, failures := s.enricher.EnrichAll(ctx, posts)
	unique, counts := dedupe.Aggregate(classified)

	path, err := export.SaveSnapshot(s.outputDir, unique, now)
	if err != nil {
		return summary{}, err
	}

	return summary{
		Fetched:  len(posts),
		Unique:   len(unique),
		Failures: failures,
		Path:     path,
		Counts:   counts,
	}, nil
}

// collect runs the searches with bounded concurrency. A failing term is
// logged and skipped; results keep the order of terms.
func (s *scraper) collect(ctx context.Context, terms []string) ([]models.Post, error) {
	perTerm := make([][]models.Post, len(terms))

	g, gctx := errgroup.WithContext(ctx)
	if s.concurrency > 0 {
		g.SetLimit(s.concurrency)
	}
	for i, term := range terms {
		g.Go(func() error {
			s.log.Info("searching", slog.String("term", term))
			posts, err := s.search.Search(gctx, term)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				s.log.Warn("search failed, skipping term", slog.String("term", term), slog.Any("err", err))
				return nil
			}
			perTerm[i] = posts
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("collect posts: %w", err)
	}

	var out []models.Post
	for _, posts := range perTerm {
		out = append(out, posts...)
	}
	return out, nil
}

func publish(ctx context.Context, w messageWriter, posts []models.Post) error {
	msgs := make([]kafka.Message, 0, len(posts))
	for _, p := range posts {
		data, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("marshal post %s: %w", p.URL, err)
		}
		msgs = append(msgs, kafka.Message{Key: []byte(p.URL), Value: data})
	}
	if err := w.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish posts: %w", err)
	}
	return nil
}

// histogram lists every top-level category in canonical order with its count.
func histogram(tax *taxonomy.Taxonomy, counts models.CategoryCounts) []any {
	attrs := make([]any, 0, len(tax.Categories))
	for _, c := range tax.Categories {
		attrs = append(attrs, slog.Int(c.Code, counts[c.Code]))
	}
	return attrs
}
