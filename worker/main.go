package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/DeafMist/waste-radar/internal/bootstrap"
	"github.com/DeafMist/waste-radar/internal/classifier"
	"github.com/DeafMist/waste-radar/internal/config"
	"github.com/DeafMist/waste-radar/internal/dedupe"
	"github.com/DeafMist/waste-radar/internal/elasticsearch"
	"github.com/DeafMist/waste-radar/internal/logger"
	"github.com/DeafMist/waste-radar/internal/metrics"
	"github.com/DeafMist/waste-radar/internal/models"
	"github.com/DeafMist/waste-radar/internal/processing"
)

type rawPost struct {
	URL        string        `json:"url"`
	Content    string        `json:"content"`
	Title      string        `json:"title"`
	Poster     models.Poster `json:"poster"`
	Source     string        `json:"source"`
	ActivityID string        `json:"activity_id"`
	ScrapedAt  string        `json:"scraped_at"`
}

type postIndexer interface {
	IndexPost(ctx context.Context, doc models.PostDocument) error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// dlqBackoff is the first delay between DLQ write attempts; it doubles each time.
var dlqBackoff = time.Second

type worker struct {
	log      *slog.Logger
	cfg      *config.Worker
	indexer  postIndexer
	cache    *dedupe.Cache
	enricher *classifier.Enricher
	metrics  *metrics.Metrics
}

func main() {
	log := logger.New("worker")
	cfg, err := config.LoadWorker()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	esClient, err := elasticsearch.Connect(ctx, cfg.ElasticsearchAddr, cfg.ElasticsearchIndex, log, elasticsearch.DefaultConnectOptions())
	if err != nil {
		log.Error("init elasticsearch", slog.Any("err", err))
		os.Exit(1)
	}
	if err := esClient.EnsureIndex(ctx); err != nil {
		log.Error("ensure index", slog.Any("err", err))
		os.Exit(1)
	}

	cls, err := bootstrap.NewClassification(ctx, cfg.Classifier, log)
	if err != nil {
		log.Error("init classifier", slog.Any("err", err))
		os.Exit(1)
	}

	m := metrics.New()
	go serveMetrics(ctx, log, cfg.MetricsAddr, m)

	w := &worker{
		log:      log,
		cfg:      cfg,
		indexer:  esClient,
		cache:    dedupe.NewCache(cfg.DedupeCapacity, cfg.DedupeTTL),
		enricher: classifier.NewEnricher(cls.Classifier, log, m),
		metrics:  m,
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.KafkaBrokers,
		Topic:          cfg.KafkaTopic,
		GroupID:        cfg.KafkaConsumer,
		QueueCapacity:  cfg.BatchSize,
		MinBytes:       1e3,
		MaxBytes:       10e6,
		CommitInterval: 0, // manual commit only
	})
	defer reader.Close()

	dlqTopic := cfg.KafkaTopic + "_dlq"
	dlqWriter := kafka.NewWriter(kafka.WriterConfig{
		Brokers:     cfg.KafkaBrokers,
		Topic:       dlqTopic,
		MaxAttempts: 3,
	})
	defer dlqWriter.Close()

	log.Info("worker started",
		slog.String("topic", cfg.KafkaTopic),
		slog.String("group", cfg.KafkaConsumer),
		slog.String("dlq_topic", dlqTopic),
		slog.String("strategy", cls.Classifier.Name()),
	)

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				log.Info("context canceled, stopping")
				return
			}
			log.Error("fetch message", slog.Any("err", err))
			continue
		}

		if err := w.processMessage(ctx, msg); err != nil {
			log.Warn("process message failed, sending to DLQ",
				slog.Any("err", err),
				slog.Int("partition", msg.Partition),
				slog.Int64("offset", msg.Offset),
			)

			if !sendToDLQ(ctx, log, dlqWriter, msg, err) {
				if ctx.Err() != nil {
					return
				}
				// skip the commit so the message is redelivered after a restart
				continue
			}
		}

		if err := reader.CommitMessages(ctx, msg); err != nil {
			log.Error("commit message", slog.Any("err", err))
		}
	}
}

func serveMetrics(ctx context.Context, log *slog.Logger, addr string, m *metrics.Metrics) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("metrics server starting", slog.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("metrics server stopped", slog.Any("err", err))
	}
}

// sendToDLQ copies msg to the dead letter topic with the failure attached.
// It reports whether the write eventually succeeded.
func sendToDLQ(ctx context.Context, log *slog.Logger, dlq messageWriter, msg kafka.Message, cause error) bool {
	dlqMsg := kafka.Message{
		Key:   msg.Key,
		Value: msg.Value,
		Headers: append(msg.Headers,
			kafka.Header{Key: "original_partition", Value: []byte(fmt.Sprintf("%d", msg.Partition))},
			kafka.Header{Key: "original_offset", Value: []byte(fmt.Sprintf("%d", msg.Offset))},
			kafka.Header{Key: "error", Value: []byte(cause.Error())},
			kafka.Header{Key: "timestamp", Value: []byte(time.Now().UTC().Format(time.RFC3339))},
		),
	}

	for attempt := range 5 {
		dlqErr := dlq.WriteMessages(ctx, dlqMsg)
		if dlqErr == nil {
			log.Info("message sent to DLQ",
				slog.Int("partition", msg.Partition),
				slog.Int64("offset", msg.Offset),
				slog.Int("attempt", attempt+1),
			)
			return true
		}

		backoff := dlqBackoff << uint(attempt)
		log.Warn("DLQ write failed, retrying",
			slog.Any("err", dlqErr),
			slog.Int("attempt", attempt+1),
			slog.Duration("backoff", backoff),
		)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			log.Info("context canceled during DLQ retry")
			return false
		}
	}

	log.Error("DLQ write exhausted retries, message may be lost if later messages commit",
		slog.Int("partition", msg.Partition),
		slog.Int64("offset", msg.Offset),
	)
	return false
}

// processMessage turns one raw post into an indexed, classified document.
// Classification failures are not message failures: the post is indexed with
// the fallback category and the failure is only logged and counted.
func (w *worker) processMessage(ctx context.Context, msg kafka.Message) error {
	var payload rawPost
	if err := json.Unmarshal(msg.Value, &payload); err != nil {
		return err
	}

	postURL := strings.TrimSpace(payload.URL)
	content := processing.NormalizeContent(payload.Content)
	title := strings.TrimSpace(payload.Title)
	if postURL == "" {
		return errors.New("missing post url")
	}
	if title == "" && content == "" {
		return errors.New("empty payload")
	}

	fingerprint := processing.Fingerprint(title, content)
	if w.cache.Unchanged(postURL, fingerprint) {
		w.metrics.ObserveDuplicate()
		w.log.Debug("duplicate post", slog.String("url", postURL))
		return nil
	}

	ts := parseTimestamp(payload.ScrapedAt)
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	activityID := strings.TrimSpace(payload.ActivityID)
	if activityID == "" {
		activityID = processing.ExtractActivityID(postURL)
	}

	source := strings.TrimSpace(payload.Source)
	if source == "" {
		source = "unknown"
	}

	post := models.Post{
		URL:        postURL,
		Content:    content,
		Title:      title,
		Poster:     payload.Poster,
		Source:     source,
		ActivityID: activityID,
		ScrapedAt:  ts,
	}

	// the enricher already logged and counted any fallback
	enriched, _ := w.enricher.Enrich(ctx, post)

	if enriched.Title == "" {
		enriched.Title = processing.GenerateTitleFromText(content, 10)
	}

	cleaned := processing.CleanText(content)
	keywords := processing.ExtractKeywords(enriched.Title+" "+cleaned, w.cfg.KeywordLimit, w.cfg.KeywordMinLength)

	doc := models.NewPostDocument(processing.BuildDocumentID(postURL), enriched, keywords, fingerprint)

	if err := w.indexer.IndexPost(ctx, doc); err != nil {
		return err
	}

	w.cache.Record(postURL, fingerprint)
	w.metrics.ObserveIndexed()
	w.log.Info("indexed post",
		slog.String("id", doc.ID),
		slog.String("url", doc.URL),
		slog.String("category", doc.WasteCategory),
		slog.String("requirement_type", string(doc.RequirementType)),
	)
	return nil
}

func parseTimestamp(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}

	formats := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05",
	}

	for _, f := range formats {
		if ts, err := time.Parse(f, raw); err == nil {
			return ts
		}
	}

	return time.Time{}
}
