package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/DeafMist/waste-radar/internal/classifier"
	"github.com/DeafMist/waste-radar/internal/config"
	"github.com/DeafMist/waste-radar/internal/dedupe"
	"github.com/DeafMist/waste-radar/internal/elasticsearch"
	"github.com/DeafMist/waste-radar/internal/metrics"
	"github.com/DeafMist/waste-radar/internal/models"
)

const (
	maxClassifyBody  = 1 << 20
	maxAggregateBody = 16 << 20
)

type postStore interface {
	Health(ctx context.Context) error
	SearchPosts(ctx context.Context, params elasticsearch.SearchParams) (*elasticsearch.SearchResult, error)
	CategoryCounts(ctx context.Context) (models.CategoryCounts, error)
}

type server struct {
	log      *slog.Logger
	cfg      *config.API
	store    postStore
	enricher *classifier.Enricher
	metrics  *metrics.Metrics
}

type errorResponse struct {
	Error string `json:"error"`
}

type classifyRequest struct {
	Content string `json:"content"`
	Title   string `json:"title"`
}

type classifyResponse struct {
	models.Classification
	Fallback bool `json:"fallback"`
}

type aggregateRequest struct {
	Posts []models.Post `json:"posts"`
}

type aggregateResponse struct {
	Posts    []models.ClassifiedPost `json:"posts"`
	Counts   models.CategoryCounts   `json:"counts"`
	Failures int                     `json:"failures"`
}

type statsResponse struct {
	Counts models.CategoryCounts `json:"counts"`
	Total  int                   `json:"total"`
}

func newRouter(s *server) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Get("/posts", s.handleSearch)
	r.Get("/posts/stats", s.handleStats)
	r.Post("/classify", s.handleClassify)
	r.Post("/aggregate", s.handleAggregate)

	return r
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.store.Health(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleSearch(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	q := r.URL.Query()
	requirement := strings.ToLower(strings.TrimSpace(q.Get("requirement_type")))
	switch models.RequirementType(requirement) {
	case "", models.RequirementSupply, models.RequirementDemand:
	default:
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("requirement_type must be supply or demand, got %q", requirement)})
		return
	}

	params := elasticsearch.SearchParams{
		Query:           strings.TrimSpace(q.Get("q")),
		Category:        strings.TrimSpace(q.Get("category")),
		Subcategory:     strings.TrimSpace(q.Get("subcategory")),
		RequirementType: requirement,
		Keywords:        parseCSV(q.Get("keywords")),
		Source:          strings.TrimSpace(q.Get("source")),
		From:            clampInt(q.Get("from"), 0, 10_000),
		Size:            clampInt(q.Get("size"), s.cfg.DefaultPage, s.cfg.MaxPage),
		Sort:            strings.TrimSpace(q.Get("sort")),
		Start:           parseTime(q.Get("start")),
		End:             parseTime(q.Get("end")),
	}

	result, err := s.store.SearchPosts(ctx, params)
	if err != nil {
		s.log.Error("search posts", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *server) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	counts, err := s.store.CategoryCounts(ctx)
	if err != nil {
		s.log.Error("category counts", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	total := 0
	for _, n := range counts {
		total += n
	}
	writeJSON(w, http.StatusOK, statsResponse{Counts: counts, Total: total})
}

func (s *server) handleClassify(w http.ResponseWriter, r *http.Request) {
	var req classifyRequest
	if err := decodeJSON(w, r, maxClassifyBody, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	cp, err := s.enricher.Enrich(r.Context(), models.Post{Content: req.Content, Title: req.Title})
	writeJSON(w, http.StatusOK, classifyResponse{Classification: cp.Classification, Fallback: err != nil})
}

func (s *server) handleAggregate(w http.ResponseWriter, r *http.Request) {
	var req aggregateRequest
	if err := decodeJSON(w, r, maxAggregateBody, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if len(req.Posts) > s.cfg.MaxBatch {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{
			Error: fmt.Sprintf("batch of %d posts exceeds limit of %d", len(req.Posts), s.cfg.MaxBatch),
		})
		return
	}

	classified, failures := s.enricher.EnrichAll(r.Context(), req.Posts)
	posts, counts := dedupe.Aggregate(classified)

	writeJSON(w, http.StatusOK, aggregateResponse{Posts: posts, Counts: counts, Failures: failures})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func parseTime(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return &ts
	}
	return nil
}

func parseCSV(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func clampInt(raw string, fallback, max int) int {
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	if value <= 0 {
		return fallback
	}
	if value > max {
		return max
	}
	return value
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
