// Package search fetches candidate posts from the Tavily search API.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"golang.org/x/time/rate"

	"github.com/DeafMist/waste-radar/internal/models"
	"github.com/DeafMist/waste-radar/internal/processing"
)

// DefaultURL is the public Tavily search endpoint.
const DefaultURL = "https://api.tavily.com/search"

// Source is stamped on every post fetched through Tavily.
const Source = "tavily"

// queryPrefix steers the search toward supply or demand posts. Tavily caps
// queries at 400 characters so the prefix stays short.
const queryPrefix = "Rephrase the query about supply or demand in waste management "

// ErrStatus is returned for non-retryable HTTP failures.
var ErrStatus = errors.New("tavily: unexpected status")

// Config tunes the Tavily client.
type Config struct {
	APIKey         string
	URL            string
	MaxResults     int
	SearchDepth    string
	IncludeDomains []string
	RatePerSec     float64
	Retries        int
	Timeout        time.Duration
	Backoff        time.Duration
	HTTPClient     *http.Client
}

// Tavily is a rate limited, retrying search client.
type Tavily struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	log     *slog.Logger
	now     func() time.Time
}

type request struct {
	Query          string   `json:"query"`
	IncludeDomains []string `json:"include_domains,omitempty"`
	MaxResults     int      `json:"max_results"`
	SearchDepth    string   `json:"search_depth"`
}

type result struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

type response struct {
	Results []result `json:"results"`
}

// NewTavily builds a client, filling unset fields with defaults.
func NewTavily(cfg Config, log *slog.Logger) *Tavily {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 10
	}
	if cfg.SearchDepth == "" {
		cfg.SearchDepth = "advanced"
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 1
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 500 * time.Millisecond
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Tavily{
		cfg:     cfg,
		http:    client,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), 1),
		log:     log,
		now:     time.Now,
	}
}

// Search runs one query and returns the posts that carry content.
func (t *Tavily) Search(ctx context.Context, term string) ([]models.Post, error) {
	payload, err := json.Marshal(request{
		Query:          queryPrefix + strings.TrimSpace(term),
		IncludeDomains: t.cfg.IncludeDomains,
		MaxResults:     t.cfg.MaxResults,
		SearchDepth:    t.cfg.SearchDepth,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal search request: %w", err)
	}

	backoff := retry.WithMaxRetries(uint64(t.cfg.Retries), retry.NewExponential(t.cfg.Backoff))
	parsed, err := retry.DoValue(ctx, backoff, func(ctx context.Context) (response, error) {
		if err := t.limiter.Wait(ctx); err != nil {
			return response{}, err
		}
		res, err := t.do(ctx, payload)
		if err != nil && retryable(err) {
			t.log.Debug("tavily request failed, retrying", "term", term, "err", err)
			return response{}, retry.RetryableError(err)
		}
		return res, err
	})
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", term, err)
	}

	scrapedAt := t.now().UTC()
	posts := make([]models.Post, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		content := processing.NormalizeContent(r.Content)
		if content == "" {
			continue
		}
		posts = append(posts, models.Post{
			URL:        strings.TrimSpace(r.URL),
			Content:    content,
			Title:      strings.TrimSpace(r.Title),
			Source:     Source,
			ActivityID: processing.ExtractActivityID(r.URL),
			ScrapedAt:  scrapedAt,
		})
	}
	return posts, nil
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.code, e.body)
}

func (e *statusError) Is(target error) bool {
	return target == ErrStatus
}

func retryable(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.code == http.StatusTooManyRequests || se.code >= http.StatusInternalServerError
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

func (t *Tavily) do(ctx context.Context, payload []byte) (response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.cfg.URL, bytes.NewReader(payload))
	if err != nil {
		return response{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+t.cfg.APIKey)

	res, err := t.http.Do(req)
	if err != nil {
		return response{}, fmt.Errorf("send request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 2048))
		return response{}, &statusError{code: res.StatusCode, body: strings.TrimSpace(string(body))}
	}

	var parsed response
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return response{}, fmt.Errorf("decode response: %w", err)
	}
	return parsed, nil
}
