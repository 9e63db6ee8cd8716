package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Common contains Elasticsearch parameters shared by every service.
type Common struct {
	ElasticsearchAddr  string
	ElasticsearchIndex string
}

// Classifier selects and configures the classification strategy.
type Classifier struct {
	Mode                string
	TaxonomyPath        string
	EmbeddingBackend    string
	EmbeddingDim        int
	OpenAIAPIKey        string
	OpenAIBaseURL       string
	OpenAIModel         string
	SemanticRequirement bool
}

// Worker holds configuration for the Kafka -> Elasticsearch worker.
type Worker struct {
	Common
	Classifier
	KafkaBrokers     []string
	KafkaTopic       string
	KafkaConsumer    string
	KeywordLimit     int
	KeywordMinLength int
	DedupeCapacity   int
	DedupeTTL        time.Duration
	BatchSize        int
	MetricsAddr      string
}

// API describes HTTP-layer configuration.
type API struct {
	Common
	Classifier
	BindAddr    string
	DefaultPage int
	MaxPage     int
	MaxBatch    int
}

// Retention configures the cleanup loop.
type Retention struct {
	Common
	Interval  time.Duration
	MaxAge    time.Duration
	BatchSize int
}

// Scraper configures the one-shot search -> classify -> export run.
type Scraper struct {
	Classifier
	TavilyAPIKey   string
	TavilyURL      string
	SearchTerms    []string
	MaxResults     int
	SearchDepth    string
	IncludeDomains []string
	RatePerSec     float64
	Concurrency    int
	Retries        int
	Timeout        time.Duration
	OutputDir      string
	Publish        bool
	KafkaBrokers   []string
	KafkaTopic     string
}

// LoadClassifier reads the classifier section shared by several binaries.
func LoadClassifier() (Classifier, error) {
	c := Classifier{
		Mode:                strings.ToLower(getEnv("CLASSIFIER_MODE", "lexical")),
		TaxonomyPath:        getEnv("TAXONOMY_PATH", ""),
		EmbeddingBackend:    strings.ToLower(getEnv("EMBEDDING_BACKEND", "hashing")),
		EmbeddingDim:        getInt("EMBEDDING_DIM", 256),
		OpenAIAPIKey:        getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:       getEnv("OPENAI_BASE_URL", ""),
		OpenAIModel:         getEnv("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),
		SemanticRequirement: getBool("SEMANTIC_REQUIREMENT", true),
	}

	switch c.Mode {
	case "lexical", "semantic":
	default:
		return c, fmt.Errorf("CLASSIFIER_MODE must be lexical or semantic, got %q", c.Mode)
	}
	switch c.EmbeddingBackend {
	case "hashing", "openai":
	default:
		return c, fmt.Errorf("EMBEDDING_BACKEND must be hashing or openai, got %q", c.EmbeddingBackend)
	}
	if c.EmbeddingDim < 0 {
		return c, fmt.Errorf("EMBEDDING_DIM cannot be negative")
	}
	if c.Mode == "semantic" && c.EmbeddingBackend == "openai" && c.OpenAIAPIKey == "" {
		return c, fmt.Errorf("OPENAI_API_KEY is required for the openai embedding backend")
	}

	return c, nil
}

// LoadWorker builds a Worker config from environment variables.
func LoadWorker() (*Worker, error) {
	cls, err := LoadClassifier()
	if err != nil {
		return nil, err
	}

	c := &Worker{
		Common:           loadCommon(),
		Classifier:       cls,
		KafkaBrokers:     splitAndTrim(getEnv("KAFKA_BROKERS", "kafka:9092")),
		KafkaTopic:       getEnv("KAFKA_TOPIC", "posts_raw"),
		KafkaConsumer:    getEnv("KAFKA_CONSUMER_GROUP", "posts-worker"),
		KeywordLimit:     getInt("WORKER_KEYWORD_LIMIT", 8),
		KeywordMinLength: getInt("WORKER_KEYWORD_MIN_LEN", 4),
		DedupeCapacity:   getInt("WORKER_DEDUPE_CAPACITY", 20000),
		DedupeTTL:        getDuration("WORKER_DEDUPE_TTL", "24h"),
		BatchSize:        getInt("WORKER_BATCH_SIZE", 10),
		MetricsAddr:      getEnv("WORKER_METRICS_ADDR", ":9102"),
	}

	if len(c.KafkaBrokers) == 0 {
		return nil, fmt.Errorf("KAFKA_BROKERS must contain at least one broker")
	}
	if c.BatchSize <= 0 {
		return nil, fmt.Errorf("WORKER_BATCH_SIZE must be positive")
	}
	if c.DedupeCapacity <= 0 {
		return nil, fmt.Errorf("WORKER_DEDUPE_CAPACITY must be positive")
	}
	if c.KeywordLimit <= 0 {
		return nil, fmt.Errorf("WORKER_KEYWORD_LIMIT must be positive")
	}
	if c.KeywordMinLength < 0 {
		return nil, fmt.Errorf("WORKER_KEYWORD_MIN_LEN cannot be negative")
	}

	return c, nil
}

// LoadAPI builds an API config from environment variables.
func LoadAPI() (*API, error) {
	cls, err := LoadClassifier()
	if err != nil {
		return nil, err
	}

	c := &API{
		Common:      loadCommon(),
		Classifier:  cls,
		BindAddr:    getEnv("API_BIND_ADDR", "0.0.0.0:8080"),
		DefaultPage: getInt("API_PAGE_SIZE", 20),
		MaxPage:     getInt("API_MAX_PAGE_SIZE", 100),
		MaxBatch:    getInt("API_MAX_BATCH", 500),
	}

	if c.DefaultPage <= 0 {
		return nil, fmt.Errorf("API_PAGE_SIZE must be positive")
	}
	if c.MaxPage <= 0 {
		return nil, fmt.Errorf("API_MAX_PAGE_SIZE must be positive")
	}
	if c.DefaultPage > c.MaxPage {
		return nil, fmt.Errorf("API_PAGE_SIZE cannot exceed API_MAX_PAGE_SIZE")
	}
	if c.MaxBatch <= 0 {
		return nil, fmt.Errorf("API_MAX_BATCH must be positive")
	}

	return c, nil
}

// LoadRetention builds a Retention config from environment variables.
func LoadRetention() (*Retention, error) {
	c := &Retention{
		Common:    loadCommon(),
		Interval:  getDuration("RETENTION_CRON", "24h"),
		MaxAge:    getDuration("RETENTION_MAX_AGE", "720h"),
		BatchSize: getInt("RETENTION_BATCH_SIZE", 500),
	}

	if c.MaxAge <= 0 {
		return nil, fmt.Errorf("RETENTION_MAX_AGE must be positive")
	}
	if c.Interval <= 0 {
		return nil, fmt.Errorf("RETENTION_CRON must be positive")
	}
	if c.BatchSize <= 0 {
		return nil, fmt.Errorf("RETENTION_BATCH_SIZE must be positive")
	}

	return c, nil
}

// LoadScraper builds a Scraper config from environment variables.
func LoadScraper() (*Scraper, error) {
	cls, err := LoadClassifier()
	if err != nil {
		return nil, err
	}

	c := &Scraper{
		Classifier:     cls,
		TavilyAPIKey:   getEnv("TAVILY_API_KEY", ""),
		TavilyURL:      getEnv("TAVILY_URL", "https://api.tavily.com/search"),
		SearchTerms:    splitAndTrim(getEnv("SCRAPER_SEARCH_TERMS", "waste disposal,recycling service,hazardous waste,waste management")),
		MaxResults:     getInt("SCRAPER_MAX_RESULTS", 10),
		SearchDepth:    getEnv("SCRAPER_SEARCH_DEPTH", "advanced"),
		IncludeDomains: splitAndTrim(getEnv("SCRAPER_INCLUDE_DOMAINS", "linkedin.com/posts")),
		RatePerSec:     getFloat("SCRAPER_RATE_PER_SEC", 1),
		Concurrency:    getInt("SCRAPER_CONCURRENCY", 2),
		Retries:        getInt("SCRAPER_RETRIES", 3),
		Timeout:        getDuration("SCRAPER_TIMEOUT", "30s"),
		OutputDir:      getEnv("SCRAPER_OUTPUT_DIR", "waste_management_data"),
		Publish:        getBool("SCRAPER_PUBLISH", false),
		KafkaBrokers:   splitAndTrim(getEnv("KAFKA_BROKERS", "kafka:9092")),
		KafkaTopic:     getEnv("KAFKA_TOPIC", "posts_raw"),
	}

	if c.TavilyAPIKey == "" {
		return nil, fmt.Errorf("TAVILY_API_KEY is required")
	}
	if len(c.SearchTerms) == 0 {
		return nil, fmt.Errorf("SCRAPER_SEARCH_TERMS must contain at least one term")
	}
	if c.MaxResults <= 0 {
		return nil, fmt.Errorf("SCRAPER_MAX_RESULTS must be positive")
	}
	if c.RatePerSec <= 0 {
		return nil, fmt.Errorf("SCRAPER_RATE_PER_SEC must be positive")
	}
	if c.Concurrency <= 0 {
		return nil, fmt.Errorf("SCRAPER_CONCURRENCY must be positive")
	}
	if c.Retries < 0 {
		return nil, fmt.Errorf("SCRAPER_RETRIES cannot be negative")
	}
	if c.Publish && len(c.KafkaBrokers) == 0 {
		return nil, fmt.Errorf("KAFKA_BROKERS must contain at least one broker when SCRAPER_PUBLISH is set")
	}

	return c, nil
}

func loadCommon() Common {
	return Common{
		ElasticsearchAddr:  getEnv("ELASTICSEARCH_ADDR", "http://elasticsearch:9200"),
		ElasticsearchIndex: getEnv("ELASTICSEARCH_INDEX", "posts"),
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func getFloat(key string, fallback float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key, fallback string) time.Duration {
	raw := getEnv(key, fallback)
	d, err := time.ParseDuration(raw)
	if err != nil {
		fd, ferr := time.ParseDuration(fallback)
		if ferr != nil {
			panic(fmt.Sprintf("invalid fallback duration %q: %v", fallback, ferr))
		}
		return fd
	}
	return d
}

func splitAndTrim(raw string) []string {
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
