package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"

	"github.com/couchcryptid/neo-risk-etl/internal/domain"
)

// Storage backends.
const (
	StorageFile     = "file"
	StorageRedis    = "redis"
	StoragePostgres = "postgres"
)

// maxChunkDays is the widest range the NeoWs feed serves per request.
const maxChunkDays = 7

// Config holds all service settings, populated from environment variables.
type Config struct {
	NASAAPIKey   string
	NeoWsBaseURL string
	DaysToFetch  int
	Range        domain.DateRange
	ChunkDays    int

	FeedTimeout         time.Duration
	FeedMaxAttempts     int
	FeedRetryBackoff    time.Duration
	FeedRequestInterval time.Duration
	ForceRefresh        bool

	Scoring domain.ScoringConfig

	// Artifact storage.
	StorageBackend string
	DataDir        string
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	RedisKeyPrefix string
	DatabaseURL    string
	// StoreCacheEntries sizes the in-memory read cache in front of the store. Zero disables it.
	StoreCacheEntries int

	// Kafka sink.
	KafkaEnabled   bool
	KafkaBrokers   []string
	KafkaSinkTopic string

	Serve           bool
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
// Every failure wraps domain.ErrConfiguration.
func Load() (*Config, error) {
	cfg, err := load()
	switch {
	case err == nil:
		return cfg, nil
	case errors.Is(err, domain.ErrConfiguration):
		return nil, err
	default:
		return nil, fmt.Errorf("%w: %w", domain.ErrConfiguration, err)
	}
}

func load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	p := &parser{}
	cfg := &Config{
		NASAAPIKey:   strings.TrimSpace(os.Getenv("NASA_API_KEY")),
		NeoWsBaseURL: sharedcfg.EnvOrDefault("NEOWS_BASE_URL", "https://api.nasa.gov/neo/rest/v1/feed"),
		DaysToFetch:  p.intVar("DAYS_TO_FETCH", 90),
		ChunkDays:    p.intVar("CHUNK_DAYS", domain.DefaultChunkDays),

		FeedTimeout:         p.durationVar("FEED_TIMEOUT", 30*time.Second),
		FeedMaxAttempts:     p.intVar("FEED_MAX_ATTEMPTS", 3),
		FeedRetryBackoff:    p.durationVar("FEED_RETRY_BACKOFF", 500*time.Millisecond),
		FeedRequestInterval: p.durationVar("FEED_REQUEST_INTERVAL", time.Second),
		ForceRefresh:        p.boolVar("FORCE_REFRESH", false),

		Scoring: domain.ScoringConfig{
			RiskThreshold:    p.floatVar("RISK_THRESHOLD", 0.6),
			AnomalyThreshold: p.floatVar("ANOMALY_THRESHOLD", 2.0),
			HazardBoost:      p.floatVar("HAZARD_BOOST", 0),
		},

		StorageBackend: strings.ToLower(sharedcfg.EnvOrDefault("STORAGE_BACKEND", StorageFile)),
		DataDir:        sharedcfg.EnvOrDefault("DATA_DIR", "data"),
		RedisAddr:      sharedcfg.EnvOrDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		RedisDB:        p.intVar("REDIS_DB", 0),
		RedisKeyPrefix: sharedcfg.EnvOrDefault("REDIS_KEY_PREFIX", "neo:"),
		DatabaseURL:    strings.TrimSpace(os.Getenv("DATABASE_URL")),

		StoreCacheEntries: p.intVar("STORE_CACHE_ENTRIES", 8),

		KafkaEnabled:   p.boolVar("KAFKA_ENABLED", false),
		KafkaBrokers:   sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSinkTopic: sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "neo-scored-approaches"),

		Serve:           p.boolVar("SERVE", true),
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
	}
	startDate := p.dateVar("START_DATE")
	endDate := p.dateVar("END_DATE")
	if p.err != nil {
		return nil, p.err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	r, err := resolveRange(startDate, endDate, cfg.DaysToFetch)
	if err != nil {
		return nil, err
	}
	cfg.Range = r
	return cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.NASAAPIKey == "":
		return errors.New("NASA_API_KEY is required")
	case c.DaysToFetch < 1:
		return errors.New("DAYS_TO_FETCH must be at least 1")
	case c.ChunkDays < 1 || c.ChunkDays > maxChunkDays:
		return fmt.Errorf("CHUNK_DAYS must be between 1 and %d", maxChunkDays)
	case c.FeedTimeout <= 0:
		return errors.New("FEED_TIMEOUT must be positive")
	case c.FeedMaxAttempts < 1:
		return errors.New("FEED_MAX_ATTEMPTS must be at least 1")
	case c.FeedRetryBackoff <= 0:
		return errors.New("FEED_RETRY_BACKOFF must be positive")
	case c.FeedRequestInterval < 0:
		return errors.New("FEED_REQUEST_INTERVAL must not be negative")
	case c.Scoring.RiskThreshold < 0 || c.Scoring.RiskThreshold > 1:
		return errors.New("RISK_THRESHOLD must be within [0, 1]")
	case c.Scoring.AnomalyThreshold <= 0:
		return errors.New("ANOMALY_THRESHOLD must be positive")
	case c.Scoring.HazardBoost < 0 || c.Scoring.HazardBoost > 1:
		return errors.New("HAZARD_BOOST must be within [0, 1]")
	case c.StorageBackend != StorageFile && c.StorageBackend != StorageRedis && c.StorageBackend != StoragePostgres:
		return fmt.Errorf("STORAGE_BACKEND must be %q, %q or %q", StorageFile, StorageRedis, StoragePostgres)
	case c.StorageBackend == StorageFile && c.DataDir == "":
		return errors.New("DATA_DIR is required for the file backend")
	case c.StorageBackend == StorageRedis && c.RedisAddr == "":
		return errors.New("REDIS_ADDR is required for the redis backend")
	case c.StorageBackend == StoragePostgres && c.DatabaseURL == "":
		return errors.New("DATABASE_URL is required for the postgres backend")
	case c.StoreCacheEntries < 0:
		return errors.New("STORE_CACHE_ENTRIES must not be negative")
	case c.KafkaEnabled && len(c.KafkaBrokers) == 0:
		return errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
	case c.KafkaEnabled && c.KafkaSinkTopic == "":
		return errors.New("KAFKA_SINK_TOPIC is required when KAFKA_ENABLED is true")
	}
	return nil
}

// resolveRange picks the fetch window. Explicit dates win; a missing end
// is today and a missing start is days-1 before the end.
func resolveRange(start, end time.Time, days int) (domain.DateRange, error) {
	if start.IsZero() && end.IsZero() {
		return domain.LastNDays(days)
	}
	if end.IsZero() {
		end = domain.Today()
	}
	if start.IsZero() {
		start = end.AddDate(0, 0, -(days - 1))
	}
	return domain.NewDateRange(start, end)
}

// parser reads typed variables and keeps the first error.
type parser struct {
	err error
}

func (p *parser) lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (p *parser) fail(key, value string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
}

func (p *parser) intVar(key string, def int) int {
	s, ok := p.lookup(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		p.fail(key, s, err)
		return def
	}
	return n
}

func (p *parser) floatVar(key string, def float64) float64 {
	s, ok := p.lookup(key)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		p.fail(key, s, err)
		return def
	}
	return f
}

func (p *parser) boolVar(key string, def bool) bool {
	s, ok := p.lookup(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		p.fail(key, s, err)
		return def
	}
	return b
}

func (p *parser) durationVar(key string, def time.Duration) time.Duration {
	s, ok := p.lookup(key)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		p.fail(key, s, err)
		return def
	}
	return d
}

func (p *parser) dateVar(key string) time.Time {
	s, ok := p.lookup(key)
	if !ok {
		return time.Time{}
	}
	d, err := domain.ParseDate(s)
	if err != nil {
		p.fail(key, s, err)
		return time.Time{}
	}
	return d
}
