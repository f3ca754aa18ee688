package config

import (
	"context"
	"log/slog"
	"testing"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/neo-risk-etl/internal/domain"
)

const (
	defaultBroker = "localhost:9092"
	testAPIKey    = "test-api-key"
)

func fixClock(t *testing.T, day string) {
	t.Helper()
	now, err := time.Parse(time.RFC3339, day+"T15:04:05Z")
	require.NoError(t, err)
	domain.SetClock(clockwork.NewFakeClockAt(now))
	t.Cleanup(func() { domain.SetClock(clockwork.NewRealClock()) })
}

func TestLoad_Defaults(t *testing.T) {
	fixClock(t, "2024-06-30")
	t.Setenv("NASA_API_KEY", testAPIKey)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, testAPIKey, cfg.NASAAPIKey)
	assert.Equal(t, "https://api.nasa.gov/neo/rest/v1/feed", cfg.NeoWsBaseURL)
	assert.Equal(t, 90, cfg.DaysToFetch)
	assert.Equal(t, 7, cfg.ChunkDays)
	assert.Equal(t, "2024-04-02", domain.FormatDate(cfg.Range.Start))
	assert.Equal(t, "2024-06-30", domain.FormatDate(cfg.Range.End))
	assert.Equal(t, 90, cfg.Range.Days())

	assert.Equal(t, 30*time.Second, cfg.FeedTimeout)
	assert.Equal(t, 3, cfg.FeedMaxAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.FeedRetryBackoff)
	assert.Equal(t, time.Second, cfg.FeedRequestInterval)
	assert.False(t, cfg.ForceRefresh)

	assert.Equal(t, domain.DefaultScoringConfig(), cfg.Scoring)

	assert.Equal(t, StorageFile, cfg.StorageBackend)
	assert.Equal(t, "data", cfg.DataDir)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Empty(t, cfg.RedisPassword)
	assert.Zero(t, cfg.RedisDB)
	assert.Equal(t, "neo:", cfg.RedisKeyPrefix)
	assert.Empty(t, cfg.DatabaseURL)
	assert.Equal(t, 8, cfg.StoreCacheEntries)

	assert.False(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{defaultBroker}, cfg.KafkaBrokers)
	assert.Equal(t, "neo-scored-approaches", cfg.KafkaSinkTopic)

	assert.True(t, cfg.Serve)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("NASA_API_KEY", testAPIKey)
	t.Setenv("NEOWS_BASE_URL", "http://localhost:9999/feed")
	t.Setenv("START_DATE", "2024-01-01")
	t.Setenv("END_DATE", "2024-01-31")
	t.Setenv("CHUNK_DAYS", "5")
	t.Setenv("FEED_TIMEOUT", "5s")
	t.Setenv("FEED_MAX_ATTEMPTS", "5")
	t.Setenv("FEED_RETRY_BACKOFF", "1s")
	t.Setenv("FEED_REQUEST_INTERVAL", "0s")
	t.Setenv("FORCE_REFRESH", "true")
	t.Setenv("RISK_THRESHOLD", "0.75")
	t.Setenv("ANOMALY_THRESHOLD", "3")
	t.Setenv("HAZARD_BOOST", "0.2")
	t.Setenv("STORAGE_BACKEND", "Redis")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("REDIS_PASSWORD", "secret")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("REDIS_KEY_PREFIX", "test:")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_SINK_TOPIC", "custom-sink")
	t.Setenv("SERVE", "false")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:9999/feed", cfg.NeoWsBaseURL)
	assert.Equal(t, "2024-01-01..2024-01-31", cfg.Range.String())
	assert.Equal(t, 5, cfg.ChunkDays)
	assert.Equal(t, 5*time.Second, cfg.FeedTimeout)
	assert.Equal(t, 5, cfg.FeedMaxAttempts)
	assert.Equal(t, time.Second, cfg.FeedRetryBackoff)
	assert.Zero(t, cfg.FeedRequestInterval)
	assert.True(t, cfg.ForceRefresh)
	assert.Equal(t, domain.ScoringConfig{RiskThreshold: 0.75, AnomalyThreshold: 3, HazardBoost: 0.2}, cfg.Scoring)
	assert.Equal(t, StorageRedis, cfg.StorageBackend)
	assert.Equal(t, "redis:6379", cfg.RedisAddr)
	assert.Equal(t, "secret", cfg.RedisPassword)
	assert.Equal(t, 2, cfg.RedisDB)
	assert.Equal(t, "test:", cfg.RedisKeyPrefix)
	assert.True(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-sink", cfg.KafkaSinkTopic)
	assert.False(t, cfg.Serve)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
}

func TestLoad_LogSettingsDriveSharedLogger(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	for _, tc := range []struct {
		level     string
		debug     bool
		warnLevel bool
	}{
		{"debug", true, true},
		{"info", false, true},
		{"error", false, false},
	} {
		t.Run(tc.level, func(t *testing.T) {
			t.Setenv("NASA_API_KEY", testAPIKey)
			t.Setenv("LOG_LEVEL", tc.level)
			t.Setenv("LOG_FORMAT", "text")
			cfg, err := Load()
			require.NoError(t, err)

			logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
			assert.Equal(t, tc.debug, logger.Enabled(context.Background(), slog.LevelDebug))
			assert.Equal(t, tc.warnLevel, logger.Enabled(context.Background(), slog.LevelWarn))
		})
	}
}

func TestLoad_PostgresBackend(t *testing.T) {
	t.Setenv("NASA_API_KEY", testAPIKey)
	t.Setenv("STORAGE_BACKEND", "postgres")
	t.Setenv("DATABASE_URL", " postgres://neo:neo@db:5432/neo?sslmode=disable ")
	t.Setenv("STORE_CACHE_ENTRIES", "0")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StoragePostgres, cfg.StorageBackend)
	assert.Equal(t, "postgres://neo:neo@db:5432/neo?sslmode=disable", cfg.DatabaseURL)
	assert.Zero(t, cfg.StoreCacheEntries)
}

func TestLoad_PartialRange(t *testing.T) {
	fixClock(t, "2024-06-30")
	t.Setenv("NASA_API_KEY", testAPIKey)
	t.Setenv("DAYS_TO_FETCH", "10")

	t.Run("end only", func(t *testing.T) {
		t.Setenv("END_DATE", "2024-03-10")
		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "2024-03-01..2024-03-10", cfg.Range.String())
	})

	t.Run("start only", func(t *testing.T) {
		t.Setenv("START_DATE", "2024-06-25")
		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "2024-06-25..2024-06-30", cfg.Range.String())
	})
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "missing api key", env: map[string]string{"NASA_API_KEY": ""}},
		{name: "zero days", env: map[string]string{"DAYS_TO_FETCH": "0"}},
		{name: "non-numeric days", env: map[string]string{"DAYS_TO_FETCH": "ninety"}},
		{name: "zero chunk", env: map[string]string{"CHUNK_DAYS": "0"}},
		{name: "chunk beyond feed limit", env: map[string]string{"CHUNK_DAYS": "8"}},
		{name: "inverted range", env: map[string]string{"START_DATE": "2024-02-01", "END_DATE": "2024-01-01"}},
		{name: "bad start date", env: map[string]string{"START_DATE": "01/02/2024"}},
		{name: "bad timeout", env: map[string]string{"FEED_TIMEOUT": "soon"}},
		{name: "zero timeout", env: map[string]string{"FEED_TIMEOUT": "0s"}},
		{name: "zero attempts", env: map[string]string{"FEED_MAX_ATTEMPTS": "0"}},
		{name: "risk threshold above one", env: map[string]string{"RISK_THRESHOLD": "1.5"}},
		{name: "negative anomaly threshold", env: map[string]string{"ANOMALY_THRESHOLD": "-1"}},
		{name: "negative hazard boost", env: map[string]string{"HAZARD_BOOST": "-0.1"}},
		{name: "unknown backend", env: map[string]string{"STORAGE_BACKEND": "s3"}},
		{name: "postgres without url", env: map[string]string{"STORAGE_BACKEND": "postgres"}},
		{name: "negative store cache", env: map[string]string{"STORE_CACHE_ENTRIES": "-1"}},
		{name: "bad bool", env: map[string]string{"FORCE_REFRESH": "sometimes"}},
		{name: "bad shutdown timeout", env: map[string]string{"SHUTDOWN_TIMEOUT": "invalid"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("NASA_API_KEY", testAPIKey)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrConfiguration)
		})
	}
}
