package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/DeafMist/conflict-radar/backend/internal/config"
)

func clearProcessorEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"DB_PATH", "ELASTICSEARCH_ADDR", "ELASTICSEARCH_INDEX", "BUS_DRIVER", "KAFKA_BROKERS",
		"CONSUMER_GROUP", "NATS_URL", "RAW_TOPIC", "EVENTS_TOPIC", "NOMINATIM_URL",
		"NOMINATIM_RATE_LIMIT", "NOMINATIM_USER_AGENT", "NOMINATIM_TIMEOUT", "NER_URL",
		"CLASSIFICATION_THRESHOLD", "TRUSTED_PLATFORMS", "BATCH_SIZE", "BACKLOG_POLL_INTERVAL",
		"REGISTRY_REFRESH_INTERVAL", "REGISTRY_WAIT_INTERVAL", "REGISTRY_WAIT_ATTEMPTS",
		"DEDUPE_CAPACITY", "DEDUPE_TTL", "HTTP_ADDR", "DEAD_LETTER_TOPIC", "CONNECT_ATTEMPTS",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadProcessorDefaults(t *testing.T) {
	clearProcessorEnv(t)

	cfg, err := config.LoadProcessor()
	require.NoError(t, err)

	require.Equal(t, "data/radar.db", cfg.DBPath)
	require.Empty(t, cfg.ElasticsearchAddr)
	require.Equal(t, "events", cfg.ElasticsearchIndex)
	require.Equal(t, "kafka", cfg.Driver)
	require.Equal(t, []string{"kafka:9092"}, cfg.KafkaBrokers)
	require.Equal(t, "raw_messages", cfg.RawTopic)
	require.Equal(t, "processed_events", cfg.EventsTopic)
	require.Equal(t, "event-processor", cfg.ConsumerGroup)
	require.Empty(t, cfg.DeadLetterTopic)
	require.Equal(t, 10, cfg.ConnectAttempts)
	require.Equal(t, "osint-monitor/1.0", cfg.NominatimUserAgent)
	require.Equal(t, 1.0, cfg.NominatimRateLimit)
	require.Empty(t, cfg.NERURL)
	require.Equal(t, 0.8, cfg.ClassificationThreshold)
	require.Equal(t, []string{"telegram"}, cfg.TrustedPlatforms)
	require.Equal(t, 50, cfg.BatchSize)
	require.Equal(t, 30*time.Second, cfg.BacklogInterval)
	require.Equal(t, 5*time.Minute, cfg.RegistryRefresh)
	require.Equal(t, 10*time.Second, cfg.RegistryWaitInterval)
	require.Zero(t, cfg.RegistryWaitAttempts)
	require.Equal(t, ":8081", cfg.HTTPAddr)
}

func TestLoadProcessorOverrides(t *testing.T) {
	clearProcessorEnv(t)
	t.Setenv("BUS_DRIVER", "NATS")
	t.Setenv("NATS_URL", "nats://localhost:4222")
	t.Setenv("CLASSIFICATION_THRESHOLD", "0.65")
	t.Setenv("TRUSTED_PLATFORMS", "telegram, x ,")
	t.Setenv("BATCH_SIZE", "5")
	t.Setenv("BACKLOG_POLL_INTERVAL", "1m")
	t.Setenv("NOMINATIM_RATE_LIMIT", "2.5")
	t.Setenv("NER_URL", "http://ner:8000")
	t.Setenv("DEDUPE_TTL", "2h")

	cfg, err := config.LoadProcessor()
	require.NoError(t, err)

	require.Equal(t, "nats", cfg.Driver)
	require.Equal(t, "nats://localhost:4222", cfg.NATSURL)
	require.Equal(t, 0.65, cfg.ClassificationThreshold)
	require.Equal(t, []string{"telegram", "x"}, cfg.TrustedPlatforms)
	require.Equal(t, 5, cfg.BatchSize)
	require.Equal(t, time.Minute, cfg.BacklogInterval)
	require.Equal(t, 2.5, cfg.NominatimRateLimit)
	require.Equal(t, "http://ner:8000", cfg.NERURL)
	require.Equal(t, 2*time.Hour, cfg.DedupeTTL)
}

func TestLoadProcessorInvalid(t *testing.T) {
	cases := map[string][2]string{
		"unknown driver":   {"BUS_DRIVER", "rabbit"},
		"threshold range":  {"CLASSIFICATION_THRESHOLD", "1.5"},
		"batch size":       {"BATCH_SIZE", "-1"},
		"rate limit":       {"NOMINATIM_RATE_LIMIT", "-2"},
		"wait attempts":    {"REGISTRY_WAIT_ATTEMPTS", "-3"},
		"dedupe capacity":  {"DEDUPE_CAPACITY", "-10"},
		"backlog interval": {"BACKLOG_POLL_INTERVAL", "-5s"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			clearProcessorEnv(t)
			t.Setenv(kv[0], kv[1])
			_, err := config.LoadProcessor()
			require.Error(t, err)
		})
	}
}

func TestLoadProcessorBadDurationFallsBack(t *testing.T) {
	clearProcessorEnv(t)
	t.Setenv("REGISTRY_REFRESH_INTERVAL", "soon")

	cfg, err := config.LoadProcessor()
	require.NoError(t, err)
	require.Equal(t, 5*time.Minute, cfg.RegistryRefresh)
}

func TestLoadRetention(t *testing.T) {
	t.Setenv("ELASTICSEARCH_ADDR", "http://ret-es:9200")
	t.Setenv("ELASTICSEARCH_INDEX", "ret-index")
	t.Setenv("RETENTION_CRON", "12h")
	t.Setenv("RETENTION_MAX_AGE", "36h")
	t.Setenv("RETENTION_BATCH_SIZE", "123")

	cfg, err := config.LoadRetention()
	require.NoError(t, err)

	require.Equal(t, 12*time.Hour, cfg.Interval)
	require.Equal(t, 36*time.Hour, cfg.MaxAge)
	require.Equal(t, 123, cfg.BatchSize)
	require.Equal(t, "http://ret-es:9200", cfg.ElasticsearchAddr)
	require.Equal(t, "ret-index", cfg.ElasticsearchIndex)
}

func TestLoadRetentionRequiresElasticsearch(t *testing.T) {
	t.Setenv("ELASTICSEARCH_ADDR", "")
	_, err := config.LoadRetention()
	require.Error(t, err)
}

func TestLoadCtl(t *testing.T) {
	t.Setenv("DB_PATH", "/tmp/radar.db")
	t.Setenv("NOMINATIM_URL", "http://localhost:8080")
	t.Setenv("CLASSIFICATION_THRESHOLD", "")

	cfg, err := config.LoadCtl()
	require.NoError(t, err)
	require.Equal(t, "/tmp/radar.db", cfg.DBPath)
	require.Equal(t, "http://localhost:8080", cfg.NominatimURL)
	require.Equal(t, 0.8, cfg.ClassificationThreshold)
}
