package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Common contains parameters shared by every service.
type Common struct {
	DBPath             string
	ElasticsearchAddr  string
	ElasticsearchIndex string
}

// Bus selects and configures the notification and broadcast transport.
type Bus struct {
	Driver        string
	KafkaBrokers  []string
	ConsumerGroup string
	NATSURL       string
	RawTopic      string
	EventsTopic   string
	// DeadLetterTopic receives undecodable notifications; empty disables it.
	DeadLetterTopic string
}

// Geocoding configures the external resolver and place extraction.
type Geocoding struct {
	NominatimURL       string
	NominatimUserAgent string
	NominatimRateLimit float64
	NominatimTimeout   time.Duration
	NERURL             string
	NERTimeout         time.Duration
}

// Processor holds configuration for the event processing service.
type Processor struct {
	Common
	Bus
	Geocoding
	HTTPAddr                string
	ClassificationThreshold float64
	TrustedPlatforms        []string
	BatchSize               int
	BacklogInterval         time.Duration
	RegistryRefresh         time.Duration
	RegistryWaitInterval    time.Duration
	RegistryWaitAttempts    int
	DedupeCapacity          int
	DedupeTTL               time.Duration
	ConnectAttempts         int
}

// Retention configures the event index cleanup loop.
type Retention struct {
	Common
	Interval  time.Duration
	MaxAge    time.Duration
	BatchSize int
}

// Ctl configures the admin command line tool.
type Ctl struct {
	Common
	Geocoding
	ClassificationThreshold float64
}

// LoadProcessor builds a Processor config from environment variables.
func LoadProcessor() (*Processor, error) {
	c := &Processor{
		Common:                  loadCommon(),
		Bus:                     loadBus(),
		Geocoding:               loadGeocoding(),
		HTTPAddr:                getEnv("HTTP_ADDR", ":8081"),
		ClassificationThreshold: getFloat("CLASSIFICATION_THRESHOLD", 0.8),
		TrustedPlatforms:        splitAndTrim(getEnv("TRUSTED_PLATFORMS", "telegram")),
		BatchSize:               getInt("BATCH_SIZE", 50),
		BacklogInterval:         getDuration("BACKLOG_POLL_INTERVAL", "30s"),
		RegistryRefresh:         getDuration("REGISTRY_REFRESH_INTERVAL", "5m"),
		RegistryWaitInterval:    getDuration("REGISTRY_WAIT_INTERVAL", "10s"),
		RegistryWaitAttempts:    getInt("REGISTRY_WAIT_ATTEMPTS", 0),
		DedupeCapacity:          getInt("DEDUPE_CAPACITY", 20000),
		DedupeTTL:               getDuration("DEDUPE_TTL", "1h"),
		ConnectAttempts:         getInt("CONNECT_ATTEMPTS", 10),
	}

	if err := c.Bus.validate(); err != nil {
		return nil, err
	}
	if err := c.Geocoding.validate(); err != nil {
		return nil, err
	}
	if c.ClassificationThreshold < 0 || c.ClassificationThreshold > 1 {
		return nil, fmt.Errorf("CLASSIFICATION_THRESHOLD must be within [0,1]")
	}
	if c.BatchSize <= 0 {
		return nil, fmt.Errorf("BATCH_SIZE must be positive")
	}
	if c.BacklogInterval <= 0 {
		return nil, fmt.Errorf("BACKLOG_POLL_INTERVAL must be positive")
	}
	if c.RegistryRefresh <= 0 {
		return nil, fmt.Errorf("REGISTRY_REFRESH_INTERVAL must be positive")
	}
	if c.RegistryWaitInterval <= 0 {
		return nil, fmt.Errorf("REGISTRY_WAIT_INTERVAL must be positive")
	}
	if c.RegistryWaitAttempts < 0 {
		return nil, fmt.Errorf("REGISTRY_WAIT_ATTEMPTS cannot be negative")
	}
	if c.DedupeCapacity <= 0 {
		return nil, fmt.Errorf("DEDUPE_CAPACITY must be positive")
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

	if c.ElasticsearchAddr == "" {
		return nil, fmt.Errorf("ELASTICSEARCH_ADDR is required for retention")
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

// LoadCtl builds a Ctl config from environment variables.
func LoadCtl() (*Ctl, error) {
	c := &Ctl{
		Common:                  loadCommon(),
		Geocoding:               loadGeocoding(),
		ClassificationThreshold: getFloat("CLASSIFICATION_THRESHOLD", 0.8),
	}
	if err := c.Geocoding.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func loadCommon() Common {
	return Common{
		DBPath:             getEnv("DB_PATH", "data/radar.db"),
		ElasticsearchAddr:  os.Getenv("ELASTICSEARCH_ADDR"),
		ElasticsearchIndex: getEnv("ELASTICSEARCH_INDEX", "events"),
	}
}

func loadBus() Bus {
	return Bus{
		Driver:          strings.ToLower(getEnv("BUS_DRIVER", "kafka")),
		KafkaBrokers:    splitAndTrim(getEnv("KAFKA_BROKERS", "kafka:9092")),
		ConsumerGroup:   getEnv("CONSUMER_GROUP", "event-processor"),
		NATSURL:         getEnv("NATS_URL", "nats://nats:4222"),
		RawTopic:        getEnv("RAW_TOPIC", "raw_messages"),
		EventsTopic:     getEnv("EVENTS_TOPIC", "processed_events"),
		DeadLetterTopic: os.Getenv("DEAD_LETTER_TOPIC"),
	}
}

func loadGeocoding() Geocoding {
	return Geocoding{
		NominatimURL:       getEnv("NOMINATIM_URL", "https://nominatim.openstreetmap.org"),
		NominatimUserAgent: getEnv("NOMINATIM_USER_AGENT", "osint-monitor/1.0"),
		NominatimRateLimit: getFloat("NOMINATIM_RATE_LIMIT", 1.0),
		NominatimTimeout:   getDuration("NOMINATIM_TIMEOUT", "10s"),
		NERURL:             os.Getenv("NER_URL"),
		NERTimeout:         getDuration("NER_TIMEOUT", "10s"),
	}
}

func (b Bus) validate() error {
	switch b.Driver {
	case "kafka":
		if len(b.KafkaBrokers) == 0 {
			return fmt.Errorf("KAFKA_BROKERS must contain at least one broker")
		}
	case "nats":
		if b.NATSURL == "" {
			return fmt.Errorf("NATS_URL is required when BUS_DRIVER=nats")
		}
	default:
		return fmt.Errorf("BUS_DRIVER must be kafka or nats, got %q", b.Driver)
	}
	if b.RawTopic == "" || b.EventsTopic == "" {
		return fmt.Errorf("RAW_TOPIC and EVENTS_TOPIC must be set")
	}
	return nil
}

func (g Geocoding) validate() error {
	if g.NominatimRateLimit <= 0 {
		return fmt.Errorf("NOMINATIM_RATE_LIMIT must be positive")
	}
	if g.NominatimTimeout <= 0 {
		return fmt.Errorf("NOMINATIM_TIMEOUT must be positive")
	}
	return nil
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
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
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
