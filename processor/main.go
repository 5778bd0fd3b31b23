package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/DeafMist/conflict-radar/backend/internal/bus"
	"github.com/DeafMist/conflict-radar/backend/internal/config"
	"github.com/DeafMist/conflict-radar/backend/internal/dedupe"
	"github.com/DeafMist/conflict-radar/backend/internal/elasticsearch"
	"github.com/DeafMist/conflict-radar/backend/internal/geocoder"
	"github.com/DeafMist/conflict-radar/backend/internal/logger"
	"github.com/DeafMist/conflict-radar/backend/internal/metrics"
	"github.com/DeafMist/conflict-radar/backend/internal/ner"
	"github.com/DeafMist/conflict-radar/backend/internal/pipeline"
	"github.com/DeafMist/conflict-radar/backend/internal/retry"
	"github.com/DeafMist/conflict-radar/backend/internal/store"
	"github.com/DeafMist/conflict-radar/backend/internal/supervisor"
	"github.com/DeafMist/conflict-radar/backend/internal/tagger"
)

func main() {
	log := logger.New("processor")
	cfg, err := config.LoadProcessor()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := run(ctx, log, cfg); err != nil {
		log.Error("processor stopped", slog.Any("err", err))
		os.Exit(1)
	}
	log.Info("processor stopped")
}

func run(ctx context.Context, log *slog.Logger, cfg *config.Processor) error {
	policy := retry.Default
	policy.Attempts = cfg.ConnectAttempts

	var st *store.Store
	err := retry.Do(ctx, log, "open store", policy, func(ctx context.Context) error {
		var err error
		st, err = store.Open(ctx, cfg.DBPath)
		return err
	})
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()
	log.Info("store ready", slog.String("path", st.Path()))

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	feeds, err := connectBus(ctx, log, cfg, policy)
	if err != nil {
		return err
	}
	defer feeds.Close()

	var (
		es        *elasticsearch.Client
		pipeOpts  = []pipeline.Option{pipeline.WithLogger(log), pipeline.WithMetrics(m)}
		indexInfo = "disabled"
	)
	if cfg.ElasticsearchAddr != "" {
		es, err = connectElasticsearch(ctx, log, cfg, policy)
		if err != nil {
			return err
		}
		pipeOpts = append(pipeOpts, pipeline.WithIndexer(es))
		indexInfo = cfg.ElasticsearchIndex
	}

	geo := geocoder.New(
		geocoder.NewNominatim(cfg.NominatimURL, cfg.NominatimUserAgent, cfg.NominatimTimeout),
		geocoder.NewLimiter(cfg.NominatimRateLimit),
		geocoder.WithPersistentCache(st),
		geocoder.WithLogger(log),
		geocoder.WithMetrics(m),
	)

	var extractor ner.Extractor = ner.NewGazetteer(nil)
	if cfg.NERURL != "" {
		extractor = ner.NewHTTPExtractor(cfg.NERURL, cfg.NERTimeout)
	}

	registry := tagger.NewSharedRegistry()
	orchestrator := pipeline.New(st, registry, extractor, geo, feeds.events, pipeline.Config{
		Threshold:        cfg.ClassificationThreshold,
		TrustedPlatforms: cfg.TrustedPlatforms,
	}, pipeOpts...)

	supOpts := []supervisor.Option{
		supervisor.WithLogger(log),
		supervisor.WithMetrics(m),
		supervisor.WithDedupe(dedupe.NewCache[int64](cfg.DedupeCapacity, cfg.DedupeTTL)),
	}
	if feeds.deadLetter != nil {
		supOpts = append(supOpts, supervisor.WithDeadLetter(feeds.deadLetter))
	}
	sup := supervisor.New(st, orchestrator, feeds.notifications, registry, supervisor.Config{
		BatchSize:            cfg.BatchSize,
		BacklogInterval:      cfg.BacklogInterval,
		RegistryRefresh:      cfg.RegistryRefresh,
		RegistryWaitInterval: cfg.RegistryWaitInterval,
		RegistryWaitAttempts: cfg.RegistryWaitAttempts,
	}, supOpts...)

	srv := &server{log: log, store: st, registry: registry, gatherer: reg}
	if es != nil {
		srv.search = es
	}
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
	}
	go func() {
		log.Info("ops server starting", slog.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("ops server stopped", slog.Any("err", err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("ops server shutdown", slog.Any("err", err))
		}
	}()

	log.Info("processor started",
		slog.String("bus", cfg.Driver),
		slog.String("raw_topic", cfg.RawTopic),
		slog.String("events_topic", cfg.EventsTopic),
		slog.String("event_index", indexInfo),
		slog.Bool("ner_service", cfg.NERURL != ""),
		slog.Float64("threshold", cfg.ClassificationThreshold),
		slog.Any("trusted_platforms", cfg.TrustedPlatforms),
	)

	if err := sup.Run(ctx); err != nil {
		return err
	}
	log.Info("shutdown signal received")
	return nil
}

type transport struct {
	notifications bus.Subscriber
	events        bus.Publisher
	deadLetter    bus.Publisher
	closers       []func() error
}

func (t *transport) Close() {
	for i := len(t.closers) - 1; i >= 0; i-- {
		_ = t.closers[i]()
	}
}

func connectBus(ctx context.Context, log *slog.Logger, cfg *config.Processor, policy retry.Policy) (*transport, error) {
	t := &transport{}

	switch cfg.Driver {
	case bus.DriverKafka:
		err := retry.Do(ctx, log, "kafka ping", policy, func(ctx context.Context) error {
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			return bus.PingKafka(pingCtx, cfg.KafkaBrokers)
		})
		if err != nil {
			return nil, fmt.Errorf("connect kafka: %w", err)
		}
		sub := bus.NewKafkaSubscriber(cfg.KafkaBrokers, cfg.RawTopic, cfg.ConsumerGroup)
		pub := bus.NewKafkaPublisher(cfg.KafkaBrokers, cfg.EventsTopic)
		t.notifications, t.events = sub, pub
		t.closers = append(t.closers, sub.Close, pub.Close)
		if cfg.DeadLetterTopic != "" {
			dlq := bus.NewKafkaPublisher(cfg.KafkaBrokers, cfg.DeadLetterTopic)
			t.deadLetter = dlq
			t.closers = append(t.closers, dlq.Close)
		}

	case bus.DriverNATS:
		var nc *nats.Conn
		err := retry.Do(ctx, log, "nats connect", policy, func(context.Context) error {
			var err error
			nc, err = bus.DialNATS(cfg.NATSURL, "conflict-radar-processor")
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("connect nats: %w", err)
		}
		t.closers = append(t.closers, func() error { nc.Close(); return nil })

		sub, err := bus.NewNATSSubscriber(nc, cfg.RawTopic, cfg.ConsumerGroup)
		if err != nil {
			t.Close()
			return nil, fmt.Errorf("subscribe %s: %w", cfg.RawTopic, err)
		}
		pub := bus.NewNATSPublisher(nc, cfg.EventsTopic)
		t.notifications, t.events = sub, pub
		t.closers = append(t.closers, sub.Close, pub.Close)
		if cfg.DeadLetterTopic != "" {
			dlq := bus.NewNATSPublisher(nc, cfg.DeadLetterTopic)
			t.deadLetter = dlq
			t.closers = append(t.closers, dlq.Close)
		}
	}

	log.Info("bus connected", slog.String("driver", cfg.Driver))
	return t, nil
}

func connectElasticsearch(ctx context.Context, log *slog.Logger, cfg *config.Processor, policy retry.Policy) (*elasticsearch.Client, error) {
	var es *elasticsearch.Client
	err := retry.Do(ctx, log, "elasticsearch connect", policy, func(ctx context.Context) error {
		client, err := elasticsearch.New(cfg.ElasticsearchAddr, cfg.ElasticsearchIndex, log)
		if err != nil {
			return err
		}
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx); err != nil {
			return err
		}
		if err := client.EnsureIndex(pingCtx); err != nil {
			return err
		}
		es = client
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("connect elasticsearch: %w", err)
	}
	log.Info("connected to elasticsearch", slog.String("index", cfg.ElasticsearchIndex))
	return es, nil
}
