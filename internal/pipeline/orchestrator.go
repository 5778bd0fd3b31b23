// Package pipeline turns one stored message into zero or more conflict events.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/DeafMist/conflict-radar/backend/internal/bus"
	"github.com/DeafMist/conflict-radar/backend/internal/classifier"
	"github.com/DeafMist/conflict-radar/backend/internal/elasticsearch"
	"github.com/DeafMist/conflict-radar/backend/internal/logger"
	"github.com/DeafMist/conflict-radar/backend/internal/metrics"
	"github.com/DeafMist/conflict-radar/backend/internal/models"
	"github.com/DeafMist/conflict-radar/backend/internal/ner"
	"github.com/DeafMist/conflict-radar/backend/internal/store"
	"github.com/DeafMist/conflict-radar/backend/internal/tagger"
)

// Outcome is the terminal state of one processing attempt.
type Outcome string

const (
	// OutcomeSkipped: the message was already processed or no longer exists.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeFiltered: confidently irrelevant, marked processed without events.
	OutcomeFiltered Outcome = "filtered"
	// OutcomeUntagged: relevant but tied to no conflict, marked processed without events.
	OutcomeUntagged Outcome = "untagged"
	// OutcomeEmitted: events were attempted and the message marked processed.
	OutcomeEmitted Outcome = "emitted"
	// OutcomeCancelled: shutdown interrupted the attempt before any write.
	OutcomeCancelled Outcome = "cancelled"
	// OutcomeFailed: the attempt broke off and the message stays unprocessed.
	OutcomeFailed Outcome = "failed"
)

// Store is the persistence the orchestrator needs.
type Store interface {
	MessageByID(ctx context.Context, id int64) (*models.Message, error)
	InsertEvent(ctx context.Context, e models.Event) (int64, error)
	MarkProcessed(ctx context.Context, id int64) error
}

// Geocoder resolves place names sequentially and returns the resolved subset.
type Geocoder interface {
	GeocodeAll(ctx context.Context, places []string, regionBias string) []models.GeoResult
}

// Indexer mirrors events into a search index.
type Indexer interface {
	IndexEvent(ctx context.Context, doc elasticsearch.EventDocument) error
}

// Config holds the classification policy.
type Config struct {
	// Threshold is the confidence at or above which an irrelevant verdict filters the message.
	Threshold float64
	// TrustedPlatforms are platforms whose low-confidence irrelevant verdicts are overridden.
	TrustedPlatforms []string
}

// Orchestrator is safe for concurrent use by several loops.
type Orchestrator struct {
	store     Store
	registry  *tagger.SharedRegistry
	extractor ner.Extractor
	geocoder  Geocoder
	publisher bus.Publisher
	indexer   Indexer
	cfg       Config
	log       *slog.Logger
	metrics   *metrics.Metrics
}

// Option customises an Orchestrator.
type Option func(*Orchestrator)

// WithIndexer mirrors every persisted event into idx.
func WithIndexer(idx Indexer) Option {
	return func(o *Orchestrator) { o.indexer = idx }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.log = logger.OrDiscard(l) }
}

// WithMetrics sets the instruments.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// New builds an Orchestrator.
func New(st Store, registry *tagger.SharedRegistry, extractor ner.Extractor, geo Geocoder, pub bus.Publisher, cfg Config, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:     st,
		registry:  registry,
		extractor: extractor,
		geocoder:  geo,
		publisher: pub,
		cfg:       cfg,
		log:       logger.Discard(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Process runs one attempt on msg. It never panics and never returns an
// error: every failure is logged and reflected in the outcome.
func (o *Orchestrator) Process(ctx context.Context, msg models.Message) (outcome Outcome) {
	start := time.Now()
	log := o.log.With(slog.Int64("message_id", msg.ID), slog.String("attempt", uuid.NewString()))

	defer func() {
		if r := recover(); r != nil {
			log.Error("panic while processing message",
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)
			outcome = OutcomeFailed
		}
		o.metrics.MessageDone(string(outcome), time.Since(start))
	}()

	if msg.Processed {
		return OutcomeSkipped
	}
	current, err := o.store.MessageByID(ctx, msg.ID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return OutcomeSkipped
	case err != nil:
		if ctx.Err() != nil {
			return OutcomeCancelled
		}
		log.Warn("re-check processed flag", slog.Any("err", err))
		return OutcomeFailed
	case current.Processed:
		log.Debug("message already processed")
		return OutcomeSkipped
	}

	return o.run(ctx, log, msg)
}

func (o *Orchestrator) run(ctx context.Context, log *slog.Logger, msg models.Message) Outcome {
	result := o.classify(msg)

	if !result.Relevant && result.Confidence >= o.cfg.Threshold {
		log.Debug("filtered message",
			slog.String("category", string(result.Category)),
			slog.Float64("confidence", result.Confidence),
		)
		return o.finish(ctx, log, msg.ID, OutcomeFiltered)
	}

	matches := tagger.Tag(msg.Text, msg.DefaultConflictID, o.registry.Load())
	if len(matches) == 0 {
		log.Debug("no conflict match")
		return o.finish(ctx, log, msg.ID, OutcomeUntagged)
	}

	places := o.extractPlaces(ctx, log, msg.Text)
	bias, _ := tagger.RegionBias(matches[0].ShortCode)
	geo := o.geocoder.GeocodeAll(ctx, places, bias)
	if ctx.Err() != nil {
		// Unresolved places may only be due to shutdown; leave the message for the next run.
		log.Info("attempt cancelled before emitting events")
		return OutcomeCancelled
	}

	// The emit phase runs to completion so a started message reaches its terminal state.
	emitCtx := context.WithoutCancel(ctx)
	o.emit(emitCtx, log, msg, result, matches, geo)
	return o.finish(emitCtx, log, msg.ID, OutcomeEmitted)
}

// classify applies the trust override for high-signal platforms.
func (o *Orchestrator) classify(msg models.Message) models.Classification {
	result := classifier.Classify(msg.Text, msg.FilterRules)
	if !result.Relevant && result.Confidence < o.cfg.Threshold && slices.Contains(o.cfg.TrustedPlatforms, msg.Platform) {
		result.Relevant = true
		result.Category = models.CategoryGeopolitical
	}
	return result
}

func (o *Orchestrator) extractPlaces(ctx context.Context, log *slog.Logger, text string) []string {
	if o.extractor == nil {
		return nil
	}
	places, err := o.extractor.Extract(ctx, text)
	if err != nil {
		log.Warn("place extraction failed", slog.Any("err", err))
		return nil
	}
	return places
}

// emit creates one event per (place, conflict) pair, or one location-less
// event per conflict when no place resolved. Each pair fails independently.
func (o *Orchestrator) emit(ctx context.Context, log *slog.Logger, msg models.Message, result models.Classification, matches []models.ConflictMatch, geo []models.GeoResult) {
	base := models.Event{
		MessageID: msg.ID,
		EventType: result.EventType,
		Timestamp: msg.Timestamp,
	}

	if len(geo) == 0 {
		for _, m := range matches {
			e := base
			e.ConflictID, e.ShortCode = m.ConflictID, m.ShortCode
			o.emitOne(ctx, log, e, msg.Text)
		}
		return
	}

	for _, g := range geo {
		for _, m := range matches {
			e := base
			e.ConflictID, e.ShortCode = m.ConflictID, m.ShortCode
			e.Latitude, e.Longitude = g.Lat, g.Lon
			e.LocationName = g.Name
			e.Confidence = g.Confidence
			o.emitOne(ctx, log, e, msg.Text)
		}
	}
}

func (o *Orchestrator) emitOne(ctx context.Context, log *slog.Logger, e models.Event, text string) {
	id, err := o.store.InsertEvent(ctx, e)
	if err != nil {
		o.metrics.EventFailed("persist")
		log.Error("persist event", slog.String("conflict", e.ShortCode), slog.String("location", e.LocationName), slog.Any("err", err))
		return
	}
	e.ID = id
	o.metrics.EventStored(e.HasLocation())

	if err := o.publish(ctx, e, text); err != nil {
		o.metrics.EventFailed("publish")
		log.Warn("publish event", slog.Int64("event_id", id), slog.Any("err", err))
	}

	if o.indexer != nil {
		if err := o.indexer.IndexEvent(ctx, elasticsearch.NewEventDocument(e, text)); err != nil {
			o.metrics.EventFailed("index")
			log.Warn("index event", slog.Int64("event_id", id), slog.Any("err", err))
		}
	}

	if e.HasLocation() {
		log.Info("event emitted",
			slog.Int64("event_id", id),
			slog.String("conflict", e.ShortCode),
			slog.String("location", e.LocationName),
			slog.Float64("lat", e.Latitude),
			slog.Float64("lon", e.Longitude),
		)
	} else {
		log.Info("event emitted without location", slog.Int64("event_id", id), slog.String("conflict", e.ShortCode))
	}
}

func (o *Orchestrator) publish(ctx context.Context, e models.Event, text string) error {
	if o.publisher == nil {
		return nil
	}
	payload, err := json.Marshal(models.NewBroadcast(e, text))
	if err != nil {
		return fmt.Errorf("marshal broadcast: %w", err)
	}
	return o.publisher.Publish(ctx, []byte(e.ShortCode), payload)
}

func (o *Orchestrator) finish(ctx context.Context, log *slog.Logger, id int64, outcome Outcome) Outcome {
	if err := o.store.MarkProcessed(context.WithoutCancel(ctx), id); err != nil {
		log.Error("mark processed", slog.String("outcome", string(outcome)), slog.Any("err", err))
		return OutcomeFailed
	}
	return outcome
}
