// Package supervisor drives the orchestrator from the real-time notification
// feed and the backlog sweep, and keeps the conflict registry fresh.
package supervisor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/DeafMist/conflict-radar/backend/internal/bus"
	"github.com/DeafMist/conflict-radar/backend/internal/dedupe"
	"github.com/DeafMist/conflict-radar/backend/internal/logger"
	"github.com/DeafMist/conflict-radar/backend/internal/metrics"
	"github.com/DeafMist/conflict-radar/backend/internal/models"
	"github.com/DeafMist/conflict-radar/backend/internal/pipeline"
	"github.com/DeafMist/conflict-radar/backend/internal/store"
	"github.com/DeafMist/conflict-radar/backend/internal/tagger"
)

// ErrRegistryEmpty is returned when no active conflict appeared within the startup wait.
var ErrRegistryEmpty = errors.New("conflict registry is empty")

// fetchErrorDelay spaces out retries when the feed keeps failing.
const fetchErrorDelay = time.Second

// Store is the read side the loops need.
type Store interface {
	ActiveConflicts(ctx context.Context) (map[string]int64, error)
	UnprocessedMessage(ctx context.Context, id int64) (*models.Message, error)
	UnprocessedMessages(ctx context.Context, limit int) ([]models.Message, error)
}

// Processor runs one message through the pipeline.
type Processor interface {
	Process(ctx context.Context, msg models.Message) pipeline.Outcome
}

// Config holds loop schedules.
type Config struct {
	BatchSize            int
	BacklogInterval      time.Duration
	RegistryRefresh      time.Duration
	RegistryWaitInterval time.Duration
	// RegistryWaitAttempts bounds the startup wait; 0 waits until cancelled.
	RegistryWaitAttempts int
}

// Supervisor owns the three long-lived loops.
type Supervisor struct {
	store      Store
	processor  Processor
	feed       bus.Subscriber
	registry   *tagger.SharedRegistry
	cfg        Config
	seen       *dedupe.Cache[int64]
	deadLetter bus.Publisher
	log        *slog.Logger
	metrics    *metrics.Metrics
}

// Option customises a Supervisor.
type Option func(*Supervisor)

// WithDedupe drops notifications for message ids seen recently.
func WithDedupe(c *dedupe.Cache[int64]) Option {
	return func(s *Supervisor) { s.seen = c }
}

// WithDeadLetter forwards undecodable notifications to p.
func WithDeadLetter(p bus.Publisher) Option {
	return func(s *Supervisor) { s.deadLetter = p }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Supervisor) { s.log = logger.OrDiscard(l) }
}

// WithMetrics sets the instruments.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Supervisor) { s.metrics = m }
}

// New builds a Supervisor. feed may be nil, which disables the real-time loop.
func New(st Store, proc Processor, feed bus.Subscriber, registry *tagger.SharedRegistry, cfg Config, opts ...Option) *Supervisor {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.BacklogInterval <= 0 {
		cfg.BacklogInterval = 30 * time.Second
	}
	if cfg.RegistryRefresh <= 0 {
		cfg.RegistryRefresh = 5 * time.Minute
	}
	if cfg.RegistryWaitInterval <= 0 {
		cfg.RegistryWaitInterval = 10 * time.Second
	}
	s := &Supervisor{
		store:     st,
		processor: proc,
		feed:      feed,
		registry:  registry,
		cfg:       cfg,
		log:       logger.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run waits for a populated registry, then runs the loops until ctx is
// cancelled or one of them fails.
func (s *Supervisor) Run(ctx context.Context) error {
	if err := s.WaitForRegistry(ctx); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	if s.feed != nil {
		g.Go(func() error { return s.realtimeLoop(gctx) })
	} else {
		s.log.Warn("no notification feed configured, relying on backlog sweeps")
	}
	g.Go(func() error { return s.backlogLoop(gctx) })
	g.Go(func() error { return s.refreshLoop(gctx) })

	err := g.Wait()
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// WaitForRegistry loads the registry, polling until it has at least one conflict.
func (s *Supervisor) WaitForRegistry(ctx context.Context) error {
	for attempt := 1; ; attempt++ {
		n, err := s.RefreshRegistry(ctx)
		switch {
		case err == nil && n > 0:
			s.log.Info("conflict registry loaded", slog.Int("conflicts", n), slog.Any("codes", s.registry.Load().Codes()))
			return nil
		case err != nil:
			s.log.Warn("load conflict registry", slog.Any("err", err), slog.Int("attempt", attempt))
		default:
			s.log.Warn("no active conflicts, waiting for seed data", slog.Int("attempt", attempt))
		}

		if s.cfg.RegistryWaitAttempts > 0 && attempt >= s.cfg.RegistryWaitAttempts {
			if err != nil {
				return fmt.Errorf("%w: %w", ErrRegistryEmpty, err)
			}
			return ErrRegistryEmpty
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.cfg.RegistryWaitInterval):
		}
	}
}

// RefreshRegistry builds a new registry from the store and swaps it in.
// On error the previous registry stays in place.
func (s *Supervisor) RefreshRegistry(ctx context.Context) (int, error) {
	active, err := s.store.ActiveConflicts(ctx)
	if err != nil {
		return 0, fmt.Errorf("load active conflicts: %w", err)
	}
	next := tagger.NewRegistry(active)
	s.registry.Store(next)
	s.metrics.Registry(next.Len())

	for _, code := range next.Codes() {
		if !tagger.HasBank(code) {
			s.log.Warn("conflict has no keyword bank", slog.String("conflict", code))
		}
	}
	return next.Len(), nil
}

func (s *Supervisor) refreshLoop(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.RegistryRefresh)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := s.RefreshRegistry(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				s.log.Warn("conflict registry refresh failed", slog.Any("err", err))
				continue
			}
			s.log.Info("conflict registry refreshed", slog.Int("conflicts", n))
		}
	}
}

func (s *Supervisor) backlogLoop(ctx context.Context) error {
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}

		if n := s.SweepBacklog(ctx); n > 0 {
			s.log.Info("backlog sweep done", slog.Int("messages", n))
		}
		timer.Reset(s.cfg.BacklogInterval)
	}
}

// SweepBacklog processes one batch of unprocessed messages, oldest first, and
// returns how many it handed to the processor.
func (s *Supervisor) SweepBacklog(ctx context.Context) int {
	msgs, err := s.store.UnprocessedMessages(ctx, s.cfg.BatchSize)
	if err != nil {
		if ctx.Err() == nil {
			s.log.Warn("backlog sweep failed", slog.Any("err", err))
		}
		return 0
	}

	n := 0
	for _, msg := range msgs {
		if ctx.Err() != nil {
			break
		}
		s.processor.Process(ctx, msg)
		n++
	}
	return n
}

func (s *Supervisor) realtimeLoop(ctx context.Context) error {
	s.log.Info("listening for message notifications")
	for {
		d, err := s.feed.Fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, bus.ErrClosed) {
				return fmt.Errorf("notification feed: %w", err)
			}
			s.log.Error("fetch notification", slog.Any("err", err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(fetchErrorDelay):
			}
			continue
		}

		s.HandleNotification(ctx, d)
	}
}

// HandleNotification processes the message a notification refers to, if it
// is still unprocessed, and acknowledges the delivery.
func (s *Supervisor) HandleNotification(ctx context.Context, d bus.Delivery) {
	result := s.handle(ctx, d)
	s.metrics.Notification(result)

	if err := d.Ack(context.WithoutCancel(ctx)); err != nil {
		s.log.Warn("ack notification", slog.Any("err", err))
	}
}

func (s *Supervisor) handle(ctx context.Context, d bus.Delivery) (result string) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("panic while handling notification", slog.Any("panic", r))
			result = "error"
		}
	}()

	var n models.Notification
	if err := json.Unmarshal(d.Value, &n); err != nil || n.MessageID <= 0 {
		s.log.Warn("malformed notification", slog.String("payload", truncate(d.Value, 200)), slog.Any("err", err))
		s.forwardDeadLetter(ctx, d)
		return "malformed"
	}
	log := s.log.With(slog.Int64("message_id", n.MessageID))

	if s.seen != nil && s.seen.Observe(n.MessageID) {
		log.Debug("duplicate notification")
		return "duplicate"
	}

	msg, err := s.store.UnprocessedMessage(ctx, n.MessageID)
	if errors.Is(err, store.ErrNotFound) {
		log.Debug("notified message missing or already processed")
		return "skipped"
	}
	if err != nil {
		// The backlog sweep picks it up later.
		log.Warn("fetch notified message", slog.Any("err", err))
		return "error"
	}

	outcome := s.processor.Process(ctx, *msg)
	log.Debug("notification handled", slog.String("outcome", string(outcome)), slog.String("channel", n.Channel))
	return "processed"
}

func (s *Supervisor) forwardDeadLetter(ctx context.Context, d bus.Delivery) {
	if s.deadLetter == nil {
		return
	}
	if err := s.deadLetter.Publish(context.WithoutCancel(ctx), d.Key, d.Value); err != nil {
		s.log.Warn("dead letter publish failed", slog.Any("err", err))
	}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
