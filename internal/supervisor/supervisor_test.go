package supervisor_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/DeafMist/conflict-radar/backend/internal/bus"
	"github.com/DeafMist/conflict-radar/backend/internal/dedupe"
	"github.com/DeafMist/conflict-radar/backend/internal/metrics"
	"github.com/DeafMist/conflict-radar/backend/internal/models"
	"github.com/DeafMist/conflict-radar/backend/internal/pipeline"
	"github.com/DeafMist/conflict-radar/backend/internal/store"
	"github.com/DeafMist/conflict-radar/backend/internal/supervisor"
	"github.com/DeafMist/conflict-radar/backend/internal/tagger"
)

type fakeStore struct {
	mu          sync.Mutex
	registries  []map[string]int64
	registryErr error
	loads       int
	messages    map[int64]models.Message
	batchLimits []int
}

func (s *fakeStore) ActiveConflicts(context.Context) (map[string]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads++
	if s.registryErr != nil {
		return nil, s.registryErr
	}
	if len(s.registries) == 0 {
		return map[string]int64{}, nil
	}
	next := s.registries[0]
	if len(s.registries) > 1 {
		s.registries = s.registries[1:]
	}
	return next, nil
}

func (s *fakeStore) UnprocessedMessage(_ context.Context, id int64) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg, ok := s.messages[id]
	if !ok || msg.Processed {
		return nil, store.ErrNotFound
	}
	return &msg, nil
}

func (s *fakeStore) UnprocessedMessages(_ context.Context, limit int) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batchLimits = append(s.batchLimits, limit)
	var out []models.Message
	for id := int64(1); id <= int64(len(s.messages)) && len(out) < limit; id++ {
		if msg, ok := s.messages[id]; ok && !msg.Processed {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (s *fakeStore) loadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loads
}

type recordingProcessor struct {
	mu  sync.Mutex
	ids []int64
}

func (p *recordingProcessor) Process(_ context.Context, msg models.Message) pipeline.Outcome {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ids = append(p.ids, msg.ID)
	return pipeline.OutcomeEmitted
}

func (p *recordingProcessor) processed() []int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]int64(nil), p.ids...)
}

type chanSubscriber struct {
	ch  chan bus.Delivery
	err error
}

func (s *chanSubscriber) Fetch(ctx context.Context) (bus.Delivery, error) {
	if s.err != nil {
		return bus.Delivery{}, s.err
	}
	select {
	case <-ctx.Done():
		return bus.Delivery{}, ctx.Err()
	case d := <-s.ch:
		return d, nil
	}
}

func (s *chanSubscriber) Close() error { return nil }

type capturePublisher struct {
	mu     sync.Mutex
	values [][]byte
}

func (p *capturePublisher) Publish(_ context.Context, _, value []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.values = append(p.values, value)
	return nil
}

func (p *capturePublisher) Close() error { return nil }

func messages(ids ...int64) map[int64]models.Message {
	out := make(map[int64]models.Message, len(ids))
	for _, id := range ids {
		out[id] = models.Message{ID: id, Platform: "telegram", Text: "shelling reported"}
	}
	return out
}

func fastConfig() supervisor.Config {
	return supervisor.Config{
		BatchSize:            10,
		BacklogInterval:      time.Hour,
		RegistryRefresh:      time.Hour,
		RegistryWaitInterval: time.Millisecond,
	}
}

func TestWaitForRegistryPollsUntilPopulated(t *testing.T) {
	st := &fakeStore{registries: []map[string]int64{{}, {}, {"russia-ukraine": 2}}}
	registry := tagger.NewSharedRegistry()
	s := supervisor.New(st, &recordingProcessor{}, nil, registry, fastConfig())

	require.NoError(t, s.WaitForRegistry(context.Background()))
	require.Equal(t, 3, st.loadCount())

	id, ok := registry.Load().ID("russia-ukraine")
	require.True(t, ok)
	require.Equal(t, int64(2), id)
}

func TestWaitForRegistryGivesUp(t *testing.T) {
	st := &fakeStore{}
	cfg := fastConfig()
	cfg.RegistryWaitAttempts = 3
	s := supervisor.New(st, &recordingProcessor{}, nil, tagger.NewSharedRegistry(), cfg)

	err := s.WaitForRegistry(context.Background())
	require.ErrorIs(t, err, supervisor.ErrRegistryEmpty)
	require.Equal(t, 3, st.loadCount())
}

func TestWaitForRegistryStopsOnCancel(t *testing.T) {
	cfg := fastConfig()
	cfg.RegistryWaitInterval = time.Hour
	s := supervisor.New(&fakeStore{}, &recordingProcessor{}, nil, tagger.NewSharedRegistry(), cfg)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, s.WaitForRegistry(ctx), context.Canceled)
}

func TestRefreshRegistryKeepsPreviousOnError(t *testing.T) {
	st := &fakeStore{registries: []map[string]int64{{"israel-iran": 1}}}
	registry := tagger.NewSharedRegistry()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	s := supervisor.New(st, &recordingProcessor{}, nil, registry, fastConfig(), supervisor.WithMetrics(m))

	n, err := s.RefreshRegistry(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, 1.0, testutil.ToFloat64(m.RegistrySize))

	st.mu.Lock()
	st.registryErr = errors.New("database is locked")
	st.mu.Unlock()

	_, err = s.RefreshRegistry(context.Background())
	require.Error(t, err)
	require.Equal(t, []string{"israel-iran"}, registry.Load().Codes())
}

func TestRefreshRegistryReplacesWholesale(t *testing.T) {
	st := &fakeStore{registries: []map[string]int64{
		{"israel-iran": 1, "russia-ukraine": 2},
		{"russia-ukraine": 2},
	}}
	registry := tagger.NewSharedRegistry()
	s := supervisor.New(st, &recordingProcessor{}, nil, registry, fastConfig())

	_, err := s.RefreshRegistry(context.Background())
	require.NoError(t, err)
	before := registry.Load()

	_, err = s.RefreshRegistry(context.Background())
	require.NoError(t, err)

	require.Equal(t, []string{"israel-iran", "russia-ukraine"}, before.Codes())
	require.Equal(t, []string{"russia-ukraine"}, registry.Load().Codes())
}

func TestHandleNotification(t *testing.T) {
	st := &fakeStore{messages: messages(1, 2)}
	st.messages[2] = models.Message{ID: 2, Processed: true}
	proc := &recordingProcessor{}
	dlq := &capturePublisher{}
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	s := supervisor.New(st, proc, nil, tagger.NewSharedRegistry(), fastConfig(),
		supervisor.WithDedupe(dedupe.NewCache[int64](100, time.Hour)),
		supervisor.WithDeadLetter(dlq),
		supervisor.WithMetrics(m),
	)
	ctx := context.Background()

	s.HandleNotification(ctx, bus.Delivery{Value: []byte(`{"db_id": 1, "platform": "telegram"}`)})
	s.HandleNotification(ctx, bus.Delivery{Value: []byte(`{"db_id": 1}`)})
	s.HandleNotification(ctx, bus.Delivery{Value: []byte(`{"db_id": 2}`)})
	s.HandleNotification(ctx, bus.Delivery{Value: []byte(`{"db_id": 404}`)})
	s.HandleNotification(ctx, bus.Delivery{Value: []byte(`not json`)})
	s.HandleNotification(ctx, bus.Delivery{Value: []byte(`{"channel": "no id"}`)})

	require.Equal(t, []int64{1}, proc.processed())
	require.Equal(t, 1.0, testutil.ToFloat64(m.Notifications.WithLabelValues("processed")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.Notifications.WithLabelValues("duplicate")))
	require.Equal(t, 2.0, testutil.ToFloat64(m.Notifications.WithLabelValues("skipped")))
	require.Equal(t, 2.0, testutil.ToFloat64(m.Notifications.WithLabelValues("malformed")))

	require.Len(t, dlq.values, 2)
	require.Equal(t, "not json", string(dlq.values[0]))
}

func TestSweepBacklogProcessesOneBatchInOrder(t *testing.T) {
	st := &fakeStore{messages: messages(1, 2, 3, 4, 5)}
	proc := &recordingProcessor{}
	cfg := fastConfig()
	cfg.BatchSize = 3
	s := supervisor.New(st, proc, nil, tagger.NewSharedRegistry(), cfg)

	n := s.SweepBacklog(context.Background())
	require.Equal(t, 3, n)
	require.Equal(t, []int64{1, 2, 3}, proc.processed())
	require.Equal(t, []int{3}, st.batchLimits)
}

func TestSweepBacklogStopsOnCancel(t *testing.T) {
	st := &fakeStore{messages: messages(1, 2)}
	proc := &recordingProcessor{}
	s := supervisor.New(st, proc, nil, tagger.NewSharedRegistry(), fastConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Zero(t, s.SweepBacklog(ctx))
	require.Empty(t, proc.processed())
}

func TestRunDrivesRealtimeAndBacklog(t *testing.T) {
	st := &fakeStore{
		registries: []map[string]int64{{"russia-ukraine": 2}},
		messages:   messages(1, 2),
	}
	proc := &recordingProcessor{}
	feed := &chanSubscriber{ch: make(chan bus.Delivery, 1)}
	s := supervisor.New(st, proc, feed, tagger.NewSharedRegistry(), fastConfig())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	// The first backlog sweep runs immediately.
	require.Eventually(t, func() bool { return len(proc.processed()) >= 2 }, time.Second, 5*time.Millisecond)

	st.mu.Lock()
	st.messages[3] = models.Message{ID: 3, Text: "fresh"}
	st.mu.Unlock()
	feed.ch <- bus.Delivery{Value: []byte(`{"db_id": 3}`)}

	require.Eventually(t, func() bool {
		ids := proc.processed()
		return len(ids) == 3 && ids[2] == 3
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("supervisor did not stop after cancellation")
	}
}

func TestRunFailsWhenFeedCloses(t *testing.T) {
	st := &fakeStore{registries: []map[string]int64{{"israel-iran": 1}}}
	feed := &chanSubscriber{err: bus.ErrClosed}
	s := supervisor.New(st, &recordingProcessor{}, feed, tagger.NewSharedRegistry(), fastConfig())

	err := s.Run(context.Background())
	require.ErrorIs(t, err, bus.ErrClosed)
}

func TestRunWithoutRegistry(t *testing.T) {
	cfg := fastConfig()
	cfg.RegistryWaitAttempts = 1
	s := supervisor.New(&fakeStore{}, &recordingProcessor{}, nil, tagger.NewSharedRegistry(), cfg)

	require.ErrorIs(t, s.Run(context.Background()), supervisor.ErrRegistryEmpty)
}
