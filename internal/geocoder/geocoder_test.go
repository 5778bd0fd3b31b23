package geocoder_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/DeafMist/conflict-radar/backend/internal/geocoder"
	"github.com/DeafMist/conflict-radar/backend/internal/models"
)

type stubResolver struct {
	mu      sync.Mutex
	calls   atomic.Int32
	queries []string
	results map[string]*geocoder.Match
	err     error
	delay   time.Duration
}

func (s *stubResolver) Resolve(_ context.Context, query string) (*geocoder.Match, error) {
	s.calls.Add(1)
	s.mu.Lock()
	s.queries = append(s.queries, query)
	s.mu.Unlock()
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if s.err != nil {
		return nil, s.err
	}
	m, ok := s.results[query]
	if !ok {
		return nil, geocoder.ErrNoMatch
	}
	return m, nil
}

type memPersistent struct {
	mu    sync.Mutex
	items map[string]models.GeoResult
	gets  int
	puts  int
}

func newMemPersistent() *memPersistent {
	return &memPersistent{items: map[string]models.GeoResult{}}
}

func (p *memPersistent) GetGeocode(_ context.Context, key string) (*models.GeoResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gets++
	r, ok := p.items[key]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (p *memPersistent) PutGeocode(_ context.Context, key string, r models.GeoResult) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.puts++
	if _, ok := p.items[key]; !ok {
		p.items[key] = r
	}
	return nil
}

func importance(v float64) *float64 { return &v }

func beirutResolver() *stubResolver {
	return &stubResolver{results: map[string]*geocoder.Match{
		"Beirut, Middle East": {Lat: 33.89, Lon: 35.50, DisplayName: "Beirut, Lebanon", Importance: importance(0.72)},
	}}
}

func TestGeocodeResolvesAndCaches(t *testing.T) {
	res := beirutResolver()
	g := geocoder.New(res, geocoder.NewLimiter(0))

	first, ok := g.Geocode(context.Background(), "Beirut", "Middle East")
	require.True(t, ok)
	require.Equal(t, "Beirut", first.Name)
	require.InDelta(t, 33.89, first.Lat, 1e-9)
	require.Equal(t, "Beirut, Lebanon", first.DisplayName)
	require.InDelta(t, 0.72, first.Confidence, 1e-9)

	second, ok := g.Geocode(context.Background(), "beirut ", "middle east")
	require.True(t, ok)
	require.Equal(t, first.Lat, second.Lat)
	require.Equal(t, int32(1), res.calls.Load())
	require.Equal(t, []string{"Beirut, Middle East"}, res.queries)
}

func TestGeocodeNegativeResultCachedInMemoryOnly(t *testing.T) {
	res := &stubResolver{results: map[string]*geocoder.Match{}}
	store := newMemPersistent()
	g := geocoder.New(res, geocoder.NewLimiter(0), geocoder.WithPersistentCache(store))

	_, ok := g.Geocode(context.Background(), "Nowhereville", "")
	require.False(t, ok)
	_, ok = g.Geocode(context.Background(), "Nowhereville", "")
	require.False(t, ok)

	require.Equal(t, int32(1), res.calls.Load())
	require.Zero(t, store.puts)
	require.Equal(t, 1, g.CachedKeys())
}

func TestGeocodeErrorTreatedAsUnresolved(t *testing.T) {
	res := &stubResolver{err: errors.New("connection reset")}
	g := geocoder.New(res, geocoder.NewLimiter(0))

	_, ok := g.Geocode(context.Background(), "Kyiv", "Eastern Europe")
	require.False(t, ok)
	_, ok = g.Geocode(context.Background(), "Kyiv", "Eastern Europe")
	require.False(t, ok)
	require.Equal(t, int32(1), res.calls.Load())
}

func TestGeocodePersistentTierHit(t *testing.T) {
	res := beirutResolver()
	store := newMemPersistent()
	store.items["beirut|middle east"] = models.GeoResult{Name: "Beirut", Lat: 1, Lon: 2, DisplayName: "cached", Confidence: 0.3}
	g := geocoder.New(res, geocoder.NewLimiter(0), geocoder.WithPersistentCache(store))

	got, ok := g.Geocode(context.Background(), "Beirut", "Middle East")
	require.True(t, ok)
	require.Equal(t, "cached", got.DisplayName)
	require.Zero(t, res.calls.Load())

	_, ok = g.Geocode(context.Background(), "Beirut", "Middle East")
	require.True(t, ok)
	require.Equal(t, 1, store.gets)
}

func TestGeocodeWritesThroughToPersistent(t *testing.T) {
	res := beirutResolver()
	store := newMemPersistent()
	g := geocoder.New(res, geocoder.NewLimiter(0), geocoder.WithPersistentCache(store))

	_, ok := g.Geocode(context.Background(), "Beirut", "Middle East")
	require.True(t, ok)
	require.Equal(t, 1, store.puts)
	require.Contains(t, store.items, "beirut|middle east")

	// A second process sharing the store never calls out.
	other := geocoder.New(res, geocoder.NewLimiter(0), geocoder.WithPersistentCache(store))
	_, ok = other.Geocode(context.Background(), "BEIRUT", "Middle East")
	require.True(t, ok)
	require.Equal(t, int32(1), res.calls.Load())
}

func TestGeocodeConfidenceClamped(t *testing.T) {
	res := &stubResolver{results: map[string]*geocoder.Match{
		"High": {Lat: 1, Lon: 1, DisplayName: "High", Importance: importance(1.7)},
		"Low":  {Lat: 1, Lon: 1, DisplayName: "Low", Importance: importance(-0.2)},
		"None": {Lat: 1, Lon: 1, DisplayName: "None"},
	}}
	g := geocoder.New(res, geocoder.NewLimiter(0))

	high, _ := g.Geocode(context.Background(), "High", "")
	low, _ := g.Geocode(context.Background(), "Low", "")
	none, _ := g.Geocode(context.Background(), "None", "")
	require.Equal(t, 1.0, high.Confidence)
	require.Equal(t, 0.0, low.Confidence)
	require.Equal(t, 0.5, none.Confidence)
}

func TestGeocodeBlankPlace(t *testing.T) {
	res := beirutResolver()
	g := geocoder.New(res, geocoder.NewLimiter(0))
	_, ok := g.Geocode(context.Background(), "  ", "Middle East")
	require.False(t, ok)
	require.Zero(t, res.calls.Load())
}

func TestGeocodeCancelledWhileWaitingIsNotCached(t *testing.T) {
	res := beirutResolver()
	lim := geocoder.NewLimiter(0.5)
	g := geocoder.New(res, lim)

	// Consume the only token so the next call has to wait two seconds.
	require.NoError(t, lim.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, ok := g.Geocode(ctx, "Beirut", "Middle East")
	require.False(t, ok)
	require.Zero(t, res.calls.Load())
	require.Zero(t, g.CachedKeys())
}

func TestGeocodeConcurrentIdenticalLookupsShareOneCall(t *testing.T) {
	res := beirutResolver()
	res.delay = 50 * time.Millisecond
	g := geocoder.New(res, geocoder.NewLimiter(0))

	var (
		wg       sync.WaitGroup
		resolved atomic.Int32
	)
	for _i := 0; _i < 8; _i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := g.Geocode(context.Background(), "Beirut", "Middle East"); ok {
				resolved.Add(1)
			}
		}()
	}
	wg.Wait()
	require.Equal(t, int32(8), resolved.Load())
	require.Equal(t, int32(1), res.calls.Load())
}

func TestGeocodeAllSequentialSubset(t *testing.T) {
	res := &stubResolver{results: map[string]*geocoder.Match{
		"Kyiv, Eastern Europe":    {Lat: 50.45, Lon: 30.52, DisplayName: "Kyiv"},
		"Kharkiv, Eastern Europe": {Lat: 49.99, Lon: 36.23, DisplayName: "Kharkiv"},
	}}
	g := geocoder.New(res, geocoder.NewLimiter(0))

	got := g.GeocodeAll(context.Background(), []string{"Kyiv", "Atlantis", "Kharkiv"}, "Eastern Europe")
	require.Len(t, got, 2)
	require.Equal(t, "Kyiv", got[0].Name)
	require.Equal(t, "Kharkiv", got[1].Name)
	require.Equal(t, []string{"Kyiv, Eastern Europe", "Atlantis, Eastern Europe", "Kharkiv, Eastern Europe"}, res.queries)

	require.Empty(t, g.GeocodeAll(context.Background(), nil, ""))
}

func TestGeocodeExternalCallsAreSpaced(t *testing.T) {
	res := &stubResolver{results: map[string]*geocoder.Match{}}
	const perSecond = 20.0
	g := geocoder.New(res, geocoder.NewLimiter(perSecond))

	places := []string{"A", "B", "C", "D", "E"}
	start := time.Now()
	g.GeocodeAll(context.Background(), places, "")
	elapsed := time.Since(start)

	minimum := time.Duration(float64(len(places)-1) / perSecond * float64(time.Second))
	require.GreaterOrEqual(t, elapsed, minimum-5*time.Millisecond)
	require.Equal(t, int32(len(places)), res.calls.Load())
}
