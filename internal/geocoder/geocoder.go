// Package geocoder resolves place names to coordinates through an in-process
// cache, a persistent cache and a rate-limited external resolver.
package geocoder

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/DeafMist/conflict-radar/backend/internal/metrics"
	"github.com/DeafMist/conflict-radar/backend/internal/models"
	"github.com/DeafMist/conflict-radar/backend/internal/processing"
)

// defaultImportance is used when the resolver reports no importance score.
const defaultImportance = 0.5

// Geocoder is safe for concurrent use. Lookups for the same key that overlap
// in time share one resolution.
type Geocoder struct {
	resolver   Resolver
	persistent PersistentCache
	limiter    *Limiter
	memory     *memoryCache
	flight     singleflight.Group
	log        *slog.Logger
	metrics    *metrics.Metrics
}

// Option customises a Geocoder.
type Option func(*Geocoder)

// WithPersistentCache enables the cross-process tier.
func WithPersistentCache(c PersistentCache) Option {
	return func(g *Geocoder) { g.persistent = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(g *Geocoder) {
		if l != nil {
			g.log = l
		}
	}
}

// WithMetrics sets the instruments.
func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Geocoder) { g.metrics = m }
}

// New builds a Geocoder. limiter must be the process-wide instance.
func New(resolver Resolver, limiter *Limiter, opts ...Option) *Geocoder {
	if limiter == nil {
		limiter = NewLimiter(0)
	}
	g := &Geocoder{
		resolver: resolver,
		limiter:  limiter,
		memory:   newMemoryCache(),
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Geocode resolves place, optionally biased towards a region.
// The second return value is false when the place could not be resolved.
func (g *Geocoder) Geocode(ctx context.Context, place, regionBias string) (*models.GeoResult, bool) {
	place = strings.TrimSpace(place)
	if place == "" {
		return nil, false
	}
	key := processing.CacheKey(place, regionBias)

	if res, ok := g.memory.get(key); ok {
		g.metrics.GeocodeTier("memory")
		return res, res != nil
	}

	v, _, _ := g.flight.Do(key, func() (any, error) {
		return g.lookup(ctx, key, place, regionBias), nil
	})
	res, _ := v.(*models.GeoResult)
	if res == nil {
		return nil, false
	}
	cp := *res
	return &cp, true
}

func (g *Geocoder) lookup(ctx context.Context, key, place, regionBias string) *models.GeoResult {
	if res, ok := g.memory.get(key); ok {
		g.metrics.GeocodeTier("memory")
		return res
	}

	if g.persistent != nil {
		cached, err := g.persistent.GetGeocode(ctx, key)
		if err != nil {
			g.log.Warn("geocode cache read failed", slog.String("key", key), slog.Any("err", err))
		} else if cached != nil {
			g.metrics.GeocodeTier("persistent")
			g.memory.put(key, cached)
			return cached
		}
	}

	res, cacheable := g.resolve(ctx, place, regionBias)
	if !cacheable {
		return nil
	}
	g.memory.put(key, res)

	if res != nil && g.persistent != nil {
		if err := g.persistent.PutGeocode(context.WithoutCancel(ctx), key, *res); err != nil {
			g.log.Warn("geocode cache write failed", slog.String("key", key), slog.Any("err", err))
		}
	}
	return res
}

// resolve calls the external service. cacheable is false when the call never
// happened because ctx ended while waiting for the limiter.
func (g *Geocoder) resolve(ctx context.Context, place, regionBias string) (res *models.GeoResult, cacheable bool) {
	if g.resolver == nil {
		g.metrics.GeocodeTier("none")
		return nil, true
	}

	query := processing.GeocodeQuery(place, regionBias)
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, false
	}
	g.metrics.GeocodeTier("external")

	// The request is allowed to finish even if the caller is cancelled meanwhile.
	match, err := g.resolver.Resolve(context.WithoutCancel(ctx), query)
	if err != nil {
		var throttled *ThrottledError
		switch {
		case errors.Is(err, ErrNoMatch):
			g.metrics.GeocodeCall("unresolved")
			g.log.Debug("geocode no match", slog.String("query", query))
		case errors.As(err, &throttled):
			g.metrics.GeocodeCall("throttled")
			g.limiter.Backoff(throttled.RetryAfter)
			g.log.Warn("geocoder throttled", slog.String("query", query), slog.Duration("retry_after", throttled.RetryAfter))
		default:
			g.metrics.GeocodeCall("error")
			g.log.Warn("geocode lookup failed", slog.String("query", query), slog.Any("err", err))
		}
		return nil, true
	}
	if match == nil {
		g.metrics.GeocodeCall("unresolved")
		return nil, true
	}

	g.metrics.GeocodeCall("resolved")
	importance := defaultImportance
	if match.Importance != nil {
		importance = *match.Importance
	}
	return &models.GeoResult{
		Name:        place,
		Lat:         match.Lat,
		Lon:         match.Lon,
		DisplayName: match.DisplayName,
		Confidence:  clamp01(importance),
	}, true
}

// GeocodeAll resolves places one after another and returns the resolved ones
// in input order.
func (g *Geocoder) GeocodeAll(ctx context.Context, places []string, regionBias string) []models.GeoResult {
	var out []models.GeoResult
	for _, place := range places {
		if ctx.Err() != nil {
			break
		}
		if res, ok := g.Geocode(ctx, place, regionBias); ok {
			out = append(out, *res)
		}
	}
	return out
}

// CachedKeys returns how many keys the in-process tier holds.
func (g *Geocoder) CachedKeys() int {
	return g.memory.len()
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(v, 1))
}
