package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"
)

// Store caches serialized series. Implementations must be safe for
// concurrent use.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Observer receives router events, e.g. for metrics.
type Observer interface {
	ProviderResult(provider, status string)
	Fallback(provider string)
}

// SeriesResult is a cloud series plus where it came from.
type SeriesResult struct {
	Provider       string    `json:"provider_used"`
	FallbackUsed   bool      `json:"fallback_used"`
	DataStatus     string    `json:"data_status"`
	FreshnessHours float64   `json:"freshness_hours"`
	FetchedAt      time.Time `json:"fetched_at"`
	CloudByHour    Series    `json:"-"`
}

type cachedSeries struct {
	FetchedAt time.Time `json:"fetched_at"`
	Series    Series    `json:"series"`
}

// Router tries providers in order and returns the first series it can
// obtain, fresh from the provider or from cache.
type Router struct {
	City      string
	Lat       float64
	Lon       float64
	Providers []Provider
	Store     Store
	Fresh     time.Duration
	Stale     time.Duration
	Logger    *slog.Logger
	Observer  Observer
	Now       func() time.Time

	// order positions of Providers within the configured provider order.
	positions []int
}

// NewRouter builds a router for one city. Names in order that are missing
// from registry are skipped. store may be nil to disable caching.
func NewRouter(city string, lat, lon float64, order []string, registry map[string]Provider, store Store) *Router {
	r := &Router{
		City:   city,
		Lat:    lat,
		Lon:    lon,
		Store:  store,
		Fresh:  DefaultFresh,
		Stale:  DefaultStale,
		Logger: slog.Default(),
		Now:    time.Now,
	}
	for i, name := range order {
		p, ok := registry[name]
		if !ok {
			r.Logger.Warn("unknown weather provider skipped", "city", city, "provider", name)
			continue
		}
		r.Providers = append(r.Providers, p)
		r.positions = append(r.positions, i)
	}
	return r
}

// Series returns hourly cloud cover from start to end. Providers are tried
// in order; a result from any provider after the first configured one is
// marked as a fallback.
func (r *Router) Series(ctx context.Context, start, end time.Time) (SeriesResult, error) {
	if len(r.Providers) == 0 {
		return SeriesResult{}, ErrNoProviders
	}
	start = start.UTC().Truncate(time.Hour)
	end = end.UTC().Truncate(time.Hour)

	var errs []error
	for i, p := range r.Providers {
		res, err := r.fetch(ctx, p, start, end)
		if err != nil {
			r.logger().Warn("weather provider failed", "city", r.City, "provider", p.Name(), "error", err)
			r.observe(p.Name(), StatusUnavailable)
			errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
			continue
		}
		res.FallbackUsed = r.position(i) > 0
		r.observe(p.Name(), res.DataStatus)
		if res.FallbackUsed && r.Observer != nil {
			r.Observer.Fallback(p.Name())
		}
		return res, nil
	}
	return SeriesResult{}, fmt.Errorf("%w: %w", ErrAllProvidersFailed, errors.Join(errs...))
}

// CloudAt returns cloud cover for the hour containing t, or DefaultCloud
// when no provider can supply it.
func (r *Router) CloudAt(ctx context.Context, t time.Time) float64 {
	res, err := r.Series(ctx, t, t)
	if err != nil {
		r.logger().Warn("cloud cover unavailable, using default", "city", r.City, "time", t, "error", err)
		return DefaultCloud
	}
	return res.CloudByHour.CloudOr(t, DefaultCloud)
}

// fetch serves a fresh cache hit, otherwise asks the provider and falls back
// to a stale cache entry when the provider fails.
func (r *Router) fetch(ctx context.Context, p Provider, start, end time.Time) (SeriesResult, error) {
	key := CacheKey(r.City, p.Name(), start, end)
	now := r.now()

	cached, age, hit := r.load(ctx, key, now)
	if hit && age <= r.Fresh {
		return result(p.Name(), cached, StatusFresh, age), nil
	}

	samples, err := p.Fetch(ctx, Query{Lat: r.Lat, Lon: r.Lon, Start: start, End: end})
	if err == nil {
		var series Series
		series, err = Normalize(samples, start, end)
		if err == nil {
			entry := cachedSeries{FetchedAt: now, Series: series}
			r.save(ctx, key, entry)
			return result(p.Name(), entry, StatusFresh, 0), nil
		}
	}

	if hit && age <= r.Stale {
		return result(p.Name(), cached, StatusStale, age), nil
	}
	return SeriesResult{}, err
}

func (r *Router) load(ctx context.Context, key string, now time.Time) (cachedSeries, time.Duration, bool) {
	if r.Store == nil {
		return cachedSeries{}, 0, false
	}
	raw, ok, err := r.Store.Get(ctx, key)
	if err != nil {
		r.logger().Warn("weather cache read failed", "key", key, "error", err)
		return cachedSeries{}, 0, false
	}
	if !ok {
		return cachedSeries{}, 0, false
	}
	var c cachedSeries
	if err := json.Unmarshal(raw, &c); err != nil || c.FetchedAt.IsZero() {
		return cachedSeries{}, 0, false
	}
	age := now.Sub(c.FetchedAt)
	if age > r.Stale {
		return cachedSeries{}, 0, false
	}
	return c, max(0, age), true
}

func (r *Router) save(ctx context.Context, key string, c cachedSeries) {
	if r.Store == nil {
		return
	}
	raw, err := json.Marshal(c)
	if err != nil {
		return
	}
	if err := r.Store.Set(ctx, key, raw, r.Stale); err != nil {
		r.logger().Warn("weather cache write failed", "key", key, "error", err)
	}
}

func result(provider string, c cachedSeries, status string, age time.Duration) SeriesResult {
	return SeriesResult{
		Provider:       provider,
		DataStatus:     status,
		FreshnessHours: math.Round(age.Hours()*100) / 100,
		FetchedAt:      c.FetchedAt,
		CloudByHour:    c.Series,
	}
}

// cacheHour keeps cache keys at hourly resolution, matching the series grid.
const cacheHour = "2006-01-02T15"

// CacheKey is the cache key of one provider's series for an hour range.
func CacheKey(city, provider string, start, end time.Time) string {
	return fmt.Sprintf("%s-%s-%s-%s", city, provider,
		start.UTC().Format(cacheHour), end.UTC().Format(cacheHour))
}

func (r *Router) position(i int) int {
	if i < len(r.positions) {
		return r.positions[i]
	}
	return i
}

func (r *Router) observe(provider, status string) {
	if r.Observer != nil {
		r.Observer.ProviderResult(provider, status)
	}
}

func (r *Router) now() time.Time {
	if r.Now == nil {
		return time.Now()
	}
	return r.Now()
}

func (r *Router) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}
