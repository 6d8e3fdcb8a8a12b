// Package weather fetches hourly cloud cover from forecast providers and
// routes between them with caching and ordered fallback.
package weather

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

// Data status values.
const (
	StatusFresh       = "fresh"
	StatusStale       = "stale"
	StatusUnavailable = "unavailable"
)

// Default freshness windows for cached series.
const (
	DefaultFresh = 2 * time.Hour
	DefaultStale = 12 * time.Hour
)

// DefaultCloud is used when no cloud value can be obtained.
const DefaultCloud = 50.0

// maxGap is how far the nearest sample may lie from a requested hour.
const maxGap = 12 * time.Hour

var (
	ErrNoProviders        = errors.New("no weather providers configured")
	ErrAllProvidersFailed = errors.New("all weather providers failed")
	ErrNoSamples          = errors.New("no cloud cover samples")
	ErrCoverage           = errors.New("provider coverage too far from requested horizon")
)

// Sample is one cloud cover reading.
type Sample struct {
	Time  time.Time
	Cloud float64
}

// Query is the location and hour range of a forecast request.
type Query struct {
	Lat   float64
	Lon   float64
	Start time.Time
	End   time.Time
}

// Provider fetches raw cloud cover samples.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, q Query) ([]Sample, error)
}

// Series maps hour-aligned Unix seconds to cloud cover percent.
type Series map[int64]float64

// Cloud returns the value for the hour containing t.
func (s Series) Cloud(t time.Time) (float64, bool) {
	v, ok := s[t.UTC().Truncate(time.Hour).Unix()]
	return v, ok
}

// CloudOr returns the value for t, or def when the hour is missing.
func (s Series) CloudOr(t time.Time, def float64) float64 {
	if v, ok := s.Cloud(t); ok {
		return v
	}
	return def
}

// Set stores a clamped value for the hour containing t.
func (s Series) Set(t time.Time, cloud float64) {
	s[t.UTC().Truncate(time.Hour).Unix()] = Clamp(cloud)
}

// Normalize resamples samples onto every hour from start to end using the
// nearest sample. It fails when any hour is more than 12 hours away from
// every sample.
func Normalize(samples []Sample, start, end time.Time) (Series, error) {
	if len(samples) == 0 {
		return nil, ErrNoSamples
	}
	ordered := make([]Sample, len(samples))
	copy(ordered, samples)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Time.Before(ordered[j].Time) })

	out := Series{}
	start = start.UTC().Truncate(time.Hour)
	end = end.UTC().Truncate(time.Hour)
	for t := start; !t.After(end); t = t.Add(time.Hour) {
		near := nearest(ordered, t)
		if gap := near.Time.Sub(t); gap > maxGap || gap < -maxGap {
			return nil, fmt.Errorf("%w: %s", ErrCoverage, t.Format(time.RFC3339))
		}
		out.Set(t, near.Cloud)
	}
	return out, nil
}

// nearest finds the sample closest to t in a time-ordered slice. Ties go to
// the earlier sample.
func nearest(ordered []Sample, t time.Time) Sample {
	i := sort.Search(len(ordered), func(i int) bool { return !ordered[i].Time.Before(t) })
	switch {
	case i == 0:
		return ordered[0]
	case i == len(ordered):
		return ordered[len(ordered)-1]
	}
	before, after := ordered[i-1], ordered[i]
	if after.Time.Sub(t) < t.Sub(before.Time) {
		return after
	}
	return before
}

// Clamp limits a cloud value to [0, 100]. NaN becomes DefaultCloud.
func Clamp(v float64) float64 {
	if math.IsNaN(v) {
		return DefaultCloud
	}
	return math.Max(0, math.Min(100, v))
}

// CacheStatus maps the age of cached data to a data status. A negative age
// means nothing is cached.
func CacheStatus(age, fresh, stale time.Duration) string {
	switch {
	case age < 0:
		return StatusUnavailable
	case age <= fresh:
		return StatusFresh
	case age <= stale:
		return StatusStale
	default:
		return StatusUnavailable
	}
}
