// Package ranking scores cafés by direct sun for one instant and one
// cloud-cover value.
package ranking

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ChicagoDave/sunnysips/pkg/cafes"
	"github.com/ChicagoDave/sunnysips/pkg/geo"
	"github.com/ChicagoDave/sunnysips/pkg/shadow"
	"github.com/ChicagoDave/sunnysips/pkg/spatial"
	"github.com/ChicagoDave/sunnysips/pkg/sun"
)

// Seating sample offsets, in meters.
const (
	SeatingOffsetSouth   = 5.0
	SeatingOffsetLateral = 2.5
	SearchMargin         = 3.0
)

// Result is the ranking record of one café.
type Result struct {
	ID            string  `json:"id"`
	OSMID         *int64  `json:"osm_id"`
	Name          string  `json:"name"`
	Lon           float64 `json:"lon"`
	Lat           float64 `json:"lat"`
	SunnyScore    float64 `json:"sunny_score"`
	SunnyFraction float64 `json:"sunny_fraction"`
	InShadow      bool    `json:"in_shadow"`
	SunElevation  float64 `json:"sun_elevation_deg"`
	SunAzimuth    float64 `json:"sun_azimuth_deg"`
	CloudCover    float64 `json:"cloud_cover_pct"`
}

// Stats describes the work done by one ranking call.
type Stats struct {
	Cafes       int
	Samples     int
	Candidates  int
	CacheHits   int
	CacheMisses int
	LowSun      bool
	Duration    time.Duration
}

// Engine ranks cafés around one reference point. The sun position is
// computed once at the reference and reused for every café; local meters
// are measured from the same point, matching the building projection.
type Engine struct {
	Lon     float64
	Lat     float64
	Proj    geo.Projection
	Workers int
}

// NewEngine returns an engine whose sun position and projection are
// centered on lon/lat.
func NewEngine(lon, lat float64) *Engine {
	return &Engine{Lon: lon, Lat: lat, Proj: geo.NewProjection(lon, lat), Workers: 1}
}

// Rank scores every located café at t. A limit <= 0 returns all results.
func (e *Engine) Rank(cs []cafes.Cafe, idx *spatial.Index, t time.Time, cloudPct float64, limit int) []Result {
	out, _ := e.RankStats(cs, idx, t, cloudPct, limit)
	return out
}

// RankStats is Rank plus counters for the call.
func (e *Engine) RankStats(cs []cafes.Cafe, idx *spatial.Index, t time.Time, cloudPct float64, limit int) ([]Result, Stats) {
	out, stats, _ := e.RankContext(context.Background(), cs, idx, t, cloudPct, limit)
	return out, stats
}

// RankContext is RankStats that stops scoring once ctx is done and returns
// ctx's error instead of a partial ranking.
func (e *Engine) RankContext(ctx context.Context, cs []cafes.Cafe, idx *spatial.Index, t time.Time, cloudPct float64, limit int) ([]Result, Stats, error) {
	start := time.Now()
	stats := Stats{}
	if len(cs) == 0 {
		return []Result{}, stats, nil
	}

	pos := sun.At(e.Lat, e.Lon, t)
	cloud := clampCloud(cloudPct)
	base := Result{
		SunElevation: round(pos.Elevation, 2),
		SunAzimuth:   round(pos.Azimuth, 2),
		CloudCover:   round(cloud, 1),
	}

	if !pos.Above(shadow.MinElevation) {
		stats.LowSun = true
		out := make([]Result, 0, len(cs))
		for _, c := range cs {
			if !c.HasLocation() {
				continue
			}
			r := base
			fill(&r, c)
			r.InShadow = true
			out = append(out, r)
		}
		sortResults(out)
		stats.Cafes = len(out)
		stats.Duration = time.Since(start)
		return truncate(out, limit), stats, nil
	}

	q := &query{
		idx:    idx,
		pos:    pos,
		radius: searchRadius(idx.MaxHeight(), pos.Elevation) + SearchMargin,
		cache:  map[int]*shadow.Shadow{},
	}
	weather := 1 - cloud/100

	located := make([]cafes.Cafe, 0, len(cs))
	for _, c := range cs {
		if c.HasLocation() {
			located = append(located, c)
		}
	}

	out := make([]Result, len(located))
	score := func(i int) {
		c := located[i]
		frac := q.sunnyFraction(e.seats(c))
		r := base
		fill(&r, c)
		r.SunnyFraction = round(frac, 3)
		r.SunnyScore = round(100*frac*weather, 1)
		r.InShadow = frac == 0
		out[i] = r
	}

	if e.Workers > 1 && len(located) > 1 {
		q.mu = &sync.Mutex{}
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(e.Workers)
		for i := range located {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				score(i)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, stats, err
		}
	} else {
		for i := range located {
			if err := ctx.Err(); err != nil {
				return nil, stats, err
			}
			score(i)
		}
	}

	sortResults(out)

	stats.Cafes = len(out)
	stats.Samples = q.samples
	stats.Candidates = q.candidates
	stats.CacheHits = q.hits
	stats.CacheMisses = q.misses
	stats.Duration = time.Since(start)
	return truncate(out, limit), stats, nil
}

// seats returns the sampled seating points of a café in local meters: one
// point south of the café and two lateral variants of it.
func (e *Engine) seats(c cafes.Cafe) []geo.Point2D {
	p := e.Proj.ToLocal(c.Lon, c.Lat).Add(geo.Pt(0, -SeatingOffsetSouth))
	return []geo.Point2D{
		p,
		p.Add(geo.Pt(-SeatingOffsetLateral, 0)),
		p.Add(geo.Pt(SeatingOffsetLateral, 0)),
	}
}

// query holds the per-call shadow cache. mu is set only on the parallel
// path.
type query struct {
	idx    *spatial.Index
	pos    sun.Position
	radius float64

	mu         *sync.Mutex
	cache      map[int]*shadow.Shadow
	samples    int
	candidates int
	hits       int
	misses     int
}

func (q *query) sunnyFraction(seats []geo.Point2D) float64 {
	sunny := 0
	for _, pt := range seats {
		if !q.shaded(pt) {
			sunny++
		}
	}
	q.count(len(seats))
	return float64(sunny) / float64(max(1, len(seats)))
}

func (q *query) shaded(pt geo.Point2D) bool {
	for _, i := range q.idx.Near(pt, q.radius) {
		if q.shadow(i).Covers(pt) {
			return true
		}
	}
	return false
}

func (q *query) shadow(i int) *shadow.Shadow {
	if q.mu != nil {
		q.mu.Lock()
		defer q.mu.Unlock()
	}
	q.candidates++
	if s, ok := q.cache[i]; ok {
		q.hits++
		return s
	}
	q.misses++
	b := q.idx.Building(i)
	s := shadow.Project(b.Footprint, b.HeightM, q.pos.Azimuth, q.pos.Elevation)
	q.cache[i] = s
	return s
}

func (q *query) count(n int) {
	if q.mu != nil {
		q.mu.Lock()
		defer q.mu.Unlock()
	}
	q.samples += n
}

// searchRadius bounds how far away a building can be and still shade a
// point.
func searchRadius(maxHeight, elevationDeg float64) float64 {
	tanEl := math.Tan(elevationDeg * math.Pi / 180)
	if tanEl <= 0 {
		return shadow.MaxLength
	}
	return math.Min(shadow.MaxLength, maxHeight/tanEl)
}

// sortResults orders by (score, fraction, name) descending.
func sortResults(rs []Result) {
	sort.SliceStable(rs, func(i, j int) bool {
		a, b := rs[i], rs[j]
		if a.SunnyScore != b.SunnyScore {
			return a.SunnyScore > b.SunnyScore
		}
		if a.SunnyFraction != b.SunnyFraction {
			return a.SunnyFraction > b.SunnyFraction
		}
		return a.Name > b.Name
	})
}

func fill(r *Result, c cafes.Cafe) {
	r.ID = c.ID
	r.OSMID = c.OSMID
	r.Name = c.Name
	r.Lon = c.Lon
	r.Lat = c.Lat
}

func truncate(rs []Result, limit int) []Result {
	if limit > 0 && len(rs) > limit {
		return rs[:limit]
	}
	return rs
}

func clampCloud(v float64) float64 {
	if math.IsNaN(v) {
		return 50
	}
	return math.Max(0, math.Min(100, v))
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
