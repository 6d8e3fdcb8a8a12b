// Package app holds the loaded dataset of one city and swaps it atomically
// on reload.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ChicagoDave/sunnysips/pkg/buildings"
	"github.com/ChicagoDave/sunnysips/pkg/cafes"
	"github.com/ChicagoDave/sunnysips/pkg/city"
	"github.com/ChicagoDave/sunnysips/pkg/geo"
	"github.com/ChicagoDave/sunnysips/pkg/ranking"
	"github.com/ChicagoDave/sunnysips/pkg/spatial"
	"github.com/ChicagoDave/sunnysips/pkg/validation"
	"github.com/ChicagoDave/sunnysips/pkg/weather"
)

// ErrNotLoaded is returned before the first successful load.
var ErrNotLoaded = errors.New("dataset not loaded")

// Dataset is one immutable snapshot of cafés and buildings.
type Dataset struct {
	Cafes    []cafes.Cafe
	Index    *spatial.Index
	Engine   *ranking.Engine
	Report   *validation.Report
	LoadedAt time.Time
}

// CafeSource supplies cafés from somewhere other than the city's GeoJSON
// file, e.g. a database.
type CafeSource interface {
	Cafes(ctx context.Context, bbox city.BBox) ([]cafes.Cafe, *validation.Report, error)
}

// Hook is called with every dataset that becomes current.
type Hook func(*Dataset)

// Context is the application state shared by the HTTP handlers and CLI
// commands.
type Context struct {
	City    *city.City
	Source  CafeSource
	Workers int
	OnLoad  Hook
	Logger  *slog.Logger

	data atomic.Pointer[Dataset]
	mu   sync.Mutex
}

// New creates an empty context for c. Call Reload before use.
func New(c *city.City) *Context {
	return &Context{City: c, Workers: 1, Logger: slog.Default()}
}

// Dataset returns the current dataset, or nil before the first load.
func (a *Context) Dataset() *Dataset {
	return a.data.Load()
}

// Current is Dataset with an error when nothing is loaded yet.
func (a *Context) Current() (*Dataset, error) {
	d := a.data.Load()
	if d == nil {
		return nil, ErrNotLoaded
	}
	return d, nil
}

// Reload builds a new dataset and makes it current. Readers keep the old
// dataset until the swap; a failed load leaves it in place. Concurrent
// reloads run one at a time.
func (a *Context) Reload(ctx context.Context) (*Dataset, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	d, err := a.Load(ctx)
	if err != nil {
		return nil, err
	}
	a.data.Store(d)
	if a.OnLoad != nil {
		a.OnLoad(d)
	}
	a.logger().Info("dataset loaded",
		"city", a.City.ID,
		"cafes", len(d.Cafes),
		"buildings", d.Index.Len(),
		"warnings", len(d.Report.Warnings),
	)
	return d, nil
}

// Load reads cafés and buildings without touching the current dataset.
func (a *Context) Load(ctx context.Context) (*Dataset, error) {
	ref := a.City.Ref()
	proj := geo.NewProjection(ref.Lon(), ref.Lat())
	report := validation.NewReport()

	cs, cafeReport, err := a.loadCafes(ctx)
	if err != nil {
		return nil, err
	}
	report.Merge(cafeReport)

	var bs []buildings.Building
	if path := a.City.Path(a.City.Data.Buildings); path != "" {
		var bReport *validation.Report
		bs, bReport, err = buildings.LoadFile(path, proj)
		if err != nil {
			return nil, err
		}
		report.Merge(bReport)
	}

	engine := ranking.NewEngine(ref.Lon(), ref.Lat())
	engine.Workers = max(1, a.Workers)

	return &Dataset{
		Cafes:    cs,
		Index:    spatial.Build(bs),
		Engine:   engine,
		Report:   report,
		LoadedAt: time.Now().UTC(),
	}, nil
}

func (a *Context) loadCafes(ctx context.Context) ([]cafes.Cafe, *validation.Report, error) {
	if a.Source != nil {
		cs, r, err := a.Source.Cafes(ctx, a.City.BBox)
		if err != nil {
			return nil, nil, fmt.Errorf("loading cafes from source: %w", err)
		}
		return cs, r, nil
	}
	path := a.City.Path(a.City.Data.Cafes)
	if path == "" {
		return nil, nil, fmt.Errorf("city %s has no cafe data file", a.City.ID)
	}
	return cafes.LoadFile(path)
}

// NewWeather builds the weather router for the city from the built-in
// providers.
func NewWeather(c *city.City, registry map[string]weather.Provider, store weather.Store, fresh, stale time.Duration, obs weather.Observer) *weather.Router {
	ref := c.Ref()
	r := weather.NewRouter(c.ID, ref.Lat(), ref.Lon(), c.ProviderOrder, registry, store)
	if fresh > 0 {
		r.Fresh = fresh
	}
	if stale > 0 {
		r.Stale = stale
	}
	r.Observer = obs
	return r
}

func (a *Context) logger() *slog.Logger {
	if a.Logger == nil {
		return slog.Default()
	}
	return a.Logger
}
