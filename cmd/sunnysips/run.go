package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/paulmach/orb/geojson"

	"github.com/ChicagoDave/sunnysips/internal/app"
	"github.com/ChicagoDave/sunnysips/internal/cache"
	"github.com/ChicagoDave/sunnysips/internal/config"
	"github.com/ChicagoDave/sunnysips/internal/logging"
	"github.com/ChicagoDave/sunnysips/internal/metrics"
	"github.com/ChicagoDave/sunnysips/internal/publish"
	"github.com/ChicagoDave/sunnysips/internal/server"
	"github.com/ChicagoDave/sunnysips/internal/store"
	"github.com/ChicagoDave/sunnysips/pkg/buildings"
	"github.com/ChicagoDave/sunnysips/pkg/cafes"
	"github.com/ChicagoDave/sunnysips/pkg/city"
	"github.com/ChicagoDave/sunnysips/pkg/outlook"
	"github.com/ChicagoDave/sunnysips/pkg/ranking"
	"github.com/ChicagoDave/sunnysips/pkg/snapshot"
	"github.com/ChicagoDave/sunnysips/pkg/validation"
	"github.com/ChicagoDave/sunnysips/pkg/weather"
)

type rankOptions struct {
	time         string
	area         string
	limit        int
	only         string
	neighborhood string
	minScore     float64
	cloud        float64
	json         bool
}

type outlookOptions struct {
	days        int
	minDuration int
	json        bool
}

type snapshotOptions struct {
	time       string
	hoursAhead int
	areas      []string
	top        int
	out        string
	publish    bool
}

// env is what every command needs: configuration, the city and cleanup
// for whatever was opened along the way.
type env struct {
	cfg     *config.Config
	city    *city.City
	closers []io.Closer
}

func (e *env) close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		_ = e.closers[i].Close()
	}
}

// setup loads configuration and the city. CLI commands log to stderr so
// their stdout stays clean; serve logs through the configured log file.
func setup(projectPath string, serving bool) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	e := &env{cfg: cfg}

	if serving {
		_, closer := logging.Init(cfg.Log)
		e.closers = append(e.closers, closer)
	} else {
		slog.SetDefault(logging.New(os.Stderr, cfg.Log.Level))
	}

	if projectPath == "" {
		projectPath = cfg.Project
	}
	if projectPath == "" {
		e.city = city.Copenhagen()
	} else {
		c, err := city.LoadProject(projectPath)
		if err != nil {
			e.close()
			return nil, fmt.Errorf("loading city: %w", err)
		}
		e.city = c
	}

	if report := validation.ValidateCity(e.city); !report.Valid {
		printValidationReport(report)
		e.close()
		return nil, fmt.Errorf("city %s has validation errors", e.city.ID)
	}
	return e, nil
}

// store returns the shared cache backend: Redis when configured, otherwise
// in-process memory.
func (e *env) store(ctx context.Context) weather.Store {
	if e.cfg.Redis.Enabled() {
		r, err := cache.DialRedis(ctx, e.cfg.Redis)
		if err == nil {
			e.closers = append(e.closers, r)
			return r
		}
		slog.Warn("redis unavailable, using memory cache", "addr", e.cfg.Redis.Addr, "error", err)
	}
	m := cache.NewMemory(e.cfg.Cache.Stale)
	e.closers = append(e.closers, m)
	return m
}

// load builds the application context and its first dataset. Cafés come
// from Postgres when DATABASE_URL is set.
func (e *env) load(ctx context.Context, onLoad app.Hook) (*app.Context, error) {
	a := app.New(e.city)
	a.Workers = e.cfg.Ranking.Workers
	a.OnLoad = onLoad
	if e.cfg.Database.Enabled() {
		pg, err := store.Open(ctx, e.cfg.Database.DSN, e.cfg.Database.Table)
		if err != nil {
			return nil, err
		}
		e.closers = append(e.closers, pg)
		a.Source = pg
	}
	if _, err := a.Reload(ctx); err != nil {
		return nil, fmt.Errorf("loading dataset: %w", err)
	}
	return a, nil
}

func (e *env) weather(st weather.Store, obs weather.Observer) *weather.Router {
	w := e.cfg.Weather
	registry := weather.Registry(w.Timeout, w.UserAgent, w.DMIKey)
	return app.NewWeather(e.city, registry, st, e.cfg.Cache.Fresh, e.cfg.Cache.Stale, obs)
}

func runServe(projectPath string, port int, portSet bool) error {
	e, err := setup(projectPath, true)
	if err != nil {
		return err
	}
	defer e.close()
	if portSet {
		e.cfg.HTTP.Port = port
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	a, err := e.load(ctx, func(d *app.Dataset) {
		m.SetDataset(len(d.Cafes), d.Index.Len())
	})
	if err != nil {
		return err
	}
	st := e.store(ctx)

	srv := server.New(a, server.Options{
		Weather:     e.weather(st, m),
		Cache:       st,
		Fresh:       e.cfg.Cache.Fresh,
		Stale:       e.cfg.Cache.Stale,
		Metrics:     m,
		AdminToken:  e.cfg.HTTP.AdminToken,
		CORSOrigins: e.cfg.HTTP.CORSOrigins,
	})
	return srv.ListenAndServe(ctx, e.cfg.HTTP)
}

func runRank(projectPath string, opts rankOptions) error {
	e, err := setup(projectPath, false)
	if err != nil {
		return err
	}
	defer e.close()
	ctx := context.Background()

	t, err := parseTime(opts.time)
	if err != nil {
		return err
	}
	a, err := e.load(ctx, nil)
	if err != nil {
		return err
	}
	d := a.Dataset()

	cs := d.Cafes
	if opts.area != "" {
		box, err := e.city.Area(opts.area)
		if err != nil {
			return err
		}
		cs = cafes.Within(cs, box)
	}

	cloud := opts.cloud
	if cloud < 0 {
		cloud = e.weather(e.store(ctx), nil).CloudAt(ctx, t)
	}

	results := d.Engine.Rank(cs, d.Index, t, cloud, 0)
	results = ranking.Filter(results, ranking.Criteria{
		Only:         opts.only,
		Neighborhood: opts.neighborhood,
		MinScore:     opts.minScore,
		MaxItems:     opts.limit,
	}, e.city)

	if opts.json {
		return printJSON(map[string]any{
			"time":            t,
			"cloud_cover_pct": cloud,
			"count":           len(results),
			"cafes":           results,
		})
	}
	printRanking(t.In(e.city.Location()), cloud, results)
	return nil
}

func runOutlook(projectPath, cafeID string, opts outlookOptions) error {
	if opts.days < 1 || opts.days > outlook.MaxDays {
		return fmt.Errorf("days must be in [1, %d]", outlook.MaxDays)
	}
	e, err := setup(projectPath, false)
	if err != nil {
		return err
	}
	defer e.close()
	ctx := context.Background()

	a, err := e.load(ctx, nil)
	if err != nil {
		return err
	}
	d := a.Dataset()
	c, err := cafes.Find(d.Cafes, cafeID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	rng := outlook.NewRange(now, opts.days)
	series, err := e.weather(e.store(ctx), nil).Series(ctx, rng.Start, rng.End)
	if err != nil {
		return fmt.Errorf("outlook unavailable: %w", err)
	}

	b := outlook.Builder{Scorer: d.Engine, Index: d.Index, Location: e.city.Location()}
	rows := b.Hourly(c, rng, series.CloudByHour, now)
	windows := outlook.MergeWindows(rows, opts.minDuration)
	days := outlook.Daylight(rng, e.city.Location(), c.Lat, c.Lon)

	if opts.json {
		return printJSON(map[string]any{
			"cafe_id":         c.ID,
			"provider_used":   series.Provider,
			"data_status":     series.DataStatus,
			"fallback_used":   series.FallbackUsed,
			"freshness_hours": series.FreshnessHours,
			"hourly":          rows,
			"windows":         windows,
			"daylight":        days,
		})
	}
	printOutlook(c, series, rows, windows, days)
	return nil
}

func runSnapshot(projectPath string, opts snapshotOptions) error {
	e, err := setup(projectPath, false)
	if err != nil {
		return err
	}
	defer e.close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	base, err := parseTime(opts.time)
	if err != nil {
		return err
	}
	if opts.publish && !e.cfg.Kafka.Enabled() {
		return fmt.Errorf("--publish needs KAFKA_BROKERS")
	}

	a, err := e.load(ctx, nil)
	if err != nil {
		return err
	}
	d := a.Dataset()

	g := &snapshot.Generator{
		City:   e.city,
		Cafes:  d.Cafes,
		Index:  d.Index,
		Engine: d.Engine,
		Clouds: e.weather(e.store(ctx), nil),
		TopN:   opts.top,
	}
	areas, idx, err := g.Run(ctx, opts.areas, snapshot.Slots(base, max(0, opts.hoursAhead)))
	if err != nil {
		return err
	}

	report := validation.NewReport()
	for _, area := range areas {
		report.Merge(snapshot.ValidateArea(area))
	}
	if !report.Valid {
		printValidationReport(report)
		return fmt.Errorf("snapshot failed validation")
	}

	if err := snapshot.Write(opts.out, areas, idx); err != nil {
		return err
	}
	fmt.Printf("Wrote %d areas to %s\n", len(areas), opts.out)

	if opts.publish {
		p := publish.NewProducer(e.cfg.Kafka.Brokers, e.cfg.Kafka.Topic)
		defer p.Close()
		if err := p.Publish(ctx, areas, idx); err != nil {
			return fmt.Errorf("publishing snapshot: %w", err)
		}
		fmt.Printf("Published %d areas to %s\n", len(areas), e.cfg.Kafka.Topic)
	}
	return nil
}

func runInspect(projectPath string, sample int) error {
	e, err := setup(projectPath, false)
	if err != nil {
		return err
	}
	defer e.close()

	path := e.city.Path(e.city.Data.Buildings)
	if path == "" {
		return fmt.Errorf("city %s has no building data file", e.city.ID)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading buildings: %w", err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return fmt.Errorf("parsing buildings: %w", err)
	}

	printCoverage(path, buildings.Inspect(fc, sample))
	return nil
}

func runValidate(projectPath string) error {
	e, err := setup(projectPath, false)
	if err != nil {
		return err
	}
	defer e.close()

	report := validation.ValidateCity(e.city)
	a := app.New(e.city)
	d, err := a.Load(context.Background())
	if err != nil {
		return err
	}
	report.Merge(d.Report)

	printValidationReport(report)

	if !report.Valid {
		os.Exit(1)
	}
	return nil
}

// parseTime reads an RFC 3339 instant; empty means now.
func parseTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Now().UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q: use RFC 3339, e.g. 2024-06-21T12:00:00Z", raw)
	}
	return t.UTC(), nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
