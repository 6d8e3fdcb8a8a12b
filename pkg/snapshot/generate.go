package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/ChicagoDave/sunnysips/pkg/cafes"
	"github.com/ChicagoDave/sunnysips/pkg/city"
	"github.com/ChicagoDave/sunnysips/pkg/ranking"
	"github.com/ChicagoDave/sunnysips/pkg/spatial"
	"github.com/ChicagoDave/sunnysips/pkg/weather"
)

// IndexFile is the name of the run index inside an output directory.
const IndexFile = "index.json"

// CloudSource supplies one cloud cover value per instant.
type CloudSource interface {
	CloudAt(ctx context.Context, t time.Time) float64
}

// Generator ranks the cafés of each configured area.
type Generator struct {
	City   *city.City
	Cafes  []cafes.Cafe
	Index  *spatial.Index
	Engine *ranking.Engine
	Clouds CloudSource
	TopN   int
	Now    func() time.Time
}

// Area builds the document of one named area for every slot.
func (g *Generator) Area(ctx context.Context, name string, slots []time.Time) (*Area, error) {
	bbox, err := g.City.Area(name)
	if err != nil {
		return nil, err
	}
	a := &Area{
		ID:          uuid.NewString(),
		GeneratedAt: g.now().UTC(),
		City:        g.City.ID,
		Area:        name,
		BBox:        bbox,
		Snapshots:   []Slot{},
	}

	inArea := cafes.Within(g.Cafes, bbox)
	if len(inArea) == 0 {
		a.Error = "No cafes in bbox"
		return a, nil
	}

	for _, t := range slots {
		cloud := weather.DefaultCloud
		if g.Clouds != nil {
			cloud = g.Clouds.CloudAt(ctx, t)
		}
		rs := g.Engine.Rank(inArea, g.Index, t, cloud, 0)
		a.Snapshots = append(a.Snapshots, NewSlot(t, g.City.Location(), round1(cloud), rs, g.TopN, g.City))
	}
	return a, nil
}

// Run builds every requested area. An empty list selects all configured
// areas.
func (g *Generator) Run(ctx context.Context, names []string, slots []time.Time) ([]*Area, Index, error) {
	if len(names) == 0 {
		names = g.City.AreaNames()
	}
	idx := Index{GeneratedAt: g.now().UTC(), City: g.City.ID, Areas: []IndexEntry{}}
	var out []*Area
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, Index{}, err
		}
		a, err := g.Area(ctx, name, slots)
		if err != nil {
			return nil, Index{}, err
		}
		out = append(out, a)
		idx.Areas = append(idx.Areas, IndexEntry{Area: name, File: name + ".json", Count: a.Count()})
		slog.Info("snapshot built", "area", name, "cafes", a.Count(), "slots", len(a.Snapshots))
	}
	return out, idx, nil
}

// Write stores each area as <area>.json plus the run index in dir.
func Write(dir string, areas []*Area, idx Index) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating snapshot dir: %w", err)
	}
	for _, a := range areas {
		if err := writeJSON(filepath.Join(dir, a.Area+".json"), a); err != nil {
			return err
		}
	}
	return writeJSON(filepath.Join(dir, IndexFile), idx)
}

func writeJSON(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func (g *Generator) now() time.Time {
	if g.Now == nil {
		return time.Now()
	}
	return g.Now()
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
