// Package snapshot produces per-area ranking documents for static
// publishing.
package snapshot

import (
	"sort"
	"time"

	"github.com/ChicagoDave/sunnysips/pkg/city"
	"github.com/ChicagoDave/sunnysips/pkg/ranking"
)

// DefaultTopN caps the cafés listed per slot.
const DefaultTopN = 2000

// Row is one ranked café with its map grouping.
type Row struct {
	ranking.Result
	Bucket       string `json:"bucket"`
	Neighborhood string `json:"neighborhood"`
}

// Groups index row ids by bucket and neighborhood for fast filtering.
type Groups struct {
	Buckets       map[string][]string `json:"buckets"`
	Neighborhoods map[string][]string `json:"neighborhoods"`
}

// Slot is the ranking of an area at one instant.
type Slot struct {
	TimeUTC    time.Time       `json:"time_utc"`
	TimeLocal  time.Time       `json:"time_local"`
	CloudCover float64         `json:"cloud_cover_pct"`
	Summary    ranking.Summary `json:"summary"`
	Cafes      []Row           `json:"cafes"`
	Groups     Groups          `json:"groups"`
}

// Area is the snapshot document of one named area.
type Area struct {
	ID          string    `json:"id"`
	GeneratedAt time.Time `json:"generated_at_utc"`
	City        string    `json:"city_id"`
	Area        string    `json:"area"`
	BBox        city.BBox `json:"bbox"`
	Error       string    `json:"error,omitempty"`
	Snapshots   []Slot    `json:"snapshots"`
}

// Count returns the café total of the first slot.
func (a *Area) Count() int {
	if len(a.Snapshots) == 0 {
		return 0
	}
	return a.Snapshots[0].Summary.Total
}

// IndexEntry points at one area file.
type IndexEntry struct {
	Area  string `json:"area"`
	File  string `json:"file"`
	Count int    `json:"count"`
}

// Index lists every area file of a run.
type Index struct {
	GeneratedAt time.Time    `json:"generated_at_utc"`
	City        string       `json:"city_id"`
	Areas       []IndexEntry `json:"areas"`
}

// NewGroups creates empty group indices.
func NewGroups() Groups {
	return Groups{
		Buckets:       make(map[string][]string),
		Neighborhoods: make(map[string][]string),
	}
}

func (g Groups) add(r Row) {
	g.Buckets[r.Bucket] = append(g.Buckets[r.Bucket], r.ID)
	g.Neighborhoods[r.Neighborhood] = append(g.Neighborhoods[r.Neighborhood], r.ID)
}

// Slots returns base followed by one slot per hour up to hoursAhead.
func Slots(base time.Time, hoursAhead int) []time.Time {
	out := []time.Time{base.UTC()}
	for h := 1; h <= hoursAhead; h++ {
		out = append(out, base.UTC().Add(time.Duration(h)*time.Hour))
	}
	return out
}

// NewSlot builds a slot from ranked results. At most topN rows are listed;
// the summary covers every result.
func NewSlot(t time.Time, loc *time.Location, cloud float64, rs []ranking.Result, topN int, nb ranking.Locator) Slot {
	if topN <= 0 {
		topN = DefaultTopN
	}
	s := Slot{
		TimeUTC:    t.UTC(),
		TimeLocal:  t.In(loc),
		CloudCover: cloud,
		Summary:    ranking.Summarize(rs),
		Cafes:      []Row{},
		Groups:     NewGroups(),
	}
	for i, r := range rs {
		if i >= topN {
			break
		}
		row := Row{Result: r, Bucket: ranking.Bucket(r.SunnyFraction), Neighborhood: city.OtherNeighborhood}
		if nb != nil {
			row.Neighborhood = nb.Neighborhood(r.Lon, r.Lat)
		}
		s.Cafes = append(s.Cafes, row)
		s.Groups.add(row)
	}
	return s
}

// SortedKeys returns the keys of a group map in order.
func SortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
