// Package store reads cafés from PostgreSQL as an alternative to the
// GeoJSON dataset.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/ChicagoDave/sunnysips/pkg/cafes"
	"github.com/ChicagoDave/sunnysips/pkg/city"
	"github.com/ChicagoDave/sunnysips/pkg/validation"
)

// Postgres loads cafés from a table with columns osm_id, name, lon, lat
// and outdoor_seating.
type Postgres struct {
	db    *sql.DB
	table string
}

// Open connects to dsn and verifies the connection.
func Open(ctx context.Context, dsn, table string) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Postgres{db: db, table: table}, nil
}

// Close closes the database connection.
func (p *Postgres) Close() error {
	return p.db.Close()
}

// Cafes returns every café inside bbox, ordered by name. Rows without
// coordinates are returned unlocated and reported.
func (p *Postgres) Cafes(ctx context.Context, bbox city.BBox) ([]cafes.Cafe, *validation.Report, error) {
	rows, err := p.db.QueryContext(ctx, selectQuery(p.table), bbox.MinLon(), bbox.MinLat(), bbox.MaxLon(), bbox.MaxLat())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query cafes: %w", err)
	}
	defer rows.Close()

	report := validation.NewReport()
	tally := validation.NewTally(validation.LevelData)
	var out []cafes.Cafe
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.osmID, &r.name, &r.lon, &r.lat, &r.seating); err != nil {
			return nil, nil, fmt.Errorf("failed to scan cafe: %w", err)
		}
		c, located := r.cafe()
		if !located {
			tally.Add("cafes.location", "cafe without coordinates")
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("error iterating rows: %w", err)
	}
	tally.Warnings(report)
	return out, report, nil
}

func selectQuery(table string) string {
	if table == "" {
		table = "cafes"
	}
	var quoted []string
	for _, part := range strings.Split(table, ".") {
		quoted = append(quoted, pq.QuoteIdentifier(part))
	}
	return `SELECT osm_id, name, lon, lat, outdoor_seating FROM ` + strings.Join(quoted, ".") +
		` WHERE lon IS NULL OR lat IS NULL OR (lon BETWEEN $1 AND $3 AND lat BETWEEN $2 AND $4) ORDER BY name, osm_id`
}

type row struct {
	osmID   sql.NullInt64
	name    sql.NullString
	lon     sql.NullFloat64
	lat     sql.NullFloat64
	seating sql.NullString
}

func (r row) cafe() (cafes.Cafe, bool) {
	var id *int64
	if r.osmID.Valid {
		v := r.osmID.Int64
		id = &v
	}
	name := r.name.String
	if !r.lon.Valid || !r.lat.Valid {
		if strings.TrimSpace(name) == "" {
			name = cafes.DefaultName
		}
		return cafes.Cafe{ID: cafes.FeatureID(id, r.name.String, 0, 0), OSMID: id, Name: name, OutdoorSeating: r.seating.String}, false
	}
	c := cafes.New(id, name, r.lon.Float64, r.lat.Float64)
	c.OutdoorSeating = r.seating.String
	return c, true
}
