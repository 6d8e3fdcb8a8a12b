package server

import (
	"crypto/subtle"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ChicagoDave/sunnysips/internal/app"
	"github.com/ChicagoDave/sunnysips/pkg/cafes"
	"github.com/ChicagoDave/sunnysips/pkg/city"
	"github.com/ChicagoDave/sunnysips/pkg/ranking"
	"github.com/ChicagoDave/sunnysips/pkg/weather"
)

// Request bounds.
const (
	MaxLimit            = 2000
	DefaultShadowRadius = 150.0
	MaxDurationMin      = 24 * 60
)

type sunnyResponse struct {
	Time       time.Time        `json:"time"`
	CloudCover float64          `json:"cloud_cover_pct"`
	Count      int              `json:"count"`
	Cafes      []ranking.Result `json:"cafes"`
}

type cityInfo struct {
	ID          string    `json:"city_id"`
	DisplayName string    `json:"display_name"`
	Timezone    string    `json:"timezone"`
	BBox        city.BBox `json:"bbox"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	d := s.app.Dataset()
	if d == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "loading", "city_id": s.city.ID})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"city_id":   s.city.ID,
		"cafes":     len(d.Cafes),
		"buildings": d.Index.Len(),
		"loaded_at": d.LoadedAt,
	})
}

// handleSunny ranks the cafés of the dataset, or of a bbox or named area,
// at one instant.
func (s *Server) handleSunny(w http.ResponseWriter, r *http.Request) {
	d, ok := s.dataset(w)
	if !ok {
		return
	}
	q := r.URL.Query()

	t, err := parseTime(q.Get("time"), s.now())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := intParam(q, "limit", s.city.Defaults.Limit, 1, MaxLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	minScore, err := floatParam(q, "min_score", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	cs := d.Cafes
	if box, ok, err := bboxParam(q); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	} else if ok {
		cs = cafes.Within(cs, box)
	} else if area := q.Get("area"); area != "" {
		box, err := s.city.Area(area)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		cs = cafes.Within(cs, box)
	}

	cloud := weather.DefaultCloud
	if s.weather != nil {
		cloud = s.weather.CloudAt(r.Context(), t)
	}

	criteria := ranking.Criteria{
		Only:         q.Get("only"),
		Neighborhood: q.Get("neighborhood"),
		MinScore:     minScore,
		Name:         q.Get("q"),
		MaxItems:     limit,
	}
	rankLimit := limit
	if filtering(criteria) {
		rankLimit = 0
	}
	results, stats, err := d.Engine.RankContext(r.Context(), cs, d.Index, t, cloud, rankLimit)
	if err != nil {
		slog.Warn("ranking aborted", "error", err)
		writeError(w, http.StatusServiceUnavailable, "ranking aborted: "+err.Error())
		return
	}
	s.metrics.ObserveRank(stats)
	results = ranking.Filter(results, criteria, s.city)

	writeJSON(w, http.StatusOK, sunnyResponse{
		Time:       t,
		CloudCover: cloud,
		Count:      len(results),
		Cafes:      results,
	})
}

func filtering(c ranking.Criteria) bool {
	active := func(v string) bool { return v != "" && v != "all" }
	return active(c.Only) || active(c.Neighborhood) || c.MinScore > 0 || strings.TrimSpace(c.Name) != ""
}

func (s *Server) handleCafes(w http.ResponseWriter, _ *http.Request) {
	d, ok := s.dataset(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cafes": d.Cafes})
}

func (s *Server) handleCities(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"cities": []cityInfo{{
			ID:          s.city.ID,
			DisplayName: s.city.DisplayName,
			Timezone:    s.city.Timezone,
			BBox:        s.city.BBox,
		}},
	})
}

// handleShadows returns building shadows around a point as GeoJSON.
func (s *Server) handleShadows(w http.ResponseWriter, r *http.Request) {
	d, ok := s.dataset(w)
	if !ok {
		return
	}
	q := r.URL.Query()
	ref := s.city.Ref()

	lon, err := floatParam(q, "lon", ref.Lon())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	lat, err := floatParam(q, "lat", ref.Lat())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	radius, err := floatParam(q, "radius", DefaultShadowRadius)
	if err != nil || radius <= 0 || radius > ranking.MaxShadowRadius {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("radius must be in (0, %.0f]", ranking.MaxShadowRadius))
		return
	}
	t, err := parseTime(q.Get("time"), s.now())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	fc := d.Engine.Shadows(d.Index, lon, lat, radius, t)
	data, err := fc.MarshalJSON()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "encoding shadows")
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// handleReload swaps in a freshly loaded dataset.
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if s.adminToken != "" {
		got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if subtle.ConstantTimeCompare([]byte(got), []byte(s.adminToken)) != 1 {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
	}
	d, err := s.app.Reload(r.Context())
	if err != nil {
		slog.Error("dataset reload failed", "error", err)
		writeError(w, http.StatusInternalServerError, "reload failed: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "reloaded",
		"cafes":     len(d.Cafes),
		"buildings": d.Index.Len(),
		"warnings":  len(d.Report.Warnings),
		"loaded_at": d.LoadedAt,
	})
}

func (s *Server) dataset(w http.ResponseWriter) (*app.Dataset, bool) {
	d, err := s.app.Current()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return nil, false
	}
	return d, true
}

// parseTime reads an ISO 8601 instant. Values without an offset are UTC;
// an empty value means now.
func parseTime(raw string, now time.Time) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return now.UTC(), nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q, expected ISO 8601 like 2025-06-15T14:00:00Z", raw)
}

func intParam(q url.Values, key string, def, lo, hi int) (int, error) {
	raw := q.Get(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < lo || v > hi {
		return 0, fmt.Errorf("%s must be an integer in [%d, %d]", key, lo, hi)
	}
	return v, nil
}

func floatParam(q url.Values, key string, def float64) (float64, error) {
	raw := q.Get(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number", key)
	}
	return v, nil
}

// bboxParam reads min_lon, min_lat, max_lon, max_lat. The box applies only
// when all four are present.
func bboxParam(q url.Values) (city.BBox, bool, error) {
	keys := [4]string{"min_lon", "min_lat", "max_lon", "max_lat"}
	var b city.BBox
	for i, k := range keys {
		if q.Get(k) == "" {
			return city.BBox{}, false, nil
		}
		v, err := floatParam(q, k, 0)
		if err != nil {
			return city.BBox{}, false, err
		}
		b[i] = v
	}
	return b, true, nil
}
