package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/ChicagoDave/sunnysips/internal/app"
	"github.com/ChicagoDave/sunnysips/pkg/cafes"
	"github.com/ChicagoDave/sunnysips/pkg/outlook"
	"github.com/ChicagoDave/sunnysips/pkg/weather"
)

// Cache namespaces, also used as metric labels.
const (
	cacheOutlook   = "outlook"
	cacheFavorites = "favorites"
)

type outlookPayload struct {
	CafeID         string              `json:"cafe_id"`
	CityID         string              `json:"city_id"`
	Timezone       string              `json:"timezone"`
	DataStatus     string              `json:"data_status"`
	FreshnessHours *float64            `json:"freshness_hours"`
	ProviderUsed   *string             `json:"provider_used"`
	FallbackUsed   bool                `json:"fallback_used"`
	Hourly         []outlook.HourlyRow `json:"hourly"`
	Windows        []outlook.Window    `json:"windows"`
	Daylight       []outlook.Day       `json:"daylight"`
	GeneratedAt    time.Time           `json:"generated_at_utc"`
	Error          string              `json:"error,omitempty"`
	ErrorDetail    string              `json:"error_detail,omitempty"`
}

type favoritePrefs struct {
	MinDurationMin   *int     `json:"min_duration_min"`
	PreferredPeriods []string `json:"preferred_periods"`
}

type favoritesRequest struct {
	CityID      string         `json:"city_id"`
	FavoriteIDs []string       `json:"favorite_ids"`
	Days        *int           `json:"days"`
	Prefs       *favoritePrefs `json:"prefs"`
}

type favoritesPayload struct {
	CityID         string                   `json:"city_id"`
	Timezone       string                   `json:"timezone"`
	DataStatus     string                   `json:"data_status"`
	FreshnessHours *float64                 `json:"freshness_hours"`
	ProviderUsed   *string                  `json:"provider_used"`
	FallbackUsed   bool                     `json:"fallback_used"`
	Items          []outlook.Recommendation `json:"items"`
	GeneratedAt    time.Time                `json:"generated_at_utc"`
	Error          string                   `json:"error,omitempty"`
}

// handleOutlook returns hourly conditions and sun windows of one café.
// Fresh cached answers are served directly; when the weather lookup fails
// a cached answer up to the stale age is served instead.
func (s *Server) handleOutlook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]
	q := r.URL.Query()

	if !s.knownCity(w, q.Get("city_id")) {
		return
	}
	days, err := intParam(q, "days", s.city.Defaults.Days, 1, outlook.MaxDays)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	minDur, err := intParam(q, "min_duration_min", s.city.Defaults.MinDurationMin, 0, MaxDurationMin)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rawInclude := q.Get("include")
	if rawInclude == "" {
		rawInclude = "hourly,windows"
	}
	include := outlook.ParseInclude(rawInclude)

	key := cacheKey(cacheOutlook, s.city.ID, id, strconv.Itoa(days), includeKey(include), strconv.Itoa(minDur))
	var cached outlookPayload
	age, hit := s.cache.load(ctx, key, &cached)
	if hit && age <= s.cache.fresh {
		s.metrics.CacheHit(cacheOutlook)
		cached.DataStatus = s.cache.status(age)
		cached.FreshnessHours = ptr(hours(age))
		writeJSON(w, http.StatusOK, cached)
		return
	}
	s.metrics.CacheMiss(cacheOutlook)

	d, ok := s.dataset(w)
	if !ok {
		return
	}
	c, err := cafes.Find(d.Cafes, id)
	if err != nil {
		p := s.unavailableOutlook(id)
		p.Error = "Cafe not found"
		writeJSON(w, http.StatusOK, p)
		return
	}

	payload, err := s.computeOutlook(ctx, d, c, id, days, include, minDur)
	if err == nil {
		s.cache.save(ctx, key, payload)
		writeJSON(w, http.StatusOK, payload)
		return
	}

	if hit {
		cached.DataStatus = weather.StatusStale
		cached.FreshnessHours = ptr(hours(age))
		cached.FallbackUsed = true
		cached.Error = "Using cached outlook: " + err.Error()
		writeJSON(w, http.StatusOK, cached)
		return
	}
	p := s.unavailableOutlook(id)
	p.Error = "Outlook unavailable"
	p.ErrorDetail = err.Error()
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) computeOutlook(ctx context.Context, d *app.Dataset, c cafes.Cafe, id string, days int, include map[string]bool, minDur int) (outlookPayload, error) {
	now := s.now().UTC()
	rng := outlook.NewRange(now, days)
	series, err := s.series(ctx, rng)
	if err != nil {
		return outlookPayload{}, err
	}

	b := outlook.Builder{Scorer: d.Engine, Index: d.Index, Location: s.city.Location()}
	rows := b.Hourly(c, rng, series.CloudByHour, now)

	p := outlookPayload{
		CafeID:         id,
		CityID:         s.city.ID,
		Timezone:       s.city.Timezone,
		DataStatus:     series.DataStatus,
		FreshnessHours: ptr(series.FreshnessHours),
		ProviderUsed:   ptr(series.Provider),
		FallbackUsed:   series.FallbackUsed,
		Hourly:         []outlook.HourlyRow{},
		Windows:        []outlook.Window{},
		Daylight:       outlook.Daylight(rng, s.city.Location(), c.Lat, c.Lon),
		GeneratedAt:    now,
	}
	if include[outlook.IncludeHourly] {
		p.Hourly = rows
	}
	if include[outlook.IncludeWindows] {
		p.Windows = outlook.MergeWindows(rows, minDur)
	}
	return p, nil
}

func (s *Server) unavailableOutlook(id string) outlookPayload {
	return outlookPayload{
		CafeID:      id,
		CityID:      s.city.ID,
		Timezone:    s.city.Timezone,
		DataStatus:  weather.StatusUnavailable,
		Hourly:      []outlook.HourlyRow{},
		Windows:     []outlook.Window{},
		Daylight:    []outlook.Day{},
		GeneratedAt: s.now().UTC(),
	}
}

// handleFavorites ranks the sun windows of a user's favorite cafés.
func (s *Server) handleFavorites(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req favoritesRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if !s.knownCity(w, req.CityID) {
		return
	}

	days := s.city.Defaults.Days
	if req.Days != nil {
		if *req.Days < 1 || *req.Days > outlook.MaxDays {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("days must be in [1, %d]", outlook.MaxDays))
			return
		}
		days = *req.Days
	}
	minDur := s.city.Defaults.MinDurationMin
	periods := s.city.Defaults.PreferredPeriods
	if req.Prefs != nil {
		if req.Prefs.MinDurationMin != nil {
			if *req.Prefs.MinDurationMin < 0 || *req.Prefs.MinDurationMin > MaxDurationMin {
				writeError(w, http.StatusBadRequest, fmt.Sprintf("min_duration_min must be in [0, %d]", MaxDurationMin))
				return
			}
			minDur = *req.Prefs.MinDurationMin
		}
		if req.Prefs.PreferredPeriods != nil {
			periods = req.Prefs.PreferredPeriods
		}
	}
	ids := cafes.Dedupe(req.FavoriteIDs)

	key := cacheKey(cacheFavorites, s.city.ID, sortedJoin(ids), strconv.Itoa(days), strconv.Itoa(minDur), sortedJoin(periods))
	var cached favoritesPayload
	age, hit := s.cache.load(ctx, key, &cached)
	if hit && age <= s.cache.fresh {
		s.metrics.CacheHit(cacheFavorites)
		cached.DataStatus = s.cache.status(age)
		cached.FreshnessHours = ptr(hours(age))
		writeJSON(w, http.StatusOK, cached)
		return
	}
	s.metrics.CacheMiss(cacheFavorites)

	d, ok := s.dataset(w)
	if !ok {
		return
	}

	payload, err := s.computeFavorites(ctx, d, ids, days, minDur, periods)
	if err == nil {
		s.cache.save(ctx, key, payload)
		writeJSON(w, http.StatusOK, payload)
		return
	}

	if hit {
		cached.DataStatus = weather.StatusStale
		cached.FreshnessHours = ptr(hours(age))
		cached.FallbackUsed = true
		cached.Error = "Using cached recommendations: " + err.Error()
		writeJSON(w, http.StatusOK, cached)
		return
	}
	writeJSON(w, http.StatusOK, favoritesPayload{
		CityID:      s.city.ID,
		Timezone:    s.city.Timezone,
		DataStatus:  weather.StatusUnavailable,
		Items:       []outlook.Recommendation{},
		GeneratedAt: s.now().UTC(),
		Error:       "Recommendations unavailable",
	})
}

func (s *Server) computeFavorites(ctx context.Context, d *app.Dataset, ids []string, days, minDur int, periods []string) (favoritesPayload, error) {
	now := s.now().UTC()
	rng := outlook.NewRange(now, days)
	series, err := s.series(ctx, rng)
	if err != nil {
		return favoritesPayload{}, err
	}

	b := outlook.Builder{Scorer: d.Engine, Index: d.Index, Location: s.city.Location()}
	seen := map[string]bool{}
	var groups []outlook.CafeWindows
	for _, id := range ids {
		c, err := cafes.Find(d.Cafes, id)
		if err != nil || seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		rows := b.Hourly(c, rng, series.CloudByHour, now)
		groups = append(groups, outlook.CafeWindows{
			CafeID:   c.ID,
			CafeName: c.Name,
			Windows:  outlook.MergeWindows(rows, minDur),
		})
	}

	return favoritesPayload{
		CityID:         s.city.ID,
		Timezone:       s.city.Timezone,
		DataStatus:     series.DataStatus,
		FreshnessHours: ptr(series.FreshnessHours),
		ProviderUsed:   ptr(series.Provider),
		FallbackUsed:   series.FallbackUsed,
		Items:          outlook.RankRecommendations(groups, periods, now),
		GeneratedAt:    now,
	}, nil
}

func (s *Server) series(ctx context.Context, rng outlook.Range) (weather.SeriesResult, error) {
	if s.weather == nil {
		return weather.SeriesResult{}, weather.ErrNoProviders
	}
	return s.weather.Series(ctx, rng.Start, rng.End)
}

// knownCity accepts an empty id or the served city's id.
func (s *Server) knownCity(w http.ResponseWriter, id string) bool {
	if id == "" || strings.EqualFold(id, s.city.ID) {
		return true
	}
	writeError(w, http.StatusNotFound, fmt.Sprintf("unknown city %q", id))
	return false
}

func includeKey(include map[string]bool) string {
	parts := make([]string, 0, len(include))
	for k := range include {
		parts = append(parts, k)
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}

func ptr[T any](v T) *T { return &v }
