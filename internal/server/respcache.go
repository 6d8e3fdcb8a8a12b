package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/ChicagoDave/sunnysips/pkg/weather"
)

type cachedResponse struct {
	StoredAt time.Time       `json:"stored_at"`
	Payload  json.RawMessage `json:"payload"`
}

// responses caches computed payloads in a weather.Store so a failing
// weather lookup can fall back to the last good answer.
type responses struct {
	store weather.Store
	fresh time.Duration
	stale time.Duration
	now   func() time.Time
}

// load decodes the entry under key into out and returns its age.
func (c *responses) load(ctx context.Context, key string, out any) (time.Duration, bool) {
	if c == nil || c.store == nil {
		return 0, false
	}
	raw, ok, err := c.store.Get(ctx, key)
	if err != nil {
		slog.Warn("response cache read failed", "key", key, "error", err)
		return 0, false
	}
	if !ok {
		return 0, false
	}
	var entry cachedResponse
	if err := json.Unmarshal(raw, &entry); err != nil {
		return 0, false
	}
	age := max(0, c.now().Sub(entry.StoredAt))
	if age > c.stale {
		return 0, false
	}
	if err := json.Unmarshal(entry.Payload, out); err != nil {
		return 0, false
	}
	return age, true
}

func (c *responses) save(ctx context.Context, key string, payload any) {
	if c == nil || c.store == nil {
		return
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return
	}
	raw, err := json.Marshal(cachedResponse{StoredAt: c.now(), Payload: body})
	if err != nil {
		return
	}
	if err := c.store.Set(ctx, key, raw, c.stale); err != nil {
		slog.Warn("response cache write failed", "key", key, "error", err)
	}
}

func (c *responses) status(age time.Duration) string {
	return weather.CacheStatus(age, c.fresh, c.stale)
}

// cacheKey joins parts into a store key under a namespace.
func cacheKey(namespace string, parts ...string) string {
	return namespace + ":" + strings.Join(parts, "|")
}

func sortedJoin(items []string) string {
	cp := append([]string(nil), items...)
	sort.Strings(cp)
	return strings.Join(cp, ",")
}

func hours(age time.Duration) float64 {
	return math.Round(age.Hours()*100) / 100
}
