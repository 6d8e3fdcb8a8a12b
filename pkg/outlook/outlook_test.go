package outlook

import (
	"reflect"
	"testing"
	"time"

	"github.com/ChicagoDave/sunnysips/pkg/cafes"
	"github.com/ChicagoDave/sunnysips/pkg/ranking"
	"github.com/ChicagoDave/sunnysips/pkg/spatial"
)

var base = time.Date(2025, 6, 15, 8, 0, 0, 0, time.UTC)

func rows(conds ...string) []HourlyRow {
	out := make([]HourlyRow, len(conds))
	for i, c := range conds {
		t := base.Add(time.Duration(i) * time.Hour)
		out[i] = HourlyRow{TimeUTC: t, TimeLocal: t, Timezone: "UTC", Condition: c}
	}
	return out
}

// --- MergeWindows tests ---

func TestMergeWindowsExample(t *testing.T) {
	got := MergeWindows(rows("partial", "sunny", "shaded", "sunny"), 90)
	if len(got) != 1 {
		t.Fatalf("expected 1 window, got %d", len(got))
	}
	w := got[0]
	if !w.StartUTC.Equal(base) || !w.EndUTC.Equal(base.Add(2*time.Hour)) {
		t.Errorf("expected %v-%v, got %v-%v", base, base.Add(2*time.Hour), w.StartUTC, w.EndUTC)
	}
	if w.DurationMin != 120 {
		t.Errorf("expected 120 minutes, got %d", w.DurationMin)
	}
	if w.Condition != ranking.Partial {
		t.Errorf("expected partial, got %s", w.Condition)
	}
}

func TestMergeWindowsEmpty(t *testing.T) {
	got := MergeWindows(nil, 30)
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %v", got)
	}
}

func TestMergeWindowsAllSunny(t *testing.T) {
	got := MergeWindows(rows("sunny", "sunny", "sunny"), 30)
	if len(got) != 1 || got[0].Condition != ranking.Sunny || got[0].DurationMin != 180 {
		t.Errorf("expected one 180 minute sunny window, got %+v", got)
	}
}

func TestMergeWindowsNoGapTolerance(t *testing.T) {
	got := MergeWindows(rows("sunny", "shaded", "sunny", "shaded", "partial"), 0)
	if len(got) != 3 {
		t.Fatalf("expected 3 windows, got %d", len(got))
	}
	for _, w := range got {
		if w.DurationMin != 60 {
			t.Errorf("expected 60 minute windows, got %d", w.DurationMin)
		}
	}
}

func TestMergeWindowsAllShaded(t *testing.T) {
	if got := MergeWindows(rows("shaded", "shaded"), 0); len(got) != 0 {
		t.Errorf("expected no windows, got %+v", got)
	}
}

func TestMergeWindowsLocalEnd(t *testing.T) {
	loc := time.FixedZone("CEST", 2*3600)
	in := rows("sunny", "sunny")
	for i := range in {
		in[i].TimeLocal = in[i].TimeUTC.In(loc)
	}
	w := MergeWindows(in, 30)[0]
	if w.EndLocal.Location() != loc || w.EndLocal.Hour() != 12 {
		t.Errorf("expected end 12:00 CEST, got %v", w.EndLocal)
	}
	if w.StartLocal.Hour() != 10 {
		t.Errorf("expected start 10:00 CEST, got %v", w.StartLocal)
	}
}

// --- RankRecommendations tests ---

func window(start time.Time, hours int, cond string) Window {
	end := start.Add(time.Duration(hours) * time.Hour)
	return Window{StartUTC: start, EndUTC: end, StartLocal: start, EndLocal: end, DurationMin: hours * 60, Condition: cond}
}

func TestRankRecommendationsScore(t *testing.T) {
	now := base
	groups := []CafeWindows{{
		CafeID:   "osm-1",
		CafeName: "Alpha",
		Windows:  []Window{window(base.Add(2*time.Hour), 2, ranking.Sunny)},
	}}
	got := RankRecommendations(groups, []string{"morning"}, now)
	if len(got) != 1 {
		t.Fatalf("expected 1 item, got %d", len(got))
	}
	// 40 duration + 30 sunny + 16 soonness + 10 morning.
	if got[0].Score != 96 {
		t.Errorf("expected score 96, got %f", got[0].Score)
	}
	want := "long sun window, matches preferred period, high direct-sun potential"
	if got[0].Reason != want {
		t.Errorf("expected reason %q, got %q", want, got[0].Reason)
	}
}

func TestRankRecommendationsReasons(t *testing.T) {
	now := base
	short := window(base.Add(20*time.Hour), 1, ranking.Partial)
	short.DurationMin = 30
	solid := window(base.Add(20*time.Hour), 1, ranking.Partial)
	groups := []CafeWindows{
		{CafeID: "a", CafeName: "A", Windows: []Window{short}},
		{CafeID: "b", CafeName: "B", Windows: []Window{solid}},
	}
	got := RankRecommendations(groups, nil, now)
	if got[0].Reason != "solid sun window" || got[1].Reason != "short sun window" {
		t.Errorf("unexpected reasons %q, %q", got[0].Reason, got[1].Reason)
	}
	// 20 duration + 15 partial, soonness floored at 0.
	if got[0].Score != 35 {
		t.Errorf("expected score 35, got %f", got[0].Score)
	}
}

func TestRankRecommendationsDropsEnded(t *testing.T) {
	now := base.Add(3 * time.Hour)
	groups := []CafeWindows{{
		CafeID:   "a",
		CafeName: "A",
		Windows: []Window{
			window(base, 3, ranking.Sunny),
			window(base.Add(2*time.Hour), 2, ranking.Sunny),
		},
	}}
	got := RankRecommendations(groups, nil, now)
	if len(got) != 1 {
		t.Fatalf("expected ended window dropped, got %d items", len(got))
	}
	// In-progress window counts as starting now.
	if got[0].Score != 40+30+20 {
		t.Errorf("expected score 90, got %f", got[0].Score)
	}
}

func TestRankRecommendationsTieBreak(t *testing.T) {
	now := base.Add(-24 * time.Hour)
	early := window(base, 2, ranking.Sunny)
	late := window(base.Add(time.Hour), 2, ranking.Sunny)
	groups := []CafeWindows{
		{CafeID: "z", CafeName: "Zulu", Windows: []Window{early}},
		{CafeID: "b", CafeName: "Bravo", Windows: []Window{late}},
		{CafeID: "a", CafeName: "Alpha", Windows: []Window{late}},
		{CafeID: "y", CafeName: "Alpha", Windows: []Window{late}},
	}
	got := RankRecommendations(groups, nil, now)
	var ids []string
	for _, r := range got {
		ids = append(ids, r.CafeID)
	}
	if want := []string{"z", "a", "y", "b"}; !reflect.DeepEqual(ids, want) {
		t.Errorf("expected order %v, got %v", want, ids)
	}
}

func TestRankRecommendationsDeterministic(t *testing.T) {
	now := base
	groups := []CafeWindows{
		{CafeID: "a", CafeName: "A", Windows: []Window{window(base.Add(time.Hour), 1, ranking.Partial), window(base.Add(5*time.Hour), 3, ranking.Sunny)}},
		{CafeID: "b", CafeName: "B", Windows: []Window{window(base.Add(time.Hour), 1, ranking.Partial)}},
	}
	first := RankRecommendations(groups, DefaultPeriods, now)
	second := RankRecommendations(groups, DefaultPeriods, now)
	if !reflect.DeepEqual(first, second) {
		t.Error("expected identical output for identical input")
	}
}

func TestRankRecommendationsEmpty(t *testing.T) {
	if got := RankRecommendations(nil, nil, base); got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %v", got)
	}
}

func TestMatchesPeriod(t *testing.T) {
	cases := []struct {
		hour    int
		periods []string
		want    bool
	}{
		{6, []string{"morning"}, true},
		{11, []string{"morning"}, false},
		{11, []string{" Lunch "}, true},
		{17, []string{"afternoon"}, true},
		{21, []string{"evening"}, true},
		{22, []string{"evening"}, false},
		{3, DefaultPeriods, false},
	}
	for _, tc := range cases {
		if got := MatchesPeriod(tc.hour, tc.periods); got != tc.want {
			t.Errorf("MatchesPeriod(%d, %v) = %v, want %v", tc.hour, tc.periods, got, tc.want)
		}
	}
}

// --- Hourly tests ---

type fakeScorer struct {
	calls int
}

func (f *fakeScorer) Rank(cs []cafes.Cafe, _ *spatial.Index, t time.Time, cloud float64, _ int) []ranking.Result {
	f.calls++
	elev := 30.0
	if t.Hour() >= 20 {
		elev = -5
	}
	return []ranking.Result{{ID: cs[0].ID, SunnyScore: 100 - cloud, SunElevation: elev, CloudCover: cloud}}
}

type fakeClouds map[time.Time]float64

func (f fakeClouds) Cloud(t time.Time) (float64, bool) {
	v, ok := f[t]
	return v, ok
}

func TestHourly(t *testing.T) {
	loc := time.FixedZone("CEST", 2*3600)
	scorer := &fakeScorer{}
	b := Builder{Scorer: scorer, Location: loc}
	id := int64(1)
	c := cafes.New(&id, "Alpha", 12.57, 55.68)

	r := Range{Start: base.Add(10 * time.Hour), End: base.Add(13 * time.Hour)}
	clouds := fakeClouds{
		base.Add(10 * time.Hour): 10,
		base.Add(11 * time.Hour): 60,
		base.Add(12 * time.Hour): 95,
	}
	got := b.Hourly(c, r, clouds, base)
	if len(got) != 4 || scorer.calls != 4 {
		t.Fatalf("expected 4 rows and calls, got %d rows %d calls", len(got), scorer.calls)
	}

	want := []struct {
		cond  string
		cloud float64
	}{
		{ranking.Sunny, 10},
		{ranking.Partial, 60},
		{ranking.Shaded, 95},
		{ranking.Shaded, DefaultCloud},
	}
	for i, w := range want {
		if got[i].Condition != w.cond || got[i].CloudCover != w.cloud {
			t.Errorf("row %d: expected %s/%f, got %s/%f", i, w.cond, w.cloud, got[i].Condition, got[i].CloudCover)
		}
	}
	if got[0].Timezone != "CEST" || got[0].TimeLocal.Hour() != 20 {
		t.Errorf("expected local rendering in CEST, got %v", got[0].TimeLocal)
	}
	if got[0].ConfidenceHint != 0.9 {
		t.Errorf("expected confidence 0.9, got %f", got[0].ConfidenceHint)
	}
}

func TestNewRange(t *testing.T) {
	now := time.Date(2025, 6, 15, 8, 42, 13, 0, time.UTC)
	r := NewRange(now, 5)
	if !r.Start.Equal(base) {
		t.Errorf("expected start truncated to %v, got %v", base, r.Start)
	}
	if n := len(r.Hours()); n != 120 {
		t.Errorf("expected 120 hours, got %d", n)
	}
	if n := len(NewRange(now, 0).Hours()); n != 24 {
		t.Errorf("expected days clamped to 1, got %d hours", n)
	}
	if n := len(NewRange(now, 9).Hours()); n != 120 {
		t.Errorf("expected days clamped to 5, got %d hours", n)
	}
}

func TestConfidenceHint(t *testing.T) {
	cases := map[float64]float64{0: 0.9, 24: 0.9, 30: 0.8, 60: 0.72, 90: 0.65, 110: 0.58, 200: 0.5}
	for h, want := range cases {
		if got := ConfidenceHint(h); got != want {
			t.Errorf("ConfidenceHint(%f) = %f, want %f", h, got, want)
		}
	}
}

func TestParseInclude(t *testing.T) {
	cases := []struct {
		raw  string
		want map[string]bool
	}{
		{"hourly", map[string]bool{"hourly": true}},
		{" Windows ,bogus", map[string]bool{"windows": true}},
		{"", map[string]bool{"hourly": true, "windows": true}},
		{"bogus", map[string]bool{"hourly": true, "windows": true}},
	}
	for _, tc := range cases {
		if got := ParseInclude(tc.raw); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("ParseInclude(%q) = %v, want %v", tc.raw, got, tc.want)
		}
	}
}

// --- Daylight tests ---

func TestDaylight(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Copenhagen")
	if err != nil {
		t.Skipf("time zone data unavailable: %v", err)
	}
	// 23:00 UTC is already the next local day in summer.
	r := Range{
		Start: time.Date(2024, 6, 20, 22, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 6, 21, 23, 0, 0, 0, time.UTC),
	}
	days := Daylight(r, loc, 55.676, 12.568)
	if len(days) != 2 {
		t.Fatalf("expected 2 local days, got %d", len(days))
	}
	if days[0].Date != "2024-06-21" || days[1].Date != "2024-06-22" {
		t.Errorf("unexpected dates %s, %s", days[0].Date, days[1].Date)
	}
	d := days[0]
	if d.Sunrise.Hour() != 4 || d.Sunset.Hour() != 21 {
		t.Errorf("expected sunrise near 04:25 and sunset near 21:57, got %s and %s",
			d.Sunrise.Format("15:04"), d.Sunset.Format("15:04"))
	}
	if !d.Sunrise.Before(d.Sunset) {
		t.Error("expected sunrise before sunset")
	}
}
