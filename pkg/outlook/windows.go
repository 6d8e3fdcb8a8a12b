package outlook

import (
	"math"
	"time"

	"github.com/ChicagoDave/sunnysips/pkg/ranking"
)

// Window is a contiguous run of available hours.
type Window struct {
	StartUTC    time.Time `json:"start_utc"`
	EndUTC      time.Time `json:"end_utc"`
	StartLocal  time.Time `json:"start_local"`
	EndLocal    time.Time `json:"end_local"`
	DurationMin int       `json:"duration_min"`
	Condition   string    `json:"condition"`
}

// MergeWindows joins consecutive sunny or partial hours into windows.
// Each hour is a one hour bucket, so a window ends one hour after its last
// available row. Windows shorter than minDurationMin are dropped.
func MergeWindows(rows []HourlyRow, minDurationMin int) []Window {
	out := []Window{}
	start := -1
	allSunny := true

	closeRun := func(end int) {
		if start < 0 {
			return
		}
		w := window(rows[start], rows[end], allSunny)
		if w.DurationMin >= minDurationMin {
			out = append(out, w)
		}
		start = -1
		allSunny = true
	}

	for i, row := range rows {
		if !row.Available() {
			closeRun(i - 1)
			continue
		}
		if start < 0 {
			start = i
		}
		if row.Condition != ranking.Sunny {
			allSunny = false
		}
	}
	closeRun(len(rows) - 1)
	return out
}

func window(first, last HourlyRow, allSunny bool) Window {
	end := last.TimeUTC.Add(time.Hour)
	loc := first.TimeLocal.Location()
	cond := ranking.Partial
	if allSunny {
		cond = ranking.Sunny
	}
	return Window{
		StartUTC:    first.TimeUTC,
		EndUTC:      end,
		StartLocal:  first.TimeLocal,
		EndLocal:    end.In(loc),
		DurationMin: int(end.Sub(first.TimeUTC).Minutes()),
		Condition:   cond,
	}
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
