package snapshot

import (
	"fmt"

	"github.com/ChicagoDave/sunnysips/pkg/validation"
)

// ValidateArea performs structural validation on an area document.
// It checks row integrity, group index consistency, summaries and bounds.
func ValidateArea(a *Area) *validation.Report {
	r := validation.NewReport()

	if a == nil {
		r.AddError(validation.Result{
			Level:   validation.LevelData,
			Message: "snapshot is nil",
		})
		return r
	}

	for i := range a.Snapshots {
		s := &a.Snapshots[i]
		path := fmt.Sprintf("snapshots[%d]", i)
		validateRowIDs(s, path, r)
		validateGroupIndices(s, path, r)
		validateGroupMembership(s, path, r)
		validateSummary(s, path, r)
		validateScores(s, path, r)
		validateBounds(a, s, path, r)
	}

	return r
}

func validateRowIDs(s *Slot, path string, r *validation.Report) {
	seen := make(map[string]int, len(s.Cafes))

	for i, row := range s.Cafes {
		if row.ID == "" {
			r.AddError(validation.Result{
				Level:       validation.LevelData,
				Message:     fmt.Sprintf("row at index %d has empty ID", i),
				Path:        fmt.Sprintf("%s.cafes[%d].id", path, i),
				ActualValue: "",
				Expected:    "non-empty string",
			})
			continue
		}
		if prev, exists := seen[row.ID]; exists {
			r.AddError(validation.Result{
				Level:       validation.LevelData,
				Message:     fmt.Sprintf("duplicate row ID %q at indices %d and %d", row.ID, prev, i),
				Path:        fmt.Sprintf("%s.cafes[%d].id", path, i),
				ActualValue: row.ID,
			})
		}
		seen[row.ID] = i
	}
}

func validateGroupIndices(s *Slot, path string, r *validation.Report) {
	ids := make(map[string]bool, len(s.Cafes))
	for _, row := range s.Cafes {
		ids[row.ID] = true
	}

	checkGroup := func(groupType, groupName string, members []string) {
		for _, id := range members {
			if !ids[id] {
				r.AddError(validation.Result{
					Level:       validation.LevelData,
					Message:     fmt.Sprintf("group %s.%s references non-existent row %q", groupType, groupName, id),
					Path:        fmt.Sprintf("%s.groups.%s.%s", path, groupType, groupName),
					ActualValue: id,
					Expected:    "existing row ID",
				})
			}
		}
	}

	for name, members := range s.Groups.Buckets {
		checkGroup("buckets", name, members)
	}
	for name, members := range s.Groups.Neighborhoods {
		checkGroup("neighborhoods", name, members)
	}
}

func validateGroupMembership(s *Slot, path string, r *validation.Report) {
	buckets := membership(s.Groups.Buckets)
	hoods := membership(s.Groups.Neighborhoods)

	for _, row := range s.Cafes {
		if row.ID == "" {
			continue
		}
		if !buckets[row.Bucket][row.ID] {
			r.AddError(validation.Result{
				Level:       validation.LevelData,
				Message:     fmt.Sprintf("row %q has bucket %q but is not in buckets group", row.ID, row.Bucket),
				Path:        fmt.Sprintf("%s.groups.buckets.%s", path, row.Bucket),
				ActualValue: row.ID,
			})
		}
		if !hoods[row.Neighborhood][row.ID] {
			r.AddError(validation.Result{
				Level:       validation.LevelData,
				Message:     fmt.Sprintf("row %q has neighborhood %q but is not in neighborhoods group", row.ID, row.Neighborhood),
				Path:        fmt.Sprintf("%s.groups.neighborhoods.%s", path, row.Neighborhood),
				ActualValue: row.ID,
			})
		}
	}
}

func membership(groups map[string][]string) map[string]map[string]bool {
	out := make(map[string]map[string]bool, len(groups))
	for name, ids := range groups {
		m := make(map[string]bool, len(ids))
		for _, id := range ids {
			m[id] = true
		}
		out[name] = m
	}
	return out
}

func validateSummary(s *Slot, path string, r *validation.Report) {
	sum := s.Summary
	if sum.Sunny+sum.Partial+sum.Shaded != sum.Total {
		r.AddError(validation.Result{
			Level:       validation.LevelData,
			Message:     fmt.Sprintf("summary buckets add up to %d, total is %d", sum.Sunny+sum.Partial+sum.Shaded, sum.Total),
			Path:        path + ".summary",
			ActualValue: sum,
		})
	}
	if len(s.Cafes) > sum.Total {
		r.AddError(validation.Result{
			Level:       validation.LevelData,
			Message:     fmt.Sprintf("slot lists %d rows but summary total is %d", len(s.Cafes), sum.Total),
			Path:        path + ".cafes",
			ActualValue: len(s.Cafes),
		})
	}
}

func validateScores(s *Slot, path string, r *validation.Report) {
	for i, row := range s.Cafes {
		if row.SunnyScore < 0 || row.SunnyScore > 100 || row.SunnyFraction < 0 || row.SunnyFraction > 1 {
			r.AddError(validation.Result{
				Level:       validation.LevelData,
				Message:     fmt.Sprintf("row %q has score %.1f and fraction %.3f out of range", row.ID, row.SunnyScore, row.SunnyFraction),
				Path:        fmt.Sprintf("%s.cafes[%d]", path, i),
				ActualValue: row.SunnyScore,
				Expected:    "score 0-100, fraction 0-1",
			})
		}
		if i > 0 && row.SunnyScore > s.Cafes[i-1].SunnyScore {
			r.AddWarning(validation.Result{
				Level:       validation.LevelData,
				Message:     fmt.Sprintf("row %q scores higher than the row before it", row.ID),
				Path:        fmt.Sprintf("%s.cafes[%d]", path, i),
				ActualValue: row.SunnyScore,
			})
		}
	}
}

func validateBounds(a *Area, s *Slot, path string, r *validation.Report) {
	for i, row := range s.Cafes {
		if !a.BBox.Contains(row.Lon, row.Lat) {
			r.AddWarning(validation.Result{
				Level:       validation.LevelData,
				Message:     fmt.Sprintf("row %q at (%.5f, %.5f) outside area bbox", row.ID, row.Lon, row.Lat),
				Path:        fmt.Sprintf("%s.cafes[%d]", path, i),
				ActualValue: [2]float64{row.Lon, row.Lat},
			})
			break
		}
	}
}
