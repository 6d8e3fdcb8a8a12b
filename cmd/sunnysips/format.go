package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ChicagoDave/sunnysips/pkg/buildings"
	"github.com/ChicagoDave/sunnysips/pkg/cafes"
	"github.com/ChicagoDave/sunnysips/pkg/outlook"
	"github.com/ChicagoDave/sunnysips/pkg/ranking"
	"github.com/ChicagoDave/sunnysips/pkg/validation"
	"github.com/ChicagoDave/sunnysips/pkg/weather"
)

func printValidationReport(r *validation.Report) {
	if len(r.Errors) > 0 {
		fmt.Printf("ERRORS (%d):\n", len(r.Errors))
		for _, e := range r.Errors {
			printResult(e)
		}
		fmt.Println()
	}

	if len(r.Warnings) > 0 {
		fmt.Printf("WARNINGS (%d):\n", len(r.Warnings))
		for _, w := range r.Warnings {
			printResult(w)
		}
		fmt.Println()
	}

	if len(r.Info) > 0 {
		fmt.Printf("INFO (%d):\n", len(r.Info))
		for _, i := range r.Info {
			fmt.Printf("  [%s] %s\n", i.Level, i.Message)
		}
		fmt.Println()
	}

	if r.Valid {
		fmt.Printf("Result: VALID (%s)\n", r.Summary)
	} else {
		fmt.Printf("Result: INVALID (%s)\n", r.Summary)
	}
}

func printResult(res validation.Result) {
	fmt.Printf("  [%s] %s\n", res.Level, res.Message)
	if res.Path != "" {
		if res.ActualValue != nil {
			fmt.Printf("    -> %s = %v\n", res.Path, res.ActualValue)
		} else {
			fmt.Printf("    -> %s\n", res.Path)
		}
	}
	if res.Expected != "" {
		fmt.Printf("    expected: %s\n", res.Expected)
	}
	for _, s := range res.Suggestions {
		fmt.Printf("    * %s\n", s)
	}
}

func printRanking(t time.Time, cloud float64, rs []ranking.Result) {
	fmt.Printf("Sun ranking at %s (cloud cover %.0f%%)\n", t.Format("2006-01-02 15:04 MST"), cloud)
	if len(rs) > 0 {
		fmt.Printf("Sun elevation %.1f°, azimuth %.1f°\n", rs[0].SunElevation, rs[0].SunAzimuth)
	}
	fmt.Println()

	fmt.Printf("%4s  %6s  %5s  %-8s  %s\n", "Rank", "Score", "Sun%", "Bucket", "Name")
	fmt.Printf("%4s  %6s  %5s  %-8s  %s\n", "----", "------", "-----", "--------", strings.Repeat("-", 30))
	for i, r := range rs {
		fmt.Printf("%4d  %6.1f  %5.0f  %-8s  %s\n",
			i+1, r.SunnyScore, r.SunnyFraction*100, ranking.Bucket(r.SunnyFraction), displayName(r.Name, r.ID))
	}

	s := ranking.Summarize(rs)
	fmt.Println()
	fmt.Printf("%d listed: %d sunny, %d partial, %d shaded (avg score %.1f)\n",
		s.Total, s.Sunny, s.Partial, s.Shaded, s.AvgScore)
}

func printOutlook(c cafes.Cafe, series weather.SeriesResult, rows []outlook.HourlyRow, windows []outlook.Window, days []outlook.Day) {
	fmt.Printf("Sun outlook for %s (%s)\n", displayName(c.Name, c.ID), c.ID)
	fallback := ""
	if series.FallbackUsed {
		fallback = ", fallback"
	}
	fmt.Printf("Weather: %s, %s, %.2fh old%s\n", series.Provider, series.DataStatus, series.FreshnessHours, fallback)
	for _, d := range days {
		fmt.Printf("%s: sunrise %s, sunset %s\n", d.Date, d.Sunrise.Format("15:04"), d.Sunset.Format("15:04"))
	}
	fmt.Println()

	fmt.Printf("%-16s  %-8s  %6s  %6s\n", "Local time", "Sky", "Score", "Cloud%")
	for _, r := range rows {
		fmt.Printf("%-16s  %-8s  %6.1f  %6.0f\n", r.TimeLocal.Format("Mon 02 15:04"), r.Condition, r.Score, r.CloudCover)
	}

	fmt.Println()
	if len(windows) == 0 {
		fmt.Println("No sun windows.")
		return
	}
	fmt.Println("Windows")
	fmt.Println("-------")
	for _, w := range windows {
		fmt.Printf("  %s - %s  %-8s %4d min\n",
			w.StartLocal.Format("Mon 02 15:04"), w.EndLocal.Format("15:04"), w.Condition, w.DurationMin)
	}
}

func printCoverage(path string, c buildings.Coverage) {
	fmt.Printf("Building coverage: %s\n", path)
	fmt.Println("=================")
	fmt.Println()
	fmt.Printf("  Features:                %d\n", c.Total)
	fmt.Printf("  With explicit height:    %d (%.1f%%)\n", c.WithHeight, c.HeightPct())
	fmt.Printf("  With usable vertical:    %d (%.1f%%)\n", c.WithVertical, c.VerticalPct())
	if c.Heights != nil {
		fmt.Printf("  Heights (m):             min %.1f, median %.1f, max %.1f\n", c.Heights.Min, c.Heights.Median, c.Heights.Max)
	}
	if c.ProxyHeights != nil {
		fmt.Printf("  Vertical proxies (m):    min %.1f, median %.1f, max %.1f\n", c.ProxyHeights.Min, c.ProxyHeights.Median, c.ProxyHeights.Max)
	}

	printCounts("Sources", c.Sources)
	printCounts("Geometry types", c.GeometryTypes)
	printCounts("Height resolved by", c.ResolvedBy)

	printSamples("With height", c.PresentExamples)
	printSamples("Without height", c.MissingExamples)
}

func printCounts(title string, counts map[string]int) {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Println()
	fmt.Println(title)
	for _, k := range keys {
		fmt.Printf("  %-22s %d\n", k, counts[k])
	}
}

func printSamples(title string, samples []buildings.Sample) {
	if len(samples) == 0 {
		return
	}
	fmt.Println()
	fmt.Println(title)
	for _, s := range samples {
		fmt.Printf("  osm_id=%v source=%s height=%v building=%v\n", s.OSMID, s.Source, s.Height, s.Building)
	}
}

func displayName(name, id string) string {
	if name == "" {
		return id
	}
	return name
}
