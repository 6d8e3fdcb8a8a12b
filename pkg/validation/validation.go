package validation

import "fmt"

// Level indicates which validation stage produced the result.
type Level string

const (
	LevelSchema   Level = "schema"
	LevelGeometry Level = "geometry"
	LevelData     Level = "data"
)

// Severity indicates how critical a validation result is.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Result is a single validation finding.
type Result struct {
	Level       Level    `json:"level"`
	Severity    Severity `json:"severity"`
	Message     string   `json:"message"`
	Path        string   `json:"path"`
	ActualValue any      `json:"actual_value,omitempty"`
	Expected    string   `json:"expected,omitempty"`
	Count       int      `json:"count,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// Report is the complete validation output.
type Report struct {
	Valid    bool     `json:"valid"`
	Errors   []Result `json:"errors"`
	Warnings []Result `json:"warnings"`
	Info     []Result `json:"info"`
	Summary  string   `json:"summary"`
}

// NewReport creates an empty valid report.
func NewReport() *Report {
	r := &Report{
		Valid:    true,
		Errors:   []Result{},
		Warnings: []Result{},
		Info:     []Result{},
	}
	r.updateSummary()
	return r
}

// AddError adds an error result and marks the report invalid.
func (r *Report) AddError(result Result) {
	result.Severity = SeverityError
	r.Errors = append(r.Errors, result)
	r.Valid = false
	r.updateSummary()
}

// AddWarning adds a warning result.
func (r *Report) AddWarning(result Result) {
	result.Severity = SeverityWarning
	r.Warnings = append(r.Warnings, result)
	r.updateSummary()
}

// AddInfo adds an informational result.
func (r *Report) AddInfo(result Result) {
	result.Severity = SeverityInfo
	r.Info = append(r.Info, result)
	r.updateSummary()
}

// Merge combines another report into this one.
func (r *Report) Merge(other *Report) {
	if other == nil {
		return
	}
	r.Errors = append(r.Errors, other.Errors...)
	r.Warnings = append(r.Warnings, other.Warnings...)
	r.Info = append(r.Info, other.Info...)
	if !other.Valid {
		r.Valid = false
	}
	r.updateSummary()
}

// Tally accumulates per-record findings under a path so a loader can report
// one warning per kind of problem instead of one per record.
type Tally struct {
	level    Level
	counts   map[string]int
	messages map[string]string
	order    []string
}

// NewTally creates an empty tally for the given level.
func NewTally(level Level) *Tally {
	return &Tally{
		level:    level,
		counts:   map[string]int{},
		messages: map[string]string{},
	}
}

// Add records one occurrence of a finding.
func (t *Tally) Add(path, message string) {
	if _, ok := t.counts[path]; !ok {
		t.order = append(t.order, path)
		t.messages[path] = message
	}
	t.counts[path]++
}

// Count returns how many times path was recorded.
func (t *Tally) Count(path string) int {
	return t.counts[path]
}

// Warnings flushes the tally into r as warnings, in first-seen order.
func (t *Tally) Warnings(r *Report) {
	for _, path := range t.order {
		n := t.counts[path]
		r.AddWarning(Result{
			Level:   t.level,
			Message: fmt.Sprintf("%s (%d records)", t.messages[path], n),
			Path:    path,
			Count:   n,
		})
	}
}

func (r *Report) updateSummary() {
	r.Summary = fmt.Sprintf("%d errors, %d warnings, %d info",
		len(r.Errors), len(r.Warnings), len(r.Info))
}
