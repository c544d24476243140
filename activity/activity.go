// Package activity loads cached activity records and derives the time
// windows and statistics used when rendering and exporting them.
package activity

import (
	"encoding/json"
	"os"
	"sort"
	"time"

	"github.com/pkg/errors"
)

// AllTypes selects every activity type in FilterType.
const AllTypes = "all"

// Activity is a single recorded activity as returned by the activity list API.
type Activity struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Type        string    `json:"type"`
	Distance    float64   `json:"distance"`
	MovingTime  int64     `json:"moving_time"`
	ElapsedTime int64     `json:"elapsed_time"`
	StartDate   time.Time `json:"start_date"`
	Map         struct {
		SummaryPolyline string `json:"summary_polyline"`
	} `json:"map"`
}

// Elapsed returns the elapsed time of the activity.
func (a *Activity) Elapsed() time.Duration {
	return time.Duration(a.ElapsedTime) * time.Second
}

// HasTrack reports whether the activity carries a summary polyline.
func (a *Activity) HasTrack() bool {
	return a.Map.SummaryPolyline != ""
}

// Load reads a JSON array of activities from path.
func Load(path string) ([]Activity, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open activities file %s", path)
	}
	defer f.Close()

	var acts []Activity
	if err := json.NewDecoder(f).Decode(&acts); err != nil {
		return nil, errors.Wrapf(err, "failed to parse activities file %s", path)
	}
	return acts, nil
}

// FilterType returns the activities of the given type. AllTypes and the
// empty string keep everything.
func FilterType(acts []Activity, activityType string) []Activity {
	if activityType == "" || activityType == AllTypes {
		return acts
	}

	out := make([]Activity, 0, len(acts))
	for _, a := range acts {
		if a.Type == activityType {
			out = append(out, a)
		}
	}
	return out
}

// SortByStart returns a copy of acts ordered by start date.
func SortByStart(acts []Activity) []Activity {
	sorted := make([]Activity, len(acts))
	copy(sorted, acts)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartDate.Before(sorted[j].StartDate)
	})
	return sorted
}

// Span returns the earliest start and the latest finish across acts.
func Span(acts []Activity) (start, end time.Time, ok bool) {
	for i := range acts {
		a := &acts[i]
		finish := a.StartDate.Add(a.Elapsed())
		if !ok || a.StartDate.Before(start) {
			start = a.StartDate
		}
		if !ok || finish.After(end) {
			end = finish
		}
		ok = true
	}
	return start, end, ok
}

// Types returns the distinct activity types, sorted.
func Types(acts []Activity) []string {
	seen := make(map[string]bool)
	var types []string
	for _, a := range acts {
		if !seen[a.Type] {
			seen[a.Type] = true
			types = append(types, a.Type)
		}
	}
	sort.Strings(types)
	return types
}
