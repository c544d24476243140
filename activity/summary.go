package activity

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"
)

// Summary aggregates statistics over a set of activities.
type Summary struct {
	Count         int
	ByType        map[string]int
	TotalDistance float64
	MovingTime    time.Duration
	WithTracks    int
}

// Summarise computes a Summary for acts.
func Summarise(acts []Activity) Summary {
	s := Summary{ByType: make(map[string]int)}
	for i := range acts {
		a := &acts[i]
		s.Count++
		s.ByType[a.Type]++
		s.TotalDistance += a.Distance
		s.MovingTime += time.Duration(a.MovingTime) * time.Second
		if a.HasTrack() {
			s.WithTracks++
		}
	}
	return s
}

// Write prints the summary as a small table, most frequent type first.
func (s Summary) Write(w io.Writer) {
	types := make([]string, 0, len(s.ByType))
	for t := range s.ByType {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool {
		if s.ByType[types[i]] != s.ByType[types[j]] {
			return s.ByType[types[i]] > s.ByType[types[j]]
		}
		return types[i] < types[j]
	})

	rule := strings.Repeat("-", 40)
	fmt.Fprintln(w, "Activity Summary:")
	fmt.Fprintln(w, rule)
	for _, t := range types {
		fmt.Fprintf(w, "  %-20s %d\n", t, s.ByType[t])
	}
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "  Total Distance:      %.2f km\n", s.TotalDistance/1000)
	fmt.Fprintf(w, "  Total Moving Time:   %.2f hours\n", s.MovingTime.Hours())
	fmt.Fprintf(w, "\nActivities with polylines: %d/%d\n", s.WithTracks, s.Count)
}
