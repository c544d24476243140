// Package experiment measures how export settings drive GIF size and time.
package experiment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/matt-g-everett/trailcast/activity"
	"github.com/matt-g-everett/trailcast/export"
)

// MinActivities is the smallest data set RunAll accepts.
const MinActivities = 100

const (
	quality       = 10
	defaultTarget = 50
)

// ErrTooFewActivities is returned by RunAll for data sets under MinActivities.
var ErrTooFewActivities = errors.Errorf("need at least %d activities for meaningful results", MinActivities)

// Exporter produces the artifacts being measured.
type Exporter interface {
	Export(ctx context.Context, req export.Request) (*export.Artifact, error)
}

// Settings are the export parameters under test.
type Settings struct {
	Width    int     `json:"width,omitempty"`
	Height   int     `json:"height,omitempty"`
	FPS      float64 `json:"fps,omitempty"`
	Duration float64 `json:"duration,omitempty"`
}

func (s Settings) over(fixed Settings) Settings {
	if s.Width == 0 {
		s.Width = fixed.Width
	}
	if s.Height == 0 {
		s.Height = fixed.Height
	}
	if s.FPS == 0 {
		s.FPS = fixed.FPS
	}
	if s.Duration == 0 {
		s.Duration = fixed.Duration
	}
	return s
}

// Set is a group of tests varying one parameter.
type Set struct {
	Key   string
	Name  string
	Fixed Settings
	Tests []Settings
}

// Sets returns the dimension, frame rate and duration sets.
func Sets() []Set {
	return []Set{
		{
			Key:   "set1_dimensions",
			Name:  "Set 1: Dimension Impact",
			Fixed: Settings{Duration: 10, FPS: 15},
			Tests: []Settings{
				{Width: 800, Height: 600},
				{Width: 1200, Height: 800},
				{Width: 1600, Height: 1200},
				{Width: 1920, Height: 1080},
			},
		},
		{
			Key:   "set2_fps",
			Name:  "Set 2: FPS Impact",
			Fixed: Settings{Width: 1200, Height: 800, Duration: 10},
			Tests: []Settings{{FPS: 10}, {FPS: 15}, {FPS: 20}, {FPS: 30}},
		},
		{
			Key:   "set3_duration",
			Name:  "Set 3: Duration Impact",
			Fixed: Settings{Width: 1200, Height: 800, FPS: 15},
			Tests: []Settings{{Duration: 5}, {Duration: 10}, {Duration: 15}, {Duration: 20}},
		},
	}
}

// ComplexityTargets are the approximate activity counts of the complexity set.
var ComplexityTargets = []int{10, 50, 200}

const complexityKey = "set4_complexity"

// Result is the outcome of one test.
type Result struct {
	Settings   Settings      `json:"config"`
	Activities int           `json:"activityCount"`
	Bytes      int           `json:"sizeBytes"`
	Elapsed    time.Duration `json:"elapsed"`
	Error      string        `json:"error,omitempty"`
}

// MB is the artifact size in mebibytes.
func (r Result) MB() float64 { return float64(r.Bytes) / (1024 * 1024) }

// Megapixels of a single frame.
func (r Result) Megapixels() float64 {
	return float64(r.Settings.Width*r.Settings.Height) / 1e6
}

// TotalFrames is fps * duration.
func (r Result) TotalFrames() int {
	return int(r.Settings.FPS * r.Settings.Duration)
}

// PixelFrames is the number of pixels encoded across all frames.
func (r Result) PixelFrames() int {
	return r.Settings.Width * r.Settings.Height * r.TotalFrames()
}

// ProgressFunc is told which test is about to run.
type ProgressFunc func(set string, test, total int, settings Settings)

// Runner runs the experiment sets against an Exporter.
type Runner struct {
	exporter Exporter
	acts     []activity.Activity

	// Pause is the rest between tests.
	Pause time.Duration
	// Progress, when set, is called before each test.
	Progress ProgressFunc

	results map[string][]Result
	log     *logrus.Entry
}

// NewRunner creates a Runner over the loaded activities.
func NewRunner(exporter Exporter, acts []activity.Activity) *Runner {
	return &Runner{
		exporter: exporter,
		acts:     acts,
		Pause:    time.Second,
		results:  make(map[string][]Result),
		log:      logrus.WithField("component", "experiment"),
	}
}

// Results returns the results recorded so far, keyed by set.
func (r *Runner) Results() map[string][]Result {
	return r.results
}

// RunAll runs the three parameter sets. Individual test failures are
// recorded in the results; only cancellation and an undersized data set
// stop the run.
func (r *Runner) RunAll(ctx context.Context) error {
	r.log.WithField("activities", len(r.acts)).Info("Starting GIF size experiment")
	if len(r.acts) < MinActivities {
		return ErrTooFewActivities
	}

	for _, set := range Sets() {
		if err := r.runSet(ctx, set); err != nil {
			return err
		}
	}
	r.log.Info("Experiment complete")
	return nil
}

// RunComplexity runs 1200x800 15fps 10s exports over windows of roughly
// ComplexityTargets activities.
func (r *Runner) RunComplexity(ctx context.Context) error {
	settings := Settings{Width: 1200, Height: 800, FPS: 15, Duration: 10}
	var results []Result
	for i, target := range ComplexityTargets {
		if r.Progress != nil {
			r.Progress(complexityKey, i+1, len(ComplexityTargets), settings)
		}
		res := r.runTest(ctx, settings, target)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		results = append(results, res)
		if err := r.rest(ctx); err != nil {
			return err
		}
	}
	r.results[complexityKey] = results
	return nil
}

func (r *Runner) runSet(ctx context.Context, set Set) error {
	log := r.log.WithField("set", set.Name)
	var results []Result
	for i, test := range set.Tests {
		settings := test.over(set.Fixed)
		if r.Progress != nil {
			r.Progress(set.Key, i+1, len(set.Tests), settings)
		}
		log.WithField("test", fmt.Sprintf("%d/%d", i+1, len(set.Tests))).Info("Running test")

		res := r.runTest(ctx, settings, defaultTarget)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		results = append(results, res)
		if err := r.rest(ctx); err != nil {
			return err
		}
	}
	r.results[set.Key] = results
	return nil
}

func (r *Runner) runTest(ctx context.Context, settings Settings, target int) Result {
	res := Result{Settings: settings}

	window, err := activity.WindowForCount(r.acts, target)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.Activities = window.Count

	req := export.Request{
		Start:     window.Start,
		End:       window.End,
		Width:     settings.Width,
		Height:    settings.Height,
		FrameRate: settings.FPS,
		Duration:  settings.Duration,
		Quality:   quality,
	}

	began := time.Now()
	artifact, err := r.exporter.Export(ctx, req)
	res.Elapsed = time.Since(began)
	if err != nil {
		r.log.WithError(err).Warn("Test failed")
		res.Error = err.Error()
		return res
	}
	res.Bytes = artifact.Size()

	r.log.WithFields(logrus.Fields{
		"size":    fmt.Sprintf("%.2fMB", res.MB()),
		"elapsed": res.Elapsed.Round(100 * time.Millisecond),
		"frames":  res.TotalFrames(),
	}).Info("Test result")
	return res
}

func (r *Runner) rest(ctx context.Context) error {
	if r.Pause <= 0 {
		return nil
	}
	timer := time.NewTimer(r.Pause)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Report writes the successful results as markdown tables.
func (r *Runner) Report(w io.Writer) {
	row := func(format string, args ...interface{}) {
		fmt.Fprintf(w, format+"\n", args...)
	}

	row("\n### Set 1: Dimension Impact\n")
	row("| Width | Height | Megapixels | Total Frames | Actual Size (MB) | Time (s) |")
	row("|-------|--------|------------|--------------|------------------|----------|")
	for _, res := range r.succeeded("set1_dimensions") {
		row("| %d | %d | %.2f | %d | %.2f | %.1f |", res.Settings.Width, res.Settings.Height,
			res.Megapixels(), res.TotalFrames(), res.MB(), res.Elapsed.Seconds())
	}

	row("\n### Set 2: FPS Impact\n")
	row("| FPS | Total Frames | Actual Size (MB) | Time (s) |")
	row("|-----|--------------|------------------|----------|")
	for _, res := range r.succeeded("set2_fps") {
		row("| %g | %d | %.2f | %.1f |", res.Settings.FPS, res.TotalFrames(), res.MB(), res.Elapsed.Seconds())
	}

	row("\n### Set 3: Duration Impact\n")
	row("| Duration | Total Frames | Actual Size (MB) | Time (s) |")
	row("|----------|--------------|------------------|----------|")
	for _, res := range r.succeeded("set3_duration") {
		row("| %g | %d | %.2f | %.1f |", res.Settings.Duration, res.TotalFrames(), res.MB(), res.Elapsed.Seconds())
	}

	if complexity := r.succeeded(complexityKey); len(complexity) > 0 {
		row("\n### Set 4: Complexity Impact\n")
		row("| Complexity | Activities | Actual Size (MB) | Time (s) |")
		row("|------------|-----------|------------------|----------|")
		for _, res := range complexity {
			row("| %s | %d | %.2f | %.1f |", complexityLabel(res.Activities), res.Activities, res.MB(), res.Elapsed.Seconds())
		}
	}
}

// WriteJSON writes every result, failures included.
func (r *Runner) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(r.results), "failed to write results")
}

func (r *Runner) succeeded(key string) []Result {
	var out []Result
	for _, res := range r.results[key] {
		if res.Error == "" {
			out = append(out, res)
		}
	}
	return out
}

func complexityLabel(count int) string {
	switch {
	case count < 20:
		return "Low"
	case count < 100:
		return "Medium"
	}
	return "High"
}
