package activity

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `[
  {"id": 3, "name": "Evening Ride", "type": "Ride", "distance": 20000, "moving_time": 3600, "elapsed_time": 4000,
   "start_date": "2024-03-03T18:00:00Z", "map": {"summary_polyline": "_p~iF~ps|U_ulLnnqC"}},
  {"id": 1, "name": "Morning Run", "type": "Run", "distance": 5000, "moving_time": 1500, "elapsed_time": 1600,
   "start_date": "2024-03-01T07:00:00Z", "map": {"summary_polyline": "_p~iF~ps|U"}},
  {"id": 2, "name": "Treadmill", "type": "Run", "distance": 3000, "moving_time": 900, "elapsed_time": 900,
   "start_date": "2024-03-02T07:00:00Z", "map": {"summary_polyline": ""}}
]`

func writeSample(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "all_activities.json")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0644))
	return path
}

func TestLoad(t *testing.T) {
	acts, err := Load(writeSample(t))
	require.NoError(t, err)
	require.Len(t, acts, 3)

	assert.Equal(t, "Evening Ride", acts[0].Name)
	assert.Equal(t, "_p~iF~ps|U_ulLnnqC", acts[0].Map.SummaryPolyline)
	assert.Equal(t, 4000*time.Second, acts[0].Elapsed())
	assert.False(t, acts[2].HasTrack())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestFilterType(t *testing.T) {
	acts, err := Load(writeSample(t))
	require.NoError(t, err)

	assert.Len(t, FilterType(acts, "Run"), 2)
	assert.Len(t, FilterType(acts, AllTypes), 3)
	assert.Len(t, FilterType(acts, ""), 3)
	assert.Empty(t, FilterType(acts, "Swim"))
	assert.Equal(t, []string{"Ride", "Run"}, Types(acts))
}

func TestSpan(t *testing.T) {
	acts, err := Load(writeSample(t))
	require.NoError(t, err)

	start, end, ok := Span(acts)
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 3, 1, 7, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2024, 3, 3, 18, 0, 0, 0, time.UTC).Add(4000*time.Second), end)

	_, _, ok = Span(nil)
	assert.False(t, ok)
}

func TestWindowForCount(t *testing.T) {
	acts, err := Load(writeSample(t))
	require.NoError(t, err)

	w, err := WindowForCount(acts, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, w.Count)
	assert.Equal(t, time.Date(2024, 3, 1, 7, 0, 0, 0, time.UTC), w.Start)
	assert.Equal(t, time.Date(2024, 3, 2, 7, 0, 0, 0, time.UTC), w.End)

	w, err = WindowForCount(acts, 50)
	require.NoError(t, err)
	assert.Equal(t, 3, w.Count)

	_, err = WindowForCount(nil, 10)
	assert.Error(t, err)
}

func TestSummarise(t *testing.T) {
	acts, err := Load(writeSample(t))
	require.NoError(t, err)

	s := Summarise(acts)
	assert.Equal(t, 3, s.Count)
	assert.Equal(t, 2, s.ByType["Run"])
	assert.Equal(t, 2, s.WithTracks)
	assert.InDelta(t, 28000, s.TotalDistance, 1e-9)
	assert.Equal(t, 6000*time.Second, s.MovingTime)

	var buf bytes.Buffer
	s.Write(&buf)
	assert.Contains(t, buf.String(), "Total Distance:      28.00 km")
	assert.Contains(t, buf.String(), "Activities with polylines: 2/3")
}
