package cmd

import (
	"bytes"
	"image/gif"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matt-g-everett/trailcast/export"
)

const activitiesJSON = `[
  {"id": 1, "name": "Morning Run", "type": "Run", "distance": 5000, "moving_time": 1500, "elapsed_time": 1600,
   "start_date": "2024-03-01T07:00:00Z", "map": {"summary_polyline": "_p~iF~ps|U_ulLnnqC"}},
  {"id": 2, "name": "Evening Ride", "type": "Ride", "distance": 20000, "moving_time": 3600, "elapsed_time": 4000,
   "start_date": "2024-03-03T18:00:00Z", "map": {"summary_polyline": "_ulLnnqC_mqNvxq` + "`" + `@"}},
  {"id": 3, "name": "Treadmill", "type": "Run", "distance": 3000, "moving_time": 900, "elapsed_time": 900,
   "start_date": "2024-03-02T07:00:00Z", "map": {"summary_polyline": ""}}
]`

func writeFixture(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	acts := filepath.Join(dir, "activities.json")
	require.NoError(t, os.WriteFile(acts, []byte(activitiesJSON), 0644))

	cfg := filepath.Join(dir, "config.yaml")
	doc := "activities: " + acts + `
map:
  width: 120
  height: 90
export:
  settle: 1ms
  idlePoll: 1ms
`
	require.NoError(t, os.WriteFile(cfg, []byte(doc), 0644))
	return dir, cfg
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	err := Execute()
	return stdout.String(), stderr.String(), err
}

func TestStatsCommand(t *testing.T) {
	_, cfg := writeFixture(t)

	out, _, err := execute(t, "stats", "--config", cfg, "--type", "all")
	require.NoError(t, err)
	assert.Contains(t, out, "Activity Summary:")
	assert.Contains(t, out, "Activities with polylines: 2/3")
	assert.Contains(t, out, "28.00 km")
}

func TestStatsCommandFiltersType(t *testing.T) {
	_, cfg := writeFixture(t)

	out, _, err := execute(t, "stats", "--config", cfg, "--type", "Run")
	require.NoError(t, err)
	assert.Contains(t, out, "Activities with polylines: 1/2")
	assert.NotContains(t, out, "Ride")
}

func TestStatsCommandListsTypesForUnknownType(t *testing.T) {
	_, cfg := writeFixture(t)

	_, _, err := execute(t, "stats", "--config", cfg, "--type", "Swim")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no Swim activities")
	assert.Contains(t, err.Error(), "available types: Ride, Run")
}

func TestExportCommandWritesGIF(t *testing.T) {
	dir, cfg := writeFixture(t)
	out := filepath.Join(dir, "out")

	stdout, stderr, err := execute(t, "export", "--config", cfg,
		"--type", "all", "--start", "2024-03-01", "--end", "2024-03-04",
		"--width", "40", "--height", "30", "--fps", "4", "--duration", "1",
		"--quality", "10", "--out", out)
	require.NoError(t, err)
	assert.Contains(t, stdout, "4 frames")
	assert.Contains(t, stderr, "Complete!")

	f, err := os.Open(filepath.Join(out, "strava-animation.gif"))
	require.NoError(t, err)
	defer f.Close()
	decoded, err := gif.DecodeAll(f)
	require.NoError(t, err)
	assert.Len(t, decoded.Image, 4)
}

func TestExportCommandRejectsBadQuality(t *testing.T) {
	dir, cfg := writeFixture(t)

	_, _, err := execute(t, "export", "--config", cfg,
		"--type", "all", "--start", "2024-03-01", "--end", "2024-03-04",
		"--width", "40", "--height", "30", "--fps", "4", "--duration", "1",
		"--quality", "31", "--out", dir)
	assert.ErrorIs(t, err, export.ErrInvalidRequest)
}

func TestPrintProgress(t *testing.T) {
	events := make(chan export.Event, 3)
	events <- export.Event{Kind: export.EventProgress, Percent: 25, Message: "Captured frame 75/150"}
	events <- export.Event{Kind: export.EventProgress, Percent: 75, Message: "Encoding GIF... 50%"}
	events <- export.Event{Kind: export.EventComplete, Percent: 100}
	close(events)

	var buf bytes.Buffer
	printProgress(&buf, events)
	lines := strings.Split(buf.String(), "\r")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[1], "[ 25%] Captured frame 75/150")
	assert.Contains(t, lines[3], "[100%] Complete!")
}
