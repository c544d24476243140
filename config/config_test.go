package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	doc := `
activities: cache/acts.json
map:
  width: 640
  fade: 24h
export:
  fps: 20
  quality: 5
  settle: 250ms
mqtt:
  url: tcp://broker:1883
  topics:
    progress: maps/progress
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	c, err := Load(path, false)
	require.NoError(t, err)

	assert.Equal(t, "cache/acts.json", c.Activities)
	assert.Equal(t, 640, c.Map.Width)
	assert.Equal(t, 800, c.Map.Height)
	assert.Equal(t, 24*time.Hour, c.Map.Fade)
	assert.Equal(t, 20.0, c.Export.FPS)
	assert.Equal(t, 5, c.Export.Quality)
	assert.Equal(t, 250*time.Millisecond, c.Export.Settle)
	assert.Equal(t, "tcp://broker:1883", c.Mqtt.URL)
	assert.Equal(t, "maps/progress", c.Mqtt.Topics.Progress)
	assert.Equal(t, "trailcast/export/artifact", c.Mqtt.Topics.Artifact)
}

func TestLoadMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope.yaml")

	c, err := Load(path, true)
	require.NoError(t, err)
	assert.Equal(t, Default(), c)

	_, err = Load(path, false)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	c := Default()
	assert.NoError(t, c.Validate())

	c.Export.Quality = 31
	assert.Error(t, c.Validate())

	c = Default()
	c.Export.CaptureWeight = 1
	assert.Error(t, c.Validate())

	c = Default()
	c.Export.FPS = 0
	assert.Error(t, c.Validate())

	c = Default()
	c.Strava.PerPage = 201
	assert.Error(t, c.Validate())

	c = Default()
	c.Strava.PageDelay = -time.Second
	assert.Error(t, c.Validate())
}
