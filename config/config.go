// Package config holds the YAML configuration for trailcast.
package config

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// Config is the top level configuration document.
type Config struct {
	Activities string `yaml:"activities"`

	Map struct {
		Width         int           `yaml:"width"`
		Height        int           `yaml:"height"`
		Background    string        `yaml:"background"`
		Padding       float64       `yaml:"padding"`
		LineWidth     float64       `yaml:"lineWidth"`
		Opacity       float64       `yaml:"opacity"`
		Fade          time.Duration `yaml:"fade"`
		PlaybackSpeed float64       `yaml:"playbackSpeed"`
		Tick          time.Duration `yaml:"tick"`
	} `yaml:"map"`

	Export struct {
		Width         int           `yaml:"width"`
		Height        int           `yaml:"height"`
		FPS           float64       `yaml:"fps"`
		Duration      float64       `yaml:"duration"`
		Quality       int           `yaml:"quality"`
		Workers       int           `yaml:"workers"`
		CaptureWeight float64       `yaml:"captureWeight"`
		Settle        time.Duration `yaml:"settle"`
		IdlePoll      time.Duration `yaml:"idlePoll"`
		Output        string        `yaml:"output"`
		Filename      string        `yaml:"filename"`
	} `yaml:"export"`

	Mqtt struct {
		URL      string `yaml:"url"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		ClientID string `yaml:"clientID"`
		Topics   struct {
			Progress string `yaml:"progress"`
			Artifact string `yaml:"artifact"`
			Request  string `yaml:"request"`
		} `yaml:"topics"`
	} `yaml:"mqtt"`

	Strava struct {
		ClientID     string        `yaml:"clientID"`
		ClientSecret string        `yaml:"clientSecret"`
		RedirectURL  string        `yaml:"redirectURL"`
		TokenFile    string        `yaml:"tokenFile"`
		BaseURL      string        `yaml:"baseURL"`
		AuthURL      string        `yaml:"authURL"`
		TokenURL     string        `yaml:"tokenURL"`
		PerPage      int           `yaml:"perPage"`
		PageDelay    time.Duration `yaml:"pageDelay"`
	} `yaml:"strava"`

	Server struct {
		Listen string `yaml:"listen"`
		Static string `yaml:"static"`
	} `yaml:"server"`
}

// Default returns a Config populated with the built-in defaults.
func Default() Config {
	var c Config
	c.Activities = "data/activities/all_activities.json"

	c.Map.Width = 1200
	c.Map.Height = 800
	c.Map.Background = "#f0f0f0"
	c.Map.Padding = 40
	c.Map.LineWidth = 2
	c.Map.Opacity = 0.6
	c.Map.Fade = 72 * time.Hour
	c.Map.PlaybackSpeed = 86400
	c.Map.Tick = 33 * time.Millisecond

	c.Export.Width = 1200
	c.Export.Height = 800
	c.Export.FPS = 15
	c.Export.Duration = 10
	c.Export.Quality = 10
	c.Export.Workers = 2
	c.Export.CaptureWeight = 0.5
	c.Export.Settle = 100 * time.Millisecond
	c.Export.IdlePoll = 10 * time.Millisecond
	c.Export.Output = "."
	c.Export.Filename = "strava-animation.gif"

	c.Mqtt.ClientID = "trailcast"
	c.Mqtt.Topics.Progress = "trailcast/export/progress"
	c.Mqtt.Topics.Artifact = "trailcast/export/artifact"
	c.Mqtt.Topics.Request = "trailcast/export/request"

	c.Strava.RedirectURL = "http://localhost:3000/callback"
	c.Strava.TokenFile = "data/tokens.json"
	c.Strava.BaseURL = "https://www.strava.com/api/v3"
	c.Strava.AuthURL = "https://www.strava.com/oauth/authorize"
	c.Strava.TokenURL = "https://www.strava.com/oauth/token"
	c.Strava.PerPage = 200
	c.Strava.PageDelay = time.Second

	c.Server.Listen = ":3000"
	c.Server.Static = "client/dist"
	return c
}

// Load reads the YAML file at path over the defaults. A missing file is not
// an error when allowMissing is set.
func Load(path string, allowMissing bool) (Config, error) {
	c := Default()

	f, err := os.Open(path)
	if err != nil {
		if allowMissing && os.IsNotExist(err) {
			return c, nil
		}
		return c, errors.Wrapf(err, "failed to open config %s", path)
	}
	defer f.Close()

	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&c); err != nil {
		return c, errors.Wrapf(err, "failed to decode config %s", path)
	}

	return c, c.Validate()
}

// Validate checks the ranges of the export and map settings.
func (c *Config) Validate() error {
	switch {
	case c.Map.Width <= 0 || c.Map.Height <= 0:
		return errors.Errorf("map size must be positive, got %dx%d", c.Map.Width, c.Map.Height)
	case c.Export.Width <= 0 || c.Export.Height <= 0:
		return errors.Errorf("export size must be positive, got %dx%d", c.Export.Width, c.Export.Height)
	case c.Export.FPS <= 0:
		return errors.Errorf("export fps must be positive, got %v", c.Export.FPS)
	case c.Export.Duration <= 0:
		return errors.Errorf("export duration must be positive, got %v", c.Export.Duration)
	case c.Export.Quality < 1 || c.Export.Quality > 30:
		return errors.Errorf("export quality must be within 1..30, got %d", c.Export.Quality)
	case c.Export.Workers < 1:
		return errors.Errorf("export workers must be at least 1, got %d", c.Export.Workers)
	case c.Export.CaptureWeight <= 0 || c.Export.CaptureWeight >= 1:
		return errors.Errorf("export captureWeight must be within (0,1), got %v", c.Export.CaptureWeight)
	case c.Map.PlaybackSpeed <= 0:
		return errors.Errorf("map playbackSpeed must be positive, got %v", c.Map.PlaybackSpeed)
	case c.Map.Tick <= 0:
		return errors.Errorf("map tick must be positive, got %v", c.Map.Tick)
	case c.Strava.PerPage < 1 || c.Strava.PerPage > 200:
		return errors.Errorf("strava perPage must be within 1..200, got %d", c.Strava.PerPage)
	case c.Strava.PageDelay < 0:
		return errors.Errorf("strava pageDelay must not be negative, got %v", c.Strava.PageDelay)
	}
	return nil
}
