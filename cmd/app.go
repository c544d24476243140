package cmd

import (
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/matt-g-everett/trailcast/activity"
	"github.com/matt-g-everett/trailcast/config"
	"github.com/matt-g-everett/trailcast/export"
	"github.com/matt-g-everett/trailcast/mapview"
	"github.com/matt-g-everett/trailcast/stream"
)

type app struct {
	Config     config.Config
	Activities []activity.Activity
	Client     mqtt.Client
	Streamer   *stream.Streamer
	Map        *mapview.Map
	Exporter   *export.Exporter
	Events     *export.Broadcaster

	log *logrus.Entry
}

// newApp reads the config named by --config. The default path may be
// missing, in which case the built-in defaults apply.
func newApp(cmd *cobra.Command) (*app, error) {
	allowMissing := !cmd.Flags().Changed("config")
	cfg, err := config.Load(configPath, allowMissing)
	if err != nil {
		return nil, err
	}

	a := &app{
		Config: cfg,
		Events: export.NewBroadcaster(),
		log:    logrus.WithField("component", "app"),
	}
	a.log.WithField("config", configPath).Debugf("Config: %+v", cfg)
	return a, nil
}

func (a *app) loadActivities(activityType string) error {
	acts, err := activity.Load(a.Config.Activities)
	if err != nil {
		return err
	}
	a.Activities = activity.FilterType(acts, activityType)
	a.log.WithFields(logrus.Fields{
		"loaded": len(acts),
		"type":   activityType,
		"kept":   len(a.Activities),
	}).Info("Activities loaded")
	if len(a.Activities) == 0 {
		return errors.Errorf("no %s activities in %s (available types: %s)",
			activityType, a.Config.Activities, strings.Join(activity.Types(acts), ", "))
	}
	return nil
}

// buildExporter renders the loaded activities and wires the export pipeline
// around the map.
func (a *app) buildExporter() error {
	m, err := mapview.New(a.Config, a.Activities)
	if err != nil {
		return err
	}
	a.Map = m

	cfg := a.Config.Export
	source := export.NewFrameSource(m, m, cfg.Settle, cfg.IdlePoll)
	a.Exporter = export.NewExporter(m,
		export.NewSequencer(source),
		export.NewEncoder(&export.GIFCompressor{Workers: cfg.Workers}, cfg.Filename),
		export.WithControls(m),
		export.WithEvents(a.Events),
		export.WithWeights(export.Weights{Capture: cfg.CaptureWeight}))
	return nil
}

// defaults is the export request used when no parameters are given: the
// whole span of the map at the configured size and rate.
func (a *app) defaults() export.Request {
	cfg := a.Config.Export
	r := export.Request{
		Width:     cfg.Width,
		Height:    cfg.Height,
		FrameRate: cfg.FPS,
		Duration:  cfg.Duration,
		Quality:   cfg.Quality,
	}
	if a.Map != nil {
		r.Start, r.End = a.Map.Span()
	}
	return r
}

func (a *app) handleOnConnect(client mqtt.Client) {
	a.log.Info("Connected")
	if err := a.Streamer.Subscribe(); err != nil {
		a.log.WithError(err).Error("Failed to subscribe")
	}
}

// connect starts the MQTT client. It does nothing when no broker is set.
func (a *app) connect() error {
	if a.Config.Mqtt.URL == "" {
		a.log.Info("No MQTT broker configured")
		return nil
	}

	mqtt.ERROR = logrus.WithField("component", "mqtt")

	options := mqtt.NewClientOptions().
		AddBroker(a.Config.Mqtt.URL).
		SetClientID(a.Config.Mqtt.ClientID).
		SetUsername(a.Config.Mqtt.Username).
		SetPassword(a.Config.Mqtt.Password).
		SetKeepAlive(30 * time.Second).
		SetPingTimeout(5 * time.Second).
		SetAutoReconnect(true).
		SetOnConnectHandler(a.handleOnConnect)
	a.Client = mqtt.NewClient(options)

	a.Streamer = stream.NewStreamer(a.Config, a.Client, a.Events)
	if a.Exporter != nil {
		a.Streamer.AcceptRequests(a.Exporter, a.defaults())
	}

	if token := a.Client.Connect(); token.Wait() && token.Error() != nil {
		return errors.Wrapf(token.Error(), "failed to connect to %s", a.Config.Mqtt.URL)
	}
	return nil
}

func (a *app) close() {
	if a.Client != nil && a.Client.IsConnected() {
		a.Client.Disconnect(250)
	}
	if a.Map != nil {
		if err := a.Map.Close(); err != nil {
			a.log.WithError(err).Warn("Failed to close map")
		}
	}
}
