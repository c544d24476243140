package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/matt-g-everett/trailcast/activity"
	"github.com/matt-g-everett/trailcast/api"
	"github.com/matt-g-everett/trailcast/mapview"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	var activityType string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Play the map and serve exports over HTTP and MQTT",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, activityType)
		},
	}

	cmd.Flags().StringVar(&activityType, "type", activity.AllTypes, "Activity type to include")
	return cmd
}

func runServe(cmd *cobra.Command, activityType string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.loadActivities(activityType); err != nil {
		return err
	}
	if err := a.buildExporter(); err != nil {
		return err
	}
	if err := a.connect(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	player := mapview.NewPlayer(a.Map, a.Config.Map.Tick, a.Config.Map.PlaybackSpeed)
	g.Go(func() error { return player.Run(ctx) })

	if a.Streamer != nil {
		g.Go(func() error { return a.Streamer.Run(ctx) })
	}

	server := api.NewApi(a.Exporter, a.defaults(), a.Config.Server.Static)
	g.Go(func() error { return server.Serve(ctx, a.Config.Server.Listen) })

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
