package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/matt-g-everett/trailcast/activity"
	"github.com/matt-g-everett/trailcast/export"
)

// ExportOptions holds command options. Zero values fall back to the config.
type ExportOptions struct {
	Start    string
	End      string
	Type     string
	Width    int
	Height   int
	FPS      float64
	Duration float64
	Quality  int
	Out      string
}

// NewExportCommand creates the export command.
func NewExportCommand() *cobra.Command {
	opts := &ExportOptions{}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the map animation as a GIF",
		Long: `Render the activities between --start and --end and write the animation as
a GIF. Dates are YYYY-MM-DD or RFC3339; the default is the whole history.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Start, "start", "", "First instant of the animation")
	cmd.Flags().StringVar(&opts.End, "end", "", "Last instant of the animation")
	cmd.Flags().StringVar(&opts.Type, "type", activity.AllTypes, "Activity type to include")
	cmd.Flags().IntVar(&opts.Width, "width", 0, "Output width in pixels")
	cmd.Flags().IntVar(&opts.Height, "height", 0, "Output height in pixels")
	cmd.Flags().Float64Var(&opts.FPS, "fps", 0, "Frames per second")
	cmd.Flags().Float64Var(&opts.Duration, "duration", 0, "Playback length in seconds")
	cmd.Flags().IntVar(&opts.Quality, "quality", 0, "Colour sampling stride, 1 (best) to 30")
	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "Output directory")

	return cmd
}

func runExport(cmd *cobra.Command, opts *ExportOptions) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.loadActivities(opts.Type); err != nil {
		return err
	}
	if err := a.buildExporter(); err != nil {
		return err
	}

	req, err := export.Params{
		StartDate: opts.Start,
		EndDate:   opts.End,
		Width:     opts.Width,
		Height:    opts.Height,
		FPS:       opts.FPS,
		Duration:  opts.Duration,
		Quality:   opts.Quality,
	}.Request(a.defaults())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	events := a.Events.Subscribe("cli", 256)
	done := make(chan struct{})
	go func() {
		defer close(done)
		printProgress(cmd.ErrOrStderr(), events)
	}()

	artifact, err := a.Exporter.Export(ctx, req)
	a.Events.Unsubscribe("cli")
	<-done
	if err != nil {
		return err
	}

	out := opts.Out
	if out == "" {
		out = a.Config.Export.Output
	}
	path, err := artifact.WriteFile(out)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d frames, %.2f MB)\n",
		path, artifact.FrameCount, float64(artifact.Size())/(1024*1024))
	return nil
}

func printProgress(w io.Writer, events <-chan export.Event) {
	for ev := range events {
		switch ev.Kind {
		case export.EventProgress:
			fmt.Fprintf(w, "\r[%3.0f%%] %-40s", ev.Percent, ev.Message)
		case export.EventComplete:
			fmt.Fprintf(w, "\r[100%%] %-40s\n", "Complete!")
		case export.EventFailed:
			fmt.Fprintf(w, "\n")
		}
	}
}
