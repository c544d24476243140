package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/matt-g-everett/trailcast/activity"
	"github.com/matt-g-everett/trailcast/experiment"
)

// ExperimentOptions holds command options
type ExperimentOptions struct {
	Complexity bool
	JSON       string
}

// NewExperimentCommand creates the experiment command.
func NewExperimentCommand() *cobra.Command {
	opts := &ExperimentOptions{}

	cmd := &cobra.Command{
		Use:   "experiment",
		Short: "Measure GIF size against export settings",
		Long: `Run exports across dimension, frame rate and duration sets and print the
resulting sizes and times as markdown tables. Needs at least 100 activities.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExperiment(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Complexity, "complexity", false, "Also run the activity count set")
	cmd.Flags().StringVar(&opts.JSON, "json", "", "Write raw results to this file")
	return cmd
}

func runExperiment(cmd *cobra.Command, opts *ExperimentOptions) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.loadActivities(activity.AllTypes); err != nil {
		return err
	}
	if err := a.buildExporter(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := experiment.NewRunner(a.Exporter, a.Activities)
	runner.Progress = func(set string, test, total int, s experiment.Settings) {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s %d/%d: %dx%d %gfps %gs\n", set, test, total, s.Width, s.Height, s.FPS, s.Duration)
	}

	if err := runner.RunAll(ctx); err != nil {
		return err
	}
	if opts.Complexity {
		if err := runner.RunComplexity(ctx); err != nil {
			return err
		}
	}

	runner.Report(cmd.OutOrStdout())

	if opts.JSON != "" {
		f, err := os.Create(opts.JSON)
		if err != nil {
			return errors.Wrapf(err, "failed to create %s", opts.JSON)
		}
		defer f.Close()
		return runner.WriteJSON(f)
	}
	return nil
}
