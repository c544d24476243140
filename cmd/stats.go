package cmd

import (
	"github.com/spf13/cobra"

	"github.com/matt-g-everett/trailcast/activity"
)

// NewStatsCommand creates the stats command.
func NewStatsCommand() *cobra.Command {
	var activityType string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarise the cached activities",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			if err := a.loadActivities(activityType); err != nil {
				return err
			}
			activity.Summarise(a.Activities).Write(cmd.OutOrStdout())
			return nil
		},
	}

	cmd.Flags().StringVar(&activityType, "type", activity.AllTypes, "Activity type to include")
	return cmd
}
