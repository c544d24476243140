package cmd

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const defaultConfigPath = "config.yaml"

var (
	configPath string
	verbose    bool

	rootCmd = &cobra.Command{
		Use:   "trailcast",
		Short: "Animated activity map exporter",
		Long: `trailcast replays cached activity tracks on a map and exports the animation
as a GIF, from the command line, over HTTP or via MQTT.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
			if verbose {
				logrus.SetLevel(logrus.DebugLevel)
			}
		},
	}
)

// Execute runs the command named by the process arguments.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath, "YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(NewExportCommand())
	rootCmd.AddCommand(NewServeCommand())
	rootCmd.AddCommand(NewExperimentCommand())
	rootCmd.AddCommand(NewStatsCommand())
	rootCmd.AddCommand(NewFetchCommand())
}
