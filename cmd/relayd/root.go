package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "relayd",
		Short:         "Durable event relay between voice capture surfaces and an agent bus",
		Long:          "relayd journals outbound voice interaction events before any delivery attempt, retries them with backoff over the bus, and routes agent responses back to the session that produced the input.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to the relayd config file")

	rootCmd.AddCommand(
		newRunCmd(&configPath),
		newReplayCmd(&configPath),
		newSchemaCmd(),
	)

	return rootCmd
}
