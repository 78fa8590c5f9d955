package main

import (
	"os"

	"github.com/spf13/cobra"

	"patient-caller-backend/internal/client"
)

const serverEnv = "CALLER_SERVER"

func newRootCommand() *cobra.Command {
	var serverFlag string
	var timezoneFlag string

	ctx := newCommandContext(&serverFlag, &timezoneFlag)

	rootCmd := &cobra.Command{
		Use:           "callerctl",
		Short:         "Operate the patient caller queue",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	defaultServer := os.Getenv(serverEnv)
	if defaultServer == "" {
		defaultServer = client.DefaultBaseURL
	}
	rootCmd.PersistentFlags().StringVar(&serverFlag, "server", defaultServer, "Queue API address (env "+serverEnv+")")
	rootCmd.PersistentFlags().StringVar(&timezoneFlag, "timezone", "Local", "Timezone for calendar dates and times")

	rootCmd.AddCommand(newAddCommand(ctx))
	rootCmd.AddCommand(newListCommand(ctx))
	rootCmd.AddCommand(newCallCommand(ctx))
	rootCmd.AddCommand(newAttendCommand(ctx))
	rootCmd.AddCommand(newCalledCommand(ctx))
	rootCmd.AddCommand(newHistoryCommand(ctx))
	rootCmd.AddCommand(newDisplayCommand(ctx))

	return rootCmd
}
