// ABOUTME: Root command for the voicetutor CLI
// ABOUTME: Registers the call, devices and version subcommands
package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string

	rootCmd := &cobra.Command{
		Use:           "voicetutor",
		Short:         "Live AI voice tutor for bac prep",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")

	rootCmd.AddCommand(newCallCommand(&configFlag))
	rootCmd.AddCommand(newDevicesCommand())
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}
