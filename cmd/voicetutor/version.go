// ABOUTME: The version command
// ABOUTME: Prints product and version information
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bactutor/voicetutor-go/internal/version"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s)\n",
				version.Product, version.Version, version.Manufacturer)
			return nil
		},
	}
}
