// ABOUTME: The devices command listing audio hardware
// ABOUTME: Enumerates capture and playback devices via malgo
package main

import (
	"fmt"

	"github.com/gen2brain/malgo"
	"github.com/spf13/cobra"
)

func newDevicesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List capture and playback devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
			if err != nil {
				return fmt.Errorf("init audio context: %w", err)
			}
			defer func() {
				_ = ctx.Uninit()
				ctx.Free()
			}()

			capture, err := ctx.Devices(malgo.Capture)
			if err != nil {
				return fmt.Errorf("enumerate capture devices: %w", err)
			}
			playback, err := ctx.Devices(malgo.Playback)
			if err != nil {
				return fmt.Errorf("enumerate playback devices: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Capture devices:")
			for _, d := range capture {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", d.Name())
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Playback devices:")
			for _, d := range playback {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", d.Name())
			}
			return nil
		},
	}
}
