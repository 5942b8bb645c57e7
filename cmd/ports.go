package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"go-practice/midi"
)

func newPortsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ports",
		Short: "List MIDI input ports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := midi.ListInPorts()
			if err != nil {
				// CoreMIDI hangs are fixed with: sudo killall coreaudiod midiserver
				return err
			}

			out := cmd.OutOrStdout()
			if len(names) == 0 {
				fmt.Fprintln(out, "no MIDI input ports")
				return nil
			}
			filter := midi.NewDeviceManager("")
			for i, name := range names {
				note := ""
				if !filter.Wants(name) {
					note = "  (ignored)"
				}
				fmt.Fprintf(out, "  %d: %s%s\n", i, name, note)
			}
			return nil
		},
	}
}
