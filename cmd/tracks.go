package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"go-practice/reference"
)

func newTracksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tracks FILE",
		Short: "List the playable tracks of a MIDI file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			seq, err := reference.ReadFile(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (%d ticks per quarter)\n", seq.Name, seq.Resolution)
			if len(seq.Tracks) == 0 {
				fmt.Fprintln(out, "  no tracks with notes")
				return nil
			}
			for i := range seq.Tracks {
				t := &seq.Tracks[i]
				first := "-"
				if len(t.Notes) > 0 {
					first = t.Notes[0].Label()
				}
				fmt.Fprintf(out, "  %d: %s, starts on %s\n", i, t.Label(), first)
			}
			return nil
		},
	}
}
