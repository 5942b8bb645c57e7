package cmd

import (
	"github.com/spf13/cobra"
)

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "go-practice",
		Short: "Play along with a MIDI reference and get note-by-note feedback",
		Long: `go-practice listens to what you play, compares each new note with the
next note of a reference track and only moves on once you hit it.

Input comes from a MIDI keyboard, a WAV recording or a scripted melody.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd(), newTracksCmd(), newPortsCmd())
	return root
}

// Execute runs the CLI and exits non-zero on error.
func Execute() {
	cobra.CheckErr(NewRootCmd().Execute())
}
