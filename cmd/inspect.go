package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"ClipForge/core/smf"

	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [file.mid]",
	Short: "Print the header and track summary of a MIDI file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read %s: %w", args[0], err)
		}
		parsed, err := smf.Decode(filepath.Base(args[0]), data)
		if err != nil {
			return err
		}

		fmt.Printf("%s: format %d, %d track(s), %d PPQ, %d ticks long\n",
			parsed.Name, parsed.Format, len(parsed.Tracks), parsed.PPQ, parsed.Duration)
		for _, track := range parsed.Tracks {
			name := track.Name
			if name == "" {
				name = "(unnamed)"
			}
			kind := ""
			if track.IsDrum {
				kind = " [drums]"
			}
			notes := "no notes"
			if track.MinNote >= 0 {
				notes = fmt.Sprintf("notes %d..%d", track.MinNote, track.MaxNote)
			}
			fmt.Printf("  %2d  %-24s%s  channels %v  %s  %d events\n",
				track.Index, name, kind, track.Channels, notes, track.EventCount())
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}
