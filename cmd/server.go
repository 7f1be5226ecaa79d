package cmd

import (
	"ClipForge/server"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the ClipForge HTTP server",
	Long:  `Start the HTTP server that accepts MIDI uploads, maps tracks onto output buses and exports sequencer-sized clips.`,
	Run: func(cmd *cobra.Command, args []string) {
		server.Start()
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
