package cmd

import (
	"fmt"
	"log"
	"os"

	"ClipForge/server"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "clipforge",
	Short: "ClipForge slices MIDI files into hardware-sized sequencer clips.",
	Run: func(cmd *cobra.Command, args []string) {
		log.Println("Starting ClipForge server...")
		// server.Start handles its own config loading and logging setup.
		server.Start()
	},
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
