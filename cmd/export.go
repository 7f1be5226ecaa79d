package cmd

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"ClipForge/core/export"
	"ClipForge/core/smf"

	"github.com/spf13/cobra"
)

var (
	exportIn          string
	exportOut         string
	exportBus         string
	exportTracks      string
	exportChannels    string
	exportStripPC     bool
	exportStepsPerBar int
	exportMaxSteps    int
	exportTempo       float64
	exportZip         bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export clips from a MIDI file without the server",
	Long:  `Decode a Standard MIDI File, merge the selected tracks onto one bus, split the result into step-limited clips and write them to disk as .mid files or a single ZIP bundle.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(exportIn)
		if err != nil {
			return fmt.Errorf("read %s: %w", exportIn, err)
		}
		parsed, err := smf.Decode(filepath.Base(exportIn), data)
		if err != nil {
			return err
		}

		tracks, err := parseIntList(exportTracks)
		if err != nil {
			return fmt.Errorf("--tracks: %w", err)
		}
		if len(tracks) == 0 {
			// Default to every track in the file.
			for i := range parsed.Tracks {
				tracks = append(tracks, i)
			}
		}
		channels, err := parseChannelList(exportChannels)
		if err != nil {
			return fmt.Errorf("--channels: %w", err)
		}

		req := export.Request{
			Outputs: []smf.OutputMapping{{
				Bus:                exportBus,
				Tracks:             tracks,
				ChannelFilter:      channels,
				StripProgramChange: exportStripPC,
			}},
			Settings: smf.ClipSettings{
				StepsPerBar:     exportStepsPerBar,
				MaxStepsPerClip: exportMaxSteps,
				PPQ:             int(parsed.PPQ),
			},
			TempoBPM: exportTempo,
		}

		bundle, err := export.Build(parsed, req)
		if err != nil {
			return err
		}

		if exportZip {
			archive, err := bundle.Zip()
			if err != nil {
				return err
			}
			out := exportOut
			if out == "" {
				out = strings.TrimSuffix(exportIn, filepath.Ext(exportIn)) + "_clips.zip"
			}
			if err := os.WriteFile(out, archive, 0644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			log.Printf("Wrote %s (%d clips)", out, len(bundle.Files))
			return nil
		}

		outDir := exportOut
		if outDir == "" {
			outDir = "."
		}
		if err := os.MkdirAll(outDir, 0755); err != nil {
			return fmt.Errorf("create %s: %w", outDir, err)
		}
		for _, f := range bundle.Files {
			path := filepath.Join(outDir, f.Name)
			if err := os.WriteFile(path, f.Data, 0644); err != nil {
				return fmt.Errorf("write %s: %w", path, err)
			}
			log.Printf("Wrote %s", path)
		}
		return nil
	},
}

func parseIntList(s string) ([]int, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var out []int
	for _, part := range strings.Split(s, ",") {
		v, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("bad value %q", part)
		}
		out = append(out, v)
	}
	return out, nil
}

func parseChannelList(s string) ([]uint8, error) {
	values, err := parseIntList(s)
	if err != nil {
		return nil, err
	}
	var out []uint8
	for _, v := range values {
		if v < 0 || v > 15 {
			return nil, fmt.Errorf("channel %d out of range 0..15", v)
		}
		out = append(out, uint8(v))
	}
	return out, nil
}

func init() {
	exportCmd.Flags().StringVar(&exportIn, "in", "", "input .mid file (required)")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output directory, or ZIP path with --zip")
	exportCmd.Flags().StringVar(&exportBus, "bus", "A", "output bus identifier")
	exportCmd.Flags().StringVar(&exportTracks, "tracks", "", "comma-separated source track indices (default: all)")
	exportCmd.Flags().StringVar(&exportChannels, "channels", "", "comma-separated channel allow-list (default: all)")
	exportCmd.Flags().BoolVar(&exportStripPC, "strip-program-change", false, "drop ProgramChange events")
	exportCmd.Flags().IntVar(&exportStepsPerBar, "steps-per-bar", smf.DefaultStepsPerBar, "step subdivision per 4/4 bar")
	exportCmd.Flags().IntVar(&exportMaxSteps, "max-steps", smf.DefaultMaxStepsPerClip, "hardware step limit per clip")
	exportCmd.Flags().Float64Var(&exportTempo, "tempo", smf.DefaultTempoBPM, "tempo written into each clip, in BPM")
	exportCmd.Flags().BoolVar(&exportZip, "zip", false, "write one ZIP bundle instead of loose files")
	exportCmd.MarkFlagRequired("in")
	rootCmd.AddCommand(exportCmd)
}
