// Package export runs the merge/split/encode pipeline for a set of output
// buses and packages the resulting clips for delivery.
package export

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"ClipForge/core/smf"
)

// ErrNothingToExport is returned when every configured bus produced an
// empty stream (no tracks selected, or everything filtered away).
var ErrNothingToExport = errors.New("export: no events on any configured bus")

// Request is one export invocation: the bus mappings plus clip settings.
// A zero Settings.PPQ inherits the source file's time base; zero
// StepsPerBar and MaxStepsPerClip fall back to the stock defaults.
type Request struct {
	Outputs  []smf.OutputMapping `json:"outputs"`
	Settings smf.ClipSettings    `json:"settings"`
	TempoBPM float64             `json:"tempo,omitempty"`
}

// ManifestEntry describes one emitted clip file.
type ManifestEntry struct {
	Filename     string `json:"filename"`
	Bus          string `json:"bus"`
	SplitIndex   int    `json:"splitIndex"` // -1 when the bus fit in one clip
	StartStep    int    `json:"startStep"`
	EndStep      int    `json:"endStep"`
	SourceTracks []int  `json:"sourceTracks"`
}

// File is one encoded clip ready to be written or zipped.
type File struct {
	Name string
	Data []byte
}

// Bundle is the complete result of one export: the clip files in bus order
// and a manifest describing them.
type Bundle struct {
	Files    []File
	Manifest []ManifestEntry
}

// ClipName names a clip file: "{bus}.mid", or "{bus}_{n}.mid" with a
// 1-based part number when the bus needed more than one clip.
func ClipName(bus string, splitIndex int) string {
	if splitIndex < 0 {
		return bus + ".mid"
	}
	return fmt.Sprintf("%s_%d.mid", bus, splitIndex+1)
}

// Build merges, splits and encodes every configured bus. Buses only read
// the shared ParsedFile and write private results, so they run in
// parallel, one goroutine each. Empty buses are skipped; if every bus is
// empty the result is ErrNothingToExport.
func Build(file *smf.ParsedFile, req Request) (*Bundle, error) {
	if len(req.Outputs) == 0 {
		return nil, &smf.ConfigError{Field: "outputs", Msg: "no output buses configured"}
	}
	settings := req.Settings
	if settings.PPQ == 0 {
		settings.PPQ = int(file.PPQ)
	}
	if settings.StepsPerBar == 0 {
		settings.StepsPerBar = smf.DefaultStepsPerBar
	}
	if settings.MaxStepsPerClip == 0 {
		settings.MaxStepsPerClip = smf.DefaultMaxStepsPerClip
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	type busResult struct {
		clips []smf.Clip
		err   error
	}
	results := make([]busResult, len(req.Outputs))

	var wg sync.WaitGroup
	for i, mapping := range req.Outputs {
		wg.Add(1)
		go func(i int, mapping smf.OutputMapping) {
			defer wg.Done()
			merged, err := smf.Merge(file, mapping)
			if err != nil {
				results[i] = busResult{err: err}
				return
			}
			clips, err := smf.Split(merged, settings, mapping.Bus)
			results[i] = busResult{clips: clips, err: err}
		}(i, mapping)
	}
	wg.Wait()

	bundle := &Bundle{}
	for i, res := range results {
		if res.err != nil {
			return nil, fmt.Errorf("bus %s: %w", req.Outputs[i].Bus, res.err)
		}
		for _, clip := range res.clips {
			name := ClipName(clip.Bus, clip.SplitIndex)
			data, err := smf.Encode(clip, settings.PPQ, smf.EncodeOptions{
				TrackName: trackName(file.Name, clip),
				TempoBPM:  req.TempoBPM,
			})
			if err != nil {
				return nil, fmt.Errorf("bus %s: %w", clip.Bus, err)
			}
			bundle.Files = append(bundle.Files, File{Name: name, Data: data})
			bundle.Manifest = append(bundle.Manifest, ManifestEntry{
				Filename:     name,
				Bus:          clip.Bus,
				SplitIndex:   clip.SplitIndex,
				StartStep:    clip.StartStep,
				EndStep:      clip.EndStep,
				SourceTracks: req.Outputs[i].Tracks,
			})
		}
	}
	if len(bundle.Files) == 0 {
		return nil, ErrNothingToExport
	}
	return bundle, nil
}

func trackName(sourceName string, clip smf.Clip) string {
	if clip.SplitIndex < 0 {
		return fmt.Sprintf("%s %s", sourceName, clip.Bus)
	}
	return fmt.Sprintf("%s %s part %d", sourceName, clip.Bus, clip.SplitIndex+1)
}

// Zip packages the bundle's clip files plus a manifest.json into one
// archive.
func (b *Bundle) Zip() ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range b.Files {
		w, err := zw.Create(f.Name)
		if err != nil {
			return nil, fmt.Errorf("zip %s: %w", f.Name, err)
		}
		if _, err := w.Write(f.Data); err != nil {
			return nil, fmt.Errorf("zip %s: %w", f.Name, err)
		}
	}
	manifest, err := json.MarshalIndent(b.Manifest, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}
	w, err := zw.Create("manifest.json")
	if err != nil {
		return nil, fmt.Errorf("zip manifest: %w", err)
	}
	if _, err := w.Write(manifest); err != nil {
		return nil, fmt.Errorf("zip manifest: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close zip: %w", err)
	}
	return buf.Bytes(), nil
}
