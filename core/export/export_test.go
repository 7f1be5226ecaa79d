package export

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"ClipForge/core/smf"
)

func sourceFile(t *testing.T) *smf.ParsedFile {
	t.Helper()
	tracks := []smf.Track{
		{Index: 0, Events: []smf.Event{
			{Kind: smf.KindNoteOn, AbsoluteTime: 0, Channel: 0, Note: 60, Velocity: 100},
			{Kind: smf.KindNoteOff, AbsoluteTime: 480, Channel: 0, Note: 60},
		}},
		{Index: 1, Events: []smf.Event{
			{Kind: smf.KindNoteOn, AbsoluteTime: 0, Channel: 9, Note: 36, Velocity: 110},
			{Kind: smf.KindNoteOff, AbsoluteTime: 20000, Channel: 9, Note: 36},
		}},
	}
	return &smf.ParsedFile{Name: "song", PPQ: 480, Tracks: tracks, Duration: 20000}
}

func TestBuildNamesAndManifest(t *testing.T) {
	bundle, err := Build(sourceFile(t), Request{
		Outputs: []smf.OutputMapping{
			{Bus: "A", Tracks: []int{0}},
			{Bus: "B", Tracks: []int{1}},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	// Bus A fits one clip, bus B (20000 ticks at 15360/clip) splits in two.
	wantNames := []string{"A.mid", "B_1.mid", "B_2.mid"}
	if len(bundle.Files) != len(wantNames) {
		t.Fatalf("%d files, want %d", len(bundle.Files), len(wantNames))
	}
	for i, want := range wantNames {
		if bundle.Files[i].Name != want {
			t.Errorf("file %d = %q, want %q", i, bundle.Files[i].Name, want)
		}
		if bundle.Manifest[i].Filename != want {
			t.Errorf("manifest %d = %q, want %q", i, bundle.Manifest[i].Filename, want)
		}
	}

	a := bundle.Manifest[0]
	if a.Bus != "A" || a.SplitIndex != -1 || a.StartStep != 0 || a.EndStep != 4 {
		t.Errorf("manifest for A: %+v", a)
	}
	if len(a.SourceTracks) != 1 || a.SourceTracks[0] != 0 {
		t.Errorf("source tracks for A: %v", a.SourceTracks)
	}
	b1, b2 := bundle.Manifest[1], bundle.Manifest[2]
	if b1.SplitIndex != 0 || b2.SplitIndex != 1 {
		t.Errorf("split indices: %d, %d", b1.SplitIndex, b2.SplitIndex)
	}
	if b1.EndStep != b2.StartStep {
		t.Errorf("step ranges not contiguous: [%d,%d) then [%d,%d)",
			b1.StartStep, b1.EndStep, b2.StartStep, b2.EndStep)
	}

	// Every emitted file must decode again.
	for _, f := range bundle.Files {
		if _, err := smf.Decode(f.Name, f.Data); err != nil {
			t.Errorf("%s does not decode: %v", f.Name, err)
		}
	}
}

// A zero-value Settings works end to end: PPQ comes from the file, step
// geometry from the stock defaults.
func TestBuildZeroSettingsUseDefaults(t *testing.T) {
	bundle, err := Build(sourceFile(t), Request{
		Outputs: []smf.OutputMapping{{Bus: "B", Tracks: []int{1}}},
	})
	if err != nil {
		t.Fatal(err)
	}
	// 20000 ticks at the default 15360-tick window splits in two, step
	// ranges derived from the default 120-tick step.
	if len(bundle.Files) != 2 {
		t.Fatalf("%d files, want 2", len(bundle.Files))
	}
	want := smf.DefaultClipSettings(480)
	if got := bundle.Manifest[0].EndStep; got != want.MaxStepsPerClip {
		t.Errorf("first clip ends at step %d, want %d", got, want.MaxStepsPerClip)
	}
	totalSteps := (20000 + want.TicksPerStep() - 1) / want.TicksPerStep()
	if got := bundle.Manifest[1].EndStep; got != totalSteps {
		t.Errorf("last clip ends at step %d, want %d", got, totalSteps)
	}
}

func TestBuildSkipsEmptyBuses(t *testing.T) {
	bundle, err := Build(sourceFile(t), Request{
		Outputs: []smf.OutputMapping{
			{Bus: "A", Tracks: []int{0}},
			{Bus: "B"}, // nothing mapped
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	for _, f := range bundle.Files {
		if f.Name != "A.mid" {
			t.Errorf("unexpected file %q for an empty bus", f.Name)
		}
	}
}

func TestBuildAllEmpty(t *testing.T) {
	_, err := Build(sourceFile(t), Request{
		Outputs: []smf.OutputMapping{{Bus: "A"}, {Bus: "B"}},
	})
	if !errors.Is(err, ErrNothingToExport) {
		t.Fatalf("error = %v, want ErrNothingToExport", err)
	}
}

func TestBuildValidation(t *testing.T) {
	var cfgErr *smf.ConfigError
	_, err := Build(sourceFile(t), Request{})
	if !errors.As(err, &cfgErr) {
		t.Errorf("no outputs: error %v, want *ConfigError", err)
	}
	_, err = Build(sourceFile(t), Request{
		Outputs:  []smf.OutputMapping{{Bus: "A", Tracks: []int{0}}},
		Settings: smf.ClipSettings{StepsPerBar: -4, MaxStepsPerClip: 128, PPQ: 480},
	})
	if !errors.As(err, &cfgErr) {
		t.Errorf("bad settings: error %v, want *ConfigError", err)
	}
	_, err = Build(sourceFile(t), Request{
		Outputs: []smf.OutputMapping{{Bus: "A", Tracks: []int{7}}},
	})
	if !errors.As(err, &cfgErr) {
		t.Errorf("bad track index: error %v, want *ConfigError", err)
	}
}

func TestZipContainsFilesAndManifest(t *testing.T) {
	bundle, err := Build(sourceFile(t), Request{
		Outputs: []smf.OutputMapping{{Bus: "A", Tracks: []int{0, 1}}},
	})
	if err != nil {
		t.Fatal(err)
	}
	data, err := bundle.Zip()
	if err != nil {
		t.Fatal(err)
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatal(err)
	}

	found := map[string]bool{}
	for _, f := range zr.File {
		found[f.Name] = true
		if f.Name != "manifest.json" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatal(err)
		}
		raw, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatal(err)
		}
		var manifest []ManifestEntry
		if err := json.Unmarshal(raw, &manifest); err != nil {
			t.Fatalf("manifest.json: %v", err)
		}
		if len(manifest) != len(bundle.Files) {
			t.Errorf("manifest has %d entries, want %d", len(manifest), len(bundle.Files))
		}
	}
	if !found["manifest.json"] {
		t.Error("manifest.json missing from archive")
	}
	for _, f := range bundle.Files {
		if !found[f.Name] {
			t.Errorf("%s missing from archive", f.Name)
		}
	}
}

func TestClipName(t *testing.T) {
	if got := ClipName("A", -1); got != "A.mid" {
		t.Errorf("ClipName(A,-1) = %q", got)
	}
	if got := ClipName("C", 0); got != "C_1.mid" {
		t.Errorf("ClipName(C,0) = %q", got)
	}
	if got := ClipName("D", 3); got != "D_4.mid" {
		t.Errorf("ClipName(D,3) = %q", got)
	}
}
