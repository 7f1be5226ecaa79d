package smf

import (
	"errors"
	"testing"
)

func testFile() *ParsedFile {
	return &ParsedFile{
		Name: "test.mid",
		PPQ:  480,
		Tracks: []Track{
			{
				Index: 0,
				Events: []Event{
					{Kind: KindNoteOn, AbsoluteTime: 0, Channel: 0, Note: 60, Velocity: 100},
					{Kind: KindProgramChange, AbsoluteTime: 0, Channel: 0, Program: 5},
					{Kind: KindNoteOff, AbsoluteTime: 96, Channel: 0, Note: 60},
					{Kind: KindUnsupported, AbsoluteTime: 100},
				},
			},
			{
				Index: 1,
				Events: []Event{
					{Kind: KindNoteOn, AbsoluteTime: 48, Channel: 1, Note: 64, Velocity: 80},
					{Kind: KindNoteOff, AbsoluteTime: 144, Channel: 1, Note: 64},
				},
			},
		},
	}
}

func TestMergeTwoTracks(t *testing.T) {
	merged, err := Merge(testFile(), OutputMapping{Bus: "A", Tracks: []int{0, 1}})
	if err != nil {
		t.Fatal(err)
	}
	// Unsupported dropped, everything else kept and time-sorted.
	wantTimes := []int{0, 0, 48, 96, 144}
	if len(merged) != len(wantTimes) {
		t.Fatalf("merged %d events, want %d", len(merged), len(wantTimes))
	}
	prev := 0
	for i, ev := range merged {
		if ev.AbsoluteTime != wantTimes[i] {
			t.Errorf("event %d at tick %d, want %d", i, ev.AbsoluteTime, wantTimes[i])
		}
		if ev.AbsoluteTime < prev {
			t.Errorf("time went backwards at event %d", i)
		}
		prev = ev.AbsoluteTime
	}
	// Deltas must sum back to absolute times.
	sum := 0
	for i, ev := range merged {
		sum += ev.Delta
		if sum != ev.AbsoluteTime {
			t.Errorf("delta sum %d != absolute %d at event %d", sum, ev.AbsoluteTime, i)
		}
	}
}

func TestMergeChannelFilter(t *testing.T) {
	merged, err := Merge(testFile(), OutputMapping{
		Bus:           "B",
		Tracks:        []int{0, 1},
		ChannelFilter: []uint8{0},
	})
	if err != nil {
		t.Fatal(err)
	}
	for _, ev := range merged {
		if ev.Kind.IsChannelVoice() && ev.Channel != 0 {
			t.Errorf("channel %d event survived the filter: %+v", ev.Channel, ev)
		}
	}
	// Channel 1 events are absent entirely, not silenced.
	if len(merged) != 3 {
		t.Fatalf("merged %d events, want 3", len(merged))
	}
}

func TestMergeStripProgramChange(t *testing.T) {
	merged, err := Merge(testFile(), OutputMapping{
		Bus:                "C",
		Tracks:             []int{0},
		StripProgramChange: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	for _, ev := range merged {
		if ev.Kind == KindProgramChange {
			t.Errorf("ProgramChange survived strip: %+v", ev)
		}
	}
	if len(merged) != 2 {
		t.Fatalf("merged %d events, want 2", len(merged))
	}
}

func TestMergeEmptyMappingIsEmptyStream(t *testing.T) {
	merged, err := Merge(testFile(), OutputMapping{Bus: "D"})
	if err != nil {
		t.Fatal(err)
	}
	if len(merged) != 0 {
		t.Fatalf("expected an empty stream, got %d events", len(merged))
	}
}

func TestMergeTrackIndexOutOfRange(t *testing.T) {
	for _, idx := range []int{-1, 2} {
		_, err := Merge(testFile(), OutputMapping{Bus: "A", Tracks: []int{idx}})
		var cfgErr *ConfigError
		if !errors.As(err, &cfgErr) {
			t.Errorf("index %d: error %v, want *ConfigError", idx, err)
		}
	}
}

func TestMergeStableAtEqualTicks(t *testing.T) {
	file := &ParsedFile{
		PPQ: 480,
		Tracks: []Track{{
			Index: 0,
			Events: []Event{
				{Kind: KindNoteOff, AbsoluteTime: 96, Channel: 0, Note: 60},
				{Kind: KindNoteOn, AbsoluteTime: 96, Channel: 0, Note: 60, Velocity: 90},
			},
		}},
	}
	merged, err := Merge(file, OutputMapping{Bus: "A", Tracks: []int{0}})
	if err != nil {
		t.Fatal(err)
	}
	// A NoteOff preceding a reused NoteOn at the same tick must stay first.
	if merged[0].Kind != KindNoteOff || merged[1].Kind != KindNoteOn {
		t.Fatalf("tie order not preserved: %v then %v", merged[0].Kind, merged[1].Kind)
	}
}
