package smf

import (
	"bytes"
	"testing"
)

func TestEncodeWireFormat(t *testing.T) {
	clip := Clip{
		Bus:        "A",
		SplitIndex: -1,
		Events: []Event{
			{Kind: KindNoteOn, AbsoluteTime: 0, Channel: 0, Note: 60, Velocity: 100},
			{Kind: KindNoteOff, AbsoluteTime: 96, Channel: 0, Note: 60},
		},
	}
	data, err := Encode(clip, 480, EncodeOptions{TrackName: "A"})
	if err != nil {
		t.Fatal(err)
	}

	want := []byte{
		'M', 'T', 'h', 'd', 0, 0, 0, 6,
		0, 0, // format 0
		0, 1, // one track
		0x01, 0xE0, // 480 PPQ
		'M', 'T', 'r', 'k', 0, 0, 0, 24,
		0x00, 0xFF, 0x03, 0x01, 'A', // track name
		0x00, 0xFF, 0x51, 0x03, 0x07, 0xA1, 0x20, // 120 BPM = 500000 us/beat
		0x00, 0x90, 0x3C, 0x64,
		0x60, 0x80, 0x3C, 0x00,
		0x00, 0xFF, 0x2F, 0x00, // end of track
	}
	if !bytes.Equal(data, want) {
		t.Fatalf("encoded bytes\n got % X\nwant % X", data, want)
	}
}

func TestEncodeTempo(t *testing.T) {
	clip := Clip{Events: notePair(0, 10, 60, 90)}
	data, err := Encode(clip, 96, EncodeOptions{TrackName: "T", TempoBPM: 100})
	if err != nil {
		t.Fatal(err)
	}
	// 100 BPM -> 600000 microseconds per beat = 0x0927C0.
	tempo := []byte{0xFF, 0x51, 0x03, 0x09, 0x27, 0xC0}
	if !bytes.Contains(data, tempo) {
		t.Fatalf("tempo meta % X not found in % X", tempo, data)
	}
}

func TestEncodeRejectsUnsortedStream(t *testing.T) {
	clip := Clip{Events: []Event{
		{Kind: KindNoteOn, AbsoluteTime: 100, Note: 60, Velocity: 90},
		{Kind: KindNoteOff, AbsoluteTime: 50, Note: 60},
	}}
	if _, err := Encode(clip, 480, EncodeOptions{}); err == nil {
		t.Fatal("expected error for unsorted stream")
	}
}

func TestEncodeRejectsBadPPQ(t *testing.T) {
	for _, ppq := range []int{0, -480, 0x8000} {
		if _, err := Encode(Clip{}, ppq, EncodeOptions{}); err == nil {
			t.Errorf("ppq %d accepted", ppq)
		}
	}
}

// Dropped events (sysex and the like) can leave two kept neighbors more
// than 28 VLQ bits apart; the delta is clamped instead of overflowing.
func TestEncodeHugeDelta(t *testing.T) {
	clip := Clip{Events: []Event{
		{Kind: KindNoteOn, AbsoluteTime: 0, Note: 60, Velocity: 90},
		{Kind: KindNoteOff, AbsoluteTime: 0x1FFFFFFE, Note: 60},
	}}
	recomputeDeltas(clip.Events)
	data, err := Encode(clip, 480, EncodeOptions{TrackName: "T"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Decode("huge.mid", data); err != nil {
		t.Fatalf("clamped output does not decode: %v", err)
	}
}

func TestEncodeSkipsUnsupportedAndForeignEndOfTrack(t *testing.T) {
	clip := Clip{Events: []Event{
		{Kind: KindUnsupported, AbsoluteTime: 0},
		{Kind: KindMeta, AbsoluteTime: 0, MetaType: MetaEndOfTrack},
		{Kind: KindNoteOn, AbsoluteTime: 0, Note: 60, Velocity: 90},
		{Kind: KindNoteOff, AbsoluteTime: 10, Note: 60},
	}}
	data, err := Encode(clip, 480, EncodeOptions{TrackName: "T"})
	if err != nil {
		t.Fatal(err)
	}
	file, err := Decode("roundtrip.mid", data)
	if err != nil {
		t.Fatal(err)
	}
	notes := 0
	for _, ev := range file.Tracks[0].Events {
		if ev.Kind == KindNoteOn {
			notes++
		}
		if ev.Kind == KindUnsupported {
			t.Errorf("unsupported event survived encoding")
		}
	}
	if notes != 1 {
		t.Errorf("%d notes decoded, want 1", notes)
	}
}

// Round-trip: for an unsplit stream, decode(encode(stream)) preserves note
// count, pitches, velocities and start times exactly.
func TestEncodeDecodeRoundTrip(t *testing.T) {
	var events []Event
	for i, note := range []uint8{36, 48, 60, 72, 84} {
		events = append(events, notePair(i*240, 120+i*17, note, uint8(40+i*10))...)
	}
	events = append(events,
		Event{Kind: KindControlChange, AbsoluteTime: 30, Channel: 2, Controller: 7, Value: 100},
		Event{Kind: KindPitchBend, AbsoluteTime: 45, Channel: 2, Bend: 0x1234},
		Event{Kind: KindProgramChange, AbsoluteTime: 0, Channel: 2, Program: 33},
	)
	sortByTime(events)
	recomputeDeltas(events)

	data, err := Encode(Clip{Events: events}, 480, EncodeOptions{TrackName: "RT"})
	if err != nil {
		t.Fatal(err)
	}
	file, err := Decode("rt.mid", data)
	if err != nil {
		t.Fatal(err)
	}

	type noteKey struct {
		tick     int
		note     uint8
		velocity uint8
	}
	collect := func(events []Event) []noteKey {
		var out []noteKey
		for _, ev := range events {
			if ev.Kind == KindNoteOn {
				out = append(out, noteKey{ev.AbsoluteTime, ev.Note, ev.Velocity})
			}
		}
		return out
	}

	got := collect(file.Tracks[0].Events)
	want := collect(events)
	if len(got) != len(want) {
		t.Fatalf("%d notes after round trip, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("note %d = %+v, want %+v", i, got[i], want[i])
		}
	}

	var bend, program bool
	for _, ev := range file.Tracks[0].Events {
		if ev.Kind == KindPitchBend && ev.Bend == 0x1234 && ev.Channel == 2 {
			bend = true
		}
		if ev.Kind == KindProgramChange && ev.Program == 33 {
			program = true
		}
	}
	if !bend || !program {
		t.Errorf("bend/program lost in round trip: bend=%v program=%v", bend, program)
	}

	if file.Tracks[0].Name != "RT" {
		t.Errorf("track name = %q, want RT", file.Tracks[0].Name)
	}
}
