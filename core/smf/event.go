package smf

import "sort"

// Kind identifies what a decoded Event represents. Channel-voice kinds
// carry a channel plus their payload fields; Meta carries a raw payload;
// Unsupported marks bytes we decoded past but do not process further.
type Kind uint8

const (
	KindNoteOn Kind = iota
	KindNoteOff
	KindControlChange
	KindProgramChange
	KindPitchBend
	KindAftertouch
	KindChannelAftertouch
	KindMeta
	KindUnsupported
)

func (k Kind) String() string {
	switch k {
	case KindNoteOn:
		return "noteOn"
	case KindNoteOff:
		return "noteOff"
	case KindControlChange:
		return "controlChange"
	case KindProgramChange:
		return "programChange"
	case KindPitchBend:
		return "pitchBend"
	case KindAftertouch:
		return "aftertouch"
	case KindChannelAftertouch:
		return "channelAftertouch"
	case KindMeta:
		return "meta"
	default:
		return "unsupported"
	}
}

// IsChannelVoice reports whether events of this kind carry a MIDI channel.
func (k Kind) IsChannelVoice() bool {
	switch k {
	case KindNoteOn, KindNoteOff, KindControlChange, KindProgramChange,
		KindPitchBend, KindAftertouch, KindChannelAftertouch:
		return true
	}
	return false
}

// Meta event type bytes the core cares about by name. Everything else is
// carried opaquely in MetaData.
const (
	MetaTrackName  = 0x03
	MetaEndOfTrack = 0x2F
	MetaSetTempo   = 0x51
)

// Event is one MIDI or meta occurrence at an absolute tick offset within
// its stream. Which payload fields are meaningful depends on Kind:
//
//	NoteOn/NoteOff          Note, Velocity (Duration set on NoteOn)
//	ControlChange           Controller, Value
//	ProgramChange           Program
//	PitchBend               Bend (14-bit)
//	Aftertouch              Note, Value
//	ChannelAftertouch       Value
//	Meta                    MetaType, MetaData
//
// Delta is derived from stream order and is recomputed whenever a stream
// is sorted, merged, or re-based; AbsoluteTime is the source of truth.
type Event struct {
	Kind         Kind   `json:"kind"`
	AbsoluteTime int    `json:"absoluteTime"`
	Delta        int    `json:"delta"`
	Channel      uint8  `json:"channel"`
	Note         uint8  `json:"note,omitempty"`
	Velocity     uint8  `json:"velocity,omitempty"`
	Controller   uint8  `json:"controller,omitempty"`
	Value        uint8  `json:"value,omitempty"`
	Program      uint8  `json:"program,omitempty"`
	Bend         int    `json:"bend,omitempty"`
	MetaType     uint8  `json:"metaType,omitempty"`
	MetaData     []byte `json:"metaData,omitempty"`

	// Duration is the tick distance to the matching NoteOff, filled in for
	// NoteOn events by the decoder using FIFO same-pitch matching. Zero for
	// every other kind and for NoteOn events that never close.
	Duration int `json:"duration,omitempty"`
}

// Track is one decoded SMF track chunk plus the summary the mapping UI
// needs to describe it.
type Track struct {
	Index    int     `json:"index"`
	Name     string  `json:"name"`
	Events   []Event `json:"events"`
	Channels []uint8 `json:"channels"`
	MinNote  int     `json:"minNote"` // -1 when the track has no notes
	MaxNote  int     `json:"maxNote"` // -1 when the track has no notes
	IsDrum   bool    `json:"isDrum"`
	Program  int     `json:"program"` // first ProgramChange seen, -1 when none
}

// EventCount reports how many decoded events the track holds, including
// Unsupported ones (a reduced count is how callers observe drops later).
func (t *Track) EventCount() int {
	return len(t.Events)
}

// ParsedFile is the immutable result of decoding one SMF file.
type ParsedFile struct {
	Name       string  `json:"name"`
	Format     uint16  `json:"format"`
	TrackCount uint16  `json:"trackCount"`
	PPQ        uint16  `json:"ppq"`
	Tracks     []Track `json:"tracks"`
	Duration   int     `json:"duration"` // max AbsoluteTime across all tracks, in ticks
}

// sortByTime stable-sorts events by AbsoluteTime. Stability matters: a
// NoteOff preceding a reused NoteOn at the same tick must stay first.
func sortByTime(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].AbsoluteTime < events[j].AbsoluteTime
	})
}

// recomputeDeltas rewrites each event's Delta from the stream's AbsoluteTime
// ordering. The first event's delta is its absolute offset from tick 0.
func recomputeDeltas(events []Event) {
	prev := 0
	for i := range events {
		events[i].Delta = events[i].AbsoluteTime - prev
		prev = events[i].AbsoluteTime
	}
}
