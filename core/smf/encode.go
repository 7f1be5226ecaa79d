package smf

import (
	"encoding/binary"
	"fmt"
	"math"
)

// DefaultTempoBPM is written when the caller does not supply a tempo.
const DefaultTempoBPM = 120

// EncodeOptions name the emitted track and set its tempo. Zero values fall
// back to "Track" and 120 BPM.
type EncodeOptions struct {
	TrackName string
	TempoBPM  float64
}

// Encode serializes one clip as a single-track Standard MIDI File at the
// given time base. A Track Name and Set Tempo meta pair open the track at
// tick 0 and an End Of Track meta closes it. Meta events already in the
// stream are carried through verbatim, except End Of Track markers, which
// the encoder owns.
func Encode(clip Clip, ppq int, opts EncodeOptions) ([]byte, error) {
	if ppq <= 0 || ppq > 0x7FFF {
		return nil, &ConfigError{Field: "ppq", Msg: fmt.Sprintf("must be in 1..32767, got %d", ppq)}
	}
	name := opts.TrackName
	if name == "" {
		name = "Track"
	}
	bpm := opts.TempoBPM
	if bpm <= 0 {
		bpm = DefaultTempoBPM
	}
	microsPerBeat := int(math.Round(60_000_000 / bpm))

	// Track body first; its length goes into the chunk header.
	body := make([]byte, 0, len(clip.Events)*4+64)

	// Tick-0 preamble: track name, then tempo.
	body = appendVLQ(body, 0)
	body = append(body, 0xFF, MetaTrackName)
	body = appendVLQ(body, len(name))
	body = append(body, name...)

	body = appendVLQ(body, 0)
	body = append(body, 0xFF, MetaSetTempo, 3,
		byte(microsPerBeat>>16), byte(microsPerBeat>>8), byte(microsPerBeat))

	prev := 0
	for _, ev := range clip.Events {
		if ev.AbsoluteTime < prev {
			return nil, &ConfigError{
				Field: "events",
				Msg:   fmt.Sprintf("stream is not time-sorted at tick %d", ev.AbsoluteTime),
			}
		}
		encoded, ok := encodeEvent(ev)
		if !ok {
			continue // Unsupported events and foreign End Of Track markers
		}
		body = appendVLQ(body, ev.AbsoluteTime-prev)
		body = append(body, encoded...)
		prev = ev.AbsoluteTime
	}

	body = appendVLQ(body, 0)
	body = append(body, 0xFF, MetaEndOfTrack, 0)

	out := make([]byte, 0, 14+8+len(body))
	out = append(out, headerMagic...)
	out = binary.BigEndian.AppendUint32(out, 6)
	out = binary.BigEndian.AppendUint16(out, 0) // single track, format 0
	out = binary.BigEndian.AppendUint16(out, 1)
	out = binary.BigEndian.AppendUint16(out, uint16(ppq))
	out = append(out, trackMagic...)
	out = binary.BigEndian.AppendUint32(out, uint32(len(body)))
	out = append(out, body...)
	return out, nil
}

// encodeEvent returns the canonical wire form of one event without its
// delta-time prefix. ok is false for events with no SMF representation.
func encodeEvent(ev Event) ([]byte, bool) {
	switch ev.Kind {
	case KindNoteOn:
		vel := ev.Velocity
		if vel == 0 {
			// A zero-velocity NoteOn would decode as a NoteOff; keep the
			// note audible rather than silently inverting its meaning.
			vel = 1
		}
		return []byte{0x90 | ev.Channel&0x0F, ev.Note & 0x7F, vel & 0x7F}, true
	case KindNoteOff:
		return []byte{0x80 | ev.Channel&0x0F, ev.Note & 0x7F, ev.Velocity & 0x7F}, true
	case KindControlChange:
		return []byte{0xB0 | ev.Channel&0x0F, ev.Controller & 0x7F, ev.Value & 0x7F}, true
	case KindProgramChange:
		return []byte{0xC0 | ev.Channel&0x0F, ev.Program & 0x7F}, true
	case KindPitchBend:
		bend := ev.Bend & 0x3FFF
		return []byte{0xE0 | ev.Channel&0x0F, byte(bend & 0x7F), byte(bend >> 7)}, true
	case KindAftertouch:
		return []byte{0xA0 | ev.Channel&0x0F, ev.Note & 0x7F, ev.Value & 0x7F}, true
	case KindChannelAftertouch:
		return []byte{0xD0 | ev.Channel&0x0F, ev.Value & 0x7F}, true
	case KindMeta:
		if ev.MetaType == MetaEndOfTrack {
			return nil, false
		}
		out := []byte{0xFF, ev.MetaType}
		out = appendVLQ(out, len(ev.MetaData))
		return append(out, ev.MetaData...), true
	default:
		return nil, false
	}
}
