package smf

import (
	"encoding/binary"
	"strings"
)

const (
	headerMagic = "MThd"
	trackMagic  = "MTrk"
)

// Decode parses raw Standard MIDI File bytes into a ParsedFile. Formats 0
// and 1 only; format 2 and SMPTE time divisions are rejected. The returned
// file is complete or the error is fatal — there is no partial result.
func Decode(name string, data []byte) (*ParsedFile, error) {
	if len(data) < 14 {
		return nil, decodeErrf(-1, "file too short for an SMF header (%d bytes)", len(data))
	}
	if string(data[0:4]) != headerMagic {
		return nil, decodeErrf(0, "missing MThd header magic")
	}
	headerLen := int(binary.BigEndian.Uint32(data[4:8]))
	if headerLen < 6 || 8+headerLen > len(data) {
		return nil, decodeErrf(4, "bad MThd chunk length %d", headerLen)
	}
	format := binary.BigEndian.Uint16(data[8:10])
	trackCount := binary.BigEndian.Uint16(data[10:12])
	division := binary.BigEndian.Uint16(data[12:14])

	if format > 1 {
		return nil, decodeErrf(8, "unsupported SMF format %d", format)
	}
	if division&0x8000 != 0 {
		return nil, decodeErrf(12, "SMPTE time division is not supported")
	}
	if division == 0 {
		return nil, decodeErrf(12, "zero ticks per quarter note")
	}

	file := &ParsedFile{
		Name:       name,
		Format:     format,
		TrackCount: trackCount,
		PPQ:        division,
		Tracks:     make([]Track, 0, trackCount),
	}

	pos := 8 + headerLen
	for len(file.Tracks) < int(trackCount) {
		if pos+8 > len(data) {
			return nil, decodeErrf(pos, "expected %d tracks, found %d", trackCount, len(file.Tracks))
		}
		magic := string(data[pos : pos+4])
		chunkLen := int(binary.BigEndian.Uint32(data[pos+4 : pos+8]))
		body := pos + 8
		if chunkLen < 0 || body+chunkLen > len(data) {
			return nil, decodeErrf(pos+4, "chunk length %d overruns file", chunkLen)
		}
		if magic != trackMagic {
			// Alien chunks are legal in SMF; skip them without counting.
			pos = body + chunkLen
			continue
		}
		track, err := decodeTrack(data, body, body+chunkLen, len(file.Tracks))
		if err != nil {
			return nil, err
		}
		file.Tracks = append(file.Tracks, track)
		pos = body + chunkLen
	}

	for i := range file.Tracks {
		evs := file.Tracks[i].Events
		if n := len(evs); n > 0 && evs[n-1].AbsoluteTime > file.Duration {
			file.Duration = evs[n-1].AbsoluteTime
		}
	}
	return file, nil
}

// lengths of system-common messages that may legally appear in a stream
// but that the core does not process.
var systemCommonLen = map[byte]int{
	0xF1: 1, 0xF2: 2, 0xF3: 1, 0xF4: 0, 0xF5: 0, 0xF6: 0,
}

// decodeTrack walks one MTrk body, maintaining running status and open-note
// bookkeeping, and builds the track summary in the same pass.
func decodeTrack(data []byte, start, end, index int) (Track, error) {
	track := Track{Index: index, MinNote: -1, MaxNote: -1, Program: -1}

	var (
		absolute      int
		runningStatus byte
		channelsUsed  [16]bool
		// FIFO of open NoteOn indices per (channel, note); NoteOff always
		// closes the earliest still-open NoteOn for its pitch.
		open = map[int][]int{}
	)

	pos := start
	for pos < end {
		delta, next, err := readVLQ(data[:end], pos)
		if err != nil {
			return track, err
		}
		pos = next
		absolute += delta

		if pos >= end {
			return track, decodeErrf(pos, "track %d: event truncated after delta-time", index)
		}
		status := data[pos]
		if status < 0x80 {
			// Running status: reuse the previous status byte, do not consume.
			if runningStatus == 0 {
				return track, decodeErrf(pos, "track %d: data byte 0x%02X without a preceding status", index, status)
			}
			status = runningStatus
		} else {
			pos++
		}

		switch {
		case status < 0xF0:
			runningStatus = status
			ev, n, err := decodeVoiceEvent(data, pos, end, status, index)
			if err != nil {
				return track, err
			}
			pos += n
			ev.AbsoluteTime = absolute
			ev.Delta = delta

			channelsUsed[ev.Channel] = true
			switch ev.Kind {
			case KindNoteOn:
				if track.MinNote < 0 || int(ev.Note) < track.MinNote {
					track.MinNote = int(ev.Note)
				}
				if int(ev.Note) > track.MaxNote {
					track.MaxNote = int(ev.Note)
				}
				key := int(ev.Channel)<<8 | int(ev.Note)
				open[key] = append(open[key], len(track.Events))
			case KindNoteOff:
				key := int(ev.Channel)<<8 | int(ev.Note)
				if queue := open[key]; len(queue) > 0 {
					onIdx := queue[0]
					open[key] = queue[1:]
					track.Events[onIdx].Duration = absolute - track.Events[onIdx].AbsoluteTime
				}
			case KindProgramChange:
				if track.Program < 0 {
					track.Program = int(ev.Program)
				}
			}
			track.Events = append(track.Events, ev)

		case status == 0xFF:
			// Meta events cancel running status.
			runningStatus = 0
			if pos >= end {
				return track, decodeErrf(pos, "track %d: truncated meta event", index)
			}
			metaType := data[pos]
			pos++
			length, next, err := readVLQ(data[:end], pos)
			if err != nil {
				return track, err
			}
			pos = next
			if pos+length > end {
				return track, decodeErrf(pos, "track %d: meta payload overruns chunk", index)
			}
			payload := make([]byte, length)
			copy(payload, data[pos:pos+length])
			pos += length

			if metaType == MetaEndOfTrack {
				// Chunk terminator, not stream content. Anything after it
				// inside the declared length is ignored.
				pos = end
				break
			}
			if metaType == MetaTrackName && track.Name == "" {
				track.Name = strings.TrimRight(string(payload), "\x00")
			}
			track.Events = append(track.Events, Event{
				Kind:         KindMeta,
				AbsoluteTime: absolute,
				Delta:        delta,
				MetaType:     metaType,
				MetaData:     payload,
			})

		case status == 0xF0 || status == 0xF7:
			// Sysex: length-prefixed, skipped, but preserved in the count so
			// callers can observe the drop downstream.
			runningStatus = 0
			length, next, err := readVLQ(data[:end], pos)
			if err != nil {
				return track, err
			}
			pos = next
			if pos+length > end {
				return track, decodeErrf(pos, "track %d: sysex payload overruns chunk", index)
			}
			pos += length
			track.Events = append(track.Events, Event{Kind: KindUnsupported, AbsoluteTime: absolute, Delta: delta})

		default:
			n, ok := systemCommonLen[status]
			if !ok {
				// Real-time bytes (F8..FE) carry no data.
				n = 0
			}
			if pos+n > end {
				return track, decodeErrf(pos, "track %d: truncated system message 0x%02X", index, status)
			}
			pos += n
			track.Events = append(track.Events, Event{Kind: KindUnsupported, AbsoluteTime: absolute, Delta: delta})
		}
	}

	for ch, used := range channelsUsed {
		if used {
			track.Channels = append(track.Channels, uint8(ch))
		}
	}
	track.IsDrum = detectDrumTrack(&track, channelsUsed)

	sortByTime(track.Events)
	recomputeDeltas(track.Events)
	return track, nil
}

// decodeVoiceEvent reads the data bytes of one channel-voice event and
// returns the event plus the number of bytes consumed.
func decodeVoiceEvent(data []byte, pos, end int, status byte, trackIndex int) (Event, int, error) {
	kindHi := status & 0xF0
	channel := status & 0x0F

	need := 2
	if kindHi == 0xC0 || kindHi == 0xD0 {
		need = 1
	}
	if pos+need > end {
		return Event{}, 0, decodeErrf(pos, "track %d: truncated event 0x%02X", trackIndex, status)
	}
	d1 := data[pos] & 0x7F
	var d2 byte
	if need == 2 {
		d2 = data[pos+1] & 0x7F
	}

	ev := Event{Channel: channel}
	switch kindHi {
	case 0x80:
		ev.Kind = KindNoteOff
		ev.Note, ev.Velocity = d1, d2
	case 0x90:
		if d2 == 0 {
			// NoteOn with velocity 0 is a NoteOff by convention; normalize
			// here so every later stage sees one representation.
			ev.Kind = KindNoteOff
		} else {
			ev.Kind = KindNoteOn
		}
		ev.Note, ev.Velocity = d1, d2
	case 0xA0:
		ev.Kind = KindAftertouch
		ev.Note, ev.Value = d1, d2
	case 0xB0:
		ev.Kind = KindControlChange
		ev.Controller, ev.Value = d1, d2
	case 0xC0:
		ev.Kind = KindProgramChange
		ev.Program = d1
	case 0xD0:
		ev.Kind = KindChannelAftertouch
		ev.Value = d1
	case 0xE0:
		ev.Kind = KindPitchBend
		ev.Bend = int(d1) | int(d2)<<7
	}
	return ev, need, nil
}

// GM percussive family, zero-based program numbers 112..119.
func isPercussiveProgram(program int) bool {
	return program >= 112 && program <= 119
}

func detectDrumTrack(track *Track, channelsUsed [16]bool) bool {
	if channelsUsed[9] {
		return true
	}
	if isPercussiveProgram(track.Program) {
		return true
	}
	name := strings.ToLower(track.Name)
	return strings.Contains(name, "drum") || strings.Contains(name, "perc")
}
