package smf

import "fmt"

// Bus identifiers for the four logical outputs a file can be mapped onto.
var BusIDs = []string{"A", "B", "C", "D"}

// OutputMapping routes a set of source tracks onto one logical output bus.
type OutputMapping struct {
	Bus                string  `json:"bus"`
	Tracks             []int   `json:"tracks"`
	ChannelFilter      []uint8 `json:"channelFilter,omitempty"` // empty = all channels pass
	StripProgramChange bool    `json:"stripProgramChange"`
}

// Merge flattens the mapping's source tracks into one time-sorted event
// stream. Events are filtered, never mutated: channel-voice events outside
// a non-empty allow-list are dropped, ProgramChange events are dropped when
// the mapping says so, and Unsupported events are always dropped (they have
// no representation in the output format). An empty result is a valid
// "nothing to export for this bus", not an error.
func Merge(file *ParsedFile, mapping OutputMapping) ([]Event, error) {
	for _, idx := range mapping.Tracks {
		if idx < 0 || idx >= len(file.Tracks) {
			return nil, &ConfigError{
				Field: "tracks",
				Msg:   fmt.Sprintf("track index %d out of range for file with %d tracks", idx, len(file.Tracks)),
			}
		}
	}

	allowed := map[uint8]bool{}
	for _, ch := range mapping.ChannelFilter {
		allowed[ch] = true
	}

	var merged []Event
	for _, idx := range mapping.Tracks {
		for _, ev := range file.Tracks[idx].Events {
			if ev.Kind == KindUnsupported {
				continue
			}
			if ev.Kind == KindProgramChange && mapping.StripProgramChange {
				continue
			}
			if len(allowed) > 0 && ev.Kind.IsChannelVoice() && !allowed[ev.Channel] {
				continue
			}
			merged = append(merged, ev)
		}
	}

	sortByTime(merged)
	recomputeDeltas(merged)
	return merged, nil
}
