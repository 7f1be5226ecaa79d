package smf

import "fmt"

// ClipSettings sizes clips to a hardware sequencer's step memory. The tick
// math assumes a 4/4 meter; time-signature metas are deliberately ignored.
type ClipSettings struct {
	StepsPerBar     int `json:"stepsPerBar"`
	MaxStepsPerClip int `json:"maxStepsPerClip"`
	PPQ             int `json:"ppq"`
}

const (
	DefaultStepsPerBar     = 16
	DefaultMaxStepsPerClip = 128
)

// DefaultClipSettings returns the stock 16-steps-per-bar, 128-step-limit
// settings at the given time base.
func DefaultClipSettings(ppq int) ClipSettings {
	return ClipSettings{StepsPerBar: DefaultStepsPerBar, MaxStepsPerClip: DefaultMaxStepsPerClip, PPQ: ppq}
}

// Validate rejects structurally impossible settings before any transform.
func (s ClipSettings) Validate() error {
	if s.StepsPerBar <= 0 {
		return &ConfigError{Field: "stepsPerBar", Msg: fmt.Sprintf("must be positive, got %d", s.StepsPerBar)}
	}
	if s.MaxStepsPerClip <= 0 {
		return &ConfigError{Field: "maxStepsPerClip", Msg: fmt.Sprintf("must be positive, got %d", s.MaxStepsPerClip)}
	}
	if s.PPQ <= 0 {
		return &ConfigError{Field: "ppq", Msg: fmt.Sprintf("must be positive, got %d", s.PPQ)}
	}
	if s.TicksPerStep() == 0 {
		return &ConfigError{Field: "stepsPerBar", Msg: fmt.Sprintf("%d steps per bar leaves no whole tick per step at ppq %d", s.StepsPerBar, s.PPQ)}
	}
	return nil
}

// TicksPerStep derives the step width in ticks (4/4 assumed).
func (s ClipSettings) TicksPerStep() int {
	return s.PPQ * 4 / s.StepsPerBar
}

// MaxTicksPerClip derives the clip window width in ticks.
func (s ClipSettings) MaxTicksPerClip() int {
	return s.MaxStepsPerClip * s.TicksPerStep()
}

// Clip is one bounded event stream re-based to start at tick 0, tagged with
// its bus and the step range it covers in the original timeline. SplitIndex
// is -1 when the bus fit in a single clip.
type Clip struct {
	Bus        string  `json:"bus"`
	SplitIndex int     `json:"splitIndex"`
	StartStep  int     `json:"startStep"`
	EndStep    int     `json:"endStep"`
	Events     []Event `json:"-"`
}

// noteSpan is the full lifecycle of one sounding note: a NoteOn matched to
// its chronologically next NoteOff for the same (channel, note), FIFO when
// several are open at once. offTick is -1 for notes that never close.
type noteSpan struct {
	channel  uint8
	note     uint8
	velocity uint8
	onTick   int
	offTick  int
}

// noteSpans computes every lifecycle in one pass over a time-sorted stream.
// The same matching policy feeds boundary repair and duration helpers, so
// the two can never disagree about which NoteOff belongs to which NoteOn.
func noteSpans(events []Event) []noteSpan {
	var spans []noteSpan
	open := map[int][]int{} // (channel,note) -> FIFO of span indices
	for _, ev := range events {
		key := int(ev.Channel)<<8 | int(ev.Note)
		switch ev.Kind {
		case KindNoteOn:
			open[key] = append(open[key], len(spans))
			spans = append(spans, noteSpan{
				channel:  ev.Channel,
				note:     ev.Note,
				velocity: ev.Velocity,
				onTick:   ev.AbsoluteTime,
				offTick:  -1,
			})
		case KindNoteOff:
			if queue := open[key]; len(queue) > 0 {
				spans[queue[0]].offTick = ev.AbsoluteTime
				open[key] = queue[1:]
			}
		}
	}
	return spans
}

// Split partitions one merged stream into clips no wider than the settings'
// step limit. Notes sounding across a window boundary are repaired: the
// clip before the boundary gets a synthesized NoteOff one tick before its
// end, the clip after it gets a synthesized NoteOn at tick 0 carrying the
// original velocity. A note spanning several whole windows is repaired in
// every intermediate clip it passes through.
//
// An empty stream yields no clips; callers treat that as "nothing to
// export", not an error.
func Split(events []Event, settings ClipSettings, bus string) ([]Clip, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, nil
	}

	ticksPerStep := settings.TicksPerStep()
	maxTicks := settings.MaxTicksPerClip()
	totalTicks := events[len(events)-1].AbsoluteTime
	totalSteps := ceilDiv(totalTicks, ticksPerStep)
	if totalSteps == 0 {
		// A stream sitting entirely at tick 0 still occupies the first step.
		totalSteps = 1
	}

	if totalTicks <= maxTicks {
		clip := Clip{
			Bus:        bus,
			SplitIndex: -1,
			StartStep:  0,
			EndStep:    totalSteps,
			Events:     append([]Event(nil), events...),
		}
		recomputeDeltas(clip.Events)
		return []Clip{clip}, nil
	}

	// Lifecycles are computed once, before windowing, so repair in every
	// window agrees on the same FIFO pairing.
	spans := noteSpans(events)

	numWindows := ceilDiv(totalTicks, maxTicks)
	clips := make([]Clip, 0, numWindows)
	for w := 0; w < numWindows; w++ {
		start := w * maxTicks
		end := start + maxTicks
		last := w == numWindows-1

		var out []Event

		// Synthesized NoteOns come first so they precede anything real at
		// the window's opening tick.
		for _, span := range spans {
			if span.onTick < start && soundsAt(span, start) {
				out = append(out, Event{
					Kind:     KindNoteOn,
					Channel:  span.channel,
					Note:     span.note,
					Velocity: span.velocity,
				})
			}
		}

		for _, ev := range events {
			// The final window's end tick is inclusive so closing NoteOffs
			// landing exactly on it are not orphaned.
			if ev.AbsoluteTime < start || ev.AbsoluteTime > end || (ev.AbsoluteTime == end && !last) {
				continue
			}
			rebased := ev
			rebased.AbsoluteTime -= start
			out = append(out, rebased)
		}

		if !last {
			for _, span := range spans {
				if span.onTick < end && soundsAt(span, end) {
					out = append(out, Event{
						Kind:         KindNoteOff,
						AbsoluteTime: maxTicks - 1,
						Channel:      span.channel,
						Note:         span.note,
					})
				}
			}
		}

		sortByTime(out)
		recomputeDeltas(out)

		clips = append(clips, Clip{
			Bus:        bus,
			SplitIndex: w,
			StartStep:  w * settings.MaxStepsPerClip,
			EndStep:    minInt(totalSteps, (w+1)*settings.MaxStepsPerClip),
			Events:     out,
		})
	}
	return clips, nil
}

// soundsAt reports whether a span is still sounding at the given tick,
// i.e. it started before it and its NoteOff lands at or after it. Spans
// that never close sound forever.
func soundsAt(span noteSpan, tick int) bool {
	return span.offTick < 0 || span.offTick >= tick
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
