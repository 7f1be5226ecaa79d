package smf

import "fmt"

// DecodeError reports a malformed SMF input: missing/short header, a chunk
// length overrunning the buffer, or an event stream that cannot be parsed.
// It is fatal to the whole file; no partial ParsedFile accompanies it.
type DecodeError struct {
	Offset int // byte offset where decoding failed, -1 when not applicable
	Msg    string
}

func (e *DecodeError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("smf decode error at byte %d: %s", e.Offset, e.Msg)
	}
	return "smf decode error: " + e.Msg
}

func decodeErrf(offset int, format string, args ...interface{}) *DecodeError {
	return &DecodeError{Offset: offset, Msg: fmt.Sprintf(format, args...)}
}

// ConfigError reports structurally invalid user configuration (zero or
// negative clip settings, out-of-range track indices). It is raised before
// any transform runs.
type ConfigError struct {
	Field string
	Msg   string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Msg)
}
