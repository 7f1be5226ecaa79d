package smf

// Variable-length quantity codec shared by the decoder and encoder: 7 bits
// per byte, most significant group first, continuation bit set on every
// byte but the last.

const (
	maxVLQBytes = 4          // MIDI caps delta-times at 28 bits
	maxVLQValue = 0x0FFFFFFF // largest value 4 groups can carry
)

// readVLQ decodes one variable-length quantity starting at data[pos].
// It returns the value and the offset of the first byte after it.
func readVLQ(data []byte, pos int) (int, int, error) {
	value := 0
	for i := 0; ; i++ {
		if pos >= len(data) {
			return 0, pos, decodeErrf(pos, "truncated variable-length quantity")
		}
		if i >= maxVLQBytes {
			return 0, pos, decodeErrf(pos, "variable-length quantity longer than %d bytes", maxVLQBytes)
		}
		b := data[pos]
		pos++
		value = value<<7 | int(b&0x7F)
		if b&0x80 == 0 {
			return value, pos, nil
		}
	}
}

// appendVLQ appends the VLQ encoding of v to dst. Out-of-range values are
// clamped to the representable range: negatives to zero, values past 28
// bits to maxVLQValue. Re-based streams stay in range, but the encoder
// should not emit garbage if handed one that does not.
func appendVLQ(dst []byte, v int) []byte {
	if v <= 0 {
		return append(dst, 0)
	}
	if v > maxVLQValue {
		v = maxVLQValue
	}
	var groups [maxVLQBytes]byte
	n := 0
	for v > 0 {
		groups[n] = byte(v & 0x7F)
		v >>= 7
		n++
	}
	for i := n - 1; i > 0; i-- {
		dst = append(dst, groups[i]|0x80)
	}
	return append(dst, groups[0])
}
