package smf

import (
	"bytes"
	"testing"
)

func TestVLQRoundTrip(t *testing.T) {
	cases := []struct {
		value int
		bytes []byte
	}{
		{0x00, []byte{0x00}},
		{0x40, []byte{0x40}},
		{0x7F, []byte{0x7F}},
		{0x80, []byte{0x81, 0x00}},
		{0x2000, []byte{0xC0, 0x00}},
		{0x3FFF, []byte{0xFF, 0x7F}},
		{0x4000, []byte{0x81, 0x80, 0x00}},
		{0x1FFFFF, []byte{0xFF, 0xFF, 0x7F}},
		{0x0FFFFFFF, []byte{0xFF, 0xFF, 0xFF, 0x7F}},
	}
	for _, c := range cases {
		got := appendVLQ(nil, c.value)
		if !bytes.Equal(got, c.bytes) {
			t.Errorf("appendVLQ(%#x) = % X, want % X", c.value, got, c.bytes)
		}
		value, next, err := readVLQ(c.bytes, 0)
		if err != nil {
			t.Errorf("readVLQ(% X): %v", c.bytes, err)
			continue
		}
		if value != c.value || next != len(c.bytes) {
			t.Errorf("readVLQ(% X) = %#x (next %d), want %#x (next %d)",
				c.bytes, value, next, c.value, len(c.bytes))
		}
	}
}

func TestReadVLQTruncated(t *testing.T) {
	if _, _, err := readVLQ([]byte{0x81}, 0); err == nil {
		t.Fatal("expected error for dangling continuation byte")
	}
	if _, _, err := readVLQ(nil, 0); err == nil {
		t.Fatal("expected error for empty input")
	}
}

func TestReadVLQTooLong(t *testing.T) {
	data := []byte{0xFF, 0xFF, 0xFF, 0xFF, 0x7F}
	if _, _, err := readVLQ(data, 0); err == nil {
		t.Fatal("expected error for 5-byte quantity")
	}
}

func TestAppendVLQNegativeClamped(t *testing.T) {
	if got := appendVLQ(nil, -5); !bytes.Equal(got, []byte{0x00}) {
		t.Fatalf("appendVLQ(-5) = % X, want 00", got)
	}
}

func TestAppendVLQOverflowClamped(t *testing.T) {
	max := []byte{0xFF, 0xFF, 0xFF, 0x7F}
	for _, v := range []int{maxVLQValue + 1, 0x1FFFFFFE, 1 << 40} {
		if got := appendVLQ(nil, v); !bytes.Equal(got, max) {
			t.Errorf("appendVLQ(%#x) = % X, want % X", v, got, max)
		}
	}
}
