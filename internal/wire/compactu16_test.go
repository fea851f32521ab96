package wire

import "testing"

func TestCompactU16_RoundTrip(t *testing.T) {
	cases := []int{0, 1, 15, 127, 128, 200, 16383, 16384, 70000}
	for _, n := range cases {
		enc, err := encodeCompactU16(n)
		if err != nil {
			t.Fatalf("encode(%d): %v", n, err)
		}
		got, consumed, err := decodeCompactU16(enc)
		if err != nil {
			t.Fatalf("decode(%v): %v", enc, err)
		}
		if got != n {
			t.Errorf("round trip %d: got %d", n, got)
		}
		if consumed != len(enc) {
			t.Errorf("round trip %d: consumed %d, want %d", n, consumed, len(enc))
		}
	}
}

func TestCompactU16_SingleByteForSmallValues(t *testing.T) {
	enc, err := encodeCompactU16(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(enc) != 1 || enc[0] != 10 {
		t.Errorf("expected single byte 10, got %v", enc)
	}
}

func TestCompactU16_RejectsNegative(t *testing.T) {
	if _, err := encodeCompactU16(-1); err == nil {
		t.Error("expected error for negative length")
	}
}

func TestCompactU16_TruncatedBufferErrors(t *testing.T) {
	if _, _, err := decodeCompactU16([]byte{0x80}); err == nil {
		t.Error("expected truncation error")
	}
}
