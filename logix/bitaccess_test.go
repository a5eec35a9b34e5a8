package logix

import (
	"encoding/binary"
	"testing"
)

// Scenario §8.4: WriteBool("MyWord[7]", true) on MyWord=0x00000000 yields
// 0x00000080; repeating with bit=15 yields 0x00008080.
func TestSetBitInPlaceScenario4(t *testing.T) {
	raw := make([]byte, 4)
	if !setBitInPlace(raw, 7, true) {
		t.Fatal("setBitInPlace(7) reported out of range")
	}
	if got := binary.LittleEndian.Uint32(raw); got != 0x00000080 {
		t.Errorf("after bit 7: got 0x%08X, want 0x00000080", got)
	}
	if !setBitInPlace(raw, 15, true) {
		t.Fatal("setBitInPlace(15) reported out of range")
	}
	if got := binary.LittleEndian.Uint32(raw); got != 0x00008080 {
		t.Errorf("after bit 15: got 0x%08X, want 0x00008080", got)
	}
}

func TestSetBitInPlaceIsolation(t *testing.T) {
	raw := []byte{0xFF, 0xFF, 0xFF, 0xFF}
	setBitInPlace(raw, 10, false)
	want := []byte{0xFF, 0xFB, 0xFF, 0xFF}
	for i := range raw {
		if raw[i] != want[i] {
			t.Errorf("byte %d = 0x%02X, want 0x%02X", i, raw[i], want[i])
		}
	}
}

func TestSetBitInPlaceOutOfRange(t *testing.T) {
	raw := make([]byte, 2)
	if setBitInPlace(raw, 16, true) {
		t.Error("expected out-of-range bit to report false")
	}
}

// Scenario §8.5: ReadBoolArray("i=MyWord[0]", 16) against MyWord=0xA5A5A5A5
// returns the LSB-first bit pattern of the low two bytes.
func TestUnpackBitsScenario5(t *testing.T) {
	raw := make([]byte, 4)
	binary.LittleEndian.PutUint32(raw, 0xA5A5A5A5)
	got := unpackBits(raw, 0, 16)
	want := []bool{true, false, true, false, false, true, false, true,
		true, false, true, false, false, true, false, true}
	if len(got) != len(want) {
		t.Fatalf("got %d bits, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("bit %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestHostElementAddress(t *testing.T) {
	tests := []struct {
		host   string
		offset int
		want   string
	}{
		{"MyWord", 0, "MyWord"},
		{"MyWord", 2, "MyWord[2]"},
		{"Arr[5]", 0, "Arr[5]"},
		{"Arr[5]", 3, "Arr[8]"},
	}
	for _, tt := range tests {
		got := hostElementAddress(tt.host, tt.offset)
		if got != tt.want {
			t.Errorf("hostElementAddress(%q, %d) = %q, want %q", tt.host, tt.offset, got, tt.want)
		}
	}
}
