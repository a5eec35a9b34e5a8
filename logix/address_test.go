package logix

import "testing"

func TestParseBit(t *testing.T) {
	tests := []struct {
		input    string
		wantBase string
		wantN    int
		wantOk   bool
	}{
		{"MyWord[7]", "MyWord", 7, true},
		{"Arr[0]", "Arr", 0, true},
		{"Tag[5][2]", "Tag[5]", 2, true},
		{"Plain", "Plain", 0, false},
		{"Bad[abc]", "Bad[abc]", 0, false},
		{"Neg[-1]", "Neg[-1]", 0, false},
		{"Empty[]", "Empty[]", 0, false},
	}
	for _, tt := range tests {
		base, n, ok := parseBit(tt.input)
		if ok != tt.wantOk {
			t.Errorf("parseBit(%q) ok = %v, want %v", tt.input, ok, tt.wantOk)
			continue
		}
		if ok && (base != tt.wantBase || n != tt.wantN) {
			t.Errorf("parseBit(%q) = (%q, %d), want (%q, %d)", tt.input, base, n, tt.wantBase, tt.wantN)
		}
	}
}

func TestParseArrayStart(t *testing.T) {
	tests := []struct {
		input     string
		wantBase  string
		wantStart int
	}{
		{"Arr[10]", "Arr", 10},
		{"Plain", "Plain", 0},
		{"Arr[3].Sub", "Arr", 3},
		{"Bad[x]", "Bad[x]", 0},
	}
	for _, tt := range tests {
		base, start := parseArrayStart(tt.input)
		if base != tt.wantBase || start != tt.wantStart {
			t.Errorf("parseArrayStart(%q) = (%q, %d), want (%q, %d)", tt.input, base, start, tt.wantBase, tt.wantStart)
		}
	}
}

func TestParseBitAccess(t *testing.T) {
	tests := []struct {
		input    string
		wantHost string
		wantBit  int
		wantOk   bool
	}{
		{"i=MyWord[0]", "MyWord", 0, true},
		{"i=MyWord.15", "MyWord", 15, true},
		{"MyWord[0]", "", 0, false},
		{"i=NoBitSelector", "", 0, false},
		{"i=Bad[-1]", "", 0, false},
	}
	for _, tt := range tests {
		sel, ok := parseBitAccess(tt.input)
		if ok != tt.wantOk {
			t.Errorf("parseBitAccess(%q) ok = %v, want %v", tt.input, ok, tt.wantOk)
			continue
		}
		if ok && (sel.HostAddress != tt.wantHost || sel.BitIndex != tt.wantBit) {
			t.Errorf("parseBitAccess(%q) = (%q, %d), want (%q, %d)", tt.input, sel.HostAddress, sel.BitIndex, tt.wantHost, tt.wantBit)
		}
	}
}

func TestNormalizeArrayName(t *testing.T) {
	tests := []struct {
		base  string
		start int
		want  string
	}{
		{"Arr", 0, "Arr[0]"},
		{"Arr", 5, "Arr[5]"},
		{"Arr[2]", 9, "Arr[2]"}, // already indexed, unchanged
	}
	for _, tt := range tests {
		got := normalizeArrayName(tt.base, tt.start)
		if got != tt.want {
			t.Errorf("normalizeArrayName(%q, %d) = %q, want %q", tt.base, tt.start, got, tt.want)
		}
	}
}

// Property law §8.7: parsing an address with parseArrayStart, reserializing it
// with normalizeArrayName, and reparsing yields the same (base, start index)
// pair. The bit selector is not part of this check.
func TestAddressParserIdempotence(t *testing.T) {
	inputs := []string{"Tag[3]", "Plain", "i=Word[2]", "i=Word.9"}
	for _, in := range inputs {
		base, start := parseArrayStart(in)
		reserialized := normalizeArrayName(base, start)
		base2, start2 := parseArrayStart(reserialized)
		if base2 != base || start2 != start {
			t.Errorf("idempotence failed for %q: first=(%q,%d) second=(%q,%d)", in, base, start, base2, start2)
		}
	}
}
