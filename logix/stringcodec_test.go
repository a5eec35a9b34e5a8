package logix

import (
	"bytes"
	"testing"
)

func TestEncodeString(t *testing.T) {
	tests := []struct {
		in   string
		want []byte
	}{
		{"hi", []byte{0x02, 0x00, 0x68, 0x69}},
		{"abc", []byte{0x03, 0x00, 0x61, 0x62, 0x63, 0x00}},
		{"", []byte{0x00, 0x00}},
	}
	for _, tt := range tests {
		got := EncodeString(tt.in)
		if !bytes.Equal(got, tt.want) {
			t.Errorf("EncodeString(%q) = %X, want %X", tt.in, got, tt.want)
		}
	}
}

func TestDecodeString(t *testing.T) {
	tests := []struct {
		in   []byte
		want string
	}{
		{[]byte{0x02, 0x00, 0x68, 0x69}, "hi"},
		{[]byte{0x03, 0x00, 0x61, 0x62, 0x63, 0x00}, "abc"},
		{[]byte{0xFF, 0xFF, 0x68, 0x69}, "hi"}, // declared length exceeds payload, clamp
		{[]byte{0x01}, ""},                     // under two bytes
		{nil, ""},
	}
	for _, tt := range tests {
		got := DecodeString(tt.in)
		if got != tt.want {
			t.Errorf("DecodeString(%X) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStringRoundTrip(t *testing.T) {
	for _, s := range []string{"hi", "abc", "", "odd length payload"} {
		if got := DecodeString(EncodeString(s)); got != s {
			t.Errorf("round trip %q -> %q", s, got)
		}
	}
}
