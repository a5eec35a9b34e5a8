package logix

import "encoding/binary"

// EncodeString packs a Go string into the wire form component E's string
// operations send: a 2-byte little-endian length followed by the UTF-8
// bytes, with a single zero pad byte appended when that byte count is odd
// so the payload always lands on a word boundary.
func EncodeString(s string) []byte {
	raw := []byte(s)
	data := make([]byte, 2, 2+len(raw)+1)
	binary.LittleEndian.PutUint16(data, uint16(len(raw)))
	data = append(data, raw...)
	if len(raw)%2 != 0 {
		data = append(data, 0)
	}
	return data
}

// DecodeString unpacks the wire form EncodeString produces. A declared
// length longer than the remaining payload is clamped; a payload under two
// bytes decodes as the empty string.
func DecodeString(data []byte) string {
	if len(data) < 2 {
		return ""
	}
	n := int(binary.LittleEndian.Uint16(data[:2]))
	rest := data[2:]
	if n > len(rest) {
		n = len(rest)
	}
	return string(rest[:n])
}
