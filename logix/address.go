package logix

import (
	"regexp"
	"strconv"
	"strings"
)

// TagAddress is the parsed form of a caller-supplied tag address string:
// `tag.sub[idx].bit`. Segments are ordered name/indices pairs split on '.';
// BitAccess is set only when the raw input carried the `i=` prefix and the
// tail named a bit selector.
type TagAddress struct {
	Raw       string
	Segments  []AddressSegment
	BitAccess *BitSelector
}

// AddressSegment is one dotted name with its bracketed indices, in order.
type AddressSegment struct {
	Name    string
	Indices []int
}

// BitSelector is the `i=` host tag plus the bit index within it.
type BitSelector struct {
	HostAddress string
	BitIndex    int
}

var trailingBracket = regexp.MustCompile(`^(.*)\[(-?\d+)\]$`)
var firstBracket = regexp.MustCompile(`^([^\[\]]*)\[(-?\d+)\]`)
var trailingDotInt = regexp.MustCompile(`^(.*)\.(-?\d+)$`)

// parseBit returns (base, bitIndex, true) when address ends with `[N]` and
// N is a non-negative integer, i.e. the brackets were actually present.
// Malformed bracket content, negative numbers, and anything else that fails
// to match report "no match" rather than an error.
func parseBit(address string) (string, int, bool) {
	m := trailingBracket.FindStringSubmatch(address)
	if m == nil {
		return address, 0, false
	}
	base, numStr := m[1], m[2]
	n, err := strconv.Atoi(numStr)
	if err != nil || n < 0 || base == address {
		return address, 0, false
	}
	return base, n, true
}

// parseArrayStart extracts the first `[N]` in address. If none is present,
// it returns (address, 0) unchanged.
func parseArrayStart(address string) (string, int) {
	m := firstBracket.FindStringSubmatch(address)
	if m == nil {
		return address, 0
	}
	n, err := strconv.Atoi(m[2])
	if err != nil || n < 0 {
		return address, 0
	}
	return m[1], n
}

// parseBitAccess succeeds iff address begins with "i=". The remainder is
// parsed for a trailing bit selector in either bracket form (NAME[N]) or dot
// form (NAME.N).
func parseBitAccess(address string) (BitSelector, bool) {
	if !strings.HasPrefix(address, "i=") {
		return BitSelector{}, false
	}
	rest := address[2:]

	if base, n, ok := parseBit(rest); ok {
		return BitSelector{HostAddress: base, BitIndex: n}, true
	}

	if m := trailingDotInt.FindStringSubmatch(rest); m != nil {
		n, err := strconv.Atoi(m[2])
		if err == nil && n >= 0 {
			return BitSelector{HostAddress: m[1], BitIndex: n}, true
		}
	}

	return BitSelector{}, false
}

// normalizeArrayName appends "[start]" to base unless base already names an
// index.
func normalizeArrayName(base string, start int) string {
	if strings.Contains(base, "[") {
		return base
	}
	return base + "[" + strconv.Itoa(start) + "]"
}

// parseAddress splits a dotted tag address into ordered segments. When the
// address is an `i=` bit-access form, BitAccess is filled in and the segments
// describe the host address only.
func parseAddress(address string) TagAddress {
	addr := address
	var sel *BitSelector
	if s, ok := parseBitAccess(addr); ok {
		sel = &s
		addr = s.HostAddress
	}

	parts := strings.Split(addr, ".")
	segs := make([]AddressSegment, 0, len(parts))
	for _, p := range parts {
		name := p
		var indices []int
		for {
			base, n, ok := parseBit(name)
			if !ok {
				break
			}
			indices = append([]int{n}, indices...)
			name = base
		}
		segs = append(segs, AddressSegment{Name: name, Indices: indices})
	}

	return TagAddress{Raw: address, Segments: segs, BitAccess: sel}
}
