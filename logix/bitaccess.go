package logix

import (
	"context"
	"fmt"
	"strings"
)

// hostElementAddress resolves the concrete tag address for the host element
// at elementOffset past whatever array start index hostBase already names
// (0 if it names none).
func hostElementAddress(hostBase string, elementOffset int) string {
	trueBase, startIdx := parseArrayStart(hostBase)
	idx := startIdx + elementOffset
	if idx == 0 && !strings.Contains(hostBase, "[") {
		return hostBase
	}
	return normalizeArrayName(trueBase, idx)
}

// readBoolBitsFrom implements §4.F step 5: read the host element run spanning
// the requested bits and unpack them LSB-first.
func (c *Client) readBoolBitsFrom(sel BitSelector, count int) ([]bool, error) {
	return c.readBoolBitsFromContext(context.Background(), sel, count)
}

// readBoolBitsFromContext is the cooperative-suspension form of readBoolBitsFrom.
func (c *Client) readBoolBitsFromContext(ctx context.Context, sel BitSelector, count int) ([]bool, error) {
	addr0 := hostElementAddress(sel.HostAddress, 0)
	tag0, err := c.plc.ReadTagContext(ctx, addr0)
	if err != nil {
		return nil, fmt.Errorf("ReadBoolArray: %w", err)
	}

	bitWidth := BitWidth(tag0.DataType)
	elementOffset := sel.BitIndex / bitWidth
	intraBit := sel.BitIndex % bitWidth
	numElems := (intraBit + count + bitWidth - 1) / bitWidth

	raw := tag0.Bytes
	if elementOffset != 0 || numElems > 1 {
		addr := hostElementAddress(sel.HostAddress, elementOffset)
		runTag, err := c.plc.ReadTagCountContext(ctx, addr, uint16(numElems))
		if err != nil {
			return nil, fmt.Errorf("ReadBoolArray: %w", err)
		}
		raw = runTag.Bytes
	}

	return unpackBits(raw, intraBit, count), nil
}

// unpackBits reads count bits starting at bit offset intraBit from raw,
// LSB-first within each byte, per §4.F step 5.
func unpackBits(raw []byte, intraBit, count int) []bool {
	bits := make([]bool, count)
	for i := 0; i < count; i++ {
		bitPos := intraBit + i
		byteIdx := bitPos / 8
		if byteIdx >= len(raw) {
			break
		}
		bits[i] = (raw[byteIdx]>>(bitPos%8))&1 != 0
	}
	return bits
}

// setBitInPlace toggles bit intraBit of raw (LSB-first within each byte) to
// value, touching no other bit. Reports false if intraBit is out of range.
func setBitInPlace(raw []byte, intraBit int, value bool) bool {
	byteIdx := intraBit / 8
	if byteIdx >= len(raw) {
		return false
	}
	bitInByte := uint(intraBit % 8)
	if value {
		raw[byteIdx] |= 1 << bitInByte
	} else {
		raw[byteIdx] &^= 1 << bitInByte
	}
	return true
}

// writeBit implements §4.F step 6: read-modify-write a single bit, touching
// no other bit of the host element and no other host element.
func (c *Client) writeBit(sel BitSelector, value bool) error {
	return c.writeBitContext(context.Background(), sel, value)
}

// writeBitContext is the cooperative-suspension form of writeBit.
func (c *Client) writeBitContext(ctx context.Context, sel BitSelector, value bool) error {
	addr0 := hostElementAddress(sel.HostAddress, 0)
	hostTag, err := c.plc.ReadTagContext(ctx, addr0)
	if err != nil {
		return fmt.Errorf("WriteBool: %w", err)
	}

	bitWidth := BitWidth(hostTag.DataType)
	elementOffset := sel.BitIndex / bitWidth
	intraBit := sel.BitIndex % bitWidth

	addr := addr0
	if elementOffset != 0 {
		addr = hostElementAddress(sel.HostAddress, elementOffset)
		hostTag, err = c.plc.ReadTagContext(ctx, addr)
		if err != nil {
			return fmt.Errorf("WriteBool: %w", err)
		}
	}

	raw := append([]byte(nil), hostTag.Bytes...)
	if !setBitInPlace(raw, intraBit, value) {
		return fmt.Errorf("WriteBool: bit %d out of range for %d-byte host element", sel.BitIndex, len(raw))
	}

	if hostTag.DataType&0x0FFF == TypeBOOL && len(raw)%2 != 0 {
		raw = append(raw, 0)
	}

	if err := c.plc.WriteTagContext(ctx, addr, hostTag.DataType, raw); err != nil {
		return fmt.Errorf("WriteBool: %w", err)
	}
	return nil
}
