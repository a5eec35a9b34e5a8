package logix

import (
	"context"
	"errors"
	"fmt"

	"warlink/ciperr"
)

// readArrayMaxChunk is the §4.D ceiling for array reads of 4-byte elements.
const readArrayMaxChunk = 124

// writeArrayStartChunk is the §4.D starting chunk size for array writes of
// 4-byte elements; it halves (min 1) on an encapsulation "too long" error
// and the last successful size becomes a sticky ceiling for later chunks.
const writeArrayStartChunk = 490

// readChunkedArray reads count elements of a fixed-size type starting at
// whatever array index tagName already names (0 if none), issuing reads of
// at most readArrayMaxChunk elements and concatenating their raw bytes.
func (c *Client) readChunkedArray(tagName string, count int) ([]byte, error) {
	return c.readChunkedArrayContext(context.Background(), tagName, count)
}

// readChunkedArrayContext is the cooperative-suspension form of readChunkedArray.
func (c *Client) readChunkedArrayContext(ctx context.Context, tagName string, count int) ([]byte, error) {
	base, start := parseArrayStart(tagName)
	out := make([]byte, 0, count*4)
	offset := start
	remaining := count
	for remaining > 0 {
		chunkLen := remaining
		if chunkLen > readArrayMaxChunk {
			chunkLen = readArrayMaxChunk
		}
		addr := normalizeArrayName(base, offset)
		tag, err := c.plc.ReadTagCountContext(ctx, addr, uint16(chunkLen))
		if err != nil {
			return nil, fmt.Errorf("readChunkedArray: %w", err)
		}
		out = append(out, tag.Bytes...)
		offset += chunkLen
		remaining -= chunkLen
	}
	return out, nil
}

// writeChunkedArray writes elems (each elemSize bytes, already encoded) to
// tagName starting at whatever array index it already names, using the
// adaptive-shrink chunking policy of §4.D.
func (c *Client) writeChunkedArray(tagName string, typeCode uint16, elemSize int, elems [][]byte) error {
	return c.writeChunkedArrayContext(context.Background(), tagName, typeCode, elemSize, elems)
}

// writeChunkedArrayContext is the cooperative-suspension form of writeChunkedArray.
func (c *Client) writeChunkedArrayContext(ctx context.Context, tagName string, typeCode uint16, elemSize int, elems [][]byte) error {
	base, start := parseArrayStart(tagName)
	return planAdaptiveWrite(len(elems), writeArrayStartChunk, func(offset, chunkLen int) error {
		payload := make([]byte, 0, chunkLen*elemSize)
		for k := 0; k < chunkLen; k++ {
			payload = append(payload, elems[offset-start+k]...)
		}
		addr := normalizeArrayName(base, offset)
		return c.plc.WriteTagCountContext(ctx, addr, typeCode, payload, uint16(chunkLen))
	}, start)
}

// planAdaptiveWrite implements §4.D's adaptive-shrink write policy in terms
// of a caller-supplied send function, independent of any particular wire
// transport: it starts at startChunk elements, halves (min 1) on an
// EncapsulationError the codec flags as "too long", and carries the last
// successful chunk length forward as a sticky ceiling for later chunks.
func planAdaptiveWrite(total, startChunk int, send func(offset, chunkLen int) error, startOffset int) error {
	if total == 0 {
		return nil
	}
	ceiling := startChunk
	offset := startOffset
	sent := 0
	for sent < total {
		chunkLen := ceiling
		if chunkLen > total-sent {
			chunkLen = total - sent
		}
		for {
			err := send(offset, chunkLen)
			if err == nil {
				ceiling = chunkLen
				break
			}
			var ee *ciperr.EncapsulationError
			if errors.As(err, &ee) && ee.StaleOrOversize() && chunkLen > 1 {
				chunkLen /= 2
				if chunkLen < 1 {
					chunkLen = 1
				}
				continue
			}
			return fmt.Errorf("writeChunkedArray: %w", err)
		}
		offset += chunkLen
		sent += chunkLen
	}
	return nil
}
