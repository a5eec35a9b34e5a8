package logix

import (
	"context"
	"encoding/binary"
	"fmt"
	"log"
	"math"
	"strings"

	"warlink/ciperr"
)

// Client is a high-level wrapper that manages connection lifecycle
// and provides simplified methods for common PLC operations.
type Client struct {
	plc    *PLC // Low-level access preserved
	logger Logger
}

// warn reports a warning (init/status issue) to the configured logger, if any.
func (c *Client) warn(format string, args ...interface{}) {
	if c != nil && c.logger != nil {
		c.logger.Warn(format, args...)
	}
}

// logErr reports an error (protocol failure) to the configured logger, if any.
func (c *Client) logErr(format string, args ...interface{}) {
	if c != nil && c.logger != nil {
		c.logger.Error(format, args...)
	}
}

// Logger is the §6 constructor option's narrow sink: warnings (init/status
// issues) and errors (protocol failures), called directly by the façade and
// never from inside the chunking loop's byte-level decode. It sits above,
// and is independent from, the always-on file-backed debug logger in the
// logging package.
type Logger interface {
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
}

// options holds configuration options for Connect.
type options struct {
	slot            byte
	routePath       []byte
	skipForwardOpen bool
	logger          Logger
}

// Option is a functional option for Connect.
type Option func(*options)

// WithSlot configures the CPU slot for ControlLogix systems.
// This sets up backplane routing to the specified slot.
func WithSlot(slot byte) Option {
	return func(o *options) {
		o.slot = slot
		o.routePath = nil // Slot routing overrides custom route path
	}
}

// WithRoutePath configures explicit routing for the PLC.
// Use this when connecting through a gateway or communication module.
func WithRoutePath(path []byte) Option {
	return func(o *options) {
		o.routePath = path
	}
}

// WithPathString configures routing from the §6 "path" string grammar:
// tokens separated by "," or ";", each a decimal integer or "0x"-prefixed
// hex byte; an empty or malformed string falls back to the default [1, 0].
func WithPathString(path string) Option {
	return func(o *options) {
		o.routePath = ParseRoutePath(path)
	}
}

// WithLogger installs the §6 "logger" constructor option: the façade calls
// Warn/Error on it directly for the warning/error cases §7 describes.
func WithLogger(l Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithoutConnection is the default behavior and is kept only for callers
// that set it explicitly; every connection already uses unconnected
// messaging unless WithForwardOpen is given.
func WithoutConnection() Option {
	return func(o *options) {
		o.skipForwardOpen = true
	}
}

// WithForwardOpen opts into establishing a CIP connection (Forward Open) for
// connected messaging instead of the default always-unconnected,
// always-routed-through-Unconnected-Send request path. This is advanced,
// device-specific enrichment outside the core protocol engine's default
// behavior; most callers should not need it.
func WithForwardOpen() Option {
	return func(o *options) {
		o.skipForwardOpen = false
	}
}

// Connect establishes a connection to a Logix PLC at the given address.
// Every request it issues is wrapped in an Unconnected Send to the
// Connection Manager and routed via RoutePath (default [1, 0]); Forward Open
// / connected messaging is not attempted unless WithForwardOpen is given.
func Connect(address string, opts ...Option) (*Client, error) {
	cfg := &options{skipForwardOpen: true}
	for _, opt := range opts {
		opt(cfg)
	}

	plc, err := NewPLC(address)
	if err != nil {
		return nil, fmt.Errorf("Connect: %w", err)
	}

	if cfg.routePath != nil {
		plc.SetRoutePath(cfg.routePath)
	} else if cfg.slot > 0 {
		plc.SetSlotRouting(cfg.slot)
	}

	c := &Client{plc: &plc, logger: cfg.logger}

	if !cfg.skipForwardOpen {
		if err := plc.OpenConnection(); err != nil {
			c.warn("Forward Open failed, using unconnected messaging: %v", err)
			log.Printf("Warning: Forward Open failed, using unconnected messaging: %v", err)
		}
	}

	return c, nil
}

// Close releases all resources associated with the client.
func (c *Client) Close() {
	if c == nil || c.plc == nil {
		return
	}
	c.plc.Close()
}

// PLC returns the underlying low-level PLC for advanced operations.
func (c *Client) PLC() *PLC {
	return c.plc
}

// IsConnected returns true if a CIP connection is established.
func (c *Client) IsConnected() bool {
	return c.plc != nil && c.plc.IsConnected()
}

// ConnectionInfo returns information about the current connection.
// Returns connected (CIP connection active), size (negotiated connection size in bytes).
// If not using connected messaging, size is 0.
func (c *Client) ConnectionInfo() (connected bool, size uint16) {
	if c == nil || c.plc == nil {
		return false, 0
	}
	return c.plc.IsConnected(), c.plc.connSize
}

// ConnectionMode returns a human-readable string describing the connection mode.
func (c *Client) ConnectionMode() string {
	if c == nil || c.plc == nil {
		return "Not connected"
	}
	if c.plc.IsConnected() {
		if c.plc.connSize == ConnectionSizeLarge {
			return "Connected (Large Forward Open, 4002 bytes)"
		}
		return "Connected (Standard Forward Open, 504 bytes)"
	}
	return "Unconnected messaging"
}

// Programs returns the list of program names in the PLC.
// Returns names like "MainProgram", "SafetyProgram", etc. (without "Program:" prefix).
func (c *Client) Programs() ([]string, error) {
	return c.ProgramsContext(context.Background())
}

// ProgramsContext is the cooperative-suspension form of Programs.
func (c *Client) ProgramsContext(ctx context.Context) ([]string, error) {
	if c == nil || c.plc == nil {
		return nil, fmt.Errorf("Programs: nil client")
	}

	fullNames, err := c.plc.ListProgramsContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("Programs: %w", err)
	}

	// Strip "Program:" prefix for cleaner API
	programs := make([]string, len(fullNames))
	for i, name := range fullNames {
		if len(name) > 8 && name[:8] == "Program:" {
			programs[i] = name[8:]
		} else {
			programs[i] = name
		}
	}

	return programs, nil
}

// ControllerTags returns all controller-scope tags (excluding program entries and system tags).
func (c *Client) ControllerTags() ([]TagInfo, error) {
	return c.ControllerTagsContext(context.Background())
}

// ControllerTagsContext is the cooperative-suspension form of ControllerTags.
func (c *Client) ControllerTagsContext(ctx context.Context) ([]TagInfo, error) {
	if c == nil || c.plc == nil {
		return nil, fmt.Errorf("ControllerTags: nil client")
	}

	allTags, err := c.plc.ListTagsContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("ControllerTags: %w", err)
	}

	// Filter to only readable data tags at controller scope
	var dataTags []TagInfo
	for _, t := range allTags {
		if t.IsReadable() {
			dataTags = append(dataTags, t)
		}
	}

	return dataTags, nil
}

// ProgramTags returns all tags within a specific program.
// programName can be just the name (e.g., "MainProgram") or full form ("Program:MainProgram").
func (c *Client) ProgramTags(program string) ([]TagInfo, error) {
	return c.ProgramTagsContext(context.Background(), program)
}

// ProgramTagsContext is the cooperative-suspension form of ProgramTags.
func (c *Client) ProgramTagsContext(ctx context.Context, program string) ([]TagInfo, error) {
	if c == nil || c.plc == nil {
		return nil, fmt.Errorf("ProgramTags: nil client")
	}

	tags, err := c.plc.ListProgramTagsContext(ctx, program)
	if err != nil {
		return nil, fmt.Errorf("ProgramTags: %w", err)
	}

	// Filter to only readable data tags
	var dataTags []TagInfo
	for _, t := range tags {
		if t.IsReadable() {
			dataTags = append(dataTags, t)
		}
	}

	return dataTags, nil
}

// AllTags returns all readable tags (controller-scope and program-scope).
// This excludes program entries, routines, and system tags.
func (c *Client) AllTags() ([]TagInfo, error) {
	return c.AllTagsContext(context.Background())
}

// AllTagsContext is the cooperative-suspension form of AllTags.
func (c *Client) AllTagsContext(ctx context.Context) ([]TagInfo, error) {
	if c == nil || c.plc == nil {
		return nil, fmt.Errorf("AllTags: nil client")
	}

	tags, err := c.plc.ListDataTagsContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("AllTags: %w", err)
	}

	return tags, nil
}

// Read reads one or more tags by name and returns their values.
// Each tag in the result includes its own error status (nil if successful).
// The method returns an error only for transport-level failures.
func (c *Client) Read(tagNames ...string) ([]*TagValue, error) {
	return c.ReadContext(context.Background(), tagNames...)
}

// ReadContext is the cooperative-suspension form of Read.
func (c *Client) ReadContext(ctx context.Context, tagNames ...string) ([]*TagValue, error) {
	if c == nil || c.plc == nil {
		return nil, fmt.Errorf("Read: nil client")
	}
	if len(tagNames) == 0 {
		return nil, nil
	}

	// Determine batch size based on connection mode
	batchSize := 5 // Conservative for unconnected messaging
	if c.plc.IsConnected() {
		batchSize = 50
	}

	results := make([]*TagValue, 0, len(tagNames))

	// Process in batches
	for i := 0; i < len(tagNames); i += batchSize {
		end := i + batchSize
		if end > len(tagNames) {
			end = len(tagNames)
		}
		batch := tagNames[i:end]

		tags, err := c.plc.ReadMultipleContext(ctx, batch)
		if err != nil {
			c.logErr("ReadMultiple failed for batch of %d tags: %v", len(batch), err)
			// Transport-level failure - mark all tags in batch as failed
			for _, name := range batch {
				results = append(results, &TagValue{
					Name:  name,
					Error: err,
				})
			}
			continue
		}

		// Convert results
		for j, tag := range tags {
			if tag == nil {
				results = append(results, &TagValue{
					Name:  batch[j],
					Error: fmt.Errorf("tag read failed"),
				})
			} else {
				results = append(results, &TagValue{
					Name:     tag.Name,
					DataType: tag.DataType,
					Bytes:    tag.Bytes,
					Error:    nil,
				})
			}
		}
	}

	return results, nil
}

// ReadAll discovers and reads all readable tags from the PLC.
// This is a convenience method that combines AllTags() and Read().
func (c *Client) ReadAll() ([]*TagValue, error) {
	return c.ReadAllContext(context.Background())
}

// ReadAllContext is the cooperative-suspension form of ReadAll.
func (c *Client) ReadAllContext(ctx context.Context) ([]*TagValue, error) {
	if c == nil || c.plc == nil {
		return nil, fmt.Errorf("ReadAll: nil client")
	}

	tags, err := c.AllTagsContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("ReadAll: %w", err)
	}

	tagNames := make([]string, len(tags))
	for i, t := range tags {
		tagNames[i] = t.Name
	}

	return c.ReadContext(ctx, tagNames...)
}

// Write writes a value to a tag. The value type is inferred and converted appropriately.
// Supported value types: bool, int/int8/int16/int32/int64, uint/uint8/uint16/uint32/uint64,
// float32/float64, string.
func (c *Client) Write(tagName string, value interface{}) error {
	return c.WriteContext(context.Background(), tagName, value)
}

// WriteContext is the cooperative-suspension form of Write.
func (c *Client) WriteContext(ctx context.Context, tagName string, value interface{}) error {
	if c == nil || c.plc == nil {
		return fmt.Errorf("Write: nil client")
	}

	var dataType uint16
	var data []byte

	switch v := value.(type) {
	case bool:
		dataType = TypeBOOL
		if v {
			data = []byte{1}
		} else {
			data = []byte{0}
		}

	case int8:
		dataType = TypeSINT
		data = []byte{byte(v)}

	case int16:
		dataType = TypeINT
		data = binary.LittleEndian.AppendUint16(nil, uint16(v))

	case int32:
		dataType = TypeDINT
		data = binary.LittleEndian.AppendUint32(nil, uint32(v))

	case int64:
		dataType = TypeLINT
		data = binary.LittleEndian.AppendUint64(nil, uint64(v))

	case int:
		// Default int to DINT (most common)
		dataType = TypeDINT
		data = binary.LittleEndian.AppendUint32(nil, uint32(v))

	case uint8:
		dataType = TypeUSINT
		data = []byte{v}

	case uint16:
		dataType = TypeUINT
		data = binary.LittleEndian.AppendUint16(nil, v)

	case uint32:
		dataType = TypeUDINT
		data = binary.LittleEndian.AppendUint32(nil, v)

	case uint64:
		dataType = TypeULINT
		data = binary.LittleEndian.AppendUint64(nil, v)

	case uint:
		// Default uint to UDINT
		dataType = TypeUDINT
		data = binary.LittleEndian.AppendUint32(nil, uint32(v))

	case float32:
		dataType = TypeREAL
		data = binary.LittleEndian.AppendUint32(nil, math.Float32bits(v))

	case float64:
		dataType = TypeLREAL
		data = binary.LittleEndian.AppendUint64(nil, math.Float64bits(v))

	case string:
		dataType = TypeSTRING
		data = EncodeString(v)

	default:
		return fmt.Errorf("Write: unsupported value type %T", value)
	}

	return c.plc.WriteTagContext(ctx, tagName, dataType, data)
}

// WriteBool writes a boolean value to a tag using the §4.E two-byte BOOL
// pattern ({0xFF,0xFF} true, {0,0} false). Per §4.F the bit access engine is
// used instead whenever the address carries the "i=" prefix, or when it
// matches the bracketed bit-access form "NAME[N]"; an "i="-prefixed address
// with no bit selector is structurally invalid and reported as such rather
// than sent to the PLC literally.
func (c *Client) WriteBool(tagName string, val bool) error {
	return c.WriteBoolContext(context.Background(), tagName, val)
}

// WriteBoolContext is the cooperative-suspension form of WriteBool.
func (c *Client) WriteBoolContext(ctx context.Context, tagName string, val bool) error {
	if c == nil || c.plc == nil {
		return fmt.Errorf("WriteBool: nil client")
	}
	if sel, ok := parseBitAccess(tagName); ok {
		return c.writeBitContext(ctx, sel, val)
	}
	if strings.HasPrefix(tagName, "i=") {
		return &ciperr.InvalidAddress{Address: tagName, Reason: "i= bit access with no bit selector"}
	}
	if base, bitIdx, ok := parseBit(tagName); ok {
		return c.writeBitContext(ctx, BitSelector{HostAddress: base, BitIndex: bitIdx}, val)
	}
	data := []byte{0, 0}
	if val {
		data = []byte{0xFF, 0xFF}
	}
	return c.plc.WriteTagContext(ctx, tagName, TypeBOOL, data)
}

// ReadBoolArray reads count boolean elements. Per §4.E: an "i=" bit-access
// address, or a bare unindexed name, is interpreted as bit-packed data
// unpacked via the bit access engine; an address already ending in "[N]"
// (and not bit-access) is read as one full byte per element. An "i="-prefixed
// address with no bit selector fails the §4.F grammar and is reported as
// InvalidAddress rather than read literally.
func (c *Client) ReadBoolArray(tagName string, count int) ([]bool, error) {
	return c.ReadBoolArrayContext(context.Background(), tagName, count)
}

// ReadBoolArrayContext is the cooperative-suspension form of ReadBoolArray.
func (c *Client) ReadBoolArrayContext(ctx context.Context, tagName string, count int) ([]bool, error) {
	if c == nil || c.plc == nil {
		return nil, fmt.Errorf("ReadBoolArray: nil client")
	}
	if sel, ok := parseBitAccess(tagName); ok {
		return c.readBoolBitsFromContext(ctx, sel, count)
	}
	if strings.HasPrefix(tagName, "i=") {
		return nil, &ciperr.InvalidAddress{Address: tagName, Reason: "i= bit access with no bit selector"}
	}
	if strings.Contains(tagName, "[") {
		tag, err := c.plc.ReadTagCountContext(ctx, tagName, uint16(count))
		if err != nil {
			return nil, fmt.Errorf("ReadBoolArray: %w", err)
		}
		out := make([]bool, len(tag.Bytes))
		for i, b := range tag.Bytes {
			out[i] = b != 0
		}
		if len(out) > count {
			out = out[:count]
		}
		return out, nil
	}
	return c.readBoolBitsFromContext(ctx, BitSelector{HostAddress: tagName, BitIndex: 0}, count)
}

// WriteBoolArray writes one byte per element in a single service, padding
// the tail byte if the element count is odd.
func (c *Client) WriteBoolArray(tagName string, vals []bool) error {
	return c.WriteBoolArrayContext(context.Background(), tagName, vals)
}

// WriteBoolArrayContext is the cooperative-suspension form of WriteBoolArray.
func (c *Client) WriteBoolArrayContext(ctx context.Context, tagName string, vals []bool) error {
	if c == nil || c.plc == nil {
		return fmt.Errorf("WriteBoolArray: nil client")
	}
	data := make([]byte, len(vals))
	for i, v := range vals {
		if v {
			data[i] = 1
		}
	}
	if len(data)%2 != 0 {
		data = append(data, 0)
	}
	return c.plc.WriteTagCountContext(ctx, tagName, TypeBOOL, data, uint16(len(vals)))
}

// WriteInt writes an integer value to a tag.
// Writes as DINT (32-bit signed integer).
func (c *Client) WriteInt(tagName string, val int64) error {
	return c.WriteIntContext(context.Background(), tagName, val)
}

// WriteIntContext is the cooperative-suspension form of WriteInt.
func (c *Client) WriteIntContext(ctx context.Context, tagName string, val int64) error {
	if c == nil || c.plc == nil {
		return fmt.Errorf("WriteInt: nil client")
	}
	data := binary.LittleEndian.AppendUint32(nil, uint32(val))
	return c.plc.WriteTagContext(ctx, tagName, TypeDINT, data)
}

// ReadFloat reads a single REAL element, requiring at least 4 payload bytes.
func (c *Client) ReadFloat(tagName string) (float64, error) {
	return c.ReadFloatContext(context.Background(), tagName)
}

// ReadFloatContext is the cooperative-suspension form of ReadFloat.
func (c *Client) ReadFloatContext(ctx context.Context, tagName string) (float64, error) {
	if c == nil || c.plc == nil {
		return 0, fmt.Errorf("ReadFloat: nil client")
	}
	tag, err := c.plc.ReadTagContext(ctx, tagName)
	if err != nil {
		return 0, fmt.Errorf("ReadFloat: %w", err)
	}
	if len(tag.Bytes) < 4 {
		return 0, fmt.Errorf("ReadFloat: insufficient data (%d bytes)", len(tag.Bytes))
	}
	return float64(math.Float32frombits(binary.LittleEndian.Uint32(tag.Bytes))), nil
}

// WriteFloat writes a floating-point value to a tag.
// Writes as REAL (32-bit float).
func (c *Client) WriteFloat(tagName string, val float64) error {
	return c.WriteFloatContext(context.Background(), tagName, val)
}

// WriteFloatContext is the cooperative-suspension form of WriteFloat.
func (c *Client) WriteFloatContext(ctx context.Context, tagName string, val float64) error {
	if c == nil || c.plc == nil {
		return fmt.Errorf("WriteFloat: nil client")
	}
	data := binary.LittleEndian.AppendUint32(nil, math.Float32bits(float32(val)))
	return c.plc.WriteTagContext(ctx, tagName, TypeREAL, data)
}

// ReadFloatArray reads count REAL elements, chunked per §4.D.
func (c *Client) ReadFloatArray(tagName string, count int) ([]float64, error) {
	return c.ReadFloatArrayContext(context.Background(), tagName, count)
}

// ReadFloatArrayContext is the cooperative-suspension form of ReadFloatArray.
func (c *Client) ReadFloatArrayContext(ctx context.Context, tagName string, count int) ([]float64, error) {
	if c == nil || c.plc == nil {
		return nil, fmt.Errorf("ReadFloatArray: nil client")
	}
	raw, err := c.readChunkedArrayContext(ctx, tagName, count)
	if err != nil {
		return nil, fmt.Errorf("ReadFloatArray: %w", err)
	}
	n := len(raw) / 4
	if n > count {
		n = count
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:])))
	}
	return out, nil
}

// WriteFloatArray writes a REAL array, chunked per §4.D.
func (c *Client) WriteFloatArray(tagName string, vals []float64) error {
	return c.WriteFloatArrayContext(context.Background(), tagName, vals)
}

// WriteFloatArrayContext is the cooperative-suspension form of WriteFloatArray.
func (c *Client) WriteFloatArrayContext(ctx context.Context, tagName string, vals []float64) error {
	if c == nil || c.plc == nil {
		return fmt.Errorf("WriteFloatArray: nil client")
	}
	elems := make([][]byte, len(vals))
	for i, v := range vals {
		elems[i] = binary.LittleEndian.AppendUint32(nil, math.Float32bits(float32(v)))
	}
	if err := c.writeChunkedArrayContext(ctx, tagName, TypeREAL, 4, elems); err != nil {
		return fmt.Errorf("WriteFloatArray: %w", err)
	}
	return nil
}

// ReadDINTArray reads count DINT elements, chunked per §4.D.
func (c *Client) ReadDINTArray(tagName string, count int) ([]int32, error) {
	return c.ReadDINTArrayContext(context.Background(), tagName, count)
}

// ReadDINTArrayContext is the cooperative-suspension form of ReadDINTArray.
func (c *Client) ReadDINTArrayContext(ctx context.Context, tagName string, count int) ([]int32, error) {
	if c == nil || c.plc == nil {
		return nil, fmt.Errorf("ReadDINTArray: nil client")
	}
	raw, err := c.readChunkedArrayContext(ctx, tagName, count)
	if err != nil {
		return nil, fmt.Errorf("ReadDINTArray: %w", err)
	}
	n := len(raw) / 4
	if n > count {
		n = count
	}
	out := make([]int32, n)
	for i := 0; i < n; i++ {
		out[i] = int32(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return out, nil
}

// WriteDINTArray writes a DINT array, chunked per §4.D.
func (c *Client) WriteDINTArray(tagName string, vals []int32) error {
	return c.WriteDINTArrayContext(context.Background(), tagName, vals)
}

// WriteDINTArrayContext is the cooperative-suspension form of WriteDINTArray.
func (c *Client) WriteDINTArrayContext(ctx context.Context, tagName string, vals []int32) error {
	if c == nil || c.plc == nil {
		return fmt.Errorf("WriteDINTArray: nil client")
	}
	elems := make([][]byte, len(vals))
	for i, v := range vals {
		elems[i] = binary.LittleEndian.AppendUint32(nil, uint32(v))
	}
	if err := c.writeChunkedArrayContext(ctx, tagName, TypeDINT, 4, elems); err != nil {
		return fmt.Errorf("WriteDINTArray: %w", err)
	}
	return nil
}

// WriteString writes a string value to a tag.
// Writes the §4.G wire form: a 2-byte length prefix followed by the UTF-8
// bytes, even-padded.
func (c *Client) WriteString(tagName string, val string) error {
	return c.WriteStringContext(context.Background(), tagName, val)
}

// WriteStringContext is the cooperative-suspension form of WriteString.
func (c *Client) WriteStringContext(ctx context.Context, tagName string, val string) error {
	if c == nil || c.plc == nil {
		return fmt.Errorf("WriteString: nil client")
	}
	return c.plc.WriteTagContext(ctx, tagName, TypeSTRING, EncodeString(val))
}

// WriteStringArray writes one request per element, per §4.D (STRING arrays
// are never length-chunked).
func (c *Client) WriteStringArray(tagName string, vals []string) error {
	return c.WriteStringArrayContext(context.Background(), tagName, vals)
}

// WriteStringArrayContext is the cooperative-suspension form of WriteStringArray.
func (c *Client) WriteStringArrayContext(ctx context.Context, tagName string, vals []string) error {
	if c == nil || c.plc == nil {
		return fmt.Errorf("WriteStringArray: nil client")
	}
	base, start := parseArrayStart(tagName)
	for i, val := range vals {
		elemName := fmt.Sprintf("%s[%d]", base, start+i)
		if err := c.plc.WriteTagContext(ctx, elemName, TypeSTRING, EncodeString(val)); err != nil {
			return fmt.Errorf("WriteStringArray: element %d: %w", i, err)
		}
	}
	return nil
}

// ReadStringArray reads count string elements starting at the address's
// array index (0 if none given). Per §4.D/§4.E, a length greater than one,
// or an address already carrying an index, issues one request per element;
// a bare scalar name with count 1 issues a single scalar read.
func (c *Client) ReadStringArray(tagName string, count int) ([]string, error) {
	return c.ReadStringArrayContext(context.Background(), tagName, count)
}

// ReadStringArrayContext is the cooperative-suspension form of ReadStringArray.
func (c *Client) ReadStringArrayContext(ctx context.Context, tagName string, count int) ([]string, error) {
	if c == nil || c.plc == nil {
		return nil, fmt.Errorf("ReadStringArray: nil client")
	}
	base, start := parseArrayStart(tagName)
	if count <= 1 && !strings.Contains(tagName, "[") {
		tag, err := c.plc.ReadTagContext(ctx, tagName)
		if err != nil {
			return nil, fmt.Errorf("ReadStringArray: %w", err)
		}
		return []string{DecodeString(tag.Bytes)}, nil
	}
	out := make([]string, 0, count)
	for i := 0; i < count; i++ {
		elemName := fmt.Sprintf("%s[%d]", base, start+i)
		tag, err := c.plc.ReadTagContext(ctx, elemName)
		if err != nil {
			return nil, fmt.Errorf("ReadStringArray: element %d: %w", i, err)
		}
		out = append(out, DecodeString(tag.Bytes))
	}
	return out, nil
}
