// Package ciperr defines the typed failures the EtherNet/IP and CIP protocol
// engine surfaces to callers. Each kind carries whatever wire-level detail a
// caller needs to branch on (an encapsulation status, a CIP status) without
// parsing an error string.
package ciperr

import "fmt"

// InvalidAddress means a tag address string failed the grammar in a context
// that requires structural validity, e.g. bit access with no bit selector.
type InvalidAddress struct {
	Address string
	Reason  string
}

func (e *InvalidAddress) Error() string {
	return fmt.Sprintf("invalid address %q: %s", e.Address, e.Reason)
}

// Timeout means no response arrived within the configured operation timeout,
// or a cooperative call's deadline fired mid read/write.
type Timeout struct {
	Op string
}

func (e *Timeout) Error() string { return fmt.Sprintf("%s: timed out", e.Op) }

// Cancelled means the caller's context was cancelled during a socket read,
// write, or mutex wait. The session is moved to Closed the same as Timeout.
type Cancelled struct {
	Op string
}

func (e *Cancelled) Error() string { return fmt.Sprintf("%s: cancelled", e.Op) }

// ConnectFailed means the initial TCP dial or RegisterSession exchange
// failed.
type ConnectFailed struct {
	Addr string
	Err  error
}

func (e *ConnectFailed) Error() string {
	return fmt.Sprintf("connect to %s failed: %v", e.Addr, e.Err)
}
func (e *ConnectFailed) Unwrap() error { return e.Err }

// ConnectionClosed means the peer closed the socket (a zero-byte read)
// outside of a deliberate disconnect.
type ConnectionClosed struct {
	Addr string
}

func (e *ConnectionClosed) Error() string {
	return fmt.Sprintf("connection to %s closed by peer", e.Addr)
}

// EncapsulationError means the encapsulation header's status field was
// non-zero. Codes 3 and 101 are the empirically observed "stale/oversize"
// class that the session transport reconnects and retries once for;
// StaleOrOversize reports whether Code is one of those.
type EncapsulationError struct {
	Code uint32
}

func (e *EncapsulationError) Error() string {
	return fmt.Sprintf("encapsulation status 0x%08X", e.Code)
}

// StaleOrOversize reports whether this code should trigger a one-shot
// reconnect-and-retry rather than surfacing immediately.
func (e *EncapsulationError) StaleOrOversize() bool {
	return e.Code == 3 || e.Code == 101
}

// ReadFailed means a Read Tag service returned a CIP general status that is
// neither 0 (success) nor 6 (partial transfer).
type ReadFailed struct {
	Status       byte
	ExtStatus    uint16
	HasExtStatus bool
}

func (e *ReadFailed) Error() string {
	if e.HasExtStatus {
		return fmt.Sprintf("read failed: CIP status 0x%02X, extended 0x%04X", e.Status, e.ExtStatus)
	}
	return fmt.Sprintf("read failed: CIP status 0x%02X", e.Status)
}

// WriteFailed means a Write Tag service returned a non-zero CIP general
// status.
type WriteFailed struct {
	Status       byte
	ExtStatus    uint16
	HasExtStatus bool
}

func (e *WriteFailed) Error() string {
	if e.HasExtStatus {
		return fmt.Sprintf("write failed: CIP status 0x%02X, extended 0x%04X", e.Status, e.ExtStatus)
	}
	return fmt.Sprintf("write failed: CIP status 0x%02X", e.Status)
}

// TruncatedResponse means a response was shorter than its declared content
// required.
type TruncatedResponse struct {
	Context string
	Have    int
	Want    int
}

func (e *TruncatedResponse) Error() string {
	return fmt.Sprintf("%s: truncated response, have %d bytes want at least %d", e.Context, e.Have, e.Want)
}

// UnsupportedService means the reply carried a Multiple Service Packet
// reply (0x8A) or an unrecognized reply service code.
type UnsupportedService struct {
	ReplyService byte
}

func (e *UnsupportedService) Error() string {
	return fmt.Sprintf("unsupported reply service 0x%02X", e.ReplyService)
}
