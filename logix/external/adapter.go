// Package external backs the alternate back end named in §1 as an opaque
// collaborator: two PLC variants route through github.com/danomagnum/gologix
// instead of the native protocol engine in package logix, but present the
// same typed-tag-facing surface so callers and the gateway layer (plcman,
// driver) don't need to know which backend a given PLCConfig selected.
package external

import (
	"fmt"

	"github.com/danomagnum/gologix"
)

// Adapter wraps a gologix client behind the subset of logix.Client's
// surface the gateway layer actually drives: connect/close and typed
// scalar/array read-write. Per design note §9, this variant chunks array
// writes at 992 elements and routes scalars through .LEN/.DATA sub-tags
// internally; that policy lives inside gologix itself, not here.
type Adapter struct {
	client *gologix.Client
}

// NewAdapter creates an adapter for the PLC at ip. It does not connect.
func NewAdapter(ip string) *Adapter {
	return &Adapter{client: gologix.NewClient(ip)}
}

// Connect opens the underlying gologix session.
func (a *Adapter) Connect() error {
	if a == nil || a.client == nil {
		return fmt.Errorf("external.Connect: nil adapter")
	}
	return a.client.Connect()
}

// Close disconnects the underlying gologix session, best-effort.
func (a *Adapter) Close() {
	if a == nil || a.client == nil {
		return
	}
	_ = a.client.Disconnect()
}

// ReadInto reads tag into dest, a pointer to the Go type matching the tag's
// CIP data type (bool, int32, float32, string, ...), mirroring the core
// client's typed read operations.
func (a *Adapter) ReadInto(tag string, dest any) error {
	if a == nil || a.client == nil {
		return fmt.Errorf("external.ReadInto: nil adapter")
	}
	if err := a.client.Read(tag, dest); err != nil {
		return fmt.Errorf("external.ReadInto %s: %w", tag, err)
	}
	return nil
}

// Write writes value to tag.
func (a *Adapter) Write(tag string, value any) error {
	if a == nil || a.client == nil {
		return fmt.Errorf("external.Write: nil adapter")
	}
	if err := a.client.Write(tag, value); err != nil {
		return fmt.Errorf("external.Write %s: %w", tag, err)
	}
	return nil
}

// ReadFloat reads tag as a REAL.
func (a *Adapter) ReadFloat(tag string) (float64, error) {
	var v float32
	if err := a.ReadInto(tag, &v); err != nil {
		return 0, err
	}
	return float64(v), nil
}

// WriteFloat writes val to tag as a REAL.
func (a *Adapter) WriteFloat(tag string, val float64) error {
	return a.Write(tag, float32(val))
}

// ReadBool reads tag as a BOOL.
func (a *Adapter) ReadBool(tag string) (bool, error) {
	var v bool
	if err := a.ReadInto(tag, &v); err != nil {
		return false, err
	}
	return v, nil
}

// WriteBool writes val to tag as a BOOL.
func (a *Adapter) WriteBool(tag string, val bool) error {
	return a.Write(tag, val)
}

// ReadString reads tag as a STRING.
func (a *Adapter) ReadString(tag string) (string, error) {
	var v string
	if err := a.ReadInto(tag, &v); err != nil {
		return "", err
	}
	return v, nil
}

// WriteString writes val to tag as a STRING; the 82-byte legacy cap (§4.G)
// applies to this backend, not to package logix.
func (a *Adapter) WriteString(tag string, val string) error {
	return a.Write(tag, val)
}
