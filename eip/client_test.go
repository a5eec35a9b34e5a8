package eip

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"net"
	"strconv"
	"testing"
	"time"

	"warlink/ciperr"
)

// fakePLC is a minimal scripted EtherNet/IP server: it accepts one TCP
// connection at a time, replies to RegisterSession with a fresh session
// handle per connection, and replies to SendRRData with whatever status the
// test script has queued for that connection number.
type fakePLC struct {
	ln        net.Listener
	sessions  []uint32
	rrStatus  []uint32 // status to reply for the Nth accepted connection's SendRRData
	connCount int
}

func newFakePLC(t *testing.T, rrStatus []uint32) *fakePLC {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	f := &fakePLC{ln: ln, rrStatus: rrStatus}
	go f.serve(t)
	return f
}

func (f *fakePLC) addr() string {
	return f.ln.Addr().String()
}

func (f *fakePLC) close() {
	f.ln.Close()
}

func (f *fakePLC) serve(t *testing.T) {
	for {
		conn, err := f.ln.Accept()
		if err != nil {
			return
		}
		connNum := f.connCount
		f.connCount++
		session := uint32(0x1000 + connNum)
		f.sessions = append(f.sessions, session)
		go f.handleConn(t, conn, connNum, session)
	}
}

// readEncapFrame reads one EtherNet/IP encapsulation frame off conn.
func readEncapFrame(conn net.Conn) (command uint16, sessionHandle uint32, data []byte, err error) {
	header := make([]byte, 24)
	if _, err = io.ReadFull(conn, header); err != nil {
		return 0, 0, nil, err
	}
	command = binary.LittleEndian.Uint16(header[0:2])
	length := binary.LittleEndian.Uint16(header[2:4])
	sessionHandle = binary.LittleEndian.Uint32(header[4:8])
	payload := make([]byte, length)
	if length > 0 {
		if _, err = io.ReadFull(conn, payload); err != nil {
			return 0, 0, nil, err
		}
	}
	return command, sessionHandle, payload, nil
}

func writeEncapFrame(conn net.Conn, command uint16, sessionHandle uint32, status uint32, data []byte) error {
	msg := EipEncap{
		command:       command,
		length:        uint16(len(data)),
		sessionHandle: sessionHandle,
		status:        status,
		data:          data,
	}
	_, err := conn.Write(msg.Bytes())
	return err
}

func (f *fakePLC) handleConn(t *testing.T, conn net.Conn, connNum int, session uint32) {
	defer conn.Close()

	// RegisterSession
	cmd, _, _, err := readEncapFrame(conn)
	if err != nil || cmd != RegisterSession {
		return
	}
	if err := writeEncapFrame(conn, RegisterSession, session, 0, []byte{1, 0, 0, 0}); err != nil {
		return
	}

	// SendRRData (at most one per connection in these tests)
	cmd, _, _, err = readEncapFrame(conn)
	if err != nil || cmd != SendRRData {
		return
	}

	status := uint32(0)
	if connNum < len(f.rrStatus) {
		status = f.rrStatus[connNum]
	}

	if status != 0 {
		// Reply with a bare status error, no embedded CPF - matches what a
		// real controller sends for a stale/oversized connection.
		_ = writeEncapFrame(conn, SendRRData, session, status, nil)
		return
	}

	// Success: embed a minimal EipCommandData { interfaceHandle=0, timeout=0,
	// packet=<empty CPF with 0 items> }.
	cpacketBytes := binary.LittleEndian.AppendUint16(nil, 0) // 0 CPF items
	cmdData := EipCommandData{interfaceHandle: 0, timeout: 0, packet: cpacketBytes}
	_ = writeEncapFrame(conn, SendRRData, session, 0, cmdData.Bytes())
}

// TestSendRRDataReconnectsOnStaleConnection exercises property "session
// recovery": a SendRRData call that gets back EncapsulationError(3) (stale
// connection) reconnects and retries once on a fresh session, and the caller
// never sees the first failure.
func TestSendRRDataReconnectsOnStaleConnection(t *testing.T) {
	plc := newFakePLC(t, []uint32{3, 0}) // first connection: stale; second: success
	defer plc.close()

	client := NewEipClient(hostOf(plc.addr()))
	client.port = portOf(t, plc.addr())
	client.timeout = 2 * time.Second

	if err := client.Connect(); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer client.Disconnect()

	firstSession := client.GetSession()

	cpf := EipCommonPacket{}
	if _, err := client.SendRRData(cpf); err != nil {
		t.Fatalf("SendRRData: expected automatic reconnect-retry to succeed, got %v", err)
	}

	secondSession := client.GetSession()
	if secondSession == firstSession {
		t.Fatalf("expected a new session handle after reconnect, got the same one: 0x%08X", secondSession)
	}
	if plc.connCount != 2 {
		t.Fatalf("expected exactly 2 connections (original + 1 reconnect), got %d", plc.connCount)
	}
}

// TestTransactEncapContextCancellation verifies that cancelling the context
// mid-call yields ciperr.Cancelled and leaves the session closed, per the
// cooperative-suspension cancellation policy.
func TestTransactEncapContextCancellation(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	// Accept the connection but never reply to RegisterSession, so the
	// client's read blocks until we cancel it.
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		_, _, _, _ = readEncapFrame(conn)
		// Hold the connection open without replying so the client's read
		// stays genuinely blocked until ctx cancellation forces it out.
		time.Sleep(2 * time.Second)
	}()

	client := NewEipClient(hostOf(ln.Addr().String()))
	client.port = portOf(t, ln.Addr().String())
	client.timeout = 5 * time.Second

	dialConn, err := net.DialTimeout("tcp", ln.Addr().String(), time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	client.conn = dialConn
	client.session = 0

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err = client.registerSessionContext(ctx)
	if err == nil {
		t.Fatalf("expected an error after context cancellation")
	}
	var cancelled *ciperr.Cancelled
	if !asCancelled(err, &cancelled) {
		t.Fatalf("expected ciperr.Cancelled, got %T: %v", err, err)
	}
	if client.conn != nil {
		t.Fatalf("expected session to be closed after a cancelled call")
	}
}

func asCancelled(err error, target **ciperr.Cancelled) bool {
	return errors.As(err, target)
}

func hostOf(addr string) string {
	host, _, _ := net.SplitHostPort(addr)
	return host
}

func portOf(t *testing.T, addr string) uint16 {
	t.Helper()
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		t.Fatalf("SplitHostPort: %v", err)
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		t.Fatalf("parse port: %v", err)
	}
	return uint16(port)
}
