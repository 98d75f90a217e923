package modbus

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ReadMode selects how a response is read back from the stream.
type ReadMode int

const (
	// ReadFixed issues one read sized to the expected response length.
	ReadFixed ReadMode = iota
	// ReadFramed reads the MBAP header first and then the length it declares.
	ReadFramed
)

func (m ReadMode) String() string {
	if m == ReadFramed {
		return "framed"
	}
	return "fixed"
}

// ParseReadMode accepts "fixed", "framed" or an empty string (fixed).
func ParseReadMode(s string) (ReadMode, error) {
	switch s {
	case "", "fixed":
		return ReadFixed, nil
	case "framed":
		return ReadFramed, nil
	}
	return ReadFixed, fmt.Errorf("modbus: unknown read mode %q", s)
}

// FrameRecorder receives every completed request/response pair.
type FrameRecorder interface {
	Record(request, response []byte) error
}

// TCPTransporter performs request/response exchanges over a net.Conn.
type TCPTransporter struct {
	conn     net.Conn
	timeout  time.Duration
	mode     ReadMode
	logger   zerolog.Logger
	recorder FrameRecorder
	mu       sync.Mutex
	closed   bool
}

// NewTCPTransporter wraps conn. A zero timeout disables deadlines.
func NewTCPTransporter(conn net.Conn, timeout time.Duration, mode ReadMode, logger zerolog.Logger) *TCPTransporter {
	return &TCPTransporter{
		conn:    conn,
		timeout: timeout,
		mode:    mode,
		logger:  logger,
	}
}

// SetRecorder installs r; nil disables recording.
func (t *TCPTransporter) SetRecorder(r FrameRecorder) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.recorder = r
}

func (t *TCPTransporter) SetLogger(logger zerolog.Logger) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.logger = logger
}

// setDeadline sets read/write deadline for the connection
func (t *TCPTransporter) setDeadline() error {
	if t.timeout > 0 {
		return t.conn.SetDeadline(time.Now().Add(t.timeout))
	}
	return nil
}

// clearDeadline clears the deadline on the connection
func (t *TCPTransporter) clearDeadline() {
	t.conn.SetDeadline(time.Time{})
}

// Exchange writes request and reads one response. It returns the decoded
// response and the raw bytes read. Read and write failures are returned as
// they come from the connection; undecodable responses wrap ErrInvalidTelegram.
func (t *TCPTransporter) Exchange(request *Telegram) (*Telegram, []byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil, nil, fmt.Errorf("modbus: transporter is closed: %w", net.ErrClosed)
	}

	frame := request.Encode()
	if err := t.setDeadline(); err != nil {
		return nil, nil, fmt.Errorf("modbus: failed to set deadline: %w", err)
	}
	defer t.clearDeadline()

	t.logger.Debug().
		Uint16("txn", request.TransactionID()).
		Uint8("unit", request.UnitID()).
		Stringer("function", request.FunctionCode()).
		Str("frame", fmt.Sprintf("% X", frame)).
		Msg("send")

	if err := t.writeAll(frame); err != nil {
		return nil, nil, err
	}

	var raw []byte
	var err error
	if t.mode == ReadFramed {
		raw, err = t.readFramed()
	} else {
		raw, err = t.readFixed(request)
	}
	if err != nil {
		return nil, raw, err
	}

	t.logger.Debug().
		Uint16("txn", request.TransactionID()).
		Str("frame", fmt.Sprintf("% X", raw)).
		Msg("receive")

	if t.recorder != nil {
		if rerr := t.recorder.Record(frame, raw); rerr != nil {
			t.logger.Warn().Err(rerr).Msg("capture failed")
		}
	}

	response, err := DecodeTelegram(raw)
	if err != nil {
		return nil, raw, err
	}
	return response, raw, nil
}

func (t *TCPTransporter) writeAll(frame []byte) error {
	written := 0
	for written < len(frame) {
		n, err := t.conn.Write(frame[written:])
		if err != nil {
			return fmt.Errorf("modbus: write failed after %d bytes: %w", written, err)
		}
		written += n
	}
	return nil
}

// readFixed issues a single read of exactly the expected response size.
// A short read is left to the decoder.
func (t *TCPTransporter) readFixed(request *Telegram) ([]byte, error) {
	expected, ok := request.ExpectedByteCount()
	if !ok {
		return nil, ErrNoExpectedLength
	}
	buf := make([]byte, expected)
	n, err := t.conn.Read(buf)
	if err != nil {
		return nil, fmt.Errorf("modbus: read failed: %w", err)
	}
	return buf[:n], nil
}

// readFramed reads the MBAP header and then the number of bytes it declares.
func (t *TCPTransporter) readFramed() ([]byte, error) {
	header := make([]byte, TCPHeaderLength)
	if _, err := io.ReadFull(t.conn, header); err != nil {
		return nil, fmt.Errorf("modbus: failed to read MBAP header: %w", err)
	}
	if protocolID := binary.BigEndian.Uint16(header[2:4]); protocolID != ProtocolIdentifierTCP {
		return header, fmt.Errorf("%w: protocol identifier 0x%04X", ErrInvalidTelegram, protocolID)
	}
	// Length includes the unit identifier, which is already part of the header.
	length := binary.BigEndian.Uint16(header[4:6])
	if length < 2 || length > MaxPDULength+1 {
		return header, fmt.Errorf("%w: length field %d", ErrInvalidTelegram, length)
	}
	frame := make([]byte, TCPHeaderLength+int(length)-1)
	copy(frame, header)
	if _, err := io.ReadFull(t.conn, frame[TCPHeaderLength:]); err != nil {
		return nil, fmt.Errorf("modbus: failed to read PDU (%d bytes): %w", length-1, err)
	}
	return frame, nil
}

// Close shuts the connection down in both directions.
func (t *TCPTransporter) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true
	return t.conn.Close()
}

// RemoteAddr returns the peer address or an empty string.
func (t *TCPTransporter) RemoteAddr() string {
	if addr := t.conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}

// LocalAddr returns the local address or an empty string.
func (t *TCPTransporter) LocalAddr() string {
	if addr := t.conn.LocalAddr(); addr != nil {
		return addr.String()
	}
	return ""
}
