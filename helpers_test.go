package modbus

import (
	"bytes"
	"context"
	"net"
	"testing"
	"time"
)

// Mock TCP connection
type mockTCPConn struct {
	readBuffer  bytes.Buffer
	writeBuffer bytes.Buffer
	readErr     error
	writeErr    error
	closed      bool
}

func (m *mockTCPConn) Read(b []byte) (n int, err error) {
	if m.readErr != nil {
		return 0, m.readErr
	}
	return m.readBuffer.Read(b)
}

func (m *mockTCPConn) Write(b []byte) (n int, err error) {
	if m.writeErr != nil {
		return 0, m.writeErr
	}
	return m.writeBuffer.Write(b)
}

func (m *mockTCPConn) Close() error {
	m.closed = true
	return nil
}

func (m *mockTCPConn) LocalAddr() net.Addr                { return nil }
func (m *mockTCPConn) RemoteAddr() net.Addr               { return nil }
func (m *mockTCPConn) SetDeadline(t time.Time) error      { return nil }
func (m *mockTCPConn) SetReadDeadline(t time.Time) error  { return nil }
func (m *mockTCPConn) SetWriteDeadline(t time.Time) error { return nil }

// mockDialer hands out a prepared connection.
type mockDialer struct {
	conn    net.Conn
	err     error
	address string
}

func (d *mockDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	d.address = address
	if d.err != nil {
		return nil, d.err
	}
	return d.conn, nil
}

// newMockClient returns a connected client whose server answers with response.
func newMockClient(t *testing.T, response []byte, opts ...Option) (*Client, *mockTCPConn) {
	t.Helper()
	conn := &mockTCPConn{}
	conn.readBuffer.Write(response)
	client := NewClient("127.0.0.1", append([]Option{WithDialer(&mockDialer{conn: conn})}, opts...)...)
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	return client, conn
}

// assertUint16Equal checks if two slices of uint16 are equal.
func assertUint16Equal(t *testing.T, expected []uint16, actual []uint16) {
	t.Helper()
	if len(expected) != len(actual) {
		t.Errorf("Expected length %d, but got %d", len(expected), len(actual))
		return
	}
	for i := range expected {
		if expected[i] != actual[i] {
			t.Errorf("Expected %v, but got %v", expected, actual)
			return
		}
	}
}

func assertBoolEqual(t *testing.T, expected []bool, actual []bool) {
	t.Helper()
	if len(expected) != len(actual) {
		t.Errorf("Expected length %d, but got %d", len(expected), len(actual))
		return
	}
	for i := range expected {
		if expected[i] != actual[i] {
			t.Errorf("Expected %v, but got %v", expected, actual)
			return
		}
	}
}

func assertBytesEqual(t *testing.T, expected []byte, actual []byte) {
	t.Helper()
	if !bytes.Equal(expected, actual) {
		t.Errorf("Expected % X, but got % X", expected, actual)
	}
}
