package modbus

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

func TestClient_ReadHoldingRegisters(t *testing.T) {
	client, conn := newMockClient(t, holdingRegistersResponse)

	outcome := client.ReadHoldingRegisters(0x0000, 3)
	good, ok := outcome.Good()
	if !ok {
		t.Fatalf("expected good outcome, got %v", outcome)
	}
	assertUint16Equal(t, []uint16{0xF00F, 0x00FF, 0xFF00}, good.Data)

	expectedRequest := []byte{0x00, 0x01, 0x00, 0x00, 0x00, 0x06, 0x01, 0x03, 0x00, 0x00, 0x00, 0x03}
	assertBytesEqual(t, expectedRequest, conn.writeBuffer.Bytes())
	if id := client.TransactionID(); id != 2 {
		t.Errorf("transaction id after one call: got %d, want 2", id)
	}
}

func TestClient_ReadCoils(t *testing.T) {
	client, conn := newMockClient(t, []byte{
		0x00, 0x01, 0x00, 0x00, 0x00, 0x06, 0x01, // MBAP
		0x01,             // Function Code
		0x03,             // Byte Count
		0xCD, 0x6B, 0x05, // Coil Status
	}, WithUnitID(0x11))

	outcome := client.ReadCoils(0x0013, 19)
	want := []bool{
		true, false, true, true, false, false, true, true,
		true, true, false, true, false, true, true, false,
		true, false, true,
	}
	assertBoolEqual(t, want, outcome.Data())

	sent := conn.writeBuffer.Bytes()
	if len(sent) != 12 || sent[6] != 0x11 || sent[7] != 0x01 {
		t.Errorf("ReadCoils sent incorrect request: % X", sent)
	}
}

func TestClient_ReadDiscreteInputsAndInputRegisters(t *testing.T) {
	client, _ := newMockClient(t, []byte{
		0x00, 0x01, 0x00, 0x00, 0x00, 0x06, 0x01, 0x02, 0x03, 0xAC, 0xDB, 0x35,
		0x00, 0x02, 0x00, 0x00, 0x00, 0x07, 0x01, 0x04, 0x04, 0x00, 0x0A, 0x10, 0x01,
	})

	inputs := client.ReadDiscreteInputs(0x00C4, 22)
	if !inputs.IsGood() || len(inputs.Data()) != 22 {
		t.Fatalf("ReadDiscreteInputs: %v", inputs)
	}
	registers := client.ReadInputRegisters(0x0008, 2)
	assertUint16Equal(t, []uint16{0x000A, 0x1001}, registers.Data())
}

func TestClient_Writes(t *testing.T) {
	client, conn := newMockClient(t, []byte{
		0x00, 0x01, 0x00, 0x00, 0x00, 0x06, 0x01, 0x05, 0x00, 0xAC, 0xFF, 0x00,
		0x00, 0x02, 0x00, 0x00, 0x00, 0x06, 0x01, 0x06, 0x00, 0x01, 0x00, 0x03,
		0x00, 0x03, 0x00, 0x00, 0x00, 0x06, 0x01, 0x0F, 0x00, 0x13, 0x00, 0x0A,
		0x00, 0x04, 0x00, 0x00, 0x00, 0x06, 0x01, 0x10, 0x00, 0x01, 0x00, 0x02,
	})

	coil := client.WriteSingleCoil(0x00AC, CoilWordOn)
	assertBoolEqual(t, []bool{true}, coil.Data())

	register := client.WriteSingleRegister(0x0001, 0x0003)
	assertUint16Equal(t, []uint16{0x0001, 0x0003}, register.Data())

	coils := client.WriteMultipleCoils(0x0013, 10, []byte{0xCD, 0x01})
	assertUint16Equal(t, []uint16{0x0013, 0x000A}, coils.Data())

	registers := client.WriteMultipleRegisters(0x0001, []uint16{0x000A, 0x0102})
	assertUint16Equal(t, []uint16{0x0001, 0x0002}, registers.Data())

	// four requests of 12, 12, 15 and 17 bytes
	if n := conn.writeBuffer.Len(); n != 12+12+15+17 {
		t.Errorf("wrote %d bytes", n)
	}
	if id := client.TransactionID(); id != 5 {
		t.Errorf("transaction id: got %d, want 5", id)
	}
}

func TestClient_FunctionCodeMismatch(t *testing.T) {
	exception := []byte{0x00, 0x01, 0x00, 0x00, 0x00, 0x03, 0x01, 0x83, 0x02}

	client, _ := newMockClient(t, exception)
	outcome := client.ReadHoldingRegisters(0, 3)
	bad, ok := outcome.Bad()
	if !ok {
		t.Fatalf("expected bad outcome, got %v", outcome)
	}
	if bad.ErrorCode != 0x83 || bad.ExceptionCode != 1 || bad.Message != "Illegal Function" {
		t.Errorf("unexpected bad outcome %+v", bad)
	}
	if !errors.Is(outcome.Err(), ErrFunctionMismatch) {
		t.Errorf("outcome error %v should match ErrFunctionMismatch", outcome.Err())
	}
	if last := client.GetLastModbusError(); last == nil || last.FunctionCode != 0x83 {
		t.Errorf("last modbus error: %v", last)
	}

	decoding, _ := newMockClient(t, exception, WithExceptionDecoding(true))
	bad, _ = decoding.ReadHoldingRegisters(0, 3).Bad()
	if bad.ExceptionCode != 2 || bad.Message != "Illegal Data Address" {
		t.Errorf("decoded exception: %+v", bad)
	}
}

func TestClient_TransactionIDWraps(t *testing.T) {
	client, conn := newMockClient(t, []byte{0xFF, 0xFF, 0x00, 0x00, 0x00, 0x05, 0x01, 0x03, 0x02, 0x00, 0x01, 0x00, 0x00})
	client.transactionID = 0xFFFF

	client.ReadHoldingRegisters(0, 1)
	if sent := conn.writeBuffer.Bytes(); sent[0] != 0xFF || sent[1] != 0xFF {
		t.Errorf("request carried transaction id % X", sent[:2])
	}
	if id := client.TransactionID(); id != 0x0001 {
		t.Errorf("transaction id after 0xFFFF: got 0x%04X, want 0x0001", id)
	}
}

func TestClient_TransportFailureAdvancesID(t *testing.T) {
	client, _ := newMockClient(t, nil)

	outcome := client.ReadCoils(0, 8)
	bad, ok := outcome.Bad()
	if !ok || !strings.Contains(bad.Message, "read failed") {
		t.Errorf("expected transport diagnostic, got %v", outcome)
	}
	if id := client.TransactionID(); id != 2 {
		t.Errorf("transaction id: got %d, want 2", id)
	}
}

func TestClient_ValidationFailure(t *testing.T) {
	client, conn := newMockClient(t, holdingRegistersResponse)

	outcome := client.ReadCoils(0, 0)
	if !outcome.IsBad() || !errors.Is(outcome.Err(), ErrQuantityTooLow) {
		t.Errorf("expected validation failure, got %v", outcome)
	}
	if outcome := client.WriteSingleCoil(0, 0x0001); !errors.Is(outcome.Err(), ErrInvalidCoilValue) {
		t.Errorf("expected invalid coil value, got %v", outcome)
	}
	if conn.writeBuffer.Len() != 0 {
		t.Errorf("invalid request reached the wire: % X", conn.writeBuffer.Bytes())
	}
	if id := client.TransactionID(); id != 1 {
		t.Errorf("transaction id advanced to %d", id)
	}
}

func TestClient_NotConnected(t *testing.T) {
	client := NewClient("127.0.0.1")

	if outcome := client.ReadHoldingRegisters(0, 3); !outcome.IsNone() {
		t.Errorf("expected none, got %v", outcome)
	}
	// validation still runs first
	if outcome := client.ReadHoldingRegisters(0, 126); !outcome.IsBad() {
		t.Errorf("expected bad, got %v", outcome)
	}
	if id := client.TransactionID(); id != 1 {
		t.Errorf("transaction id advanced to %d", id)
	}
	if client.Disconnect() {
		t.Error("Disconnect without a stream should report false")
	}
}

func TestClient_InvalidResponseData(t *testing.T) {
	// byte count 2 leaves a payload below the register minimum
	client, _ := newMockClient(t, []byte{0x00, 0x01, 0x00, 0x00, 0x00, 0x05, 0x01, 0x03, 0x02, 0x00, 0x01})

	outcome := client.ReadHoldingRegisters(0, 1)
	bad, ok := outcome.Bad()
	if !ok || bad.Message != MsgInvalidResponseData {
		t.Fatalf("expected %q, got %v", MsgInvalidResponseData, outcome)
	}
	if !errors.Is(outcome.Err(), ErrInvalidResponseData) {
		t.Errorf("outcome error: %v", outcome.Err())
	}
}

func TestClient_MalformedResponse(t *testing.T) {
	client, _ := newMockClient(t, []byte{0x00, 0x01, 0x00, 0x00, 0x00, 0x09, 0x01, 0x03, 0x06, 0xF0})

	bad, ok := client.ReadHoldingRegisters(0, 3).Bad()
	if !ok || bad.Message != MsgInvalidTelegram {
		t.Errorf("expected %q, got %+v", MsgInvalidTelegram, bad)
	}
}

func TestClient_Busy(t *testing.T) {
	client, conn := newMockClient(t, holdingRegistersResponse)
	client.busy.Store(true)

	outcome := client.ReadHoldingRegisters(0, 3)
	if !errors.Is(outcome.Err(), ErrClientBusy) {
		t.Errorf("expected busy, got %v", outcome)
	}
	if conn.writeBuffer.Len() != 0 {
		t.Error("busy client wrote to the stream")
	}
}

func TestClient_ConnectDisconnect(t *testing.T) {
	conn := &mockTCPConn{}
	dialer := &mockDialer{conn: conn}
	client := NewClient("192.168.0.10", WithPort(503), WithDialer(dialer))

	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if dialer.address != "192.168.0.10:503" {
		t.Errorf("dialed %q", dialer.address)
	}
	if !client.IsConnected() {
		t.Error("client should be connected")
	}
	if !client.Disconnect() || !conn.closed {
		t.Error("Disconnect should close the stream")
	}
	if client.Disconnect() {
		t.Error("second Disconnect should report false")
	}

	failing := NewClient("192.168.0.10", WithDialer(&mockDialer{err: errors.New("connection refused")}))
	if err := failing.Connect(context.Background()); err == nil || failing.IsConnected() {
		t.Errorf("Connect should fail, got %v", err)
	}

	invalid := NewClient("plc.local", WithDialer(dialer))
	if err := invalid.Connect(context.Background()); !errors.Is(err, ErrInvalidAddress) {
		t.Errorf("got %v, want ErrInvalidAddress", err)
	}
}

func TestClient_SetLogger(t *testing.T) {
	client, _ := newMockClient(t, holdingRegistersResponse)
	var buf bytes.Buffer
	client.SetLogger(&buf)

	client.ReadHoldingRegisters(0, 3)
	out := buf.String()
	if !strings.Contains(out, `"message":"send"`) || !strings.Contains(out, "F0 0F 00 FF FF 00") {
		t.Errorf("log output missing exchange: %s", out)
	}
}
