package modbus

import (
	"encoding/binary"
	"fmt"
)

// Modbus TCP Protocol Constants
const (
	TCPHeaderLength       = 7      // MBAP header length in bytes
	ProtocolIdentifierTCP = 0x0000 // MBAP protocol identifier, always zero
	MaxPDULength          = 253    // Maximum PDU length, function code included
	MaxTCPFrameLength     = TCPHeaderLength + MaxPDULength
	DefaultTCPPort        = 502
	DefaultUnitID         = 0x01
)

// minResponseLength is MBAP + function code + at least one payload byte.
const minResponseLength = TCPHeaderLength + 2

// Telegram is one MBAP framed MODBUS message.
// The payload excludes the function code.
type Telegram struct {
	transactionID uint16
	unitID        uint8
	functionCode  FunctionCode
	payload       []byte
	expectedBytes uint16
}

// NewTelegram builds a telegram to be sent. expectedBytes is the full length
// of the response frame the caller will read back.
func NewTelegram(transactionID uint16, unitID uint8, fc FunctionCode, payload []byte, expectedBytes uint16) (*Telegram, error) {
	if transactionID == 0 {
		return nil, fmt.Errorf("%w: transaction identifier must not be zero", ErrInvalidTelegram)
	}
	if fc == 0 {
		return nil, fmt.Errorf("%w: function code must not be zero", ErrInvalidTelegram)
	}
	if len(payload)+1 > MaxPDULength {
		return nil, fmt.Errorf("%w: PDU length %d exceeds maximum %d bytes", ErrInvalidTelegram, len(payload)+1, MaxPDULength)
	}
	p := make([]byte, len(payload))
	copy(p, payload)
	return &Telegram{
		transactionID: transactionID,
		unitID:        unitID,
		functionCode:  fc,
		payload:       p,
		expectedBytes: expectedBytes,
	}, nil
}

// DecodeTelegram parses a response frame. Where the payload ends depends on
// the function code: reads carry a byte count at offset 8, writes echo
// everything after the function code and exception frames carry a single
// exception code byte.
func DecodeTelegram(raw []byte) (*Telegram, error) {
	if len(raw) < minResponseLength {
		return nil, fmt.Errorf("%w: frame of %d bytes is too short", ErrInvalidTelegram, len(raw))
	}
	transactionID, _ := ExtractWord(raw, 0)
	unitID, _ := ExtractByte(raw, 6)
	code, _ := ExtractByte(raw, 7)
	fc := FunctionCode(code)

	if fc.IsException() {
		if _, ok := lookupFunction(fc &^ exceptionFlag); !ok {
			return nil, fmt.Errorf("%w: %w 0x%02X", ErrInvalidTelegram, ErrUnsupportedFunction, code)
		}
		payload, _ := ExtractBytes(raw, TCPHeaderLength+1, 1)
		return &Telegram{transactionID: transactionID, unitID: unitID, functionCode: fc, payload: payload}, nil
	}

	if len(raw) == minResponseLength {
		return nil, fmt.Errorf("%w: frame of %d bytes is too short", ErrInvalidTelegram, len(raw))
	}
	spec, ok := lookupFunction(fc)
	if !ok {
		return nil, fmt.Errorf("%w: %w 0x%02X", ErrInvalidTelegram, ErrUnsupportedFunction, code)
	}

	var payload []byte
	switch spec.framing {
	case framingByteCount:
		count, _ := ExtractByte(raw, TCPHeaderLength+1)
		payload, ok = ExtractBytes(raw, TCPHeaderLength+1, int(count)+1)
	default:
		payload, ok = ExtractBytes(raw, TCPHeaderLength+1, len(raw)-TCPHeaderLength-1)
	}
	if !ok {
		return nil, fmt.Errorf("%w: payload of %s response is truncated", ErrInvalidTelegram, fc)
	}
	return &Telegram{transactionID: transactionID, unitID: unitID, functionCode: fc, payload: payload}, nil
}

// Encode renders the telegram as an MBAP frame.
func (t *Telegram) Encode() []byte {
	frame := make([]byte, TCPHeaderLength+1+len(t.payload))
	binary.BigEndian.PutUint16(frame[0:2], t.transactionID)
	binary.BigEndian.PutUint16(frame[2:4], ProtocolIdentifierTCP)
	// Length counts the unit identifier, the function code and the payload.
	binary.BigEndian.PutUint16(frame[4:6], uint16(len(t.payload)+2))
	frame[6] = t.unitID
	frame[7] = byte(t.functionCode)
	copy(frame[8:], t.payload)
	return frame
}

func (t *Telegram) TransactionID() uint16 { return t.transactionID }

func (t *Telegram) UnitID() uint8 { return t.unitID }

func (t *Telegram) FunctionCode() FunctionCode { return t.functionCode }

// Payload returns a copy of the bytes following the function code.
func (t *Telegram) Payload() []byte {
	p := make([]byte, len(t.payload))
	copy(p, t.payload)
	return p
}

// ExpectedByteCount returns the response length hint, present only when it
// covers more than the MBAP header.
func (t *Telegram) ExpectedByteCount() (uint16, bool) {
	if t.expectedBytes <= TCPHeaderLength {
		return 0, false
	}
	return t.expectedBytes, true
}

// VerifyFunctionCode reports whether response answers request.
func VerifyFunctionCode(request, response *Telegram) bool {
	if request == nil || response == nil {
		return false
	}
	if request.functionCode == 0 || response.functionCode == 0 {
		return false
	}
	return request.functionCode == response.functionCode
}
