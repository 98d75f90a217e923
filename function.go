package modbus

import "fmt"

// FunctionCode identifies a MODBUS request.
type FunctionCode uint8

// Supported function codes.
const (
	FuncReadCoils              FunctionCode = 0x01
	FuncReadDiscreteInputs     FunctionCode = 0x02
	FuncReadHoldingRegisters   FunctionCode = 0x03
	FuncReadInputRegisters     FunctionCode = 0x04
	FuncWriteSingleCoil        FunctionCode = 0x05
	FuncWriteSingleRegister    FunctionCode = 0x06
	FuncWriteMultipleCoils     FunctionCode = 0x0F
	FuncWriteMultipleRegisters FunctionCode = 0x10
)

// exceptionFlag is set in the function code of an exception response.
const exceptionFlag = 0x80

// Quantity limits per request.
const (
	MaxReadBits       = 2000
	MaxReadRegisters  = 125
	MaxWriteCoils     = 1968
	MaxWriteRegisters = 123
)

// Coil states as they appear on the wire.
const (
	CoilWordOff uint16 = 0x0000
	CoilWordOn  uint16 = 0xFF00
)

// writeResponseLength is the full length of every write echo: MBAP + fc + two words.
const writeResponseLength = 12

func (fc FunctionCode) String() string {
	if spec, ok := lookupFunction(fc); ok {
		return spec.name
	}
	if fc&exceptionFlag != 0 {
		if spec, ok := lookupFunction(fc &^ exceptionFlag); ok {
			return spec.name + " exception"
		}
	}
	return fmt.Sprintf("unknown function 0x%02X", uint8(fc))
}

// IsException reports whether fc carries the exception flag.
func (fc FunctionCode) IsException() bool {
	return fc&exceptionFlag != 0
}

// payloadFraming tells the decoder where a response payload ends.
type payloadFraming int

const (
	framingByteCount payloadFraming = iota // byte 8 counts the bytes that follow
	framingEcho                            // everything after the function code
)

// functionSpec holds everything that differs between function codes.
type functionSpec struct {
	name          string
	minQuantity   uint16
	maxQuantity   uint16
	checkOverflow bool
	framing       payloadFraming
	expected      func(quantity uint16) uint16
}

func bitResponseLength(quantity uint16) uint16 {
	return 7 + 2 + (quantity+7)/8
}

func registerResponseLength(quantity uint16) uint16 {
	return 7 + 2 + 2*quantity
}

func echoResponseLength(uint16) uint16 {
	return writeResponseLength
}

var functionSpecs = map[FunctionCode]functionSpec{
	FuncReadCoils: {
		name: "read coils", minQuantity: 1, maxQuantity: MaxReadBits,
		checkOverflow: true, framing: framingByteCount, expected: bitResponseLength,
	},
	FuncReadDiscreteInputs: {
		name: "read discrete inputs", minQuantity: 1, maxQuantity: MaxReadBits,
		checkOverflow: true, framing: framingByteCount, expected: bitResponseLength,
	},
	FuncReadHoldingRegisters: {
		name: "read holding registers", minQuantity: 1, maxQuantity: MaxReadRegisters,
		checkOverflow: true, framing: framingByteCount, expected: registerResponseLength,
	},
	FuncReadInputRegisters: {
		name: "read input registers", minQuantity: 1, maxQuantity: MaxReadRegisters,
		checkOverflow: true, framing: framingByteCount, expected: registerResponseLength,
	},
	FuncWriteSingleCoil: {
		name: "write single coil", framing: framingEcho, expected: echoResponseLength,
	},
	FuncWriteSingleRegister: {
		name: "write single register", framing: framingEcho, expected: echoResponseLength,
	},
	FuncWriteMultipleCoils: {
		name: "write multiple coils", minQuantity: 1, maxQuantity: MaxWriteCoils,
		checkOverflow: true, framing: framingEcho, expected: echoResponseLength,
	},
	FuncWriteMultipleRegisters: {
		name: "write multiple registers", minQuantity: 1, maxQuantity: MaxWriteRegisters,
		checkOverflow: true, framing: framingEcho, expected: echoResponseLength,
	},
}

func lookupFunction(fc FunctionCode) (functionSpec, bool) {
	spec, ok := functionSpecs[fc]
	return spec, ok
}
