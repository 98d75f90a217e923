package modbus

import "fmt"

// ExceptionCode is the one-byte reason a server gives for refusing a request.
type ExceptionCode uint8

const (
	ExceptionIllegalFunction     ExceptionCode = 0x01
	ExceptionIllegalDataAddress  ExceptionCode = 0x02
	ExceptionIllegalDataValue    ExceptionCode = 0x03
	ExceptionServerDeviceFailure ExceptionCode = 0x04
)

// ExceptionMessage returns a human-readable message for a MODBUS exception code.
func ExceptionMessage(code uint8) string {
	switch ExceptionCode(code) {
	case ExceptionIllegalFunction:
		return "Illegal Function"
	case ExceptionIllegalDataAddress:
		return "Illegal Data Address"
	case ExceptionIllegalDataValue:
		return "Illegal Data Value"
	case ExceptionServerDeviceFailure:
		return "Server Device Failure"
	default:
		return "Unknown Exception Code"
	}
}

func (c ExceptionCode) String() string {
	return ExceptionMessage(uint8(c))
}

// ModbusError describes a response whose function code did not answer the request.
type ModbusError struct {
	FunctionCode  FunctionCode  // function code carried by the response
	ExceptionCode ExceptionCode // reported or assumed exception
}

func (e *ModbusError) Error() string {
	return fmt.Sprintf("modbus: function 0x%02X, exception 0x%02X (%s)",
		uint8(e.FunctionCode), uint8(e.ExceptionCode), e.ExceptionCode)
}

// Is lets errors.Is match a ModbusError against ErrFunctionMismatch.
func (e *ModbusError) Is(target error) bool {
	return target == ErrFunctionMismatch
}
