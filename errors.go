package modbus

import "errors"

var (
	ErrAddressOverflow     = errors.New("modbus: address range overflow")
	ErrQuantityTooLow      = errors.New("modbus: quantity too low")
	ErrQuantityTooHigh     = errors.New("modbus: quantity too high")
	ErrInvalidCoilValue    = errors.New("modbus: invalid coil value")
	ErrCoilByteCount       = errors.New("modbus: packed coil bytes do not match quantity")
	ErrInvalidTelegram     = errors.New("modbus: invalid telegram")
	ErrUnsupportedFunction = errors.New("modbus: unsupported function code")
	ErrNoExpectedLength    = errors.New("modbus: telegram has no expected response length")
	ErrInvalidResponseData = errors.New("modbus: response data is invalid")
	ErrFunctionMismatch    = errors.New("modbus: response function code does not match request")
	ErrNotConnected        = errors.New("modbus: not connected")
	ErrClientBusy          = errors.New("modbus: client is busy")
	ErrInvalidAddress      = errors.New("modbus: invalid network address")
)
