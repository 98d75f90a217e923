package modbus

import "fmt"

// VerifyRequest checks address and quantity against the limits of fc.
// For write single coil the quantity argument is the coil value; write
// single register accepts any value.
func VerifyRequest(fc FunctionCode, address, quantity uint16) error {
	spec, ok := lookupFunction(fc)
	if !ok {
		return fmt.Errorf("%w: 0x%02X", ErrUnsupportedFunction, uint8(fc))
	}
	if fc == FuncWriteSingleCoil {
		if quantity != CoilWordOff && quantity != CoilWordOn {
			return fmt.Errorf("%w: %d, valid values are 0 [0x0000] and 65280 [0xFF00]", ErrInvalidCoilValue, quantity)
		}
		return nil
	}
	if spec.checkOverflow && uint32(address)+uint32(quantity) > 0xFFFF {
		return fmt.Errorf("%w: starting address %d and quantity %d are over 65535", ErrAddressOverflow, address, quantity)
	}
	if spec.maxQuantity == 0 {
		return nil
	}
	if quantity < spec.minQuantity {
		return fmt.Errorf("%w: %s quantity %d, must be at least %d", ErrQuantityTooLow, spec.name, quantity, spec.minQuantity)
	}
	if quantity > spec.maxQuantity {
		return fmt.Errorf("%w: %s quantity %d, must be lower or equal %d", ErrQuantityTooHigh, spec.name, quantity, spec.maxQuantity)
	}
	return nil
}

func buildAddressed(fc FunctionCode, transactionID uint16, unitID uint8, address, word uint16) (*Telegram, error) {
	if err := VerifyRequest(fc, address, word); err != nil {
		return nil, err
	}
	spec, _ := lookupFunction(fc)
	payload := AppendWord(AppendWord(make([]byte, 0, 4), address), word)
	return NewTelegram(transactionID, unitID, fc, payload, spec.expected(word))
}

// BuildReadCoils builds a function 0x01 request for quantity coils.
func BuildReadCoils(transactionID uint16, unitID uint8, address, quantity uint16) (*Telegram, error) {
	return buildAddressed(FuncReadCoils, transactionID, unitID, address, quantity)
}

// BuildReadDiscreteInputs builds a function 0x02 request.
func BuildReadDiscreteInputs(transactionID uint16, unitID uint8, address, quantity uint16) (*Telegram, error) {
	return buildAddressed(FuncReadDiscreteInputs, transactionID, unitID, address, quantity)
}

// BuildReadHoldingRegisters builds a function 0x03 request.
func BuildReadHoldingRegisters(transactionID uint16, unitID uint8, address, quantity uint16) (*Telegram, error) {
	return buildAddressed(FuncReadHoldingRegisters, transactionID, unitID, address, quantity)
}

// BuildReadInputRegisters builds a function 0x04 request.
func BuildReadInputRegisters(transactionID uint16, unitID uint8, address, quantity uint16) (*Telegram, error) {
	return buildAddressed(FuncReadInputRegisters, transactionID, unitID, address, quantity)
}

// BuildWriteSingleCoil builds a function 0x05 request. value must be
// CoilWordOff or CoilWordOn.
func BuildWriteSingleCoil(transactionID uint16, unitID uint8, address, value uint16) (*Telegram, error) {
	return buildAddressed(FuncWriteSingleCoil, transactionID, unitID, address, value)
}

// BuildWriteSingleRegister builds a function 0x06 request.
func BuildWriteSingleRegister(transactionID uint16, unitID uint8, address, value uint16) (*Telegram, error) {
	return buildAddressed(FuncWriteSingleRegister, transactionID, unitID, address, value)
}

// BuildWriteMultipleCoils builds a function 0x0F request. packed holds the
// coil states LSB first, see PackCoils.
func BuildWriteMultipleCoils(transactionID uint16, unitID uint8, address, quantity uint16, packed []byte) (*Telegram, error) {
	if err := VerifyRequest(FuncWriteMultipleCoils, address, quantity); err != nil {
		return nil, err
	}
	if want := int(quantity+7) / 8; len(packed) != want {
		return nil, fmt.Errorf("%w: %d coils need %d bytes, got %d", ErrCoilByteCount, quantity, want, len(packed))
	}
	payload := make([]byte, 0, 5+len(packed))
	payload = AppendWord(payload, address)
	payload = AppendWord(payload, quantity)
	payload = AppendByte(payload, byte(len(packed)))
	payload = AppendBytes(payload, packed)
	return NewTelegram(transactionID, unitID, FuncWriteMultipleCoils, payload, writeResponseLength)
}

// BuildWriteMultipleRegisters builds a function 0x10 request writing values
// starting at address.
func BuildWriteMultipleRegisters(transactionID uint16, unitID uint8, address uint16, values []uint16) (*Telegram, error) {
	if len(values) > MaxWriteRegisters {
		return nil, fmt.Errorf("%w: write multiple registers quantity %d, must be lower or equal %d",
			ErrQuantityTooHigh, len(values), MaxWriteRegisters)
	}
	quantity := uint16(len(values))
	if err := VerifyRequest(FuncWriteMultipleRegisters, address, quantity); err != nil {
		return nil, err
	}
	payload := make([]byte, 0, 5+2*len(values))
	payload = AppendWord(payload, address)
	payload = AppendWord(payload, quantity)
	payload = AppendByte(payload, byte(2*quantity))
	payload = AppendBytes(payload, WordsToBytes(values))
	return NewTelegram(transactionID, unitID, FuncWriteMultipleRegisters, payload, writeResponseLength)
}

// PackCoils packs coil states into ceil(n/8) bytes, least significant bit first.
func PackCoils(coils []bool) []byte {
	packed := make([]byte, (len(coils)+7)/8)
	for i, on := range coils {
		if on {
			packed[i/8] |= 1 << (i % 8)
		}
	}
	return packed
}
