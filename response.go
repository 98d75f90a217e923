package modbus

// minReadPayload is the byte count plus the smallest data a server may return.
const minReadPayload = 4

// writeEchoPayload is the echoed address and value or quantity.
const writeEchoPayload = 4

// ParseBits unpacks quantity coil or discrete input states from a read
// response payload. The result is empty when the payload is too short.
func ParseBits(payload []byte, quantity uint16) []bool {
	if len(payload) < minReadPayload || quantity == 0 {
		return []bool{}
	}
	count, _ := ExtractByte(payload, 0)
	data, ok := ExtractBytes(payload, 1, int(count))
	if !ok || len(data)*8 < int(quantity) {
		return []bool{}
	}
	bits := make([]bool, quantity)
	for i := range bits {
		bits[i] = data[i/8]&(1<<(i%8)) != 0
	}
	return bits
}

// ParseRegisters decodes the big-endian words of a register read payload.
func ParseRegisters(payload []byte) []uint16 {
	if len(payload) < minReadPayload {
		return []uint16{}
	}
	count, _ := ExtractByte(payload, 0)
	if int(count)+1 > len(payload) {
		return []uint16{}
	}
	return BytesToWords(payload, 1, int(count)/2)
}

// ParseWriteEcho returns the echoed address and value (or quantity) of a
// write response.
func ParseWriteEcho(payload []byte) []uint16 {
	if len(payload) != writeEchoPayload {
		return []uint16{}
	}
	return BytesToWords(payload, 0, 2)
}

// ParseSingleCoilEcho reports the echoed coil state of a write single coil response.
func ParseSingleCoilEcho(payload []byte) []bool {
	if len(payload) != writeEchoPayload {
		return []bool{}
	}
	value, _ := ExtractWord(payload, 2)
	return []bool{value == CoilWordOn}
}
