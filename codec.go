package modbus

import "encoding/binary"

// AppendByte appends a single byte to dst.
func AppendByte(dst []byte, b byte) []byte {
	return append(dst, b)
}

// AppendWord appends w to dst in big-endian order.
func AppendWord(dst []byte, w uint16) []byte {
	return binary.BigEndian.AppendUint16(dst, w)
}

// AppendBytes appends src to dst.
func AppendBytes(dst []byte, src []byte) []byte {
	return append(dst, src...)
}

// ExtractByte returns src[index], or false when index is out of range.
func ExtractByte(src []byte, index int) (byte, bool) {
	if index < 0 || index >= len(src) {
		return 0, false
	}
	return src[index], true
}

// ExtractBytes returns a copy of count bytes starting at start.
// A zero count or a range past the end of src yields false.
func ExtractBytes(src []byte, start, count int) ([]byte, bool) {
	if count <= 0 || start < 0 || start+count > len(src) {
		return nil, false
	}
	out := make([]byte, count)
	copy(out, src[start:start+count])
	return out, true
}

// ExtractWord reads the big-endian word at index.
func ExtractWord(src []byte, index int) (uint16, bool) {
	if index < 0 || index+2 > len(src) {
		return 0, false
	}
	return binary.BigEndian.Uint16(src[index:]), true
}

// WordToBytes splits w into its high and low byte.
func WordToBytes(w uint16) [2]byte {
	return [2]byte{byte(w >> 8), byte(w)}
}

// BytesToWord joins src[index] and src[index+1] into a word, high byte first.
func BytesToWord(src []byte, index int) uint16 {
	w, _ := ExtractWord(src, index)
	return w
}

// BytesToWords decodes count big-endian words starting at start.
// It returns an empty slice when src does not hold all of them.
func BytesToWords(src []byte, start, count int) []uint16 {
	if count <= 0 || start < 0 || start+2*count > len(src) {
		return []uint16{}
	}
	words := make([]uint16, count)
	for i := range words {
		words[i] = binary.BigEndian.Uint16(src[start+2*i:])
	}
	return words
}

// WordsToBytes encodes words in big-endian order.
func WordsToBytes(words []uint16) []byte {
	out := make([]byte, 0, 2*len(words))
	for _, w := range words {
		out = AppendWord(out, w)
	}
	return out
}
