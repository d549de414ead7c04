package arch

import "encoding/binary"

// ByteOrder returns the stdlib encoding/binary.ByteOrder matching e, so
// callers decoding guest integers never fall back to host byte order
// (spec §4.3 design note: "do not rely on host struct layout").
func (e Endianness) ByteOrder() binary.ByteOrder {
	if e == BigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}
