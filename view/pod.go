package view

import (
	"memcore/arch"
	"memcore/types"
)

// Decodable is a guest structure that declares its own wire layout (spec
// §9 design note: "require that guest-structure types declare their wire
// layout (size, alignment, endianness) and provide a byte-level decoder.
// Do not rely on host struct layout"). Size is the structure's
// on-the-wire byte length; Decode fills the receiver's fields from buf,
// which is exactly that many bytes, using endian for any multi-byte
// field.
type Decodable interface {
	Size() int
	Decode(buf []byte, endian arch.Endianness)
}

// ReadStruct reads v.Size() bytes at vaddr and decodes them into v, using
// vm.ProcArch's endianness.
func ReadStruct(vm *VirtualMemory, vaddr types.Address, v Decodable) error {
	buf := make([]byte, v.Size())
	if err := ReadInto(vm, vaddr, buf); err != nil {
		return err
	}
	v.Decode(buf, vm.ProcArch.Endian)
	return nil
}
