package arch

// X86 returns the descriptor for 32-bit non-PAE paging: a two-level
// hierarchy (PDE, PTE) with 4 KiB pages and 4 MiB large pages at the PDE
// level. NX is nominally unsupported on non-PAE x86 (spec §9 open
// question), so Executable always reports true for PTEs under this spec.
func X86() Spec {
	return Spec{
		Bits:        Bits32,
		Endian:      LittleEndian,
		PointerSize: 4,
		MMU: MMUSpec{
			Splits:              []uint8{10, 10, 12},
			ValidFinalPageSteps: []int{1}, // 4 MiB pages terminate at the PDE (level 1)
			AddressSpaceBits:    32,
			AddrSize:            4,
			PteSize:             4,
			PresentBit:          0,
			WriteableBit:        1,
			NxBit:               31,
			HasNX:               false,
			LargePageBit:        7,
		},
	}
}
