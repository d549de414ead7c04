package arch

// X64 returns the descriptor for 64-bit long-mode paging: a four-level
// hierarchy (PML4, PDPT, PDE, PTE) with 4 KiB pages, 2 MiB large pages at
// the PDE level and 1 GiB large pages at the PDPT level. The 48-bit
// virtual address space requires sign-extension canonicality (see
// Spec.IsCanonical); the 52-bit physical address space is the widest
// currently architected.
func X64() Spec {
	return Spec{
		Bits:        Bits64,
		Endian:      LittleEndian,
		PointerSize: 8,
		MMU: MMUSpec{
			Splits:              []uint8{9, 9, 9, 9, 12},
			ValidFinalPageSteps: []int{1, 2}, // 2 MiB at PDE (level 1), 1 GiB at PDPT (level 2)
			AddressSpaceBits:    52,
			AddrSize:            8,
			PteSize:             8,
			PresentBit:          0,
			WriteableBit:        1,
			NxBit:               63,
			HasNX:               true,
			LargePageBit:        7,
		},
	}
}
