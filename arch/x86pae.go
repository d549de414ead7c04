package arch

// X86PAE returns the descriptor for 32-bit PAE paging: a three-level
// hierarchy (PDPT, PDE, PTE) with 4 KiB pages and 2 MiB large pages at the
// PDE level. PAE extends the physical address space to 36 bits and widens
// PTEs to 8 bytes; NX becomes available.
func X86PAE() Spec {
	return Spec{
		Bits:        Bits32PAE,
		Endian:      LittleEndian,
		PointerSize: 4,
		MMU: MMUSpec{
			Splits:              []uint8{2, 9, 9, 12},
			ValidFinalPageSteps: []int{1}, // 2 MiB pages terminate at the PDE (level 1)
			AddressSpaceBits:    36,
			AddrSize:            4,
			PteSize:             8,
			PresentBit:          0,
			WriteableBit:        1,
			NxBit:               63,
			HasNX:               true,
			LargePageBit:        7,
		},
	}
}
