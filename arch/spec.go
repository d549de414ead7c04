package arch

// Spec is an immutable architecture descriptor (spec §3 ArchitectureSpec).
// A VirtualMemory view binds two of these: a "system" arch used for
// descriptor tables (DTB lookups) and a "process" arch used for on-target
// pointer widths, so a 32-bit process under a 64-bit kernel is expressed
// correctly.
type Spec struct {
	Bits        Bits
	Endian      Endianness
	PointerSize uint8
	MMU         MMUSpec
}

// Equal reports value equality (spec §3: "Equal identity iff all fields
// match"). MMUSpec holds slices, so this can't be done with a plain ==.
func (s Spec) Equal(o Spec) bool {
	if s.Bits != o.Bits || s.Endian != o.Endian || s.PointerSize != o.PointerSize {
		return false
	}
	return mmuEqual(s.MMU, o.MMU)
}

func mmuEqual(a, b MMUSpec) bool {
	if a.AddressSpaceBits != b.AddressSpaceBits ||
		a.AddrSize != b.AddrSize ||
		a.PteSize != b.PteSize ||
		a.PresentBit != b.PresentBit ||
		a.WriteableBit != b.WriteableBit ||
		a.NxBit != b.NxBit ||
		a.HasNX != b.HasNX ||
		a.LargePageBit != b.LargePageBit {
		return false
	}
	if len(a.Splits) != len(b.Splits) {
		return false
	}
	for i := range a.Splits {
		if a.Splits[i] != b.Splits[i] {
			return false
		}
	}
	if len(a.ValidFinalPageSteps) != len(b.ValidFinalPageSteps) {
		return false
	}
	for i := range a.ValidFinalPageSteps {
		if a.ValidFinalPageSteps[i] != b.ValidFinalPageSteps[i] {
			return false
		}
	}
	return true
}

// IsCanonical reports whether vaddr is a valid address under s's virtual
// address width. On 64-bit architectures this is the sign-extension
// canonicality check from the glossary; on 32-bit/PAE architectures the
// virtual address space is simply bounded, so any value that fits is
// canonical.
func (s Spec) IsCanonical(vaddr uint64) bool {
	bits := s.MMU.VirtualAddressBits()
	if bits >= 64 {
		return true
	}
	if s.Bits != Bits64 {
		// Bounded address space: high bits beyond the virtual width must
		// be zero.
		return vaddr>>uint(bits) == 0
	}
	// Sign-extension canonicality: bits [bits-1, 63] must all equal bit
	// (bits-1).
	top := vaddr >> uint(bits-1)
	return top == 0 || top == (^uint64(0)>>uint(bits-1))
}
