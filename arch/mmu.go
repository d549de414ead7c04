package arch

import "memcore/merr"

// MMUSpec fully describes one paging hierarchy (spec §3 ArchMMUSpec).
//
// Splits is ordered root-to-leaf: Splits[0] is the index width of the
// table closest to the DTB, and Splits[len(Splits)-1] is the in-page
// offset width. This matches how every concrete architecture below states
// its own hierarchy (e.g. x86: PDE=10 bits, PTE=10 bits, offset=12 bits).
//
// Walk rounds are counted the same way, root-first: round 0 reads the PTE
// in the table pointed to by the DTB, round 1 reads the next table down,
// and so on until the round count reaches NumLevels()-1 (the finest,
// "last_level" in spec §4.2's algorithm).
//
// Results instead report a PageSizeLevel numbered the opposite way —
// finest-first, 0 meaning the smallest page the architecture supports —
// because that is the numbering spec §8's invariants and worked examples
// use ("x86: level-0 leaf = 4 KiB, level-1 leaf = 4 MiB"). PageSizeLevel
// and DepthForPageSizeLevel convert between the two.
type MMUSpec struct {
	Splits              []uint8
	ValidFinalPageSteps []int // PageSizeLevel values where a large-page leaf is permitted
	AddressSpaceBits    uint8
	AddrSize            uint8
	PteSize             uint8
	PresentBit          uint8
	WriteableBit        uint8
	NxBit               uint8
	HasNX               bool
	LargePageBit        uint8
}

// NumLevels is the number of real page-table levels walked (excludes the
// trailing in-page-offset entry of Splits).
func (m MMUSpec) NumLevels() int {
	return len(m.Splits) - 1
}

// VirtualAddressBits is the sum of all splits, i.e. the width of a fully
// decodable virtual address under this hierarchy (spec §3 invariant:
// sum(virtual_address_splits) == virtual_address_bits).
func (m MMUSpec) VirtualAddressBits() int {
	total := 0
	for _, s := range m.Splits {
		total += int(s)
	}
	return total
}

// LastDepth is the root-first walk-round index at which the walk must
// terminate even without a large-page bit: the finest level.
func (m MMUSpec) LastDepth() int {
	return m.NumLevels() - 1
}

// PageSizeLevel converts a root-first walk depth into the finest-first
// level number reported on results.
func (m MMUSpec) PageSizeLevel(depth int) int {
	return m.NumLevels() - 1 - depth
}

// DepthForPageSizeLevel is PageSizeLevel's inverse.
func (m MMUSpec) DepthForPageSizeLevel(level int) int {
	return m.NumLevels() - 1 - level
}

// shiftAtDepth is the number of low bits of a virtual address that lie
// below the table index at the given root-first depth: the combined width
// of every finer level plus the in-page offset. It is both the right-shift
// needed to extract that depth's table index and the number of low bits a
// leaf terminating at that depth leaves unmasked.
func (m MMUSpec) shiftAtDepth(depth int) uint64 {
	var total uint64
	for _, s := range m.Splits[depth+1:] {
		total += uint64(s)
	}
	return total
}

// IndexAtDepth returns the table-entry index a virtual address selects at
// the given root-first walk depth.
func (m MMUSpec) IndexAtDepth(vaddr uint64, depth int) uint64 {
	shift := m.shiftAtDepth(depth)
	width := m.Splits[depth]
	mask := uint64(1)<<width - 1
	return (vaddr >> shift) & mask
}

// LeafSize returns the size in bytes of a leaf page terminating at the
// given root-first depth.
func (m MMUSpec) LeafSize(depth int) uint64 {
	return 1 << m.shiftAtDepth(depth)
}

// FrameMask is the mask applied to a non-leaf PTE to recover the physical
// address of the next table down: every page table, at any depth, occupies
// exactly one page of the finest size, so this mask is constant across
// depths.
func (m MMUSpec) FrameMask() uint64 {
	shift := m.shiftAtDepth(m.LastDepth())
	return MakeBitMask(uint8(shift), m.AddressSpaceBits-1)
}

// LeafMask is the mask applied to a leaf PTE at the given root-first depth
// to recover the physical frame base (spec §8 invariant 2).
func (m MMUSpec) LeafMask(depth int) uint64 {
	shift := m.shiftAtDepth(depth)
	return MakeBitMask(uint8(shift), m.AddressSpaceBits-1)
}

// IsLargePageCapable reports whether a leaf is permitted to terminate at
// the given root-first depth before reaching LastDepth.
func (m MMUSpec) IsLargePageCapable(depth int) bool {
	level := m.PageSizeLevel(depth)
	for _, l := range m.ValidFinalPageSteps {
		if l == level {
			return true
		}
	}
	return false
}

// Present reports whether pte's present bit is set.
func (m MMUSpec) Present(pte uint64) bool {
	return pte&(1<<m.PresentBit) != 0
}

// Writeable reports whether pte's writeable bit is set.
func (m MMUSpec) Writeable(pte uint64) bool {
	return pte&(1<<m.WriteableBit) != 0
}

// Executable reports whether execution is permitted: the inverse of the
// NX bit where the architecture supports NX, else always true (spec §9
// open question: "nx_bit=31 for non-PAE x86 ... treat NX as absent").
func (m MMUSpec) Executable(pte uint64) bool {
	if !m.HasNX {
		return true
	}
	return pte&(1<<m.NxBit) == 0
}

// LargePage reports whether pte's large-page bit is set.
func (m MMUSpec) LargePage(pte uint64) bool {
	return pte&(1<<m.LargePageBit) != 0
}

// Validate checks the invariants spec §3 states for an ArchMMUSpec.
func (m MMUSpec) Validate() error {
	const op = "arch.MMUSpec.Validate"
	if len(m.Splits) < 2 {
		return merr.New(merr.InvalidArchitecture, op, "mmu spec needs at least one table level plus an offset entry")
	}
	if m.PteSize == 0 || m.PteSize&(m.PteSize-1) != 0 {
		return merr.New(merr.InvalidArchitecture, op, "pte_size must be a power of two")
	}
	for _, l := range m.ValidFinalPageSteps {
		if l < 0 || l >= m.NumLevels() {
			return merr.New(merr.InvalidArchitecture, op, "valid_final_page_steps entry out of range")
		}
	}
	return nil
}
