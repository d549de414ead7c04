package arch

import "testing"

func TestX86LeafSizes(t *testing.T) {
	mmu := X86().MMU
	// level-0 (finest, PTE) leaf = 4 KiB; level-1 (PDE) leaf = 4 MiB.
	if got, want := mmu.LeafSize(mmu.DepthForPageSizeLevel(0)), uint64(4*1024); got != want {
		t.Errorf("level-0 leaf size = %#x, want %#x", got, want)
	}
	if got, want := mmu.LeafSize(mmu.DepthForPageSizeLevel(1)), uint64(4*1024*1024); got != want {
		t.Errorf("level-1 leaf size = %#x, want %#x", got, want)
	}
}

func TestX64LeafSizes(t *testing.T) {
	mmu := X64().MMU
	cases := []struct {
		level int
		want  uint64
	}{
		{0, 4 * 1024},
		{1, 2 * 1024 * 1024},
		{2, 1024 * 1024 * 1024},
	}
	for _, c := range cases {
		if got := mmu.LeafSize(mmu.DepthForPageSizeLevel(c.level)); got != c.want {
			t.Errorf("level-%d leaf size = %#x, want %#x", c.level, got, c.want)
		}
	}
}

func TestX86FrameMaskConstantAcrossDepths(t *testing.T) {
	mmu := X86().MMU
	want := MakeBitMask(12, 31)
	for depth := 0; depth < mmu.NumLevels(); depth++ {
		if got := mmu.FrameMask(); got != want {
			t.Errorf("FrameMask at depth %d = %#x, want %#x", depth, got, want)
		}
	}
}

func TestX86IndexAtDepth(t *testing.T) {
	mmu := X86().MMU
	vaddr := uint64(0x1ABC)
	// depth 0 (PDE) selects bits [31:22]; depth 1 (PTE) selects bits [21:12].
	if got, want := mmu.IndexAtDepth(vaddr, 0), uint64(0); got != want {
		t.Errorf("PDE index = %d, want %d", got, want)
	}
	if got, want := mmu.IndexAtDepth(vaddr, 1), uint64(1); got != want {
		t.Errorf("PTE index = %d, want %d", got, want)
	}
}

func TestMakeBitMask(t *testing.T) {
	if got, want := MakeBitMask(12, 31), uint64(0xFFFFF000); got != want {
		t.Errorf("MakeBitMask(12,31) = %#x, want %#x", got, want)
	}
	if got, want := MakeBitMask(0, 63), ^uint64(0); got != want {
		t.Errorf("MakeBitMask(0,63) = %#x, want %#x", got, want)
	}
	if got := MakeBitMask(5, 4); got != 0 {
		t.Errorf("MakeBitMask(5,4) = %#x, want 0", got)
	}
}

func TestSpecEqual(t *testing.T) {
	a := X86()
	b := X86()
	if !a.Equal(b) {
		t.Fatal("two X86() specs should be equal")
	}
	c := X64()
	if a.Equal(c) {
		t.Fatal("X86 and X64 specs must not be equal")
	}
}

func TestX64Canonicality(t *testing.T) {
	x64 := X64()
	if !x64.IsCanonical(0x0000_7FFF_FFFF_FFFF) {
		t.Error("expected low canonical address to be canonical")
	}
	if !x64.IsCanonical(0xFFFF_8000_0000_0000) {
		t.Error("expected high canonical address to be canonical")
	}
	if x64.IsCanonical(0x0000_8000_0000_0000) {
		t.Error("expected non-canonical address to be rejected")
	}
}

func TestX86NoNX(t *testing.T) {
	mmu := X86().MMU
	// Bit 31 set would normally mean NX, but x86 non-PAE has no NX bit.
	pte := uint64(1) << 31
	if !mmu.Executable(pte) {
		t.Error("x86 non-PAE should treat all present pages as executable")
	}
}

func TestValidateRejectsOutOfRangeLevel(t *testing.T) {
	mmu := X86().MMU
	mmu.ValidFinalPageSteps = []int{5}
	if err := mmu.Validate(); err == nil {
		t.Fatal("expected Validate to reject an out-of-range large-page level")
	}
}
