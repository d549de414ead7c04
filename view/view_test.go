package view

import (
	"bytes"
	"testing"

	"memcore/arch"
	"memcore/mmu"
	"memcore/physmem"
	"memcore/types"
)

func putPTE(d *physmem.Dummy, addr types.Address, size uint8, endian arch.Endianness, pte uint64) {
	buf := make([]byte, size)
	bo := endian.ByteOrder()
	switch size {
	case 4:
		bo.PutUint32(buf, uint32(pte))
	case 8:
		bo.PutUint64(buf, pte)
	}
	d.WritePhysical(addr, buf)
}

func newX86TestView(t *testing.T, mappings map[uint64]types.Address) (*VirtualMemory, *physmem.Dummy) {
	t.Helper()
	spec := arch.X86()
	m := spec.MMU
	d := physmem.NewDummy(4 * 1024 * 1024)
	const dtb = types.Address(0x1000)

	for vaddr, frame := range mappings {
		pdeIdx := m.IndexAtDepth(vaddr, 0)
		pteTableAddr := types.Address(0x20000 + pdeIdx*uint64(m.PteSize)*1024)
		pdeAddr := dtb.Add(pdeIdx * uint64(m.PteSize))
		putPTE(d, pdeAddr, m.PteSize, spec.Endian, uint64(pteTableAddr)|1)

		pteIdx := m.IndexAtDepth(vaddr, 1)
		pteAddr := pteTableAddr.Add(pteIdx * uint64(m.PteSize))
		putPTE(d, pteAddr, m.PteSize, spec.Endian, uint64(frame)|1)
	}

	tr := mmu.NewTranslator(spec)
	vm := New(d, spec, spec, dtb, tr)
	return vm, d
}

func TestVirtReadWriteRoundTrip(t *testing.T) {
	vaddr := uint64(0x1000_0000)
	vm, _ := newX86TestView(t, map[uint64]types.Address{vaddr: 0x5000, vaddr + 4096: 0x6000})

	want := []byte("across a page boundary!!")
	if err := Write(vm, types.Address(vaddr+4096-8), want); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got := make([]byte, len(want))
	if err := ReadInto(vm, types.Address(vaddr+4096-8), got); err != nil {
		t.Fatalf("ReadInto: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("round trip mismatch: got %q want %q", got, want)
	}
}

func TestVirtReadPageStraddleZerosFailedPortion(t *testing.T) {
	vaddr := uint64(0x2000_0000)
	// Only map the first page; the second page of a straddling read shares
	// the first page's PDE but its PTE is left without a present bit.
	vm, d := newX86TestView(t, map[uint64]types.Address{vaddr: 0x6000})
	d.WritePhysical(0x6000+4096-4, []byte{0xDE, 0xAD, 0xBE, 0xEF})

	buf := make([]byte, 8) // last 4 bytes of page 1, first 4 of unmapped page 2
	var failures int
	err := vm.VirtRead([]ReadRequest{{Addr: types.Address(vaddr + 4096 - 4), Buf: buf}}, func(req ReadRequest, e error) {
		failures++
	})
	if err != nil {
		t.Fatalf("VirtRead: %v", err)
	}
	if failures != 1 {
		t.Fatalf("expected exactly one failing fragment, got %d", failures)
	}
	if !bytes.Equal(buf[:4], []byte{0xDE, 0xAD, 0xBE, 0xEF}) {
		t.Errorf("first page's bytes should be untouched: %v", buf[:4])
	}
	for _, b := range buf[4:] {
		if b != 0 {
			t.Errorf("second page's bytes should be zero-filled, got %v", buf[4:])
			break
		}
	}
}

func TestReadAddrPointerWidth(t *testing.T) {
	vaddr := uint64(0x3000_0000)
	vm, _ := newX86TestView(t, map[uint64]types.Address{vaddr: 0x7000})

	buf := make([]byte, 4)
	vm.ProcArch.Endian.ByteOrder().PutUint32(buf, 0xCAFEBABE)
	if err := Write(vm, types.Address(vaddr), buf); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := ReadAddr(vm, types.Address(vaddr))
	if err != nil {
		t.Fatalf("ReadAddr: %v", err)
	}
	if got != types.Address(0xCAFEBABE) {
		t.Errorf("ReadAddr = %s, want 0xcafebabe", got)
	}
}

func TestReadCStringStopsAtNUL(t *testing.T) {
	vaddr := uint64(0x4000_0000)
	vm, _ := newX86TestView(t, map[uint64]types.Address{vaddr: 0x8000})
	if err := Write(vm, types.Address(vaddr), []byte("hello\x00garbage")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	s, err := ReadCString(vm, types.Address(vaddr), 64)
	if err != nil {
		t.Fatalf("ReadCString: %v", err)
	}
	if s != "hello" {
		t.Errorf("ReadCString = %q, want %q", s, "hello")
	}
}

func TestReadWideString(t *testing.T) {
	vaddr := uint64(0x5000_0000)
	vm, _ := newX86TestView(t, map[uint64]types.Address{vaddr: 0x9000})
	wide := []byte{'h', 0, 'i', 0, 0, 0}
	if err := Write(vm, types.Address(vaddr), wide); err != nil {
		t.Fatalf("Write: %v", err)
	}
	s, err := ReadWideString(vm, types.Address(vaddr), 64)
	if err != nil {
		t.Fatalf("ReadWideString: %v", err)
	}
	if s != "hi" {
		t.Errorf("ReadWideString = %q, want %q", s, "hi")
	}
}
