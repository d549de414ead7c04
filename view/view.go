// Package view implements the virtual-memory reader (spec §4.4): it binds
// a physical source, a translator, a DTB, and a pair of architecture
// descriptors into scatter/gather virtual reads that survive partial
// translation failures.
package view

import (
	"memcore/arch"
	"memcore/merr"
	"memcore/mmu"
	"memcore/physmem"
	"memcore/types"
)

// ReadRequest is one element of a batched virtual read: Buf is filled
// from the virtual range starting at Addr.
type ReadRequest = types.MemData[types.Address]

// WriteRequest is a virtual write's counterpart.
type WriteRequest = types.MemData[types.Address]

// FailFunc receives each sub-request the view could not service, at
// page-straddle granularity (spec §4.4: "partial failures are reported at
// sub-request granularity"). Buf on the supplied ReadRequest is the
// zero-filled sub-slice that failed; Addr is where that sub-slice begins.
type FailFunc func(req ReadRequest, err error)

// WriteFailFunc is FailFunc's write-side counterpart.
type WriteFailFunc func(req WriteRequest, err error)

// VirtualMemory binds (phys_source, sys_arch, proc_arch, dtb, translator)
// (spec §4.4). SysArch governs how the DTB's page tables are interpreted;
// ProcArch governs pointer width and endianness for the convenience
// readers (ReadAddr, ReadCString, ReadWideString) — a 32-bit process under
// a 64-bit kernel is expressed by giving the two different Bits.
type VirtualMemory struct {
	Phys       physmem.PhysicalMemory
	SysArch    arch.Spec
	ProcArch   arch.Spec
	DTB        types.Address
	Translator *mmu.Translator
}

// New returns a VirtualMemory view. translator may be nil, in which case a
// fresh one bound to sysArch is created — most callers share one
// Translator across many views instead, since it is stateless and
// reentrant (spec §4.3).
func New(phys physmem.PhysicalMemory, sysArch, procArch arch.Spec, dtb types.Address, translator *mmu.Translator) *VirtualMemory {
	if translator == nil {
		translator = mmu.NewTranslator(sysArch)
	}
	return &VirtualMemory{Phys: phys, SysArch: sysArch, ProcArch: procArch, DTB: dtb, Translator: translator}
}

// pageSize is the finest leaf size SysArch's MMU supports — the alignment
// every scatter/gather decomposition uses (spec §4.4: "aligned to the
// smallest possible leaf size").
func (v *VirtualMemory) pageSize() uint64 {
	m := v.SysArch.MMU
	return m.LeafSize(m.LastDepth())
}

type fragment struct {
	vpage  types.Address
	offset uint64
	buf    []byte
}

func (v *VirtualMemory) splitByPage(vaddr types.Address, buf []byte) []fragment {
	ps := v.pageSize()
	var out []fragment
	addr := uint64(vaddr)
	remaining := buf
	for len(remaining) > 0 {
		page := addr &^ (ps - 1)
		offset := addr - page
		n := ps - offset
		if n > uint64(len(remaining)) {
			n = uint64(len(remaining))
		}
		out = append(out, fragment{vpage: types.Address(page), offset: offset, buf: remaining[:n]})
		remaining = remaining[n:]
		addr += n
	}
	return out
}

// VirtRead performs a batched scatter/gather virtual read (spec §4.4
// virt_read_raw). Every request is decomposed into page-aligned
// fragments; unique pages are translated once via the shared Translator,
// and a single batched physical read serves every fragment sharing a
// translated page.
func (v *VirtualMemory) VirtRead(reqs []ReadRequest, onFail FailFunc) error {
	const op = "view.VirtualMemory.VirtRead"

	var allFragments []fragment
	for _, req := range reqs {
		allFragments = append(allFragments, v.splitByPage(req.Addr, req.Buf)...)
	}

	uniquePages := make(map[types.Address]bool)
	var translateReqs []mmu.Request[types.Address]
	for _, f := range allFragments {
		if !uniquePages[f.vpage] {
			uniquePages[f.vpage] = true
			translateReqs = append(translateReqs, mmu.Request[types.Address]{Vaddr: uint64(f.vpage), Context: f.vpage})
		}
	}

	translations := mmu.Translate(v.Translator, v.Phys, v.DTB, translateReqs)
	paddrOf := make(map[types.Address]types.PhysicalAddress, len(translations))
	translationErr := make(map[types.Address]error, len(translations))
	for _, t := range translations {
		if t.Err != nil {
			translationErr[t.Context] = t.Err
			continue
		}
		paddrOf[t.Context] = t.Paddr
	}

	var physReqs []physmem.ReadRequest
	physReqFragment := make(map[types.Address][]fragment) // keyed by physical frame start, for dedup bookkeeping
	var okFragments []fragment
	for _, f := range allFragments {
		if err, failed := translationErr[f.vpage]; failed {
			zero(f.buf)
			if onFail != nil {
				onFail(ReadRequest{Addr: f.vpage.Add(f.offset), Buf: f.buf}, merr.Wrap(merr.TranslationFailure, op, "virtual page translation failed", err))
			}
			continue
		}
		paddr := paddrOf[f.vpage].Address.Add(f.offset)
		physReqs = append(physReqs, physmem.ReadRequest{Addr: types.NewPhysicalAddress(paddr), Buf: f.buf})
		physReqFragment[paddr] = append(physReqFragment[paddr], f)
		okFragments = append(okFragments, f)
	}

	if len(physReqs) == 0 {
		return nil
	}

	var backendErr error
	if err := v.Phys.ReadRaw(physReqs, func(req physmem.ReadRequest, e error) {
		for _, f := range physReqFragment[req.Addr.Address] {
			zero(f.buf)
			if onFail != nil {
				onFail(ReadRequest{Addr: f.vpage.Add(f.offset), Buf: f.buf}, merr.Wrap(merr.BackendError, op, "physical read failed for translated page", e))
			}
		}
	}); err != nil {
		backendErr = err
	}
	return backendErr
}

// VirtWrite performs a batched scatter/gather virtual write (spec §4.4
// virt_write_raw). Unlike reads, a failed fragment has nothing to
// zero-fill; it is simply reported.
func (v *VirtualMemory) VirtWrite(reqs []WriteRequest, onFail WriteFailFunc) error {
	const op = "view.VirtualMemory.VirtWrite"

	var allFragments []fragment
	for _, req := range reqs {
		allFragments = append(allFragments, v.splitByPage(req.Addr, req.Buf)...)
	}

	uniquePages := make(map[types.Address]bool)
	var translateReqs []mmu.Request[types.Address]
	for _, f := range allFragments {
		if !uniquePages[f.vpage] {
			uniquePages[f.vpage] = true
			translateReqs = append(translateReqs, mmu.Request[types.Address]{Vaddr: uint64(f.vpage), Context: f.vpage})
		}
	}

	translations := mmu.Translate(v.Translator, v.Phys, v.DTB, translateReqs)
	paddrOf := make(map[types.Address]types.PhysicalAddress, len(translations))
	translationErr := make(map[types.Address]error, len(translations))
	for _, t := range translations {
		if t.Err != nil {
			translationErr[t.Context] = t.Err
			continue
		}
		paddrOf[t.Context] = t.Paddr
	}

	var physReqs []physmem.WriteRequest
	physReqFragment := make(map[types.Address][]fragment)
	for _, f := range allFragments {
		if err, failed := translationErr[f.vpage]; failed {
			if onFail != nil {
				onFail(WriteRequest{Addr: f.vpage.Add(f.offset), Buf: f.buf}, merr.Wrap(merr.TranslationFailure, op, "virtual page translation failed", err))
			}
			continue
		}
		paddr := paddrOf[f.vpage].Address.Add(f.offset)
		physReqs = append(physReqs, physmem.WriteRequest{Addr: types.NewPhysicalAddress(paddr), Buf: f.buf})
		physReqFragment[paddr] = append(physReqFragment[paddr], f)
	}

	if len(physReqs) == 0 {
		return nil
	}

	if err := v.Phys.WriteRaw(physReqs, func(req physmem.WriteRequest, e error) {
		for _, f := range physReqFragment[req.Addr.Address] {
			if onFail != nil {
				onFail(WriteRequest{Addr: f.vpage.Add(f.offset), Buf: f.buf}, merr.Wrap(merr.BackendError, op, "physical write failed for translated page", e))
			}
		}
	}); err != nil {
		return err
	}
	return nil
}

func zero(buf []byte) {
	for i := range buf {
		buf[i] = 0
	}
}

// ReadInto is the scalar convenience wrapper over VirtRead.
func ReadInto(v *VirtualMemory, vaddr types.Address, dst []byte) error {
	var failErr error
	err := v.VirtRead([]ReadRequest{{Addr: vaddr, Buf: dst}}, func(_ ReadRequest, e error) { failErr = e })
	if err != nil {
		return err
	}
	return failErr
}

// Write is the scalar convenience wrapper over VirtWrite.
func Write(v *VirtualMemory, vaddr types.Address, src []byte) error {
	var failErr error
	err := v.VirtWrite([]WriteRequest{{Addr: vaddr, Buf: src}}, func(_ WriteRequest, e error) { failErr = e })
	if err != nil {
		return err
	}
	return failErr
}

// ReadAddr reads one pointer-sized value at vaddr, zero-extending a 4-byte
// pointer and honoring ProcArch's endianness (spec §4.4: "pointer-width
// awareness").
func ReadAddr(v *VirtualMemory, vaddr types.Address) (types.Address, error) {
	buf := make([]byte, v.ProcArch.PointerSize)
	if err := ReadInto(v, vaddr, buf); err != nil {
		return types.InvalidAddress, err
	}
	bo := v.ProcArch.Endian.ByteOrder()
	switch v.ProcArch.PointerSize {
	case 4:
		return types.Address(bo.Uint32(buf)), nil
	case 8:
		return types.Address(bo.Uint64(buf)), nil
	default:
		return types.InvalidAddress, merr.New(merr.InvalidArchitecture, "view.ReadAddr", "unsupported pointer size")
	}
}
