// Package mmu implements the batched page-table walker (spec §4.2): given
// an ArchMMUSpec, a DTB, and a set of virtual addresses, it produces
// physical translations in a bounded number of physical-read rounds — one
// round per paging level, regardless of batch size.
package mmu

import (
	"memcore/arch"
	"memcore/merr"
	"memcore/physmem"
	"memcore/types"
)

// Request is one virtual address to translate, carrying an opaque Context
// value the caller gets back alongside the Result so batches can be
// correlated without a parallel slice (spec §4.3: "translate(phys, dtb,
// iter<vaddr_with_context>) -> iter<(context, result)>").
type Request[C any] struct {
	Vaddr   uint64
	Context C
}

// Result is one translation outcome, matched back to its Request by
// Context.
type Result[C any] struct {
	Context C
	Vaddr   uint64
	Paddr   types.PhysicalAddress
	Err     error
}

// Failure is attached to a translation failure's error chain (via
// errors.As) so callers can inspect how far the walk got before it failed
// — spec §4.3: "negative results carry the last successful level for
// diagnostics."
type Failure struct {
	// LastLevel is the finest-first PageSizeLevel of the last table the
	// walk successfully read a present PTE from, or
	// types.UnknownPageLevel if the walk never got past the DTB.
	LastLevel types.PageSizeLevel
	// Cause is the underlying backend error, if the failure was a read
	// failure rather than a not-present PTE or canonicality violation.
	Cause error
}

func (f *Failure) Error() string {
	if f.Cause != nil {
		return f.Cause.Error()
	}
	return "mmu: translation failed"
}

func (f *Failure) Unwrap() error { return f.Cause }

// chunk is a TranslationChunk (spec §3): a live unit of work during a
// batched walk. Many requests may share a chunk's table base and depth
// after earlier rounds fan them in toward the same PTE address; splitting
// happens only when a round advances each surviving request to its own
// next-table address.
type chunk[C any] struct {
	req       Request[C]
	tableBase types.Address
	depth     int
	lastLevel types.PageSizeLevel
}

// Walk performs one batched translation of reqs against dtb under m,
// reading through pm (which may itself be a caching decorator). It issues
// at most m.NumLevels() rounds of physical reads regardless of len(reqs).
func Walk[C any](pm physmem.PhysicalMemory, spec arch.Spec, dtb types.Address, reqs []Request[C]) []Result[C] {
	const op = "mmu.Walk"
	m := spec.MMU
	results := make([]Result[C], 0, len(reqs))

	live := make([]*chunk[C], 0, len(reqs))
	for _, r := range reqs {
		if !spec.IsCanonical(r.Vaddr) {
			results = append(results, Result[C]{Context: r.Context, Vaddr: r.Vaddr,
				Err: merr.Wrap(merr.TranslationFailure, op, "virtual address is not canonical",
					&Failure{LastLevel: types.UnknownPageLevel})})
			continue
		}
		live = append(live, &chunk[C]{req: r, tableBase: dtb, depth: 0, lastLevel: types.UnknownPageLevel})
	}

	for len(live) > 0 {
		depth := live[0].depth

		// Deduplicate identical PTE physical addresses across chunks
		// (spec §4.2 tie-break): one physical read serves every chunk
		// that lands on the same PTE.
		pteAddrOf := make([]types.Address, len(live))
		order := make([]types.Address, 0, len(live))
		seen := make(map[types.Address]int) // pte addr -> index into unique reqs
		var uniqueReqs []physmem.ReadRequest
		buffers := make(map[types.Address][]byte)

		for i, c := range live {
			idx := m.IndexAtDepth(c.req.Vaddr, depth)
			pteAddr := c.tableBase.Add(idx * uint64(m.PteSize))
			pteAddrOf[i] = pteAddr
			if _, ok := seen[pteAddr]; !ok {
				seen[pteAddr] = len(uniqueReqs)
				buf := make([]byte, m.PteSize)
				buffers[pteAddr] = buf
				uniqueReqs = append(uniqueReqs, physmem.ReadRequest{
					Addr: types.NewPhysicalAddress(pteAddr),
					Buf:  buf,
				})
				order = append(order, pteAddr)
			}
		}

		failed := make(map[types.Address]error)
		if err := pm.ReadRaw(uniqueReqs, func(req physmem.ReadRequest, e error) {
			failed[req.Addr.Address] = e
		}); err != nil {
			// Backend died: every chunk in this round fails fatally.
			for _, c := range live {
				results = append(results, Result[C]{Context: c.req.Context, Vaddr: c.req.Vaddr,
					Err: merr.Wrap(merr.BackendError, op, "physical backend failed", err)})
			}
			return results
		}

		var next []*chunk[C]
		for i, c := range live {
			pteAddr := pteAddrOf[i]
			if err, ok := failed[pteAddr]; ok {
				results = append(results, Result[C]{Context: c.req.Context, Vaddr: c.req.Vaddr,
					Err: merr.Wrap(merr.BackendError, op, "failed to read page table entry",
						&Failure{LastLevel: c.lastLevel, Cause: err})})
				continue
			}
			pte := decodePTE(buffers[pteAddr], m.PteSize, spec.Endian)

			if !m.Present(pte) {
				results = append(results, Result[C]{Context: c.req.Context, Vaddr: c.req.Vaddr,
					Err: merr.Wrap(merr.TranslationFailure, op, "page table entry not present",
						&Failure{LastLevel: c.lastLevel})})
				continue
			}

			level := types.PageSizeLevel(m.PageSizeLevel(depth))
			isLeaf := depth == m.LastDepth() || (m.IsLargePageCapable(depth) && m.LargePage(pte))
			if isLeaf {
				leafMask := m.LeafMask(depth)
				frame := types.Address(pte & leafMask)
				// Low bits come from the leaf's own size, not from
				// inverting leafMask: leafMask only covers bits
				// [shift, AddressSpaceBits-1], so &^ leaves a canonical
				// 64-bit vaddr's sign-extended high bits (e.g. the
				// 0xFFFF... half of kernel-space addresses) set in
				// lowBits instead of masking them off.
				lowBits := c.req.Vaddr & (m.LeafSize(depth) - 1)
				paddr := types.NewPhysicalAddress(frame.Add(lowBits)).WithMetadata(types.PageMetadata{
					Level:      level,
					Readable:   true,
					Writeable:  m.Writeable(pte),
					Executable: m.Executable(pte),
				})
				results = append(results, Result[C]{Context: c.req.Context, Vaddr: c.req.Vaddr, Paddr: paddr})
				continue
			}

			nextTable := types.Address(pte & m.FrameMask())
			c.tableBase = nextTable
			c.depth = depth + 1
			c.lastLevel = level
			next = append(next, c)
		}
		live = next
	}

	return results
}

func decodePTE(buf []byte, size uint8, endian arch.Endianness) uint64 {
	bo := endian.ByteOrder()
	switch size {
	case 4:
		return uint64(bo.Uint32(buf))
	case 8:
		return bo.Uint64(buf)
	default:
		var v uint64
		if endian == arch.BigEndian {
			for _, b := range buf {
				v = v<<8 | uint64(b)
			}
		} else {
			for i := len(buf) - 1; i >= 0; i-- {
				v = v<<8 | uint64(buf[i])
			}
		}
		return v
	}
}
