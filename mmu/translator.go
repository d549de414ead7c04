package mmu

import (
	"errors"

	"memcore/arch"
	"memcore/cache"
	"memcore/merr"
	"memcore/physmem"
	"memcore/types"
)

// Translator is a stateless, reentrant wrapper around Walk (spec §4.3): "a
// value owning an ArchMMUSpec and scratch buffers... stateless across
// calls; reentrant." Scratch allocation lives inside Walk itself (it is
// proportional to batch size, per spec §5's resource policy); Translator's
// job is simply to pin down the architecture so call sites don't thread it
// through separately.
//
// TLB optionally attaches a translation cache (spec §4.6): when set,
// Translate consults it before walking and populates it — including
// negative entries for known-unmapped pages — for whatever it had to walk,
// so a configured TLB actually short-circuits page-table walks instead of
// sitting beside the translator unused.
type Translator struct {
	Spec arch.Spec
	TLB  *cache.TLBCache

	archIdentity cache.ArchIdentity
}

// NewTranslator returns a Translator bound to spec.
func NewTranslator(spec arch.Spec) *Translator {
	return &Translator{Spec: spec, archIdentity: cache.Identify(spec)}
}

// WithTLB attaches tlb to t and returns t for chaining.
func (t *Translator) WithTLB(tlb *cache.TLBCache) *Translator {
	t.TLB = tlb
	return t
}

// pageMask is the low-bit mask of the finest leaf page this spec supports
// — the granularity TLB keys are rounded to.
func pageMask(spec arch.Spec) uint64 {
	m := spec.MMU
	return m.LeafSize(m.LastDepth()) - 1
}

// Translate walks pm's page tables at dtb for every request in reqs,
// returning one Result per Request. Results are not guaranteed to be in
// request order; each carries its Request's Context for matching. If
// t.TLB is set, requests whose page is already cached (positively or
// negatively) are answered without touching pm at all; only genuine misses
// reach Walk, and their outcomes are written back into the TLB.
//
// Go methods cannot carry their own type parameters, so this is a
// package-level function taking the Translator rather than a method on
// it; Translator itself stays a plain, non-generic value.
func Translate[C any](t *Translator, pm physmem.PhysicalMemory, dtb types.Address, reqs []Request[C]) []Result[C] {
	if t.TLB == nil {
		return Walk(pm, t.Spec, dtb, reqs)
	}

	const op = "mmu.Translate"
	mask := pageMask(t.Spec)
	results := make([]Result[C], len(reqs))
	var missIdx []int
	var missReqs []Request[C]

	for i, r := range reqs {
		key := cache.TLBKey{Arch: t.archIdentity, DTB: dtb, VPage: r.Vaddr &^ mask}
		entry, ok := t.TLB.Lookup(key)
		if !ok {
			missIdx = append(missIdx, i)
			missReqs = append(missReqs, r)
			continue
		}
		if entry.Negative {
			results[i] = Result[C]{Context: r.Context, Vaddr: r.Vaddr,
				Err: merr.Wrap(merr.TranslationFailure, op, "page table entry not present (cached)",
					&Failure{LastLevel: types.UnknownPageLevel})}
			continue
		}
		// The TLB holds the physical address of the page's first byte; add
		// this request's in-page offset back.
		paddr := entry.Paddr
		paddr.Address = paddr.Address.Add(r.Vaddr & mask)
		results[i] = Result[C]{Context: r.Context, Vaddr: r.Vaddr, Paddr: paddr}
	}

	if len(missReqs) == 0 {
		return results
	}

	walked := Walk(pm, t.Spec, dtb, missReqs)
	for j, res := range walked {
		i := missIdx[j]
		results[i] = res
		key := cache.TLBKey{Arch: t.archIdentity, DTB: dtb, VPage: res.Vaddr &^ mask}
		switch {
		case res.Err == nil:
			page := res.Paddr
			page.Address = page.Address.Sub(res.Vaddr & mask)
			t.TLB.Insert(key, page)
		case isUnmapped(res.Err):
			// Not present / non-canonical: a stable fact about this page
			// table, worth caching negatively. A backend read failure is
			// not — the backend may simply be transiently unavailable.
			t.TLB.InsertNegative(key)
		}
	}
	return results
}

func isUnmapped(err error) bool {
	var f *Failure
	return errors.As(err, &f) && f.Cause == nil
}
