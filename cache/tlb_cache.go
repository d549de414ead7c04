package cache

import (
	"hash/fnv"

	"golang.org/x/sys/cpu"

	"memcore/arch"
	"memcore/types"
)

// ArchIdentity distinguishes architectures for TLB key purposes (spec §9
// design note: "include the architecture identity in the TLB key so that
// the same dtb under different arches does not alias"). It is derived
// from every field that affects translation, not just Bits, since two
// specs with the same Bits tag but different splits would otherwise
// collide.
type ArchIdentity uint64

// Identify computes spec's ArchIdentity.
func Identify(spec arch.Spec) ArchIdentity {
	h := fnv.New64a()
	write8 := func(v uint8) { h.Write([]byte{v}) }
	writeU64 := func(v uint64) {
		var b [8]byte
		for i := range b {
			b[i] = byte(v >> (8 * i))
		}
		h.Write(b[:])
	}
	write8(uint8(spec.Bits))
	write8(uint8(spec.Endian))
	write8(spec.PointerSize)
	writeU64(uint64(len(spec.MMU.Splits)))
	for _, s := range spec.MMU.Splits {
		write8(s)
	}
	write8(spec.MMU.AddressSpaceBits)
	write8(spec.MMU.AddrSize)
	write8(spec.MMU.PteSize)
	write8(spec.MMU.PresentBit)
	write8(spec.MMU.WriteableBit)
	write8(spec.MMU.NxBit)
	write8(spec.MMU.LargePageBit)
	if spec.MMU.HasNX {
		write8(1)
	} else {
		write8(0)
	}
	writeU64(uint64(len(spec.MMU.ValidFinalPageSteps)))
	for _, l := range spec.MMU.ValidFinalPageSteps {
		writeU64(uint64(l))
	}
	return ArchIdentity(h.Sum64())
}

// TLBKey identifies one cached translation (spec §4.6): arch identity,
// DTB, and virtual page (mmu.Translate fills VPage with the page-aligned
// virtual address).
type TLBKey struct {
	Arch  ArchIdentity
	DTB   types.Address
	VPage uint64
}

// TLBEntry is the cached translation outcome for a TLBKey. Negative
// reports a known-unmapped virtual page (spec §4.6: "negative caching for
// known-unmapped virtual pages is permitted and keyed with a sentinel");
// when Negative is true, Paddr is meaningless.
type TLBEntry struct {
	Paddr    types.PhysicalAddress
	Negative bool
}

type tlbSlot struct {
	key   TLBKey
	valid bool
	token Token
	entry TLBEntry
	_     cpu.CacheLinePad
}

// TLBCache is the translation-cache analogue to PageCache (spec §4.6):
// "identical slot discipline to the page cache."
type TLBCache struct {
	validator Validator
	slots     []tlbSlot
}

// NewTLBCache returns a TLBCache with the given slot count.
func NewTLBCache(slotCount int, validator Validator) *TLBCache {
	if slotCount <= 0 {
		slotCount = 1
	}
	return &TLBCache{validator: validator, slots: make([]tlbSlot, slotCount)}
}

func (c *TLBCache) slotFor(key TLBKey) *tlbSlot {
	h := fnv.New64a()
	var b [24]byte
	for i := 0; i < 8; i++ {
		b[i] = byte(uint64(key.Arch) >> (8 * i))
		b[8+i] = byte(uint64(key.DTB) >> (8 * i))
		b[16+i] = byte(key.VPage >> (8 * i))
	}
	h.Write(b[:])
	idx := h.Sum64() % uint64(len(c.slots))
	return &c.slots[idx]
}

// Lookup returns the cached entry for key, if any slot still holds it and
// the validator considers it fresh.
func (c *TLBCache) Lookup(key TLBKey) (TLBEntry, bool) {
	slot := c.slotFor(key)
	if slot.valid && slot.key == key && c.validator.IsValid(slot.token) {
		return slot.entry, true
	}
	return TLBEntry{}, false
}

// Insert populates key's slot with a successful translation.
func (c *TLBCache) Insert(key TLBKey, paddr types.PhysicalAddress) {
	slot := c.slotFor(key)
	slot.key = key
	slot.valid = true
	slot.token = c.validator.CurrentToken()
	slot.entry = TLBEntry{Paddr: paddr}
}

// InsertNegative records key as known-unmapped.
func (c *TLBCache) InsertNegative(key TLBKey) {
	slot := c.slotFor(key)
	slot.key = key
	slot.valid = true
	slot.token = c.validator.CurrentToken()
	slot.entry = TLBEntry{Negative: true}
}

// InvalidateDTB drops every slot belonging to dtb under any architecture,
// used when a caller knows a whole address space's mappings have changed
// (e.g. a guest context switch reusing the same DTB value for a different
// process is out of scope, but an explicit flush is still useful to
// expose to callers that track that themselves).
func (c *TLBCache) InvalidateDTB(dtb types.Address) {
	for i := range c.slots {
		if c.slots[i].valid && c.slots[i].key.DTB == dtb {
			c.slots[i].valid = false
			c.slots[i].token = InvalidToken
		}
	}
}
