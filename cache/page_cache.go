package cache

import (
	"hash/fnv"

	"golang.org/x/sys/cpu"

	"memcore/physmem"
	"memcore/types"
)

// pageSlot holds one cached page's bytes plus its validator stamp. The
// CacheLinePad keeps adjacent slots from sharing a cache line, which
// matters once several independent stacks (spec §5) read through the same
// PageCache concurrently from different goroutines driven by their own
// callers.
type pageSlot struct {
	paddr types.Address
	valid bool
	token Token
	data  []byte
	_     cpu.CacheLinePad
}

// PageCache wraps a PhysicalMemory source with a fixed-capacity,
// direct-mapped cache of raw physical-page bytes (spec §4.5).
type PageCache struct {
	underlying physmem.PhysicalMemory
	pageSize   uint64
	validator  Validator
	slots      []pageSlot
}

// NewPageCache returns a PageCache of the given page size and byte
// capacity, wrapping underlying. capacityBytes/pageSize slots are
// allocated (rounded down), with a minimum of one.
func NewPageCache(underlying physmem.PhysicalMemory, pageSize uint64, capacityBytes uint64, validator Validator) *PageCache {
	slotCount := capacityBytes / pageSize
	if slotCount == 0 {
		slotCount = 1
	}
	return &PageCache{
		underlying: underlying,
		pageSize:   pageSize,
		validator:  validator,
		slots:      make([]pageSlot, slotCount),
	}
}

func (c *PageCache) slotFor(pagePaddr types.Address) *pageSlot {
	h := fnv.New64a()
	var b [8]byte
	for i := range b {
		b[i] = byte(pagePaddr >> (8 * i))
	}
	h.Write(b[:])
	idx := h.Sum64() % uint64(len(c.slots))
	return &c.slots[idx]
}

// pageRange is one page-aligned fragment of a caller's request.
type pageRange struct {
	pagePaddr types.Address
	offset    uint64 // offset within the page
	buf       []byte // destination/source slice for this fragment
	reqIdx    int
}

func (c *PageCache) splitByPage(reqs []physmem.ReadRequest) []pageRange {
	var out []pageRange
	for i, req := range reqs {
		addr := uint64(req.Addr.Address)
		remaining := req.Buf
		for len(remaining) > 0 {
			pagePaddr := types.Address(addr &^ (c.pageSize - 1))
			offset := addr & (c.pageSize - 1)
			n := c.pageSize - offset
			if n > uint64(len(remaining)) {
				n = uint64(len(remaining))
			}
			out = append(out, pageRange{pagePaddr: pagePaddr, offset: offset, buf: remaining[:n], reqIdx: i})
			remaining = remaining[n:]
			addr += n
		}
	}
	return out
}

// ReadRaw implements physmem.PhysicalMemory (spec §4.5 read path).
func (c *PageCache) ReadRaw(reqs []physmem.ReadRequest, onFail physmem.FailFunc) error {
	fragments := c.splitByPage(reqs)

	var missPages []types.Address
	seen := make(map[types.Address]bool)
	hits := make(map[types.Address][]byte)
	for _, f := range fragments {
		slot := c.slotFor(f.pagePaddr)
		if slot.paddr == f.pagePaddr && slot.valid && c.validator.IsValid(slot.token) {
			hits[f.pagePaddr] = slot.data
			continue
		}
		if !seen[f.pagePaddr] {
			seen[f.pagePaddr] = true
			missPages = append(missPages, f.pagePaddr)
		}
	}

	pageBufs := make(map[types.Address][]byte, len(missPages))
	if len(missPages) > 0 {
		var missReqs []physmem.ReadRequest
		for _, p := range missPages {
			buf := make([]byte, c.pageSize)
			pageBufs[p] = buf
			missReqs = append(missReqs, physmem.ReadRequest{Addr: types.NewPhysicalAddress(p), Buf: buf})
		}
		failed := make(map[types.Address]error)
		if err := c.underlying.ReadRaw(missReqs, func(req physmem.ReadRequest, e error) {
			failed[req.Addr.Address] = e
		}); err != nil {
			return err
		}
		for p, buf := range pageBufs {
			if _, ok := failed[p]; ok {
				delete(pageBufs, p)
				// A stale slot for this same page must not be served as
				// if it were still fresh; force the final pass to treat
				// it as a miss.
				if slot := c.slotFor(p); slot.paddr == p {
					slot.valid = false
				}
				continue
			}
			slot := c.slotFor(p)
			slot.paddr = p
			slot.valid = true
			slot.token = c.validator.CurrentToken()
			slot.data = buf
		}
	}

	failedReqs := make(map[int]bool)
	for _, f := range fragments {
		// Serve straight from this round's freshly read page buffer when
		// one exists, rather than trusting the slot: two distinct miss
		// pages hashing to the same slot would otherwise have the first
		// evicted by the second's write-back, even though both reads
		// succeeded (spec §8.4: cached_read == uncached_read).
		if buf, ok := pageBufs[f.pagePaddr]; ok {
			copy(f.buf, buf[f.offset:])
			continue
		}
		// Pages that hit in the first pass are served from the bytes
		// captured then, since a miss page sharing their slot may have
		// replaced the slot's contents in the meantime.
		if data, ok := hits[f.pagePaddr]; ok {
			copy(f.buf, data[f.offset:])
			continue
		}
		slot := c.slotFor(f.pagePaddr)
		if slot.paddr == f.pagePaddr && slot.valid {
			copy(f.buf, slot.data[f.offset:])
			continue
		}
		failedReqs[f.reqIdx] = true
	}
	for idx := range failedReqs {
		if onFail != nil {
			onFail(reqs[idx], missErr(reqs[idx]))
		}
	}
	return nil
}

func missErr(req physmem.ReadRequest) error {
	return &cacheMissError{addr: req.Addr.Address}
}

type cacheMissError struct{ addr types.Address }

func (e *cacheMissError) Error() string {
	return "cache: backend read failed for page containing " + e.addr.String()
}

// WriteRaw passes writes straight through and invalidates any cached page
// overlapping the written range (spec §4.5 write path: "the cache never
// buffers writes").
func (c *PageCache) WriteRaw(reqs []physmem.WriteRequest, onFail physmem.WriteFailFunc) error {
	if err := c.underlying.WriteRaw(reqs, onFail); err != nil {
		return err
	}
	for _, req := range reqs {
		addr := uint64(req.Addr.Address)
		end := addr + uint64(len(req.Buf))
		for p := addr &^ (c.pageSize - 1); p < end; p += c.pageSize {
			slot := c.slotFor(types.Address(p))
			if slot.paddr == types.Address(p) {
				slot.token = InvalidToken
				slot.valid = false
			}
		}
	}
	return nil
}

func (c *PageCache) Metadata() physmem.Metadata {
	return c.underlying.Metadata()
}

func (c *PageCache) SetMemMap(mappings []physmem.Mapping) {
	c.underlying.SetMemMap(mappings)
}
