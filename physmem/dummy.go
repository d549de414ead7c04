package physmem

import (
	"fmt"

	"memcore/merr"
	"memcore/types"
)

// Dummy is an in-memory PhysicalMemory backend with no real hardware or
// file underneath it: a flat byte slice standing in for a physical
// address space. It exists for tests, mirroring the role memflow's own DummyMemory connector plays in that
// project's test suite and doctests.
type Dummy struct {
	buf      []byte
	mappings []Mapping
	readonly bool
}

// NewDummy allocates a Dummy backend of the given size, zero-filled.
func NewDummy(size uint64) *Dummy {
	return &Dummy{buf: make([]byte, size)}
}

// WritePhysical seeds the backing store directly, bypassing WriteRaw and
// any readonly restriction. Intended for test and example setup, e.g.
// planting a synthetic page-table hierarchy before a walk.
func (d *Dummy) WritePhysical(addr types.Address, data []byte) {
	copy(d.buf[addr:], data)
}

// SetReadonly toggles whether WriteRaw rejects every request.
func (d *Dummy) SetReadonly(ro bool) {
	d.readonly = ro
}

func (d *Dummy) inBounds(addr types.Address, length int) bool {
	if length < 0 {
		return false
	}
	end := uint64(addr) + uint64(length)
	return end <= uint64(len(d.buf)) && end >= uint64(addr)
}

// resolve translates a caller-visible address in [addr, addr+length) into
// the backing-store address the request actually touches, applying
// SetMemMap's Base->RealBase remapping. With no mappings configured, the
// caller-visible address space is the backing store itself. With mappings
// configured, addr must fall entirely within a single mapping's
// [Base, Base+Length) region — a request straddling two mappings or
// landing in an unmapped hole fails to resolve, mirroring a dump file's
// memory-range table.
func (d *Dummy) resolve(addr types.Address, length int) (types.Address, bool) {
	if length < 0 {
		return 0, false
	}
	if len(d.mappings) == 0 {
		return addr, d.inBounds(addr, length)
	}
	for _, m := range d.mappings {
		if uint64(addr) < uint64(m.Base) {
			continue
		}
		offset := uint64(addr) - uint64(m.Base)
		if offset+uint64(length) > m.Length {
			continue
		}
		real := m.RealBase.Add(offset)
		return real, d.inBounds(real, length)
	}
	return 0, false
}

func (d *Dummy) ReadRaw(reqs []ReadRequest, onFail FailFunc) error {
	for _, req := range reqs {
		addr := req.Addr.Address
		real, ok := d.resolve(addr, len(req.Buf))
		if !ok {
			if onFail != nil {
				onFail(req, merr.New(merr.BoundsError, "physmem.Dummy.ReadRaw",
					fmt.Sprintf("read of %d bytes at %s is unmapped or exceeds the backing store", len(req.Buf), addr)))
			}
			continue
		}
		copy(req.Buf, d.buf[real:])
	}
	return nil
}

func (d *Dummy) WriteRaw(reqs []WriteRequest, onFail WriteFailFunc) error {
	if d.readonly {
		for _, req := range reqs {
			if onFail != nil {
				onFail(req, merr.New(merr.BoundsError, "physmem.Dummy.WriteRaw", "backend is readonly"))
			}
		}
		return nil
	}
	for _, req := range reqs {
		addr := req.Addr.Address
		real, ok := d.resolve(addr, len(req.Buf))
		if !ok {
			if onFail != nil {
				onFail(req, merr.New(merr.BoundsError, "physmem.Dummy.WriteRaw",
					fmt.Sprintf("write of %d bytes at %s is unmapped or exceeds the backing store", len(req.Buf), addr)))
			}
			continue
		}
		copy(d.buf[real:], req.Buf)
	}
	return nil
}

func (d *Dummy) Metadata() Metadata {
	return Metadata{
		MaxAddress:     types.Address(len(d.buf) - 1),
		RealSize:       uint64(len(d.buf)),
		Readonly:       d.readonly,
		IdealBatchSize: 128,
		Concurrent:     true,
	}
}

func (d *Dummy) SetMemMap(mappings []Mapping) {
	d.mappings = mappings
}
