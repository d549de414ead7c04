// Package physmem defines the PhysicalMemory capability (spec §4.1): the
// abstract scatter/gather read/write surface every backend connector
// implements. Concrete connectors (a dump-file reader, a hypervisor
// bridge) are external collaborators per spec §1; this package only
// defines the contract plus a first-party in-memory test double.
package physmem

import "memcore/types"

// ReadRequest is one element of a batched physical read: Buf is filled
// with the physical bytes starting at Addr.
type ReadRequest = types.MemData[types.PhysicalAddress]

// WriteRequest is one element of a batched physical write: the bytes in
// Buf are written to the physical range starting at Addr.
type WriteRequest = types.MemData[types.PhysicalAddress]

// FailFunc is called for every read request element a backend could not
// service. Per §7, per-element failures funnel through this sink rather
// than aborting the batch; PhysicalMemory implementations MUST call it for
// every element they fail and MUST still process every other element.
type FailFunc func(req ReadRequest, err error)

// WriteFailFunc is FailFunc's write-side counterpart.
type WriteFailFunc func(req WriteRequest, err error)

// Metadata describes a PhysicalMemory backend's address space.
type Metadata struct {
	MaxAddress     types.Address
	RealSize       uint64
	Readonly       bool
	IdealBatchSize uint32
	// Concurrent reports whether this backend may be driven from more
	// than one independent stack at a time (spec §5): "connectors that
	// support concurrent access advertise this in their metadata."
	Concurrent bool
}

// Mapping describes one region of the backend's physical address space,
// used by SetMemMap to configure mappings discovered after construction
// (e.g. a dump file's memory-range table, or a hole reported by the guest
// firmware).
type Mapping struct {
	Base     types.Address
	Length   uint64
	RealBase types.Address // offset into the backend's own storage
}

// PhysicalMemory is the capability every memory backend implements: a
// batched, scatter/gather read/write surface over a physical address
// space.
//
// ReadRaw and WriteRaw MUST process every element of reqs even after
// individual elements fail; only a dead backend may return a non-nil
// error, and doing so implies nothing about which elements, if any, were
// serviced.
type PhysicalMemory interface {
	ReadRaw(reqs []ReadRequest, onFail FailFunc) error
	WriteRaw(reqs []WriteRequest, onFail WriteFailFunc) error
	Metadata() Metadata
	SetMemMap(mappings []Mapping)
}

// ReadInto performs a scalar read into dst, expressed as a single-element
// batch (spec §4.1: "scalar reads are expressed as single-element
// batches").
func ReadInto(pm PhysicalMemory, addr types.PhysicalAddress, dst []byte) error {
	var failErr error
	reqs := []ReadRequest{{Addr: addr, Buf: dst}}
	if err := pm.ReadRaw(reqs, func(_ ReadRequest, e error) { failErr = e }); err != nil {
		return err
	}
	return failErr
}

// Write performs a scalar write of src, expressed as a single-element
// batch.
func Write(pm PhysicalMemory, addr types.PhysicalAddress, src []byte) error {
	var failErr error
	reqs := []WriteRequest{{Addr: addr, Buf: src}}
	if err := pm.WriteRaw(reqs, func(_ WriteRequest, e error) { failErr = e }); err != nil {
		return err
	}
	return failErr
}
