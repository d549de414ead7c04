// Package types defines the value types shared across memcore: addresses,
// physical-address metadata, size helpers and the batch-request shape used
// by both the physical and virtual memory surfaces.
package types

import "fmt"

// Address is a 64-bit address in either a virtual or physical space.
// The zero value is the conventional null address; use InvalidAddress for
// "no address" / "translation impossible".
type Address uint64

// InvalidAddress is the distinguished value meaning "no address".
// Arithmetic on it is never meaningful.
const InvalidAddress Address = ^Address(0)

// Null is the conventional null pointer value.
const Null Address = 0

// Valid reports whether a is anything other than InvalidAddress.
func (a Address) Valid() bool {
	return a != InvalidAddress
}

// IsNull reports whether a is the null address.
func (a Address) IsNull() bool {
	return a == Null
}

// String implements fmt.Stringer.
func (a Address) String() string {
	if a == InvalidAddress {
		return "<invalid>"
	}
	return fmt.Sprintf("0x%x", uint64(a))
}

// Add returns a+off. Callers are responsible for keeping offsets
// page-aligned where that matters; this never wraps-checks.
func (a Address) Add(off uint64) Address {
	return Address(uint64(a) + off)
}

// Sub returns a-off.
func (a Address) Sub(off uint64) Address {
	return Address(uint64(a) - off)
}

// AlignDown rounds a down to the nearest multiple of size. size must be a
// power of two.
func (a Address) AlignDown(size uint64) Address {
	return Address(uint64(a) &^ (size - 1))
}

// AlignUp rounds a up to the nearest multiple of size. size must be a power
// of two.
func (a Address) AlignUp(size uint64) Address {
	mask := size - 1
	return Address((uint64(a) + mask) &^ mask)
}

// PageOffset returns the low bits of a within a page of the given size.
func (a Address) PageOffset(pageSize uint64) uint64 {
	return uint64(a) & (pageSize - 1)
}
