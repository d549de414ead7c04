package types

// Byte-size helpers, mirroring the size::kb/mb/gb constants used throughout
// the corpus's memory-management code to keep page-size arithmetic
// self-documenting instead of sprinkling magic numbers like 0x1000.
const (
	KB uint64 = 1 << 10
	MB uint64 = 1 << 20
	GB uint64 = 1 << 30
)

// Kb returns n kibibytes in bytes.
func Kb(n uint64) uint64 { return n * KB }

// Mb returns n mebibytes in bytes.
func Mb(n uint64) uint64 { return n * MB }

// Gb returns n gibibytes in bytes.
func Gb(n uint64) uint64 { return n * GB }
