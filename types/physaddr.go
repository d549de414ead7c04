package types

// PageSizeLevel indexes a leaf's size within an architecture's paging
// hierarchy. Level 0 is the finest (smallest) page the architecture
// supports; it increases towards the root, matching how many real paging
// implementations number their levels (PT=1 .. PML4=4, here zero-based).
type PageSizeLevel int

// UnknownPageLevel marks page metadata whose size level has not been
// determined, e.g. a PhysicalAddress handed in directly by a caller rather
// than produced by a translation.
const UnknownPageLevel PageSizeLevel = -1

// PageMetadata is advisory information attached to a PhysicalAddress.
// Absence (see PhysicalAddress.HasMeta) means "unknown" and forbids a cache
// from trusting the address's permission bits.
type PageMetadata struct {
	Level      PageSizeLevel
	Readable   bool
	Writeable  bool
	Executable bool
}

// PhysicalAddress augments an Address with optional page metadata.
type PhysicalAddress struct {
	Address Address
	Meta    PageMetadata
	HasMeta bool
}

// NewPhysicalAddress returns a PhysicalAddress with no page metadata
// attached.
func NewPhysicalAddress(addr Address) PhysicalAddress {
	return PhysicalAddress{Address: addr, Meta: PageMetadata{Level: UnknownPageLevel}}
}

// WithMetadata returns a copy of pa carrying the given page metadata.
func (pa PhysicalAddress) WithMetadata(meta PageMetadata) PhysicalAddress {
	pa.Meta = meta
	pa.HasMeta = true
	return pa
}

// String implements fmt.Stringer.
func (pa PhysicalAddress) String() string {
	return pa.Address.String()
}
