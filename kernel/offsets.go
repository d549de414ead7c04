package kernel

// OffsetTable is an opaque record of byte offsets into guest OS
// structures, keyed by OS build identity (spec §6: "the core only
// requires that lookup be pure and total for a given build identity;
// acquisition (PDB download, embedded table) is external").
type OffsetTable interface {
	// Offset returns the byte offset for the named field (e.g.
	// "EPROCESS.UniqueProcessId") and whether this table has one.
	Offset(field string) (uint64, bool)
}

// StaticOffsetTable is the simplest OffsetTable: a fixed map built once
// by an external collaborator (a PDB reader, an embedded constant table)
// and handed to the builder.
type StaticOffsetTable map[string]uint64

func (t StaticOffsetTable) Offset(field string) (uint64, bool) {
	v, ok := t[field]
	return v, ok
}
