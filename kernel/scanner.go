package kernel

import (
	"memcore/arch"
	"memcore/physmem"
	"memcore/types"
)

// KernelScanner locates the anchor DTB (the "system process" address
// space) and the OffsetTable for whatever OS build is running, from raw
// physical memory alone. It is an external collaborator per spec §1
// ("the Windows-specific kernel scanner... out of scope") — memcore only
// depends on this interface, never a concrete scanner.
type KernelScanner interface {
	// FindDTB searches phys for the system process's page directory
	// base under sysArch.
	FindDTB(phys physmem.PhysicalMemory, sysArch arch.Spec) (types.Address, error)
	// Offsets returns the structure-offset table for the build FindDTB
	// last identified.
	Offsets() OffsetTable
}
