package kernel

import "memcore/types"

// ProcessInfo is the high-level view of one running process (spec §1:
// "expose a high-level view of processes and modules").
type ProcessInfo struct {
	PID     uint64
	Name    string
	DTB     types.Address
	Address types.Address // guest address of the process structure itself
}

// ModuleInfo is the high-level view of one loaded module within a
// process's address space.
type ModuleInfo struct {
	Name    string
	Base    types.Address
	Size    uint64
	Address types.Address // guest address of the module-list entry
}
