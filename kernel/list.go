package kernel

import (
	"memcore/merr"
	"memcore/types"
	"memcore/view"
)

// maxListIterations bounds how far WalkLinkedList will follow a circular
// list before concluding it is corrupt (a dangling Flink pointer that
// never loops back to the head would otherwise spin forever). Grounded in
// the same defensive bound memflow-win32's eprocess_list walk and
// gopher-os's page-table walker both apply to untrusted guest-controlled
// pointers.
const maxListIterations = 1 << 16

// WalkLinkedList walks a circular doubly-linked list (a Windows
// LIST_ENTRY, or any OS's equivalent intrusive list) starting at
// listHead, calling visit with the container address of each entry —
// i.e. the node's own address minus linkOffset, recovering the struct
// the link field is embedded in.
//
// listHead itself is a sentinel node, not a real entry (the conventional
// LIST_ENTRY discipline): the walk starts at *listHead's forward pointer
// and stops when that pointer loops back to listHead.
func WalkLinkedList(vm *view.VirtualMemory, listHead types.Address, linkOffset uint64, visit func(entryAddr types.Address) error) error {
	const op = "kernel.WalkLinkedList"

	cur, err := view.ReadAddr(vm, listHead)
	if err != nil {
		return merr.Wrap(merr.BackendError, op, "failed to read list head", err)
	}

	for i := 0; cur != listHead; i++ {
		if i >= maxListIterations {
			return merr.New(merr.NotFound, op, "linked list did not terminate within the iteration bound; likely corrupt")
		}
		if !cur.Valid() || cur.IsNull() {
			return merr.New(merr.NotFound, op, "linked list contains a null or invalid pointer")
		}

		entryAddr := cur.Sub(linkOffset)
		if err := visit(entryAddr); err != nil {
			return err
		}

		next, err := view.ReadAddr(vm, cur)
		if err != nil {
			return merr.Wrap(merr.BackendError, op, "failed to read next list link", err)
		}
		cur = next
	}
	return nil
}
