package kernel

import (
	"memcore/types"
	"memcore/view"
)

// These constants name the offsets ListProcesses needs out of an
// OffsetTable. Field names are arbitrary strings by design (spec §6: the
// core only requires lookup be "pure and total"); these are the ones
// memcore itself looks for.
const (
	OffsetProcessListHead = "process_list_head"
	OffsetProcessLink     = "process.link"
	OffsetProcessName     = "process.name"
	OffsetProcessPID      = "process.pid"
	OffsetProcessDTB      = "process.dtb"
)

// ListProcesses walks the kernel's process list using k's OffsetTable,
// returning one ProcessInfo per entry.
func (k *Kernel) ListProcesses(maxNameLen int) ([]ProcessInfo, error) {
	listHead, linkOffset, nameOffset, pidOffset, dtbOffset, err := k.processLayout()
	if err != nil {
		return nil, err
	}

	var procs []ProcessInfo
	walkErr := WalkLinkedList(k.View, listHead, linkOffset, func(entryAddr types.Address) error {
		name, err := view.ReadCString(k.View, entryAddr.Add(nameOffset), maxNameLen)
		if err != nil {
			return err
		}
		pidBuf := make([]byte, 8)
		if err := view.ReadInto(k.View, entryAddr.Add(pidOffset), pidBuf); err != nil {
			return err
		}
		pid := k.SysArch.Endian.ByteOrder().Uint64(pidBuf)
		dtb, err := view.ReadAddr(k.View, entryAddr.Add(dtbOffset))
		if err != nil {
			return err
		}
		procs = append(procs, ProcessInfo{PID: pid, Name: name, DTB: dtb, Address: entryAddr})
		return nil
	})
	if walkErr != nil {
		return procs, walkErr
	}
	return procs, nil
}

func (k *Kernel) processLayout() (listHead types.Address, linkOffset, nameOffset, pidOffset, dtbOffset uint64, err error) {
	const op = "kernel.Kernel.ListProcesses"
	raw, ok := k.Offsets.Offset(OffsetProcessListHead)
	if !ok {
		err = missingOffset(op, OffsetProcessListHead)
		return
	}
	listHead = types.Address(raw)

	if linkOffset, ok = k.Offsets.Offset(OffsetProcessLink); !ok {
		err = missingOffset(op, OffsetProcessLink)
		return
	}
	if nameOffset, ok = k.Offsets.Offset(OffsetProcessName); !ok {
		err = missingOffset(op, OffsetProcessName)
		return
	}
	if pidOffset, ok = k.Offsets.Offset(OffsetProcessPID); !ok {
		err = missingOffset(op, OffsetProcessPID)
		return
	}
	if dtbOffset, ok = k.Offsets.Offset(OffsetProcessDTB); !ok {
		err = missingOffset(op, OffsetProcessDTB)
		return
	}
	return
}
