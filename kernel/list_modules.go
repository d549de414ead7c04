package kernel

import (
	"memcore/types"
	"memcore/view"
)

// Offsets ListModules needs out of an OffsetTable, named after
// PsLoadedModuleList's own field layout in original_source/memflow-win32's
// win32/kernel.go (ldr_data_base_offs/ldr_data_size_offs/ldr_data_name_offs):
// the kernel's loaded-module list is walked exactly like the process list,
// just anchored and typed differently.
const (
	OffsetModuleListHead = "module_list_head"
	OffsetModuleLink     = "module.link"
	OffsetModuleName     = "module.name"
	OffsetModuleBase     = "module.base"
	OffsetModuleSize     = "module.size"
)

// ListModules walks the kernel's loaded-module list using k's OffsetTable,
// returning one ModuleInfo per entry (spec §1: "walks OS-level bookkeeping
// (process tables, loaded-module lists)").
func (k *Kernel) ListModules(maxNameLen int) ([]ModuleInfo, error) {
	listHead, linkOffset, nameOffset, baseOffset, sizeOffset, err := k.moduleLayout()
	if err != nil {
		return nil, err
	}

	var mods []ModuleInfo
	walkErr := WalkLinkedList(k.View, listHead, linkOffset, func(entryAddr types.Address) error {
		name, err := view.ReadCString(k.View, entryAddr.Add(nameOffset), maxNameLen)
		if err != nil {
			return err
		}
		base, err := view.ReadAddr(k.View, entryAddr.Add(baseOffset))
		if err != nil {
			return err
		}
		sizeBuf := make([]byte, 8)
		if err := view.ReadInto(k.View, entryAddr.Add(sizeOffset), sizeBuf); err != nil {
			return err
		}
		size := k.SysArch.Endian.ByteOrder().Uint64(sizeBuf)
		mods = append(mods, ModuleInfo{Name: name, Base: base, Size: size, Address: entryAddr})
		return nil
	})
	if walkErr != nil {
		return mods, walkErr
	}
	return mods, nil
}

func (k *Kernel) moduleLayout() (listHead types.Address, linkOffset, nameOffset, baseOffset, sizeOffset uint64, err error) {
	const op = "kernel.Kernel.ListModules"
	raw, ok := k.Offsets.Offset(OffsetModuleListHead)
	if !ok {
		err = missingOffset(op, OffsetModuleListHead)
		return
	}
	listHead = types.Address(raw)

	if linkOffset, ok = k.Offsets.Offset(OffsetModuleLink); !ok {
		err = missingOffset(op, OffsetModuleLink)
		return
	}
	if nameOffset, ok = k.Offsets.Offset(OffsetModuleName); !ok {
		err = missingOffset(op, OffsetModuleName)
		return
	}
	if baseOffset, ok = k.Offsets.Offset(OffsetModuleBase); !ok {
		err = missingOffset(op, OffsetModuleBase)
		return
	}
	if sizeOffset, ok = k.Offsets.Offset(OffsetModuleSize); !ok {
		err = missingOffset(op, OffsetModuleSize)
		return
	}
	return
}
