// Package kernel implements the builder (spec §4.8): a typed composition
// step that wraps a physical connector with optional caches and a
// translator, scans for the anchor DTB, and binds an OffsetTable. The
// builder provides no behavior beyond wiring, per spec §4.8: "the only
// place the generic type parameters resolve."
package kernel

import (
	"log"

	"memcore/arch"
	"memcore/cache"
	"memcore/merr"
	"memcore/mmu"
	"memcore/physmem"
	"memcore/types"
	"memcore/view"
)

// Kernel is a fully wired stack: a physical backend (possibly
// cache-wrapped), a translator, the anchor DTB for kernel-space reads, and
// the resolved OffsetTable — mirroring the role memflow-win32's own
// Kernel<T,V> struct plays: backend + translator + the system process's
// DTB used as the anchor for list-walking.
type Kernel struct {
	Phys       physmem.PhysicalMemory
	SysArch    arch.Spec
	ProcArch   arch.Spec
	Translator *mmu.Translator
	TLB        *cache.TLBCache
	DTB        types.Address
	Offsets    OffsetTable
	View       *view.VirtualMemory
}

// Builder composes a Kernel via functional-options-style chained calls
// (spec §4.8, §9 design note: "implement as an interface-bounded builder
// where each decoration step narrows a type alias" — Go's lack of that
// exact mechanism is covered by a plain chained-method builder instead).
type Builder struct {
	phys      physmem.PhysicalMemory
	sysArch   arch.Spec
	procArch  arch.Spec
	procArchSet bool

	pageCache *cache.PageCache
	tlb       *cache.TLBCache

	scanner  KernelScanner
	startDTB types.Address

	verbose bool
}

// NewBuilder starts a Builder over phys, interpreting its kernel-space
// page tables under sysArch. ProcArch defaults to sysArch until
// WithProcArch overrides it.
func NewBuilder(phys physmem.PhysicalMemory, sysArch arch.Spec) *Builder {
	return &Builder{phys: phys, sysArch: sysArch, procArch: sysArch, startDTB: types.InvalidAddress}
}

// WithProcArch sets the architecture used for on-target pointer widths,
// for a process whose bitness differs from the kernel's.
func (b *Builder) WithProcArch(a arch.Spec) *Builder {
	b.procArch = a
	b.procArchSet = true
	return b
}

// WithPageCache layers a page cache (spec §4.5) in front of phys.
func (b *Builder) WithPageCache(pageSize, capacityBytes uint64, validator cache.Validator) *Builder {
	b.pageCache = cache.NewPageCache(b.phys, pageSize, capacityBytes, validator)
	return b
}

// WithTLB attaches a translation cache (spec §4.6) in front of the
// translator: every translation first checks it and, on a miss, writes the
// walk's outcome back (including negative entries for unmapped pages).
func (b *Builder) WithTLB(slots int, validator cache.Validator) *Builder {
	b.tlb = cache.NewTLBCache(slots, validator)
	return b
}

// WithScanner attaches the external kernel scanner used to locate the
// anchor DTB and OffsetTable.
func (b *Builder) WithScanner(s KernelScanner) *Builder {
	b.scanner = s
	return b
}

// WithStartDTB supplies a fallback DTB to use if the scanner fails or its
// result turns out to be unreadable (the sysproc_dtb fallback described in
// original_source/memflow-win32's Kernel::new).
func (b *Builder) WithStartDTB(dtb types.Address) *Builder {
	b.startDTB = dtb
	return b
}

// Verbose enables bring-up logging of wiring decisions (fallback taken,
// scan outcome) via the standard log package, mirroring the teacher's own
// bring-up fmt.Printf calls.
func (b *Builder) Verbose(v bool) *Builder {
	b.verbose = v
	return b
}

func (b *Builder) logf(format string, args ...any) {
	if b.verbose {
		log.Printf("kernel.Builder: "+format, args...)
	}
}

// Build resolves the chain into a Kernel.
func (b *Builder) Build() (*Kernel, error) {
	const op = "kernel.Builder.Build"

	if err := b.sysArch.MMU.Validate(); err != nil {
		return nil, err
	}
	if b.procArchSet {
		if err := b.procArch.MMU.Validate(); err != nil {
			return nil, err
		}
	}

	var backend physmem.PhysicalMemory = b.phys
	if b.pageCache != nil {
		backend = b.pageCache
	}

	translator := mmu.NewTranslator(b.sysArch)
	if b.tlb != nil {
		translator.WithTLB(b.tlb)
	}

	dtb := b.startDTB
	var offsets OffsetTable

	if b.scanner != nil {
		offsets = b.scanner.Offsets()
		foundDTB, err := b.scanner.FindDTB(backend, b.sysArch)
		switch {
		case err != nil:
			b.logf("scan failed (%v)", err)
			if !b.startDTB.Valid() {
				return nil, merr.Wrap(merr.NotFound, op, "kernel scan failed and no fallback dtb was supplied", err)
			}
			b.logf("falling back to caller-supplied dtb %s", b.startDTB)
		default:
			// memflow-win32's Kernel::new probes a scanned DTB before
			// trusting it, falling back to sysproc_dtb on failure.
			probe := make([]byte, 8)
			if perr := physmem.ReadInto(backend, types.NewPhysicalAddress(foundDTB), probe); perr != nil {
				b.logf("scanned dtb %s unreadable (%v)", foundDTB, perr)
				if !b.startDTB.Valid() {
					return nil, merr.Wrap(merr.NotFound, op, "scanned dtb was unreadable and no fallback dtb was supplied", perr)
				}
				b.logf("falling back to caller-supplied dtb %s", b.startDTB)
			} else {
				dtb = foundDTB
			}
		}
	}

	if !dtb.Valid() {
		return nil, merr.New(merr.NotFound, op, "no dtb available: scanner absent or failed, and no start dtb was supplied")
	}

	v := view.New(backend, b.sysArch, b.procArch, dtb, translator)

	return &Kernel{
		Phys:       backend,
		SysArch:    b.sysArch,
		ProcArch:   b.procArch,
		Translator: translator,
		TLB:        b.tlb,
		DTB:        dtb,
		Offsets:    offsets,
		View:       v,
	}, nil
}
