package mmu

import (
	"encoding/hex"
	"strconv"
	"strings"
	"testing"

	"golang.org/x/tools/txtar"

	"memcore/arch"
	"memcore/physmem"
	"memcore/types"
)

// loadPTEFixture parses a txtar archive of small physical-memory dumps
// into d: each file's name is a physical address in hex, its body the
// PTE's little-endian bytes in hex text. Storing these as txtar keeps
// multi-page synthetic dumps human-readable in the repo instead of binary
// blobs.
func loadPTEFixture(t *testing.T, path string, d *physmem.Dummy) {
	t.Helper()
	ar, err := txtar.ParseFile(path)
	if err != nil {
		t.Fatalf("txtar.ParseFile(%s): %v", path, err)
	}
	for _, f := range ar.Files {
		addr, err := strconv.ParseUint(f.Name, 16, 64)
		if err != nil {
			t.Fatalf("fixture file name %q is not a hex address: %v", f.Name, err)
		}
		raw, err := hex.DecodeString(strings.TrimSpace(string(f.Data)))
		if err != nil {
			t.Fatalf("fixture file %q body is not hex: %v", f.Name, err)
		}
		d.WritePhysical(types.Address(addr), raw)
	}
}

func TestWalkAgainstTxtarFixture(t *testing.T) {
	spec := arch.X86()
	d := physmem.NewDummy(64 * 1024)
	loadPTEFixture(t, "testdata/x86_small_walk.txtar", d)

	results := Walk(d, spec, types.Address(0x1000), []Request[int]{{Vaddr: 0}})
	if results[0].Err != nil {
		t.Fatalf("unexpected failure: %v", results[0].Err)
	}
	if results[0].Paddr.Address != 0x5000 {
		t.Errorf("paddr = %s, want 0x5000", results[0].Paddr.Address)
	}
}
