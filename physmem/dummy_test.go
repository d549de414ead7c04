package physmem

import (
	"bytes"
	"testing"

	"memcore/merr"
	"memcore/types"
)

func TestDummyReadWriteRoundTrip(t *testing.T) {
	d := NewDummy(4096)
	want := []byte("hello physical memory")
	if err := Write(d, types.NewPhysicalAddress(16), want); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got := make([]byte, len(want))
	if err := ReadInto(d, types.NewPhysicalAddress(16), got); err != nil {
		t.Fatalf("ReadInto: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("round trip = %q, want %q", got, want)
	}
}

func TestDummySeedViaWritePhysical(t *testing.T) {
	d := NewDummy(64)
	d.WritePhysical(0, []byte{0xAA, 0xBB, 0xCC})
	got := make([]byte, 3)
	if err := ReadInto(d, types.NewPhysicalAddress(0), got); err != nil {
		t.Fatalf("ReadInto: %v", err)
	}
	if !bytes.Equal(got, []byte{0xAA, 0xBB, 0xCC}) {
		t.Errorf("got %v", got)
	}
}

func TestDummyOutOfBoundsPerElementFailure(t *testing.T) {
	d := NewDummy(16)
	reqs := []ReadRequest{
		{Addr: types.NewPhysicalAddress(0), Buf: make([]byte, 4)},
		{Addr: types.NewPhysicalAddress(100), Buf: make([]byte, 4)},
	}
	var failed []ReadRequest
	if err := d.ReadRaw(reqs, func(req ReadRequest, err error) {
		failed = append(failed, req)
		if me, ok := err.(*merr.Error); !ok || me.Kind != merr.BoundsError {
			t.Errorf("expected BoundsError, got %v", err)
		}
	}); err != nil {
		t.Fatalf("ReadRaw returned error: %v", err)
	}
	if len(failed) != 1 {
		t.Fatalf("expected exactly one failed element, got %d", len(failed))
	}
	if failed[0].Addr.Address != 100 {
		t.Errorf("wrong element marked failed: %+v", failed[0])
	}
}

func TestDummyReadonlyRejectsWrites(t *testing.T) {
	d := NewDummy(16)
	d.SetReadonly(true)
	var failCount int
	err := d.WriteRaw([]WriteRequest{{Addr: types.NewPhysicalAddress(0), Buf: []byte{1}}}, func(_ WriteRequest, _ error) {
		failCount++
	})
	if err != nil {
		t.Fatalf("WriteRaw returned error: %v", err)
	}
	if failCount != 1 {
		t.Errorf("expected write to fail on readonly backend, failCount=%d", failCount)
	}
}

func TestDummySetMemMapRemapsAddresses(t *testing.T) {
	d := NewDummy(64)
	d.WritePhysical(32, []byte{0xDE, 0xAD})
	d.SetMemMap([]Mapping{{Base: types.Address(0x1000), Length: 16, RealBase: types.Address(32)}})

	got := make([]byte, 2)
	if err := ReadInto(d, types.NewPhysicalAddress(0x1000), got); err != nil {
		t.Fatalf("ReadInto: %v", err)
	}
	if !bytes.Equal(got, []byte{0xDE, 0xAD}) {
		t.Errorf("got %v, want [0xDE 0xAD]", got)
	}

	// The pre-mapping address is no longer reachable once a mem map is
	// configured: it falls into what the map now declares a hole.
	if err := ReadInto(d, types.NewPhysicalAddress(32), make([]byte, 2)); err == nil {
		t.Error("expected read of an address outside every mapping to fail")
	}
}

func TestDummySetMemMapRejectsHolesAndStraddlingReads(t *testing.T) {
	d := NewDummy(64)
	d.SetMemMap([]Mapping{
		{Base: types.Address(0x1000), Length: 16, RealBase: types.Address(0)},
		{Base: types.Address(0x2000), Length: 16, RealBase: types.Address(16)},
	})

	// Inside the hole between the two mapped regions.
	if err := ReadInto(d, types.NewPhysicalAddress(0x1800), make([]byte, 1)); err == nil {
		t.Error("expected read in an unmapped hole to fail")
	}

	// Starts inside the first mapping but runs past its Length.
	if err := ReadInto(d, types.NewPhysicalAddress(0x1000+12), make([]byte, 8)); err == nil {
		t.Error("expected read straddling a mapping boundary to fail")
	}
}

func TestDummyMetadata(t *testing.T) {
	d := NewDummy(1024)
	md := d.Metadata()
	if md.RealSize != 1024 {
		t.Errorf("RealSize = %d, want 1024", md.RealSize)
	}
	if md.MaxAddress != types.Address(1023) {
		t.Errorf("MaxAddress = %v, want 1023", md.MaxAddress)
	}
	if md.Readonly {
		t.Error("fresh Dummy should not be readonly")
	}
}
