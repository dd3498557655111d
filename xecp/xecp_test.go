package xecp

import (
	"testing"
	"time"

	"github.com/usbarmory/xhci/internal/mock"
	"github.com/usbarmory/xhci/internal/reg"
)

func TestWalkYieldsEachEntry(t *testing.T) {
	m := mock.NewMMIO(0x40)
	base := m.Base()

	// Entry 0 at dword offset 1 (addr = base+4): id=1, next=2 dwords away.
	reg.Write32(base+4, uint8ToHeader(IDLegacySupport, 2))
	// Entry 1 at base+4+8=base+12: id=2, next=0 (end).
	reg.Write32(base+12, uint8ToHeader(IDSupportedProtocol, 0))

	var got []uint8

	for id, addr := range Walk(base, 1) {
		_ = addr
		got = append(got, id)
	}

	if len(got) != 2 || got[0] != IDLegacySupport || got[1] != IDSupportedProtocol {
		t.Fatalf("Walk yielded %v", got)
	}
}

func uint8ToHeader(id uint8, next uint32) uint32 {
	return uint32(id) | next<<8
}

func TestHandoffSucceedsWhenBIOSReleases(t *testing.T) {
	m := mock.NewMMIO(0x10)
	base := m.Base()

	// Simulate the BIOS already having released ownership.
	if err := Handoff(base); err != nil {
		t.Fatalf("Handoff: %v", err)
	}

	if got := reg.Get32(base+offUSBLegSup, legOSOwned, 1); got != 1 {
		t.Fatalf("OS owned bit = %d, want 1", got)
	}
}

func TestHandoffTimesOutWhenBIOSRefuses(t *testing.T) {
	m := mock.NewMMIO(0x10)
	base := m.Base()

	reg.Set32(base+offUSBLegSup, legBIOSOwned)

	start := time.Now()
	err := Handoff(base)
	elapsed := time.Since(start)

	if err == nil {
		t.Fatalf("expected LegacyHandoffTimeout, got nil")
	}

	if elapsed < 9*time.Millisecond {
		t.Fatalf("returned too early: %v", elapsed)
	}
}

func TestPairPositional(t *testing.T) {
	protocols := []Protocol{
		{Major: 2, PortOffset: 5, PortCount: 4},
		{Major: 3, PortOffset: 1, PortCount: 4},
	}

	got := Pair(protocols)

	if len(got) != 4 {
		t.Fatalf("len = %d, want 4", len(got))
	}

	for i, r := range got {
		if r.USB2 != uint8(5+i) || r.USB3 != uint8(1+i) {
			t.Fatalf("receptacle %d = %+v", i, r)
		}
	}
}
