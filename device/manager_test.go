package device

import (
	"testing"

	"github.com/usbarmory/xhci/context"
	"github.com/usbarmory/xhci/internal/mock"
	"github.com/usbarmory/xhci/memory"
)

func newManager(t *testing.T, maxSlots uint8) (*Manager, *mock.DMA) {
	t.Helper()

	dma := mock.NewDMA(64 * 1024)
	trans := memory.LinearTranslator{Offset: 0x1000_0000}

	m, err := New(dma, trans, maxSlots)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	return m, dma
}

func TestEnableSlotRejectsOutOfRangeID(t *testing.T) {
	m, _ := newManager(t, 8)

	if _, err := m.EnableSlot(0, SpeedHigh, nil); err == nil {
		t.Fatalf("slot 0 should be rejected")
	}

	if _, err := m.EnableSlot(9, SpeedHigh, nil); err == nil {
		t.Fatalf("slot 9 should be rejected (maxSlots=8)")
	}
}

func TestEnableSlotRejectsOccupiedSlot(t *testing.T) {
	m, _ := newManager(t, 8)

	if _, err := m.EnableSlot(1, SpeedHigh, nil); err != nil {
		t.Fatalf("EnableSlot(1): %v", err)
	}

	if _, err := m.EnableSlot(1, SpeedHigh, nil); err == nil {
		t.Fatalf("second EnableSlot(1) should fail: slot already occupied")
	}
}

func TestEnableSlotFillsSlotAndControlEndpoint(t *testing.T) {
	m, _ := newManager(t, 8)
	m.LatchAddressingPort(3)

	d, err := m.EnableSlot(1, SpeedSuper, nil)
	if err != nil {
		t.Fatalf("EnableSlot: %v", err)
	}

	if d.Input.Device.Slot.RootHubPortNumber != 3 {
		t.Fatalf("RootHubPortNumber = %d, want 3", d.Input.Device.Slot.RootHubPortNumber)
	}

	if d.Input.Device.Slot.ContextEntries != 1 {
		t.Fatalf("ContextEntries = %d, want 1", d.Input.Device.Slot.ContextEntries)
	}

	ep := d.Input.Device.EndpointByDCI(1)
	if ep.MaxPacketSize != 512 {
		t.Fatalf("control endpoint MaxPacketSize = %d, want 512 (SuperSpeed)", ep.MaxPacketSize)
	}

	if ep.EPType != context.EPTypeControl {
		t.Fatalf("control endpoint EPType = %d, want Control", ep.EPType)
	}

	if d.Input.Control.Add&1 == 0 {
		t.Fatalf("Input Control Add Slot flag not set")
	}
}

func TestEnableSlotWritesDCBAAEntry(t *testing.T) {
	m, dma := newManager(t, 8)

	d, err := m.EnableSlot(2, SpeedHigh, nil)
	if err != nil {
		t.Fatalf("EnableSlot: %v", err)
	}

	off := 2 * dcbaaEntrySize

	var got uint64
	for i := 0; i < dcbaaEntrySize; i++ {
		got |= uint64(dma.Bytes()[off+i]) << (8 * i)
	}

	if got != d.ContextPhys(m.trans) {
		t.Fatalf("DCBAA[2] = %#x, want %#x", got, d.ContextPhys(m.trans))
	}
}

func TestDisableSlotClearsDCBAAAndRecord(t *testing.T) {
	m, dma := newManager(t, 8)

	if _, err := m.EnableSlot(1, SpeedHigh, nil); err != nil {
		t.Fatalf("EnableSlot: %v", err)
	}

	m.DisableSlot(1)

	if _, ok := m.Device(1); ok {
		t.Fatalf("device record still present after DisableSlot")
	}

	off := 1 * dcbaaEntrySize
	for i := 0; i < dcbaaEntrySize; i++ {
		if dma.Bytes()[off+i] != 0 {
			t.Fatalf("DCBAA[1] not cleared after DisableSlot")
		}
	}

	if _, err := m.EnableSlot(1, SpeedHigh, nil); err != nil {
		t.Fatalf("re-EnableSlot(1) after disable should succeed: %v", err)
	}
}

func TestMaxControlPacketSizeTable(t *testing.T) {
	cases := map[uint8]uint16{
		SpeedHigh:  64,
		SpeedSuper: 512,
		SpeedLow:   8,
		0:          8,
		15:         8,
	}

	for speed, want := range cases {
		if got := MaxControlPacketSize(speed); got != want {
			t.Fatalf("MaxControlPacketSize(%d) = %d, want %d", speed, got, want)
		}
	}
}
