package state

import (
	"testing"

	"github.com/usbarmory/xhci/device"
	"github.com/usbarmory/xhci/internal/mock"
	"github.com/usbarmory/xhci/memory"
	"github.com/usbarmory/xhci/ring"
)

type fakeDoorbell struct {
	rings int
}

func (f *fakeDoorbell) Ring(slot int, target uint8, streamID uint16) {
	f.rings++
}

func newTestDevice(t *testing.T) (*device.Device, memory.Region, memory.Translator, *fakeDoorbell) {
	t.Helper()

	mem := mock.NewDMA(1 << 20)
	trans := memory.LinearTranslator{Offset: 0}
	db := &fakeDoorbell{}

	devices, err := device.New(mem, trans, 4)
	if err != nil {
		t.Fatalf("device.New: %v", err)
	}

	ctrl, err := ring.NewTransfer(mem, trans, 16, db, 1, 1)
	if err != nil {
		t.Fatalf("NewTransfer: %v", err)
	}

	d, err := devices.EnableSlot(1, device.SpeedHigh, ctrl)
	if err != nil {
		t.Fatalf("EnableSlot: %v", err)
	}

	return d, mem, trans, db
}

// writeScratch places raw bytes at the start of d's descriptor scratch
// buffer, standing in for the Data Stage DMA a real control transfer
// would have performed.
func writeScratch(t *testing.T, d *device.Device, mem memory.Region, trans memory.Translator, buf []byte) {
	t.Helper()

	virt := trans.ToVirt(uint(d.ScratchPhys(trans)))
	mem.Write(virt, 0, buf)
}

func fakeConfigurationDescriptor() []byte {
	cfg := []byte{9, 2, 23, 0, 1, 7 /* bConfigurationValue */, 0, 0, 0}
	iface := []byte{9, 4, 0, 0, 1, 0, 0, 0, 0}
	ep := []byte{7, 5, 0x81, 0x03, 0x08, 0x00, 0x0a}

	buf := make([]byte, descriptorRequestLength)
	copy(buf, append(append(cfg, iface...), ep...))

	return buf
}

// TestHappyPath drives a device through every phase of spec §4.8's
// state machine (Testable Property 10): GetDeviceDescriptor (3
// completions) -> GetConfigurationDescriptor (3 completions) ->
// SetConfiguration (2 completions) -> WaitConfigureCommand -> Finish.
func TestHappyPath(t *testing.T) {
	d, mem, trans, db := newTestDevice(t)
	m := New(mem, trans, db, 16)

	m.EnterGetDeviceDescriptor(d)

	if d.Phase.Kind != device.GetDeviceDescriptor {
		t.Fatalf("phase = %s, want GetDeviceDescriptor", d.Phase)
	}

	if d.Pending() != 3 {
		t.Fatalf("pending = %d, want 3", d.Pending())
	}

	for i := 0; i < 2; i++ {
		if ready := m.OnTransferEvent(d); ready {
			t.Fatalf("unexpected readyForConfigure at completion %d", i)
		}
	}

	if d.Phase.Kind != device.GetDeviceDescriptor {
		t.Fatalf("phase advanced early: %s", d.Phase)
	}

	if ready := m.OnTransferEvent(d); ready {
		t.Fatalf("unexpected readyForConfigure after GetDeviceDescriptor")
	}

	if d.Phase.Kind != device.GetConfigurationDescriptor {
		t.Fatalf("phase = %s, want GetConfigurationDescriptor", d.Phase)
	}

	if d.Pending() != 3 {
		t.Fatalf("pending = %d, want 3", d.Pending())
	}

	writeScratch(t, d, mem, trans, fakeConfigurationDescriptor())

	for i := 0; i < 2; i++ {
		if ready := m.OnTransferEvent(d); ready {
			t.Fatalf("unexpected readyForConfigure at completion %d", i)
		}
	}

	if ready := m.OnTransferEvent(d); ready {
		t.Fatalf("unexpected readyForConfigure after GetConfigurationDescriptor")
	}

	if d.Phase.Kind != device.SetConfiguration {
		t.Fatalf("phase = %s, want SetConfiguration", d.Phase)
	}

	if d.Pending() != 2 {
		t.Fatalf("pending = %d, want 2", d.Pending())
	}

	if ready := m.OnTransferEvent(d); ready {
		t.Fatalf("unexpected readyForConfigure before SetConfiguration's second completion")
	}

	writeScratch(t, d, mem, trans, fakeConfigurationDescriptor())

	if ready := m.OnTransferEvent(d); !ready {
		t.Fatalf("expected readyForConfigure once SetConfiguration completes")
	}

	inputPhys, slotID, dci, err := m.EnterWaitConfigureCommand(d)
	if err != nil {
		t.Fatalf("EnterWaitConfigureCommand: %v", err)
	}

	if slotID != d.SlotID {
		t.Fatalf("slotID = %d, want %d", slotID, d.SlotID)
	}

	wantDCI := ring.DCI(0x81)
	if dci != wantDCI {
		t.Fatalf("dci = %d, want %d", dci, wantDCI)
	}

	if inputPhys != d.InputPhys(trans) {
		t.Fatalf("inputPhys mismatch")
	}

	if d.Rings[dci] == nil {
		t.Fatalf("transfer ring for dci %d not created", dci)
	}

	if d.Input.Control.Add&1 == 0 {
		t.Fatalf("Add Slot flag not set")
	}

	if d.Input.Control.Add&(1<<dci) == 0 {
		t.Fatalf("Add Endpoint(%d) flag not set", dci)
	}

	m.EnterFinish(d, dci)

	if d.Phase.Kind != device.Finish || d.Phase.DCI != dci {
		t.Fatalf("phase = %s, want Finish(dci=%d)", d.Phase, dci)
	}

	dump := d.Rings[dci].Dump()
	found := false

	for _, line := range dump {
		if line != "" && line[:11] == "[00] type=N" {
			found = true
		}
	}

	if !found {
		t.Fatalf("no Normal TRB pushed onto the configured endpoint's ring: %v", dump)
	}

	// Every subsequent Transfer event on the Finish phase re-arms a
	// fresh Normal transfer.
	m.OnTransferEvent(d)

	if db.rings == 0 {
		t.Fatalf("no doorbell rings recorded")
	}
}

func TestEnterWaitConfigureCommandRequiresEndpointDescriptor(t *testing.T) {
	d, mem, trans, db := newTestDevice(t)
	m := New(mem, trans, db, 16)

	// No endpoint descriptor anywhere in the scratch buffer.
	writeScratch(t, d, mem, trans, make([]byte, descriptorRequestLength))

	if _, _, _, err := m.EnterWaitConfigureCommand(d); err == nil {
		t.Fatalf("expected an error when no endpoint descriptor is present")
	}
}
