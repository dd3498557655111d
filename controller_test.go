package xhci

import (
	"testing"

	"github.com/usbarmory/xhci/device"
	"github.com/usbarmory/xhci/internal/mock"
	"github.com/usbarmory/xhci/internal/reg"
	"github.com/usbarmory/xhci/memory"
	"github.com/usbarmory/xhci/regs"
	"github.com/usbarmory/xhci/ring"
	"github.com/usbarmory/xhci/state"
	"github.com/usbarmory/xhci/trb"
)

// portscOffset is Operational base + 0x400 + (n-1)*0x10, the Port
// Register Set address for port n (spec §4.1), duplicated here since
// regs.Port keeps its base unexported.
func portscOffset(c *Controller, port int) uint {
	return c.mmioBase + 0x20 + 0x400 + uint(port-1)*0x10
}

// setPortConnected sets PORTSC.CCS on a port, as real hardware would on
// device attach, so tests can drive onPortStatusChange down its connect
// path rather than the CCS-deasserted disconnect path.
func setPortConnected(c *Controller, port int) {
	reg.Set32(portscOffset(c, port), 0)
}

// newTestController builds a Controller wired to a fake MMIO block and a
// fake DMA region, bypassing Init so the dispatch table can be exercised
// directly against synthetic Event Ring TRBs.
func newTestController(t *testing.T) *Controller {
	t.Helper()

	mmio := mock.NewMMIO(0x1000)
	base := mmio.Base()

	mem := mock.NewDMA(1 << 20)
	trans := memory.LinearTranslator{Offset: 0}

	c := &Controller{
		mem:      mem,
		trans:    trans,
		cfg:      Config{}.withDefaults(),
		mmioBase: base,
		capReg:   regs.NewCapability(base),
		op:       regs.NewOperational(base + 0x20),
		db:       regs.NewDoorbells(base + 0x900),
		maxSlots: 4,
		pending:  make(map[uint64]pendingCommand),
	}

	cmd, err := ring.NewCommand(mem, trans, 32, c.db)
	if err != nil {
		t.Fatalf("NewCommand: %v", err)
	}
	c.cmd = cmd

	devices, err := device.New(mem, trans, c.maxSlots)
	if err != nil {
		t.Fatalf("device.New: %v", err)
	}
	c.devices = devices

	c.machine = state.New(mem, trans, c.db, 16)

	return c
}

// onlyPending returns the single entry of c.pending, failing the test if
// there isn't exactly one.
func onlyPending(t *testing.T, c *Controller) (uint64, pendingCommand) {
	t.Helper()

	if len(c.pending) != 1 {
		t.Fatalf("pending = %d entries, want 1", len(c.pending))
	}

	for addr, pc := range c.pending {
		return addr, pc
	}

	panic("unreachable")
}

func completionEvent(addr uint64, slotID uint8, code trb.CompletionCode) trb.TRB {
	var t trb.TRB
	t.SetParameter(addr)
	t.Status = uint32(code) << 24
	t.Control = uint32(slotID) << 24

	return t
}

// TestOnPortStatusChangeEnablesSlot covers the first step of spec §4.6's
// PortStatusChange handler: latch the port, clear PORTSC.PRC, and push an
// EnableSlot command.
func TestOnPortStatusChangeEnablesSlot(t *testing.T) {
	c := newTestController(t)
	setPortConnected(c, 1)

	evt := trb.TRB{ParamLo: uint32(1) << 24}
	c.onPortStatusChange(evt)

	if got := c.devices.AddressingPort(); got != 1 {
		t.Fatalf("AddressingPort = %d, want 1", got)
	}

	addr, pc := onlyPending(t, c)

	if pc.typ != trb.EnableSlot {
		t.Fatalf("pending command type = %v, want EnableSlot", pc.typ)
	}

	if addr == 0 {
		t.Fatalf("pending command keyed by zero address")
	}

	dump := c.cmd.Dump()
	if dump[0][:16] != "[00] type=Enable" {
		t.Fatalf("command ring slot 0 = %q, want an EnableSlot TRB", dump[0])
	}
}

// TestCommandCompletionChain drives an EnableSlot completion through to
// AddressDevice, then an AddressDevice completion into
// GetDeviceDescriptor, matching the chaining spec §4.6 describes for
// CommandCompletion events.
func TestCommandCompletionChain(t *testing.T) {
	c := newTestController(t)
	setPortConnected(c, 1)

	c.onPortStatusChange(trb.TRB{ParamLo: uint32(1) << 24})
	addr, pc := onlyPending(t, c)

	if pc.typ != trb.EnableSlot {
		t.Fatalf("pending command type = %v, want EnableSlot", pc.typ)
	}

	c.onCommandCompletion(completionEvent(addr, 2, trb.Success))

	d, ok := c.devices.Device(2)
	if !ok {
		t.Fatalf("slot 2 was not enabled")
	}

	if d.Rings[1] == nil {
		t.Fatalf("control ring was not created for slot 2")
	}

	addr2, pc2 := onlyPending(t, c)

	if pc2.typ != trb.AddressDevice || pc2.slotID != 2 {
		t.Fatalf("pending command = %+v, want AddressDevice for slot 2", pc2)
	}

	c.onCommandCompletion(completionEvent(addr2, 2, trb.Success))

	if d.Phase.Kind != device.GetDeviceDescriptor {
		t.Fatalf("phase = %s, want GetDeviceDescriptor", d.Phase)
	}

	if d.Pending() != 3 {
		t.Fatalf("pending = %d, want 3", d.Pending())
	}
}

// TestCommandCompletionFailureIsIgnored covers a non-successful
// CommandCompletion: the pending entry is consumed but no follow-on
// command or state transition happens (spec §4.6).
func TestCommandCompletionFailureIsIgnored(t *testing.T) {
	c := newTestController(t)
	setPortConnected(c, 1)

	c.onPortStatusChange(trb.TRB{ParamLo: uint32(1) << 24})
	addr, _ := onlyPending(t, c)

	c.onCommandCompletion(completionEvent(addr, 0, trb.NoSlotsAvailableError))

	if len(c.pending) != 0 {
		t.Fatalf("pending = %d entries, want 0 after a consumed failure", len(c.pending))
	}

	if _, ok := c.devices.Device(2); ok {
		t.Fatalf("slot 2 should not have been enabled on a failed EnableSlot")
	}
}

// TestOnTransferEventQuarantinesOnlyFailedDevice is scenario S5: a
// Transfer event with a non-successful completion code marks only that
// device Failed, leaving every other device's phase untouched.
func TestOnTransferEventQuarantinesOnlyFailedDevice(t *testing.T) {
	c := newTestController(t)

	ring1, err := ring.NewTransfer(c.mem, c.trans, 16, c.db, 1, 1)
	if err != nil {
		t.Fatalf("NewTransfer: %v", err)
	}

	ring3, err := ring.NewTransfer(c.mem, c.trans, 16, c.db, 3, 1)
	if err != nil {
		t.Fatalf("NewTransfer: %v", err)
	}

	d1, err := c.devices.EnableSlot(1, device.SpeedHigh, ring1)
	if err != nil {
		t.Fatalf("EnableSlot(1): %v", err)
	}

	d3, err := c.devices.EnableSlot(3, device.SpeedHigh, ring3)
	if err != nil {
		t.Fatalf("EnableSlot(3): %v", err)
	}

	d1.Phase = device.Phase{Kind: device.Finish, DCI: 3}
	d3.Phase = device.Phase{Kind: device.Finish, DCI: 3}

	failure := trb.TRB{
		Status:  uint32(trb.USBTransactionError) << 24,
		Control: uint32(3) << 24,
	}

	c.onTransferEvent(failure)

	if d3.Phase.Kind != device.Failed {
		t.Fatalf("slot 3 phase = %s, want Failed", d3.Phase)
	}

	if d1.Phase.Kind != device.Finish {
		t.Fatalf("slot 1 phase = %s, want untouched Finish", d1.Phase)
	}
}

// TestDeviceLookup exercises the exported Device accessor used by
// callers wanting to schedule transfers once a device reaches Finish.
func TestDeviceLookup(t *testing.T) {
	c := newTestController(t)

	ctrl, err := ring.NewTransfer(c.mem, c.trans, 16, c.db, 5, 1)
	if err != nil {
		t.Fatalf("NewTransfer: %v", err)
	}

	if _, err := c.devices.EnableSlot(5, device.SpeedSuper, ctrl); err != nil {
		t.Fatalf("EnableSlot: %v", err)
	}

	d, ok := c.Device(5)
	if !ok {
		t.Fatalf("Device(5) not found")
	}

	if d.Speed != device.SpeedSuper {
		t.Fatalf("Speed = %d, want SpeedSuper", d.Speed)
	}

	if _, ok := c.Device(6); ok {
		t.Fatalf("Device(6) unexpectedly found")
	}
}

// TestOnPortStatusChangeDisconnectDisablesSlot covers spec §5's "Slot
// disable bookkeeping": a PortStatusChange event for a port whose CCS
// has deasserted must push a DisableSlot for the device enabled there,
// and that command's completion must free the slot.
func TestOnPortStatusChangeDisconnectDisablesSlot(t *testing.T) {
	c := newTestController(t)

	ctrl, err := ring.NewTransfer(c.mem, c.trans, 16, c.db, 1, 1)
	if err != nil {
		t.Fatalf("NewTransfer: %v", err)
	}

	c.devices.LatchAddressingPort(1)

	d, err := c.devices.EnableSlot(1, device.SpeedHigh, ctrl)
	if err != nil {
		t.Fatalf("EnableSlot: %v", err)
	}

	if d.Port != 1 {
		t.Fatalf("Port = %d, want 1", d.Port)
	}

	// PORTSC.CCS left clear: the mock's zero-initialized register
	// already reports the port as disconnected.
	evt := trb.TRB{ParamLo: uint32(1) << 24}
	c.onPortStatusChange(evt)

	addr, pc := onlyPending(t, c)

	if pc.typ != trb.DisableSlot || pc.slotID != 1 {
		t.Fatalf("pending command = %+v, want DisableSlot for slot 1", pc)
	}

	c.onCommandCompletion(completionEvent(addr, 1, trb.Success))

	if _, ok := c.devices.Device(1); ok {
		t.Fatalf("slot 1 still enabled after DisableSlot completion")
	}
}

// TestOnPortStatusChangeDisconnectWithNoDeviceIsIgnored covers a
// CCS-deasserted PortStatusChange for a port with no enabled device:
// nothing is pushed, and nothing panics.
func TestOnPortStatusChangeDisconnectWithNoDeviceIsIgnored(t *testing.T) {
	c := newTestController(t)

	evt := trb.TRB{ParamLo: uint32(1) << 24}
	c.onPortStatusChange(evt)

	if len(c.pending) != 0 {
		t.Fatalf("pending = %d entries, want 0 for a disconnect with no enabled device", len(c.pending))
	}
}
