// xHCI host controller driver
// https://github.com/usbarmory/xhci
//
// Copyright (c) The xhci Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package xhci implements a host-controller driver for USB 3.x xHCI
// controllers: bring-up and reset sequencing, the ring structures, and
// the event-driven device initialization state machine, composed from
// the trb, ring, regs, xecp, context, descriptor, device and state
// packages.
package xhci

import (
	"log"
	"time"

	"github.com/usbarmory/xhci/device"
	"github.com/usbarmory/xhci/memory"
	"github.com/usbarmory/xhci/regs"
	"github.com/usbarmory/xhci/ring"
	"github.com/usbarmory/xhci/state"
	"github.com/usbarmory/xhci/trb"
	"github.com/usbarmory/xhci/xecp"
	"github.com/usbarmory/xhci/xhcierr"
)

// Config tunes resource sizing and bounded waits. Zero-valued fields
// are replaced by the listed defaults.
type Config struct {
	// CommandRingCapacity is the number of TRB slots in the Command
	// Ring, including the reserved Link slot. Default 32.
	CommandRingCapacity int
	// EventRingCapacity is the number of TRB slots in the (single)
	// Event Ring segment. Default 32.
	EventRingCapacity int
	// TransferRingCapacity is the number of TRB slots in each Transfer
	// Ring allocated for a device endpoint. Default 16.
	TransferRingCapacity int
	// ResetTimeout bounds the USBCMD.HCRST / USBSTS.CNR wait (spec §9
	// Open Question: "no hard upper bound in this revision -- MAY be
	// tightened to, e.g., 100 ms"; this design fixes it at 100 ms).
	ResetTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.CommandRingCapacity == 0 {
		c.CommandRingCapacity = 32
	}

	if c.EventRingCapacity == 0 {
		c.EventRingCapacity = 32
	}

	if c.TransferRingCapacity == 0 {
		c.TransferRingCapacity = 16
	}

	if c.ResetTimeout == 0 {
		c.ResetTimeout = 100 * time.Millisecond
	}

	return c
}

// pendingCommand records what a Command Ring entry was, keyed by its
// own physical address, so a later CommandCompletion event can resolve
// command_trb_pointer back to the original command type (spec §4.6
// "CommandCompletion").
type pendingCommand struct {
	typ    trb.Type
	slotID uint8
}

// Controller is the top-level xHCI driver instance: it owns every MMIO
// register view, every ring, the Device Manager and the device state
// machine (spec §2 "Controller top-level").
type Controller struct {
	mem   memory.Region
	trans memory.Translator
	cfg   Config

	mmioBase uint
	capReg   *regs.Capability
	op       *regs.Operational
	rt       *regs.Runtime
	db       *regs.Doorbells

	cmd *ring.Command
	evt *ring.Event

	interrupter *regs.Interrupter

	devices *device.Manager
	machine *state.Machine

	maxSlots    uint8
	receptacles []xecp.Receptacle

	pending map[uint64]pendingCommand
}

// New wraps the four MMIO register blocks at mmioBase and prepares a
// Controller. Call Init to perform bring-up before using it.
func New(mmioBase uint, mem memory.Region, trans memory.Translator, cfg Config) *Controller {
	return &Controller{
		mem:      mem,
		trans:    trans,
		cfg:      cfg.withDefaults(),
		mmioBase: mmioBase,
		capReg:   regs.NewCapability(mmioBase),
		pending:  make(map[uint64]pendingCommand),
	}
}

// Init performs controller bring-up (spec §4.3), in order: halt, reset,
// capability assertions, DCBAA/Command Ring/Event Ring/ERST allocation,
// the BIOS Legacy Support handoff, and starting the controller. It does
// not itself drive port resets past step 11; call Step repeatedly
// afterward to run the event loop.
func (c *Controller) Init() error {
	c.op = regs.NewOperational(c.capReg.OperationalBase())

	// 1. Stop.
	c.op.SetInterrupterEnable(false)
	c.op.SetHostSystemErrorEnable(false)
	c.op.SetWrapEventEnable(false)
	c.op.SetRunStop(false)

	if !waitUntil(c.cfg.ResetTimeout, func() bool { return c.op.HCHalted() }) {
		return xhcierr.New(xhcierr.TimeoutDuringReset, "USBSTS.HCH never asserted")
	}

	// 2. Reset.
	c.op.SetHCReset()

	if !waitUntil(c.cfg.ResetTimeout, func() bool {
		return !c.op.HCResetInProgress() && !c.op.ControllerNotReady()
	}) {
		return xhcierr.New(xhcierr.TimeoutDuringReset, "USBCMD.HCRST/USBSTS.CNR never cleared")
	}

	// 3. Capability assertions.
	if !c.capReg.AC64() || c.capReg.CSZ() {
		return xhcierr.New(xhcierr.UnsupportedController, "AC64=0 or CSZ=1")
	}

	// 4. MaxSlotsEnabled.
	c.maxSlots = c.capReg.MaxSlots()
	c.op.SetMaxSlotsEnabled(c.maxSlots)

	// 5. Scratchpad buffers: this design treats a non-zero requirement
	// as a hard error (spec §4.3 step 5, §1 Non-goals).
	if n := c.capReg.MaxScratchpadBuffers(); n != 0 {
		return xhcierr.New(xhcierr.UnsupportedController, "scratchpad buffers requested but not provisioned")
	}

	// 6. DCBAA.
	devices, err := device.New(c.mem, c.trans, c.maxSlots)
	if err != nil {
		return err
	}
	c.devices = devices
	c.op.SetDCBAAP(devices.Phys())

	// 7. Command Ring.
	c.db = regs.NewDoorbells(c.capReg.DoorbellBase())

	cmd, err := ring.NewCommand(c.mem, c.trans, c.cfg.CommandRingCapacity, c.db)
	if err != nil {
		return err
	}
	c.cmd = cmd
	c.op.SetCommandRing(cmd.Phys(), cmd.PCS())

	// 8. Event Ring and ERST.
	evt, err := ring.NewEvent(c.mem, c.trans, c.cfg.EventRingCapacity)
	if err != nil {
		return err
	}
	c.evt = evt

	erstEntry := ring.ERSTEntry{Base: evt.Phys(), Size: uint16(evt.Capacity())}
	erstAddr := c.mem.Alloc(erstEntry.Bytes(), 64)

	c.rt = regs.NewRuntime(c.capReg.RuntimeBase())
	c.interrupter = c.rt.Interrupter(0)
	c.interrupter.SetERSTSZ(1)
	c.interrupter.SetERDP(evt.ERDP())
	c.interrupter.SetERSTBA(uint64(c.trans.ToPhys(erstAddr)))
	c.interrupter.SetModerationInterval(4000)
	c.interrupter.AckPending()
	c.interrupter.SetEnable(true)

	// 9. BIOS handoff.
	c.performLegacyHandoff()

	c.machine = state.New(c.mem, c.trans, c.db, c.cfg.TransferRingCapacity)

	// 10. Start.
	c.op.SetInterrupterEnable(true)
	c.op.SetRunStop(true)

	if !waitUntil(c.cfg.ResetTimeout, func() bool { return !c.op.HCHalted() }) {
		return xhcierr.New(xhcierr.TimeoutDuringReset, "USBSTS.HCH never cleared after RS=1")
	}

	// 11. Reset every connected root-hub port.
	for n := 1; n <= int(c.capReg.MaxPorts()); n++ {
		port := c.op.Port(n)

		if port.CCS() {
			port.SetReset()
		}
	}

	return nil
}

func (c *Controller) performLegacyHandoff() {
	xECPDwords := c.capReg.ExtCapPtr()
	var protocols []xecp.Protocol

	for id, addr := range xecp.Walk(c.mmioBase, xECPDwords) {
		switch id {
		case xecp.IDLegacySupport:
			// Non-fatal: bring-up proceeds even if the BIOS never
			// relinquishes ownership (spec §4.2, §7 "LegacyHandoffTimeout").
			if err := xecp.Handoff(addr); err != nil {
				log.Printf("xhci: BIOS handoff: %v", err)
			}
		case xecp.IDSupportedProtocol:
			protocols = append(protocols, xecp.ParseProtocol(addr))
		}
	}

	c.receptacles = xecp.Pair(protocols)
}

// Receptacles returns the paired USB2/USB3 root-hub port receptacles
// discovered during bring-up (spec §3 "Port").
func (c *Controller) Receptacles() []xecp.Receptacle {
	return c.receptacles
}

// Step drains every currently pending Event Ring TRB, dispatching each
// one, then republishes ERDP (spec §4.6 "Event Ring and event loop").
// It returns the number of events processed.
func (c *Controller) Step() int {
	n := 0

	for {
		t, ok := c.evt.Dequeue()
		if !ok {
			break
		}

		c.dispatch(t)
		n++
	}

	if n > 0 {
		c.interrupter.SetERDP(c.evt.ERDP())
		c.interrupter.AckPending()
	}

	return n
}

func (c *Controller) dispatch(t trb.TRB) {
	switch t.TrbType() {
	case trb.PortStatusChange:
		c.onPortStatusChange(t)
	case trb.CommandCompletion:
		c.onCommandCompletion(t)
	case trb.TransferEvent:
		c.onTransferEvent(t)
	default:
		log.Printf("xhci: unhandled event type %s", t.TrbType())
	}
}

// portID decodes the Port ID carried in a Port Status Change Event
// TRB's Parameter field, bits 31:24 of the low word (xHCI table 6-32).
func portID(t trb.TRB) uint8 {
	return uint8(t.ParamLo >> 24)
}

func (c *Controller) onPortStatusChange(t trb.TRB) {
	port := portID(t)
	p := c.op.Port(int(port))

	if !p.CCS() {
		c.disconnectPort(port)
		p.ClearPortResetChange()

		return
	}

	c.devices.LatchAddressingPort(port)
	p.ClearPortResetChange()

	addr, err := c.cmd.PushEnableSlot()
	if err != nil {
		return
	}

	c.pending[addr] = pendingCommand{typ: trb.EnableSlot}
}

// disconnectPort tears down the Device record enabled on a port that
// has just lost its Current Connect Status, by pushing a DisableSlot
// command for it (spec §5 "Slot disable bookkeeping"). DCBAA and the
// Device record itself are only actually freed once that command's
// completion arrives, in onCommandCompletion.
func (c *Controller) disconnectPort(port uint8) {
	d, ok := c.devices.DeviceByPort(port)
	if !ok {
		return
	}

	addr, err := c.cmd.PushDisableSlot(d.SlotID)
	if err != nil {
		return
	}

	c.pending[addr] = pendingCommand{typ: trb.DisableSlot, slotID: d.SlotID}
}

func (c *Controller) onCommandCompletion(t trb.TRB) {
	c.cmd.Complete()

	orig, ok := c.pending[t.Parameter()]
	if !ok {
		return
	}
	delete(c.pending, t.Parameter())

	if !t.Code().Successful() {
		return
	}

	slotID := t.SlotID()

	switch orig.typ {
	case trb.EnableSlot:
		c.onEnableSlotComplete(slotID)
	case trb.AddressDevice:
		if d, ok := c.devices.Device(slotID); ok {
			c.machine.EnterGetDeviceDescriptor(d)
		}
	case trb.ConfigureEndpoint:
		if d, ok := c.devices.Device(slotID); ok {
			c.machine.EnterFinish(d, d.Phase.DCI)
		}
	case trb.DisableSlot:
		c.devices.DisableSlot(slotID)
	default:
		log.Printf("xhci: ignored command completion for %s", orig.typ)
	}
}

func (c *Controller) onEnableSlotComplete(slotID uint8) {
	port := c.devices.AddressingPort()
	speed := c.op.Port(int(port)).Speed()

	ctrlRing, err := ring.NewTransfer(c.mem, c.trans, c.cfg.TransferRingCapacity, c.db, int(slotID), 1)
	if err != nil {
		return
	}

	d, err := c.devices.EnableSlot(slotID, speed, ctrlRing)
	if err != nil {
		return
	}

	addr, err := c.cmd.PushAddressDevice(d.InputPhys(c.trans), slotID)
	if err != nil {
		return
	}

	c.pending[addr] = pendingCommand{typ: trb.AddressDevice, slotID: slotID}
}

func (c *Controller) onTransferEvent(t trb.TRB) {
	slotID := t.SlotID()

	d, ok := c.devices.Device(slotID)
	if !ok {
		return
	}

	if !t.Code().Successful() {
		d.Phase = device.Phase{Kind: device.Failed}
		return
	}

	if c.machine.OnTransferEvent(d) {
		c.enterWaitConfigureCommand(d)
	}
}

func (c *Controller) enterWaitConfigureCommand(d *device.Device) {
	inputPhys, slotID, _, err := c.machine.EnterWaitConfigureCommand(d)
	if err != nil {
		return
	}

	addr, err := c.cmd.PushConfigureEndpoint(inputPhys, slotID)
	if err != nil {
		return
	}

	c.pending[addr] = pendingCommand{typ: trb.ConfigureEndpoint, slotID: slotID}
}

// Device returns the Device record for a slot id, for diagnostics or
// direct transfer scheduling once it has reached Finish.
func (c *Controller) Device(slotID uint8) (*device.Device, bool) {
	return c.devices.Device(slotID)
}

func waitUntil(timeout time.Duration, cond func() bool) bool {
	start := time.Now()

	for !cond() {
		if time.Since(start) >= timeout {
			return false
		}
	}

	return true
}
