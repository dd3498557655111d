// Device Manager: DCBAA and per-slot Device records
// https://github.com/usbarmory/xhci
//
// Copyright (c) The xhci Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package device implements the Device Context Base Address Array, the
// per-slot Device record, and the addressing-port latch (spec §3
// "Device record", §3 "Lifetimes", §4.6 "PortStatusChange" /
// "EnableSlot"). It does not itself run the per-device initialization
// sequence; that belongs to package state, which operates on the
// *Device records this package hands out.
package device

import (
	"github.com/usbarmory/xhci/context"
	"github.com/usbarmory/xhci/memory"
	"github.com/usbarmory/xhci/ring"
	"github.com/usbarmory/xhci/xhcierr"
)

// dcbaaEntrySize is the width of one Device Context Base Address Array
// entry: a raw 64-bit physical pointer (spec §3 "DCBAA").
const dcbaaEntrySize = 8

// ScratchSize is the size of a Device record's descriptor scratch
// buffer, shared by the Get-Descriptor control transfer stages (spec
// §3 "Device record").
const ScratchSize = 256

// Device is the per-slot software record backing one enabled USB
// device (spec §3 "Device record"): its Input and Device Contexts, its
// Transfer Rings indexed by Device Context Index, a descriptor scratch
// buffer, and its current initialization phase.
type Device struct {
	SlotID uint8
	Port   uint8
	Speed  uint8

	Input context.Input
	Ctx   context.Device

	inputAddr uint
	ctxAddr   uint

	Rings [context.MaxEndpoints + 1]*ring.Transfer

	scratchAddr uint

	Phase Phase

	// pending counts the Transfer completions still owed before the
	// current phase is considered done (spec §4.8, Testable Property
	// 10: "Transfer(Success) x 3"). Finish never decrements it to zero
	// on its own; every Transfer event simply re-arms the next Normal.
	pending int
}

// ScratchPhys returns the physical address of the Device record's
// descriptor scratch buffer, shared by the Get-Descriptor control
// transfer stages (spec §3 "Device record").
func (d *Device) ScratchPhys(trans memory.Translator) uint64 {
	return uint64(trans.ToPhys(d.scratchAddr))
}

// ReadScratch copies n bytes back out of the descriptor scratch
// buffer, once a Data Stage transfer into it has completed.
func (d *Device) ReadScratch(mem memory.Region, n int) []byte {
	buf := make([]byte, n)
	mem.Read(d.scratchAddr, 0, buf)

	return buf
}

// Pending returns the number of Transfer completions still owed before
// the current phase advances.
func (d *Device) Pending() int {
	return d.pending
}

// Arm sets the number of Transfer completions owed before the phase
// advances, and resets the completion count.
func (d *Device) Arm(n int) {
	d.pending = n
}

// Completed decrements the owed-completion count by one and reports
// whether the phase has now seen every completion it was armed for.
func (d *Device) Completed() bool {
	if d.pending > 0 {
		d.pending--
	}

	return d.pending == 0
}

// ContextPhys returns the physical address of the Device record's
// owned Device Context, the value stored in DCBAA[SlotID].
func (d *Device) ContextPhys(trans memory.Translator) uint64 {
	return uint64(trans.ToPhys(d.ctxAddr))
}

// SyncContext marshals the Device record's software-side Device
// Context and writes it out to its DMA-backed storage, so a subsequent
// command referencing ContextPhys observes the current fields.
func (d *Device) SyncContext(mem memory.Region) {
	mem.Write(d.ctxAddr, 0, d.Ctx.Bytes())
}

// ReadContext refreshes the Device record's software-side Device
// Context from its DMA-backed storage, used after a command completes
// and hardware has updated fields such as Slot State or USB Device
// Address.
func (d *Device) ReadContext(mem memory.Region) {
	buf := make([]byte, context.DeviceSize)
	mem.Read(d.ctxAddr, 0, buf)
	d.Ctx.Slot = context.UnmarshalSlot(buf[:context.SlotSize])
}

// InputPhys returns the physical address of the Device record's owned
// Input Context, the parameter to AddressDevice, ConfigureEndpoint and
// EvaluateContext commands.
func (d *Device) InputPhys(trans memory.Translator) uint64 {
	return uint64(trans.ToPhys(d.inputAddr))
}

// SyncInput marshals the Device record's software-side Input Context
// and writes it out to its DMA-backed storage, so a subsequent command
// referencing InputPhys observes the current fields.
func (d *Device) SyncInput(mem memory.Region) {
	mem.Write(d.inputAddr, 0, d.Input.Bytes())
}

// EnsureTransferRing lazily allocates the Transfer Ring for a given DCI,
// reusing it on later calls (spec §3 "a vector of up to 32 optional
// Transfer Rings").
func (d *Device) EnsureTransferRing(mem memory.Region, trans memory.Translator, capacity int, db ring.Doorbell, dci uint8) (*ring.Transfer, error) {
	if d.Rings[dci] != nil {
		return d.Rings[dci], nil
	}

	tr, err := ring.NewTransfer(mem, trans, capacity, db, int(d.SlotID), dci)
	if err != nil {
		return nil, err
	}

	d.Rings[dci] = tr

	return tr, nil
}

// Manager owns the Device Context Base Address Array and the Device
// records for every enabled slot (spec §3 "Device Manager").
type Manager struct {
	mem   memory.Region
	trans memory.Translator

	maxSlots uint8

	dcbaaAddr uint
	dcbaa     []byte

	devices map[uint8]*Device

	addressingPort uint8
}

// New allocates the Device Context Base Address Array, sized
// MaxSlots+1 with entry 0 reserved, 64-byte aligned (spec §4.3 step 6).
func New(mem memory.Region, trans memory.Translator, maxSlots uint8) (*Manager, error) {
	size := (int(maxSlots) + 1) * dcbaaEntrySize

	addr, buf := mem.Reserve(size, 64)

	for i := range buf {
		buf[i] = 0
	}
	mem.Write(addr, 0, buf)

	return &Manager{
		mem:      mem,
		trans:    trans,
		maxSlots: maxSlots,

		dcbaaAddr: addr,
		dcbaa:     buf,

		devices: make(map[uint8]*Device),
	}, nil
}

// Phys returns the physical base address of the DCBAA, for DCBAAP.
func (m *Manager) Phys() uint64 {
	return uint64(m.trans.ToPhys(m.dcbaaAddr))
}

// LatchAddressingPort records the root-hub port a PortStatusChange
// event named, consumed by the following EnableSlot completion (spec
// §4.6 "PortStatusChange: latch addressing_port = port_id").
func (m *Manager) LatchAddressingPort(port uint8) {
	m.addressingPort = port
}

// AddressingPort returns the most recently latched root-hub port.
func (m *Manager) AddressingPort() uint8 {
	return m.addressingPort
}

// DeviceByPort returns the Device record enabled on a given root-hub
// port, if any, resolving a disconnecting port back to the slot that
// must be torn down (spec §5 "Slot disable bookkeeping").
func (m *Manager) DeviceByPort(port uint8) (*Device, bool) {
	for _, d := range m.devices {
		if d.Port == port {
			return d, true
		}
	}

	return nil, false
}

// SetScratchpadArray writes the physical base address of a provisioned
// Scratchpad Buffer Array into DCBAA[0] (spec §4.3 step 5). This driver
// treats a non-zero scratchpad buffer requirement as a hard error
// instead (UnsupportedController), so this method exists only for
// completeness and is never called by the minimum bring-up path.
func (m *Manager) SetScratchpadArray(phys uint64) {
	m.writeEntry(0, phys)
}

func (m *Manager) writeEntry(slot uint8, phys uint64) {
	off := int(slot) * dcbaaEntrySize

	var b [dcbaaEntrySize]byte
	for i := 0; i < dcbaaEntrySize; i++ {
		b[i] = byte(phys >> (8 * i))
	}

	copy(m.dcbaa[off:off+dcbaaEntrySize], b[:])
	m.mem.Write(m.dcbaaAddr, off, b[:])
}

// EnableSlot creates a Device record for a slot id returned by an
// EnableSlot command completion (spec §4.6 "EnableSlot"). It validates
// 0 < slotID <= MaxSlots and that the slot is not already occupied,
// allocates DMA-backed storage for the Input and Device Contexts,
// writes DCBAA[slotID], and fills the Slot Context (route string 0,
// root-hub port from the latched addressing port, context entries 1,
// speed as given) and the control endpoint's Endpoint Context (Type
// Control, max packet size from the speed table, error count 3).
func (m *Manager) EnableSlot(slotID uint8, speed uint8, controlRing *ring.Transfer) (*Device, error) {
	if slotID == 0 || slotID > m.maxSlots {
		return nil, xhcierr.New(xhcierr.InvalidSlotId, "slot id out of range")
	}

	if _, occupied := m.devices[slotID]; occupied {
		return nil, xhcierr.New(xhcierr.InvalidSlotId, "slot already occupied")
	}

	ctxAddr, _ := m.mem.Reserve(context.DeviceSize, 64)
	inputAddr, _ := m.mem.Reserve(context.InputSize, 64)
	scratchAddr, _ := m.mem.Reserve(ScratchSize, 8)

	d := &Device{
		SlotID: slotID,
		Port:   m.addressingPort,
		Speed:  speed,

		ctxAddr:     ctxAddr,
		inputAddr:   inputAddr,
		scratchAddr: scratchAddr,

		Phase: Phase{Kind: Uninitialized},
	}

	d.Input.Control.AddSlot()
	d.Input.Device.Slot = context.Slot{
		RouteString:       0,
		Speed:             speed,
		ContextEntries:    1,
		RootHubPortNumber: d.Port,
	}

	ep := d.Input.Device.EndpointByDCI(1)
	ep.EPType = context.EPTypeControl
	ep.MaxPacketSize = MaxControlPacketSize(speed)
	ep.ErrorCount = 3
	ep.AverageTRBLength = 8

	if controlRing != nil {
		ep.SetTRDP(controlRing.Phys(), controlRing.DCS())
		d.Rings[1] = controlRing
	}

	m.writeEntry(slotID, d.ContextPhys(m.trans))
	d.SyncInput(m.mem)
	d.SyncContext(m.mem)

	m.devices[slotID] = d

	return d, nil
}

// Device returns the Device record for a slot id, if one is enabled.
func (m *Manager) Device(slotID uint8) (*Device, bool) {
	d, ok := m.devices[slotID]
	return d, ok
}

// DisableSlot clears DCBAA[slotID] and frees the Device record (spec
// §3 "Device Context" lifecycle; supplemented feature, see DESIGN.md).
func (m *Manager) DisableSlot(slotID uint8) {
	m.writeEntry(slotID, 0)
	delete(m.devices, slotID)
}
