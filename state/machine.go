// Per-device initialization state machine
// https://github.com/usbarmory/xhci
//
// Copyright (c) The xhci Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package state drives a device.Device record through its
// initialization phases (spec §4.8): GetDeviceDescriptor ->
// GetConfigurationDescriptor -> SetConfiguration ->
// WaitConfigureCommand(dci) -> Finish(dci), entirely by enqueuing
// control and Normal transfers onto the device's own Transfer Rings.
package state

import (
	"github.com/usbarmory/xhci/context"
	"github.com/usbarmory/xhci/descriptor"
	"github.com/usbarmory/xhci/device"
	"github.com/usbarmory/xhci/memory"
	"github.com/usbarmory/xhci/ring"
)

// USB standard request codes used by the state machine (USB 2.0 §9.4).
const (
	reqGetDescriptor   = 6
	reqSetConfiguration = 9
)

// bmRequestType values for the two requests the state machine issues.
const (
	bmRequestTypeGetDescriptor   = 0x80 // device-to-host, standard, device
	bmRequestTypeSetConfiguration = 0x00 // host-to-device, standard, device
)

const descriptorRequestLength = 256

// Machine drives every enabled device's Device record through its
// initialization phases (spec §4.8). It holds no per-device state of
// its own; everything lives on the device.Device record itself.
type Machine struct {
	mem   memory.Region
	trans memory.Translator
	db    ring.Doorbell

	transferRingCapacity int
}

// New builds a Machine that allocates Transfer Rings of the given
// capacity as devices need them.
func New(mem memory.Region, trans memory.Translator, db ring.Doorbell, transferRingCapacity int) *Machine {
	return &Machine{mem: mem, trans: trans, db: db, transferRingCapacity: transferRingCapacity}
}

// EnterGetDeviceDescriptor transitions d into GetDeviceDescriptor and
// issues the control transfer GET_DESCRIPTOR(Device) (spec §4.8),
// called once AddressDevice's CommandCompletion event arrives.
func (m *Machine) EnterGetDeviceDescriptor(d *device.Device) {
	d.Phase = device.Phase{Kind: device.GetDeviceDescriptor}
	m.issueGetDescriptor(d, descriptor.TypeDevice)
}

// EnterGetConfigurationDescriptor transitions d into
// GetConfigurationDescriptor and issues GET_DESCRIPTOR(Configuration).
func (m *Machine) EnterGetConfigurationDescriptor(d *device.Device) {
	d.Phase = device.Phase{Kind: device.GetConfigurationDescriptor}
	m.issueGetDescriptor(d, descriptor.TypeConfiguration)
}

func (m *Machine) issueGetDescriptor(d *device.Device, descType uint8) {
	ctrl := d.Rings[1]

	wValue := uint16(descType) << 8
	ctrl.PushSetupStage(bmRequestTypeGetDescriptor, reqGetDescriptor, wValue, 0, descriptorRequestLength, 3 /* InDataStage */)
	ctrl.PushDataStage(d.ScratchPhys(m.trans), descriptorRequestLength, true, false)
	ctrl.PushStatusStage(false, true)

	d.Arm(3)
}

// EnterSetConfiguration transitions d into SetConfiguration: it parses
// the configuration descriptor buffer just fetched, and issues
// SET_CONFIGURATION(bConfigurationValue) (spec §4.8).
func (m *Machine) EnterSetConfiguration(d *device.Device) {
	d.Phase = device.Phase{Kind: device.SetConfiguration}

	buf := d.ReadScratch(m.mem, descriptorRequestLength)
	cfg := descriptor.ParseConfiguration(buf[:descriptor.ConfigurationLength])

	ctrl := d.Rings[1]
	ctrl.PushSetupStage(bmRequestTypeSetConfiguration, reqSetConfiguration, uint16(cfg.ConfigurationValue()), 0, 0, 0 /* NoDataStage */)
	ctrl.PushStatusStage(true, true)

	d.Arm(2)
}

// EnterWaitConfigureCommand transitions d into WaitConfigureCommand(dci):
// it re-parses the configuration descriptor buffer to find the first
// Endpoint descriptor, and builds an Input Context requesting that
// endpoint be added, ready for a ConfigureEndpoint command (spec §4.8).
//
// It returns the Input Context's physical address, the device's slot id
// and the endpoint's DCI, for the caller to push a ConfigureEndpoint
// command onto the Command Ring; this package
// never touches the Command Ring directly, to keep command backpressure
// entirely inside package ring.
func (m *Machine) EnterWaitConfigureCommand(d *device.Device) (inputCtxPhys uint64, slotID uint8, dci uint8, err error) {
	buf := d.ReadScratch(m.mem, descriptorRequestLength)
	entries := descriptor.Parse(buf)

	var epEntry *descriptor.Entry
	for i := range entries {
		if entries[i].Type == descriptor.TypeEndpoint {
			epEntry = &entries[i]
			break
		}
	}

	if epEntry == nil {
		return 0, 0, 0, errNoEndpointDescriptor
	}

	ep := descriptor.ParseEndpoint(epEntry.Raw)
	dci = ring.DCI(ep.Address())

	tr, err := d.EnsureTransferRing(m.mem, m.trans, m.transferRingCapacity, m.db, dci)
	if err != nil {
		return 0, 0, 0, err
	}

	d.Input.Control.AddSlot()
	d.Input.Control.AddEndpoint(dci)

	d.Input.Device.Slot = d.Ctx.Slot
	d.Input.Device.Slot.ContextEntries = 31

	epCtx := d.Input.Device.EndpointByDCI(dci)
	epCtx.EPType = endpointType(ep.Attributes(), ep.Address())
	epCtx.MaxPacketSize = ep.MaxPacketSize()
	epCtx.Interval = ep.Interval() - 1
	epCtx.AverageTRBLength = 1
	epCtx.ErrorCount = 3
	epCtx.SetTRDP(tr.Phys(), tr.DCS())

	d.SyncInput(m.mem)

	d.Phase = device.Phase{Kind: device.WaitConfigureCommand, DCI: dci}

	return d.InputPhys(m.trans), d.SlotID, dci, nil
}

// endpointType decodes the Endpoint Context's EPType field from a
// standard Endpoint Descriptor's bmAttributes and direction bit
// (xHCI table 6-9).
func endpointType(bmAttributes uint8, bEndpointAddress uint8) uint8 {
	in := bEndpointAddress&0x80 != 0
	transferType := bmAttributes & 0x3

	switch transferType {
	case 1: // Isochronous
		if in {
			return context.EPTypeIsochIn
		}
		return context.EPTypeIsochOut
	case 2: // Bulk
		if in {
			return context.EPTypeBulkIn
		}
		return context.EPTypeBulkOut
	case 3: // Interrupt
		if in {
			return context.EPTypeInterruptIn
		}
		return context.EPTypeInterruptOut
	default:
		return context.EPTypeControl
	}
}

// EnterFinish transitions d into Finish(dci) and issues the first
// steady-state Normal transfer on the configured endpoint (spec §4.8).
func (m *Machine) EnterFinish(d *device.Device, dci uint8) {
	d.Phase = device.Phase{Kind: device.Finish, DCI: dci}
	m.pushNormal(d, dci)
}

func (m *Machine) pushNormal(d *device.Device, dci uint8) {
	tr := d.Rings[dci]
	tr.PushNormal(d.ScratchPhys(m.trans), 16, true, true)
}

// OnTransferEvent advances d in response to a Transfer event with a
// successful completion code (spec §4.8 Testable Property 10). It
// counts down the completions owed for GetDeviceDescriptor,
// GetConfigurationDescriptor and SetConfiguration, advancing to the
// next phase once every one has arrived, and reports true when
// SetConfiguration has just completed: the caller must then call
// EnterWaitConfigureCommand and push the resulting ConfigureEndpoint
// command, since this package never touches the Command Ring directly.
// Finish re-arms a fresh Normal transfer on every event.
func (m *Machine) OnTransferEvent(d *device.Device) (readyForConfigure bool) {
	switch d.Phase.Kind {
	case device.GetDeviceDescriptor:
		if d.Completed() {
			m.EnterGetConfigurationDescriptor(d)
		}
	case device.GetConfigurationDescriptor:
		if d.Completed() {
			m.EnterSetConfiguration(d)
		}
	case device.SetConfiguration:
		if d.Completed() {
			return true
		}
	case device.Finish:
		m.pushNormal(d, d.Phase.DCI)
	}

	return false
}

// errNoEndpointDescriptor is returned when SetConfiguration's chained
// descriptor buffer contains no Endpoint descriptor to configure.
var errNoEndpointDescriptor = &noEndpointError{}

type noEndpointError struct{}

func (*noEndpointError) Error() string {
	return "xhci: configuration descriptor has no endpoint descriptor"
}
