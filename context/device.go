// xHCI Device and Input Contexts
// https://github.com/usbarmory/xhci
//
// Copyright (c) The xhci Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package context

// MaxEndpoints is the number of Endpoint Context slots following the
// Slot Context in a Device or Input Context (DCI 1..31; DCI 0 is
// unused, DCI 1 is the control endpoint).
const MaxEndpoints = 31

// DeviceSize is the on-wire size of a Device Context with 32-byte
// contexts (CSZ=0, the only mode this driver supports per spec §4.3
// step 3): one Slot Context plus 31 Endpoint Contexts.
const DeviceSize = SlotSize + MaxEndpoints*EndpointSize

// Device is the per-slot hardware-visible context DCBAA[slot] points
// to: a Slot Context followed by 31 Endpoint Contexts, indexed by DCI-1
// (spec §3 "Device Context").
type Device struct {
	Slot      Slot
	Endpoints [MaxEndpoints]Endpoint
}

// Bytes marshals the Device Context to its on-wire representation.
func (d *Device) Bytes() []byte {
	buf := make([]byte, 0, DeviceSize)
	buf = append(buf, d.Slot.Bytes()...)

	for i := range d.Endpoints {
		buf = append(buf, d.Endpoints[i].Bytes()...)
	}

	return buf
}

// EndpointByDCI returns the Endpoint Context for a given DCI (1-indexed,
// spec §4.5 "DCI for endpoint address ep").
func (d *Device) EndpointByDCI(dci uint8) *Endpoint {
	return &d.Endpoints[dci-1]
}

// Input Control Context flags (spec §3 "Input Context"): Drop flags
// occupy dword0 bits 2-31, Add flags dword1 bits 0-31.
const (
	ICCSize = 32
)

// InputControl is the 32-byte Input Control Context: Drop flags (bits
// 2-31 of dword0, DCI-indexed), Add flags (all of dword1, DCI-indexed
// plus bit0 for the Slot Context), configuration value, interface
// number, alternate setting (spec §3).
type InputControl struct {
	Drop uint32
	Add  uint32

	ConfigurationValue uint8
	InterfaceNumber    uint8
	AlternateSetting   uint8
}

// AddSlot sets the Input Control Context's Add Slot flag (bit 0).
func (c *InputControl) AddSlot() {
	c.Add |= 1
}

// AddEndpoint sets the Add flag for the endpoint at the given DCI
// (spec §4.6 "enable Add(dci)"; §9 Open Question: "Add-flags builder
// ... Implement per spec: OR" — every Add* method ORs into c.Add,
// never assigns it outright).
func (c *InputControl) AddEndpoint(dci uint8) {
	c.Add |= 1 << dci
}

// DropEndpoint sets the Drop flag for the endpoint at the given DCI.
func (c *InputControl) DropEndpoint(dci uint8) {
	c.Drop |= 1 << dci
}

// Bytes marshals the Input Control Context to its 32-byte wire
// representation.
func (c *InputControl) Bytes() []byte {
	buf := make([]byte, ICCSize)

	putU32(buf[0:], c.Drop)
	putU32(buf[4:], c.Add)
	buf[8] = c.ConfigurationValue
	buf[9] = c.InterfaceNumber
	buf[10] = c.AlternateSetting

	return buf
}

func putU32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

// InputSize is the on-wire size of an Input Context: the Input Control
// Context plus a full Device Context (spec §3 "Input Context").
const InputSize = ICCSize + DeviceSize

// Input is the Input Context that drives AddressDevice, ConfigureEndpoint
// and EvaluateContext commands: an Input Control Context followed by a
// Slot Context and 31 Endpoint Contexts (spec §3).
type Input struct {
	Control InputControl
	Device  Device
}

// Bytes marshals the Input Context to its on-wire representation.
func (in *Input) Bytes() []byte {
	buf := make([]byte, 0, InputSize)
	buf = append(buf, in.Control.Bytes()...)
	buf = append(buf, in.Device.Bytes()...)

	return buf
}
