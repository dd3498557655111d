// USB standard descriptors
// https://github.com/usbarmory/xhci
//
// Copyright (c) The xhci Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package descriptor implements the standard USB descriptor formats
// the device state machine parses (spec §6), as accessors that read each
// field by its fixed byte offset in the raw little-endian buffer, and a
// tolerant stream
// parser over a chained descriptor buffer (spec §4.8, Testable
// Property 7).
package descriptor

// Standard descriptor type codes (spec §6, §4.8).
const (
	TypeDevice        = 1
	TypeConfiguration = 2
	TypeString        = 3
	TypeInterface     = 4
	TypeEndpoint      = 5
	TypeHID           = 33
)

// Standard descriptor lengths in bytes (spec §6).
const (
	DeviceLength        = 18
	ConfigurationLength = 9
	InterfaceLength     = 9
	EndpointLength      = 7
	HIDLength           = 9
)

// Device is the 18-byte Device Descriptor (spec §6): only the fields
// this driver consumes are named; the rest of the buffer is preserved
// verbatim for forwarding.
type Device struct {
	raw []byte
}

// ParseDevice wraps a raw Device Descriptor buffer for field access.
func ParseDevice(buf []byte) Device {
	return Device{raw: buf}
}

// MaxPacketSize0 is bMaxPacketSize0 at offset 7.
func (d Device) MaxPacketSize0() uint8 {
	return d.raw[7]
}

// VendorID is idVendor at offset 8.
func (d Device) VendorID() uint16 {
	return uint16(d.raw[8]) | uint16(d.raw[9])<<8
}

// ProductID is idProduct at offset 10.
func (d Device) ProductID() uint16 {
	return uint16(d.raw[10]) | uint16(d.raw[11])<<8
}

// Configuration is the 9-byte Configuration Descriptor header (spec
// §6); it is always the first entry of a chained descriptor buffer
// returned by GET_DESCRIPTOR(Configuration).
type Configuration struct {
	raw []byte
}

// ParseConfiguration wraps a raw Configuration Descriptor buffer.
func ParseConfiguration(buf []byte) Configuration {
	return Configuration{raw: buf}
}

// TotalLength is wTotalLength at offset 2: the size of the full chained
// buffer (header plus all Interface/Endpoint/class descriptors).
func (c Configuration) TotalLength() uint16 {
	return uint16(c.raw[2]) | uint16(c.raw[3])<<8
}

// ConfigurationValue is bConfigurationValue at offset 5.
func (c Configuration) ConfigurationValue() uint8 {
	return c.raw[5]
}

// Interface is the 9-byte Interface Descriptor (spec §6).
type Interface struct {
	raw []byte
}

// ParseInterface wraps a raw Interface Descriptor buffer.
func ParseInterface(buf []byte) Interface {
	return Interface{raw: buf}
}

// Class is bInterfaceClass at offset 5.
func (i Interface) Class() uint8 {
	return i.raw[5]
}

// SubClass is bInterfaceSubClass at offset 6.
func (i Interface) SubClass() uint8 {
	return i.raw[6]
}

// Protocol is bInterfaceProtocol at offset 7.
func (i Interface) Protocol() uint8 {
	return i.raw[7]
}

// Endpoint is the 7-byte Endpoint Descriptor (spec §6).
type Endpoint struct {
	raw []byte
}

// ParseEndpoint wraps a raw Endpoint Descriptor buffer.
func ParseEndpoint(buf []byte) Endpoint {
	return Endpoint{raw: buf}
}

// Address is bEndpointAddress at offset 2.
func (e Endpoint) Address() uint8 {
	return e.raw[2]
}

// Attributes is bmAttributes at offset 3.
func (e Endpoint) Attributes() uint8 {
	return e.raw[3]
}

// MaxPacketSize is wMaxPacketSize at offset 4.
func (e Endpoint) MaxPacketSize() uint16 {
	return uint16(e.raw[4]) | uint16(e.raw[5])<<8
}

// Interval is bInterval at offset 6.
func (e Endpoint) Interval() uint8 {
	return e.raw[6]
}
