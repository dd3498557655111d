// xHCI Capability register block
// https://github.com/usbarmory/xhci
//
// Copyright (c) The xhci Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package regs provides typed, bit-exact views over the four MMIO
// register blocks an xHCI controller exposes from a single base
// address (spec §4.1): Capability, Operational, Runtime, and Doorbell,
// plus the per-port register sets embedded in the Operational block.
//
// Every accessor reads or writes through internal/reg. Field setters
// preserve the register's other bits via read-modify-write; doorbells,
// 64-bit pointer registers (CRCR, DCBAAP, ERSTBA, ERDP) and PORTSC
// write-1-clear bits are written whole, with no preceding read. This
// mirrors the teacher's register block idiom (soc/intel/pci,
// soc/nxp/usb).
package regs

import "github.com/usbarmory/xhci/internal/reg"

// Capability register offsets, relative to the controller's MMIO base
// (spec §4.1). CAPLENGTH and HCIVERSION share the same leading dword.
const (
	offCapLengthWord = 0x00
	offHCSParams1    = 0x04
	offHCSParams2    = 0x08
	offHCSParams3    = 0x0c
	offHCCParams1    = 0x10
	offDBOff         = 0x14
	offRTSOff        = 0x18
	offHCCParams2    = 0x1c
)

// Capability is the read-only Capability register block at base+0.
type Capability struct {
	base uint
}

// NewCapability wraps the Capability block at the controller's MMIO
// base address.
func NewCapability(base uint) *Capability {
	return &Capability{base: base}
}

// CapLength is the byte offset from base to the Operational register
// block.
func (c *Capability) CapLength() uint8 {
	return uint8(reg.Get32(c.base+offCapLengthWord, 0, 0xff))
}

// HCIVersion is the binary-coded-decimal xHCI revision, packed into the
// upper half of the same dword as CAPLENGTH.
func (c *Capability) HCIVersion() uint16 {
	return uint16(reg.Get32(c.base+offCapLengthWord, 16, 0xffff))
}

// MaxSlots is HCSPARAMS1's Number of Device Slots field.
func (c *Capability) MaxSlots() uint8 {
	return uint8(reg.Get32(c.base+offHCSParams1, 0, 0xff))
}

// MaxIntrs is HCSPARAMS1's Number of Interrupters field.
func (c *Capability) MaxIntrs() uint16 {
	return uint16(reg.Get32(c.base+offHCSParams1, 8, 0x7ff))
}

// MaxPorts is HCSPARAMS1's Number of Ports field.
func (c *Capability) MaxPorts() uint8 {
	return uint8(reg.Get32(c.base+offHCSParams1, 24, 0xff))
}

// MaxScratchpadBuffers is the Max Scratchpad Buffers field of
// HCSPARAMS2, split across a high-5/low-5 encoding (spec §4.3 step 5).
func (c *Capability) MaxScratchpadBuffers() uint32 {
	v := reg.Read32(c.base + offHCSParams2)
	hi5 := (v >> 21) & 0x1f
	lo5 := (v >> 27) & 0x1f

	return (hi5 << 5) | lo5
}

// ERSTMax is HCSPARAMS2's Event Ring Segment Table Max field, the log2
// of the maximum number of segments a single interrupter may use.
func (c *Capability) ERSTMax() uint8 {
	return uint8(reg.Get32(c.base+offHCSParams2, 4, 0xf))
}

// AC64 is HCCPARAMS1's 64-bit Addressing Capability bit.
func (c *Capability) AC64() bool {
	return reg.Get32(c.base+offHCCParams1, 0, 1) == 1
}

// CSZ is HCCPARAMS1's Context Size bit (0 = 32-byte contexts).
func (c *Capability) CSZ() bool {
	return reg.Get32(c.base+offHCCParams1, 2, 1) == 1
}

// ExtCapPtr is HCCPARAMS1's xECP field: a dword offset from base to the
// first Extended Capability entry, or 0 if none exist.
func (c *Capability) ExtCapPtr() uint32 {
	return reg.Get32(c.base+offHCCParams1, 16, 0xffff)
}

// DBOff is the byte offset from base to the Doorbell array, decoded
// from the 30-bit dword-aligned field at bits 31:2.
func (c *Capability) DBOff() uint32 {
	return reg.Get32(c.base+offDBOff, 2, 0x3fffffff) << 2
}

// RTSOff is the byte offset from base to the Runtime register block,
// decoded from the 27-bit 32-byte-aligned field at bits 31:5.
func (c *Capability) RTSOff() uint32 {
	return reg.Get32(c.base+offRTSOff, 5, 0x7ffffff) << 5
}

// OperationalBase returns the MMIO address of the Operational register
// block.
func (c *Capability) OperationalBase() uint {
	return c.base + uint(c.CapLength())
}

// RuntimeBase returns the MMIO address of the Runtime register block.
func (c *Capability) RuntimeBase() uint {
	return c.base + uint(c.RTSOff())
}

// DoorbellBase returns the MMIO address of the Doorbell array.
func (c *Capability) DoorbellBase() uint {
	return c.base + uint(c.DBOff())
}
