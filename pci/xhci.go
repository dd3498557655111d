// xHCI PCI function discovery
// https://github.com/usbarmory/xhci
//
// Copyright (c) The xhci Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package pci locates the xHCI host controller function on the PCI
// bus and wires its MMIO BAR and MSI-X interrupts, layered entirely on
// github.com/usbarmory/tamago/soc/intel/pci rather than reimplementing
// configuration-space access.
package pci

import (
	"fmt"

	"github.com/usbarmory/tamago/soc/intel/pci"
)

// PCI class/subclass/programming-interface identifying a USB3 xHCI
// host controller function (PCI Code and ID Assignment Specification,
// spec §2 "Scope").
const (
	classSerialBus = 0x0c
	subclassUSB    = 0x03
	progIfXHCI     = 0x30
)

// classCodeOffset is the configuration-space dword holding Revision ID
// (byte 0), Prog IF (byte 1), Subclass (byte 2) and Base Class (byte 3).
const classCodeOffset = 0x08

// Function wraps the located xHCI PCI function, giving access to its
// MMIO base address and MSI-X capability.
type Function struct {
	dev *pci.Device
}

// Find scans every device on the given PCI bus and returns the first
// whose class code matches a USB3 xHCI host controller (Class 0x0C,
// Subclass 0x03, Prog IF 0x30).
func Find(bus int) (*Function, error) {
	for _, d := range pci.Devices(bus) {
		classCode := d.Read(0, classCodeOffset)

		progIF := uint8(classCode >> 8)
		subclass := uint8(classCode >> 16)
		class := uint8(classCode >> 24)

		if class == classSerialBus && subclass == subclassUSB && progIF == progIfXHCI {
			return &Function{dev: d}, nil
		}
	}

	return nil, fmt.Errorf("xhci: no xHCI function found on bus %d", bus)
}

// MMIOBase returns the xHCI MMIO register base address, decoded from
// BAR0 (64-bit BARs are handled transparently by the underlying
// package).
func (f *Function) MMIOBase() uint {
	return f.dev.BaseAddress(0)
}

// EnableMSIX walks the device's PCI Capabilities List for an MSI-X
// capability and, if present, programs vector n to deliver interrupts
// as the message (addr, data) pair. It returns false if the function
// has no MSI-X capability, in which case the caller falls back to
// polling the Event Ring.
func (f *Function) EnableMSIX(vector int, addr uint64, data uint32) bool {
	for off, hdr := range f.dev.Capabilities() {
		if hdr.Vendor != pci.MSIX {
			continue
		}

		msix := &pci.CapabilityMSIX{}

		if err := msix.Unmarshal(f.dev, off); err != nil {
			return false
		}

		msix.EnableInterrupt(vector, addr, data)

		return true
	}

	return false
}
