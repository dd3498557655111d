// xHCI Extended Capabilities
// https://github.com/usbarmory/xhci
//
// Copyright (c) The xhci Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package xecp walks the xHCI Extended Capabilities linked list rooted
// at HCCPARAMS1.xECP (spec §4.2), performs the USB Legacy Support
// BIOS-to-OS handoff, and parses Supported Protocol entries to pair
// USB2/USB3 root-hub ports, grounded on the teacher's PCI Capabilities
// iterator (soc/intel/pci/capability.go).
package xecp

import (
	"time"

	"github.com/usbarmory/xhci/internal/reg"
	"github.com/usbarmory/xhci/xhcierr"
)

// Capability IDs (xHCI 1.2 table 7.2).
const (
	IDReserved           = 0
	IDLegacySupport      = 1
	IDSupportedProtocol  = 2
	IDExtendedPower      = 3
	IDIOVirtualization   = 4
	IDMessageInterrupt   = 5
	IDLocalMemory        = 6
	IDUSBDebug           = 10
	IDExtendedMessage    = 17
)

const (
	headerIDMask   = 0xff
	headerNextMask = 0xff
	headerNextPos  = 8
)

// header returns (id, nextOffset) decoded from the first dword of the
// capability at addr. nextOffset is a dword count relative to addr, or
// 0 at the end of the list.
func header(addr uint) (id uint8, next uint32) {
	v := reg.Read32(addr)
	id = uint8(v & headerIDMask)
	next = (v >> headerNextPos) & headerNextMask

	return
}

// Walk iterates the Extended Capabilities list starting at
// base+xECP*4, yielding each entry's id and MMIO address, mirroring the
// teacher's Capabilities() range-over-func iterator
// (soc/intel/pci/capability.go).
func Walk(base uint, xECPDwords uint32) func(func(id uint8, addr uint) bool) {
	return func(yield func(uint8, uint) bool) {
		if xECPDwords == 0 {
			return
		}

		addr := base + uint(xECPDwords*4)

		for {
			id, next := header(addr)

			if !yield(id, addr) {
				return
			}

			if next == 0 {
				return
			}

			addr += uint(next * 4)
		}
	}
}

// Legacy Support Capability field offsets, relative to the capability's
// own base.
const (
	offUSBLegSup    = 0x00
	offUSBLegCtlSts = 0x04
)

const (
	legBIOSOwned = 16
	legOSOwned   = 24
)

// Handoff performs the USB Legacy Support BIOS-to-OS handoff at the
// Extended Capability found at addr (spec §4.2): it requests ownership
// then polls for the BIOS to release it, for up to 10 ms. On timeout it
// returns LegacyHandoffTimeout, which callers treat as logged and
// non-fatal (xHCI spec: "the legacy bit is forcibly cleared by the
// handoff protocol").
func Handoff(addr uint) error {
	reg.Set32(addr+offUSBLegSup, legOSOwned)

	if reg.WaitFor32(10*time.Millisecond, addr+offUSBLegSup, legBIOSOwned, 1, 0) {
		return nil
	}

	return xhcierr.New(xhcierr.LegacyHandoffTimeout, "BIOS did not release USB Legacy Support ownership within 10ms")
}

// Protocol describes one Supported Protocol Extended Capability entry
// (spec §3 "Port"): a contiguous run of root-hub ports speaking a given
// USB major revision.
type Protocol struct {
	// Major is 2 or 3, decoded from the capability's Major Revision
	// field.
	Major uint8
	// PortOffset is the 1-indexed first port this entry covers.
	PortOffset uint8
	// PortCount is the number of consecutive ports this entry covers.
	PortCount uint8
}

const (
	offSupportedProtocol = 0x00
	offNameString        = 0x04
	offPortInfo          = 0x08
)

// ParseProtocol decodes a Supported Protocol Extended Capability at
// addr.
func ParseProtocol(addr uint) Protocol {
	head := reg.Read32(addr + offSupportedProtocol)
	portInfo := reg.Read32(addr + offPortInfo)

	return Protocol{
		Major:      uint8(head >> 24),
		PortOffset: uint8(portInfo & 0xff),
		PortCount:  uint8((portInfo >> 8) & 0xff),
	}
}

// Receptacle is one physical USB connector exposed as a pair of root-hub
// port numbers: a USB2-speed port number and, if the connector also
// negotiates SuperSpeed, a USB3-speed port number.
type Receptacle struct {
	USB2 uint8
	USB3 uint8
}

// Pair matches logically-paired USB2/USB3 port ranges from a decoded
// Protocol list (spec §3 "Port": "logically paired USB2/USB3 ports
// share a physical receptacle"). Root-hub port numbering convention:
// the USB2 and USB3 Supported Protocol entries each describe a
// contiguous run of ports; the i-th port of the USB2 run and the i-th
// port of the USB3 run share a receptacle. Any unmatched remainder
// (the two runs differ in length) is left with its other member zero,
// to be used only as a fallback per spec §3.
func Pair(protocols []Protocol) []Receptacle {
	var usb2, usb3 Protocol

	for _, p := range protocols {
		switch p.Major {
		case 2:
			usb2 = p
		case 3:
			usb3 = p
		}
	}

	n := int(usb2.PortCount)
	if int(usb3.PortCount) > n {
		n = int(usb3.PortCount)
	}

	receptacles := make([]Receptacle, n)

	for i := 0; i < n; i++ {
		var r Receptacle

		if i < int(usb2.PortCount) {
			r.USB2 = usb2.PortOffset + uint8(i)
		}

		if i < int(usb3.PortCount) {
			r.USB3 = usb3.PortOffset + uint8(i)
		}

		receptacles[i] = r
	}

	return receptacles
}
