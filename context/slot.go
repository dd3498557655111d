// xHCI Slot Context
// https://github.com/usbarmory/xhci
//
// Copyright (c) The xhci Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package context implements the hardware-defined Slot, Endpoint,
// Device and Input Context structures (spec §3 "Slot Context" ...
// "Input Context"), marshaled with the same bytes.Buffer/binary.Write
// idiom the teacher uses for USB descriptors
// (soc/imx6/usb/descriptor.go).
package context

import (
	"bytes"
	"encoding/binary"
)

// SlotSize is the fixed on-wire size of a Slot Context (spec §3).
const SlotSize = 32

// Slot is the 32-byte Slot Context: route string, speed, number of
// context entries, root-hub port number, and slot state.
type Slot struct {
	// dword0: Route String (20 bits), Speed (4 bits), Context Entries (5 bits)
	RouteString    uint32
	Speed          uint8
	ContextEntries uint8

	// dword1: Root Hub Port Number, Number of Ports
	RootHubPortNumber uint8

	// dword3: Slot State (read-only, set by hardware), USB Device Address
	USBDeviceAddress uint8
	SlotState        uint8
}

// Bytes marshals the Slot Context to its 32-byte wire representation.
func (s *Slot) Bytes() []byte {
	var dword0, dword1, dword3 uint32

	dword0 = s.RouteString&0xfffff | uint32(s.Speed&0xf)<<20 | uint32(s.ContextEntries&0x1f)<<27
	dword1 = uint32(s.RootHubPortNumber) << 16
	dword3 = uint32(s.USBDeviceAddress) | uint32(s.SlotState&0x1f)<<27

	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, dword0)
	binary.Write(buf, binary.LittleEndian, dword1)
	binary.Write(buf, binary.LittleEndian, uint32(0)) // dword2, unused by this design
	binary.Write(buf, binary.LittleEndian, dword3)

	b := buf.Bytes()
	for len(b) < SlotSize {
		b = append(b, 0)
	}

	return b
}

// UnmarshalSlot decodes a Slot Context from its 32-byte wire
// representation, used to read back hardware-updated fields (e.g.
// SlotState) after a command completes.
func UnmarshalSlot(buf []byte) Slot {
	dword0 := binary.LittleEndian.Uint32(buf[0:])
	dword1 := binary.LittleEndian.Uint32(buf[4:])
	dword3 := binary.LittleEndian.Uint32(buf[12:])

	return Slot{
		RouteString:       dword0 & 0xfffff,
		Speed:             uint8((dword0 >> 20) & 0xf),
		ContextEntries:    uint8((dword0 >> 27) & 0x1f),
		RootHubPortNumber: uint8((dword1 >> 16) & 0xff),
		USBDeviceAddress:  uint8(dword3 & 0xff),
		SlotState:         uint8((dword3 >> 27) & 0x1f),
	}
}
