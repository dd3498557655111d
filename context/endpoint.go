// xHCI Endpoint Context
// https://github.com/usbarmory/xhci
//
// Copyright (c) The xhci Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package context

import (
	"bytes"
	"encoding/binary"
)

// EndpointSize is the fixed on-wire size of an Endpoint Context (spec
// §3).
const EndpointSize = 32

// Endpoint types (xHCI table 6-9), as used in EPType.
const (
	EPTypeNotValid     = 0
	EPTypeIsochOut     = 1
	EPTypeBulkOut      = 2
	EPTypeInterruptOut = 3
	EPTypeControl      = 4
	EPTypeIsochIn      = 5
	EPTypeBulkIn       = 6
	EPTypeInterruptIn  = 7
)

// Endpoint is the 32-byte Endpoint Context: type, packet sizing, error
// count, and the Transfer Ring Dequeue Pointer (spec §3).
type Endpoint struct {
	EPType           uint8
	MaxPacketSize    uint16
	MaxBurstSize     uint8
	ErrorCount       uint8
	Interval         uint8
	MaxPStreams      uint8
	Mult             uint8
	AverageTRBLength uint16
	// TRDP is the Transfer Ring Dequeue Pointer: a 16-byte-aligned
	// physical address with the Dequeue Cycle State folded into bit 0.
	TRDP uint64
}

// Bytes marshals the Endpoint Context to its 32-byte wire
// representation.
func (e *Endpoint) Bytes() []byte {
	var dword0, dword1 uint32
	var dword2, dword3 uint32

	dword0 = uint32(e.Interval) << 16

	dword1 = uint32(e.ErrorCount&0x3)<<1 |
		uint32(e.EPType&0x7)<<3 |
		uint32(e.MaxBurstSize)<<8 |
		uint32(e.MaxPacketSize)<<16

	dword2 = uint32(e.TRDP & 0xffffffff)
	dword3 = uint32(e.TRDP >> 32)

	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, dword0)
	binary.Write(buf, binary.LittleEndian, dword1)
	binary.Write(buf, binary.LittleEndian, dword2)
	binary.Write(buf, binary.LittleEndian, dword3)
	binary.Write(buf, binary.LittleEndian, uint32(e.AverageTRBLength))

	b := buf.Bytes()
	for len(b) < EndpointSize {
		b = append(b, 0)
	}

	return b
}

// SetTRDP folds the Dequeue Cycle State into TRDP's bit 0, matching
// hardware's expectation that the pointer's low bit carries DCS.
func (e *Endpoint) SetTRDP(phys uint64, dcs bool) {
	e.TRDP = phys &^ 1

	if dcs {
		e.TRDP |= 1
	}
}
