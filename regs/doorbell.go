// xHCI Doorbell array
// https://github.com/usbarmory/xhci
//
// Copyright (c) The xhci Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package regs

import "github.com/usbarmory/xhci/internal/reg"

// Doorbells is the Doorbell array at base+DBOFF: one 32-bit register
// per slot, index 0 is the Command Ring doorbell (spec §4.1, §4.4,
// §4.5). It satisfies ring.Doorbell.
type Doorbells struct {
	base uint
}

// NewDoorbells wraps the Doorbell array at the given address.
func NewDoorbells(base uint) *Doorbells {
	return &Doorbells{base: base}
}

// Ring writes DB_TARGET into bits 0-7 and DB_STREAM_ID into bits 16-31
// of the doorbell register for slot (0 = Command Ring, n = device n).
func (d *Doorbells) Ring(slot int, target uint8, streamID uint16) {
	v := uint32(target) | uint32(streamID)<<16
	reg.Write32(d.base+uint(slot*4), v)
}
