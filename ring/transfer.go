// Transfer Ring
// https://github.com/usbarmory/xhci
//
// Copyright (c) The xhci Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package ring

import (
	"github.com/usbarmory/xhci/memory"
	"github.com/usbarmory/xhci/trb"
)

// DCI computes the Device Context Index for a USB endpoint address
// (spec §4.5): "DCI for endpoint address ep is 2*(ep & 0xF) + (ep >>
// 7); control endpoint is DCI=1."
func DCI(bEndpointAddress uint8) uint8 {
	if bEndpointAddress == 0 {
		return 1
	}

	return 2*(bEndpointAddress&0xF) + (bEndpointAddress >> 7)
}

// Transfer is a per-(slot, DCI) Transfer Ring (spec §4.5), built on the
// same producer discipline as the Command Ring but with no backpressure
// semaphore: transfer scheduling in this design is simple enough that
// the caller is expected to track its own outstanding TRBs.
type Transfer struct {
	ring *Ring
	db   Doorbell
	slot int
	dci  uint8
}

// NewTransfer allocates a Transfer Ring of the given capacity for the
// given slot and DCI.
func NewTransfer(mem memory.Region, trans memory.Translator, capacity int, db Doorbell, slot int, dci uint8) (*Transfer, error) {
	r, err := New(mem, trans, capacity)
	if err != nil {
		return nil, err
	}

	return &Transfer{ring: r, db: db, slot: slot, dci: dci}, nil
}

// Phys returns the physical base address of the ring, for the owning
// Endpoint Context's TRDP field.
func (t *Transfer) Phys() uint64 {
	return t.ring.Phys()
}

// DCS returns the ring's current Producer Cycle State, the Endpoint
// Context's initial Dequeue Cycle State.
func (t *Transfer) DCS() bool {
	return t.ring.PCS()
}

// PushSetupStage pushes a Setup Stage TRB and rings the doorbell.
func (t *Transfer) PushSetupStage(bmRequestType, bRequest uint8, wValue, wIndex, wLength uint16, trt uint8) uint64 {
	addr := t.ring.push(trb.NewSetupStage(bmRequestType, bRequest, wValue, wIndex, wLength, trt, true))
	t.db.Ring(t.slot, t.dci, 0)

	return addr
}

// PushDataStage pushes a Data Stage TRB and rings the doorbell.
func (t *Transfer) PushDataStage(bufPhys uint64, length uint32, dir bool, ioc bool) uint64 {
	addr := t.ring.push(trb.NewDataStage(bufPhys, length, 0, 0, dir, ioc, true))
	t.db.Ring(t.slot, t.dci, 0)

	return addr
}

// PushStatusStage pushes a Status Stage TRB and rings the doorbell.
func (t *Transfer) PushStatusStage(dir bool, ioc bool) uint64 {
	addr := t.ring.push(trb.NewStatusStage(dir, ioc, true))
	t.db.Ring(t.slot, t.dci, 0)

	return addr
}

// PushNormal pushes a Normal TRB and rings the doorbell (spec S4: used
// for steady-state interrupt/bulk transfers once a device reaches
// Finish).
func (t *Transfer) PushNormal(bufPhys uint64, length uint32, isp bool, ioc bool) uint64 {
	addr := t.ring.push(trb.NewNormal(bufPhys, length, 0, 0, isp, ioc, true))
	t.db.Ring(t.slot, t.dci, 0)

	return addr
}

// Dump renders every slot, for diagnostics.
func (t *Transfer) Dump() []string {
	return t.ring.Dump()
}
