// Event Ring
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

// Event is the Event Ring (spec §3 "Event Ring", §4.6): a single
// segment, consumer-owned ring. The driver is the sole consumer; it
// dequeues TRBs in order and periodically reports its progress back to
// hardware via ERDP.
type Event struct {
	ring   *Ring
	ccs    bool
	deqIdx int
}

// NewEvent allocates an Event Ring segment of the given capacity.
func NewEvent(mem memory.Region, trans memory.Translator, capacity int) (*Event, error) {
	r, err := New(mem, trans, capacity)
	if err != nil {
		return nil, err
	}

	return &Event{ring: r, ccs: true}, nil
}

// Phys returns the physical base address of the ring segment, for the
// ERST entry and the initial ERDP.
func (e *Event) Phys() uint64 {
	return e.ring.Phys()
}

// Capacity returns the number of TRB slots in the segment, for the
// ERST entry's size field.
func (e *Event) Capacity() int {
	return e.ring.capacity
}

// CCS returns the current Consumer Cycle State.
func (e *Event) CCS() bool {
	return e.ccs
}

// ERDP computes the Event Ring Dequeue Pointer value to write back to
// hardware after draining: the physical address of the next slot to be
// consumed, with the Event Handler Busy bit set (spec §4.6, Open
// Question: "Default to EHB=1").
func (e *Event) ERDP() uint64 {
	const ehbBit = 1 << 3
	return e.ring.PhysAt(e.deqIdx) | ehbBit
}

// Pending reports whether the TRB at the dequeue pointer is ready to be
// consumed, without consuming it: its Cycle bit matches CCS (spec §4.6,
// "if trb.cycle != CCS: yield/wait").
func (e *Event) Pending() bool {
	t := e.ring.readAt(e.deqIdx)
	return t.Cycle() == e.ccs
}

// Dequeue consumes the TRB at the dequeue pointer if it is ready, and
// advances the dequeue index, wrapping and inverting CCS at the segment
// boundary (spec §3 "Event Ring": "Advancing past the last slot wraps
// to slot 0 and inverts CCS"). The driver MUST NOT read the slot again
// after this call: it belongs to hardware again only once ERDP has been
// written, but software's own view of it is retired here.
func (e *Event) Dequeue() (t trb.TRB, ok bool) {
	if !e.Pending() {
		return trb.TRB{}, false
	}

	t = e.ring.readAt(e.deqIdx)

	e.deqIdx++
	if e.deqIdx == e.ring.capacity {
		e.deqIdx = 0
		e.ccs = !e.ccs
	}

	return t, true
}

// Dump renders every slot, for diagnostics.
func (e *Event) Dump() []string {
	return e.ring.Dump()
}
