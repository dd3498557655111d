// Producer ring discipline shared by the Command and Transfer rings
// https://github.com/usbarmory/xhci
//
// Copyright (c) The xhci Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package ring implements the three producer/consumer ring structures
// xHCI mandates (spec §3 "Ring", §3 "Event Ring"): the Command Ring, a
// per-endpoint Transfer Ring, and the Event Ring with its Segment
// Table. All three share the same 16-byte TRB array layout and cycle-bit
// bookkeeping; this file holds the producer-side discipline common to
// Command and Transfer rings.
package ring

import (
	"fmt"

	"github.com/usbarmory/xhci/memory"
	"github.com/usbarmory/xhci/trb"
)

// Alignment is the minimum byte alignment every TRB ring and the Event
// Ring Segment Table must satisfy (spec §6 "TRB ring layouts").
const Alignment = 64

// MinCapacity is the smallest ring capacity this driver accepts,
// including the slot reserved for the wrap Link TRB.
const MinCapacity = 16

// Ring is a contiguous, power-of-two array of TRBs with one cycle bit
// (spec §9 "Cyclic self-reference"): the physical base is captured once,
// at allocation time, and never re-derived from a borrowed view.
type Ring struct {
	mem  memory.Region
	addr uint
	phys uint64
	buf  []byte

	capacity int
	writeIdx int
	pcs      bool
}

// New allocates a ring of capacity TRB slots (including the Link slot)
// from mem, translating its DMA address to the physical address hardware
// expects via trans. capacity must be a power of two, at least
// MinCapacity.
func New(mem memory.Region, trans memory.Translator, capacity int) (*Ring, error) {
	if capacity < MinCapacity || capacity&(capacity-1) != 0 {
		return nil, fmt.Errorf("ring: capacity %d must be a power of two >= %d", capacity, MinCapacity)
	}

	addr, buf := mem.Reserve(capacity*trb.Size, Alignment)

	for i := range buf {
		buf[i] = 0
	}

	return &Ring{
		mem:      mem,
		addr:     addr,
		phys:     uint64(trans.ToPhys(addr)),
		buf:      buf,
		capacity: capacity,
		pcs:      true,
	}, nil
}

// Phys returns the physical base address of the ring, the value
// programmed into CRCR/ERSTBA/TRDP by the owning collaborator.
func (r *Ring) Phys() uint64 {
	return r.phys
}

// Capacity returns the total number of TRB slots, including the Link
// slot.
func (r *Ring) Capacity() int {
	return r.capacity
}

// WriteIndex returns the index the next push will occupy.
func (r *Ring) WriteIndex() int {
	return r.writeIdx
}

// PCS returns the current Producer Cycle State.
func (r *Ring) PCS() bool {
	return r.pcs
}

// PhysAt returns the physical address of slot i.
func (r *Ring) PhysAt(i int) uint64 {
	return r.phys + uint64(i*trb.Size)
}

func (r *Ring) writeAt(i int, t trb.TRB) {
	copy(r.buf[i*trb.Size:], t.Bytes())
}

// readAt decodes slot i. The producer rings only read back their own
// writes through Dump; the Event Ring consumer reads every slot it
// dequeues through it.
func (r *Ring) readAt(i int) trb.TRB {
	return trb.Unmarshal(r.buf[i*trb.Size : i*trb.Size+trb.Size])
}

// push writes t at the current write index, stamping its Cycle bit with
// the ring's current PCS last (spec §3 "Ring": "write the control word
// with C = PCS as the last step"), then advances the index. When the
// index reaches the last slot, that slot is overwritten with a Link TRB
// back to the ring base, Toggle Cycle set, PCS inverted, and the index
// wraps to zero (spec §3, Testable Property 1). It returns the physical
// address the TRB was written to.
func (r *Ring) push(t trb.TRB) uint64 {
	idx := r.writeIdx
	t.SetCycle(r.pcs)
	r.writeAt(idx, t)

	addr := r.PhysAt(idx)
	r.writeIdx++

	if r.writeIdx == r.capacity-1 {
		link := trb.NewLink(r.phys, true, false, r.pcs)
		r.writeAt(r.writeIdx, link)
		r.pcs = !r.pcs
		r.writeIdx = 0
	}

	return addr
}

// Dump renders every slot, occupied or not, for diagnostics, mirroring the
// teacher's register-block dump helpers.
func (r *Ring) Dump() []string {
	lines := make([]string, 0, r.capacity)

	for i := 0; i < r.capacity; i++ {
		t := r.readAt(i)
		lines = append(lines, fmt.Sprintf("[%02d] type=%s cycle=%v param=%#x status=%#x",
			i, t.TrbType(), t.Cycle(), t.Parameter(), t.Status))
	}

	return lines
}
