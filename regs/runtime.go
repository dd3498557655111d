// xHCI Runtime register block
// https://github.com/usbarmory/xhci
//
// Copyright (c) The xhci Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package regs

import "github.com/usbarmory/xhci/internal/reg"

// Runtime register offsets (spec §4.1): MFINDEX at +0, then an array
// of 0x20-byte Interrupter Register Sets starting at +0x20.
const (
	offMFIndex          = 0x00
	offInterrupterArray = 0x20
	interrupterSize     = 0x20
)

// Interrupter Register Set field offsets, relative to the start of the
// interrupter's own 0x20-byte block.
const (
	offIMAN   = 0x00
	offIMOD   = 0x04
	offERSTSZ = 0x08
	offERSTBA = 0x10
	offERDP   = 0x18
)

const (
	imanIP = 0
	imanIE = 1
)

// Runtime is the Runtime register block at base+RTSOFF.
type Runtime struct {
	base uint
}

// NewRuntime wraps the Runtime block at the given address.
func NewRuntime(base uint) *Runtime {
	return &Runtime{base: base}
}

// MFIndex reads the microframe index counter.
func (r *Runtime) MFIndex() uint32 {
	return reg.Get32(r.base+offMFIndex, 0, 0x3fff)
}

// Interrupter returns the n-th (0-indexed) Interrupter Register Set.
// The primary interrupter is index 0.
func (r *Runtime) Interrupter(n int) *Interrupter {
	return &Interrupter{base: r.base + offInterrupterArray + uint(n*interrupterSize)}
}

// Interrupter is one Interrupter Register Set: IMAN, IMOD, ERSTSZ,
// ERSTBA, ERDP (spec §4.1).
type Interrupter struct {
	base uint
}

// AckPending write-1-clears IMAN.IP.
func (i *Interrupter) AckPending() {
	reg.Set32(i.base+offIMAN, imanIP)
}

// SetEnable writes IMAN.IE.
func (i *Interrupter) SetEnable(enable bool) {
	if enable {
		reg.Set32(i.base+offIMAN, imanIE)
	} else {
		reg.Clear32(i.base+offIMAN, imanIE)
	}
}

// SetModerationInterval writes IMOD.IMODI, in 250 ns units (spec §4.3
// step 8: "IMOD.IMODI=4000 (1 ms interrupt moderation)").
func (i *Interrupter) SetModerationInterval(n uint16) {
	reg.SetN32(i.base+offIMOD, 0, 0xffff, uint32(n))
}

// SetERSTSZ writes the Event Ring Segment Table Size field.
func (i *Interrupter) SetERSTSZ(n uint16) {
	reg.SetN32(i.base+offERSTSZ, 0, 0xffff, uint32(n))
}

// SetERSTBA writes the Event Ring Segment Table's physical base
// address.
func (i *Interrupter) SetERSTBA(phys uint64) {
	reg.Write64(i.base+offERSTBA, phys)
}

// SetERDP writes the Event Ring Dequeue Pointer, including the Event
// Handler Busy bit already folded into phys by ring.Event.ERDP (spec
// §4.6, Open Question: "Default to EHB=1").
func (i *Interrupter) SetERDP(phys uint64) {
	reg.Write64(i.base+offERDP, phys)
}
