// xHCI Port Register Set
// https://github.com/usbarmory/xhci
//
// Copyright (c) The xhci Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package regs

import "github.com/usbarmory/xhci/internal/reg"

// PORTSC bit positions and field widths (spec §3 "Port", S2).
const (
	portscCCS   = 0
	portscPED   = 1
	portscPR    = 4
	portscSpeed = 10
	portscWRC   = 19
	portscPRC   = 21
)

// Port is one Port Register Set, 0x10 bytes, at
// Operational base + 0x400 + (n-1)*0x10 (spec §4.1).
type Port struct {
	base uint
}

// PORTSC returns the raw Port Status and Control register.
func (p *Port) PORTSC() uint32 {
	return reg.Read32(p.base)
}

// CCS reports Current Connect Status.
func (p *Port) CCS() bool {
	return reg.Get32(p.base, portscCCS, 1) == 1
}

// PED reports Port Enabled/Disabled.
func (p *Port) PED() bool {
	return reg.Get32(p.base, portscPED, 1) == 1
}

// Speed returns the 4-bit PORTSC.Speed field (spec §4.7).
func (p *Port) Speed() uint8 {
	return uint8(reg.Get32(p.base, portscSpeed, 0xf))
}

// SetReset sets PORTSC.PR to initiate a port reset.
func (p *Port) SetReset() {
	reg.Set32(p.base, portscPR)
}

// ClearPortResetChange clears PORTSC.PRC (write-1-clear) without
// disturbing any other change bits in the same register (spec §4.3
// step 11; §6 "write-1-clear bits ... MUST NOT be inadvertently
// re-set"). PORTSC packs several independent W1C status bits (CSC,
// PEC, WRC, OCC, PRC, PLC, CEC); a read-modify-write risks reading one
// of those asserted and writing it straight back, which on real
// hardware clears it too. reg.WriteBit32 writes only the PRC bit,
// blind, with no preceding read.
func (p *Port) ClearPortResetChange() {
	reg.WriteBit32(p.base, portscPRC)
}

// ClearWarmResetChange clears PORTSC.WRC (write-1-clear), mirroring
// ClearPortResetChange.
func (p *Port) ClearWarmResetChange() {
	reg.WriteBit32(p.base, portscWRC)
}
