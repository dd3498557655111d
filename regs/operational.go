// xHCI Operational register block
// https://github.com/usbarmory/xhci
//
// Copyright (c) The xhci Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package regs

import "github.com/usbarmory/xhci/internal/reg"

// Operational register offsets, relative to the Operational block base
// (base+CAPLENGTH, spec §4.1).
const (
	offUSBCmd  = 0x00
	offUSBSts  = 0x04
	offPageSz  = 0x08
	offDNCtrl  = 0x14
	offCRCR    = 0x18
	offDCBAAP  = 0x30
	offConfig  = 0x38
	offPortBase = 0x400
	portRegSize = 0x10
)

// USBCMD bit positions.
const (
	cmdRS    = 0
	cmdHCRST = 1
	cmdINTE  = 2
	cmdHSEE  = 3
	cmdEWE   = 10
)

// USBSTS bit positions.
const (
	stsHCH = 0
	stsCNR = 11
)

// CRCR bit positions.
const (
	crcrRCS = 0
	crcrCS  = 1
	crcrCA  = 2
	crcrCRR = 3
)

// Operational is the read/write Operational register block at
// base+CAPLENGTH.
type Operational struct {
	base uint
}

// NewOperational wraps the Operational block at the given address.
func NewOperational(base uint) *Operational {
	return &Operational{base: base}
}

// SetRunStop writes USBCMD.RS.
func (o *Operational) SetRunStop(run bool) {
	if run {
		reg.Set32(o.base+offUSBCmd, cmdRS)
	} else {
		reg.Clear32(o.base+offUSBCmd, cmdRS)
	}
}

// SetHCReset writes USBCMD.HCRST.
func (o *Operational) SetHCReset() {
	reg.Set32(o.base+offUSBCmd, cmdHCRST)
}

// HCResetInProgress reads back USBCMD.HCRST.
func (o *Operational) HCResetInProgress() bool {
	return reg.Get32(o.base+offUSBCmd, cmdHCRST, 1) == 1
}

// SetInterrupterEnable writes USBCMD.INTE.
func (o *Operational) SetInterrupterEnable(enable bool) {
	if enable {
		reg.Set32(o.base+offUSBCmd, cmdINTE)
	} else {
		reg.Clear32(o.base+offUSBCmd, cmdINTE)
	}
}

// SetHostSystemErrorEnable writes USBCMD.HSEE.
func (o *Operational) SetHostSystemErrorEnable(enable bool) {
	if enable {
		reg.Set32(o.base+offUSBCmd, cmdHSEE)
	} else {
		reg.Clear32(o.base+offUSBCmd, cmdHSEE)
	}
}

// SetWrapEventEnable writes USBCMD.EWE.
func (o *Operational) SetWrapEventEnable(enable bool) {
	if enable {
		reg.Set32(o.base+offUSBCmd, cmdEWE)
	} else {
		reg.Clear32(o.base+offUSBCmd, cmdEWE)
	}
}

// HCHalted reads USBSTS.HCH.
func (o *Operational) HCHalted() bool {
	return reg.Get32(o.base+offUSBSts, stsHCH, 1) == 1
}

// ControllerNotReady reads USBSTS.CNR.
func (o *Operational) ControllerNotReady() bool {
	return reg.Get32(o.base+offUSBSts, stsCNR, 1) == 1
}

// PageSize decodes PAGESIZE into bytes (the register holds page size
// in 4 KiB units, bit n set means (1<<n)*4096).
func (o *Operational) PageSize() uint32 {
	bits := reg.Get32(o.base+offPageSz, 0, 0xffff)

	for n := 0; n < 16; n++ {
		if bits&(1<<n) != 0 {
			return uint32(1<<n) * 4096
		}
	}

	return 4096
}

// SetDeviceNotificationEnable writes DNCTRL.
func (o *Operational) SetDeviceNotificationEnable(mask uint16) {
	reg.SetN32(o.base+offDNCtrl, 0, 0xffff, uint32(mask))
}

// SetCommandRing writes CRCR.CRP and CRCR.RCS. The physical address
// must already be 64-byte aligned; the low 6 bits of phys are reserved
// for RCS/CS/CA/CRR and are cleared before OR-ing in the control bits.
func (o *Operational) SetCommandRing(phys uint64, rcs bool) {
	v := phys &^ 0x3f

	if rcs {
		v |= 1 << crcrRCS
	}

	reg.Write64(o.base+offCRCR, v)
}

// SetDCBAAP writes the DCBAA's physical base address.
func (o *Operational) SetDCBAAP(phys uint64) {
	reg.Write64(o.base+offDCBAAP, phys)
}

// SetMaxSlotsEnabled writes CONFIG.MaxSlotsEnabled.
func (o *Operational) SetMaxSlotsEnabled(n uint8) {
	reg.SetN32(o.base+offConfig, 0, 0xff, uint32(n))
}

// Port returns the Port Register Set for 1-indexed port n.
func (o *Operational) Port(n int) *Port {
	return &Port{base: o.base + offPortBase + uint((n-1)*portRegSize)}
}
