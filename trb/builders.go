// Typed TRB builders
// https://github.com/usbarmory/xhci
//
// Copyright (c) The xhci Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package trb

import "github.com/usbarmory/tamago/bits"

// Status word bit positions shared by Normal/Data Stage TRBs.
const (
	transferLengthMask = 0x1ffff
	tdSizePos          = 17
	tdSizeMask         = 0x1f
	interrupterPos     = 22
	interrupterMask    = 0x3ff
)

func setTransferLength(status *uint32, length uint32, tdSize uint8, interrupter uint16) {
	bits.SetN(status, 0, transferLengthMask, length)
	bits.SetN(status, tdSizePos, tdSizeMask, uint32(tdSize))
	bits.SetN(status, interrupterPos, interrupterMask, uint32(interrupter))
}

// NewNormal builds a Normal TRB for bulk/interrupt/isochronous data
// stages with no Setup packet (spec §4.5).
func NewNormal(bufPhys uint64, length uint32, tdSize uint8, interrupter uint16, isp bool, ioc bool, cycle bool) TRB {
	var t TRB

	t.SetParameter(bufPhys)
	setTransferLength(&t.Status, length, tdSize, interrupter)

	if isp {
		bits.Set(&t.Control, ispBit)
	}

	if ioc {
		bits.Set(&t.Control, iocBit)
	}

	t.setType(Normal)
	t.SetCycle(cycle)

	return t
}

// NewSetupStage builds a Setup Stage TRB with the 8-byte Setup packet
// inlined into the Parameter field via Immediate Data (spec §4.5,
// "Control transfers begin with a Setup Stage TRB").
func NewSetupStage(bmRequestType, bRequest uint8, wValue, wIndex, wLength uint16, trt uint8, cycle bool) TRB {
	var t TRB

	t.ParamLo = uint32(bmRequestType) | uint32(bRequest)<<8 | uint32(wValue)<<16
	t.ParamHi = uint32(wIndex) | uint32(wLength)<<16

	// Transfer Length is fixed at 8 for Setup Stage TRBs.
	bits.SetN(&t.Status, 0, transferLengthMask, 8)

	bits.Set(&t.Control, idtBit)
	bits.SetN(&t.Control, trtPos, trtMask, uint32(trt))
	t.setType(SetupStage)
	t.SetCycle(cycle)

	return t
}

// NewDataStage builds a Data Stage TRB carrying the buffer for the data
// phase of a control transfer. dir selects IN (true) or OUT (false).
func NewDataStage(bufPhys uint64, length uint32, tdSize uint8, interrupter uint16, dir bool, ioc bool, cycle bool) TRB {
	var t TRB

	t.SetParameter(bufPhys)
	setTransferLength(&t.Status, length, tdSize, interrupter)

	if dir {
		bits.Set(&t.Control, dirBit)
	}

	if ioc {
		bits.Set(&t.Control, iocBit)
	}

	t.setType(DataStage)
	t.SetCycle(cycle)

	return t
}

// NewStatusStage builds the Status Stage TRB that closes a control
// transfer. dir is the opposite direction of the data phase (or IN for
// a no-data-stage transfer).
func NewStatusStage(dir bool, ioc bool, cycle bool) TRB {
	var t TRB

	if dir {
		bits.Set(&t.Control, dirBit)
	}

	if ioc {
		bits.Set(&t.Control, iocBit)
	}

	t.setType(StatusStage)
	t.SetCycle(cycle)

	return t
}

// NewLink builds a Link TRB pointing back to the ring segment's first
// entry, closing the ring (spec §3 "Ring" invariant, wraparound). When
// toggleCycle is set, software consuming this TRB must flip its
// producer cycle state before continuing.
func NewLink(targetPhys uint64, toggleCycle bool, ioc bool, cycle bool) TRB {
	var t TRB

	t.SetParameter(targetPhys)

	if toggleCycle {
		bits.Set(&t.Control, tcBit)
	}

	if ioc {
		bits.Set(&t.Control, iocBit)
	}

	t.setType(Link)
	t.SetCycle(cycle)

	return t
}

// NewEnableSlot builds an Enable Slot Command TRB.
func NewEnableSlot(cycle bool) TRB {
	var t TRB

	t.setType(EnableSlot)
	t.SetCycle(cycle)

	return t
}

// NewDisableSlot builds a Disable Slot Command TRB for slotID.
func NewDisableSlot(slotID uint8, cycle bool) TRB {
	var t TRB

	t.setSlotID(slotID)
	t.setType(DisableSlot)
	t.SetCycle(cycle)

	return t
}

// NewAddressDevice builds an Address Device Command TRB referencing the
// Input Context at inputCtxPhys for slotID.
func NewAddressDevice(inputCtxPhys uint64, slotID uint8, bsr bool, cycle bool) TRB {
	var t TRB

	t.SetParameter(inputCtxPhys)

	const bsrBit = 9
	if bsr {
		bits.Set(&t.Control, bsrBit)
	}

	t.setSlotID(slotID)
	t.setType(AddressDevice)
	t.SetCycle(cycle)

	return t
}

// NewConfigureEndpoint builds a Configure Endpoint Command TRB
// referencing the Input Context at inputCtxPhys for slotID.
func NewConfigureEndpoint(inputCtxPhys uint64, slotID uint8, cycle bool) TRB {
	var t TRB

	t.SetParameter(inputCtxPhys)
	t.setSlotID(slotID)
	t.setType(ConfigureEndpoint)
	t.SetCycle(cycle)

	return t
}

// NewEvaluateContext builds an Evaluate Context Command TRB referencing
// the Input Context at inputCtxPhys for slotID.
func NewEvaluateContext(inputCtxPhys uint64, slotID uint8, cycle bool) TRB {
	var t TRB

	t.SetParameter(inputCtxPhys)
	t.setSlotID(slotID)
	t.setType(EvaluateContext)
	t.SetCycle(cycle)

	return t
}

// NewNoOpCmd builds a No Op Command TRB, used to probe Command Ring
// plumbing without side effects.
func NewNoOpCmd(cycle bool) TRB {
	var t TRB

	t.setType(NoOpCmd)
	t.SetCycle(cycle)

	return t
}

// NewEventData builds an Event Data TRB, which asks the controller to
// report ptr verbatim in the Transfer Event that follows it.
func NewEventData(ptr uint64, ioc bool, cycle bool) TRB {
	var t TRB

	t.SetParameter(ptr)

	if ioc {
		bits.Set(&t.Control, iocBit)
	}

	t.setType(EventData)
	t.SetCycle(cycle)

	return t
}
