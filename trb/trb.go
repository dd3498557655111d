// xHCI Transfer Request Block model
// https://github.com/usbarmory/xhci
//
// Copyright (c) The xhci Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package trb implements the 16-byte Transfer Request Block shared by the
// Command, Transfer and Event rings, with typed builder wrappers that
// consume into the single on-wire layout (spec §3 "Generic TRB", Design
// Note "Polymorphism over TRB variants").
//
// Every builder follows the same discipline used throughout the teacher's
// register and descriptor code (e.g. soc/nxp/usb/endpoint.go's dQH/dTD
// construction): zero the field before OR-ing a new value, and stamp the
// Cycle bit in Control last of all.
package trb

import (
	"encoding/binary"

	"github.com/usbarmory/tamago/bits"
)

// Size is the fixed on-wire size of a TRB in bytes.
const Size = 16

// Type is the 6-bit TRB type tag (spec §3 "TrbType").
type Type uint32

// Transfer TRB types.
const (
	Normal Type = 1 + iota
	SetupStage
	DataStage
	StatusStage
	Isoch
	Link
	EventData
	NoOp
)

// Command TRB types.
const (
	EnableSlot Type = 9 + iota
	DisableSlot
	AddressDevice
	ConfigureEndpoint
	EvaluateContext
	ResetEndpoint
	StopEndpoint
	SetTRDequeuePointer
	ResetDevice
	ForceEvent
	NegotiateBandwidth
	SetLatencyToleranceValue
	GetPortBandwidth
	ForceHeader
	NoOpCmd
	GetExtendedProperty
	SetExtendedProperty
)

// Event TRB types.
const (
	TransferEvent      Type = 32
	CommandCompletion  Type = 33
	PortStatusChange   Type = 34
	DoorbellEvent      Type = 36
	HostController     Type = 37
	DeviceNotification Type = 38
	MfindexWrap        Type = 39
)

// String renders a human readable name for logging, mirroring the
// original driver's Debug derive for its TRB type enum.
func (t Type) String() string {
	switch t {
	case Normal:
		return "Normal"
	case SetupStage:
		return "SetupStage"
	case DataStage:
		return "DataStage"
	case StatusStage:
		return "StatusStage"
	case Isoch:
		return "Isoch"
	case Link:
		return "Link"
	case EventData:
		return "EventData"
	case NoOp:
		return "NoOp"
	case EnableSlot:
		return "EnableSlot"
	case DisableSlot:
		return "DisableSlot"
	case AddressDevice:
		return "AddressDevice"
	case ConfigureEndpoint:
		return "ConfigureEndpoint"
	case EvaluateContext:
		return "EvaluateContext"
	case ResetEndpoint:
		return "ResetEndpoint"
	case StopEndpoint:
		return "StopEndpoint"
	case SetTRDequeuePointer:
		return "SetTRDequeuePointer"
	case ResetDevice:
		return "ResetDevice"
	case NoOpCmd:
		return "NoOpCmd"
	case GetExtendedProperty:
		return "GetExtendedProperty"
	case SetExtendedProperty:
		return "SetExtendedProperty"
	case TransferEvent:
		return "TransferEvent"
	case CommandCompletion:
		return "CommandCompletion"
	case PortStatusChange:
		return "PortStatusChange"
	case DoorbellEvent:
		return "DoorbellEvent"
	case HostController:
		return "HostController"
	case DeviceNotification:
		return "DeviceNotification"
	case MfindexWrap:
		return "MfindexWrap"
	default:
		return "Reserved"
	}
}

// Control bit positions shared by every TRB.
const (
	cycleBit      = 0
	typePos       = 10
	typeMask      = 0x3f
	endpointIDPos = 16
	slotIDPos     = 24
)

// Transfer TRB Control bits, shared by Normal/SetupStage/DataStage/
// StatusStage/Link.
const (
	encBit  = 1 // Evaluate Next TRB (ENT), transfer TRBs other than Link
	ispBit  = 2 // Interrupt-on Short Packet
	iocBit  = 5 // Interrupt On Completion
	idtBit  = 6 // Immediate Data, Setup Stage only
	tcBit   = 1 // Toggle Cycle, Link only (same bit position as encBit)
	dirBit  = 16
	trtPos  = 16 // Transfer Type, Setup Stage only
	trtMask = 0x3
)

// Setup Stage TRT (Transfer Type) values.
const (
	NoDataStage    = 0
	OutDataStage   = 2
	InDataStage    = 3
)

// TRB is the generic 16-byte ring element. ParamLo/ParamHi form the first
// 64-bit field, Status the third word, Control the fourth.
type TRB struct {
	ParamLo uint32
	ParamHi uint32
	Status  uint32
	Control uint32
}

// TrbType returns the decoded, tagged type of the TRB.
func (t *TRB) TrbType() Type {
	return Type(bits.Get(&t.Control, typePos, typeMask))
}

// Cycle returns the Cycle bit.
func (t *TRB) Cycle() bool {
	return bits.Get(&t.Control, cycleBit, 1) == 1
}

// SetCycle sets or clears the Cycle bit. Every builder in this package
// calls this last, after every other field of Control has been written,
// per spec §3 "writing a TRB means ... write the control word with C =
// PCS as the last step".
func (t *TRB) SetCycle(c bool) {
	if c {
		bits.Set(&t.Control, cycleBit)
	} else {
		bits.Clear(&t.Control, cycleBit)
	}
}

// Parameter returns the 64-bit Parameter field (physical pointer or
// inlined Setup Stage data).
func (t *TRB) Parameter() uint64 {
	return uint64(t.ParamHi)<<32 | uint64(t.ParamLo)
}

// SetParameter writes the 64-bit Parameter field.
func (t *TRB) SetParameter(p uint64) {
	t.ParamLo = uint32(p)
	t.ParamHi = uint32(p >> 32)
}

// SlotID returns the slot id carried in Control bits 24-31, used by
// Command and some Event TRBs.
func (t *TRB) SlotID() uint8 {
	return uint8(bits.Get(&t.Control, slotIDPos, 0xff))
}

// EndpointID returns the Endpoint ID (DCI) carried in Control bits
// 16-20, as set on Transfer Event TRBs.
func (t *TRB) EndpointID() uint8 {
	return uint8(bits.Get(&t.Control, endpointIDPos, 0x1f))
}

func (t *TRB) setSlotID(id uint8) {
	bits.SetN(&t.Control, slotIDPos, 0xff, uint32(id))
}

func (t *TRB) setType(typ Type) {
	bits.SetN(&t.Control, typePos, typeMask, uint32(typ))
}

// setEndpointID writes the Endpoint ID (DCI) carried in Control bits
// 16-20, the field EndpointID decodes.
func (t *TRB) setEndpointID(dci uint8) {
	bits.SetN(&t.Control, endpointIDPos, 0x1f, uint32(dci))
}

// Bytes marshals the TRB to its 16-byte wire representation.
func (t *TRB) Bytes() []byte {
	buf := make([]byte, Size)
	binary.LittleEndian.PutUint32(buf[0:], t.ParamLo)
	binary.LittleEndian.PutUint32(buf[4:], t.ParamHi)
	binary.LittleEndian.PutUint32(buf[8:], t.Status)
	binary.LittleEndian.PutUint32(buf[12:], t.Control)

	return buf
}

// Unmarshal decodes a TRB from its 16-byte wire representation.
func Unmarshal(buf []byte) (t TRB) {
	t.ParamLo = binary.LittleEndian.Uint32(buf[0:])
	t.ParamHi = binary.LittleEndian.Uint32(buf[4:])
	t.Status = binary.LittleEndian.Uint32(buf[8:])
	t.Control = binary.LittleEndian.Uint32(buf[12:])

	return
}
