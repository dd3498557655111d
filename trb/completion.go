// Completion code taxonomy for Event TRBs
// https://github.com/usbarmory/xhci
//
// Copyright (c) The xhci Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package trb

// CompletionCode is the 8-bit completion code carried in bits 24-31 of
// an Event TRB's Status word (spec §4.6 "CompletionCode").
type CompletionCode uint8

const (
	Invalid                CompletionCode = 0
	Success                CompletionCode = 1
	DataBufferError        CompletionCode = 2
	BabbleDetected         CompletionCode = 3
	USBTransactionError    CompletionCode = 4
	TRBError               CompletionCode = 5
	StallError             CompletionCode = 6
	ResourceError          CompletionCode = 7
	BandwidthError         CompletionCode = 8
	NoSlotsAvailableError  CompletionCode = 9
	InvalidStreamType      CompletionCode = 10
	SlotNotEnabledError    CompletionCode = 11
	EndpointNotEnabled     CompletionCode = 12
	ShortPacket            CompletionCode = 13
	RingUnderrun           CompletionCode = 14
	RingOverrun            CompletionCode = 15
	VFEventRingFull        CompletionCode = 16
	ParameterError         CompletionCode = 17
	BandwidthOverrun       CompletionCode = 18
	ContextStateError      CompletionCode = 19
	NoPingResponse         CompletionCode = 20
	EventRingFullError     CompletionCode = 21
	IncompatibleDevice     CompletionCode = 22
	MissedService          CompletionCode = 23
	CommandRingStopped     CompletionCode = 24
	CommandAborted         CompletionCode = 25
	Stopped                CompletionCode = 26
	StoppedLengthInvalid   CompletionCode = 27
	StoppedShortPacket     CompletionCode = 28
	MaxExitLatencyTooLarge CompletionCode = 29
	IsochBufferOverrun     CompletionCode = 31
	EventLostError         CompletionCode = 32
	UndefinedError         CompletionCode = 33
	InvalidStreamIDError   CompletionCode = 34
	SecondaryBandwidth     CompletionCode = 35
	SplitTransactionError  CompletionCode = 36
)

// String renders a human readable completion code name, mirroring the
// original driver's Debug derive for its CompletionCode enum.
func (c CompletionCode) String() string {
	switch c {
	case Invalid:
		return "Invalid"
	case Success:
		return "Success"
	case DataBufferError:
		return "DataBufferError"
	case BabbleDetected:
		return "BabbleDetected"
	case USBTransactionError:
		return "USBTransactionError"
	case TRBError:
		return "TRBError"
	case StallError:
		return "StallError"
	case ResourceError:
		return "ResourceError"
	case BandwidthError:
		return "BandwidthError"
	case NoSlotsAvailableError:
		return "NoSlotsAvailableError"
	case InvalidStreamType:
		return "InvalidStreamType"
	case SlotNotEnabledError:
		return "SlotNotEnabledError"
	case EndpointNotEnabled:
		return "EndpointNotEnabled"
	case ShortPacket:
		return "ShortPacket"
	case RingUnderrun:
		return "RingUnderrun"
	case RingOverrun:
		return "RingOverrun"
	case VFEventRingFull:
		return "VFEventRingFull"
	case ParameterError:
		return "ParameterError"
	case BandwidthOverrun:
		return "BandwidthOverrun"
	case ContextStateError:
		return "ContextStateError"
	case NoPingResponse:
		return "NoPingResponse"
	case EventRingFullError:
		return "EventRingFullError"
	case IncompatibleDevice:
		return "IncompatibleDevice"
	case MissedService:
		return "MissedService"
	case CommandRingStopped:
		return "CommandRingStopped"
	case CommandAborted:
		return "CommandAborted"
	case Stopped:
		return "Stopped"
	case StoppedLengthInvalid:
		return "StoppedLengthInvalid"
	case StoppedShortPacket:
		return "StoppedShortPacket"
	case MaxExitLatencyTooLarge:
		return "MaxExitLatencyTooLarge"
	case IsochBufferOverrun:
		return "IsochBufferOverrun"
	case EventLostError:
		return "EventLostError"
	case UndefinedError:
		return "UndefinedError"
	case InvalidStreamIDError:
		return "InvalidStreamIDError"
	case SecondaryBandwidth:
		return "SecondaryBandwidth"
	case SplitTransactionError:
		return "SplitTransactionError"
	default:
		return "Reserved"
	}
}

// Code decodes the completion code carried in an Event TRB's Status
// word (bits 24-31).
func (t *TRB) Code() CompletionCode {
	return CompletionCode(t.Status >> 24)
}

// Successful reports whether the completion code indicates the
// transfer or command completed without error (spec §4.6: Success or
// ShortPacket both count as a successful Transfer Event).
func (c CompletionCode) Successful() bool {
	return c == Success || c == ShortPacket
}
