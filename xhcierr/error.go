// xHCI driver error taxonomy
// https://github.com/usbarmory/xhci
//
// Copyright (c) The xhci Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package xhcierr defines the closed set of error kinds the driver raises,
// so that callers can distinguish fatal initialization errors from
// per-device quarantine errors without parsing message text.
package xhcierr

import "fmt"

// Kind is one of the error categories this driver raises.
type Kind int

const (
	// UnsupportedController: AC64=0, CSZ=1, or unprovisioned scratchpad
	// buffers were requested by the controller. Fatal at init.
	UnsupportedController Kind = iota
	// TimeoutDuringReset: HCH/CNR/HCRST never reached the expected
	// value within the bounded wait. Fatal at init.
	TimeoutDuringReset
	// LegacyHandoffTimeout: the BIOS-owned semaphore did not clear
	// within 10ms. Logged, non-fatal; bring-up proceeds anyway.
	LegacyHandoffTimeout
	// InvalidSlotId: a CommandCompletion named a slot id outside
	// (0, MaxSlots], or a slot already in use. Fatal for that device.
	InvalidSlotId
	// RingOverflow: a caller attempted to enqueue onto the Link slot
	// without respecting ring backpressure. Indicates a driver bug.
	RingOverflow
	// TransferFailure: a Transfer event completed with a code other
	// than Success or ShortPacket. The device is quarantined.
	TransferFailure
	// EventLost: the Event Ring reported Event Lost / full. Surfaced
	// as a controller-level warning; the driver keeps draining.
	EventLost
)

func (k Kind) String() string {
	switch k {
	case UnsupportedController:
		return "UnsupportedController"
	case TimeoutDuringReset:
		return "TimeoutDuringReset"
	case LegacyHandoffTimeout:
		return "LegacyHandoffTimeout"
	case InvalidSlotId:
		return "InvalidSlotId"
	case RingOverflow:
		return "RingOverflow"
	case TransferFailure:
		return "TransferFailure"
	case EventLost:
		return "EventLost"
	default:
		return "Unknown"
	}
}

// Error wraps a Kind with context and an optional underlying cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("xhci: %s: %s: %v", e.Kind, e.Msg, e.Err)
	}

	return fmt.Sprintf("xhci: %s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds an Error of the given kind.
func New(kind Kind, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap builds an Error of the given kind around an underlying cause.
func Wrap(kind Kind, msg string, err error) error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}
