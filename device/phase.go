// Per-device initialization phase tag
// https://github.com/usbarmory/xhci
//
// Copyright (c) The xhci Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package device

import "fmt"

// Kind tags which phase a Device record is in (spec §4.8). WaitConfigureCommand
// and Finish additionally carry a DCI, so Kind alone is not a complete
// phase; see Phase.
type Kind int

const (
	Uninitialized Kind = iota
	GetDeviceDescriptor
	GetConfigurationDescriptor
	SetConfiguration
	WaitConfigureCommand
	Finish
	Failed
)

func (k Kind) String() string {
	switch k {
	case Uninitialized:
		return "Uninitialized"
	case GetDeviceDescriptor:
		return "GetDeviceDescriptor"
	case GetConfigurationDescriptor:
		return "GetConfigurationDescriptor"
	case SetConfiguration:
		return "SetConfiguration"
	case WaitConfigureCommand:
		return "WaitConfigureCommand"
	case Finish:
		return "Finish"
	case Failed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Phase is the complete initialization state of one Device record: a
// Kind, plus the DCI that WaitConfigureCommand and Finish operate on.
type Phase struct {
	Kind Kind
	DCI  uint8
}

func (p Phase) String() string {
	switch p.Kind {
	case WaitConfigureCommand, Finish:
		return fmt.Sprintf("%s(dci=%d)", p.Kind, p.DCI)
	default:
		return p.Kind.String()
	}
}
