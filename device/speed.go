// Speed to max control packet size mapping
// https://github.com/usbarmory/xhci
//
// Copyright (c) The xhci Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package device

// PORTSC.SPEED values this driver recognizes (xHCI table 7-13, spec §4.7).
const (
	SpeedLow   = 2
	SpeedHigh  = 3
	SpeedSuper = 4
)

// MaxControlPacketSize maps PORTSC.SPEED to the control endpoint's max
// packet size used before the real bMaxPacketSize0 is learned from the
// Device Descriptor (spec §4.7: "{3 -> 64 (High Speed), 4 -> 512
// (SuperSpeed), other -> 8}").
func MaxControlPacketSize(speed uint8) uint16 {
	switch speed {
	case SpeedHigh:
		return 64
	case SpeedSuper:
		return 512
	default:
		return 8
	}
}
