// Event Ring Segment Table
// https://github.com/usbarmory/xhci
//
// Copyright (c) The xhci Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package ring

import "encoding/binary"

// ERSTEntrySize is the fixed on-wire size of one Event Ring Segment
// Table entry (spec §3 "Event Ring Segment Table").
const ERSTEntrySize = 16

// ERSTEntry is one (ring segment base, ring segment size) pair. This
// design mandates exactly one segment (spec §3), so the table is always
// a single entry.
type ERSTEntry struct {
	Base uint64
	Size uint16
}

// Bytes marshals the entry to its 16-byte wire representation: 64-bit
// base, 16-bit size, 48 bits reserved (spec S6).
func (e ERSTEntry) Bytes() []byte {
	buf := make([]byte, ERSTEntrySize)
	binary.LittleEndian.PutUint64(buf[0:], e.Base)
	binary.LittleEndian.PutUint16(buf[8:], e.Size)

	return buf
}
