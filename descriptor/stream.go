// Chained descriptor stream parser
// https://github.com/usbarmory/xhci
//
// Copyright (c) The xhci Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package descriptor

// Entry is one recognized descriptor within a chained stream, with its
// raw bytes (header included) for the caller to re-parse with the
// typed accessors above.
type Entry struct {
	Type uint8
	Raw  []byte
}

// Parse walks a chained descriptor buffer (as returned by
// GET_DESCRIPTOR(Configuration)) and yields each recognized entry in
// order (spec §4.8 "Descriptor stream parsing", Testable Property 7).
//
// Any descriptor whose bDescriptorType is not {Configuration,
// Interface, Endpoint, HID} is skipped by advancing bLength bytes.
// Parsing stops at end-of-buffer or at a zero-length descriptor,
// defensively, to avoid looping forever on malformed input.
func Parse(buf []byte) []Entry {
	var entries []Entry

	for off := 0; off+2 <= len(buf); {
		length := int(buf[off])

		if length == 0 {
			break
		}

		if off+length > len(buf) {
			break
		}

		typ := buf[off+1]

		switch typ {
		case TypeConfiguration, TypeInterface, TypeEndpoint, TypeHID:
			entries = append(entries, Entry{Type: typ, Raw: buf[off : off+length]})
		}

		off += length
	}

	return entries
}
