// Mock MMIO region for xHCI driver tests
// https://github.com/usbarmory/xhci
//
// Copyright (c) The xhci Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package mock provides a fake MMIO register block and a fake DMA region,
// standing in for a real xHCI BAR and a real tamago dma.Region, so that
// the ring, register and controller packages can be exercised off target.
package mock

import "unsafe"

// MMIO is a fake register block backed by ordinary Go memory.
type MMIO struct {
	buf []byte
}

// NewMMIO allocates a fake register block of the given size.
func NewMMIO(size int) *MMIO {
	return &MMIO{buf: make([]byte, size)}
}

// Base returns the base address of the register block, usable with the
// internal/reg accessors exactly as a real MMIO base address would be.
func (m *MMIO) Base() uint {
	return uint(uintptr(unsafe.Pointer(&m.buf[0])))
}

// Bytes returns the raw backing buffer, for assertions against the exact
// byte pattern a test expects (e.g. ERST serialization).
func (m *MMIO) Bytes() []byte {
	return m.buf
}
