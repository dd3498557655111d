// Host memory services consumed by the xHCI driver
// https://github.com/usbarmory/xhci
//
// Copyright (c) The xhci Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package memory declares the host allocator and address-translation
// collaborators the driver depends on but does not implement (spec §6):
// a DMA-coherent heap and a fixed virt<->phys linear mapping. In
// production these are satisfied by github.com/usbarmory/tamago/dma and
// a board-specific offset; tests satisfy them with internal/mock.
package memory

// Region is the subset of github.com/usbarmory/tamago/dma.Region's
// method set the driver relies on: reserve DMA-coherent storage for a
// ring, a context, or a descriptor scratch buffer, and release it again.
// A *dma.Region from the real tamago package satisfies this interface
// without modification.
type Region interface {
	// Alloc copies buf into newly reserved DMA storage, aligned to
	// align bytes (0 means word alignment), and returns its address.
	Alloc(buf []byte, align int) (addr uint)
	// Reserve allocates size bytes of uninitialized DMA storage,
	// aligned to align bytes, returning both the address and a slice
	// backed directly by that storage.
	Reserve(size int, align int) (addr uint, buf []byte)
	// Read copies size(buf) bytes at addr+off back into buf.
	Read(addr uint, off int, buf []byte)
	// Write copies buf into the storage at addr+off.
	Write(addr uint, off int, buf []byte)
	// Free releases storage obtained from Alloc.
	Free(addr uint)
	// Release releases storage obtained from Reserve.
	Release(addr uint)
}

// Translator converts between the physical addresses hardware expects in
// TRBs/contexts/registers and the virtual addresses software dereferences,
// per spec §6's "fixed linear mapping" contract: ToPhys and ToVirt must be
// exact inverses of one another, and the driver never assumes a specific
// offset.
type Translator interface {
	ToPhys(virt uint) uint
	ToVirt(phys uint) uint
}

// LinearTranslator implements Translator with a single constant offset, as
// spec §6 describes: phys_to_virt(p) = p + Offset, virt_to_phys(v) = v -
// Offset.
type LinearTranslator struct {
	Offset uint
}

// ToPhys converts a virtual address to its physical counterpart.
func (t LinearTranslator) ToPhys(virt uint) uint {
	return virt - t.Offset
}

// ToVirt converts a physical address to its virtual counterpart.
func (t LinearTranslator) ToVirt(phys uint) uint {
	return phys + t.Offset
}
