// Mock DMA region for xHCI driver tests
// https://github.com/usbarmory/xhci
//
// Copyright (c) The xhci Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package mock

import (
	"fmt"
)

// DMA is a first-fit bump allocator standing in for
// github.com/usbarmory/tamago/dma.Region in tests: it satisfies
// memory.Region without requiring real physical memory.
type DMA struct {
	buf  []byte
	next int
	used map[uint]int
}

// NewDMA allocates a fake DMA region of the given size.
func NewDMA(size int) *DMA {
	return &DMA{
		buf:  make([]byte, size),
		used: make(map[uint]int),
	}
}

func (d *DMA) reserve(size int, align int) (addr uint) {
	if align <= 0 {
		align = 4
	}

	if pad := d.next % align; pad != 0 {
		d.next += align - pad
	}

	if d.next+size > len(d.buf) {
		panic("mock: out of memory")
	}

	addr = uint(d.next)
	d.used[addr] = size
	d.next += size

	return
}

// Alloc copies buf into newly reserved storage and returns its address.
func (d *DMA) Alloc(buf []byte, align int) (addr uint) {
	if len(buf) == 0 {
		return 0
	}

	addr = d.reserve(len(buf), align)
	copy(d.buf[addr:], buf)

	return
}

// Reserve allocates size bytes of zeroed storage and returns a slice over it.
func (d *DMA) Reserve(size int, align int) (addr uint, buf []byte) {
	if size == 0 {
		return 0, nil
	}

	addr = d.reserve(size, align)

	return addr, d.buf[addr : addr+uint(size)]
}

// Read copies len(buf) bytes starting at addr+off into buf.
func (d *DMA) Read(addr uint, off int, buf []byte) {
	size, ok := d.used[addr]

	if !ok {
		panic("mock: read of unallocated pointer")
	}

	if off+len(buf) > size {
		panic(fmt.Sprintf("mock: invalid read %d+%d > %d", off, len(buf), size))
	}

	copy(buf, d.buf[int(addr)+off:])
}

// Write copies buf into the storage at addr+off.
func (d *DMA) Write(addr uint, off int, buf []byte) {
	size, ok := d.used[addr]

	if !ok {
		return
	}

	if off+len(buf) > size {
		panic(fmt.Sprintf("mock: invalid write %d+%d > %d", off, len(buf), size))
	}

	copy(d.buf[int(addr)+off:], buf)
}

// Free releases storage obtained from Alloc. The mock never reclaims space;
// it only forgets the bookkeeping entry, since tests are short-lived.
func (d *DMA) Free(addr uint) {
	delete(d.used, addr)
}

// Release releases storage obtained from Reserve.
func (d *DMA) Release(addr uint) {
	delete(d.used, addr)
}

// Bytes exposes the raw backing buffer for test assertions.
func (d *DMA) Bytes() []byte {
	return d.buf
}
