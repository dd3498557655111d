// https://github.com/usbarmory/xhci
//
// Copyright (c) The xhci Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.
//
// +build tamago,amd64

// Basic bring-up example for the xhci driver, wiring a discovered PCI
// xHCI function to a Controller and running its event loop.

package main

import (
	"fmt"
	"log"
	"time"

	"github.com/usbarmory/tamago/dma"

	"github.com/usbarmory/xhci"
	"github.com/usbarmory/xhci/memory"
	"github.com/usbarmory/xhci/pci"
)

// dmaOffset is the board's fixed virtual-to-physical offset for
// DMA-coherent memory (spec §6 "fixed linear mapping").
const dmaOffset = 0

func main() {
	fn, err := pci.Find(0)
	if err != nil {
		log.Fatalf("xhci: %v", err)
	}

	region, err := dma.NewRegion(uint(0x40000000), 64*1024*1024, false)
	if err != nil {
		log.Fatalf("xhci: dma region: %v", err)
	}

	trans := memory.LinearTranslator{Offset: dmaOffset}

	c := xhci.New(fn.MMIOBase(), region, trans, xhci.Config{})

	if err := c.Init(); err != nil {
		log.Fatalf("xhci: init: %v", err)
	}

	for _, r := range c.Receptacles() {
		fmt.Printf("xhci: receptacle usb2=%d usb3=%d\n", r.USB2, r.USB3)
	}

	if !fn.EnableMSIX(0, 0, 0) {
		log.Println("xhci: no MSI-X support, polling the event ring")
	}

	for {
		c.Step()
		time.Sleep(time.Millisecond)
	}
}
