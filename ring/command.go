// Command Ring
// https://github.com/usbarmory/xhci
//
// Copyright (c) The xhci Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package ring

import (
	"golang.org/x/sync/semaphore"

	"github.com/usbarmory/xhci/memory"
	"github.com/usbarmory/xhci/trb"
	"github.com/usbarmory/xhci/xhcierr"
)

// Doorbell rings a single doorbell register for a slot with the given
// target and stream id (spec §4.1 "Doorbell array"). Slot 0 is the
// Command Ring doorbell; slots 1..MaxSlots belong to devices.
type Doorbell interface {
	Ring(slot int, target uint8, streamID uint16)
}

// Command is the Command Ring (spec §4.4): a single producer ring
// shared by the whole controller, rung at doorbell slot 0.
//
// Outstanding commands are bounded by a weighted semaphore sized to the
// ring's data slots (spec §4.4: "A caller MUST NOT enqueue more
// outstanding commands than the ring has data slots; enforcing
// backpressure is the caller's responsibility"), grounded on the
// teacher's single-outstanding-job semaphore pattern in
// soc/nxp/caam/sha.go.
type Command struct {
	ring *Ring
	db   Doorbell
	sem  *semaphore.Weighted
}

// NewCommand allocates a Command Ring of the given capacity.
func NewCommand(mem memory.Region, trans memory.Translator, capacity int, db Doorbell) (*Command, error) {
	r, err := New(mem, trans, capacity)
	if err != nil {
		return nil, err
	}

	return &Command{
		ring: r,
		db:   db,
		sem:  semaphore.NewWeighted(int64(capacity - 1)),
	}, nil
}

// Phys returns the physical base address of the ring, for CRCR.CRP.
func (c *Command) Phys() uint64 {
	return c.ring.Phys()
}

// PCS returns the ring's current Producer Cycle State, for CRCR.RCS.
func (c *Command) PCS() bool {
	return c.ring.PCS()
}

func (c *Command) push(t trb.TRB) (uint64, error) {
	if !c.sem.TryAcquire(1) {
		return 0, xhcierr.New(xhcierr.RingOverflow, "command ring has no free slots")
	}

	addr := c.ring.push(t)
	c.db.Ring(0, 0, 0)

	return addr, nil
}

// Complete releases one outstanding-command credit, called once a
// CommandCompletion event has been dispatched for a previously pushed
// command.
func (c *Command) Complete() {
	c.sem.Release(1)
}

// PushEnableSlot pushes an EnableSlot command.
func (c *Command) PushEnableSlot() (phys uint64, err error) {
	return c.push(trb.NewEnableSlot(true))
}

// PushDisableSlot pushes a DisableSlot command for slotID.
func (c *Command) PushDisableSlot(slotID uint8) (phys uint64, err error) {
	return c.push(trb.NewDisableSlot(slotID, true))
}

// PushAddressDevice pushes an AddressDevice command referencing the
// Input Context at inputCtxPhys for slotID.
func (c *Command) PushAddressDevice(inputCtxPhys uint64, slotID uint8) (phys uint64, err error) {
	return c.push(trb.NewAddressDevice(inputCtxPhys, slotID, false, true))
}

// PushConfigureEndpoint pushes a ConfigureEndpoint command referencing
// the Input Context at inputCtxPhys for slotID.
func (c *Command) PushConfigureEndpoint(inputCtxPhys uint64, slotID uint8) (phys uint64, err error) {
	return c.push(trb.NewConfigureEndpoint(inputCtxPhys, slotID, true))
}

// PushEvaluateContext pushes an EvaluateContext command referencing the
// Input Context at inputCtxPhys for slotID.
func (c *Command) PushEvaluateContext(inputCtxPhys uint64, slotID uint8) (phys uint64, err error) {
	return c.push(trb.NewEvaluateContext(inputCtxPhys, slotID, true))
}

// PushNoOp pushes a No Op command, used to probe Command Ring plumbing.
func (c *Command) PushNoOp() (phys uint64, err error) {
	return c.push(trb.NewNoOpCmd(true))
}

// Dump renders every slot, for diagnostics.
func (c *Command) Dump() []string {
	return c.ring.Dump()
}
