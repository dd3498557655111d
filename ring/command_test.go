package ring

import (
	"testing"

	"github.com/usbarmory/xhci/internal/mock"
	"github.com/usbarmory/xhci/memory"
)

type fakeDoorbell struct {
	rings []struct {
		slot   int
		target uint8
		stream uint16
	}
}

func (f *fakeDoorbell) Ring(slot int, target uint8, streamID uint16) {
	f.rings = append(f.rings, struct {
		slot   int
		target uint8
		stream uint16
	}{slot, target, streamID})
}

func TestCommandPushRingsDoorbellZero(t *testing.T) {
	dma := mock.NewDMA(1 << 20)
	db := &fakeDoorbell{}

	cmd, err := NewCommand(dma, memory.LinearTranslator{}, 16, db)
	if err != nil {
		t.Fatalf("NewCommand: %v", err)
	}

	if _, err := cmd.PushEnableSlot(); err != nil {
		t.Fatalf("PushEnableSlot: %v", err)
	}

	if len(db.rings) != 1 {
		t.Fatalf("rings = %d, want 1", len(db.rings))
	}

	if db.rings[0].slot != 0 || db.rings[0].target != 0 || db.rings[0].stream != 0 {
		t.Fatalf("unexpected doorbell write: %+v", db.rings[0])
	}
}

func TestCommandBackpressure(t *testing.T) {
	dma := mock.NewDMA(1 << 20)
	db := &fakeDoorbell{}

	const capacity = 16 // 15 usable data slots

	cmd, err := NewCommand(dma, memory.LinearTranslator{}, capacity, db)
	if err != nil {
		t.Fatalf("NewCommand: %v", err)
	}

	for i := 0; i < capacity-1; i++ {
		if _, err := cmd.PushNoOp(); err != nil {
			t.Fatalf("push %d: %v", i, err)
		}
	}

	if _, err := cmd.PushNoOp(); err == nil {
		t.Fatalf("expected RingOverflow once outstanding commands exceed capacity")
	}

	cmd.Complete()

	if _, err := cmd.PushNoOp(); err != nil {
		t.Fatalf("push after Complete: %v", err)
	}
}
