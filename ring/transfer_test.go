package ring

import (
	"testing"

	"github.com/usbarmory/xhci/internal/mock"
	"github.com/usbarmory/xhci/memory"
	"github.com/usbarmory/xhci/trb"
)

func TestDCIMapping(t *testing.T) {
	cases := []struct {
		ep  uint8
		dci uint8
	}{
		{0x00, 1},
		{0x01, 2},
		{0x81, 3},
		{0x02, 4},
		{0x82, 5},
	}

	for _, c := range cases {
		if got := DCI(c.ep); got != c.dci {
			t.Errorf("DCI(%#x) = %d, want %d", c.ep, got, c.dci)
		}
	}
}

func TestTransferPushNormalRingsDoorbell(t *testing.T) {
	dma := mock.NewDMA(1 << 20)
	db := &fakeDoorbell{}

	tr, err := NewTransfer(dma, memory.LinearTranslator{}, 16, db, 2, 3)
	if err != nil {
		t.Fatalf("NewTransfer: %v", err)
	}

	addr := tr.PushNormal(0xdead0000, 16, false, true)

	if len(db.rings) != 1 {
		t.Fatalf("rings = %d, want 1", len(db.rings))
	}

	if db.rings[0].slot != 2 || db.rings[0].target != 3 || db.rings[0].stream != 0 {
		t.Fatalf("unexpected doorbell write: %+v", db.rings[0])
	}

	got := trb.Unmarshal(tr.ring.buf[0:trb.Size])

	if got.TrbType() != trb.Normal {
		t.Fatalf("type = %s, want Normal", got.TrbType())
	}

	if !got.Cycle() {
		t.Fatalf("cycle = false, want true (initial PCS)")
	}

	if addr != tr.ring.PhysAt(0) {
		t.Fatalf("addr = %#x, want %#x", addr, tr.ring.PhysAt(0))
	}
}
