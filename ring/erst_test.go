package ring

import (
	"bytes"
	"testing"
)

func TestERSTEntryBytes(t *testing.T) {
	e := ERSTEntry{Base: 0x10_0000, Size: 32}

	want := []byte{0x00, 0x00, 0x10, 0x00, 0x00, 0x00, 0x00, 0x00, 0x20, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}

	if got := e.Bytes(); !bytes.Equal(got, want) {
		t.Fatalf("Bytes() = % x, want % x", got, want)
	}
}
