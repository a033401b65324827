package adxl345

import (
	"bytes"
	"testing"
)

func TestBufferCap(t *testing.T) {
	b := NewBuffer(0) // default cap
	first := []byte{1, 2, 3, 4, 5, 6}
	for i := 0; i < DefaultBufferCap+1; i++ {
		payload := first
		if i > 0 {
			payload = []byte{byte(i)}
		}
		b.Push(RawBatch{Sequence: uint32(i), Payload: payload})
	}
	batches := b.Drain()
	if len(batches) != DefaultBufferCap {
		t.Fatalf("retained %d batches, want %d", len(batches), DefaultBufferCap)
	}
	// arrival order and no mutation of stored entries
	if batches[0].Sequence != 0 || !bytes.Equal(batches[0].Payload, first) {
		t.Fatalf("first batch corrupted: %+v", batches[0])
	}
	last := batches[len(batches)-1]
	if last.Sequence != DefaultBufferCap-1 {
		t.Fatalf("last retained sequence: got %d want %d", last.Sequence, DefaultBufferCap-1)
	}
}

func TestBufferDrainResets(t *testing.T) {
	b := NewBuffer(10)
	b.Push(RawBatch{Sequence: 1})
	b.Push(RawBatch{Sequence: 2})
	if got := b.Len(); got != 2 {
		t.Fatalf("Len before drain: got %d want 2", got)
	}
	if got := len(b.Drain()); got != 2 {
		t.Fatalf("drained %d batches, want 2", got)
	}
	if got := b.Len(); got != 0 {
		t.Fatalf("Len after drain: got %d want 0", got)
	}
	if got := len(b.Drain()); got != 0 {
		t.Fatalf("second drain returned %d batches", got)
	}
}
