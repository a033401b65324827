package adxl345

import "testing"

func TestMonotonicSequenceExtend(t *testing.T) {
	var m MonotonicSequence

	if got := m.Extend(0); got != 0 {
		t.Fatalf("first: got %d want 0", got)
	}
	if got := m.Extend(1); got != 1 {
		t.Fatalf("increment: got %d want 1", got)
	}
	if got := m.Extend(0xFFFF); got != 0xFFFF {
		t.Fatalf("near wrap: got %#x want 0xFFFF", got)
	}
	// raw value smaller than the low 16 bits means one wrap
	if got := m.Extend(0x0003); got != 0x10003 {
		t.Fatalf("after wrap: got %#x want 0x10003", got)
	}
	if got := m.Extend(0x0003); got != 0x10003 {
		t.Fatalf("repeat: got %#x want 0x10003", got)
	}
	if got := m.Last(); got != 0x10003 {
		t.Fatalf("Last: got %#x want 0x10003", got)
	}
}

func TestMonotonicSequenceNonDecreasing(t *testing.T) {
	// feed wrapping values with at most one wrap between observations
	var m MonotonicSequence
	var prev uint32
	raw := uint16(0)
	for i := 0; i < 300000; i++ {
		raw += 7 // wraps naturally every ~9k steps
		got := m.Extend(raw)
		if got < prev {
			t.Fatalf("step %d: extended sequence decreased: %d -> %d", i, prev, got)
		}
		prev = got
	}
}
