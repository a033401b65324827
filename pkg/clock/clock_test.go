package clock

import (
	"math"
	"testing"
)

func TestClock32Extend(t *testing.T) {
	var c Clock32

	if got := c.Extend(0xFFFFFF00); got != 0xFFFFFF00 {
		t.Fatalf("first reading: got %#x want 0xFFFFFF00", got)
	}
	// wrapped reading continues past 2^32
	if got := c.Extend(5); got != (1<<32)+5 {
		t.Fatalf("after wrap: got %#x want %#x", got, uint64(1<<32)+5)
	}
	if got := c.Extend(6); got != (1<<32)+6 {
		t.Fatalf("post-wrap increment: got %#x", got)
	}
	// readings carry no ordering guarantee: a slightly earlier one
	// steps back instead of jumping a full wrap forward
	if got := c.Extend(4); got != (1<<32)+4 {
		t.Fatalf("backward reading: got %#x want %#x", got, uint64(1<<32)+4)
	}
	if got := c.Extend(7); got != (1<<32)+7 {
		t.Fatalf("resume after backward reading: got %#x", got)
	}
}

func TestClock32BackwardBeforeEpoch(t *testing.T) {
	var c Clock32

	if got := c.Extend(1); got != 1 {
		t.Fatalf("first reading: got %d want 1", got)
	}
	if got := c.Extend(0xFFFFFFFF); got != 0 {
		t.Fatalf("backward past zero: got %d want 0", got)
	}
}

func TestLinearTranslatorRoundTrip(t *testing.T) {
	// 1 MHz device clock anchored at host time 2.5s.
	tr := NewLinearTranslator(1e6, 2.5)

	if got := tr.ClockToHostTime(1000000); math.Abs(got-3.5) > 1e-12 {
		t.Fatalf("ClockToHostTime(1e6): got %v want 3.5", got)
	}
	if got := tr.HostTimeToClock(3.5); got != 1000000 {
		t.Fatalf("HostTimeToClock(3.5): got %d want 1000000", got)
	}
	// times at or before the anchor clamp to clock zero
	if got := tr.HostTimeToClock(1.0); got != 0 {
		t.Fatalf("HostTimeToClock before anchor: got %d want 0", got)
	}
	if got := tr.SecondsToClock(0.04); got != 40000 {
		t.Fatalf("SecondsToClock(0.04): got %d want 40000", got)
	}
	if got := tr.SecondsToClock(-1); got != 0 {
		t.Fatalf("SecondsToClock(-1): got %d want 0", got)
	}
}

func TestLinearTranslatorExtendsWrappedReadings(t *testing.T) {
	tr := NewLinearTranslator(1e6, 0)

	first := tr.ClockToHostTime(0xFFFFFF00)
	second := tr.ClockToHostTime(0x00000100)
	if second <= first {
		t.Fatalf("wrapped reading went backwards: %v then %v", first, second)
	}
	want := float64(uint64(1<<32)+0x100) / 1e6
	if math.Abs(second-want) > 1e-9 {
		t.Fatalf("wrapped reading: got %v want %v", second, want)
	}
}
